package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap stores a free-form JSON object in a MySQL json column.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JSONMap: %T", value)
	}
	if len(data) == 0 {
		*m = JSONMap{}
		return nil
	}
	return json.Unmarshal(data, m)
}

// ImportError is one entry in an import job's error log. Row is 1-based for
// row-level failures and omitted entirely for job-level entries (parse
// failures, cancellation), so the two cannot be confused.
type ImportError struct {
	Row   int               `json:"row,omitempty"`
	Error string            `json:"error"`
	Data  map[string]string `json:"data,omitempty"`
}

// ImportErrorList stores the capped error log in a MySQL json column.
type ImportErrorList []ImportError

func (l ImportErrorList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *ImportErrorList) Scan(value interface{}) error {
	if value == nil {
		*l = ImportErrorList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for ImportErrorList: %T", value)
	}
	if len(data) == 0 {
		*l = ImportErrorList{}
		return nil
	}
	return json.Unmarshal(data, l)
}
