package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"media-tracker-api/utils"
)

// ParseViewingHistory turns raw upload bytes into typed import rows. The
// header row must contain a Title column (case-insensitive); a Date column
// is optional. Every cell is sanitized before use. An error here is a
// job-level failure: no rows are attempted.
func ParseViewingHistory(content []byte) ([]ImportRow, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	titleIdx, dateIdx := -1, -1
	columns := make([]string, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		columns[i] = name
		switch strings.ToLower(name) {
		case "title":
			titleIdx = i
		case "date":
			dateIdx = i
		}
	}
	if titleIdx == -1 {
		return nil, fmt.Errorf("csv is missing a Title column")
	}

	var rows []ImportRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(rows)+1, err)
		}

		raw := make(map[string]string, len(record))
		for i, cell := range record {
			if i >= len(columns) {
				break
			}
			raw[columns[i]] = utils.SanitizeCell(cell)
		}

		row := ImportRow{Raw: raw}
		if titleIdx < len(record) {
			row.Title = utils.SanitizeCell(record[titleIdx])
		}
		if dateIdx >= 0 && dateIdx < len(record) {
			row.Date = utils.SanitizeCell(record[dateIdx])
		}
		rows = append(rows, row)
	}

	return rows, nil
}
