package utils

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidateCSVContent checks an uploaded file before a job is created:
// size bounds, encoding, and a cheap "looks like a CSV" sniff. Cell-level
// sanitization happens later, per row.
func ValidateCSVContent(content []byte, maxSize int64, maxRows int) error {
	size := int64(len(content))
	if size == 0 {
		return fmt.Errorf("empty file uploaded")
	}
	if size > maxSize {
		return fmt.Errorf("file too large, maximum size is %dMB", maxSize/(1024*1024))
	}
	if !utf8.Valid(content) {
		return fmt.Errorf("file encoding not supported, use UTF-8")
	}
	if !bytes.ContainsRune(content, ',') && !bytes.ContainsRune(content, '\t') {
		return fmt.Errorf("file does not appear to be a valid CSV")
	}
	if rows := CountRows(content); rows > maxRows {
		return fmt.Errorf("too many rows, maximum is %d", maxRows)
	}
	return nil
}

// CountRows returns the number of data records (excluding the header). It
// reads real CSV records, so quoted cells with embedded newlines count as one
// row, matching what the row parser will later yield.
func CountRows(content []byte) int {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1

	rows := -1 // header
	for {
		if _, err := reader.Read(); err != nil {
			break
		}
		rows++
	}
	if rows < 0 {
		return 0
	}
	return rows
}

// SanitizeCell neutralizes a CSV cell: strips null bytes, defuses formula
// injection, and bounds the length. Parameterized queries already guard the
// database; this is boundary hygiene for anything re-exporting the value.
func SanitizeCell(value string) string {
	if value == "" {
		return ""
	}

	value = strings.ReplaceAll(value, "\x00", "")

	if value != "" {
		switch value[0] {
		case '=', '+', '-', '@', '\t', '\r':
			value = "'" + value
		}
	}

	if len(value) > 500 {
		value = value[:500]
	}

	return strings.TrimSpace(value)
}
