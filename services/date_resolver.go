package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnparseableDate is returned when no known layout matches a date string.
// Callers treat it as a row-level failure, never a fatal one.
var ErrUnparseableDate = errors.New("unable to parse date")

// dateLayouts is tried in order. Two-digit-year US and EU forms come first
// because that is what streaming-service exports ship, followed by the
// four-digit forms, ISO, and hyphenated variants. Non-padded layout elements
// accept both "6/26/25" and "06/26/25".
var dateLayouts = []string{
	"1/2/06",
	"2/1/06",
	"1/2/2006",
	"2/1/2006",
	"2006-1-2",
	"1-2-2006",
	"2-1-2006",
	"1-2-06",
	"2-1-06",
}

// ResolveDate parses an ambiguous date string from a viewing-history export.
// Leading and trailing quote characters are stripped before parsing.
func ResolveDate(raw string) (time.Time, error) {
	cleaned := strings.Trim(strings.TrimSpace(raw), `"'`)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableDate, raw)
}
