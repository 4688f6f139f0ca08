package bankimport

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// splitLines splits statement text into lines, tolerating CRLF endings.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

// collapseSpaces trims the string and folds runs of whitespace into single
// spaces. Bank descriptions pad fields to fixed widths.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// parseYYYYMMDD parses the compact date format ("20230115") used by the
// ABN AMRO and ING exports. Invalid calendar dates are rejected.
func parseYYYYMMDD(s string) (civil.Date, error) {
	t, err := time.Parse("20060102", strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return civil.DateOf(t), nil
}

// parseISODate parses "2006-01-02" dates used by the bunq and Rabobank
// exports.
func parseISODate(s string) (civil.Date, error) {
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// headerIndex maps trimmed header names to their column positions and
// verifies the required columns are all present. Addressing columns by
// header name keeps parsing stable when banks reorder export columns.
func headerIndex(header []string, required ...string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("missing column %q in header", name)
		}
	}
	return idx, nil
}

// field returns the trimmed cell at position i, or "" when the record is
// too short.
func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
