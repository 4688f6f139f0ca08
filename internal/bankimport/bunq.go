package bankimport

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/mjansen/boekhouding/internal/domain"
)

// Header names in the bunq CSV export.
const (
	bunqHeaderDate        = "Date"
	bunqHeaderAmount      = "Amount"
	bunqHeaderName        = "Name"
	bunqHeaderDescription = "Description"
)

const bunqMinColumns = 6

// ParseBunq parses the comma-separated bunq export. Dates are ISO, amounts
// are signed dot-decimals; the export is UTF-8 only, which ParseStatement
// accounts for before dispatching here.
func ParseBunq(text string) ([]domain.ParsedRow, int, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("bunq: reading csv: %w", err)
	}
	if len(records) == 0 {
		return nil, 0, nil
	}

	idx, err := headerIndex(records[0], bunqHeaderDate, bunqHeaderAmount, bunqHeaderName)
	if err != nil {
		return nil, 0, fmt.Errorf("bunq: %w", err)
	}

	var rows []domain.ParsedRow
	skipped := 0

	for _, rec := range records[1:] {
		if len(rec) < bunqMinColumns {
			skipped++
			continue
		}
		date, err := parseISODate(field(rec, idx[bunqHeaderDate]))
		if err != nil {
			skipped++
			continue
		}

		name := field(rec, idx[bunqHeaderName])
		var freeText string
		if descIdx, ok := idx[bunqHeaderDescription]; ok {
			freeText = collapseSpaces(field(rec, descIdx))
		}
		desc := name
		switch {
		case name != "" && freeText != "":
			desc = name + " - " + freeText
		case name == "":
			desc = freeText
		}

		rows = append(rows, domain.ParsedRow{
			Date:        date,
			Description: desc,
			Amount:      ParseDotAmount(field(rec, idx[bunqHeaderAmount])),
		})
	}

	return rows, skipped, nil
}
