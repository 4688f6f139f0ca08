package bankimport

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/mjansen/boekhouding/internal/domain"
)

// Header names in the ING CSV export.
const (
	ingHeaderDate      = "Datum"
	ingHeaderName      = "Naam / Omschrijving"
	ingHeaderDirection = "Af Bij"
	ingHeaderAmount    = "Bedrag (EUR)"
	ingHeaderNotes     = "Mededelingen"
)

const ingMinColumns = 7

// ParseING parses the semicolon-separated ING export. The amount column is
// always positive; the "Af Bij" column carries the direction (Af = debit).
func ParseING(text string) ([]domain.ParsedRow, int, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = ';'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("ing: reading csv: %w", err)
	}
	if len(records) == 0 {
		return nil, 0, nil
	}

	idx, err := headerIndex(records[0], ingHeaderDate, ingHeaderName, ingHeaderDirection, ingHeaderAmount)
	if err != nil {
		return nil, 0, fmt.Errorf("ing: %w", err)
	}

	var rows []domain.ParsedRow
	skipped := 0

	for _, rec := range records[1:] {
		if len(rec) < ingMinColumns {
			skipped++
			continue
		}
		date, err := parseYYYYMMDD(field(rec, idx[ingHeaderDate]))
		if err != nil {
			skipped++
			continue
		}

		amount := ParseCommaAmount(field(rec, idx[ingHeaderAmount])).Abs()
		if strings.EqualFold(field(rec, idx[ingHeaderDirection]), "Af") {
			amount = amount.Neg()
		}

		desc := field(rec, idx[ingHeaderName])
		if notesIdx, ok := idx[ingHeaderNotes]; ok {
			if notes := collapseSpaces(field(rec, notesIdx)); notes != "" {
				if desc != "" {
					desc = desc + ", " + notes
				} else {
					desc = notes
				}
			}
		}

		rows = append(rows, domain.ParsedRow{
			Date:        date,
			Description: desc,
			Amount:      amount,
		})
	}

	return rows, skipped, nil
}
