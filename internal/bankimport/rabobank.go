package bankimport

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/mjansen/boekhouding/internal/domain"
)

// Header names in the Rabobank CSV export.
const (
	raboHeaderDate   = "Datum"
	raboHeaderAmount = "Bedrag"
	raboHeaderName   = "Naam tegenpartij"
	raboHeaderDesc1  = "Omschrijving-1"
	raboHeaderDesc2  = "Omschrijving-2"
	raboHeaderDesc3  = "Omschrijving-3"
)

// The current Rabobank layout has 26 columns; 20 covers everything through
// the last remark column this parser reads.
const raboMinColumns = 20

// ParseRabobank parses the comma-separated Rabobank export. Amounts are
// signed comma-decimals with an explicit plus for credits. The description
// joins the counterparty name with up to three remark columns.
func ParseRabobank(text string) ([]domain.ParsedRow, int, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("rabobank: reading csv: %w", err)
	}
	if len(records) == 0 {
		return nil, 0, nil
	}

	idx, err := headerIndex(records[0], raboHeaderDate, raboHeaderAmount, raboHeaderName)
	if err != nil {
		return nil, 0, fmt.Errorf("rabobank: %w", err)
	}

	var rows []domain.ParsedRow
	skipped := 0

	for _, rec := range records[1:] {
		if len(rec) < raboMinColumns {
			skipped++
			continue
		}
		date, err := parseISODate(field(rec, idx[raboHeaderDate]))
		if err != nil {
			skipped++
			continue
		}

		parts := []string{field(rec, idx[raboHeaderName])}
		for _, h := range []string{raboHeaderDesc1, raboHeaderDesc2, raboHeaderDesc3} {
			if i, ok := idx[h]; ok {
				parts = append(parts, field(rec, i))
			}
		}
		desc := collapseSpaces(strings.Join(parts, " "))

		rows = append(rows, domain.ParsedRow{
			Date:        date,
			Description: desc,
			Amount:      ParseCommaAmount(field(rec, idx[raboHeaderAmount])),
		})
	}

	return rows, skipped, nil
}
