package bankimport

import (
	"strings"

	"github.com/mjansen/boekhouding/internal/domain"
)

// Column layout of the ABN AMRO TAB export. There is no header row.
const (
	abnColAccount     = 0
	abnColCurrency    = 1
	abnColDate        = 2
	abnColAmount      = 6
	abnColDescription = 7

	abnMinColumns = 8
)

// Tag keys ABN AMRO packs into its description column.
var abnTags = map[string]bool{
	"TRTP": true, // transaction type
	"IBAN": true,
	"BIC":  true,
	"NAME": true,
	"REMI": true, // remittance information
	"EREF": true,
	"MARF": true,
	"CSID": true,
	"NRTX": true,
	"PREF": true,
}

// ParseABNAMRO parses the tab-separated ABN AMRO export. Lines with fewer
// than 8 columns or an unparseable date are skipped and counted.
func ParseABNAMRO(text string) ([]domain.ParsedRow, int, error) {
	var rows []domain.ParsedRow
	skipped := 0

	for _, line := range splitLines(text) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < abnMinColumns {
			skipped++
			continue
		}
		date, err := parseYYYYMMDD(cols[abnColDate])
		if err != nil {
			skipped++
			continue
		}
		rows = append(rows, domain.ParsedRow{
			Date:        date,
			Description: abnDescription(cols[abnColDescription]),
			Amount:      ParseCommaAmount(cols[abnColAmount]),
		})
	}

	return rows, skipped, nil
}

// abnDescription flattens the /TAG/value/ structure of the description
// column. NAME plus REMI carry the useful text; TRTP (the transfer type)
// substitutes when there is no remittance information. Descriptions
// without the tag structure are passed through with whitespace collapsed.
func abnDescription(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "/") {
		return collapseSpaces(raw)
	}

	tags := parseABNTags(raw)
	name := collapseSpaces(tags["NAME"])
	remi := collapseSpaces(tags["REMI"])
	trtp := collapseSpaces(tags["TRTP"])

	switch {
	case name != "" && remi != "":
		return name + ", " + remi
	case name != "" && trtp != "":
		return name + ", " + trtp
	case name != "":
		return name
	case remi != "":
		return remi
	}
	return collapseSpaces(strings.Trim(raw, "/"))
}

// parseABNTags splits "/TRTP/SEPA Overboeking/NAME/Acme/REMI/invoice 42/"
// into tag/value pairs. Values may themselves contain slashes; every
// segment that is not a known tag key extends the current value.
func parseABNTags(raw string) map[string]string {
	segments := strings.Split(strings.Trim(raw, "/"), "/")
	tags := make(map[string]string)

	var key string
	var value []string
	flush := func() {
		if key != "" {
			tags[key] = strings.Join(value, "/")
		}
	}

	for _, seg := range segments {
		if abnTags[seg] {
			flush()
			key = seg
			value = nil
			continue
		}
		if key != "" {
			value = append(value, seg)
		}
	}
	flush()

	return tags
}
