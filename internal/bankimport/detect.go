package bankimport

import (
	"regexp"
	"strings"
)

// Format identifies a supported bank export dialect.
type Format string

const (
	FormatUnknown  Format = ""
	FormatABNAMRO  Format = "abnamro"
	FormatING      Format = "ing"
	FormatBunq     Format = "bunq"
	FormatRabobank Format = "rabobank"
)

var yyyymmdd = regexp.MustCompile(`^\d{8}$`)

// DetectFormat identifies the dialect from the first line of a decoded
// statement. The checks run in a fixed order and the first match wins:
//
//   - ABN AMRO: tab-separated, no header; ≥ 7 columns with a YYYYMMDD
//     date in column 2.
//   - ING: header line with the "Naam / Omschrijving" column, semicolons.
//   - bunq: header line with quoted "Date" and "Counterparty" columns.
//   - Rabobank: header line with the IBAN/BBAN column.
//
// Detection never errors; an unrecognized first line yields no match.
func DetectFormat(text string) (Format, bool) {
	line := firstLine(text)
	if line == "" {
		return FormatUnknown, false
	}

	if cols := strings.Split(line, "\t"); len(cols) >= 7 && yyyymmdd.MatchString(cols[2]) {
		return FormatABNAMRO, true
	}
	if strings.Contains(line, "Naam / Omschrijving") && strings.Contains(line, ";") {
		return FormatING, true
	}
	if strings.Contains(line, `"Date"`) && strings.Contains(line, `"Counterparty"`) {
		return FormatBunq, true
	}
	if strings.Contains(line, "IBAN/BBAN") {
		return FormatRabobank, true
	}

	return FormatUnknown, false
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return strings.TrimRight(text, "\r")
}
