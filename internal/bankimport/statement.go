package bankimport

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/mjansen/boekhouding/internal/domain"
)

// ErrUnknownFormat is returned when no supported bank dialect matches the
// uploaded file.
var ErrUnknownFormat = errors.New("statement format not recognized")

// Statement is the result of parsing one uploaded bank export.
type Statement struct {
	Format  Format             `json:"format"`
	Rows    []domain.ParsedRow `json:"rows"`
	Skipped int                `json:"skipped"`
}

// ParseStatement decodes and parses a raw bank export. Dutch bank exports
// are ISO 8859-1 more often than not, so that decoding is tried first;
// when detection fails and the bytes are valid UTF-8 the text is decoded
// again as UTF-8 and detection retried. The bunq dialect is UTF-8 only, so
// a bunq match forces a UTF-8 re-decode of the original bytes before
// parsing, preserving multibyte characters in its descriptions.
func ParseStatement(raw []byte) (*Statement, error) {
	if len(raw) == 0 {
		return nil, ErrUnknownFormat
	}

	text := decodeLatin1(raw)
	format, ok := DetectFormat(text)
	if !ok && utf8.Valid(raw) {
		text = string(raw)
		format, ok = DetectFormat(text)
	}
	if !ok {
		return nil, ErrUnknownFormat
	}

	if format == FormatBunq && utf8.Valid(raw) {
		text = string(raw)
	}

	var (
		rows    []domain.ParsedRow
		skipped int
		err     error
	)
	switch format {
	case FormatABNAMRO:
		rows, skipped, err = ParseABNAMRO(text)
	case FormatING:
		rows, skipped, err = ParseING(text)
	case FormatBunq:
		rows, skipped, err = ParseBunq(text)
	case FormatRabobank:
		rows, skipped, err = ParseRabobank(text)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s statement: %w", format, err)
	}

	return &Statement{Format: format, Rows: rows, Skipped: skipped}, nil
}

// decodeLatin1 maps the raw bytes through ISO 8859-1. Every byte sequence
// is valid in that charset, so decoding itself cannot fail.
func decodeLatin1(raw []byte) string {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
