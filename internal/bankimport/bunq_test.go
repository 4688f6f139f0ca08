package bankimport

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bunqHeader = `"Date","Interest Date","Amount","Account","Counterparty","Name","Description"`

func TestParseBunq(t *testing.T) {
	text := strings.Join([]string{
		bunqHeader,
		`"2023-03-10","2023-03-10","-12.50","NL76BUNQ0123456789","NL57ABNA0987654321","Café de Pont","Lunch, met klant"`,
		`"2023-03-11","2023-03-11","250.00","NL76BUNQ0123456789","NL91KNAB0123456789","Opdrachtgever BV",""`,
		`"2023-03-12","2023-03-12","-3.20","NL76BUNQ0123456789","","","OV chipkaart"`,
	}, "\n")

	rows, skipped, err := ParseBunq(text)
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	require.Len(t, rows, 3)

	assert.Equal(t, date(2023, time.March, 10), rows[0].Date)
	assert.Equal(t, "Café de Pont - Lunch, met klant", rows[0].Description)
	assert.True(t, rows[0].Amount.Equal(mustDecimal(t, "-12.50")))

	// Name only, empty free text.
	assert.Equal(t, "Opdrachtgever BV", rows[1].Description)
	assert.True(t, rows[1].Amount.Equal(mustDecimal(t, "250.00")))

	// Free text only, empty name.
	assert.Equal(t, "OV chipkaart", rows[2].Description)
}

func TestParseBunqSkipsBadRows(t *testing.T) {
	text := strings.Join([]string{
		bunqHeader,
		`"10-03-2023","2023-03-10","-12.50","NL76BUNQ0123456789","NL57ABNA0987654321","X","wrong date format"`,
		`"2023-03-10","short"`,
	}, "\n")

	rows, skipped, err := ParseBunq(text)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, 2, skipped)
}

func TestParseBunqMissingHeader(t *testing.T) {
	text := strings.Join([]string{
		`"Date","Interest Date","Value","Account","Counterparty","Name","Description"`,
		`"2023-03-10","2023-03-10","-12.50","NL76BUNQ0123456789","NL57ABNA0987654321","X",""`,
	}, "\n")

	_, _, err := ParseBunq(text)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Amount")
}
