package airbnb

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/hostfolio/backend/src/logger"
)

func init() {
	logger.InitLogger("error")
}

const sampleExport = `Date,Type,Confirmation code,Start date,Nights,Guest,Listing,Amount,Paid out,Gross earnings,Currency
03/01/2025,Reservation,HMABC123,03/01/2025,4,Jane Doe,Sunny Beach Apartment,"$500.00",,"$560.00",USD
03/02/2025,Resolution Adjustment,HMABC123,03/01/2025,4,Jane Doe,Sunny Beach Apartment,-$50.00,,,USD
03/05/2025,Payout,,,,,,,"$1,250.00",,USD
03/10/2025,Reservation,HMXYZ789,03/12/2025,2,John Roe,Downtown Loft,$240.00,,$270.00,USD
`

func TestParse_SampleExport(t *testing.T) {
	p := NewParser()

	result, err := p.Parse(strings.NewReader(sampleExport))
	require.NoError(t, err)

	require.Len(t, result.Transactions, 4)
	assert.Equal(t, 0, result.SkippedRows)

	first := result.Transactions[0]
	assert.Equal(t, "HMABC123", first.ConfirmationCode)
	assert.Equal(t, "Reservation", first.Type)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), first.StartDate)
	assert.Equal(t, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), first.EndDate)
	assert.Equal(t, 4, first.Nights)
	assert.Equal(t, 500.0, first.Amount)
	assert.Equal(t, 560.0, first.GrossEarnings)
	assert.Equal(t, "Jane Doe", first.Guest)
	assert.Equal(t, "Sunny Beach Apartment", first.Listing)
	assert.Equal(t, "USD", first.Currency)

	adjustment := result.Transactions[1]
	assert.Equal(t, -50.0, adjustment.Amount)

	// Payout row has no Amount; "Paid out" fills in, commas stripped.
	payout := result.Transactions[2]
	assert.Equal(t, 1250.0, payout.Amount)
	assert.Empty(t, payout.ConfirmationCode)

	assert.Equal(t, []string{"Sunny Beach Apartment", "Downtown Loft"}, result.Listings)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), result.DateRange.Start)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), result.DateRange.End)
}

func TestParse_ISODatesAndShuffledColumns(t *testing.T) {
	p := NewParser()
	csv := `Listing,Amount,Date,Nights,Confirmation code,Start date
Downtown Loft,$300.00,2025-04-01,3,HM111,2025-04-02
`

	result, err := p.Parse(strings.NewReader(csv))
	require.NoError(t, err)

	require.Len(t, result.Transactions, 1)
	tx := result.Transactions[0]
	assert.Equal(t, time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), tx.StartDate)
	assert.Equal(t, time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC), tx.EndDate)
	assert.Equal(t, 300.0, tx.Amount)
}

func TestParse_MalformedRowsSkippedAndCounted(t *testing.T) {
	p := NewParser()
	csv := `Date,Type,Confirmation code,Start date,Nights,Guest,Listing,Amount
not-a-date,Reservation,BAD1,03/01/2025,2,,Loft,$100.00
03/02/2025,Reservation,BAD2,03/02/2025,two,,Loft,$100.00
03/03/2025,Reservation,OK1,03/03/2025,2,,Loft,$100.00
`

	result, err := p.Parse(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 2, result.SkippedRows)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "OK1", result.Transactions[0].ConfirmationCode)
}

func TestParse_BlankPaddingRowsIgnored(t *testing.T) {
	p := NewParser()
	csv := `Date,Type,Confirmation code,Start date,Nights,Guest,Listing,Amount
03/03/2025,Reservation,OK1,03/03/2025,2,,Loft,$100.00
,,,,,,,
`

	result, err := p.Parse(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 0, result.SkippedRows)
	assert.Len(t, result.Transactions, 1)
}

func TestParse_RejectsNonAirbnbHeader(t *testing.T) {
	p := NewParser()
	csv := `Foo,Bar
1,2
`

	_, err := p.Parse(strings.NewReader(csv))
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	assert.Equal(t, 1234.56, parseAmount("$1,234.56"))
	assert.Equal(t, -50.0, parseAmount("-$50.00"))
	assert.Equal(t, 0.0, parseAmount(""))
	assert.Equal(t, 0.0, parseAmount("n/a"))
}
