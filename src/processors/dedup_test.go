package processors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/hostfolio/backend/src/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDeduplicate_ResolutionAdjustmentExcludedFromRevenue(t *testing.T) {
	dedup := NewTransactionDeduplicator()

	transactions := []models.Transaction{
		{ConfirmationCode: "ABC123", StartDate: day(2025, 3, 1), EndDate: day(2025, 3, 5), Nights: 4, Amount: 500},
		{ConfirmationCode: "ABC123", StartDate: day(2025, 3, 1), EndDate: day(2025, 3, 5), Nights: 4, Amount: -50},
	}

	bookings, stats := dedup.Deduplicate(transactions)

	require.Len(t, bookings, 1)
	assert.Equal(t, "ABC123", bookings[0].ConfirmationCode)
	assert.Equal(t, 500.0, bookings[0].Revenue)
	assert.Equal(t, 4, bookings[0].Nights)
	assert.Equal(t, 2, bookings[0].TransactionCount)

	assert.Equal(t, 2, stats.TotalTransactions)
	assert.Equal(t, 1, stats.UniqueBookingCount)
	assert.Equal(t, 4, stats.UniqueNights)
	assert.Equal(t, 8, stats.TotalNights)
	assert.Equal(t, 500.0, stats.TotalRevenue)
}

func TestDeduplicate_RefundOnlyAndZeroNightGroupsExcluded(t *testing.T) {
	dedup := NewTransactionDeduplicator()

	transactions := []models.Transaction{
		// Refund with no positive sibling.
		{ConfirmationCode: "REF1", StartDate: day(2025, 1, 10), EndDate: day(2025, 1, 12), Nights: 2, Amount: -120},
		// Payout line with zero nights (service fee style row).
		{ConfirmationCode: "FEE1", StartDate: day(2025, 1, 15), EndDate: day(2025, 1, 15), Nights: 0, Amount: 35},
		// A real booking so the list is not empty.
		{ConfirmationCode: "OK1", StartDate: day(2025, 2, 1), EndDate: day(2025, 2, 4), Nights: 3, Amount: 300},
	}

	bookings, stats := dedup.Deduplicate(transactions)

	require.Len(t, bookings, 1)
	assert.Equal(t, "OK1", bookings[0].ConfirmationCode)
	assert.Equal(t, 3, stats.TotalTransactions)
	assert.Equal(t, 1, stats.UniqueBookingCount)
}

func TestDeduplicate_GrossEarningsPreferredOverAmount(t *testing.T) {
	dedup := NewTransactionDeduplicator()

	transactions := []models.Transaction{
		{ConfirmationCode: "GR1", StartDate: day(2025, 4, 1), EndDate: day(2025, 4, 3), Nights: 2, Amount: 180, GrossEarnings: 210},
	}

	bookings, _ := dedup.Deduplicate(transactions)

	require.Len(t, bookings, 1)
	assert.Equal(t, 210.0, bookings[0].Revenue)
	assert.Equal(t, 180.0, bookings[0].MainAmount)
}

func TestDeduplicate_LargestAmountLineIsRepresentative(t *testing.T) {
	dedup := NewTransactionDeduplicator()

	transactions := []models.Transaction{
		{ConfirmationCode: "CO1", Type: "Co-Host payout", StartDate: day(2025, 5, 1), EndDate: day(2025, 5, 6), Nights: 5, Amount: 90, Guest: "Ana"},
		{ConfirmationCode: "CO1", Type: "Reservation", StartDate: day(2025, 5, 1), EndDate: day(2025, 5, 6), Nights: 5, Amount: 610, Guest: "Ana"},
	}

	bookings, _ := dedup.Deduplicate(transactions)

	require.Len(t, bookings, 1)
	assert.Equal(t, 610.0, bookings[0].MainAmount)
	assert.Equal(t, 700.0, bookings[0].Revenue) // both positive lines count
	assert.Equal(t, 5, bookings[0].Nights)
}

func TestDeduplicate_UncodedLinesKeyedByDatePair(t *testing.T) {
	dedup := NewTransactionDeduplicator()

	transactions := []models.Transaction{
		{StartDate: day(2025, 6, 1), EndDate: day(2025, 6, 3), Nights: 2, Amount: 200},
		{StartDate: day(2025, 6, 10), EndDate: day(2025, 6, 12), Nights: 2, Amount: 250},
		// Same dates as the first: collapses into it.
		{StartDate: day(2025, 6, 1), EndDate: day(2025, 6, 3), Nights: 2, Amount: 40},
	}

	bookings, stats := dedup.Deduplicate(transactions)

	require.Len(t, bookings, 2)
	assert.Equal(t, "no-code-2025-06-01-2025-06-03", bookings[0].ConfirmationCode)
	assert.Equal(t, 240.0, bookings[0].Revenue)
	assert.Equal(t, "no-code-2025-06-10-2025-06-12", bookings[1].ConfirmationCode)
	assert.Equal(t, 2, stats.UniqueBookingCount)
}

func TestDeduplicate_Invariants(t *testing.T) {
	dedup := NewTransactionDeduplicator()

	transactions := []models.Transaction{
		{ConfirmationCode: "A", StartDate: day(2025, 1, 1), EndDate: day(2025, 1, 4), Nights: 3, Amount: 300},
		{ConfirmationCode: "A", StartDate: day(2025, 1, 1), EndDate: day(2025, 1, 4), Nights: 3, Amount: 45},
		{ConfirmationCode: "B", StartDate: day(2025, 2, 1), EndDate: day(2025, 2, 3), Nights: 2, Amount: 220},
		{ConfirmationCode: "C", StartDate: day(2025, 3, 1), EndDate: day(2025, 3, 2), Nights: 1, Amount: -80},
	}

	bookings, stats := dedup.Deduplicate(transactions)

	// Unique nights never exceed raw nights.
	assert.LessOrEqual(t, stats.UniqueNights, stats.TotalNights)
	assert.Equal(t, len(bookings), stats.UniqueBookingCount)

	// Stats revenue equals the sum over emitted bookings.
	var sum float64
	for _, b := range bookings {
		sum += b.Revenue
	}
	assert.Equal(t, sum, stats.TotalRevenue)

	// Deterministic: a second run over the same input agrees.
	again, statsAgain := dedup.Deduplicate(transactions)
	assert.Equal(t, bookings, again)
	assert.Equal(t, stats, statsAgain)
}

func TestDeduplicate_Idempotence(t *testing.T) {
	dedup := NewTransactionDeduplicator()

	transactions := []models.Transaction{
		{ConfirmationCode: "A", StartDate: day(2025, 1, 1), EndDate: day(2025, 1, 4), Nights: 3, Amount: 300},
		{ConfirmationCode: "A", StartDate: day(2025, 1, 1), EndDate: day(2025, 1, 4), Nights: 3, Amount: 45},
		{ConfirmationCode: "B", StartDate: day(2025, 2, 1), EndDate: day(2025, 2, 3), Nights: 2, Amount: 220},
	}

	bookings, stats := dedup.Deduplicate(transactions)

	// Reinterpret the unique set as a transaction list and run again: an
	// already-deduplicated input must pass through unchanged.
	var asTransactions []models.Transaction
	for _, b := range bookings {
		asTransactions = append(asTransactions, models.Transaction{
			ConfirmationCode: b.ConfirmationCode,
			StartDate:        b.StartDate,
			EndDate:          b.EndDate,
			Nights:           b.Nights,
			Amount:           b.Revenue,
		})
	}

	again, statsAgain := dedup.Deduplicate(asTransactions)

	require.Len(t, again, len(bookings))
	assert.Equal(t, stats.UniqueBookingCount, statsAgain.UniqueBookingCount)
	assert.Equal(t, stats.UniqueNights, statsAgain.UniqueNights)
	assert.Equal(t, stats.TotalRevenue, statsAgain.TotalRevenue)
}

func TestDeduplicate_EmptyInput(t *testing.T) {
	dedup := NewTransactionDeduplicator()

	bookings, stats := dedup.Deduplicate(nil)

	assert.Empty(t, bookings)
	assert.Equal(t, models.DedupStats{}, stats)
}
