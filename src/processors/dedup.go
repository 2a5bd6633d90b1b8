package processors

import (
	"fmt"
	"sort"

	"github.com/username/hostfolio/backend/src/models"
)

// TransactionDeduplicator collapses raw transaction line items into
// canonical unique bookings. Exports list every payout, adjustment and
// resolution line separately, so the same confirmation code shows up two or
// three times; summing the raw lines would overstate both revenue and
// nights.
type TransactionDeduplicator struct{}

func NewTransactionDeduplicator() *TransactionDeduplicator { return &TransactionDeduplicator{} }

// Deduplicate groups transactions by confirmation code and emits one
// UniqueBooking per group. Lines without a code are keyed by their date
// pair so two genuinely distinct uncoded bookings never collide.
//
// Within a group the line with the largest amount is the representative
// (the guest payout, as opposed to a smaller co-host or resolution line).
// A booking is emitted only when the representative has amount > 0 and
// nights > 0; refund-only or zero-night groups stay visible in the stats
// but never enter the unique set.
//
// Pure function: no I/O, deterministic given input order (stable sort).
func (d *TransactionDeduplicator) Deduplicate(transactions []models.Transaction) ([]models.UniqueBooking, models.DedupStats) {
	groups := make(map[string][]models.Transaction)
	var order []string

	for _, tx := range transactions {
		key := tx.ConfirmationCode
		if key == "" {
			key = fmt.Sprintf("%s|%s", tx.StartDate.Format("2006-01-02"), tx.EndDate.Format("2006-01-02"))
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], tx)
	}

	stats := models.DedupStats{TotalTransactions: len(transactions)}
	var bookings []models.UniqueBooking

	for _, key := range order {
		group := groups[key]

		// All nights, duplicates included, for the raw/unique ratio display.
		for _, tx := range group {
			stats.TotalNights += tx.Nights
		}

		sorted := make([]models.Transaction, len(group))
		copy(sorted, group)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Amount > sorted[j].Amount
		})
		main := sorted[0]

		if main.Amount <= 0 || main.Nights <= 0 {
			continue
		}

		// Gross booking value: positive lines only. Negative lines (refunds,
		// resolution adjustments) reduce nothing here; they remain visible in
		// stats.TotalTransactions.
		var revenue float64
		for _, tx := range group {
			if tx.Amount > 0 {
				if tx.GrossEarnings > 0 {
					revenue += tx.GrossEarnings
				} else {
					revenue += tx.Amount
				}
			}
		}

		code := main.ConfirmationCode
		if code == "" {
			code = fmt.Sprintf("no-code-%s-%s", main.StartDate.Format("2006-01-02"), main.EndDate.Format("2006-01-02"))
		}

		bookings = append(bookings, models.UniqueBooking{
			ConfirmationCode: code,
			StartDate:        main.StartDate,
			EndDate:          main.EndDate,
			Nights:           main.Nights,
			Revenue:          revenue,
			MainAmount:       main.Amount,
			TransactionCount: len(group),
			Guest:            main.Guest,
			Listing:          main.Listing,
			Transactions:     group,
		})

		stats.UniqueNights += main.Nights
		stats.TotalRevenue += revenue
	}

	stats.UniqueBookingCount = len(bookings)
	return bookings, stats
}
