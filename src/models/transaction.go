package models

import "time"

// Transaction represents a single ledger line item from a transaction-history
// export. Several lines may share one confirmation code (guest payout,
// co-host payout, resolution adjustments), which is why the raw list is
// never used directly for revenue figures.
type Transaction struct {
	ConfirmationCode string    `json:"confirmation_code,omitempty"`
	Type             string    `json:"type,omitempty"` // e.g. "Reservation", "Payout", "Co-Host payout"
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	Nights           int       `json:"nights"`
	Amount           float64   `json:"amount"` // signed; negative lines are adjustments/refunds
	GrossEarnings    float64   `json:"gross_earnings,omitempty"`
	Listing          string    `json:"listing,omitempty"`
	Guest            string    `json:"guest,omitempty"`
	Currency         string    `json:"currency,omitempty"`
}

// UniqueBooking is the canonical representation of one stay, derived from
// all transaction lines sharing a confirmation code.
type UniqueBooking struct {
	ConfirmationCode string        `json:"confirmation_code"`
	StartDate        time.Time     `json:"start_date"`
	EndDate          time.Time     `json:"end_date"`
	Nights           int           `json:"nights"`
	Revenue          float64       `json:"revenue"`     // total of all positive-amount lines (gross)
	MainAmount       float64       `json:"main_amount"` // largest single line amount
	TransactionCount int           `json:"transaction_count"`
	Guest            string        `json:"guest,omitempty"`
	Listing          string        `json:"listing,omitempty"`
	Transactions     []Transaction `json:"transactions,omitempty"` // source lines, input order
}

// ParsedExport is the result of parsing one transaction-history file. The
// export may cover several listings; Listings carries the distinct names in
// first-seen order so an upload can be split per property.
type ParsedExport struct {
	Transactions []Transaction `json:"transactions"`
	DateRange    DateRange     `json:"date_range"`
	Listings     []string      `json:"listings"`
	SkippedRows  int           `json:"skipped_rows"` // malformed rows dropped from the batch, already logged
}

// DedupStats summarizes a deduplication run. TotalNights intentionally
// includes duplicate lines so callers can display the raw/unique ratio.
type DedupStats struct {
	TotalTransactions  int     `json:"total_transactions"`
	UniqueBookingCount int     `json:"unique_booking_count"`
	TotalNights        int     `json:"total_nights"`
	UniqueNights       int     `json:"unique_nights"`
	TotalRevenue       float64 `json:"total_revenue"`
}
