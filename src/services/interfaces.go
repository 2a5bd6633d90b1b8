package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/username/hostfolio/backend/src/models"
)

// Service-level sentinel errors. Handlers branch on these to pick a status
// code; anything else is a 500.
var (
	ErrValidation    = errors.New("invalid input")
	ErrParsingFailed = errors.New("failed to parse transaction export")
)

// CSVImportAssignment records which property one listing's rows were
// attributed to during a multi-property import.
type CSVImportAssignment struct {
	PropertyID       string           `json:"property_id"`
	PropertyName     string           `json:"property_name"`
	Listings         []string         `json:"listings"`
	TransactionCount int              `json:"transaction_count"`
	Anomalies        []models.Anomaly `json:"anomalies,omitempty"`
}

// CSVImportResult summarizes a whole-export import: which properties got
// rows, which listing names could not be matched to any property, and how
// many malformed rows were dropped.
type CSVImportResult struct {
	Assignments       []CSVImportAssignment `json:"assignments"`
	UnmatchedListings []string              `json:"unmatched_listings,omitempty"`
	SkippedRows       int                   `json:"skipped_rows"`
	TotalTransactions int                   `json:"total_transactions"`
}

// PeriodMetrics is a metrics view scoped to a resolved window, plus the
// anomalies found while computing it.
type PeriodMetrics struct {
	Period    models.Period          `json:"period"`
	Window    *models.Window         `json:"window,omitempty"`
	Metrics   models.PropertyMetrics `json:"metrics"`
	Anomalies []models.Anomaly       `json:"anomalies,omitempty"`
}

// BookingBreakdown pairs the deduplicated bookings of a property with the
// raw-versus-unique statistics of the run.
type BookingBreakdown struct {
	Bookings []models.UniqueBooking `json:"bookings"`
	Stats    models.DedupStats      `json:"stats"`
}

// PropertyService owns the property lifecycle: CRUD, source ingestion and
// the reconciliation reads. Every mutation recomputes metrics and
// completeness before saving, so a stored aggregate is never half-updated.
type PropertyService interface {
	CreateProperty(ctx context.Context, name string) (*models.Property, error)
	GetProperty(ctx context.Context, id string) (*models.Property, error)
	ListProperties(ctx context.Context) ([]*models.Property, error)
	DeleteProperty(ctx context.Context, id string) error

	// UpdateURL stores the listing URL and extracts the listing ID when the
	// URL carries one.
	UpdateURL(ctx context.Context, id, rawURL string) (*models.Property, error)

	// UpdateDataSource replaces one data source wholesale from a JSON
	// payload (pdf or scraped). Merging partial payloads is not supported.
	UpdateDataSource(ctx context.Context, id string, sourceType models.SourceType, payload json.RawMessage) (*models.Property, []models.Anomaly, error)

	// ImportCSVForProperty parses a transaction export and attaches it to
	// one property, replacing any previous CSV source.
	ImportCSVForProperty(ctx context.Context, id string, file io.Reader, fileName string) (*models.Property, []models.Anomaly, error)

	// ImportCSVUpload parses a transaction export that may span several
	// listings and routes each listing's rows to the matching property.
	ImportCSVUpload(ctx context.Context, file io.Reader, fileName string) (*CSVImportResult, error)

	// MetricsForPeriod returns metrics recomputed over the named period's
	// window. allTime, and properties without per-row transactions, answer
	// from the stored all-time metrics.
	MetricsForPeriod(ctx context.Context, id string, period models.Period) (*PeriodMetrics, error)

	// Bookings returns the deduplicated booking list of a property.
	Bookings(ctx context.Context, id string) (*BookingBreakdown, error)
}
