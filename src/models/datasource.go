package models

import "time"

// SourceType identifies one of the three ingestible data sources.
type SourceType string

const (
	SourcePdf     SourceType = "pdf"
	SourceCsv     SourceType = "csv"
	SourceScraped SourceType = "scraped"
)

// ValidSourceType reports whether s names a known data source.
func ValidSourceType(s string) bool {
	switch SourceType(s) {
	case SourcePdf, SourceCsv, SourceScraped:
		return true
	}
	return false
}

// DateRange is an inclusive [start, end] span.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days returns the inclusive day count of the range, or 0 when degenerate.
func (r DateRange) Days() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// PdfReport is the structured result of an earnings-report upload.
// PDF text extraction happens upstream; only the parsed record arrives here.
type PdfReport struct {
	Period             string     `json:"period"`
	TotalGrossEarnings float64    `json:"total_gross_earnings,omitempty"`
	TotalServiceFees   float64    `json:"total_service_fees,omitempty"`
	TotalAdjustments   float64    `json:"total_adjustments,omitempty"`
	TotalNetEarnings   float64    `json:"total_net_earnings"`
	TotalNightsBooked  int        `json:"total_nights_booked"`
	DateRange          *DateRange `json:"date_range,omitempty"`
	FileName           string     `json:"file_name,omitempty"`
	UploadedAt         time.Time  `json:"uploaded_at"`
}

// CsvExport holds the raw transaction lines of a transaction-history export
// scoped to a single property. TotalNights/TotalRevenue are upload-summary
// aggregates; they matter only when the per-row transactions were not
// retained, in which case occupancy falls back to an estimated unique-night
// ratio.
type CsvExport struct {
	Transactions []Transaction `json:"transactions"`
	DateRange    DateRange     `json:"date_range"`
	RecordCount  int           `json:"record_count"`
	TotalNights  int           `json:"total_nights,omitempty"`
	TotalRevenue float64       `json:"total_revenue,omitempty"`
	FileName     string        `json:"file_name,omitempty"`
	UploadedAt   time.Time     `json:"uploaded_at"`
}

// ScrapedSnapshot is a structured live-listing snapshot. Scraping happens
// upstream; only the extracted fields arrive here.
type ScrapedSnapshot struct {
	NightlyPrice float64   `json:"nightly_price"`
	ReviewScore  float64   `json:"review_score"` // 0-5 overall rating
	ReviewCount  int       `json:"review_count"`
	ScrapedAt    time.Time `json:"scraped_at"`
}

// DataSources is the closed set of sources a property can own, at most one
// of each. Adding a fourth source type means touching this struct and every
// switch over SourceType, which is the point.
type DataSources struct {
	Pdf     *PdfReport       `json:"pdf,omitempty"`
	Csv     *CsvExport       `json:"csv,omitempty"`
	Scraped *ScrapedSnapshot `json:"scraped,omitempty"`
}
