package models

import "time"

// Property is the aggregate root: one rental unit plus whatever data
// sources have been uploaded or mapped for it. Metrics and completeness
// are always recomputed together with any source change; the aggregate is
// never persisted half-updated.
type Property struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	StandardName    string           `json:"standard_name,omitempty"` // display name
	AirbnbURL       string           `json:"airbnb_url,omitempty"`
	AirbnbListingID string           `json:"airbnb_listing_id,omitempty"`
	DataSources     DataSources      `json:"data_sources"`
	Metrics         *PropertyMetrics `json:"metrics,omitempty"`

	// DataCompleteness is a 0-100 score over the possible data sources.
	DataCompleteness int `json:"data_completeness"`

	// Version increments on every save. A stale save is detected, not
	// silently last-write-wins; writers are still expected to serialize
	// per property.
	Version int `json:"version"`

	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// Completeness weights. CSV and PDF carry the most weight because they are
// earnings data; the CSV is effectively a superset of the PDF totals.
const (
	CompletenessPdf     = 30
	CompletenessCsv     = 30
	CompletenessURL     = 20
	CompletenessScraped = 20
)

// ComputeCompleteness scores how much of the possible data is present.
func (p *Property) ComputeCompleteness() int {
	score := 0
	if p.DataSources.Pdf != nil {
		score += CompletenessPdf
	}
	if p.DataSources.Csv != nil {
		score += CompletenessCsv
	}
	if p.AirbnbURL != "" {
		score += CompletenessURL
	}
	if p.DataSources.Scraped != nil {
		score += CompletenessScraped
	}
	if score > 100 {
		score = 100
	}
	return score
}
