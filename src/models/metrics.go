package models

import "time"

// MetricSource tags where a metric value came from.
type MetricSource string

const (
	MetricFromPdf        MetricSource = "pdf"
	MetricFromCsv        MetricSource = "csv"
	MetricFromScraped    MetricSource = "scraped"
	MetricFromCalculated MetricSource = "calculated"
)

// MetricWithSource is the envelope every computed metric travels in.
// Callers never receive a bare number; the source and confidence let them
// judge how much to trust the figure.
type MetricWithSource struct {
	Value       float64      `json:"value"`
	Source      MetricSource `json:"source"`
	Confidence  int          `json:"confidence"` // 0-100
	LastUpdated time.Time    `json:"last_updated"`
}

// ZeroMetric is the "no data" metric: value 0, confidence 0.
func ZeroMetric(now time.Time) MetricWithSource {
	return MetricWithSource{Value: 0, Source: MetricFromCalculated, Confidence: 0, LastUpdated: now}
}

// Present reports whether the metric carries actual data.
func (m MetricWithSource) Present() bool {
	return m.Value > 0
}

// PropertyMetrics is the reconciled performance picture of one property.
type PropertyMetrics struct {
	Revenue      MetricWithSource `json:"revenue"`
	Occupancy    MetricWithSource `json:"occupancy"`
	Pricing      MetricWithSource `json:"pricing"`
	Satisfaction MetricWithSource `json:"satisfaction"`
	Health       int              `json:"health"` // 0-100
}

// AnomalySeverity grades a non-fatal data-quality finding.
type AnomalySeverity string

const (
	AnomalyWarning AnomalySeverity = "warning"
	AnomalyInfo    AnomalySeverity = "info"
)

// Anomaly is a non-fatal finding reported alongside a computed result,
// never thrown. Implausible values are flagged, not clamped: silently
// capping would hide real data-entry problems from the caller.
type Anomaly struct {
	Severity AnomalySeverity `json:"severity"`
	Metric   string          `json:"metric"`
	Message  string          `json:"message"`
	Value    float64         `json:"value,omitempty"`
}

// Period names a logical reporting window.
type Period string

const (
	PeriodLast12Months Period = "last12months"
	PeriodYearToDate   Period = "yearToDate"
	PeriodAllTime      Period = "allTime"
)

// ValidPeriod reports whether p names a known period.
func ValidPeriod(p string) bool {
	switch Period(p) {
	case PeriodLast12Months, PeriodYearToDate, PeriodAllTime:
		return true
	}
	return false
}

// Window is a concrete [start, end] date range resolved from a Period.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days returns the inclusive day count of the window, or 0 when degenerate.
func (w Window) Days() int {
	if w.End.Before(w.Start) {
		return 0
	}
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}
