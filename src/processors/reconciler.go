package processors

import (
	"fmt"
	"math"
	"time"

	"github.com/username/hostfolio/backend/src/models"
)

const (
	// fallbackUniqueNightsRatio estimates unique nights from raw aggregate
	// nights when per-row transactions are unavailable. Empirically fitted
	// to one historical dataset (2203 unique of 3421 raw nights); its
	// general validity is unverified, so every use is flagged as an anomaly.
	fallbackUniqueNightsRatio = 0.644

	// Plausibility band for an average nightly rate. Values outside it are
	// reported as warnings but returned uncapped.
	minPlausibleNightlyRate = 30.0
	maxPlausibleNightlyRate = 1000.0
)

// MetricsReconciler merges revenue, occupancy, pricing and satisfaction
// across whatever sources a property has into a single PropertyMetrics,
// each metric tagged with its provenance and a confidence level. The three
// sources disagree and overlap; per metric the highest-confidence source
// that can answer wins.
//
// Reconciliation is total and side-effect-free: the same sources and window
// always produce the same output. There is no incremental update path.
type MetricsReconciler struct {
	dedup *TransactionDeduplicator
}

func NewMetricsReconciler(dedup *TransactionDeduplicator) *MetricsReconciler {
	return &MetricsReconciler{dedup: dedup}
}

// Reconcile computes the all-time metrics for the given sources.
// Anomalies are reported alongside the result, never as errors; division by
// zero and missing sources degrade to value 0, confidence 0.
func (r *MetricsReconciler) Reconcile(src models.DataSources, now time.Time) (models.PropertyMetrics, []models.Anomaly) {
	metrics := models.PropertyMetrics{
		Revenue:      models.ZeroMetric(now),
		Occupancy:    models.ZeroMetric(now),
		Pricing:      models.ZeroMetric(now),
		Satisfaction: models.ZeroMetric(now),
	}
	var anomalies []models.Anomaly

	var bookings []models.UniqueBooking
	var stats models.DedupStats
	if src.Csv != nil {
		bookings, stats = r.dedup.Deduplicate(src.Csv.Transactions)
	}

	// Revenue: CSV unique-booking sum beats the PDF net-earnings total,
	// which is a lower-granularity restatement of the same money.
	switch {
	case src.Csv != nil && len(src.Csv.Transactions) > 0:
		metrics.Revenue = models.MetricWithSource{
			Value:       stats.TotalRevenue,
			Source:      models.MetricFromCsv,
			Confidence:  95,
			LastUpdated: src.Csv.UploadedAt,
		}
	case src.Csv != nil && src.Csv.TotalRevenue > 0:
		metrics.Revenue = models.MetricWithSource{
			Value:       src.Csv.TotalRevenue,
			Source:      models.MetricFromCsv,
			Confidence:  90,
			LastUpdated: src.Csv.UploadedAt,
		}
	case src.Pdf != nil:
		metrics.Revenue = models.MetricWithSource{
			Value:       src.Pdf.TotalNetEarnings,
			Source:      models.MetricFromPdf,
			Confidence:  80,
			LastUpdated: src.Pdf.UploadedAt,
		}
	}

	metrics.Occupancy, anomalies = r.reconcileOccupancy(src, stats, now, anomalies)

	// Pricing: explicit per-booking rates first, then a derivation from the
	// reconciled revenue and occupancy-implied nights.
	if rate, ok := averageNightlyRate(bookings); ok {
		metrics.Pricing = models.MetricWithSource{
			Value:       rate,
			Source:      models.MetricFromCsv,
			Confidence:  90,
			LastUpdated: src.Csv.UploadedAt,
		}
	} else if metrics.Revenue.Present() && metrics.Occupancy.Present() {
		impliedNights := (metrics.Occupancy.Value / 100) * 365
		if impliedNights > 0 {
			metrics.Pricing = models.MetricWithSource{
				Value:       metrics.Revenue.Value / impliedNights,
				Source:      models.MetricFromCalculated,
				Confidence:  60,
				LastUpdated: now,
			}
		}
	}
	anomalies = appendPricingAnomalies(anomalies, metrics.Pricing, src.Scraped)

	// Satisfaction exists only when a listing snapshot was scraped; there is
	// no estimate to fall back on.
	if src.Scraped != nil && src.Scraped.ReviewScore > 0 {
		metrics.Satisfaction = models.MetricWithSource{
			Value:       (src.Scraped.ReviewScore / 5) * 100,
			Source:      models.MetricFromScraped,
			Confidence:  100,
			LastUpdated: src.Scraped.ScrapedAt,
		}
	}

	metrics.Health = healthScore(metrics)
	return metrics, anomalies
}

func (r *MetricsReconciler) reconcileOccupancy(src models.DataSources, stats models.DedupStats, now time.Time, anomalies []models.Anomaly) (models.MetricWithSource, []models.Anomaly) {
	if src.Csv != nil && len(src.Csv.Transactions) > 0 {
		days := src.Csv.DateRange.Days()
		if days == 0 {
			days = 365
		}
		return models.MetricWithSource{
			Value:       clampPercent(float64(stats.UniqueNights) / float64(days) * 100),
			Source:      models.MetricFromCsv,
			Confidence:  95,
			LastUpdated: src.Csv.UploadedAt,
		}, anomalies
	}

	if src.Csv != nil && src.Csv.TotalNights > 0 {
		// Aggregate nights include duplicate confirmation codes; estimate the
		// unique share and say so.
		estimated := float64(src.Csv.TotalNights) * fallbackUniqueNightsRatio
		days := src.Csv.DateRange.Days()
		if days == 0 {
			days = 365
		}
		anomalies = append(anomalies, models.Anomaly{
			Severity: models.AnomalyInfo,
			Metric:   "occupancy",
			Message:  fmt.Sprintf("occupancy estimated from aggregate nights using the %.1f%% unique-nights ratio; per-row transactions unavailable", fallbackUniqueNightsRatio*100),
			Value:    estimated,
		})
		return models.MetricWithSource{
			Value:       clampPercent(estimated / float64(days) * 100),
			Source:      models.MetricFromCsv,
			Confidence:  85,
			LastUpdated: src.Csv.UploadedAt,
		}, anomalies
	}

	if src.Pdf != nil && src.Pdf.TotalNightsBooked > 0 {
		return models.MetricWithSource{
			Value:       clampPercent(float64(src.Pdf.TotalNightsBooked) / 365 * 100),
			Source:      models.MetricFromPdf,
			Confidence:  60,
			LastUpdated: src.Pdf.UploadedAt,
		}, anomalies
	}

	return models.ZeroMetric(now), anomalies
}

// ReconcileForWindow computes the period variant over already-filtered,
// already-deduplicated bookings. Satisfaction is not period-decomposable,
// so the stored all-time satisfaction is carried through. If the window
// itself is empty, every metric is zero.
func (r *MetricsReconciler) ReconcileForWindow(bookings []models.UniqueBooking, window models.Window, satisfaction models.MetricWithSource, now time.Time) (models.PropertyMetrics, []models.Anomaly) {
	metrics := models.PropertyMetrics{
		Revenue:      models.ZeroMetric(now),
		Occupancy:    models.ZeroMetric(now),
		Pricing:      models.ZeroMetric(now),
		Satisfaction: models.ZeroMetric(now),
	}
	var anomalies []models.Anomaly

	days := window.Days()
	if days == 0 || len(bookings) == 0 {
		return metrics, nil
	}

	var totalRevenue float64
	var uniqueNights int
	for _, b := range bookings {
		totalRevenue += b.Revenue
		uniqueNights += b.Nights
	}

	metrics.Revenue = models.MetricWithSource{
		Value:       totalRevenue,
		Source:      models.MetricFromCsv,
		Confidence:  90,
		LastUpdated: now,
	}
	metrics.Occupancy = models.MetricWithSource{
		Value:       clampPercent(float64(uniqueNights) / float64(days) * 100),
		Source:      models.MetricFromCsv,
		Confidence:  85,
		LastUpdated: now,
	}
	if rate, ok := averageNightlyRate(bookings); ok {
		metrics.Pricing = models.MetricWithSource{
			Value:       rate,
			Source:      models.MetricFromCsv,
			Confidence:  90,
			LastUpdated: now,
		}
	}
	anomalies = appendPricingAnomalies(anomalies, metrics.Pricing, nil)

	metrics.Satisfaction = satisfaction

	metrics.Health = healthScore(metrics)
	return metrics, anomalies
}

// averageNightlyRate is the mean of each booking's own revenue/nights.
func averageNightlyRate(bookings []models.UniqueBooking) (float64, bool) {
	var sum float64
	var count int
	for _, b := range bookings {
		if b.Nights > 0 && b.Revenue > 0 {
			sum += b.Revenue / float64(b.Nights)
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

func appendPricingAnomalies(anomalies []models.Anomaly, pricing models.MetricWithSource, scraped *models.ScrapedSnapshot) []models.Anomaly {
	if pricing.Present() {
		if pricing.Value > maxPlausibleNightlyRate {
			anomalies = append(anomalies, models.Anomaly{
				Severity: models.AnomalyWarning,
				Metric:   "pricing",
				Message:  fmt.Sprintf("average nightly rate $%.2f exceeds $%.0f; value returned uncapped", pricing.Value, maxPlausibleNightlyRate),
				Value:    pricing.Value,
			})
		} else if pricing.Value < minPlausibleNightlyRate {
			anomalies = append(anomalies, models.Anomaly{
				Severity: models.AnomalyWarning,
				Metric:   "pricing",
				Message:  fmt.Sprintf("average nightly rate $%.2f is below $%.0f; value returned uncapped", pricing.Value, minPlausibleNightlyRate),
				Value:    pricing.Value,
			})
		}
	}

	// A live listing price far from the earned rate usually means a mapping
	// mistake rather than a pricing change.
	if scraped != nil && scraped.NightlyPrice > 0 && pricing.Present() {
		ratio := pricing.Value / scraped.NightlyPrice
		if ratio > 1.5 || ratio < 0.5 {
			anomalies = append(anomalies, models.Anomaly{
				Severity: models.AnomalyWarning,
				Metric:   "pricing",
				Message:  fmt.Sprintf("computed rate $%.2f diverges from scraped listing price $%.2f", pricing.Value, scraped.NightlyPrice),
				Value:    pricing.Value,
			})
		}
	}
	return anomalies
}

// healthScore averages whichever metrics are present: revenue contributes
// its confidence, occupancy and satisfaction contribute their values.
// An unknown metric is excluded, not penalized.
func healthScore(m models.PropertyMetrics) int {
	var factors []float64
	if m.Revenue.Present() {
		factors = append(factors, float64(m.Revenue.Confidence))
	}
	if m.Occupancy.Present() {
		factors = append(factors, m.Occupancy.Value)
	}
	if m.Satisfaction.Present() {
		factors = append(factors, m.Satisfaction.Value)
	}
	if len(factors) == 0 {
		return 0
	}
	var sum float64
	for _, f := range factors {
		sum += f
	}
	return int(math.Round(sum / float64(len(factors))))
}

func clampPercent(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}
