package processors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/hostfolio/backend/src/models"
)

func newReconciler() *MetricsReconciler {
	return NewMetricsReconciler(NewTransactionDeduplicator())
}

func TestReconcile_EmptySourcesProduceZeroMetrics(t *testing.T) {
	r := newReconciler()
	now := time.Now()

	metrics, anomalies := r.Reconcile(models.DataSources{}, now)

	for name, m := range map[string]models.MetricWithSource{
		"revenue":      metrics.Revenue,
		"occupancy":    metrics.Occupancy,
		"pricing":      metrics.Pricing,
		"satisfaction": metrics.Satisfaction,
	} {
		assert.Equal(t, 0.0, m.Value, name)
		assert.Equal(t, 0, m.Confidence, name)
	}
	assert.Equal(t, 0, metrics.Health)
	assert.Empty(t, anomalies)
}

func TestReconcile_PdfOnly(t *testing.T) {
	r := newReconciler()
	uploaded := day(2025, 2, 1)
	src := models.DataSources{
		Pdf: &models.PdfReport{
			TotalNetEarnings:  36500,
			TotalNightsBooked: 180,
			UploadedAt:        uploaded,
		},
	}

	metrics, _ := r.Reconcile(src, time.Now())

	assert.Equal(t, 36500.0, metrics.Revenue.Value)
	assert.Equal(t, models.MetricFromPdf, metrics.Revenue.Source)
	assert.Equal(t, 80, metrics.Revenue.Confidence)

	assert.InDelta(t, 49.3, metrics.Occupancy.Value, 0.05)
	assert.Equal(t, models.MetricFromPdf, metrics.Occupancy.Source)
	assert.Equal(t, 60, metrics.Occupancy.Confidence)

	assert.Equal(t, 0.0, metrics.Satisfaction.Value)
	assert.Equal(t, 0, metrics.Satisfaction.Confidence)

	// Health averages only revenue confidence and occupancy value.
	assert.Equal(t, 65, metrics.Health)
}

func TestReconcile_CsvRowsBeatPdf(t *testing.T) {
	r := newReconciler()
	uploaded := day(2025, 6, 1)
	src := models.DataSources{
		Pdf: &models.PdfReport{TotalNetEarnings: 9999, TotalNightsBooked: 100, UploadedAt: uploaded},
		Csv: &models.CsvExport{
			Transactions: []models.Transaction{
				{ConfirmationCode: "A", StartDate: day(2025, 1, 1), EndDate: day(2025, 1, 11), Nights: 10, Amount: 1500},
				{ConfirmationCode: "B", StartDate: day(2025, 2, 1), EndDate: day(2025, 2, 11), Nights: 10, Amount: 1700},
			},
			DateRange:  models.DateRange{Start: day(2025, 1, 1), End: day(2025, 2, 19)}, // 50 days
			UploadedAt: uploaded,
		},
	}

	metrics, _ := r.Reconcile(src, time.Now())

	assert.Equal(t, 3200.0, metrics.Revenue.Value)
	assert.Equal(t, models.MetricFromCsv, metrics.Revenue.Source)
	assert.Equal(t, 95, metrics.Revenue.Confidence)

	// 20 unique nights over a 50-day range.
	assert.Equal(t, 40.0, metrics.Occupancy.Value)
	assert.Equal(t, 95, metrics.Occupancy.Confidence)

	// Mean of per-booking rates: (150 + 170) / 2.
	assert.Equal(t, 160.0, metrics.Pricing.Value)
	assert.Equal(t, 90, metrics.Pricing.Confidence)
}

func TestReconcile_CsvAggregateFallbackUsesUniqueNightsRatio(t *testing.T) {
	r := newReconciler()
	src := models.DataSources{
		Csv: &models.CsvExport{
			TotalNights:  100,
			TotalRevenue: 12000,
			DateRange:    models.DateRange{Start: day(2025, 1, 1), End: day(2025, 12, 31)},
			UploadedAt:   day(2026, 1, 2),
		},
	}

	metrics, anomalies := r.Reconcile(src, time.Now())

	assert.Equal(t, 12000.0, metrics.Revenue.Value)
	assert.Equal(t, 90, metrics.Revenue.Confidence)

	// 100 raw nights * 0.644 over 365 days.
	assert.InDelta(t, 64.4/365*100, metrics.Occupancy.Value, 0.01)
	assert.Equal(t, 85, metrics.Occupancy.Confidence)

	require.NotEmpty(t, anomalies)
	found := false
	for _, a := range anomalies {
		if a.Metric == "occupancy" && a.Severity == models.AnomalyInfo {
			found = true
		}
	}
	assert.True(t, found, "expected an info anomaly for the estimated occupancy")
}

func TestReconcile_SatisfactionFromScrapedSnapshot(t *testing.T) {
	r := newReconciler()
	scrapedAt := day(2025, 8, 1)
	src := models.DataSources{
		Scraped: &models.ScrapedSnapshot{ReviewScore: 4.8, ReviewCount: 120, ScrapedAt: scrapedAt},
	}

	metrics, _ := r.Reconcile(src, time.Now())

	assert.InDelta(t, 96.0, metrics.Satisfaction.Value, 0.001)
	assert.Equal(t, models.MetricFromScraped, metrics.Satisfaction.Source)
	assert.Equal(t, 100, metrics.Satisfaction.Confidence)
	assert.Equal(t, scrapedAt, metrics.Satisfaction.LastUpdated)

	// Only satisfaction present: it is the whole health score.
	assert.Equal(t, 96, metrics.Health)
}

func TestReconcile_ImplausibleNightlyRateFlaggedNotCapped(t *testing.T) {
	r := newReconciler()
	src := models.DataSources{
		Csv: &models.CsvExport{
			Transactions: []models.Transaction{
				{ConfirmationCode: "LUX", StartDate: day(2025, 3, 1), EndDate: day(2025, 3, 3), Nights: 2, Amount: 5000},
			},
			DateRange:  models.DateRange{Start: day(2025, 3, 1), End: day(2025, 3, 31)},
			UploadedAt: day(2025, 4, 1),
		},
	}

	metrics, anomalies := r.Reconcile(src, time.Now())

	assert.Equal(t, 2500.0, metrics.Pricing.Value, "value must not be capped")
	found := false
	for _, a := range anomalies {
		if a.Metric == "pricing" && a.Severity == models.AnomalyWarning {
			found = true
		}
	}
	assert.True(t, found, "expected a pricing warning")
}

func TestReconcile_ScrapedPriceDivergenceFlagged(t *testing.T) {
	r := newReconciler()
	src := models.DataSources{
		Csv: &models.CsvExport{
			Transactions: []models.Transaction{
				{ConfirmationCode: "X", StartDate: day(2025, 3, 1), EndDate: day(2025, 3, 5), Nights: 4, Amount: 400},
			},
			DateRange:  models.DateRange{Start: day(2025, 3, 1), End: day(2025, 3, 31)},
			UploadedAt: day(2025, 4, 1),
		},
		// Listing advertises more than double the earned rate.
		Scraped: &models.ScrapedSnapshot{NightlyPrice: 250, ReviewScore: 4.0, ScrapedAt: day(2025, 4, 1)},
	}

	_, anomalies := r.Reconcile(src, time.Now())

	found := false
	for _, a := range anomalies {
		if a.Metric == "pricing" && a.Severity == models.AnomalyWarning {
			found = true
		}
	}
	assert.True(t, found, "expected a divergence warning")
}

func TestReconcile_DerivedPricingFromRevenueAndOccupancy(t *testing.T) {
	r := newReconciler()
	src := models.DataSources{
		Pdf: &models.PdfReport{TotalNetEarnings: 36500, TotalNightsBooked: 180, UploadedAt: day(2025, 1, 1)},
	}

	metrics, _ := r.Reconcile(src, time.Now())

	require.True(t, metrics.Pricing.Present())
	assert.Equal(t, models.MetricFromCalculated, metrics.Pricing.Source)
	assert.Equal(t, 60, metrics.Pricing.Confidence)
	// 36500 over ~180 implied nights.
	assert.InDelta(t, 202.8, metrics.Pricing.Value, 0.1)
}

func TestReconcile_Boundedness(t *testing.T) {
	r := newReconciler()
	// Nights far exceeding the covered range would push occupancy past 100.
	src := models.DataSources{
		Csv: &models.CsvExport{
			Transactions: []models.Transaction{
				{ConfirmationCode: "A", StartDate: day(2025, 1, 1), EndDate: day(2025, 1, 31), Nights: 30, Amount: 3000},
				{ConfirmationCode: "B", StartDate: day(2025, 1, 5), EndDate: day(2025, 2, 4), Nights: 30, Amount: 3000},
			},
			DateRange:  models.DateRange{Start: day(2025, 1, 1), End: day(2025, 1, 31)},
			UploadedAt: day(2025, 2, 1),
		},
		Scraped: &models.ScrapedSnapshot{ReviewScore: 5, ScrapedAt: day(2025, 2, 1)},
	}

	metrics, _ := r.Reconcile(src, time.Now())

	assert.LessOrEqual(t, metrics.Occupancy.Value, 100.0)
	assert.GreaterOrEqual(t, metrics.Occupancy.Value, 0.0)
	assert.GreaterOrEqual(t, metrics.Health, 0)
	assert.LessOrEqual(t, metrics.Health, 100)
}

func TestReconcileForWindow(t *testing.T) {
	r := newReconciler()
	now := day(2025, 3, 15)
	window := models.Window{Start: day(2025, 1, 1), End: now} // 74 days
	bookings := []models.UniqueBooking{
		{ConfirmationCode: "FEB", StartDate: day(2025, 2, 1), Nights: 4, Revenue: 800},
	}
	satisfaction := models.MetricWithSource{Value: 90, Source: models.MetricFromScraped, Confidence: 100, LastUpdated: now}

	metrics, _ := r.ReconcileForWindow(bookings, window, satisfaction, now)

	assert.Equal(t, 800.0, metrics.Revenue.Value)
	assert.Equal(t, 90, metrics.Revenue.Confidence)
	assert.InDelta(t, 4.0/74*100, metrics.Occupancy.Value, 0.01)
	assert.Equal(t, 200.0, metrics.Pricing.Value)
	assert.Equal(t, satisfaction, metrics.Satisfaction)
}

func TestReconcileForWindow_EmptyWindowOrNoBookings(t *testing.T) {
	r := newReconciler()
	now := day(2025, 3, 15)
	satisfaction := models.MetricWithSource{Value: 90, Source: models.MetricFromScraped, Confidence: 100}

	metrics, anomalies := r.ReconcileForWindow(nil, models.Window{Start: day(2025, 1, 1), End: now}, satisfaction, now)
	assert.Equal(t, 0.0, metrics.Revenue.Value)
	assert.Equal(t, 0, metrics.Health)
	assert.Empty(t, anomalies)

	degenerate := models.Window{Start: now, End: day(2025, 1, 1)}
	metrics, _ = r.ReconcileForWindow([]models.UniqueBooking{{Nights: 2, Revenue: 100}}, degenerate, satisfaction, now)
	assert.Equal(t, 0.0, metrics.Revenue.Value)
	assert.Equal(t, 0.0, metrics.Satisfaction.Value)
}
