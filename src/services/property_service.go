package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/username/hostfolio/backend/src/logger"
	"github.com/username/hostfolio/backend/src/models"
	"github.com/username/hostfolio/backend/src/parsers"
	"github.com/username/hostfolio/backend/src/processors"
	"github.com/username/hostfolio/backend/src/security/validation"
	"github.com/username/hostfolio/backend/src/store"
	"github.com/username/hostfolio/backend/src/utils"
)

// Cache key formats. Invalidation happens on every mutation; the TTL is a
// backstop, not the consistency mechanism.
const (
	ckProperty     = "property:%s"
	ckPropertyList = "properties:list"
)

type propertyServiceImpl struct {
	store      store.Store
	dedup      *processors.TransactionDeduplicator
	reconciler *processors.MetricsReconciler
	cache      *cache.Cache

	// now is swappable in tests; production uses time.Now.
	now func() time.Time
}

// NewPropertyService wires the store, processors and read cache into the
// property lifecycle service.
func NewPropertyService(s store.Store, dedup *processors.TransactionDeduplicator, reconciler *processors.MetricsReconciler, c *cache.Cache) PropertyService {
	return &propertyServiceImpl{
		store:      s,
		dedup:      dedup,
		reconciler: reconciler,
		cache:      c,
		now:        time.Now,
	}
}

func (s *propertyServiceImpl) CreateProperty(ctx context.Context, name string) (*models.Property, error) {
	cleaned := strings.TrimSpace(validation.StripUnprintable(validation.SanitizeText(name)))
	if err := validation.ValidatePropertyName(cleaned); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	now := s.now()
	property := &models.Property{
		ID:        uuid.NewString(),
		Name:      cleaned,
		CreatedAt: now,
		UpdatedAt: now,
	}
	property.DataCompleteness = property.ComputeCompleteness()

	if err := s.store.Save(ctx, property); err != nil {
		return nil, fmt.Errorf("failed to save new property: %w", err)
	}
	s.invalidateCache(property.ID)
	logger.FromContext(ctx).Info("Property created", "propertyID", property.ID, "name", property.Name)
	return property, nil
}

func (s *propertyServiceImpl) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	key := fmt.Sprintf(ckProperty, id)
	if cached, found := s.cache.Get(key); found {
		if property, ok := cached.(*models.Property); ok {
			return property, nil
		}
	}

	property, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, property)
	return property, nil
}

func (s *propertyServiceImpl) ListProperties(ctx context.Context) ([]*models.Property, error) {
	if cached, found := s.cache.Get(ckPropertyList); found {
		if properties, ok := cached.([]*models.Property); ok {
			return properties, nil
		}
	}

	properties, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(ckPropertyList, properties)
	return properties, nil
}

func (s *propertyServiceImpl) DeleteProperty(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateCache(id)
	return nil
}

func (s *propertyServiceImpl) UpdateURL(ctx context.Context, id, rawURL string) (*models.Property, error) {
	listingID, err := validation.ValidateAirbnbURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	property, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	property.AirbnbURL = strings.TrimSpace(rawURL)
	property.AirbnbListingID = listingID
	property.DataCompleteness = property.ComputeCompleteness()
	property.UpdatedAt = s.now()

	if err := s.store.Save(ctx, property); err != nil {
		return nil, fmt.Errorf("failed to save property URL: %w", err)
	}
	s.invalidateCache(id)
	logger.FromContext(ctx).Info("Property URL updated", "propertyID", id, "listingID", listingID)
	return property, nil
}

func (s *propertyServiceImpl) UpdateDataSource(ctx context.Context, id string, sourceType models.SourceType, payload json.RawMessage) (*models.Property, []models.Anomaly, error) {
	property, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	switch sourceType {
	case models.SourcePdf:
		var report models.PdfReport
		if err := decodeStrict(payload, &report); err != nil {
			return nil, nil, fmt.Errorf("%w: malformed pdf report payload: %v", ErrValidation, err)
		}
		if err := validation.ValidateNonNegative(report.TotalNetEarnings, "total net earnings"); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if err := validation.ValidateNonNegative(float64(report.TotalNightsBooked), "total nights booked"); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if report.UploadedAt.IsZero() {
			report.UploadedAt = now
		}
		property.DataSources.Pdf = &report

	case models.SourceScraped:
		var snapshot models.ScrapedSnapshot
		if err := decodeStrict(payload, &snapshot); err != nil {
			return nil, nil, fmt.Errorf("%w: malformed scraped snapshot payload: %v", ErrValidation, err)
		}
		if snapshot.ReviewScore < 0 || snapshot.ReviewScore > 5 {
			return nil, nil, fmt.Errorf("%w: review score %.2f outside the 0-5 scale", ErrValidation, snapshot.ReviewScore)
		}
		if err := validation.ValidateNonNegative(snapshot.NightlyPrice, "nightly price"); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if snapshot.ScrapedAt.IsZero() {
			snapshot.ScrapedAt = now
		}
		property.DataSources.Scraped = &snapshot
		property.LastSyncedAt = &now

	case models.SourceCsv:
		var export models.CsvExport
		if err := decodeStrict(payload, &export); err != nil {
			return nil, nil, fmt.Errorf("%w: malformed csv export payload: %v", ErrValidation, err)
		}
		if len(export.Transactions) == 0 && export.TotalNights == 0 && export.TotalRevenue == 0 {
			return nil, nil, fmt.Errorf("%w: csv export carries neither transactions nor aggregate totals", ErrValidation)
		}
		if export.RecordCount == 0 {
			export.RecordCount = len(export.Transactions)
		}
		if export.UploadedAt.IsZero() {
			export.UploadedAt = now
		}
		property.DataSources.Csv = &export

	default:
		return nil, nil, fmt.Errorf("%w: unknown source type %q", ErrValidation, sourceType)
	}

	anomalies, err := s.refreshAndSave(ctx, property, now)
	if err != nil {
		return nil, nil, err
	}
	logger.FromContext(ctx).Info("Data source updated", "propertyID", id, "sourceType", sourceType, "anomalies", len(anomalies))
	return property, anomalies, nil
}

func (s *propertyServiceImpl) ImportCSVForProperty(ctx context.Context, id string, file io.Reader, fileName string) (*models.Property, []models.Anomaly, error) {
	property, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	parsed, err := s.parseExport(file)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	property.DataSources.Csv = buildCsvExport(parsed.Transactions, parsed.DateRange, fileName, now)

	anomalies, err := s.refreshAndSave(ctx, property, now)
	if err != nil {
		return nil, nil, err
	}
	logger.FromContext(ctx).Info("CSV export attached",
		"propertyID", id, "fileName", fileName,
		"transactions", len(parsed.Transactions), "skippedRows", parsed.SkippedRows)
	return property, anomalies, nil
}

func (s *propertyServiceImpl) ImportCSVUpload(ctx context.Context, file io.Reader, fileName string) (*CSVImportResult, error) {
	parsed, err := s.parseExport(file)
	if err != nil {
		return nil, err
	}

	properties, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(properties))
	byName := make(map[string]*models.Property, len(properties))
	for i, p := range properties {
		names[i] = p.Name
		byName[p.Name] = p
	}

	// Route each listing's rows to the property whose name it matches.
	batches := make(map[string][]models.Transaction)
	listingsFor := make(map[string][]string)
	var unmatched []string
	for _, listing := range parsed.Listings {
		matchedName, ok := utils.MatchPropertyName(listing, names)
		if !ok {
			unmatched = append(unmatched, listing)
			continue
		}
		for _, tx := range parsed.Transactions {
			if tx.Listing == listing {
				batches[matchedName] = append(batches[matchedName], tx)
			}
		}
		listingsFor[matchedName] = append(listingsFor[matchedName], listing)
	}

	result := &CSVImportResult{
		UnmatchedListings: unmatched,
		SkippedRows:       parsed.SkippedRows,
		TotalTransactions: len(parsed.Transactions),
	}

	now := s.now()
	for _, p := range properties {
		batch, ok := batches[p.Name]
		if !ok {
			continue
		}
		p.DataSources.Csv = buildCsvExport(batch, transactionDateRange(batch), fileName, now)
		anomalies, err := s.refreshAndSave(ctx, p, now)
		if err != nil {
			return nil, fmt.Errorf("failed to attach export rows to property %s: %w", p.ID, err)
		}
		result.Assignments = append(result.Assignments, CSVImportAssignment{
			PropertyID:       p.ID,
			PropertyName:     p.Name,
			Listings:         listingsFor[p.Name],
			TransactionCount: len(batch),
			Anomalies:        anomalies,
		})
	}

	logger.FromContext(ctx).Info("CSV export imported",
		"fileName", fileName, "assignments", len(result.Assignments),
		"unmatchedListings", len(unmatched), "skippedRows", parsed.SkippedRows)
	return result, nil
}

func (s *propertyServiceImpl) MetricsForPeriod(ctx context.Context, id string, period models.Period) (*PeriodMetrics, error) {
	if !models.ValidPeriod(string(period)) {
		return nil, fmt.Errorf("%w: unknown period %q", ErrValidation, period)
	}

	property, err := s.GetProperty(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	stored := models.PropertyMetrics{
		Revenue:      models.ZeroMetric(now),
		Occupancy:    models.ZeroMetric(now),
		Pricing:      models.ZeroMetric(now),
		Satisfaction: models.ZeroMetric(now),
	}
	if property.Metrics != nil {
		stored = *property.Metrics
	}

	window, bounded := processors.ResolveWindow(period, now)
	csv := property.DataSources.Csv
	if !bounded || csv == nil || len(csv.Transactions) == 0 {
		// allTime, or nothing row-level to recompute from: the stored
		// all-time metrics are the answer.
		return &PeriodMetrics{Period: period, Metrics: stored}, nil
	}

	inWindow := processors.FilterTransactionsByWindow(csv.Transactions, window)
	bookings, _ := s.dedup.Deduplicate(inWindow)
	metrics, anomalies := s.reconciler.ReconcileForWindow(bookings, window, stored.Satisfaction, now)

	return &PeriodMetrics{Period: period, Window: &window, Metrics: metrics, Anomalies: anomalies}, nil
}

func (s *propertyServiceImpl) Bookings(ctx context.Context, id string) (*BookingBreakdown, error) {
	property, err := s.GetProperty(ctx, id)
	if err != nil {
		return nil, err
	}

	breakdown := &BookingBreakdown{Bookings: []models.UniqueBooking{}}
	if property.DataSources.Csv == nil {
		return breakdown, nil
	}
	bookings, stats := s.dedup.Deduplicate(property.DataSources.Csv.Transactions)
	if bookings != nil {
		breakdown.Bookings = bookings
	}
	breakdown.Stats = stats
	return breakdown, nil
}

// refreshAndSave recomputes metrics and completeness for the property's
// current sources, stamps UpdatedAt and persists. The caller has already
// mutated the sources.
func (s *propertyServiceImpl) refreshAndSave(ctx context.Context, property *models.Property, now time.Time) ([]models.Anomaly, error) {
	metrics, anomalies := s.reconciler.Reconcile(property.DataSources, now)
	property.Metrics = &metrics
	property.DataCompleteness = property.ComputeCompleteness()
	property.UpdatedAt = now

	if err := s.store.Save(ctx, property); err != nil {
		return nil, fmt.Errorf("failed to save property: %w", err)
	}
	s.invalidateCache(property.ID)
	return anomalies, nil
}

func (s *propertyServiceImpl) parseExport(file io.Reader) (*models.ParsedExport, error) {
	parser, err := parsers.GetParser("airbnb")
	if err != nil {
		return nil, err
	}
	parsed, err := parser.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	if len(parsed.Transactions) == 0 {
		return nil, fmt.Errorf("%w: export contains no usable transactions", ErrValidation)
	}
	return parsed, nil
}

func (s *propertyServiceImpl) invalidateCache(id string) {
	s.cache.Delete(fmt.Sprintf(ckProperty, id))
	s.cache.Delete(ckPropertyList)
}

// decodeStrict decodes JSON rejecting unknown fields, so a typo'd payload
// fails loudly instead of half-applying.
func decodeStrict(payload json.RawMessage, dst any) error {
	dec := json.NewDecoder(strings.NewReader(string(payload)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON payload")
	}
	return nil
}

func buildCsvExport(transactions []models.Transaction, dateRange models.DateRange, fileName string, now time.Time) *models.CsvExport {
	return &models.CsvExport{
		Transactions: transactions,
		DateRange:    dateRange,
		RecordCount:  len(transactions),
		FileName:     fileName,
		UploadedAt:   now,
	}
}

// transactionDateRange spans the min check-in to the max check-out of a
// batch, used when an export is split per property and the file-level range
// no longer applies.
func transactionDateRange(transactions []models.Transaction) models.DateRange {
	var r models.DateRange
	for i, tx := range transactions {
		if i == 0 || tx.StartDate.Before(r.Start) {
			r.Start = tx.StartDate
		}
		end := tx.EndDate
		if end.IsZero() {
			end = tx.StartDate
		}
		if end.After(r.End) {
			r.End = end
		}
	}
	return r
}
