package airbnb

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/username/hostfolio/backend/src/logger"
	"github.com/username/hostfolio/backend/src/models"
)

// Parser implements the parsers.Parser interface for Airbnb
// transaction-history CSV exports. Columns are addressed by header name
// because Airbnb has shuffled column order between export revisions.
type Parser struct{}

// NewParser creates a new instance of the Airbnb parser.
func NewParser() *Parser {
	return &Parser{}
}

// Date layouts seen in the wild: US exports use MM/DD/YYYY, newer ones ISO.
var dateLayouts = []string{"01/02/2006", "2006-01-02"}

func parseDate(s string) (time.Time, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseAmount normalizes a money cell: strips "$" and thousands commas,
// keeps the sign.
func parseAmount(s string) float64 {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.Trim(cleaned, "\"")
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0
	}
	v, _ := strconv.ParseFloat(cleaned, 64)
	return v
}

// Parse reads an Airbnb CSV export and converts its rows into transactions.
// Malformed rows (unparseable date, non-numeric nights) are skipped and
// counted rather than aborting the batch: one bad row must not blank out an
// entire property's metrics.
func (p *Parser) Parse(file io.Reader) (*models.ParsedExport, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields per record

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("airbnb parser: failed to read CSV header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["date"]; !ok {
		return nil, fmt.Errorf("airbnb parser: header has no 'Date' column; not an Airbnb transaction export")
	}

	field := func(record []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("airbnb parser: failed to read all CSV records: %w", err)
	}

	result := &models.ParsedExport{}
	seenListing := make(map[string]bool)
	var minDate, maxDate time.Time

	for i, record := range records {
		rowType := field(record, "type")
		listing := field(record, "listing")
		dateStr := field(record, "date")

		// Blank padding rows at the end of exports.
		if dateStr == "" && rowType == "" && listing == "" {
			continue
		}

		ledgerDate, ok := parseDate(dateStr)
		if !ok {
			logger.L.Warn("Airbnb parser: skipping row with unparseable date", "row", i+2, "date", dateStr)
			result.SkippedRows++
			continue
		}

		startDate := ledgerDate
		if s, ok := parseDate(field(record, "start date")); ok {
			startDate = s
		}

		nights := 0
		if nightsStr := field(record, "nights"); nightsStr != "" {
			n, err := strconv.Atoi(nightsStr)
			if err != nil {
				logger.L.Warn("Airbnb parser: skipping row with non-numeric nights", "row", i+2, "nights", nightsStr)
				result.SkippedRows++
				continue
			}
			nights = n
		}

		endDate := startDate.AddDate(0, 0, nights)
		if e, ok := parseDate(field(record, "end date")); ok {
			endDate = e
		}

		amount := parseAmount(field(record, "amount"))
		if amount == 0 {
			amount = parseAmount(field(record, "paid out"))
		}

		tx := models.Transaction{
			ConfirmationCode: field(record, "confirmation code"),
			Type:             rowType,
			StartDate:        startDate,
			EndDate:          endDate,
			Nights:           nights,
			Amount:           amount,
			GrossEarnings:    parseAmount(field(record, "gross earnings")),
			Listing:          listing,
			Guest:            field(record, "guest"),
			Currency:         field(record, "currency"),
		}
		result.Transactions = append(result.Transactions, tx)

		if listing != "" && !seenListing[listing] {
			seenListing[listing] = true
			result.Listings = append(result.Listings, listing)
		}
		if minDate.IsZero() || ledgerDate.Before(minDate) {
			minDate = ledgerDate
		}
		if maxDate.IsZero() || ledgerDate.After(maxDate) {
			maxDate = ledgerDate
		}
	}

	result.DateRange = models.DateRange{Start: minDate, End: maxDate}
	return result, nil
}
