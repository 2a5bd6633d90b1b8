package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/username/hostfolio/backend/src/logger"
	"github.com/username/hostfolio/backend/src/models"
)

// SQLiteStore is the sqlite-backed Store. The aggregate persists as one row
// per property with dataSources and metrics as JSON columns; all timestamps
// are RFC3339 strings.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.Property, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, standard_name, airbnb_url, airbnb_listing_id,
		       data_sources, metrics, data_completeness, version,
		       created_at, updated_at, last_synced_at
		FROM properties WHERE id = ?`, id)

	property, err := scanProperty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPropertyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying property %s: %w", id, err)
	}
	return property, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*models.Property, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, standard_name, airbnb_url, airbnb_listing_id,
		       data_sources, metrics, data_completeness, version,
		       created_at, updated_at, last_synced_at
		FROM properties ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("error querying properties: %w", err)
	}
	defer rows.Close()

	var properties []*models.Property
	for rows.Next() {
		property, scanErr := scanProperty(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("error scanning property row: %w", scanErr)
		}
		properties = append(properties, property)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over property rows: %w", err)
	}
	return properties, nil
}

// Save inserts a new property or updates an existing one. Updates enforce
// the version the caller read: a stale save returns ErrVersionConflict
// instead of silently losing the concurrent write. On success the
// property's Version reflects the stored value.
func (s *SQLiteStore) Save(ctx context.Context, property *models.Property) error {
	dataSourcesJSON, err := json.Marshal(property.DataSources)
	if err != nil {
		return fmt.Errorf("error marshaling data sources for property %s: %w", property.ID, err)
	}
	var metricsJSON sql.NullString
	if property.Metrics != nil {
		data, err := json.Marshal(property.Metrics)
		if err != nil {
			return fmt.Errorf("error marshaling metrics for property %s: %w", property.ID, err)
		}
		metricsJSON = sql.NullString{String: string(data), Valid: true}
	}
	var lastSynced sql.NullString
	if property.LastSyncedAt != nil {
		lastSynced = sql.NullString{String: property.LastSyncedAt.UTC().Format(time.RFC3339), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning save transaction: %w", err)
	}
	defer tx.Rollback()

	var currentVersion int
	err = tx.QueryRowContext(ctx, "SELECT version FROM properties WHERE id = ?", property.ID).Scan(&currentVersion)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		property.Version = 1
		_, err = tx.ExecContext(ctx, `
			INSERT INTO properties
				(id, name, standard_name, airbnb_url, airbnb_listing_id,
				 data_sources, metrics, data_completeness, version,
				 created_at, updated_at, last_synced_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			property.ID, property.Name, property.StandardName, property.AirbnbURL, property.AirbnbListingID,
			string(dataSourcesJSON), metricsJSON, property.DataCompleteness, property.Version,
			property.CreatedAt.UTC().Format(time.RFC3339), property.UpdatedAt.UTC().Format(time.RFC3339), lastSynced,
		)
		if err != nil {
			return fmt.Errorf("error inserting property %s: %w", property.ID, err)
		}
	case err != nil:
		return fmt.Errorf("error reading current version for property %s: %w", property.ID, err)
	default:
		if property.Version != currentVersion {
			return fmt.Errorf("%w: property %s (read version %d, stored version %d)",
				ErrVersionConflict, property.ID, property.Version, currentVersion)
		}
		property.Version = currentVersion + 1
		_, err = tx.ExecContext(ctx, `
			UPDATE properties SET
				name = ?, standard_name = ?, airbnb_url = ?, airbnb_listing_id = ?,
				data_sources = ?, metrics = ?, data_completeness = ?, version = ?,
				updated_at = ?, last_synced_at = ?
			WHERE id = ?`,
			property.Name, property.StandardName, property.AirbnbURL, property.AirbnbListingID,
			string(dataSourcesJSON), metricsJSON, property.DataCompleteness, property.Version,
			property.UpdatedAt.UTC().Format(time.RFC3339), lastSynced, property.ID,
		)
		if err != nil {
			return fmt.Errorf("error updating property %s: %w", property.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing save for property %s: %w", property.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM properties WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("error deleting property %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading delete result for property %s: %w", id, err)
	}
	if affected == 0 {
		return ErrPropertyNotFound
	}
	logger.L.Info("Property deleted", "propertyID", id)
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(row rowScanner) (*models.Property, error) {
	var p models.Property
	var standardName, airbnbURL, airbnbListingID sql.NullString
	var dataSourcesJSON string
	var metricsJSON, lastSynced sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&p.ID, &p.Name, &standardName, &airbnbURL, &airbnbListingID,
		&dataSourcesJSON, &metricsJSON, &p.DataCompleteness, &p.Version,
		&createdAt, &updatedAt, &lastSynced,
	)
	if err != nil {
		return nil, err
	}

	p.StandardName = standardName.String
	p.AirbnbURL = airbnbURL.String
	p.AirbnbListingID = airbnbListingID.String

	if err := json.Unmarshal([]byte(dataSourcesJSON), &p.DataSources); err != nil {
		return nil, fmt.Errorf("error unmarshaling data sources: %w", err)
	}
	if metricsJSON.Valid {
		var metrics models.PropertyMetrics
		if err := json.Unmarshal([]byte(metricsJSON.String), &metrics); err != nil {
			return nil, fmt.Errorf("error unmarshaling metrics: %w", err)
		}
		p.Metrics = &metrics
	}

	if p.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("error parsing created_at: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("error parsing updated_at: %w", err)
	}
	if lastSynced.Valid {
		t, err := time.Parse(time.RFC3339, lastSynced.String)
		if err != nil {
			return nil, fmt.Errorf("error parsing last_synced_at: %w", err)
		}
		p.LastSyncedAt = &t
	}
	return &p, nil
}
