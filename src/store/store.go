package store

import (
	"context"
	"errors"

	"github.com/username/hostfolio/backend/src/models"
)

// Store errors. I/O failures from concrete backends propagate unmodified;
// these sentinels cover the semantic outcomes callers branch on.
var (
	ErrPropertyNotFound = errors.New("property not found")
	ErrVersionConflict  = errors.New("property version conflict: aggregate was modified since it was read")
)

// Store persists and retrieves Property aggregates. The engine needs only
// get/save/list/delete semantics; retries and backoff, if any, belong to
// the implementation behind this interface. Exactly one concrete backend is
// wired per deployment.
type Store interface {
	Get(ctx context.Context, id string) (*models.Property, error)
	Save(ctx context.Context, property *models.Property) error
	List(ctx context.Context) ([]*models.Property, error)
	Delete(ctx context.Context, id string) error
}
