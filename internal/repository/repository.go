package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mr1hm/go-disaster-response/internal/models"
)

// ErrVersionConflict is returned by UpdateVersioned when the stored
// record's version no longer matches the caller's expectation.
var ErrVersionConflict = errors.New("record version conflict")

type Filter struct {
	Tag     string
	OwnerID string
	Limit   int
	Offset  int
}

type DisasterRepository interface {
	Put(ctx context.Context, rec *models.DisasterRecord) error
	GetByID(ctx context.Context, id string) (*models.DisasterRecord, error)
	// UpdateVersioned writes rec only if the stored version equals
	// expectedVersion, then bumps rec.Version.
	UpdateVersioned(ctx context.Context, rec *models.DisasterRecord, expectedVersion int64) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts Filter) ([]models.DisasterRecord, error)
}

// KVRepository is the durable key-value table backing the TTL cache.
type KVRepository interface {
	GetEntry(ctx context.Context, key string) (*models.CacheEntry, error)
	PutEntry(ctx context.Context, key string, value []byte, expiresAt time.Time) error
	DeleteEntry(ctx context.Context, key string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
