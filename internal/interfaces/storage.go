// Package interfaces defines service contracts for partsdesk
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/partsdesk/internal/models"
)

// StorageManager coordinates all storage backends
type StorageManager interface {
	InternalStore() InternalStore
	RecordStore() RecordStore

	// Backend returns the backend name ("surrealdb", "badger", "memory").
	Backend() string

	Close() error
}

// InternalStore manages operator accounts and system-level KV.
type InternalStore interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, userID string) error
	ListUsers(ctx context.Context) ([]*models.User, error)

	GetSystemKV(ctx context.Context, key string) (string, error)
	SetSystemKV(ctx context.Context, key, value string) error
}

// RecordStore persists domain documents as generic JSON records.
type RecordStore interface {
	// Get returns models.ErrNotFound when the record does not exist.
	Get(ctx context.Context, collection, key string) (*models.Record, error)

	// Put upserts without a version check.
	Put(ctx context.Context, record *models.Record) error

	// Delete is idempotent.
	Delete(ctx context.Context, collection, key string) error

	List(ctx context.Context, collection string, opts QueryOptions) ([]*models.Record, error)

	// Apply commits all ops atomically. A failed guard aborts the whole batch
	// with models.ErrConflict and nothing is written.
	Apply(ctx context.Context, ops []models.BatchOp) error
}

// QueryOptions configures List behavior for RecordStore.
type QueryOptions struct {
	Ref     string     // only records with this Ref
	Since   *time.Time // DateTime >= Since
	Until   *time.Time // DateTime < Until
	Limit   int
	OrderBy string // "datetime_desc" (default), "datetime_asc"
}
