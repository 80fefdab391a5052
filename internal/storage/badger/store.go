// Package badger provides an embedded BadgerHold storage backend for single-counter shops.
package badger

import (
	"fmt"
	"os"

	"github.com/bobmcallan/partsdesk/internal/common"
	"github.com/bobmcallan/partsdesk/internal/interfaces"
	"github.com/timshannon/badgerhold/v4"
)

// Store wraps a BadgerHold database connection and exposes the storage interfaces.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger

	internal *internalStore
	records  *recordStore
}

// NewStore opens (or creates) a BadgerHold store at the given directory path.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create badger directory %s: %w", path, err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil // Disable default badger logger

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Info().Str("path", path).Msg("BadgerHold store opened")

	s := &Store{
		db:     db,
		logger: logger,
	}
	s.internal = &internalStore{store: s}
	s.records = &recordStore{store: s}
	return s, nil
}

// DB returns the underlying badgerhold store.
func (s *Store) DB() *badgerhold.Store {
	return s.db
}

func (s *Store) InternalStore() interfaces.InternalStore { return s.internal }
func (s *Store) RecordStore() interfaces.RecordStore     { return s.records }
func (s *Store) Backend() string                         { return "badger" }

// Close closes the BadgerHold database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check
var _ interfaces.StorageManager = (*Store)(nil)
