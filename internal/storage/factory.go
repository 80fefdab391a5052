// Package storage selects and opens the configured storage backend.
package storage

import (
	"fmt"

	"github.com/bobmcallan/partsdesk/internal/common"
	"github.com/bobmcallan/partsdesk/internal/interfaces"
	"github.com/bobmcallan/partsdesk/internal/storage/badger"
	"github.com/bobmcallan/partsdesk/internal/storage/memory"
	"github.com/bobmcallan/partsdesk/internal/storage/surrealdb"
)

// Backend type constants.
const (
	BackendSurrealDB = "surrealdb"
	BackendBadger    = "badger"
	BackendMemory    = "memory"
)

// NewStorageManager opens the backend named by config.Storage.Backend.
// Supported backends: "surrealdb" (default), "badger", "memory".
func NewStorageManager(logger *common.Logger, config *common.Config) (interfaces.StorageManager, error) {
	backend := config.Storage.Backend
	if backend == "" {
		backend = BackendSurrealDB
	}

	switch backend {
	case BackendSurrealDB:
		return surrealdb.NewManager(logger, config)

	case BackendBadger:
		return badger.NewStore(logger, config.Storage.Path)

	case BackendMemory:
		logger.Warn().Msg("Using in-memory storage: data is lost on restart")
		return memory.NewManager(logger), nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: surrealdb, badger, memory)", backend)
	}
}
