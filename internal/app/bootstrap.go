package app

import (
	"context"

	"github.com/bobmcallan/partsdesk/internal/common"
	"github.com/bobmcallan/partsdesk/internal/interfaces"
)

// SchemaVersion is bumped whenever stored document shapes change incompatibly.
const SchemaVersion = "1"

const schemaVersionKey = "partsdesk_schema_version"

// checkSchemaVersion stamps the schema version on first run and warns when the
// stored data was written by a different schema. Business data is never
// purged automatically. Returns true if the stored version differed.
func checkSchemaVersion(ctx context.Context, sm interfaces.StorageManager, logger *common.Logger) bool {
	kv := sm.InternalStore()

	stored, err := kv.GetSystemKV(ctx, schemaVersionKey)
	if err == nil && stored == SchemaVersion {
		logger.Debug().Str("version", SchemaVersion).Msg("Schema version matches")
		return false
	}

	mismatch := err == nil
	if !mismatch {
		logger.Info().Str("current", SchemaVersion).Msg("Schema version not found, initializing")
	} else {
		logger.Warn().
			Str("stored", stored).
			Str("current", SchemaVersion).
			Msg("Schema version mismatch; check the upgrade notes before trading")
	}

	if err := kv.SetSystemKV(ctx, schemaVersionKey, SchemaVersion); err != nil {
		logger.Error().Err(err).Msg("Failed to store schema version")
	}
	return mismatch
}

// EnsureAdmin creates the first admin account when the user table is empty.
// Returns the cleartext password if one was created, or "".
func (a *App) EnsureAdmin(ctx context.Context) string {
	password, err := a.UserService.EnsureAdmin(ctx)
	if err != nil {
		a.Logger.Error().Err(err).Msg("Failed to create admin account")
		return ""
	}
	return password
}
