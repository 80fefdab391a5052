package surrealdb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bobmcallan/partsdesk/internal/common"
	"github.com/bobmcallan/partsdesk/internal/interfaces"
	"github.com/bobmcallan/partsdesk/internal/models"
	"github.com/bobmcallan/partsdesk/internal/storage/query"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// RecordStore keeps domain documents in the "record" table.
// Record IDs have the form record:<collection>_<key>.
type RecordStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewRecordStore(db *surrealdb.DB, logger *common.Logger) *RecordStore {
	return &RecordStore{
		db:     db,
		logger: logger,
	}
}

func recordID(collection, key string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID("record", collection+"_"+key)
}

func (s *RecordStore) Get(ctx context.Context, collection, key string) (*models.Record, error) {
	record, err := surrealdb.Select[models.Record](ctx, s.db, recordID(collection, key))
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("%s/%s: %w", collection, key, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to select record: %w", err)
	}
	if record == nil || record.Key == "" {
		return nil, fmt.Errorf("%s/%s: %w", collection, key, models.ErrNotFound)
	}
	return record, nil
}

func (s *RecordStore) Put(ctx context.Context, record *models.Record) error {
	sql := "UPSERT $rid CONTENT $record"
	vars := map[string]any{"rid": recordID(record.Collection, record.Key), "record": record}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]models.Record](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("failed to put record after retries: %w", lastErr)
}

func (s *RecordStore) Delete(ctx context.Context, collection, key string) error {
	_, err := surrealdb.Delete[models.Record](ctx, s.db, recordID(collection, key))
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// List selects by collection (and ref) in the database; date bounds, ordering
// and limit are applied in process so every backend sorts identically.
func (s *RecordStore) List(ctx context.Context, collection string, opts interfaces.QueryOptions) ([]*models.Record, error) {
	sql := "SELECT * FROM record WHERE collection = $collection"
	vars := map[string]any{"collection": collection}
	if opts.Ref != "" {
		sql += " AND ref = $ref"
		vars["ref"] = opts.Ref
	}

	results, err := surrealdb.Query[[]models.Record](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	var records []*models.Record
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			records = append(records, &(*results)[0].Result[i])
		}
	}
	return query.Apply(records, opts), nil
}

// Apply runs all ops in a single SurrealQL transaction. Each guarded op
// re-reads the stored version inside the transaction and throws on mismatch,
// which cancels every statement in the batch.
func (s *RecordStore) Apply(ctx context.Context, ops []models.BatchOp) error {
	if err := query.Validate(ops); err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}

	sql, vars := batchQuery(ops)

	results, err := surrealdb.Query[any](ctx, s.db, sql, vars)
	if err == nil {
		err = statementErrors(results)
	}
	if err != nil {
		if isConflictError(err) {
			return fmt.Errorf("batch of %d ops: %w", len(ops), errors.Join(models.ErrConflict, err))
		}
		return fmt.Errorf("failed to apply batch: %w", err)
	}

	s.logger.Trace().Int("ops", len(ops)).Msg("Batch applied")
	return nil
}

// batchQuery renders ops as one SurrealQL transaction. Record ids and the
// conflict messages are bound as variables so keys never reach the query text.
func batchQuery(ops []models.BatchOp) (string, map[string]any) {
	var sb strings.Builder
	vars := make(map[string]any, len(ops)*4)
	sb.WriteString("BEGIN TRANSACTION;\n")
	for i, op := range ops {
		rid := fmt.Sprintf("rid%d", i)
		vars[rid] = recordID(op.Record.Collection, op.Record.Key)

		if op.Guard {
			expect := op.ExpectVersion
			if op.Kind == models.BatchPut {
				expect = op.Record.Version - 1
			}
			exp := fmt.Sprintf("expect%d", i)
			msg := fmt.Sprintf("msg%d", i)
			vars[exp] = expect
			vars[msg] = fmt.Sprintf("%s: %s/%s", conflictMarker, op.Record.Collection, op.Record.Key)
			fmt.Fprintf(&sb, "IF (((SELECT VALUE version FROM $%s)[0] ?? 0) != $%s) { THROW $%s };\n", rid, exp, msg)
		}

		switch op.Kind {
		case models.BatchPut:
			rec := fmt.Sprintf("rec%d", i)
			vars[rec] = op.Record
			fmt.Fprintf(&sb, "UPSERT $%s CONTENT $%s;\n", rid, rec)
		case models.BatchDelete:
			fmt.Fprintf(&sb, "DELETE $%s;\n", rid)
		}
	}
	sb.WriteString("COMMIT TRANSACTION;")
	return sb.String(), vars
}
