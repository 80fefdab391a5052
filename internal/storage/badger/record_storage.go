package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/bobmcallan/partsdesk/internal/interfaces"
	"github.com/bobmcallan/partsdesk/internal/models"
	"github.com/bobmcallan/partsdesk/internal/storage/query"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

type recordStore struct {
	store *Store
}

func recordKey(collection, key string) string {
	return collection + "/" + key
}

func (s *recordStore) Get(_ context.Context, collection, key string) (*models.Record, error) {
	var rec models.Record
	err := s.store.db.Get(recordKey(collection, key), &rec)
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%s/%s: %w", collection, key, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get record %s/%s: %w", collection, key, err)
	}
	return &rec, nil
}

func (s *recordStore) Put(_ context.Context, record *models.Record) error {
	if err := s.store.db.Upsert(recordKey(record.Collection, record.Key), record); err != nil {
		return fmt.Errorf("failed to put record: %w", err)
	}
	return nil
}

func (s *recordStore) Delete(_ context.Context, collection, key string) error {
	err := s.store.db.Delete(recordKey(collection, key), models.Record{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete record %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *recordStore) List(_ context.Context, collection string, opts interfaces.QueryOptions) ([]*models.Record, error) {
	q := badgerhold.Where("Collection").Eq(collection).Index("Collection")
	if opts.Ref != "" {
		q = q.And("Ref").Eq(opts.Ref)
	}

	var found []models.Record
	if err := s.store.db.Find(&found, q); err != nil {
		return nil, fmt.Errorf("failed to list %s records: %w", collection, err)
	}

	records := make([]*models.Record, len(found))
	for i := range found {
		records[i] = &found[i]
	}
	return query.Apply(records, opts), nil
}

// Apply writes the batch in one badger transaction. Badger's optimistic
// concurrency turns a concurrent write to any key we read into badger.ErrConflict.
func (s *recordStore) Apply(_ context.Context, ops []models.BatchOp) error {
	if err := query.Validate(ops); err != nil {
		return err
	}

	err := s.store.db.Badger().Update(func(tx *badger.Txn) error {
		for _, op := range ops {
			key := recordKey(op.Record.Collection, op.Record.Key)

			current := 0
			var existing models.Record
			err := s.store.db.TxGet(tx, key, &existing)
			switch {
			case err == nil:
				current = existing.Version
			case !errors.Is(err, badgerhold.ErrNotFound):
				return fmt.Errorf("failed to read %s: %w", key, err)
			}

			if err := query.CheckGuard(op, current); err != nil {
				return err
			}

			switch op.Kind {
			case models.BatchPut:
				if err := s.store.db.TxUpsert(tx, key, op.Record); err != nil {
					return fmt.Errorf("failed to write %s: %w", key, err)
				}
			case models.BatchDelete:
				if current == 0 && errors.Is(err, badgerhold.ErrNotFound) {
					continue
				}
				if err := s.store.db.TxDelete(tx, key, models.Record{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
					return fmt.Errorf("failed to delete %s: %w", key, err)
				}
			}
		}
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		return fmt.Errorf("batch of %d ops: %w", len(ops), models.ErrConflict)
	}
	return err
}
