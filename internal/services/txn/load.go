package txn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bobmcallan/partsdesk/internal/interfaces"
	"github.com/bobmcallan/partsdesk/internal/models"
)

// Load reads one document into v and returns its stored version.
func Load(ctx context.Context, store interfaces.RecordStore, collection, key string, v any) (int, error) {
	rec, err := store.Get(ctx, collection, key)
	if err != nil {
		return 0, err
	}
	if err := json.Unmarshal([]byte(rec.Value), v); err != nil {
		return 0, fmt.Errorf("failed to unmarshal %s/%s: %w", collection, key, err)
	}
	return rec.Version, nil
}

// List decodes every record of a collection matching opts.
func List[T any](ctx context.Context, store interfaces.RecordStore, collection string, opts interfaces.QueryOptions) ([]*T, error) {
	recs, err := store.List(ctx, collection, opts)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(recs))
	for _, rec := range recs {
		v := new(T)
		if err := json.Unmarshal([]byte(rec.Value), v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s/%s: %w", collection, rec.Key, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Retry runs fn up to attempts times while it fails with models.ErrConflict.
// fn must build a fresh Batch on every call.
func Retry(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = fn()
		if !errors.Is(err, models.ErrConflict) {
			return err
		}
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}
