// Package query holds the record filtering and batch guard rules shared by
// the storage backends that evaluate queries in process.
package query

import (
	"fmt"
	"sort"

	"github.com/bobmcallan/partsdesk/internal/interfaces"
	"github.com/bobmcallan/partsdesk/internal/models"
)

// Match reports whether rec satisfies the Ref and date bounds of opts.
func Match(rec *models.Record, opts interfaces.QueryOptions) bool {
	if opts.Ref != "" && rec.Ref != opts.Ref {
		return false
	}
	if opts.Since != nil && rec.DateTime.Before(*opts.Since) {
		return false
	}
	if opts.Until != nil && !rec.DateTime.Before(*opts.Until) {
		return false
	}
	return true
}

// Apply filters, orders and limits records in place and returns the result.
// Ties on DateTime are broken by Key so listings are deterministic.
func Apply(records []*models.Record, opts interfaces.QueryOptions) []*models.Record {
	out := records[:0]
	for _, r := range records {
		if Match(r, opts) {
			out = append(out, r)
		}
	}

	asc := opts.OrderBy == "datetime_asc"
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.DateTime.Equal(b.DateTime) {
			if asc {
				return a.DateTime.Before(b.DateTime)
			}
			return a.DateTime.After(b.DateTime)
		}
		if asc {
			return a.Key < b.Key
		}
		return a.Key > b.Key
	})

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

// CheckGuard validates a batch op against the currently stored version
// (0 when the record is absent). It returns a wrapped models.ErrConflict on mismatch.
func CheckGuard(op models.BatchOp, current int) error {
	if !op.Guard {
		return nil
	}
	want := op.ExpectVersion
	if op.Kind == models.BatchPut {
		want = op.Record.Version - 1
	}
	if current != want {
		return fmt.Errorf("%s/%s at version %d, expected %d: %w",
			op.Record.Collection, op.Record.Key, current, want, models.ErrConflict)
	}
	return nil
}

// Validate rejects malformed ops before any backend work starts.
func Validate(ops []models.BatchOp) error {
	for i, op := range ops {
		if op.Record == nil || op.Record.Collection == "" || op.Record.Key == "" {
			return fmt.Errorf("batch op %d: record collection and key are required: %w", i, models.ErrInvalid)
		}
		if op.Kind != models.BatchPut && op.Kind != models.BatchDelete {
			return fmt.Errorf("batch op %d: unknown kind %q: %w", i, op.Kind, models.ErrInvalid)
		}
	}
	return nil
}
