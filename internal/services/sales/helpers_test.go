package sales

import (
	"context"

	"github.com/bobmcallan/partsdesk/internal/services/txn"
)

func newBatch(ctx context.Context, f *fixture) *txn.Batch {
	return txn.New(ctx, f.sales.storage.RecordStore())
}
