package txn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bobmcallan/partsdesk/internal/common"
	"github.com/bobmcallan/partsdesk/internal/interfaces"
	"github.com/bobmcallan/partsdesk/internal/models"
	"github.com/bobmcallan/partsdesk/internal/storage/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore() interfaces.RecordStore {
	return memory.NewManager(common.NewSilentLogger()).RecordStore()
}

func seedProduct(t *testing.T, store interfaces.RecordStore, stock int) *models.Product {
	t.Helper()
	ctx := context.Background()
	b := New(ctx, store)
	p := &models.Product{ID: NewID(), Kind: models.KindBattery, Name: "Exide 65Ah", SKU: "EX-65"}
	b.AddProduct(p)
	require.NoError(t, b.MoveStock(p, stock, models.MoveOpening, "", "", "opening stock"))
	require.NoError(t, b.Commit(ctx))
	return p
}

func TestMoveStock_WritesMovementAndProduct(t *testing.T) {
	store := newStore()
	ctx := context.Background()
	p := seedProduct(t, store, 3)

	b := New(ctx, store)
	loaded, err := b.Product(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Version)
	require.NoError(t, b.MoveStock(loaded, -2, models.MoveSale, "sale", "s1", ""))
	require.NoError(t, b.Commit(ctx))

	var got models.Product
	version, err := Load(ctx, store, models.CollProduct, p.ID, &got)
	require.NoError(t, err)
	assert.Equal(t, 2, version)
	assert.Equal(t, 1, got.Stock)

	moves, err := List[models.StockMovement](ctx, store, models.CollStockMovement, interfaces.QueryOptions{Ref: p.ID})
	require.NoError(t, err)
	require.Len(t, moves, 2)
	assert.Equal(t, models.MoveSale, moves[0].Type)
	assert.Equal(t, 3, moves[0].StockBefore)
	assert.Equal(t, 1, moves[0].StockAfter)
}

func TestMoveStock_Insufficient(t *testing.T) {
	store := newStore()
	ctx := context.Background()
	p := seedProduct(t, store, 1)

	b := New(ctx, store)
	loaded, err := b.Product(ctx, p.ID)
	require.NoError(t, err)
	err = b.MoveStock(loaded, -2, models.MoveSale, "sale", "s1", "")
	assert.True(t, errors.Is(err, models.ErrInsufficientStock))
	assert.Equal(t, 1, loaded.Stock)
}

func TestPost_RunningBalance(t *testing.T) {
	store := newStore()
	ctx := context.Background()

	b := New(ctx, store)
	c := &models.Party{ID: "c1", Kind: models.PartyCustomer, Name: "Ramesh"}
	b.AddParty(c)
	require.NoError(t, b.Post(c, decimal.NewFromInt(500), models.LedgerCharge, "sale", "s1", "INV-2026-0001", time.Time{}))
	require.NoError(t, b.Post(c, decimal.NewFromInt(-200), models.LedgerPayment, "", "", "cash", time.Time{}))
	require.NoError(t, b.Post(c, decimal.Zero, models.LedgerAdjustment, "", "", "noop", time.Time{}))
	require.NoError(t, b.Commit(ctx))

	entries, err := List[models.LedgerEntry](ctx, store, models.CollLedger, interfaces.QueryOptions{Ref: models.PartyRef(models.PartyCustomer, "c1")})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// newest first; V7 ids keep posting order within one timestamp
	assert.Equal(t, models.LedgerPayment, entries[0].Type)
	assert.True(t, entries[0].BalanceAfter.Equal(decimal.NewFromInt(300)))
	assert.True(t, entries[1].BalanceAfter.Equal(decimal.NewFromInt(500)))

	var got models.Party
	_, err = Load(ctx, store, models.CollCustomer, "c1", &got)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(300)))
}

func TestNextNumber_Sequential(t *testing.T) {
	store := newStore()
	ctx := context.Background()
	date := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	b := New(ctx, store)
	n1, err := b.NextNumber(ctx, models.CollSale, date)
	require.NoError(t, err)
	n2, err := b.NextNumber(ctx, models.CollSale, date)
	require.NoError(t, err)
	require.NoError(t, b.Commit(ctx))
	assert.Equal(t, "INV-2026-0001", n1)
	assert.Equal(t, "INV-2026-0002", n2)

	b = New(ctx, store)
	n3, err := b.NextNumber(ctx, models.CollSale, date)
	require.NoError(t, err)
	nextYear, err := b.NextNumber(ctx, models.CollSale, date.AddDate(1, 0, 0))
	require.NoError(t, err)
	claim, err := b.NextNumber(ctx, models.CollClaim, date)
	require.NoError(t, err)
	require.NoError(t, b.Commit(ctx))
	assert.Equal(t, "INV-2026-0003", n3)
	assert.Equal(t, "INV-2027-0001", nextYear)
	assert.Equal(t, "CLM-2026-0001", claim)

	_, err = b.NextNumber(ctx, models.CollExpense, date)
	assert.True(t, errors.Is(err, models.ErrInvalid))
}

func TestCommit_ConflictOnStaleRead(t *testing.T) {
	store := newStore()
	ctx := context.Background()
	p := seedProduct(t, store, 5)

	first := New(ctx, store)
	second := New(ctx, store)

	p1, err := first.Product(ctx, p.ID)
	require.NoError(t, err)
	p2, err := second.Product(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, first.MoveStock(p1, -1, models.MoveSale, "sale", "a", ""))
	require.NoError(t, second.MoveStock(p2, -1, models.MoveSale, "sale", "b", ""))
	require.NoError(t, second.Put(models.CollSale, "b", "", second.Now(), map[string]string{"id": "b"}))

	require.NoError(t, first.Commit(ctx))
	err = second.Commit(ctx)
	assert.True(t, errors.Is(err, models.ErrConflict))

	_, err = store.Get(ctx, models.CollSale, "b")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestRetry_RebuildsOnConflict(t *testing.T) {
	store := newStore()
	ctx := context.Background()
	p := seedProduct(t, store, 5)

	calls := 0
	err := Retry(ctx, 3, func() error {
		calls++
		b := New(ctx, store)
		loaded, err := b.Product(ctx, p.ID)
		if err != nil {
			return err
		}
		if calls == 1 {
			// A concurrent sale lands between our read and our commit.
			other := New(ctx, store)
			op, _ := other.Product(ctx, p.ID)
			require.NoError(t, other.MoveStock(op, -1, models.MoveSale, "sale", "x", ""))
			require.NoError(t, other.Commit(ctx))
		}
		if err := b.MoveStock(loaded, -1, models.MoveSale, "sale", "y", ""); err != nil {
			return err
		}
		return b.Commit(ctx)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	var got models.Product
	_, err = Load(ctx, store, models.CollProduct, p.ID, &got)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)
}

func TestRetry_StopsOnOtherErrors(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, func() error {
		calls++
		return models.ErrInvalid
	})
	assert.True(t, errors.Is(err, models.ErrInvalid))
	assert.Equal(t, 1, calls)
}

func TestDocumentPutGuardedAfterLoad(t *testing.T) {
	store := newStore()
	ctx := context.Background()

	b := New(ctx, store)
	require.NoError(t, b.Put(models.CollExpense, "e1", "", b.Now(), map[string]string{"description": "rent"}))
	require.NoError(t, b.Commit(ctx))

	// A second create with the same key must not overwrite.
	dup := New(ctx, store)
	require.NoError(t, dup.Put(models.CollExpense, "e1", "", dup.Now(), map[string]string{"description": "dup"}))
	assert.True(t, errors.Is(dup.Commit(ctx), models.ErrConflict))

	upd := New(ctx, store)
	var doc map[string]string
	require.NoError(t, upd.Load(ctx, models.CollExpense, "e1", &doc))
	doc["description"] = "shop rent"
	require.NoError(t, upd.Put(models.CollExpense, "e1", "", upd.Now(), doc))
	require.NoError(t, upd.Commit(ctx))

	del := New(ctx, store)
	require.NoError(t, del.Load(ctx, models.CollExpense, "e1", &doc))
	del.Delete(models.CollExpense, "e1")
	require.NoError(t, del.Commit(ctx))
	_, err := store.Get(ctx, models.CollExpense, "e1")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}
