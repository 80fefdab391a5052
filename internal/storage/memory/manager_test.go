package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bobmcallan/partsdesk/internal/common"
	"github.com/bobmcallan/partsdesk/internal/interfaces"
	"github.com/bobmcallan/partsdesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordStore_PutGetDelete(t *testing.T) {
	m := NewManager(common.NewSilentLogger())
	store := m.RecordStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "product", "p1")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	require.NoError(t, store.Put(ctx, &models.Record{Collection: "product", Key: "p1", Value: `{"name":"Oil filter"}`, Version: 1}))
	got, err := store.Get(ctx, "product", "p1")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Oil filter"}`, got.Value)

	got.Value = "mutated"
	again, _ := store.Get(ctx, "product", "p1")
	assert.NotEqual(t, "mutated", again.Value, "stored records must not alias caller copies")

	require.NoError(t, store.Delete(ctx, "product", "p1"))
	require.NoError(t, store.Delete(ctx, "product", "p1"))
	_, err = store.Get(ctx, "product", "p1")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestRecordStore_ApplyAllOrNothing(t *testing.T) {
	m := NewManager(common.NewSilentLogger())
	store := m.RecordStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &models.Record{Collection: "product", Key: "bat", Version: 2}))

	ops := []models.BatchOp{
		{Kind: models.BatchPut, Record: &models.Record{Collection: "claim", Key: "c1", Version: 1}, Guard: true},
		{Kind: models.BatchPut, Record: &models.Record{Collection: "product", Key: "bat", Version: 2}, Guard: true}, // stale
	}
	err := store.Apply(ctx, ops)
	assert.True(t, errors.Is(err, models.ErrConflict))

	_, err = store.Get(ctx, "claim", "c1")
	assert.True(t, errors.Is(err, models.ErrNotFound), "claim must not be written when the batch fails")

	ops[1].Record.Version = 3
	require.NoError(t, store.Apply(ctx, ops))
	p, err := store.Get(ctx, "product", "bat")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Version)
}

func TestRecordStore_ListByRef(t *testing.T) {
	m := NewManager(common.NewSilentLogger())
	store := m.RecordStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

	for i, ref := range []string{"customer:a", "customer:b", "customer:a"} {
		require.NoError(t, store.Put(ctx, &models.Record{
			Collection: "ledger_entry",
			Key:        string(rune('x' + i)),
			Ref:        ref,
			DateTime:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := store.List(ctx, "ledger_entry", interfaces.QueryOptions{Ref: "customer:a"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "z", got[0].Key)
}

func TestInternalStore_Users(t *testing.T) {
	m := NewManager(common.NewSilentLogger())
	store := m.InternalStore()
	ctx := context.Background()

	require.NoError(t, store.SaveUser(ctx, &models.User{UserID: "ravi", Role: "cashier"}))
	require.NoError(t, store.SaveUser(ctx, &models.User{UserID: "anita", Role: "admin"}))

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "anita", users[0].UserID)

	require.NoError(t, store.DeleteUser(ctx, "ravi"))
	_, err = store.GetUser(ctx, "ravi")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	_, err = store.GetSystemKV(ctx, "schema_version")
	assert.Error(t, err)
	require.NoError(t, store.SetSystemKV(ctx, "schema_version", "1"))
	v, err := store.GetSystemKV(ctx, "schema_version")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}
