package badger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bobmcallan/partsdesk/internal/common"
	"github.com/bobmcallan/partsdesk/internal/interfaces"
	"github.com/bobmcallan/partsdesk/internal/models"
)

// --- Test helpers ---

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(testLogger(), filepath.Join(dir, "badger"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testLogger() *common.Logger {
	return common.NewLogger("error")
}

// --- Store tests ---

func TestStore_OpenClose(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(testLogger(), filepath.Join(dir, "badger"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if store.DB() == nil {
		t.Fatal("expected non-nil DB")
	}
	if store.Backend() != "badger" {
		t.Errorf("Backend = %q, want badger", store.Backend())
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestStore_CloseNilDB(t *testing.T) {
	store := &Store{}
	if err := store.Close(); err != nil {
		t.Fatalf("Close on nil DB should not error: %v", err)
	}
}

// --- Internal store tests ---

func TestInternalStore_Users(t *testing.T) {
	store := newTestStore(t)
	is := store.InternalStore()
	ctx := context.Background()

	_, err := is.GetUser(ctx, "owner")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	for _, u := range []*models.User{
		{UserID: "owner", Email: "owner@shop.test", Role: common.RoleAdmin},
		{UserID: "counter", Role: common.RoleCashier},
	} {
		if err := is.SaveUser(ctx, u); err != nil {
			t.Fatalf("SaveUser failed: %v", err)
		}
	}

	got, err := is.GetUser(ctx, "owner")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Email != "owner@shop.test" {
		t.Errorf("Email = %q", got.Email)
	}

	users, err := is.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 2 || users[0].UserID != "counter" {
		t.Fatalf("unexpected users: %+v", users)
	}

	if err := is.DeleteUser(ctx, "counter"); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if err := is.DeleteUser(ctx, "counter"); err != nil {
		t.Fatalf("second DeleteUser should be a no-op: %v", err)
	}
}

func TestInternalStore_SystemKV(t *testing.T) {
	store := newTestStore(t)
	is := store.InternalStore()
	ctx := context.Background()

	if _, err := is.GetSystemKV(ctx, "admin_bootstrapped"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := is.SetSystemKV(ctx, "admin_bootstrapped", "true"); err != nil {
		t.Fatalf("SetSystemKV failed: %v", err)
	}
	v, err := is.GetSystemKV(ctx, "admin_bootstrapped")
	if err != nil || v != "true" {
		t.Fatalf("GetSystemKV = %q, %v", v, err)
	}
}

// --- Record store tests ---

func TestRecordStore_CRUD(t *testing.T) {
	store := newTestStore(t)
	rs := store.RecordStore()
	ctx := context.Background()

	rec := &models.Record{Collection: models.CollProduct, Key: "p1", Value: `{"sku":"OF-1"}`, Version: 1}
	if err := rs.Put(ctx, rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := rs.Get(ctx, models.CollProduct, "p1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Value != rec.Value {
		t.Errorf("Value = %q, want %q", got.Value, rec.Value)
	}

	if err := rs.Delete(ctx, models.CollProduct, "p1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := rs.Delete(ctx, models.CollProduct, "p1"); err != nil {
		t.Fatalf("Delete should be idempotent: %v", err)
	}
	if _, err := rs.Get(ctx, models.CollProduct, "p1"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRecordStore_ListFiltering(t *testing.T) {
	store := newTestStore(t)
	rs := store.RecordStore()
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 6; i++ {
		ref := "dealer:exide"
		if i >= 4 {
			ref = "dealer:amaron"
		}
		if err := rs.Put(ctx, &models.Record{
			Collection: models.CollLedger,
			Key:        fmt.Sprintf("l%d", i),
			Ref:        ref,
			Version:    1,
			DateTime:   base.AddDate(0, 0, i),
		}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	if err := rs.Put(ctx, &models.Record{Collection: models.CollPurchase, Key: "x", Ref: "dealer:exide", Version: 1}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	exide, err := rs.List(ctx, models.CollLedger, interfaces.QueryOptions{Ref: "dealer:exide"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(exide) != 4 {
		t.Fatalf("expected 4 exide entries, got %d", len(exide))
	}
	if exide[0].Key != "l3" {
		t.Errorf("newest first: got %s", exide[0].Key)
	}

	since := base.AddDate(0, 0, 2)
	until := base.AddDate(0, 0, 5)
	window, err := rs.List(ctx, models.CollLedger, interfaces.QueryOptions{Since: &since, Until: &until, OrderBy: "datetime_asc"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(window) != 3 || window[0].Key != "l2" || window[2].Key != "l4" {
		t.Fatalf("unexpected window: %v", keys(window))
	}
}

func TestRecordStore_ApplyGuards(t *testing.T) {
	store := newTestStore(t)
	rs := store.RecordStore()
	ctx := context.Background()

	if err := rs.Put(ctx, &models.Record{Collection: models.CollProduct, Key: "bat", Version: 1}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	stale := []models.BatchOp{
		{Kind: models.BatchPut, Record: &models.Record{Collection: models.CollClaim, Key: "c1", Version: 1}, Guard: true},
		{Kind: models.BatchPut, Record: &models.Record{Collection: models.CollProduct, Key: "bat", Version: 1}, Guard: true},
	}
	if err := rs.Apply(ctx, stale); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := rs.Get(ctx, models.CollClaim, "c1"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("claim must not exist after failed batch, got %v", err)
	}

	stale[1].Record.Version = 2
	if err := rs.Apply(ctx, stale); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	del := []models.BatchOp{
		{Kind: models.BatchDelete, Record: &models.Record{Collection: models.CollClaim, Key: "c1"}, Guard: true, ExpectVersion: 1},
		{Kind: models.BatchDelete, Record: &models.Record{Collection: models.CollClaim, Key: "never-existed"}},
	}
	if err := rs.Apply(ctx, del); err != nil {
		t.Fatalf("Apply delete failed: %v", err)
	}
	if _, err := rs.Get(ctx, models.CollClaim, "c1"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected claim deleted, got %v", err)
	}
}

func TestRecordStore_ConcurrentGuardedPuts(t *testing.T) {
	store := newTestStore(t)
	rs := store.RecordStore()
	ctx := context.Background()

	if err := rs.Put(ctx, &models.Record{Collection: models.CollCounter, Key: "sale-2026", Version: 1}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Every writer claims version 2; exactly one may win.
	const writers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := rs.Apply(ctx, []models.BatchOp{{
				Kind:   models.BatchPut,
				Record: &models.Record{Collection: models.CollCounter, Key: "sale-2026", Version: 2},
				Guard:  true,
			}})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else if !errors.Is(err, models.ErrConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func keys(records []*models.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Key
	}
	return out
}
