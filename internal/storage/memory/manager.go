// Package memory provides an in-process storage backend for tests and demos.
// Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bobmcallan/partsdesk/internal/common"
	"github.com/bobmcallan/partsdesk/internal/interfaces"
	"github.com/bobmcallan/partsdesk/internal/models"
	"github.com/bobmcallan/partsdesk/internal/storage/query"
)

// Manager implements interfaces.StorageManager in memory.
type Manager struct {
	mu       sync.RWMutex
	users    map[string]*models.User
	kv       map[string]string
	records  map[string]*models.Record
	logger   *common.Logger
	internal *internalStore
	docs     *recordStore
}

// NewManager creates an empty in-memory storage manager.
func NewManager(logger *common.Logger) *Manager {
	m := &Manager{
		users:   make(map[string]*models.User),
		kv:      make(map[string]string),
		records: make(map[string]*models.Record),
		logger:  logger,
	}
	m.internal = &internalStore{m: m}
	m.docs = &recordStore{m: m}
	return m
}

func (m *Manager) InternalStore() interfaces.InternalStore { return m.internal }
func (m *Manager) RecordStore() interfaces.RecordStore     { return m.docs }
func (m *Manager) Backend() string                         { return "memory" }
func (m *Manager) Close() error                            { return nil }

func recordKey(collection, key string) string {
	return collection + "/" + key
}

// clone returns a detached copy so callers never share stored pointers.
func clone(r *models.Record) *models.Record {
	c := *r
	return &c
}

type internalStore struct {
	m *Manager
}

func (s *internalStore) GetUser(_ context.Context, userID string) (*models.User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	u, ok := s.m.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", userID, models.ErrNotFound)
	}
	c := *u
	return &c, nil
}

func (s *internalStore) SaveUser(_ context.Context, user *models.User) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	c := *user
	s.m.users[user.UserID] = &c
	return nil
}

func (s *internalStore) DeleteUser(_ context.Context, userID string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	delete(s.m.users, userID)
	return nil
}

func (s *internalStore) ListUsers(_ context.Context) ([]*models.User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	users := make([]*models.User, 0, len(s.m.users))
	for _, u := range s.m.users {
		c := *u
		users = append(users, &c)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return users, nil
}

func (s *internalStore) GetSystemKV(_ context.Context, key string) (string, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	v, ok := s.m.kv[key]
	if !ok {
		return "", fmt.Errorf("system KV %q: %w", key, models.ErrNotFound)
	}
	return v, nil
}

func (s *internalStore) SetSystemKV(_ context.Context, key, value string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.kv[key] = value
	return nil
}

type recordStore struct {
	m *Manager
}

func (s *recordStore) Get(_ context.Context, collection, key string) (*models.Record, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	r, ok := s.m.records[recordKey(collection, key)]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, key, models.ErrNotFound)
	}
	return clone(r), nil
}

func (s *recordStore) Put(_ context.Context, record *models.Record) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.records[recordKey(record.Collection, record.Key)] = clone(record)
	return nil
}

func (s *recordStore) Delete(_ context.Context, collection, key string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	delete(s.m.records, recordKey(collection, key))
	return nil
}

func (s *recordStore) List(_ context.Context, collection string, opts interfaces.QueryOptions) ([]*models.Record, error) {
	s.m.mu.RLock()
	var out []*models.Record
	for _, r := range s.m.records {
		if r.Collection == collection {
			out = append(out, clone(r))
		}
	}
	s.m.mu.RUnlock()
	return query.Apply(out, opts), nil
}

// Apply checks every guard under the write lock before writing anything.
func (s *recordStore) Apply(_ context.Context, ops []models.BatchOp) error {
	if err := query.Validate(ops); err != nil {
		return err
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	// Guards see the effect of earlier ops in the same batch.
	staged := make(map[string]*models.Record)
	lookup := func(k string) (*models.Record, bool) {
		if r, ok := staged[k]; ok {
			return r, r != nil
		}
		r, ok := s.m.records[k]
		return r, ok
	}

	for _, op := range ops {
		k := recordKey(op.Record.Collection, op.Record.Key)
		current := 0
		if r, ok := lookup(k); ok {
			current = r.Version
		}
		if err := query.CheckGuard(op, current); err != nil {
			return err
		}
		if op.Kind == models.BatchPut {
			staged[k] = clone(op.Record)
		} else {
			staged[k] = nil
		}
	}

	for k, r := range staged {
		if r == nil {
			delete(s.m.records, k)
			continue
		}
		s.m.records[k] = r
	}
	return nil
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
