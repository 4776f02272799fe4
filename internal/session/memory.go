//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package session

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps sessions in process memory with a TTL. Idle
// sessions expire and are purged in the background. Get and Put work
// on copies, so a session held by a caller never aliases the stored
// one.
type MemoryStore struct {
	cache *cache.Cache
}

// NewMemoryStore creates an in-memory session store. Sessions expire
// after ttl of inactivity; ttl <= 0 uses DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	purge := ttl / 6
	if purge < time.Minute {
		purge = time.Minute
	}
	return &MemoryStore{
		cache: cache.New(ttl, purge),
	}
}

// Get returns a copy of the stored session.
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	v, ok := m.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	s, ok := v.(*Session)
	if !ok {
		return nil, ErrNotFound
	}
	return s.clone(), nil
}

// Put saves a copy of the session and refreshes its TTL.
func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	s.UpdatedAt = time.Now().UTC()
	m.cache.Set(s.ID, s.clone(), cache.DefaultExpiration)
	return nil
}

// Delete removes a session.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.cache.Delete(id)
	return nil
}

// List returns the IDs of all live sessions.
func (m *MemoryStore) List(_ context.Context) ([]string, error) {
	items := m.cache.Items()
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	return ids, nil
}

// Count returns the number of live sessions.
func (m *MemoryStore) Count() int {
	return m.cache.ItemCount()
}

var _ Store = (*MemoryStore)(nil)
