// Package gate admits at most one quote delivery per chat per calendar day.
package gate

import (
	"sync"
	"time"
)

// Store keeps the last admitted delivery per chat. Implementations need not
// be safe for concurrent use; Gate serializes access.
type Store interface {
	Last(chatID int64) (time.Time, bool)
	Put(chatID int64, at time.Time)
}

// Gate decides admission by comparing calendar dates in a reference timezone.
// State is process-local; a restart re-admits everyone.
type Gate struct {
	mu    sync.Mutex
	loc   *time.Location
	store Store
}

// New returns a gate comparing days in loc. A nil loc means time.Local, a nil
// store means a fresh in-memory store.
func New(loc *time.Location, store Store) *Gate {
	if loc == nil {
		loc = time.Local
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &Gate{loc: loc, store: store}
}

// TryAdmit reports whether chatID may receive a delivery at now. Admission
// records now before returning, so a second request on the same day is denied
// even while the first delivery is still in flight.
func (g *Gate) TryAdmit(chatID int64, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if last, ok := g.store.Last(chatID); ok && g.sameDay(last, now) {
		return false
	}
	g.store.Put(chatID, now)
	return true
}

// Location returns the reference timezone.
func (g *Gate) Location() *time.Location {
	return g.loc
}

func (g *Gate) sameDay(a, b time.Time) bool {
	ay, am, ad := a.In(g.loc).Date()
	by, bm, bd := b.In(g.loc).Date()
	return ay == by && am == bm && ad == bd
}

// MemoryStore is the default Store backed by a map.
type MemoryStore struct {
	last map[int64]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{last: make(map[int64]time.Time)}
}

func (s *MemoryStore) Last(chatID int64) (time.Time, bool) {
	t, ok := s.last[chatID]
	return t, ok
}

func (s *MemoryStore) Put(chatID int64, at time.Time) {
	s.last[chatID] = at
}

func (s *MemoryStore) Len() int {
	return len(s.last)
}
