// Package session keeps uploaded datasets in memory between requests.
//
// Each upload gets a random id that the browser carries in the dashboard URL.
// Entries expire after a period without access, and the store holds at most a
// fixed number of datasets, dropping the least recently used one when full.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/solardash/internal/dataset"
)

// Info describes a stored dataset without exposing the table.
type Info struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Rows     int       `json:"rows"`
	LoadedAt time.Time `json:"loaded_at"`
	LastSeen time.Time `json:"last_seen"`
}

type entry struct {
	info  Info
	table *dataset.Table
}

// Store is a concurrency-safe map of dataset id to table.
type Store struct {
	ttl time.Duration
	max int
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// NewStore creates a store whose entries expire after ttl without access and
// which holds at most max tables.
func NewStore(ttl time.Duration, max int) *Store {
	if max <= 0 {
		max = 1
	}
	return &Store{
		ttl:     ttl,
		max:     max,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Put stores t under a new id and returns it.
func (s *Store) Put(name string, t *dataset.Table) string {
	id := uuid.New().String()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.entries) >= s.max {
		s.dropOldestLocked()
	}
	s.entries[id] = &entry{
		info:  Info{ID: id, Name: name, Rows: t.Len(), LoadedAt: now, LastSeen: now},
		table: t,
	}
	return id
}

// Get returns the table stored under id and marks it as used.
// Expired entries are reported as missing.
func (s *Store) Get(id string) (*dataset.Table, Info, bool) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, Info{}, false
	}
	if s.expired(e, now) {
		delete(s.entries, id)
		return nil, Info{}, false
	}
	e.info.LastSeen = now
	return e.table, e.info, true
}

// Delete removes id and reports whether it was present.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	return ok
}

// Evict removes every expired entry and returns how many were dropped.
func (s *Store) Evict() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, e := range s.entries {
		if s.expired(e, now) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// Len returns the number of stored datasets, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// List returns info on live entries, most recently used first.
func (s *Store) List() []Info {
	now := s.now()

	s.mu.Lock()
	out := make([]Info, 0, len(s.entries))
	for _, e := range s.entries {
		if !s.expired(e, now) {
			out = append(out, e.info)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastSeen.After(out[j].LastSeen)
	})
	return out
}

func (s *Store) expired(e *entry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.info.LastSeen) > s.ttl
}

func (s *Store) dropOldestLocked() {
	var oldest string
	var oldestSeen time.Time
	for id, e := range s.entries {
		if oldest == "" || e.info.LastSeen.Before(oldestSeen) {
			oldest, oldestSeen = id, e.info.LastSeen
		}
	}
	delete(s.entries, oldest)
}
