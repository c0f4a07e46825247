// Package history records which datasets were loaded into the dashboard.
//
// Only metadata is kept (name, shape, size, identifier column). The tables
// themselves live in the session store and are never persisted.
package history

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultRecentLimit is used when Recent is called with a non-positive limit.
const DefaultRecentLimit = 50

// Entry is one recorded upload.
type Entry struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Rows     int       `json:"rows"`
	Columns  int       `json:"columns"`
	Bytes    int64     `json:"bytes"`
	IDColumn string    `json:"id_column"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Log stores upload entries.
type Log interface {
	Record(ctx context.Context, e Entry) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
	// Purge deletes entries loaded before cutoff and returns how many went.
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

// MemoryLog is a Log held in process memory. It is used when no database
// is configured.
type MemoryLog struct {
	mu      sync.RWMutex
	entries []Entry
	max     int
}

// NewMemoryLog keeps at most max entries, dropping the oldest first.
// max <= 0 means unbounded.
func NewMemoryLog(max int) *MemoryLog {
	return &MemoryLog{max: max}
}

func (m *MemoryLog) Record(_ context.Context, e Entry) error {
	if e.LoadedAt.IsZero() {
		e.LoadedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, e)
	if m.max > 0 && len(m.entries) > m.max {
		m.entries = append(m.entries[:0:0], m.entries[len(m.entries)-m.max:]...)
	}
	return nil
}

func (m *MemoryLog) Recent(_ context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	m.mu.RLock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LoadedAt.After(out[j].LoadedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryLog) Purge(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.entries[:0]
	var purged int64
	for _, e := range m.entries {
		if e.LoadedAt.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return purged, nil
}
