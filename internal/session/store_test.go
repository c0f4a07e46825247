package session

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/solardash/internal/dataset"
)

func table(t *testing.T) *dataset.Table {
	t.Helper()
	tbl, err := dataset.LoadReader("s.csv", strings.NewReader("Country,GHI\nKenya,1\nTogo,2\n"), dataset.Options{})
	require.NoError(t, err)
	return tbl
}

// fakeClock lets tests move time forward.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(ttl time.Duration, max int) (*Store, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(ttl, max)
	s.now = clock.now
	return s, clock
}

func TestStore_PutGet(t *testing.T) {
	s, _ := newTestStore(time.Hour, 4)
	tbl := table(t)

	id := s.Put("upload.csv", tbl)
	_, err := uuid.Parse(id)
	require.NoError(t, err, "ids are UUIDs")

	got, info, ok := s.Get(id)
	require.True(t, ok)
	assert.Same(t, tbl, got)
	assert.Equal(t, "upload.csv", info.Name)
	assert.Equal(t, 2, info.Rows)

	_, _, ok = s.Get("nope")
	assert.False(t, ok)
}

func TestStore_Expiry(t *testing.T) {
	s, clock := newTestStore(time.Hour, 4)
	stale := s.Put("stale.csv", table(t))

	clock.advance(45 * time.Minute)
	fresh := s.Put("fresh.csv", table(t))

	clock.advance(30 * time.Minute)
	assert.Equal(t, 1, s.Evict())
	assert.Equal(t, 1, s.Len())

	_, _, ok := s.Get(stale)
	assert.False(t, ok)
	_, _, ok = s.Get(fresh)
	assert.True(t, ok)
}

func TestStore_GetRefreshesTTL(t *testing.T) {
	s, clock := newTestStore(time.Hour, 4)
	id := s.Put("a.csv", table(t))

	for i := 0; i < 3; i++ {
		clock.advance(50 * time.Minute)
		_, _, ok := s.Get(id)
		require.True(t, ok, "access %d", i)
	}

	clock.advance(61 * time.Minute)
	_, _, ok := s.Get(id)
	assert.False(t, ok)
}

func TestStore_CapacityDropsLeastRecentlyUsed(t *testing.T) {
	s, clock := newTestStore(time.Hour, 2)

	a := s.Put("a.csv", table(t))
	clock.advance(time.Minute)
	b := s.Put("b.csv", table(t))
	clock.advance(time.Minute)
	_, _, _ = s.Get(a)
	clock.advance(time.Minute)
	c := s.Put("c.csv", table(t))

	assert.Equal(t, 2, s.Len())
	_, _, ok := s.Get(b)
	assert.False(t, ok, "b was least recently used")
	_, _, ok = s.Get(a)
	assert.True(t, ok)
	_, _, ok = s.Get(c)
	assert.True(t, ok)
}

func TestStore_ListAndDelete(t *testing.T) {
	s, clock := newTestStore(time.Hour, 4)
	a := s.Put("a.csv", table(t))
	clock.advance(time.Minute)
	b := s.Put("b.csv", table(t))

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, b, list[0].ID)
	assert.Equal(t, a, list[1].ID)

	assert.True(t, s.Delete(a))
	assert.False(t, s.Delete("missing"))
	assert.Equal(t, 1, s.Len())
}
