package store_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/tax-ledger/internal/store"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func newStore(t *testing.T) (*store.Store, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)}
	s, err := store.New(t.TempDir(), 24*time.Hour, store.WithClock(c.now))
	require.NoError(t, err)
	return s, c
}

func TestStore_CreateLookup(t *testing.T) {
	s, _ := newStore(t)

	e, err := s.Create([]byte("report"), "facturas.xlsx")
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, int64(6), e.Size)
	assert.Equal(t, ".xlsx", e.Path[len(e.Path)-5:])

	got, err := s.Lookup(e.ID)
	require.NoError(t, err)
	assert.Equal(t, e, got)

	data, err := os.ReadFile(got.Path)
	require.NoError(t, err)
	assert.Equal(t, "report", string(data))
}

func TestStore_LookupUnknown(t *testing.T) {
	s, _ := newStore(t)

	_, err := s.Lookup("../../etc/passwd")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Lookup("6f1c1f5e-1c39-4a47-9a39-0e6f1f5d2b11")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_Expire(t *testing.T) {
	s, c := newStore(t)

	old, err := s.Create([]byte("old"), "a.xlsx")
	require.NoError(t, err)

	c.t = c.t.Add(23 * time.Hour)
	fresh, err := s.Create([]byte("fresh"), "b.xlsx")
	require.NoError(t, err)

	c.t = c.t.Add(2 * time.Hour)
	_, err = s.Lookup(old.ID)
	assert.ErrorIs(t, err, store.ErrExpired)

	n, err := s.Expire(c.t)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = os.Stat(old.Path)
	assert.True(t, os.IsNotExist(err))

	_, err = s.Lookup(fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, store.Stats{Entries: 1, Bytes: 5}, s.Stats())
}
