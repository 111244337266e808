// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/barcode-sync/pkg/types"
)

// --- test helpers ---

func openStore(t *testing.T, cfg types.CacheConfig) *Store {
	t.Helper()
	if cfg.Dir == "" {
		cfg.Dir = t.TempDir()
	}
	s, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func containers() []types.Record {
	return []types.Record{
		{"uri": "/repositories/2/top_containers/2", "indicator": "2", "type": "box"},
		{"uri": "/repositories/2/top_containers/1", "indicator": "1", "type": "box", "collection": []any{}},
	}
}

// --- tests ---

func TestKeys(t *testing.T) {
	assert.Equal(t, "alma:22123", AlmaKey("22123"))
	assert.Equal(t, "aspace:7", ASpaceKey(7))
}

func TestPutGet_PreservesOrder(t *testing.T) {
	s := openStore(t, types.CacheConfig{})
	ctx := context.Background()

	_, ok, err := s.Get(ctx, ASpaceKey(7))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, ASpaceKey(7), containers()))
	got, ok, err := s.Get(ctx, ASpaceKey(7))
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "/repositories/2/top_containers/2", got[0].String("uri"))
	assert.Equal(t, "1", got[1].String("indicator"))
}

func TestPut_Replaces(t *testing.T) {
	s := openStore(t, types.CacheConfig{})
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, AlmaKey("h1"), containers()))
	require.NoError(t, s.Put(ctx, AlmaKey("h1"), containers()[:1]))

	got, ok, err := s.Get(ctx, AlmaKey("h1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, got, 1)
}

func TestPut_Empty(t *testing.T) {
	s := openStore(t, types.CacheConfig{})
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, AlmaKey("empty"), nil))
	got, ok, err := s.Get(ctx, AlmaKey("empty"))
	require.NoError(t, err)
	assert.True(t, ok, "an empty snapshot is still a hit")
	assert.Empty(t, got)
}

func TestGet_Expired(t *testing.T) {
	s := openStore(t, types.CacheConfig{MaxAge: time.Hour})
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return base }
	require.NoError(t, s.Put(ctx, ASpaceKey(1), containers()))

	s.now = func() time.Time { return base.Add(30 * time.Minute) }
	_, ok, err := s.Get(ctx, ASpaceKey(1))
	require.NoError(t, err)
	assert.True(t, ok)

	s.now = func() time.Time { return base.Add(2 * time.Hour) }
	_, ok, err = s.Get(ctx, ASpaceKey(1))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListDeleteClear(t *testing.T) {
	s := openStore(t, types.CacheConfig{})
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, ASpaceKey(7), containers()))
	require.NoError(t, s.Put(ctx, AlmaKey("h1"), containers()[:1]))

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "alma:h1", entries[0].Key)
	assert.Equal(t, 1, entries[0].Count)
	assert.Equal(t, "aspace:7", entries[1].Key)
	assert.False(t, entries[1].FetchedAt.IsZero())

	deleted, err := s.Delete(ctx, AlmaKey("h1"))
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = s.Delete(ctx, AlmaKey("h1"))
	require.NoError(t, err)
	assert.False(t, deleted)

	n, err := s.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var records int
	require.NoError(t, s.db.QueryRow(`SELECT count(*) FROM records`).Scan(&records))
	assert.Zero(t, records, "records cascade with their snapshot")
}

func TestOpen_Locked(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, types.CacheConfig{Dir: dir})

	_, err := Open(types.CacheConfig{Dir: dir})
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, s.Close())
	again, err := Open(types.CacheConfig{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(types.CacheConfig{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, ASpaceKey(3), containers()))
	require.NoError(t, s.Close())

	s = openStore(t, types.CacheConfig{Dir: dir})
	got, ok, err := s.Get(ctx, ASpaceKey(3))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, got, 2)
}

func TestEntryExpired(t *testing.T) {
	now := time.Now()
	e := Entry{FetchedAt: now.Add(-2 * time.Hour)}
	assert.False(t, e.Expired(now, 0))
	assert.True(t, e.Expired(now, time.Hour))
	assert.False(t, e.Expired(now, 3*time.Hour))
}
