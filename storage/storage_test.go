package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/qdcore/config"
	"github.com/nathoo/qdcore/engine"
	"github.com/nathoo/qdcore/logger"
	"github.com/nathoo/qdcore/types"
)

func init() { logger.Discard() }

// Every backend is usable as the engine's save store.
var (
	_ engine.Store = (*FileStore)(nil)
	_ engine.Store = (*RedisStore)(nil)
	_ engine.Store = (*PostgresStore)(nil)
)

func setupRedis(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), "redis://"+mr.Addr(), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	rs, _ := setupRedis(t, 0)

	stores := map[string]Store{"file": fs, "redis": rs}
	if dsn := os.Getenv("QDCORE_TEST_POSTGRES_DSN"); dsn != "" {
		ps, err := NewPostgresStore(context.Background(), dsn)
		require.NoError(t, err)
		t.Cleanup(func() {
			ps.db.Exec(`DELETE FROM save_slots`)
			ps.Close()
		})
		stores["postgres"] = ps
	}
	return stores
}

func TestStore_PutGet(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, 3, []byte("QDSV first")))
			require.NoError(t, s.Put(ctx, 3, []byte("QDSV second")))

			got, err := s.Get(ctx, 3)
			require.NoError(t, err)
			assert.Equal(t, "QDSV second", string(got))

			_, err = s.Get(ctx, 4)
			assert.ErrorIs(t, err, ErrSlotNotFound)

			assert.Error(t, s.Put(ctx, -1, []byte("x")))
		})
	}
}

func TestStore_ListDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, 2, []byte("bb")))
			require.NoError(t, s.Put(ctx, 0, []byte("a")))

			slots, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, slots, 2)
			assert.Equal(t, 0, slots[0].Number)
			assert.Equal(t, 2, slots[1].Number)
			assert.Equal(t, 2, slots[1].Size)
			assert.NotEqual(t, slots[0].ID, slots[1].ID)
			assert.False(t, slots[0].SavedAt.IsZero())

			require.NoError(t, s.Delete(ctx, 2))
			assert.ErrorIs(t, s.Delete(ctx, 2), ErrSlotNotFound)

			slots, err = s.List(ctx)
			require.NoError(t, err)
			assert.Len(t, slots, 1)
		})
	}
}

func TestRedisStore_TTL(t *testing.T) {
	ctx := context.Background()
	s, mr := setupRedis(t, time.Minute)

	require.NoError(t, s.Put(ctx, 1, []byte("data")))
	mr.FastForward(2 * time.Minute)

	_, err := s.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrSlotNotFound)

	slots, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, slots)
	assert.False(t, mr.Exists(redisIndexKey), "expired slot should leave the index")
}

func TestNewRedisStore_BadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not a url", 0)
	assert.Error(t, err)
}

func TestFileStore_IgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "slot_x.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "slot_5.json"), []byte("garbage"), 0o644))

	slots, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestOpen(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Dir = filepath.Join(t.TempDir(), "saves")

	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	mr := miniredis.RunT(t)
	cfg.Storage.Backend = "redis"
	cfg.Storage.RedisURL = "redis://" + mr.Addr()
	s, err = Open(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)
	s.Close()

	cfg.Storage.Backend = "tape"
	_, err = Open(context.Background(), cfg)
	assert.Error(t, err)
}

func TestEngineSaveThroughStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	e, err := engine.New(minimalGame(), 1)
	require.NoError(t, err)
	e.Store = s

	require.NoError(t, e.SaveSlot(ctx, 0))
	require.NoError(t, e.LoadSlot(ctx, 0))
	assert.ErrorIs(t, e.LoadSlot(ctx, 9), ErrSlotNotFound)
}

func minimalGame() *types.GameDef {
	return &types.GameDef{
		Title:      "t",
		StartScene: "room",
		Scenes:     []types.SceneDef{{Name: "room", GridSize: [2]int{2, 2}, CellSize: 1}},
	}
}
