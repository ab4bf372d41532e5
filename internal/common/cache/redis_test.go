// internal/common/cache/redis_test.go
package cache

import (
	"context"
	"testing"

	"contract-wizard/internal/common/config"
	"contract-wizard/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, cfg config.CacheConfig) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisStoreWithClient(rdb, cfg), mr
}

func TestRedisStore_SaveLoadClear(t *testing.T) {
	store, _ := newTestStore(t, config.CacheConfig{})
	ctx := context.Background()

	draft := models.NewProjectDraft()
	draft.ProjectName = "Juniper Flats"
	draft.Units[0].Price = 410000

	in := &models.Snapshot{
		ProjectData:    draft,
		CurrentStep:    4,
		CompletedSteps: []int{1, 2, 3},
		DraftProjectID: "proj-44",
	}
	require.NoError(t, store.Save(ctx, in))

	out, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Juniper Flats", out.ProjectData.ProjectName)
	assert.Equal(t, 410000.0, out.ProjectData.Units[0].Price)
	assert.Equal(t, 4, out.CurrentStep)
	assert.Equal(t, []int{1, 2, 3}, out.CompletedSteps)
	assert.Equal(t, "proj-44", out.DraftProjectID)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestRedisStore_LoadWithoutSnapshot(t *testing.T) {
	store, _ := newTestStore(t, config.CacheConfig{})

	_, err := store.Load(context.Background())

	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestRedisStore_LastWriterWins(t *testing.T) {
	store, _ := newTestStore(t, config.CacheConfig{})
	ctx := context.Background()

	first := models.NewProjectDraft()
	first.ProjectName = "First"
	require.NoError(t, store.Save(ctx, &models.Snapshot{ProjectData: first}))

	second := models.NewProjectDraft()
	second.ProjectName = "Second"
	require.NoError(t, store.Save(ctx, &models.Snapshot{ProjectData: second, CurrentStep: 7}))

	out, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Second", out.ProjectData.ProjectName)
	assert.Equal(t, 7, out.CurrentStep)
}

func TestRedisStore_DefaultKey(t *testing.T) {
	store, mr := newTestStore(t, config.CacheConfig{})
	require.NoError(t, store.Save(context.Background(), &models.Snapshot{}))

	assert.True(t, mr.Exists("contractWizardDraft"))
}

func TestRedisStore_CustomKeyAndTTL(t *testing.T) {
	store, mr := newTestStore(t, config.CacheConfig{SnapshotKey: "draft:alt", SnapshotTTL: 3600})
	require.NoError(t, store.Save(context.Background(), &models.Snapshot{}))

	assert.True(t, mr.Exists("draft:alt"))
	assert.Greater(t, mr.TTL("draft:alt").Seconds(), 0.0)
}
