// internal/common/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"contract-wizard/internal/common/config"
	"contract-wizard/internal/models"

	"github.com/redis/go-redis/v9"
)

// SnapshotStore persists the crash-recovery snapshot. The wizard writes it
// wholesale after every successful autosave and deletes it when a draft is
// finalized.
type SnapshotStore interface {
	Save(ctx context.Context, snap *models.Snapshot) error
	Load(ctx context.Context) (*models.Snapshot, error)
	Clear(ctx context.Context) error
}

// ErrNoSnapshot is returned by Load when no snapshot exists.
var ErrNoSnapshot = fmt.Errorf("no wizard snapshot present")

// RedisStore backs SnapshotStore with Redis.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisStore creates a snapshot store over a new Redis connection.
func NewRedisStore(cfg config.CacheConfig) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Address,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	return NewRedisStoreWithClient(rdb, cfg)
}

// NewRedisStoreWithClient wraps an existing client (used by tests).
func NewRedisStoreWithClient(rdb *redis.Client, cfg config.CacheConfig) *RedisStore {
	key := cfg.SnapshotKey
	if key == "" {
		key = "contractWizardDraft"
	}
	return &RedisStore{
		client: rdb,
		key:    key,
		ttl:    time.Duration(cfg.SnapshotTTL) * time.Second,
	}
}

// Ping tests the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Save overwrites the snapshot. Last writer wins.
func (s *RedisStore) Save(ctx context.Context, snap *models.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Load returns the current snapshot, or ErrNoSnapshot.
func (s *RedisStore) Load(ctx context.Context) (*models.Snapshot, error) {
	payload, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Clear removes the snapshot.
func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
