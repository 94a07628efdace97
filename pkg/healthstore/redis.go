package healthstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore publishes snapshots to Redis so dashboards on other nodes can
// read provider health without touching the engine process.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	mu     sync.RWMutex
	closed bool
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Prefix is the key prefix (default "agentexec:health:").
	Prefix string
	// TTL is the snapshot expiry (0 = never expire).
	TTL time.Duration
}

// NewRedisStore creates a Redis-backed store and verifies connectivity.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newRedisStore(client, cfg.Prefix, cfg.TTL), nil
}

// NewRedisStoreFromClient wraps an existing client. Useful for testing with
// miniredis.
func NewRedisStoreFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return newRedisStore(client, prefix, ttl)
}

func newRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "agentexec:health:"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *RedisStore) snapKey(providerID string) string {
	return s.prefix + "provider:" + providerID
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "providers"
}

// Save replaces the stored snapshot for each provider in snaps.
func (s *RedisStore) Save(ctx context.Context, snaps []Snapshot) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrStoreClosed
	}

	pipe := s.client.Pipeline()
	for _, snap := range snaps {
		snap.AvgLatencyMS = snap.AvgLatency.Milliseconds()
		data, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("marshal snapshot: %w", err)
		}
		pipe.Set(ctx, s.snapKey(snap.ProviderID), data, s.ttl)
		pipe.SAdd(ctx, s.indexKey(), snap.ProviderID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save snapshots: %w", err)
	}
	return nil
}

// Load returns the most recently saved snapshot per provider.
func (s *RedisStore) Load(ctx context.Context) ([]Snapshot, error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, ErrStoreClosed
	}

	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}

	out := make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		data, err := s.client.Get(ctx, s.snapKey(id)).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // expired; index entry is stale
		}
		if err != nil {
			return nil, fmt.Errorf("load snapshot %s: %w", id, err)
		}
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot %s: %w", id, err)
		}
		snap.AvgLatency = time.Duration(snap.AvgLatencyMS) * time.Millisecond
		out = append(out, snap)
	}
	return out, nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}
