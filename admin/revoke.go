package admin

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis"
)

// Revoker remembers session ids that were logged out until they would have expired anyway.
type Revoker interface {
	Revoke(ctx context.Context, id string, ttl time.Duration) error
	IsRevoked(ctx context.Context, id string) (bool, error)
}

// MemoryRevoker keeps revocations in process memory.
type MemoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	Now     func() time.Time
}

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{revoked: map[string]time.Time{}, Now: time.Now}
}

func (m *MemoryRevoker) Revoke(_ context.Context, id string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Now()
	for k, until := range m.revoked {
		if !until.After(now) {
			delete(m.revoked, k)
		}
	}
	m.revoked[id] = now.Add(ttl)
	return nil
}

func (m *MemoryRevoker) IsRevoked(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.revoked[id]
	return ok && until.After(m.Now()), nil
}

// redisClient is the subset of *redis.Client the revoker uses.
type redisClient interface {
	Get(key string) *redis.StringCmd
	Set(key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisRevoker stores revocations in Redis with a TTL, so they survive restarts and are shared
// by every process pointing at the same server. go-redis v6 commands take no context.
type RedisRevoker struct {
	client redisClient
	prefix string
}

func NewRedisRevoker(client redisClient) *RedisRevoker {
	return &RedisRevoker{client: client, prefix: "dz:revoked:"}
}

// DialRedis connects to url (redis://host:port/db) and checks the connection.
func DialRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping().Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (r *RedisRevoker) Revoke(_ context.Context, id string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(r.prefix+id, "1", ttl).Err()
}

func (r *RedisRevoker) IsRevoked(_ context.Context, id string) (bool, error) {
	_, err := r.client.Get(r.prefix + id).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
