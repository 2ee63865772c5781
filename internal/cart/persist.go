package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	redisclient "github.com/angelmondragon/shopnearby-backend/pkg/redis"
)

// Persister stores serialized carts by session key.
type Persister interface {
	Save(ctx context.Context, key string, data []byte) error
	// Load returns found=false when nothing is stored under key.
	Load(ctx context.Context, key string) (data []byte, found bool, err error)
	Delete(ctx context.Context, key string) error
}

type redisKV interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	CartKey(sessionID string) string
}

// RedisPersister keeps cart snapshots in redis with a sliding TTL.
type RedisPersister struct {
	client redisKV
	ttl    time.Duration
}

// NewRedisPersister builds a redis-backed persister.
func NewRedisPersister(client redisKV, ttl time.Duration) (*RedisPersister, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	return &RedisPersister{client: client, ttl: ttl}, nil
}

func (p *RedisPersister) Save(ctx context.Context, key string, data []byte) error {
	return p.client.Set(ctx, p.client.CartKey(key), data, p.ttl)
}

func (p *RedisPersister) Load(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := p.client.Get(ctx, p.client.CartKey(key))
	if errors.Is(err, redisclient.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(raw), true, nil
}

func (p *RedisPersister) Delete(ctx context.Context, key string) error {
	return p.client.Del(ctx, p.client.CartKey(key))
}

// MemoryPersister keeps snapshots in process memory.
type MemoryPersister struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{data: make(map[string][]byte)}
}

func (p *MemoryPersister) Save(_ context.Context, key string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	p.mu.Lock()
	p.data[key] = cp
	p.mu.Unlock()
	return nil
}

func (p *MemoryPersister) Load(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	data, ok := p.data[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, true, nil
}

func (p *MemoryPersister) Delete(_ context.Context, key string) error {
	p.mu.Lock()
	delete(p.data, key)
	p.mu.Unlock()
	return nil
}
