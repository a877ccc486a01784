package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Store caches JSON-encodable values by key. Values are copied on the way in
// and out, so callers never share memory with the cache.
type Store interface {
	// Get decodes the value stored at key into dest. The bool reports a hit.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores value at key with the store's TTL.
	Set(ctx context.Context, key string, value any) error

	// DeletePrefix drops every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	Close() error
}

// ErrUnknownBackend is returned by New for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown cache backend")

// Options selects and tunes a backend.
type Options struct {
	Backend  string
	RedisURL string
	TTL      time.Duration
}

// New builds the backend named in opts: "memory" or "redis".
func New(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case "", "memory":
		return NewMemory(opts.TTL), nil
	case "redis":
		return NewRedis(ctx, opts.RedisURL, opts.TTL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

// Key joins parts with ':' into a cache key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// Memory is an in-process Store backed by go-cache.
type Memory struct {
	c *gocache.Cache
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Memory{c: gocache.New(ttl, 2*ttl)}
}

func (m *Memory) Get(_ context.Context, key string, dest any) (bool, error) {
	raw, ok := m.c.Get(key)
	if !ok {
		return false, nil
	}
	data, ok := raw.([]byte)
	if !ok {
		m.c.Delete(key)
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached %s: %w", key, err)
	}
	m.c.SetDefault(key, data)
	return nil
}

func (m *Memory) DeletePrefix(_ context.Context, prefix string) error {
	for k := range m.c.Items() {
		if strings.HasPrefix(k, prefix) {
			m.c.Delete(k)
		}
	}
	return nil
}

// Size returns the number of entries, expired ones included until the
// janitor runs.
func (m *Memory) Size() int {
	return m.c.ItemCount()
}

func (m *Memory) Close() error {
	m.c.Flush()
	return nil
}
