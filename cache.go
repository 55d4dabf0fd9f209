package knex

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jarcodallo/knex/dialect/sql"

	"gopkg.in/yaml.v3"
)

// Cache is the interface for caching introspection results.
// Users should implement this interface with their preferred caching solution
// (e.g., Redis, Memcached, in-memory).
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the value should not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// DeletePrefix removes all values with the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

// CacheKey generates a cache key for an introspection query.
type CacheKey struct {
	Dialect   string
	Table     string
	Operation string
	Columns   string
}

// String returns the string representation of the cache key.
func (k CacheKey) String() string {
	return k.Prefix() + k.Operation + ":" + k.Columns
}

// Prefix returns the prefix shared by all keys of the table.
func (k CacheKey) Prefix() string {
	return k.Dialect + ":" + k.Table + ":"
}

type cacheEntry struct {
	value   []byte
	expires time.Time
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]cacheEntry), now: time.Now}
}

// Get implements Cache.
func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.entries, key)
		return nil, nil
	}
	return e.value, nil
}

// Set implements Cache.
func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := cacheEntry{value: value}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// DeletePrefix implements Cache.
func (m *MemoryCache) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	return nil
}

// Len returns the number of entries.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// cached returns the column records stored under key. Cache failures are
// logged and treated as misses.
func (c *Client) cached(ctx context.Context, key CacheKey) (map[string]*sql.ColumnInfo, bool) {
	if c.cache == nil {
		return nil, false
	}
	data, err := c.cache.Get(ctx, key.String())
	if err != nil {
		c.logger.WarnContext(ctx, "cache get failed", "key", key.String(), "error", err)
		return nil, false
	}
	if data == nil {
		return nil, false
	}
	var cols map[string]*sql.ColumnInfo
	if err := yaml.Unmarshal(data, &cols); err != nil {
		c.logger.WarnContext(ctx, "cache entry corrupted", "key", key.String(), "error", err)
		return nil, false
	}
	for name, col := range cols {
		if col != nil {
			col.Name = name
			col.MaxLength = widen(col.MaxLength)
			col.DefaultValue = widen(col.DefaultValue)
		}
	}
	return cols, true
}

// widen restores the int64 lengths that YAML decodes as int.
func widen(v any) any {
	if n, ok := v.(int); ok {
		return int64(n)
	}
	return v
}

func (c *Client) store(ctx context.Context, key CacheKey, cols map[string]*sql.ColumnInfo) {
	if c.cache == nil {
		return
	}
	data, err := yaml.Marshal(cols)
	if err != nil {
		c.logger.WarnContext(ctx, "cache encode failed", "key", key.String(), "error", err)
		return
	}
	if err := c.cache.Set(ctx, key.String(), data, 0); err != nil {
		c.logger.WarnContext(ctx, "cache set failed", "key", key.String(), "error", err)
	}
}

func (c *Client) invalidate(ctx context.Context, table string) {
	if c.cache == nil {
		return
	}
	prefix := CacheKey{Dialect: c.grammar.Name, Table: table}.Prefix()
	if err := c.cache.DeletePrefix(ctx, prefix); err != nil {
		c.logger.WarnContext(ctx, "cache invalidation failed", "table", table, "error", err)
	}
}
