// Package inmemory implements the federation.Cache contract on a
// process-local map. It backs the service when Redis is disabled and keeps
// manager tests free of external dependencies. Expiry is lazy: entries are
// dropped when a read or scan touches them past their deadline.
package inmemory

import (
	"context"
	"strings"
	"sync"
	"time"

	federation "github.com/federatedsec/federation"
)

type entry struct {
	record     map[string]string
	pointer    string
	isPointer  bool
	expiration time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiration.IsZero() && now.After(e.expiration)
}

// Cache is a mutex-guarded in-memory cache.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewCache returns an empty in-memory cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]entry),
	}
}

// Ping always succeeds.
func (c *Cache) Ping(ctx context.Context) error {
	return nil
}

// SetRecord stores a copy of the record fields under prefix+id.
func (c *Cache) SetRecord(ctx context.Context, prefix, id string, record map[string]string, ttl time.Duration, overwrite bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := prefix + id
	if !overwrite {
		if e, ok := c.entries[key]; ok && !e.expired(time.Now()) {
			return nil
		}
	}
	cp := make(map[string]string, len(record))
	for k, v := range record {
		cp[k] = v
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	c.entries[key] = entry{record: cp, expiration: exp}
	return nil
}

// GetRecord returns a copy of the cached record, or nil if missing.
func (c *Cache) GetRecord(ctx context.Context, prefix, id string) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := prefix + id
	e, ok := c.entries[key]
	if !ok || e.isPointer {
		return nil, nil
	}
	if e.expired(time.Now()) {
		delete(c.entries, key)
		return nil, nil
	}
	cp := make(map[string]string, len(e.record))
	for k, v := range e.record {
		cp[k] = v
	}
	return cp, nil
}

// RecordExists reports whether prefix+id holds a live entry.
func (c *Cache) RecordExists(ctx context.Context, prefix, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := prefix + id
	e, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	if e.expired(time.Now()) {
		delete(c.entries, key)
		return false, nil
	}
	return true, nil
}

// Delete removes the entry under prefix+id.
func (c *Cache) Delete(ctx context.Context, prefix, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, prefix+id)
	return nil
}

// ClearByPrefix removes every entry under the prefix.
func (c *Cache) ClearByPrefix(ctx context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

// CountByPrefix counts the live entries under the prefix.
func (c *Cache) CountByPrefix(ctx context.Context, prefix string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	count := 0
	for key, e := range c.entries {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if e.expired(now) {
			delete(c.entries, key)
			continue
		}
		count++
	}
	return count, nil
}

// LimitReached reports whether the prefix already holds limit or more keys.
func (c *Cache) LimitReached(ctx context.Context, prefix string, limit int) (bool, error) {
	if limit <= 0 {
		return false, nil
	}
	count, err := c.CountByPrefix(ctx, prefix)
	if err != nil {
		return false, err
	}
	return count >= limit, nil
}

// GetByField returns every record under the prefix whose field equals value.
func (c *Cache) GetByField(ctx context.Context, prefix, field, value string) ([]map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var out []map[string]string
	for key, e := range c.entries {
		if !strings.HasPrefix(key, prefix) || e.isPointer {
			continue
		}
		if e.expired(now) {
			delete(c.entries, key)
			continue
		}
		if e.record[field] == value {
			cp := make(map[string]string, len(e.record))
			for k, v := range e.record {
				cp[k] = v
			}
			out = append(out, cp)
		}
	}
	return out, nil
}

// DeleteByField removes every record under the prefix whose field equals value.
func (c *Cache) DeleteByField(ctx context.Context, prefix, field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if !strings.HasPrefix(key, prefix) || e.isPointer {
			continue
		}
		if e.record[field] == value {
			delete(c.entries, key)
		}
	}
	return nil
}

// SetRecords caches records up to the remaining admission capacity of the
// prefix, in input order, and returns how many were cached.
func (c *Cache) SetRecords(ctx context.Context, records []map[string]string, prefix string, idOf func(map[string]string) string, limit int, ttl time.Duration) (int, error) {
	available := len(records)
	if limit > 0 {
		count, err := c.CountByPrefix(ctx, prefix)
		if err != nil {
			return 0, err
		}
		available = limit - count
		if available < 0 {
			available = 0
		}
		if available > len(records) {
			available = len(records)
		}
	}
	cached := 0
	for _, record := range records[:available] {
		if err := c.SetRecord(ctx, prefix, idOf(record), record, ttl, true); err != nil {
			return cached, err
		}
		cached++
	}
	return cached, nil
}

// SetPointer stores a secondary-index pointer.
func (c *Cache) SetPointer(ctx context.Context, prefix, key, id string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	c.entries[prefix+key] = entry{pointer: id, isPointer: true, expiration: exp}
	return nil
}

// GetPointer resolves a secondary-index pointer, "" if absent.
func (c *Cache) GetPointer(ctx context.Context, prefix, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := prefix + key
	e, ok := c.entries[k]
	if !ok || !e.isPointer {
		return "", nil
	}
	if e.expired(time.Now()) {
		delete(c.entries, k)
		return "", nil
	}
	return e.pointer, nil
}

var _ federation.Cache = (*Cache)(nil)
