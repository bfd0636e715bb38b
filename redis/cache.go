package redis

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	federation "github.com/federatedsec/federation"
)

// scanBatchSize is the COUNT hint used by all incremental scans.
const scanBatchSize = 100

type client struct {
	conn *Connection
	// throwOnErrors surfaces transport failures as CacheOperationFailed;
	// otherwise they are logged and swallowed so the store serves alone.
	throwOnErrors bool
	isOwner       bool
}

// NewClient wraps an existing connection in a federation.Cache.
func NewClient(conn *Connection, throwOnErrors bool) federation.Cache {
	return &client{
		conn:          conn,
		throwOnErrors: throwOnErrors,
	}
}

// NewConnectionClient opens a dedicated connection and returns a cache that
// owns it; Close it by closing the returned connection via CloseOwned.
func NewConnectionClient(options Options, throwOnErrors bool) federation.Cache {
	return &client{
		conn:          NewConnection(options),
		throwOnErrors: throwOnErrors,
		isOwner:       true,
	}
}

// keyNotFound detects whether error signifies key not found by Redis.
func (c *client) keyNotFound(err error) bool {
	return err == redis.Nil
}

// isWrongType detects a type-mismatch reply, which happens when a record scan
// touches a pointer key (a plain string) or vice versa. Those keys are simply
// skipped.
func isWrongType(err error) bool {
	return err != nil && strings.Contains(err.Error(), "WRONGTYPE")
}

// fail applies the cache error policy to a transport failure.
func (c *client) fail(op string, err error) error {
	if err == nil {
		return nil
	}
	if c.throwOnErrors {
		return federation.WrapError(federation.CacheOperationFailed, "cache "+op+" failed", err)
	}
	slog.Warn("cache operation failed, degrading to store", "op", op, "error", err)
	return nil
}

// Ping tests connectivity for redis (PONG should be returned).
func (c *client) Ping(ctx context.Context) error {
	return c.conn.Client.Ping(ctx).Err()
}

// SetRecord writes the record fields under prefix+id and applies ttl if > 0.
func (c *client) SetRecord(ctx context.Context, prefix, id string, record map[string]string, ttl time.Duration, overwrite bool) error {
	key := prefix + id
	if !overwrite {
		n, err := c.conn.Client.Exists(ctx, key).Result()
		if err != nil {
			return c.fail("exists", err)
		}
		if n > 0 {
			return nil
		}
	}
	if err := c.conn.Client.HSet(ctx, key, record).Err(); err != nil {
		return c.fail("hset", err)
	}
	if ttl > 0 {
		if err := c.conn.Client.Expire(ctx, key, ttl).Err(); err != nil {
			return c.fail("expire", err)
		}
	}
	return nil
}

// GetRecord returns the cached record, or nil if missing.
func (c *client) GetRecord(ctx context.Context, prefix, id string) (map[string]string, error) {
	m, err := c.conn.Client.HGetAll(ctx, prefix+id).Result()
	if err != nil && !c.keyNotFound(err) {
		return nil, c.fail("hgetall", err)
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}

// RecordExists reports whether prefix+id holds a cached record.
func (c *client) RecordExists(ctx context.Context, prefix, id string) (bool, error) {
	n, err := c.conn.Client.Exists(ctx, prefix+id).Result()
	if err != nil {
		return false, c.fail("exists", err)
	}
	return n > 0, nil
}

// Delete removes the record or pointer under prefix+id.
func (c *client) Delete(ctx context.Context, prefix, id string) error {
	err := c.conn.Client.Del(ctx, prefix+id).Err()
	if err != nil && !c.keyNotFound(err) {
		return c.fail("del", err)
	}
	return nil
}

// ClearByPrefix iterates the prefix with SCAN and deletes each batch.
func (c *client) ClearByPrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	for {
		keys, next, err := c.conn.Client.Scan(ctx, cursor, prefix+"*", scanBatchSize).Result()
		if err != nil {
			return c.fail("scan", err)
		}
		if len(keys) > 0 {
			if err := c.conn.Client.Del(ctx, keys...).Err(); err != nil {
				return c.fail("del", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// CountByPrefix counts keys under the prefix via incremental scan.
func (c *client) CountByPrefix(ctx context.Context, prefix string) (int, error) {
	var cursor uint64
	count := 0
	for {
		keys, next, err := c.conn.Client.Scan(ctx, cursor, prefix+"*", scanBatchSize).Result()
		if err != nil {
			return 0, c.fail("scan", err)
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			return count, nil
		}
	}
}

// LimitReached reports whether the prefix already holds limit or more keys.
// A limit <= 0 means unlimited.
func (c *client) LimitReached(ctx context.Context, prefix string, limit int) (bool, error) {
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
func (c *client) GetByField(ctx context.Context, prefix, field, value string) ([]map[string]string, error) {
	var out []map[string]string
	err := c.scanRecords(ctx, prefix, func(key string, record map[string]string) error {
		if record[field] == value {
			out = append(out, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByField deletes every record under the prefix whose field equals value.
func (c *client) DeleteByField(ctx context.Context, prefix, field, value string) error {
	return c.scanRecords(ctx, prefix, func(key string, record map[string]string) error {
		if record[field] == value {
			return c.conn.Client.Del(ctx, key).Err()
		}
		return nil
	})
}

// scanRecords walks the prefix incrementally and invokes fn per hash record.
// Pointer keys under the same prefix are skipped.
func (c *client) scanRecords(ctx context.Context, prefix string, fn func(key string, record map[string]string) error) error {
	var cursor uint64
	for {
		keys, next, err := c.conn.Client.Scan(ctx, cursor, prefix+"*", scanBatchSize).Result()
		if err != nil {
			return c.fail("scan", err)
		}
		for _, key := range keys {
			record, err := c.conn.Client.HGetAll(ctx, key).Result()
			if err != nil {
				if isWrongType(err) || c.keyNotFound(err) {
					continue
				}
				return c.fail("hgetall", err)
			}
			if len(record) == 0 {
				continue
			}
			if err := fn(key, record); err != nil {
				return c.fail("del", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// SetRecords caches records up to the remaining admission capacity of the
// prefix, in input order, and returns how many were cached.
func (c *client) SetRecords(ctx context.Context, records []map[string]string, prefix string, idOf func(map[string]string) string, limit int, ttl time.Duration) (int, error) {
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

// SetPointer stores a secondary-index pointer (key -> record id).
func (c *client) SetPointer(ctx context.Context, prefix, key, id string, ttl time.Duration) error {
	if err := c.conn.Client.Set(ctx, prefix+key, id, ttl).Err(); err != nil {
		return c.fail("set", err)
	}
	return nil
}

// GetPointer resolves a secondary-index pointer, "" if absent.
func (c *client) GetPointer(ctx context.Context, prefix, key string) (string, error) {
	s, err := c.conn.Client.Get(ctx, prefix+key).Result()
	if err != nil {
		if c.keyNotFound(err) {
			return "", nil
		}
		return "", c.fail("get", err)
	}
	return s, nil
}
