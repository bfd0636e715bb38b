package federation

import (
	"context"
	"time"
)

// Cache is the key-value cache fronting the primary store. Records are flat
// string field maps stored under "<prefix><id>"; pointer indices are small
// string values stored under "<prefix><secondary-key>" whose value is the
// UUID of the authoritative record.
//
// Implementations honor the configured error policy: transport failures are
// either swallowed (reads return nil, writes become no-ops, a warning is
// logged) or surfaced as CacheOperationFailed.
type Cache interface {
	// Ping tests cache connectivity.
	Ping(ctx context.Context) error
	// SetRecord writes the record's fields under prefix+id and applies ttl if > 0.
	// When overwrite is false an existing record is left untouched.
	SetRecord(ctx context.Context, prefix, id string, record map[string]string, ttl time.Duration, overwrite bool) error
	// GetRecord returns the record's fields, or nil if absent.
	GetRecord(ctx context.Context, prefix, id string) (map[string]string, error)
	// RecordExists reports whether a record is cached under prefix+id.
	RecordExists(ctx context.Context, prefix, id string) (bool, error)
	// Delete removes the record or pointer stored under prefix+id.
	Delete(ctx context.Context, prefix, id string) error
	// ClearByPrefix deletes every key under the prefix via incremental scan.
	ClearByPrefix(ctx context.Context, prefix string) error
	// CountByPrefix counts the keys under the prefix.
	CountByPrefix(ctx context.Context, prefix string) (int, error)
	// LimitReached reports whether the prefix holds at least limit keys.
	// A limit <= 0 means unlimited and always reports false.
	LimitReached(ctx context.Context, prefix string, limit int) (bool, error)
	// GetByField returns every record under the prefix whose field equals value.
	GetByField(ctx context.Context, prefix, field, value string) ([]map[string]string, error)
	// DeleteByField deletes every record under the prefix whose field equals value.
	DeleteByField(ctx context.Context, prefix, field, value string) error
	// SetRecords caches records up to the remaining admission capacity of the
	// prefix (limit <= 0 means no cap) and returns how many were cached.
	// Per-record keys are derived with idOf.
	SetRecords(ctx context.Context, records []map[string]string, prefix string, idOf func(map[string]string) string, limit int, ttl time.Duration) (int, error)
	// SetPointer stores a secondary-index pointer (key -> record id).
	SetPointer(ctx context.Context, prefix, key, id string, ttl time.Duration) error
	// GetPointer resolves a secondary-index pointer, "" if absent.
	GetPointer(ctx context.Context, prefix, key string) (string, error)
}

// CacheSettings is the per-table cache admission policy.
type CacheSettings struct {
	Enabled bool
	// Limit caps how many records the table's prefix may hold; <= 0 is unlimited.
	Limit int
	// TTL is the record lifetime; 0 means no expiry.
	TTL time.Duration
}
