package registry

import (
	"context"
)

// put caches a record subject to the table's admission policy: disabled
// tables skip, and a full prefix refuses new writes (TTL is the only
// eviction). It reports whether the record was actually cached, so pointer
// writes can be withheld when the main record was not admitted.
func (t tableCache) put(ctx context.Context, prefix, id string, record map[string]string) (bool, error) {
	if !t.settings.Enabled {
		return false, nil
	}
	reached, err := t.LimitReached(ctx, prefix, t.settings.Limit)
	if err != nil {
		return false, err
	}
	if reached {
		return false, nil
	}
	if err := t.SetRecord(ctx, prefix, id, record, t.settings.TTL, true); err != nil {
		return false, err
	}
	return true, nil
}

// putPointer stores a secondary-index pointer with the table's TTL. Callers
// invoke it only after the main record was admitted.
func (t tableCache) putPointer(ctx context.Context, prefix, key, id string) error {
	if !t.settings.Enabled {
		return nil
	}
	return t.SetPointer(ctx, prefix, key, id, t.settings.TTL)
}

// get returns the cached record, nil on miss or when the table cache is
// disabled.
func (t tableCache) get(ctx context.Context, prefix, id string) (map[string]string, error) {
	if !t.settings.Enabled {
		return nil, nil
	}
	return t.GetRecord(ctx, prefix, id)
}

// pointer resolves a secondary-index pointer, "" on miss.
func (t tableCache) pointer(ctx context.Context, prefix, key string) (string, error) {
	if !t.settings.Enabled {
		return "", nil
	}
	return t.GetPointer(ctx, prefix, key)
}

// putMany bulk-caches list results up to the prefix's remaining capacity.
func (t tableCache) putMany(ctx context.Context, records []map[string]string, prefix string, idOf func(map[string]string) string) error {
	if !t.settings.Enabled {
		return nil
	}
	_, err := t.SetRecords(ctx, records, prefix, idOf, t.settings.Limit, t.settings.TTL)
	return err
}
