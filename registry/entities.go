package registry

import (
	"context"
	"fmt"
	"log/slog"

	federation "github.com/federatedsec/federation"
)

// EntityManager owns entity registration, lookup and the deletion cascade.
// Entities are content-addressed: the hash of the canonical host (or
// id@host) form is the cross-federation identifier, the UUID is local.
type EntityManager struct {
	stores   federation.Stores
	cache    tableCache
	files    federation.FileStore
	audit    *AuditLog
	preCache bool
}

// Register stores a new entity for the given host and optional id. The hash
// unique key makes a concurrent duplicate surface as Conflict.
func (m *EntityManager) Register(ctx context.Context, actor *federation.OperatorRecord, host string, id *string) (*federation.EntityRecord, error) {
	if err := federation.ValidateEntity(host, id); err != nil {
		return nil, err
	}
	rec := federation.EntityRecord{
		UUID:    federation.NewUUID(),
		Hash:    federation.EntityHash(host, id),
		ID:      id,
		Host:    host,
		Created: nowUnix(),
	}
	if err := m.stores.Entities.Add(ctx, rec); err != nil {
		return nil, dbErr(err, "register entity")
	}
	if err := m.cacheEntity(ctx, rec); err != nil {
		return nil, err
	}
	if err := m.audit.Append(ctx, federation.AuditEntityPushed,
		fmt.Sprintf("entity %s pushed", rec.Hash), actorUUID(actor), &rec.UUID); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetByUUID returns one entity, cache first.
func (m *EntityManager) GetByUUID(ctx context.Context, id federation.UUID) (*federation.EntityRecord, error) {
	if mp, err := m.cache.get(ctx, federation.EntityPrefix, id.String()); err != nil {
		return nil, err
	} else if mp != nil {
		rec := federation.EntityFromMap(mp)
		return &rec, nil
	}
	rec, err := m.stores.Entities.GetByUUID(ctx, id)
	if err != nil {
		return nil, dbErr(err, "load entity")
	}
	if rec == nil {
		return nil, federation.NewError(federation.NotFound, "entity not found")
	}
	if err := m.cacheEntity(ctx, *rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetByHash resolves an entity by its canonical hash through the pointer
// index, deleting stale pointers on the way.
func (m *EntityManager) GetByHash(ctx context.Context, hash string) (*federation.EntityRecord, error) {
	id, err := m.cache.pointer(ctx, federation.EntityPrefix, hash)
	if err != nil {
		return nil, err
	}
	if id != "" {
		mp, err := m.cache.get(ctx, federation.EntityPrefix, id)
		if err != nil {
			return nil, err
		}
		if mp != nil {
			rec := federation.EntityFromMap(mp)
			return &rec, nil
		}
		if err := m.cache.Delete(ctx, federation.EntityPrefix, hash); err != nil {
			return nil, err
		}
	}
	rec, err := m.stores.Entities.GetByHash(ctx, hash)
	if err != nil {
		return nil, dbErr(err, "load entity by hash")
	}
	if rec == nil {
		return nil, federation.NewError(federation.NotFound, "entity not found")
	}
	if err := m.cacheEntity(ctx, *rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetByHostID resolves an entity by its host and optional id parts.
func (m *EntityManager) GetByHostID(ctx context.Context, host string, id *string) (*federation.EntityRecord, error) {
	if err := federation.ValidateEntity(host, id); err != nil {
		return nil, err
	}
	return m.GetByHash(ctx, federation.EntityHash(host, id))
}

// Exists reports whether an entity with the given UUID is known.
func (m *EntityManager) Exists(ctx context.Context, id federation.UUID) (bool, error) {
	ok, err := m.cache.RecordExists(ctx, federation.EntityPrefix, id.String())
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	rec, err := m.stores.Entities.GetByUUID(ctx, id)
	if err != nil {
		return false, dbErr(err, "load entity")
	}
	return rec != nil, nil
}

// ExistsByHash reports whether an entity with the given hash is known.
func (m *EntityManager) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	id, err := m.cache.pointer(ctx, federation.EntityPrefix, hash)
	if err != nil {
		return false, err
	}
	if id != "" {
		return true, nil
	}
	rec, err := m.stores.Entities.GetByHash(ctx, hash)
	if err != nil {
		return false, dbErr(err, "load entity by hash")
	}
	return rec != nil, nil
}

// DeleteByUUID removes an entity and everything hanging off it: evidence,
// attachments (rows and stored files), verdicts. Audit rows survive with a
// nulled entity reference. Store rows go first; a failed file unlink is
// logged and skipped so a missing blob cannot wedge the cascade.
func (m *EntityManager) DeleteByUUID(ctx context.Context, actor *federation.OperatorRecord, id federation.UUID) error {
	rec, err := m.GetByUUID(ctx, id)
	if err != nil {
		return err
	}
	attachments, err := m.stores.Attachments.ListByEntity(ctx, id)
	if err != nil {
		return dbErr(err, "list entity attachments")
	}
	if err := m.stores.Attachments.RemoveByEntity(ctx, id); err != nil {
		return dbErr(err, "delete entity attachments")
	}
	if err := m.stores.Evidence.RemoveByEntity(ctx, id); err != nil {
		return dbErr(err, "delete entity evidence")
	}
	if err := m.stores.Blacklist.RemoveByEntity(ctx, id); err != nil {
		return dbErr(err, "delete entity verdicts")
	}
	if err := m.stores.AuditLogs.DetachEntity(ctx, id); err != nil {
		return dbErr(err, "detach entity from audit log")
	}
	if err := m.stores.Entities.Remove(ctx, id); err != nil {
		return dbErr(err, "delete entity")
	}

	for _, att := range attachments {
		if err := m.files.Remove(ctx, att.UUID); err != nil {
			slog.Warn("attachment blob unlink failed", "uuid", att.UUID.String(), "error", err)
		}
	}

	if err := m.cache.Delete(ctx, federation.EntityPrefix, id.String()); err != nil {
		return err
	}
	if err := m.cache.Delete(ctx, federation.EntityPrefix, rec.Hash); err != nil {
		return err
	}
	if err := m.cache.DeleteByField(ctx, federation.BlacklistPrefix, "entity", id.String()); err != nil {
		return err
	}
	if err := m.cache.DeleteByField(ctx, federation.EvidencePrefix, "entity", id.String()); err != nil {
		return err
	}
	if err := m.cache.DeleteByField(ctx, federation.AuditLogPrefix, "entity", id.String()); err != nil {
		return err
	}
	for _, att := range attachments {
		if err := m.cache.Delete(ctx, federation.FileAttachmentPrefix, att.UUID.String()); err != nil {
			return err
		}
	}

	return m.audit.Append(ctx, federation.AuditEntityDeleted,
		fmt.Sprintf("entity %s (%s) deleted", id.String(), rec.Hash), actorUUID(actor), nil)
}

// List returns entities newest first.
func (m *EntityManager) List(ctx context.Context, limit, page int) ([]federation.EntityRecord, error) {
	recs, err := m.stores.Entities.List(ctx, limit, pageOffset(limit, page))
	if err != nil {
		return nil, dbErr(err, "list entities")
	}
	if m.preCache {
		maps := make([]map[string]string, len(recs))
		for i, r := range recs {
			maps[i] = r.ToMap()
		}
		if err := m.cache.putMany(ctx, maps, federation.EntityPrefix, func(mp map[string]string) string {
			return mp["uuid"]
		}); err != nil {
			return nil, err
		}
	}
	return recs, nil
}

// Count returns the number of entities.
func (m *EntityManager) Count(ctx context.Context) (int64, error) {
	n, err := m.stores.Entities.Count(ctx)
	if err != nil {
		return 0, dbErr(err, "count entities")
	}
	return n, nil
}

// cacheEntity stores the record and, once admitted, the hash pointer. Hash
// pointers share the entity prefix; hex hashes and UUID strings cannot
// collide.
func (m *EntityManager) cacheEntity(ctx context.Context, rec federation.EntityRecord) error {
	admitted, err := m.cache.put(ctx, federation.EntityPrefix, rec.UUID.String(), rec.ToMap())
	if err != nil {
		return err
	}
	if !admitted {
		return nil
	}
	return m.cache.putPointer(ctx, federation.EntityPrefix, rec.Hash, rec.UUID.String())
}
