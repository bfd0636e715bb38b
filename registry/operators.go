package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	federation "github.com/federatedsec/federation"
)

// OperatorManager owns the operator lifecycle and the capability model. The
// master operator is the one whose API key equals the configured server key;
// it implicitly holds every capability and cannot be disabled or deleted.
type OperatorManager struct {
	store     federation.OperatorStore
	cache     tableCache
	audit     *AuditLog
	masterKey string
	preCache  bool
}

// Create registers a new operator with a generated key and no capabilities.
// Capability grants happen through the Set* operations afterwards.
func (m *OperatorManager) Create(ctx context.Context, actor *federation.OperatorRecord, name string) (*federation.OperatorRecord, error) {
	if err := federation.ValidateOperatorName(name); err != nil {
		return nil, err
	}
	now := time.Now().Unix()
	rec := federation.OperatorRecord{
		UUID:    federation.NewUUID(),
		APIKey:  federation.NewAPIKey(),
		Name:    name,
		Created: now,
		Updated: now,
	}
	if err := m.store.Add(ctx, rec); err != nil {
		return nil, dbErr(err, "create operator")
	}
	if err := m.cacheOperator(ctx, rec); err != nil {
		return nil, err
	}
	if err := m.audit.Append(ctx, federation.AuditOperatorCreated,
		fmt.Sprintf("operator %q created", name), actorUUID(actor), nil); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetByUUID returns one operator, cache first.
func (m *OperatorManager) GetByUUID(ctx context.Context, id federation.UUID) (*federation.OperatorRecord, error) {
	if mp, err := m.cache.get(ctx, federation.OperatorPrefix, id.String()); err != nil {
		return nil, err
	} else if mp != nil {
		rec := federation.OperatorFromMap(mp)
		return &rec, nil
	}
	rec, err := m.store.GetByUUID(ctx, id)
	if err != nil {
		return nil, dbErr(err, "load operator")
	}
	if rec == nil {
		return nil, federation.NewError(federation.NotFound, "operator not found")
	}
	if err := m.cacheOperator(ctx, *rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetByAPIKey resolves an operator through the API-key pointer index. A
// pointer whose target record is gone is deleted before falling through to
// the store, so the index self-heals.
func (m *OperatorManager) GetByAPIKey(ctx context.Context, key string) (*federation.OperatorRecord, error) {
	id, err := m.cache.pointer(ctx, federation.OperatorAPIKeyPrefix, key)
	if err != nil {
		return nil, err
	}
	if id != "" {
		mp, err := m.cache.get(ctx, federation.OperatorPrefix, id)
		if err != nil {
			return nil, err
		}
		if mp != nil {
			rec := federation.OperatorFromMap(mp)
			return &rec, nil
		}
		if err := m.cache.Delete(ctx, federation.OperatorAPIKeyPrefix, key); err != nil {
			return nil, err
		}
	}
	rec, err := m.store.GetByAPIKey(ctx, key)
	if err != nil {
		return nil, dbErr(err, "load operator by api key")
	}
	if rec == nil {
		return nil, federation.NewError(federation.NotFound, "operator not found")
	}
	if err := m.cacheOperator(ctx, *rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Exists reports whether the operator UUID is known.
func (m *OperatorManager) Exists(ctx context.Context, id federation.UUID) (bool, error) {
	ok, err := m.cache.RecordExists(ctx, federation.OperatorPrefix, id.String())
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	rec, err := m.store.GetByUUID(ctx, id)
	if err != nil {
		return false, dbErr(err, "load operator")
	}
	return rec != nil, nil
}

// Enable clears the disabled flag.
func (m *OperatorManager) Enable(ctx context.Context, actor *federation.OperatorRecord, id federation.UUID) error {
	rec, err := m.GetByUUID(ctx, id)
	if err != nil {
		return err
	}
	if !rec.Disabled {
		return nil
	}
	rec.Disabled = false
	rec.Updated = time.Now().Unix()
	if err := m.store.Update(ctx, *rec); err != nil {
		return dbErr(err, "enable operator")
	}
	if err := m.invalidate(ctx, *rec); err != nil {
		return err
	}
	return m.audit.Append(ctx, federation.AuditOperatorEnabled,
		fmt.Sprintf("operator %q enabled", rec.Name), actorUUID(actor), nil)
}

// Disable sets the disabled flag. The master operator cannot be disabled.
func (m *OperatorManager) Disable(ctx context.Context, actor *federation.OperatorRecord, id federation.UUID) error {
	rec, err := m.GetByUUID(ctx, id)
	if err != nil {
		return err
	}
	if m.IsMaster(rec) {
		return federation.NewError(federation.Forbidden, "the master operator cannot be disabled")
	}
	if rec.Disabled {
		return nil
	}
	rec.Disabled = true
	rec.Updated = time.Now().Unix()
	if err := m.store.Update(ctx, *rec); err != nil {
		return dbErr(err, "disable operator")
	}
	if err := m.invalidate(ctx, *rec); err != nil {
		return err
	}
	return m.audit.Append(ctx, federation.AuditOperatorDisabled,
		fmt.Sprintf("operator %q disabled", rec.Name), actorUUID(actor), nil)
}

// Delete removes an operator. Audit rows it produced survive with a nulled
// operator reference. The master operator cannot be deleted.
func (m *OperatorManager) Delete(ctx context.Context, actor *federation.OperatorRecord, id federation.UUID) error {
	rec, err := m.GetByUUID(ctx, id)
	if err != nil {
		return err
	}
	if m.IsMaster(rec) {
		return federation.NewError(federation.Forbidden, "the master operator cannot be deleted")
	}
	if err := m.store.Remove(ctx, id); err != nil {
		return dbErr(err, "delete operator")
	}
	if err := m.audit.store.DetachOperator(ctx, id); err != nil {
		return dbErr(err, "detach operator from audit log")
	}
	if err := m.invalidate(ctx, *rec); err != nil {
		return err
	}
	if err := m.cache.DeleteByField(ctx, federation.AuditLogPrefix, "operator", id.String()); err != nil {
		return err
	}
	return m.audit.Append(ctx, federation.AuditOperatorDeleted,
		fmt.Sprintf("operator %q deleted", rec.Name), actorUUID(actor), nil)
}

// RefreshAPIKey replaces the operator's key and returns the new record. The
// pointer under the pre-change key is dropped so the old key stops resolving
// immediately.
func (m *OperatorManager) RefreshAPIKey(ctx context.Context, actor *federation.OperatorRecord, id federation.UUID) (*federation.OperatorRecord, error) {
	rec, err := m.GetByUUID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.IsMaster(rec) {
		return nil, federation.NewError(federation.Forbidden, "the master operator key is configured, not stored")
	}
	oldKey := rec.APIKey
	rec.APIKey = federation.NewAPIKey()
	rec.Updated = time.Now().Unix()
	if err := m.store.Update(ctx, *rec); err != nil {
		return nil, dbErr(err, "refresh operator api key")
	}
	if err := m.cache.Delete(ctx, federation.OperatorAPIKeyPrefix, oldKey); err != nil {
		return nil, err
	}
	if err := m.cache.Delete(ctx, federation.OperatorPrefix, rec.UUID.String()); err != nil {
		return nil, err
	}
	if err := m.cacheOperator(ctx, *rec); err != nil {
		return nil, err
	}
	if err := m.audit.Append(ctx, federation.AuditOperatorKeyRefreshed,
		fmt.Sprintf("operator %q api key refreshed", rec.Name), actorUUID(actor), nil); err != nil {
		return nil, err
	}
	return rec, nil
}

// SetManageOperators grants or revokes the operator-management capability.
func (m *OperatorManager) SetManageOperators(ctx context.Context, actor *federation.OperatorRecord, id federation.UUID, v bool) error {
	return m.setCapability(ctx, actor, id, "manage_operators", v, func(rec *federation.OperatorRecord) {
		rec.ManageOperators = v
	})
}

// SetManageBlacklist grants or revokes the blacklist-management capability.
func (m *OperatorManager) SetManageBlacklist(ctx context.Context, actor *federation.OperatorRecord, id federation.UUID, v bool) error {
	return m.setCapability(ctx, actor, id, "manage_blacklist", v, func(rec *federation.OperatorRecord) {
		rec.ManageBlacklist = v
	})
}

// SetClient grants or revokes the client flag.
func (m *OperatorManager) SetClient(ctx context.Context, actor *federation.OperatorRecord, id federation.UUID, v bool) error {
	return m.setCapability(ctx, actor, id, "is_client", v, func(rec *federation.OperatorRecord) {
		rec.IsClient = v
	})
}

func (m *OperatorManager) setCapability(ctx context.Context, actor *federation.OperatorRecord, id federation.UUID, name string, v bool, apply func(*federation.OperatorRecord)) error {
	rec, err := m.GetByUUID(ctx, id)
	if err != nil {
		return err
	}
	apply(rec)
	rec.Updated = time.Now().Unix()
	if err := m.store.Update(ctx, *rec); err != nil {
		return dbErr(err, "update operator capability")
	}
	if err := m.invalidate(ctx, *rec); err != nil {
		return err
	}
	if err := m.cacheOperator(ctx, *rec); err != nil {
		return err
	}
	return m.audit.Append(ctx, federation.AuditOperatorCapabilityChanged,
		fmt.Sprintf("operator %q capability %s set to %t", rec.Name, name, v), actorUUID(actor), nil)
}

// List returns operators newest first.
func (m *OperatorManager) List(ctx context.Context, limit, page int) ([]federation.OperatorRecord, error) {
	recs, err := m.store.List(ctx, limit, pageOffset(limit, page))
	if err != nil {
		return nil, dbErr(err, "list operators")
	}
	if m.preCache {
		maps := make([]map[string]string, len(recs))
		for i, r := range recs {
			maps[i] = r.ToMap()
		}
		if err := m.cache.putMany(ctx, maps, federation.OperatorPrefix, func(mp map[string]string) string {
			return mp["uuid"]
		}); err != nil {
			return nil, err
		}
	}
	return recs, nil
}

// Count returns the number of operators.
func (m *OperatorManager) Count(ctx context.Context) (int64, error) {
	n, err := m.store.Count(ctx)
	if err != nil {
		return 0, dbErr(err, "count operators")
	}
	return n, nil
}

// GetMaster returns the master operator, creating it on first use. The
// bootstrap row is named "root" and carries every capability explicitly.
func (m *OperatorManager) GetMaster(ctx context.Context) (*federation.OperatorRecord, error) {
	rec, err := m.store.GetByAPIKey(ctx, m.masterKey)
	if err != nil {
		return nil, dbErr(err, "load master operator")
	}
	if rec != nil {
		return rec, nil
	}
	now := time.Now().Unix()
	master := federation.OperatorRecord{
		UUID:            federation.NewUUID(),
		APIKey:          m.masterKey,
		Name:            "root",
		ManageOperators: true,
		ManageBlacklist: true,
		IsClient:        true,
		Created:         now,
		Updated:         now,
	}
	if err := m.store.Add(ctx, master); err != nil {
		return nil, dbErr(err, "bootstrap master operator")
	}
	slog.Info("master operator bootstrapped", "uuid", master.UUID.String())
	if err := m.audit.Append(ctx, federation.AuditOperatorCreated,
		"master operator bootstrapped", &master.UUID, nil); err != nil {
		return nil, err
	}
	return &master, nil
}

// IsMaster reports whether op is the master operator.
func (m *OperatorManager) IsMaster(op *federation.OperatorRecord) bool {
	return op != nil && op.APIKey == m.masterKey
}

// CanManageOperators reports whether op may administer other operators.
func (m *OperatorManager) CanManageOperators(op *federation.OperatorRecord) bool {
	return m.IsMaster(op) || (op != nil && op.ManageOperators)
}

// CanManageBlacklist reports whether op may create and lift verdicts.
func (m *OperatorManager) CanManageBlacklist(op *federation.OperatorRecord) bool {
	return m.IsMaster(op) || (op != nil && op.ManageBlacklist)
}

// CanPushEntities reports whether op may register entities and submit
// evidence. Clients and blacklist managers both qualify.
func (m *OperatorManager) CanPushEntities(op *federation.OperatorRecord) bool {
	return m.IsMaster(op) || (op != nil && (op.IsClient || op.ManageBlacklist))
}

// CanScan reports whether op may use the scanning and query surface.
func (m *OperatorManager) CanScan(op *federation.OperatorRecord) bool {
	return m.IsMaster(op) || (op != nil && op.IsClient)
}

// cacheOperator stores the main record and, only if that record was
// admitted, the API-key pointer. A pointer without a record would force a
// store round trip on every hit.
func (m *OperatorManager) cacheOperator(ctx context.Context, rec federation.OperatorRecord) error {
	admitted, err := m.cache.put(ctx, federation.OperatorPrefix, rec.UUID.String(), rec.ToMap())
	if err != nil {
		return err
	}
	if !admitted {
		return nil
	}
	return m.cache.putPointer(ctx, federation.OperatorAPIKeyPrefix, rec.APIKey, rec.UUID.String())
}

func (m *OperatorManager) invalidate(ctx context.Context, rec federation.OperatorRecord) error {
	if err := m.cache.Delete(ctx, federation.OperatorPrefix, rec.UUID.String()); err != nil {
		return err
	}
	return m.cache.Delete(ctx, federation.OperatorAPIKeyPrefix, rec.APIKey)
}

func actorUUID(actor *federation.OperatorRecord) *federation.UUID {
	if actor == nil {
		return nil
	}
	return &actor.UUID
}
