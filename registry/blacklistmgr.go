package registry

import (
	"context"
	"fmt"
	"time"

	federation "github.com/federatedsec/federation"
)

// BlacklistManager owns verdict creation, lifting and expiry cleanup.
type BlacklistManager struct {
	stores           federation.Stores
	cache            tableCache
	audit            *AuditLog
	minBlacklistTime int64
	preCache         bool
}

// Blacklist creates a verdict against an existing entity. A nil expires
// means permanent; otherwise the expiry must lie at least the configured
// minimum ahead of now.
func (m *BlacklistManager) Blacklist(ctx context.Context, actor *federation.OperatorRecord, entity federation.UUID, typ federation.BlacklistType, expires *int64, evidence *federation.UUID) (*federation.BlacklistRecord, error) {
	if _, err := federation.ParseBlacklistType(string(typ)); err != nil {
		return nil, err
	}
	now := time.Now().Unix()
	if expires != nil {
		if *expires <= now {
			return nil, federation.NewError(federation.InvalidArgument, "expires lies in the past")
		}
		if *expires-now < m.minBlacklistTime {
			return nil, federation.Errorf(federation.InvalidArgument,
				"expires must lie at least %d seconds ahead", m.minBlacklistTime)
		}
	}
	ent, err := m.stores.Entities.GetByUUID(ctx, entity)
	if err != nil {
		return nil, dbErr(err, "load entity")
	}
	if ent == nil {
		return nil, federation.NewError(federation.NotFound, "entity not found")
	}
	if evidence != nil {
		ev, err := m.stores.Evidence.GetByUUID(ctx, *evidence)
		if err != nil {
			return nil, dbErr(err, "load evidence")
		}
		if ev == nil {
			return nil, federation.NewError(federation.NotFound, "evidence not found")
		}
	}
	rec := federation.BlacklistRecord{
		UUID:     federation.NewUUID(),
		Entity:   entity,
		Operator: actor.UUID,
		Type:     typ,
		Expires:  expires,
		Evidence: evidence,
		Created:  now,
	}
	if err := m.stores.Blacklist.Add(ctx, rec); err != nil {
		return nil, dbErr(err, "create verdict")
	}
	if _, err := m.cache.put(ctx, federation.BlacklistPrefix, rec.UUID.String(), rec.ToMap()); err != nil {
		return nil, err
	}
	if err := m.audit.Append(ctx, federation.AuditBlacklistCreated,
		fmt.Sprintf("entity blacklisted as %s (verdict %s)", typ, rec.UUID.String()),
		actorUUID(actor), &entity); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetByUUID returns one verdict, cache first.
func (m *BlacklistManager) GetByUUID(ctx context.Context, id federation.UUID) (*federation.BlacklistRecord, error) {
	if mp, err := m.cache.get(ctx, federation.BlacklistPrefix, id.String()); err != nil {
		return nil, err
	} else if mp != nil {
		rec := federation.BlacklistFromMap(mp)
		return &rec, nil
	}
	rec, err := m.stores.Blacklist.GetByUUID(ctx, id)
	if err != nil {
		return nil, dbErr(err, "load verdict")
	}
	if rec == nil {
		return nil, federation.NewError(federation.NotFound, "verdict not found")
	}
	if _, err := m.cache.put(ctx, federation.BlacklistPrefix, rec.UUID.String(), rec.ToMap()); err != nil {
		return nil, err
	}
	return rec, nil
}

// IsActive reports whether the entity has any verdict in force right now.
func (m *BlacklistManager) IsActive(ctx context.Context, entity federation.UUID) (bool, error) {
	active, err := m.stores.Blacklist.ActiveExists(ctx, entity, time.Now().Unix())
	if err != nil {
		return false, dbErr(err, "check active verdicts")
	}
	return active, nil
}

// Lift marks a verdict as lifted, recording who lifted it. Lifting an
// already-lifted verdict is a no-op success.
func (m *BlacklistManager) Lift(ctx context.Context, actor *federation.OperatorRecord, id federation.UUID) error {
	rec, err := m.GetByUUID(ctx, id)
	if err != nil {
		return err
	}
	if rec.Lifted {
		return nil
	}
	if err := m.stores.Blacklist.MarkLifted(ctx, id, actorUUID(actor)); err != nil {
		return dbErr(err, "lift verdict")
	}
	if err := m.cache.Delete(ctx, federation.BlacklistPrefix, id.String()); err != nil {
		return err
	}
	return m.audit.Append(ctx, federation.AuditBlacklistLifted,
		fmt.Sprintf("verdict %s lifted", id.String()), actorUUID(actor), &rec.Entity)
}

// Delete removes a verdict entirely. Lift is the normal retraction; Delete
// exists for administrative cleanup.
func (m *BlacklistManager) Delete(ctx context.Context, actor *federation.OperatorRecord, id federation.UUID) error {
	rec, err := m.GetByUUID(ctx, id)
	if err != nil {
		return err
	}
	if err := m.stores.Blacklist.Remove(ctx, id); err != nil {
		return dbErr(err, "delete verdict")
	}
	if err := m.cache.Delete(ctx, federation.BlacklistPrefix, id.String()); err != nil {
		return err
	}
	return m.audit.Append(ctx, federation.AuditBlacklistDeleted,
		fmt.Sprintf("verdict %s deleted", id.String()), actorUUID(actor), &rec.Entity)
}

// AttachEvidence links an evidence record to an existing verdict.
func (m *BlacklistManager) AttachEvidence(ctx context.Context, actor *federation.OperatorRecord, id, evidence federation.UUID) error {
	rec, err := m.GetByUUID(ctx, id)
	if err != nil {
		return err
	}
	ev, err := m.stores.Evidence.GetByUUID(ctx, evidence)
	if err != nil {
		return dbErr(err, "load evidence")
	}
	if ev == nil {
		return federation.NewError(federation.NotFound, "evidence not found")
	}
	if err := m.stores.Blacklist.SetEvidence(ctx, id, &evidence); err != nil {
		return dbErr(err, "attach evidence to verdict")
	}
	if err := m.cache.Delete(ctx, federation.BlacklistPrefix, id.String()); err != nil {
		return err
	}
	return m.audit.Append(ctx, federation.AuditEvidenceAttached,
		fmt.Sprintf("evidence %s attached to verdict %s", evidence.String(), id.String()),
		actorUUID(actor), &rec.Entity)
}

// List returns verdicts newest first, lifted ones only on request.
func (m *BlacklistManager) List(ctx context.Context, includeLifted bool, limit, page int) ([]federation.BlacklistRecord, error) {
	recs, err := m.stores.Blacklist.List(ctx, includeLifted, limit, pageOffset(limit, page))
	if err != nil {
		return nil, dbErr(err, "list verdicts")
	}
	if err := m.preCacheRecords(ctx, recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// ListByEntity returns the verdicts against one entity.
func (m *BlacklistManager) ListByEntity(ctx context.Context, entity federation.UUID, includeLifted bool, limit, page int) ([]federation.BlacklistRecord, error) {
	recs, err := m.stores.Blacklist.ListByEntity(ctx, entity, includeLifted, limit, pageOffset(limit, page))
	if err != nil {
		return nil, dbErr(err, "list verdicts by entity")
	}
	if err := m.preCacheRecords(ctx, recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// ListByOperator returns the verdicts created by one operator.
func (m *BlacklistManager) ListByOperator(ctx context.Context, operator federation.UUID, includeLifted bool, limit, page int) ([]federation.BlacklistRecord, error) {
	recs, err := m.stores.Blacklist.ListByOperator(ctx, operator, includeLifted, limit, pageOffset(limit, page))
	if err != nil {
		return nil, dbErr(err, "list verdicts by operator")
	}
	return recs, nil
}

// CleanOlderThan deletes expired verdicts whose expiry (or creation, for
// permanent rows) lies more than the given number of days back, then drops
// the cached prefix.
func (m *BlacklistManager) CleanOlderThan(ctx context.Context, days int) (int64, error) {
	threshold := time.Now().Unix() - int64(days)*86400
	n, err := m.stores.Blacklist.RemoveOlderThan(ctx, threshold)
	if err != nil {
		return 0, dbErr(err, "clean verdicts")
	}
	if err := m.cache.ClearByPrefix(ctx, federation.BlacklistPrefix); err != nil {
		return n, err
	}
	return n, nil
}

// Count returns the number of verdicts, lifted included.
func (m *BlacklistManager) Count(ctx context.Context) (int64, error) {
	n, err := m.stores.Blacklist.Count(ctx)
	if err != nil {
		return 0, dbErr(err, "count verdicts")
	}
	return n, nil
}

func (m *BlacklistManager) preCacheRecords(ctx context.Context, recs []federation.BlacklistRecord) error {
	if !m.preCache {
		return nil
	}
	maps := make([]map[string]string, len(recs))
	for i, r := range recs {
		maps[i] = r.ToMap()
	}
	return m.cache.putMany(ctx, maps, federation.BlacklistPrefix, func(mp map[string]string) string {
		return mp["uuid"]
	})
}
