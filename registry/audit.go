package registry

import (
	"context"
	"log/slog"
	"time"

	federation "github.com/federatedsec/federation"
)

// AuditLog appends and reads the append-only audit trail. Every mutating
// manager operation calls Append before reporting success; a failed append
// fails the operation.
type AuditLog struct {
	store federation.AuditLogStore
	cache tableCache
}

// Append writes one audit entry. The store write is synchronous; cache
// population follows the admission policy and its failure is subject to the
// cache error policy, not silently fatal.
func (a *AuditLog) Append(ctx context.Context, typ federation.AuditLogType, message string, operator, entity *federation.UUID) error {
	rec := federation.AuditLogRecord{
		UUID:      federation.NewUUID(),
		Type:      typ,
		Message:   message,
		Operator:  operator,
		Entity:    entity,
		Timestamp: time.Now().Unix(),
	}
	if err := a.store.Add(ctx, rec); err != nil {
		return dbErr(err, "append audit log entry")
	}
	slog.Info("audit", "type", string(typ), "message", message,
		"operator", optUUID(operator), "entity", optUUID(entity))
	if _, err := a.cache.put(ctx, federation.AuditLogPrefix, rec.UUID.String(), rec.ToMap()); err != nil {
		return err
	}
	return nil
}

// GetByUUID returns one entry, cache first.
func (a *AuditLog) GetByUUID(ctx context.Context, id federation.UUID) (*federation.AuditLogRecord, error) {
	if m, err := a.cache.get(ctx, federation.AuditLogPrefix, id.String()); err != nil {
		return nil, err
	} else if m != nil {
		rec := federation.AuditLogFromMap(m)
		return &rec, nil
	}
	rec, err := a.store.GetByUUID(ctx, id)
	if err != nil {
		return nil, dbErr(err, "load audit log entry")
	}
	if rec == nil {
		return nil, federation.NewError(federation.NotFound, "audit log entry not found")
	}
	if _, err := a.cache.put(ctx, federation.AuditLogPrefix, rec.UUID.String(), rec.ToMap()); err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns entries newest first, optionally filtered by type.
func (a *AuditLog) List(ctx context.Context, typeFilter string, limit, page int) ([]federation.AuditLogRecord, error) {
	recs, err := a.store.List(ctx, typeFilter, limit, pageOffset(limit, page))
	if err != nil {
		return nil, dbErr(err, "list audit log")
	}
	return recs, nil
}

// ListByOperator returns the entries attributed to one operator.
func (a *AuditLog) ListByOperator(ctx context.Context, operator federation.UUID, limit, page int) ([]federation.AuditLogRecord, error) {
	recs, err := a.store.ListByOperator(ctx, operator, limit, pageOffset(limit, page))
	if err != nil {
		return nil, dbErr(err, "list audit log by operator")
	}
	return recs, nil
}

// ListByEntity returns the entries concerning one entity.
func (a *AuditLog) ListByEntity(ctx context.Context, entity federation.UUID, limit, page int) ([]federation.AuditLogRecord, error) {
	recs, err := a.store.ListByEntity(ctx, entity, limit, pageOffset(limit, page))
	if err != nil {
		return nil, dbErr(err, "list audit log by entity")
	}
	return recs, nil
}

// CleanOlderThan deletes entries older than the given number of days and
// drops the whole cached prefix, since cached entries carry no age index.
func (a *AuditLog) CleanOlderThan(ctx context.Context, days int) (int64, error) {
	threshold := time.Now().Unix() - int64(days)*86400
	n, err := a.store.RemoveOlderThan(ctx, threshold)
	if err != nil {
		return 0, dbErr(err, "clean audit log")
	}
	if err := a.cache.ClearByPrefix(ctx, federation.AuditLogPrefix); err != nil {
		return n, err
	}
	return n, nil
}

// Count returns the number of entries, optionally filtered by type.
func (a *AuditLog) Count(ctx context.Context, typeFilter string) (int64, error) {
	n, err := a.store.Count(ctx, typeFilter)
	if err != nil {
		return 0, dbErr(err, "count audit log")
	}
	return n, nil
}

func optUUID(id *federation.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
