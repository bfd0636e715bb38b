package registry

import (
	"context"
	"fmt"
	"log/slog"

	federation "github.com/federatedsec/federation"
)

// EvidenceManager owns evidence submission and its deletion cascade.
type EvidenceManager struct {
	stores   federation.Stores
	cache    tableCache
	files    federation.FileStore
	audit    *AuditLog
	preCache bool
}

// Add submits evidence against an existing entity.
func (m *EvidenceManager) Add(ctx context.Context, actor *federation.OperatorRecord, entity federation.UUID, confidential bool, textContent, note, tag *string) (*federation.EvidenceRecord, error) {
	if err := federation.ValidateEvidence(textContent, note, tag); err != nil {
		return nil, err
	}
	ent, err := m.stores.Entities.GetByUUID(ctx, entity)
	if err != nil {
		return nil, dbErr(err, "load entity")
	}
	if ent == nil {
		return nil, federation.NewError(federation.NotFound, "entity not found")
	}
	rec := federation.EvidenceRecord{
		UUID:         federation.NewUUID(),
		Entity:       entity,
		Operator:     actor.UUID,
		Confidential: confidential,
		TextContent:  textContent,
		Note:         note,
		Tag:          tag,
		Created:      nowUnix(),
	}
	if err := m.stores.Evidence.Add(ctx, rec); err != nil {
		return nil, dbErr(err, "add evidence")
	}
	if _, err := m.cache.put(ctx, federation.EvidencePrefix, rec.UUID.String(), rec.ToMap()); err != nil {
		return nil, err
	}
	if err := m.audit.Append(ctx, federation.AuditEvidenceSubmitted,
		fmt.Sprintf("evidence %s submitted", rec.UUID.String()), actorUUID(actor), &entity); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Get returns one evidence record, cache first.
func (m *EvidenceManager) Get(ctx context.Context, id federation.UUID) (*federation.EvidenceRecord, error) {
	if mp, err := m.cache.get(ctx, federation.EvidencePrefix, id.String()); err != nil {
		return nil, err
	} else if mp != nil {
		rec := federation.EvidenceFromMap(mp)
		return &rec, nil
	}
	rec, err := m.stores.Evidence.GetByUUID(ctx, id)
	if err != nil {
		return nil, dbErr(err, "load evidence")
	}
	if rec == nil {
		return nil, federation.NewError(federation.NotFound, "evidence not found")
	}
	if _, err := m.cache.put(ctx, federation.EvidencePrefix, rec.UUID.String(), rec.ToMap()); err != nil {
		return nil, err
	}
	return rec, nil
}

// Exists reports whether the evidence UUID is known.
func (m *EvidenceManager) Exists(ctx context.Context, id federation.UUID) (bool, error) {
	ok, err := m.cache.RecordExists(ctx, federation.EvidencePrefix, id.String())
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	rec, err := m.stores.Evidence.GetByUUID(ctx, id)
	if err != nil {
		return false, dbErr(err, "load evidence")
	}
	return rec != nil, nil
}

// Delete removes evidence, its attachments (rows and stored files), and
// detaches it from any verdict referencing it. Verdicts survive.
func (m *EvidenceManager) Delete(ctx context.Context, actor *federation.OperatorRecord, id federation.UUID) error {
	rec, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	attachments, err := m.stores.Attachments.ListByEvidence(ctx, id)
	if err != nil {
		return dbErr(err, "list evidence attachments")
	}
	if err := m.stores.Attachments.RemoveByEvidence(ctx, id); err != nil {
		return dbErr(err, "delete evidence attachments")
	}
	if err := m.stores.Blacklist.ClearEvidence(ctx, id); err != nil {
		return dbErr(err, "detach evidence from verdicts")
	}
	if err := m.stores.Evidence.Remove(ctx, id); err != nil {
		return dbErr(err, "delete evidence")
	}
	for _, att := range attachments {
		if err := m.files.Remove(ctx, att.UUID); err != nil {
			slog.Warn("attachment blob unlink failed", "uuid", att.UUID.String(), "error", err)
		}
	}
	if err := m.cache.Delete(ctx, federation.EvidencePrefix, id.String()); err != nil {
		return err
	}
	if err := m.cache.DeleteByField(ctx, federation.FileAttachmentPrefix, "evidence", id.String()); err != nil {
		return err
	}
	if err := m.cache.DeleteByField(ctx, federation.BlacklistPrefix, "evidence", id.String()); err != nil {
		return err
	}
	return m.audit.Append(ctx, federation.AuditEvidenceDeleted,
		fmt.Sprintf("evidence %s deleted", id.String()), actorUUID(actor), &rec.Entity)
}

// SetConfidential flips the confidentiality flag.
func (m *EvidenceManager) SetConfidential(ctx context.Context, actor *federation.OperatorRecord, id federation.UUID, confidential bool) error {
	rec, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.Confidential == confidential {
		return nil
	}
	if err := m.stores.Evidence.SetConfidential(ctx, id, confidential); err != nil {
		return dbErr(err, "update evidence confidentiality")
	}
	if err := m.cache.Delete(ctx, federation.EvidencePrefix, id.String()); err != nil {
		return err
	}
	rec.Confidential = confidential
	if _, err := m.cache.put(ctx, federation.EvidencePrefix, rec.UUID.String(), rec.ToMap()); err != nil {
		return err
	}
	return m.audit.Append(ctx, federation.AuditEvidenceChanged,
		fmt.Sprintf("evidence %s confidential set to %t", id.String(), confidential),
		actorUUID(actor), &rec.Entity)
}

// List returns evidence newest first.
func (m *EvidenceManager) List(ctx context.Context, limit, page int) ([]federation.EvidenceRecord, error) {
	recs, err := m.stores.Evidence.List(ctx, limit, pageOffset(limit, page))
	if err != nil {
		return nil, dbErr(err, "list evidence")
	}
	if err := m.preCacheRecords(ctx, recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// ListByEntity returns evidence of one entity, newest first.
func (m *EvidenceManager) ListByEntity(ctx context.Context, entity federation.UUID, limit, page int) ([]federation.EvidenceRecord, error) {
	recs, err := m.stores.Evidence.ListByEntity(ctx, entity, limit, pageOffset(limit, page))
	if err != nil {
		return nil, dbErr(err, "list evidence by entity")
	}
	if err := m.preCacheRecords(ctx, recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// ListByOperator returns evidence submitted by one operator.
func (m *EvidenceManager) ListByOperator(ctx context.Context, operator federation.UUID, limit, page int) ([]federation.EvidenceRecord, error) {
	recs, err := m.stores.Evidence.ListByOperator(ctx, operator, limit, pageOffset(limit, page))
	if err != nil {
		return nil, dbErr(err, "list evidence by operator")
	}
	return recs, nil
}

// ListByTag returns evidence carrying the given tag.
func (m *EvidenceManager) ListByTag(ctx context.Context, tag string, limit, page int) ([]federation.EvidenceRecord, error) {
	recs, err := m.stores.Evidence.ListByTag(ctx, tag, limit, pageOffset(limit, page))
	if err != nil {
		return nil, dbErr(err, "list evidence by tag")
	}
	return recs, nil
}

// Count returns the number of evidence records.
func (m *EvidenceManager) Count(ctx context.Context) (int64, error) {
	n, err := m.stores.Evidence.Count(ctx)
	if err != nil {
		return 0, dbErr(err, "count evidence")
	}
	return n, nil
}

func (m *EvidenceManager) preCacheRecords(ctx context.Context, recs []federation.EvidenceRecord) error {
	if !m.preCache {
		return nil
	}
	maps := make([]map[string]string, len(recs))
	for i, r := range recs {
		maps[i] = r.ToMap()
	}
	return m.cache.putMany(ctx, maps, federation.EvidencePrefix, func(mp map[string]string) string {
		return mp["uuid"]
	})
}
