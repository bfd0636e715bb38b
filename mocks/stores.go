// Package mocks provides in-memory store implementations used by manager
// and HTTP tests. Semantics mirror the MySQL repositories: (nil, nil) on
// not-found, Conflict on unique-key violation, newest-first lists.
package mocks

import (
	"context"
	"sort"
	"sync"

	federation "github.com/federatedsec/federation"
)

// NewStores returns a fully in-memory store bundle. The attachment store is
// wired to the evidence store so the entity join works.
func NewStores() federation.Stores {
	evidence := &EvidenceStore{byUUID: map[federation.UUID]federation.EvidenceRecord{}}
	return federation.Stores{
		Operators: &OperatorStore{byUUID: map[federation.UUID]federation.OperatorRecord{}},
		Entities:  &EntityStore{byUUID: map[federation.UUID]federation.EntityRecord{}},
		Evidence:  evidence,
		Attachments: &FileAttachmentStore{
			byUUID:   map[federation.UUID]federation.FileAttachmentRecord{},
			evidence: evidence,
		},
		Blacklist: &BlacklistStore{byUUID: map[federation.UUID]federation.BlacklistRecord{}},
		AuditLogs: &AuditLogStore{byUUID: map[federation.UUID]federation.AuditLogRecord{}},
	}
}

func page[T any](recs []T, limit, offset int) []T {
	if offset >= len(recs) {
		return []T{}
	}
	recs = recs[offset:]
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

// OperatorStore is the in-memory operators table.
type OperatorStore struct {
	mu     sync.RWMutex
	byUUID map[federation.UUID]federation.OperatorRecord
}

func (s *OperatorStore) Add(ctx context.Context, rec federation.OperatorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byUUID {
		if existing.APIKey == rec.APIKey {
			return federation.NewError(federation.Conflict, "api key already exists")
		}
	}
	s.byUUID[rec.UUID] = rec
	return nil
}

func (s *OperatorStore) Update(ctx context.Context, rec federation.OperatorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUUID[rec.UUID] = rec
	return nil
}

func (s *OperatorStore) GetByUUID(ctx context.Context, id federation.UUID) (*federation.OperatorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.byUUID[id]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (s *OperatorStore) GetByAPIKey(ctx context.Context, key string) (*federation.OperatorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.byUUID {
		if rec.APIKey == key {
			rec := rec
			return &rec, nil
		}
	}
	return nil, nil
}

func (s *OperatorStore) Remove(ctx context.Context, id federation.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUUID, id)
	return nil
}

func (s *OperatorStore) List(ctx context.Context, limit, offset int) ([]federation.OperatorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := make([]federation.OperatorRecord, 0, len(s.byUUID))
	for _, rec := range s.byUUID {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Created > recs[j].Created })
	return page(recs, limit, offset), nil
}

func (s *OperatorStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.byUUID)), nil
}

// EntityStore is the in-memory entities table.
type EntityStore struct {
	mu     sync.RWMutex
	byUUID map[federation.UUID]federation.EntityRecord
}

func (s *EntityStore) Add(ctx context.Context, rec federation.EntityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byUUID {
		if existing.Hash == rec.Hash {
			return federation.NewError(federation.Conflict, "entity already exists")
		}
	}
	s.byUUID[rec.UUID] = rec
	return nil
}

func (s *EntityStore) GetByUUID(ctx context.Context, id federation.UUID) (*federation.EntityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.byUUID[id]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (s *EntityStore) GetByHash(ctx context.Context, hash string) (*federation.EntityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.byUUID {
		if rec.Hash == hash {
			rec := rec
			return &rec, nil
		}
	}
	return nil, nil
}

func (s *EntityStore) Remove(ctx context.Context, id federation.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUUID, id)
	return nil
}

func (s *EntityStore) List(ctx context.Context, limit, offset int) ([]federation.EntityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := make([]federation.EntityRecord, 0, len(s.byUUID))
	for _, rec := range s.byUUID {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Created > recs[j].Created })
	return page(recs, limit, offset), nil
}

func (s *EntityStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.byUUID)), nil
}

// EvidenceStore is the in-memory evidence table.
type EvidenceStore struct {
	mu     sync.RWMutex
	byUUID map[federation.UUID]federation.EvidenceRecord
}

func (s *EvidenceStore) Add(ctx context.Context, rec federation.EvidenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUUID[rec.UUID] = rec
	return nil
}

func (s *EvidenceStore) GetByUUID(ctx context.Context, id federation.UUID) (*federation.EvidenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.byUUID[id]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (s *EvidenceStore) SetConfidential(ctx context.Context, id federation.UUID, confidential bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.byUUID[id]; ok {
		rec.Confidential = confidential
		s.byUUID[id] = rec
	}
	return nil
}

func (s *EvidenceStore) Remove(ctx context.Context, id federation.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUUID, id)
	return nil
}

func (s *EvidenceStore) RemoveByEntity(ctx context.Context, entity federation.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range s.byUUID {
		if rec.Entity.Compare(entity) == 0 {
			delete(s.byUUID, id)
		}
	}
	return nil
}

func (s *EvidenceStore) list(filter func(federation.EvidenceRecord) bool, limit, offset int) []federation.EvidenceRecord {
	recs := []federation.EvidenceRecord{}
	for _, rec := range s.byUUID {
		if filter(rec) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Created > recs[j].Created })
	return page(recs, limit, offset)
}

func (s *EvidenceStore) List(ctx context.Context, limit, offset int) ([]federation.EvidenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(func(federation.EvidenceRecord) bool { return true }, limit, offset), nil
}

func (s *EvidenceStore) ListByEntity(ctx context.Context, entity federation.UUID, limit, offset int) ([]federation.EvidenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(func(r federation.EvidenceRecord) bool { return r.Entity.Compare(entity) == 0 }, limit, offset), nil
}

func (s *EvidenceStore) ListByOperator(ctx context.Context, operator federation.UUID, limit, offset int) ([]federation.EvidenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(func(r federation.EvidenceRecord) bool { return r.Operator.Compare(operator) == 0 }, limit, offset), nil
}

func (s *EvidenceStore) ListByTag(ctx context.Context, tag string, limit, offset int) ([]federation.EvidenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(func(r federation.EvidenceRecord) bool { return r.Tag != nil && *r.Tag == tag }, limit, offset), nil
}

func (s *EvidenceStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.byUUID)), nil
}

// FileAttachmentStore is the in-memory file_attachments table. ListByEntity
// and RemoveByEntity resolve the entity join through the evidence store.
type FileAttachmentStore struct {
	mu       sync.RWMutex
	byUUID   map[federation.UUID]federation.FileAttachmentRecord
	evidence *EvidenceStore
}

func (s *FileAttachmentStore) Add(ctx context.Context, rec federation.FileAttachmentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUUID[rec.UUID] = rec
	return nil
}

func (s *FileAttachmentStore) GetByUUID(ctx context.Context, id federation.UUID) (*federation.FileAttachmentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.byUUID[id]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (s *FileAttachmentStore) ListByEvidence(ctx context.Context, evidence federation.UUID) ([]federation.FileAttachmentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := []federation.FileAttachmentRecord{}
	for _, rec := range s.byUUID {
		if rec.Evidence.Compare(evidence) == 0 {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Created > recs[j].Created })
	return recs, nil
}

func (s *FileAttachmentStore) ListByEntity(ctx context.Context, entity federation.UUID) ([]federation.FileAttachmentRecord, error) {
	evidenceIDs := s.evidenceOf(entity)
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := []federation.FileAttachmentRecord{}
	for _, rec := range s.byUUID {
		if _, ok := evidenceIDs[rec.Evidence]; ok {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

func (s *FileAttachmentStore) Remove(ctx context.Context, id federation.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUUID, id)
	return nil
}

func (s *FileAttachmentStore) RemoveByEvidence(ctx context.Context, evidence federation.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range s.byUUID {
		if rec.Evidence.Compare(evidence) == 0 {
			delete(s.byUUID, id)
		}
	}
	return nil
}

func (s *FileAttachmentStore) RemoveByEntity(ctx context.Context, entity federation.UUID) error {
	evidenceIDs := s.evidenceOf(entity)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range s.byUUID {
		if _, ok := evidenceIDs[rec.Evidence]; ok {
			delete(s.byUUID, id)
		}
	}
	return nil
}

func (s *FileAttachmentStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.byUUID)), nil
}

func (s *FileAttachmentStore) evidenceOf(entity federation.UUID) map[federation.UUID]struct{} {
	ids := map[federation.UUID]struct{}{}
	if s.evidence == nil {
		return ids
	}
	s.evidence.mu.RLock()
	defer s.evidence.mu.RUnlock()
	for id, rec := range s.evidence.byUUID {
		if rec.Entity.Compare(entity) == 0 {
			ids[id] = struct{}{}
		}
	}
	return ids
}

// BlacklistStore is the in-memory blacklist table.
type BlacklistStore struct {
	mu     sync.RWMutex
	byUUID map[federation.UUID]federation.BlacklistRecord
}

func (s *BlacklistStore) Add(ctx context.Context, rec federation.BlacklistRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUUID[rec.UUID] = rec
	return nil
}

func (s *BlacklistStore) GetByUUID(ctx context.Context, id federation.UUID) (*federation.BlacklistRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.byUUID[id]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (s *BlacklistStore) MarkLifted(ctx context.Context, id federation.UUID, liftedBy *federation.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.byUUID[id]; ok {
		rec.Lifted = true
		rec.LiftedBy = liftedBy
		s.byUUID[id] = rec
	}
	return nil
}

func (s *BlacklistStore) SetEvidence(ctx context.Context, id federation.UUID, evidence *federation.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.byUUID[id]; ok {
		rec.Evidence = evidence
		s.byUUID[id] = rec
	}
	return nil
}

func (s *BlacklistStore) ClearEvidence(ctx context.Context, evidence federation.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range s.byUUID {
		if rec.Evidence != nil && rec.Evidence.Compare(evidence) == 0 {
			rec.Evidence = nil
			s.byUUID[id] = rec
		}
	}
	return nil
}

func (s *BlacklistStore) Remove(ctx context.Context, id federation.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUUID, id)
	return nil
}

func (s *BlacklistStore) RemoveByEntity(ctx context.Context, entity federation.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range s.byUUID {
		if rec.Entity.Compare(entity) == 0 {
			delete(s.byUUID, id)
		}
	}
	return nil
}

func (s *BlacklistStore) list(filter func(federation.BlacklistRecord) bool, includeLifted bool, limit, offset int) []federation.BlacklistRecord {
	recs := []federation.BlacklistRecord{}
	for _, rec := range s.byUUID {
		if !includeLifted && rec.Lifted {
			continue
		}
		if filter(rec) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Created > recs[j].Created })
	return page(recs, limit, offset)
}

func (s *BlacklistStore) List(ctx context.Context, includeLifted bool, limit, offset int) ([]federation.BlacklistRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(func(federation.BlacklistRecord) bool { return true }, includeLifted, limit, offset), nil
}

func (s *BlacklistStore) ListByEntity(ctx context.Context, entity federation.UUID, includeLifted bool, limit, offset int) ([]federation.BlacklistRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(func(r federation.BlacklistRecord) bool { return r.Entity.Compare(entity) == 0 }, includeLifted, limit, offset), nil
}

func (s *BlacklistStore) ListByOperator(ctx context.Context, operator federation.UUID, includeLifted bool, limit, offset int) ([]federation.BlacklistRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(func(r federation.BlacklistRecord) bool { return r.Operator.Compare(operator) == 0 }, includeLifted, limit, offset), nil
}

func (s *BlacklistStore) ActiveExists(ctx context.Context, entity federation.UUID, now int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.byUUID {
		if rec.Entity.Compare(entity) != 0 || rec.Lifted {
			continue
		}
		if rec.Expires == nil || *rec.Expires > now {
			return true, nil
		}
	}
	return false, nil
}

func (s *BlacklistStore) RemoveOlderThan(ctx context.Context, threshold int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, rec := range s.byUUID {
		expired := rec.Expires != nil && *rec.Expires < threshold
		stalePermanent := rec.Expires == nil && rec.Created < threshold
		if expired || stalePermanent {
			delete(s.byUUID, id)
			n++
		}
	}
	return n, nil
}

func (s *BlacklistStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.byUUID)), nil
}

// AuditLogStore is the in-memory audit_log table.
type AuditLogStore struct {
	mu     sync.RWMutex
	byUUID map[federation.UUID]federation.AuditLogRecord
}

func (s *AuditLogStore) Add(ctx context.Context, rec federation.AuditLogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUUID[rec.UUID] = rec
	return nil
}

func (s *AuditLogStore) GetByUUID(ctx context.Context, id federation.UUID) (*federation.AuditLogRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.byUUID[id]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (s *AuditLogStore) list(filter func(federation.AuditLogRecord) bool, limit, offset int) []federation.AuditLogRecord {
	recs := []federation.AuditLogRecord{}
	for _, rec := range s.byUUID {
		if filter(rec) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Timestamp != recs[j].Timestamp {
			return recs[i].Timestamp > recs[j].Timestamp
		}
		return recs[i].UUID.Compare(recs[j].UUID) > 0
	})
	return page(recs, limit, offset)
}

func (s *AuditLogStore) List(ctx context.Context, typeFilter string, limit, offset int) ([]federation.AuditLogRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(func(r federation.AuditLogRecord) bool {
		return typeFilter == "" || string(r.Type) == typeFilter
	}, limit, offset), nil
}

func (s *AuditLogStore) ListByOperator(ctx context.Context, operator federation.UUID, limit, offset int) ([]federation.AuditLogRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(func(r federation.AuditLogRecord) bool {
		return r.Operator != nil && r.Operator.Compare(operator) == 0
	}, limit, offset), nil
}

func (s *AuditLogStore) ListByEntity(ctx context.Context, entity federation.UUID, limit, offset int) ([]federation.AuditLogRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(func(r federation.AuditLogRecord) bool {
		return r.Entity != nil && r.Entity.Compare(entity) == 0
	}, limit, offset), nil
}

func (s *AuditLogStore) DetachOperator(ctx context.Context, operator federation.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range s.byUUID {
		if rec.Operator != nil && rec.Operator.Compare(operator) == 0 {
			rec.Operator = nil
			s.byUUID[id] = rec
		}
	}
	return nil
}

func (s *AuditLogStore) DetachEntity(ctx context.Context, entity federation.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range s.byUUID {
		if rec.Entity != nil && rec.Entity.Compare(entity) == 0 {
			rec.Entity = nil
			s.byUUID[id] = rec
		}
	}
	return nil
}

func (s *AuditLogStore) RemoveOlderThan(ctx context.Context, threshold int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, rec := range s.byUUID {
		if rec.Timestamp < threshold {
			delete(s.byUUID, id)
			n++
		}
	}
	return n, nil
}

func (s *AuditLogStore) Count(ctx context.Context, typeFilter string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if typeFilter == "" {
		return int64(len(s.byUUID)), nil
	}
	var n int64
	for _, rec := range s.byUUID {
		if string(rec.Type) == typeFilter {
			n++
		}
	}
	return n, nil
}

var (
	_ federation.OperatorStore       = (*OperatorStore)(nil)
	_ federation.EntityStore         = (*EntityStore)(nil)
	_ federation.EvidenceStore       = (*EvidenceStore)(nil)
	_ federation.FileAttachmentStore = (*FileAttachmentStore)(nil)
	_ federation.BlacklistStore      = (*BlacklistStore)(nil)
	_ federation.AuditLogStore       = (*AuditLogStore)(nil)
)
