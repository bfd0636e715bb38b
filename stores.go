package federation

import (
	"context"
	"io"
)

// Store contracts of the primary relational store, one per table. A lookup
// that finds nothing returns (nil, nil); managers translate that into the
// NotFound error kind. Store failures are returned as-is and wrapped into
// DatabaseOperationFailed at the manager boundary.

// OperatorStore persists operator records.
type OperatorStore interface {
	Add(ctx context.Context, rec OperatorRecord) error
	Update(ctx context.Context, rec OperatorRecord) error
	GetByUUID(ctx context.Context, id UUID) (*OperatorRecord, error)
	GetByAPIKey(ctx context.Context, key string) (*OperatorRecord, error)
	Remove(ctx context.Context, id UUID) error
	List(ctx context.Context, limit, offset int) ([]OperatorRecord, error)
	Count(ctx context.Context) (int64, error)
}

// EntityStore persists entity records.
type EntityStore interface {
	Add(ctx context.Context, rec EntityRecord) error
	GetByUUID(ctx context.Context, id UUID) (*EntityRecord, error)
	GetByHash(ctx context.Context, hash string) (*EntityRecord, error)
	Remove(ctx context.Context, id UUID) error
	List(ctx context.Context, limit, offset int) ([]EntityRecord, error)
	Count(ctx context.Context) (int64, error)
}

// EvidenceStore persists evidence records.
type EvidenceStore interface {
	Add(ctx context.Context, rec EvidenceRecord) error
	GetByUUID(ctx context.Context, id UUID) (*EvidenceRecord, error)
	SetConfidential(ctx context.Context, id UUID, confidential bool) error
	Remove(ctx context.Context, id UUID) error
	RemoveByEntity(ctx context.Context, entity UUID) error
	List(ctx context.Context, limit, offset int) ([]EvidenceRecord, error)
	ListByEntity(ctx context.Context, entity UUID, limit, offset int) ([]EvidenceRecord, error)
	ListByOperator(ctx context.Context, operator UUID, limit, offset int) ([]EvidenceRecord, error)
	ListByTag(ctx context.Context, tag string, limit, offset int) ([]EvidenceRecord, error)
	Count(ctx context.Context) (int64, error)
}

// FileAttachmentStore persists attachment metadata rows. The binary payload
// lives in a FileStore keyed by the attachment UUID.
type FileAttachmentStore interface {
	Add(ctx context.Context, rec FileAttachmentRecord) error
	GetByUUID(ctx context.Context, id UUID) (*FileAttachmentRecord, error)
	ListByEvidence(ctx context.Context, evidence UUID) ([]FileAttachmentRecord, error)
	// ListByEntity resolves attachments through their evidence rows; the
	// entity cascade uses it to unlink stored files before rows go away.
	ListByEntity(ctx context.Context, entity UUID) ([]FileAttachmentRecord, error)
	Remove(ctx context.Context, id UUID) error
	RemoveByEvidence(ctx context.Context, evidence UUID) error
	RemoveByEntity(ctx context.Context, entity UUID) error
	Count(ctx context.Context) (int64, error)
}

// BlacklistStore persists blacklist verdicts.
type BlacklistStore interface {
	Add(ctx context.Context, rec BlacklistRecord) error
	GetByUUID(ctx context.Context, id UUID) (*BlacklistRecord, error)
	MarkLifted(ctx context.Context, id UUID, liftedBy *UUID) error
	SetEvidence(ctx context.Context, id UUID, evidence *UUID) error
	// ClearEvidence nulls the evidence pointer on every verdict referencing
	// the given evidence row; the verdicts survive.
	ClearEvidence(ctx context.Context, evidence UUID) error
	Remove(ctx context.Context, id UUID) error
	RemoveByEntity(ctx context.Context, entity UUID) error
	List(ctx context.Context, includeLifted bool, limit, offset int) ([]BlacklistRecord, error)
	ListByEntity(ctx context.Context, entity UUID, includeLifted bool, limit, offset int) ([]BlacklistRecord, error)
	ListByOperator(ctx context.Context, operator UUID, includeLifted bool, limit, offset int) ([]BlacklistRecord, error)
	// ActiveExists reports whether the entity has a verdict that is not
	// lifted and not expired at the given epoch second.
	ActiveExists(ctx context.Context, entity UUID, now int64) (bool, error)
	// RemoveOlderThan deletes rows whose expiry (or, for permanent rows,
	// creation) is older than the threshold epoch second.
	RemoveOlderThan(ctx context.Context, threshold int64) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// AuditLogStore persists the append-only audit log.
type AuditLogStore interface {
	Add(ctx context.Context, rec AuditLogRecord) error
	GetByUUID(ctx context.Context, id UUID) (*AuditLogRecord, error)
	List(ctx context.Context, typeFilter string, limit, offset int) ([]AuditLogRecord, error)
	ListByOperator(ctx context.Context, operator UUID, limit, offset int) ([]AuditLogRecord, error)
	ListByEntity(ctx context.Context, entity UUID, limit, offset int) ([]AuditLogRecord, error)
	// DetachOperator nulls the operator column on rows referencing a deleted
	// operator; the rows survive.
	DetachOperator(ctx context.Context, operator UUID) error
	// DetachEntity nulls the entity column on rows referencing a deleted
	// entity; the rows survive.
	DetachEntity(ctx context.Context, entity UUID) error
	RemoveOlderThan(ctx context.Context, threshold int64) (int64, error)
	Count(ctx context.Context, typeFilter string) (int64, error)
}

// Stores bundles the per-table repositories of one primary store.
type Stores struct {
	Operators   OperatorStore
	Entities    EntityStore
	Evidence    EvidenceStore
	Attachments FileAttachmentStore
	Blacklist   BlacklistStore
	AuditLogs   AuditLogStore
}

// FileStore holds attachment binaries keyed by attachment UUID. Remove of a
// missing object is not an error.
type FileStore interface {
	Write(ctx context.Context, id UUID, r io.Reader) (int64, error)
	Read(ctx context.Context, id UUID) (io.ReadCloser, error)
	Remove(ctx context.Context, id UUID) error
}
