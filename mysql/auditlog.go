package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	federation "github.com/federatedsec/federation"
)

// AuditLogStore is the audit_log table repository.
type AuditLogStore struct {
	db *sqlx.DB
}

// NewAuditLogStore returns a repository over the audit_log table.
func NewAuditLogStore(db *sqlx.DB) *AuditLogStore {
	return &AuditLogStore{db: db}
}

func (s *AuditLogStore) Add(ctx context.Context, rec federation.AuditLogRecord) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO audit_log (uuid, type, message, operator, entity, timestamp)
		 VALUES (:uuid, :type, :message, :operator, :entity, :timestamp)`, rec)
	return err
}

func (s *AuditLogStore) GetByUUID(ctx context.Context, id federation.UUID) (*federation.AuditLogRecord, error) {
	var rec federation.AuditLogRecord
	err := s.db.GetContext(ctx, &rec, `SELECT * FROM audit_log WHERE uuid = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *AuditLogStore) List(ctx context.Context, typeFilter string, limit, offset int) ([]federation.AuditLogRecord, error) {
	recs := []federation.AuditLogRecord{}
	if typeFilter != "" {
		err := s.db.SelectContext(ctx, &recs,
			`SELECT * FROM audit_log WHERE type = ? ORDER BY timestamp DESC LIMIT ? OFFSET ?`,
			typeFilter, limit, offset)
		return recs, err
	}
	err := s.db.SelectContext(ctx, &recs,
		`SELECT * FROM audit_log ORDER BY timestamp DESC LIMIT ? OFFSET ?`, limit, offset)
	return recs, err
}

func (s *AuditLogStore) ListByOperator(ctx context.Context, operator federation.UUID, limit, offset int) ([]federation.AuditLogRecord, error) {
	recs := []federation.AuditLogRecord{}
	err := s.db.SelectContext(ctx, &recs,
		`SELECT * FROM audit_log WHERE operator = ? ORDER BY timestamp DESC LIMIT ? OFFSET ?`,
		operator, limit, offset)
	return recs, err
}

func (s *AuditLogStore) ListByEntity(ctx context.Context, entity federation.UUID, limit, offset int) ([]federation.AuditLogRecord, error) {
	recs := []federation.AuditLogRecord{}
	err := s.db.SelectContext(ctx, &recs,
		`SELECT * FROM audit_log WHERE entity = ? ORDER BY timestamp DESC LIMIT ? OFFSET ?`,
		entity, limit, offset)
	return recs, err
}

func (s *AuditLogStore) DetachOperator(ctx context.Context, operator federation.UUID) error {
	_, err := s.db.ExecContext(ctx, `UPDATE audit_log SET operator = NULL WHERE operator = ?`, operator)
	return err
}

func (s *AuditLogStore) DetachEntity(ctx context.Context, entity federation.UUID) error {
	_, err := s.db.ExecContext(ctx, `UPDATE audit_log SET entity = NULL WHERE entity = ?`, entity)
	return err
}

func (s *AuditLogStore) RemoveOlderThan(ctx context.Context, threshold int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_log WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *AuditLogStore) Count(ctx context.Context, typeFilter string) (int64, error) {
	var n int64
	if typeFilter != "" {
		err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM audit_log WHERE type = ?`, typeFilter)
		return n, err
	}
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM audit_log`)
	return n, err
}
