package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	federation "github.com/federatedsec/federation"
)

// EvidenceStore is the evidence table repository.
type EvidenceStore struct {
	db *sqlx.DB
}

// NewEvidenceStore returns a repository over the evidence table.
func NewEvidenceStore(db *sqlx.DB) *EvidenceStore {
	return &EvidenceStore{db: db}
}

func (s *EvidenceStore) Add(ctx context.Context, rec federation.EvidenceRecord) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO evidence (uuid, entity, operator, confidential, text_content, note, tag, created)
		 VALUES (:uuid, :entity, :operator, :confidential, :text_content, :note, :tag, :created)`, rec)
	return err
}

func (s *EvidenceStore) GetByUUID(ctx context.Context, id federation.UUID) (*federation.EvidenceRecord, error) {
	var rec federation.EvidenceRecord
	err := s.db.GetContext(ctx, &rec, `SELECT * FROM evidence WHERE uuid = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *EvidenceStore) SetConfidential(ctx context.Context, id federation.UUID, confidential bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE evidence SET confidential = ? WHERE uuid = ?`, confidential, id)
	return err
}

func (s *EvidenceStore) Remove(ctx context.Context, id federation.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM evidence WHERE uuid = ?`, id)
	return err
}

func (s *EvidenceStore) RemoveByEntity(ctx context.Context, entity federation.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM evidence WHERE entity = ?`, entity)
	return err
}

func (s *EvidenceStore) List(ctx context.Context, limit, offset int) ([]federation.EvidenceRecord, error) {
	recs := []federation.EvidenceRecord{}
	err := s.db.SelectContext(ctx, &recs,
		`SELECT * FROM evidence ORDER BY created DESC LIMIT ? OFFSET ?`, limit, offset)
	return recs, err
}

func (s *EvidenceStore) ListByEntity(ctx context.Context, entity federation.UUID, limit, offset int) ([]federation.EvidenceRecord, error) {
	recs := []federation.EvidenceRecord{}
	err := s.db.SelectContext(ctx, &recs,
		`SELECT * FROM evidence WHERE entity = ? ORDER BY created DESC LIMIT ? OFFSET ?`, entity, limit, offset)
	return recs, err
}

func (s *EvidenceStore) ListByOperator(ctx context.Context, operator federation.UUID, limit, offset int) ([]federation.EvidenceRecord, error) {
	recs := []federation.EvidenceRecord{}
	err := s.db.SelectContext(ctx, &recs,
		`SELECT * FROM evidence WHERE operator = ? ORDER BY created DESC LIMIT ? OFFSET ?`, operator, limit, offset)
	return recs, err
}

func (s *EvidenceStore) ListByTag(ctx context.Context, tag string, limit, offset int) ([]federation.EvidenceRecord, error) {
	recs := []federation.EvidenceRecord{}
	err := s.db.SelectContext(ctx, &recs,
		`SELECT * FROM evidence WHERE tag = ? ORDER BY created DESC LIMIT ? OFFSET ?`, tag, limit, offset)
	return recs, err
}

func (s *EvidenceStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM evidence`)
	return n, err
}
