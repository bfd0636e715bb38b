package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	federation "github.com/federatedsec/federation"
)

// FileAttachmentStore is the file_attachments table repository.
type FileAttachmentStore struct {
	db *sqlx.DB
}

// NewFileAttachmentStore returns a repository over the file_attachments table.
func NewFileAttachmentStore(db *sqlx.DB) *FileAttachmentStore {
	return &FileAttachmentStore{db: db}
}

func (s *FileAttachmentStore) Add(ctx context.Context, rec federation.FileAttachmentRecord) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO file_attachments (uuid, evidence, file_mime, file_name, file_size, created)
		 VALUES (:uuid, :evidence, :file_mime, :file_name, :file_size, :created)`, rec)
	return err
}

func (s *FileAttachmentStore) GetByUUID(ctx context.Context, id federation.UUID) (*federation.FileAttachmentRecord, error) {
	var rec federation.FileAttachmentRecord
	err := s.db.GetContext(ctx, &rec, `SELECT * FROM file_attachments WHERE uuid = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *FileAttachmentStore) ListByEvidence(ctx context.Context, evidence federation.UUID) ([]federation.FileAttachmentRecord, error) {
	recs := []federation.FileAttachmentRecord{}
	err := s.db.SelectContext(ctx, &recs,
		`SELECT * FROM file_attachments WHERE evidence = ? ORDER BY created DESC`, evidence)
	return recs, err
}

func (s *FileAttachmentStore) ListByEntity(ctx context.Context, entity federation.UUID) ([]federation.FileAttachmentRecord, error) {
	recs := []federation.FileAttachmentRecord{}
	err := s.db.SelectContext(ctx, &recs,
		`SELECT fa.* FROM file_attachments fa
		 JOIN evidence e ON e.uuid = fa.evidence
		 WHERE e.entity = ? ORDER BY fa.created DESC`, entity)
	return recs, err
}

func (s *FileAttachmentStore) Remove(ctx context.Context, id federation.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM file_attachments WHERE uuid = ?`, id)
	return err
}

func (s *FileAttachmentStore) RemoveByEvidence(ctx context.Context, evidence federation.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM file_attachments WHERE evidence = ?`, evidence)
	return err
}

func (s *FileAttachmentStore) RemoveByEntity(ctx context.Context, entity federation.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE fa FROM file_attachments fa
		 JOIN evidence e ON e.uuid = fa.evidence
		 WHERE e.entity = ?`, entity)
	return err
}

func (s *FileAttachmentStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM file_attachments`)
	return n, err
}
