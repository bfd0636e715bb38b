package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	federation "github.com/federatedsec/federation"
)

// BlacklistStore is the blacklist table repository.
type BlacklistStore struct {
	db *sqlx.DB
}

// NewBlacklistStore returns a repository over the blacklist table.
func NewBlacklistStore(db *sqlx.DB) *BlacklistStore {
	return &BlacklistStore{db: db}
}

func (s *BlacklistStore) Add(ctx context.Context, rec federation.BlacklistRecord) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO blacklist (uuid, entity, operator, type, expires, lifted, lifted_by, evidence, created)
		 VALUES (:uuid, :entity, :operator, :type, :expires, :lifted, :lifted_by, :evidence, :created)`, rec)
	return err
}

func (s *BlacklistStore) GetByUUID(ctx context.Context, id federation.UUID) (*federation.BlacklistRecord, error) {
	var rec federation.BlacklistRecord
	err := s.db.GetContext(ctx, &rec, `SELECT * FROM blacklist WHERE uuid = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *BlacklistStore) MarkLifted(ctx context.Context, id federation.UUID, liftedBy *federation.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE blacklist SET lifted = 1, lifted_by = ? WHERE uuid = ?`, liftedBy, id)
	return err
}

func (s *BlacklistStore) SetEvidence(ctx context.Context, id federation.UUID, evidence *federation.UUID) error {
	_, err := s.db.ExecContext(ctx, `UPDATE blacklist SET evidence = ? WHERE uuid = ?`, evidence, id)
	return err
}

func (s *BlacklistStore) ClearEvidence(ctx context.Context, evidence federation.UUID) error {
	_, err := s.db.ExecContext(ctx, `UPDATE blacklist SET evidence = NULL WHERE evidence = ?`, evidence)
	return err
}

func (s *BlacklistStore) Remove(ctx context.Context, id federation.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM blacklist WHERE uuid = ?`, id)
	return err
}

func (s *BlacklistStore) RemoveByEntity(ctx context.Context, entity federation.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM blacklist WHERE entity = ?`, entity)
	return err
}

func (s *BlacklistStore) List(ctx context.Context, includeLifted bool, limit, offset int) ([]federation.BlacklistRecord, error) {
	recs := []federation.BlacklistRecord{}
	q := `SELECT * FROM blacklist ORDER BY created DESC LIMIT ? OFFSET ?`
	if !includeLifted {
		q = `SELECT * FROM blacklist WHERE lifted = 0 ORDER BY created DESC LIMIT ? OFFSET ?`
	}
	err := s.db.SelectContext(ctx, &recs, q, limit, offset)
	return recs, err
}

func (s *BlacklistStore) ListByEntity(ctx context.Context, entity federation.UUID, includeLifted bool, limit, offset int) ([]federation.BlacklistRecord, error) {
	recs := []federation.BlacklistRecord{}
	q := `SELECT * FROM blacklist WHERE entity = ? ORDER BY created DESC LIMIT ? OFFSET ?`
	if !includeLifted {
		q = `SELECT * FROM blacklist WHERE entity = ? AND lifted = 0 ORDER BY created DESC LIMIT ? OFFSET ?`
	}
	err := s.db.SelectContext(ctx, &recs, q, entity, limit, offset)
	return recs, err
}

func (s *BlacklistStore) ListByOperator(ctx context.Context, operator federation.UUID, includeLifted bool, limit, offset int) ([]federation.BlacklistRecord, error) {
	recs := []federation.BlacklistRecord{}
	q := `SELECT * FROM blacklist WHERE operator = ? ORDER BY created DESC LIMIT ? OFFSET ?`
	if !includeLifted {
		q = `SELECT * FROM blacklist WHERE operator = ? AND lifted = 0 ORDER BY created DESC LIMIT ? OFFSET ?`
	}
	err := s.db.SelectContext(ctx, &recs, q, operator, limit, offset)
	return recs, err
}

func (s *BlacklistStore) ActiveExists(ctx context.Context, entity federation.UUID, now int64) (bool, error) {
	var n int64
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM blacklist WHERE entity = ? AND lifted = 0 AND (expires IS NULL OR expires > ?)`,
		entity, now)
	return n > 0, err
}

func (s *BlacklistStore) RemoveOlderThan(ctx context.Context, threshold int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM blacklist WHERE (expires IS NOT NULL AND expires < ?) OR (expires IS NULL AND created < ?)`,
		threshold, threshold)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *BlacklistStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM blacklist`)
	return n, err
}
