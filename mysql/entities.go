package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	federation "github.com/federatedsec/federation"
)

// EntityStore is the entities table repository.
type EntityStore struct {
	db *sqlx.DB
}

// NewEntityStore returns a repository over the entities table.
func NewEntityStore(db *sqlx.DB) *EntityStore {
	return &EntityStore{db: db}
}

func (s *EntityStore) Add(ctx context.Context, rec federation.EntityRecord) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO entities (uuid, hash, id, host, created)
		 VALUES (:uuid, :hash, :id, :host, :created)`, rec)
	return asConflict(err, "entity already registered")
}

func (s *EntityStore) GetByUUID(ctx context.Context, id federation.UUID) (*federation.EntityRecord, error) {
	var rec federation.EntityRecord
	err := s.db.GetContext(ctx, &rec, `SELECT * FROM entities WHERE uuid = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *EntityStore) GetByHash(ctx context.Context, hash string) (*federation.EntityRecord, error) {
	var rec federation.EntityRecord
	err := s.db.GetContext(ctx, &rec, `SELECT * FROM entities WHERE hash = ?`, hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *EntityStore) Remove(ctx context.Context, id federation.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE uuid = ?`, id)
	return err
}

func (s *EntityStore) List(ctx context.Context, limit, offset int) ([]federation.EntityRecord, error) {
	recs := []federation.EntityRecord{}
	err := s.db.SelectContext(ctx, &recs,
		`SELECT * FROM entities ORDER BY created DESC LIMIT ? OFFSET ?`, limit, offset)
	return recs, err
}

func (s *EntityStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM entities`)
	return n, err
}
