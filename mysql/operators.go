package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	federation "github.com/federatedsec/federation"
)

// OperatorStore is the operators table repository.
type OperatorStore struct {
	db *sqlx.DB
}

// NewOperatorStore returns a repository over the operators table.
func NewOperatorStore(db *sqlx.DB) *OperatorStore {
	return &OperatorStore{db: db}
}

func (s *OperatorStore) Add(ctx context.Context, rec federation.OperatorRecord) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO operators (uuid, api_key, name, disabled, manage_operators, manage_blacklist, is_client, created, updated)
		 VALUES (:uuid, :api_key, :name, :disabled, :manage_operators, :manage_blacklist, :is_client, :created, :updated)`, rec)
	return asConflict(err, "operator api_key already exists")
}

func (s *OperatorStore) Update(ctx context.Context, rec federation.OperatorRecord) error {
	_, err := s.db.NamedExecContext(ctx,
		`UPDATE operators SET api_key = :api_key, name = :name, disabled = :disabled,
		 manage_operators = :manage_operators, manage_blacklist = :manage_blacklist,
		 is_client = :is_client, updated = :updated WHERE uuid = :uuid`, rec)
	return asConflict(err, "operator api_key already exists")
}

func (s *OperatorStore) GetByUUID(ctx context.Context, id federation.UUID) (*federation.OperatorRecord, error) {
	var rec federation.OperatorRecord
	err := s.db.GetContext(ctx, &rec, `SELECT * FROM operators WHERE uuid = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *OperatorStore) GetByAPIKey(ctx context.Context, key string) (*federation.OperatorRecord, error) {
	var rec federation.OperatorRecord
	err := s.db.GetContext(ctx, &rec, `SELECT * FROM operators WHERE api_key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *OperatorStore) Remove(ctx context.Context, id federation.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM operators WHERE uuid = ?`, id)
	return err
}

func (s *OperatorStore) List(ctx context.Context, limit, offset int) ([]federation.OperatorRecord, error) {
	recs := []federation.OperatorRecord{}
	err := s.db.SelectContext(ctx, &recs,
		`SELECT * FROM operators ORDER BY created DESC LIMIT ? OFFSET ?`, limit, offset)
	return recs, err
}

func (s *OperatorStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM operators`)
	return n, err
}
