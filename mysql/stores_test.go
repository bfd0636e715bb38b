package mysql

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	federation "github.com/federatedsec/federation"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func operatorColumns() []string {
	return []string{"uuid", "api_key", "name", "disabled", "manage_operators",
		"manage_blacklist", "is_client", "created", "updated"}
}

func TestOperatorGetByUUID(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewOperatorStore(db)
	id := federation.NewUUID()

	mock.ExpectQuery(`SELECT \* FROM operators WHERE uuid = \?`).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows(operatorColumns()).
			AddRow(id.String(), "k1234567890123456789012345678901", "partner-isp",
				false, false, true, true, 1700000000, 1700000000))

	rec, err := store.GetByUUID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, id, rec.UUID)
	assert.Equal(t, "partner-isp", rec.Name)
	assert.True(t, rec.ManageBlacklist)
	assert.False(t, rec.ManageOperators)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Missing rows are a nil record, not an error; managers decide whether that
// maps to NotFound.
func TestOperatorGetByUUIDMissing(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewOperatorStore(db)
	id := federation.NewUUID()

	mock.ExpectQuery(`SELECT \* FROM operators WHERE uuid = \?`).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows(operatorColumns()))

	rec, err := store.GetByUUID(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, rec)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOperatorAddDuplicateKey(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewOperatorStore(db)

	mock.ExpectExec(`INSERT INTO operators`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := store.Add(context.Background(), federation.OperatorRecord{
		UUID:   federation.NewUUID(),
		APIKey: federation.NewAPIKey(),
		Name:   "partner-isp",
	})
	require.Error(t, err)
	assert.Equal(t, federation.Conflict, federation.CodeOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOperatorList(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewOperatorStore(db)
	a, b := federation.NewUUID(), federation.NewUUID()

	mock.ExpectQuery(`SELECT \* FROM operators ORDER BY created DESC LIMIT \? OFFSET \?`).
		WithArgs(10, 20).
		WillReturnRows(sqlmock.NewRows(operatorColumns()).
			AddRow(a.String(), "ka234567890123456789012345678901", "op-a", false, false, false, false, 2, 2).
			AddRow(b.String(), "kb234567890123456789012345678901", "op-b", false, false, false, false, 1, 1))

	recs, err := store.List(context.Background(), 10, 20)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, a, recs[0].UUID)
	assert.Equal(t, b, recs[1].UUID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBlacklistActiveExists(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewBlacklistStore(db)
	entity := federation.NewUUID()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM blacklist WHERE entity = \? AND lifted = 0 AND \(expires IS NULL OR expires > \?\)`).
		WithArgs(entity.String(), int64(1700000000)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	active, err := store.ActiveExists(context.Background(), entity, 1700000000)
	require.NoError(t, err)
	assert.True(t, active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBlacklistRemoveOlderThan(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewBlacklistStore(db)

	mock.ExpectExec(`DELETE FROM blacklist WHERE \(expires IS NOT NULL AND expires < \?\) OR \(expires IS NULL AND created < \?\)`).
		WithArgs(int64(1690000000), int64(1690000000)).
		WillReturnResult(sqlmock.NewResult(0, 4))

	removed, err := store.RemoveOlderThan(context.Background(), 1690000000)
	require.NoError(t, err)
	assert.Equal(t, int64(4), removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBlacklistGetByUUIDNullOptionals(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewBlacklistStore(db)
	id, entity, operator := federation.NewUUID(), federation.NewUUID(), federation.NewUUID()

	cols := []string{"uuid", "entity", "operator", "type", "expires", "lifted",
		"lifted_by", "evidence", "created"}
	mock.ExpectQuery(`SELECT \* FROM blacklist WHERE uuid = \?`).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(id.String(), entity.String(), operator.String(), "spam",
				nil, false, nil, nil, 1700000000))

	rec, err := store.GetByUUID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, federation.BlacklistSpam, rec.Type)
	assert.Nil(t, rec.Expires)
	assert.Nil(t, rec.LiftedBy)
	assert.Nil(t, rec.Evidence)
	require.NoError(t, mock.ExpectationsWereMet())
}
