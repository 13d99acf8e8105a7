package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	return Wrap(sqlx.NewDb(raw, "postgres"), nil, logger.NewNop(), nil), mock
}

func TestPing(t *testing.T) {
	db, mock := newMockDatabase(t)

	mock.ExpectPing()
	assert.NoError(t, db.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	err := db.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database ping failed")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecContextRecordsQuery(t *testing.T) {
	db, mock := newMockDatabase(t)

	mock.ExpectExec("DELETE FROM listings").WillReturnResult(sqlmock.NewResult(0, 2))
	res, err := db.ExecContext(context.Background(), "DELETE FROM listings WHERE created_at < now()")
	require.NoError(t, err)

	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExtractTableName(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"INSERT INTO listings (auction_id) VALUES ($1)", "listings"},
		{"DELETE FROM reactions WHERE id = $1", "reactions"},
		{"UPDATE user_preferences SET setup_complete = TRUE", "user_preferences"},
		{"SELECT EXISTS(SELECT 1 FROM listings WHERE auction_id = $1)", "listings"},
		{"SELECT 1", "unknown"},
		{"", "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, extractTableName(tt.query), tt.query)
	}
}
