package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llm-billing-gateway/internal/core/domain"
)

func TestKeyRepo_LockUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewKeyRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs("uid-1").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.LockUser(context.Background(), tx, "uid-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKeyRepo_CountByUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewKeyRepo(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM api_keys").
		WithArgs("uid-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	count, err := repo.CountByUser(context.Background(), tx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKeyRepo_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewKeyRepo(mock)
	k := &domain.APIKey{
		Key:       "sk-abc123",
		UserID:    "uid-1",
		CreatedAt: time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO api_keys").
		WithArgs(k.Key, k.UserID, k.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.Insert(context.Background(), tx, k))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKeyRepo_DeleteOwned(t *testing.T) {
	tests := []struct {
		name         string
		rowsAffected int64
		want         bool
	}{
		{name: "owned key deleted", rowsAffected: 1, want: true},
		{name: "absent or foreign key", rowsAffected: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			repo := NewKeyRepo(mock)

			mock.ExpectExec("DELETE FROM api_keys WHERE key = .+ AND user_id =").
				WithArgs("sk-abc123", "uid-1").
				WillReturnResult(pgxmock.NewResult("DELETE", tt.rowsAffected))

			deleted, err := repo.DeleteOwned(context.Background(), "sk-abc123", "uid-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, deleted)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestKeyRepo_GetByKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewKeyRepo(mock)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT key, user_id, created_at FROM api_keys WHERE key =").
		WithArgs("sk-abc123").
		WillReturnRows(pgxmock.NewRows([]string{"key", "user_id", "created_at"}).
			AddRow("sk-abc123", "uid-1", now))

	k, err := repo.GetByKey(context.Background(), "sk-abc123")
	require.NoError(t, err)
	require.NotNil(t, k)
	assert.Equal(t, "uid-1", k.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKeyRepo_GetByKey_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewKeyRepo(mock)

	mock.ExpectQuery("SELECT key, user_id, created_at FROM api_keys WHERE key =").
		WithArgs("sk-unknown").
		WillReturnRows(pgxmock.NewRows([]string{"key", "user_id", "created_at"}))

	k, err := repo.GetByKey(context.Background(), "sk-unknown")
	require.NoError(t, err)
	assert.Nil(t, k)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKeyRepo_ListByUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewKeyRepo(mock)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT key, user_id, created_at FROM api_keys WHERE user_id = .+ ORDER BY created_at DESC").
		WithArgs("uid-1").
		WillReturnRows(pgxmock.NewRows([]string{"key", "user_id", "created_at"}).
			AddRow("sk-newer", "uid-1", now).
			AddRow("sk-older", "uid-1", now.Add(-time.Hour)))

	keys, err := repo.ListByUser(context.Background(), "uid-1")
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "sk-newer", keys[0].Key)
	assert.Equal(t, "sk-older", keys[1].Key)
	assert.NoError(t, mock.ExpectationsWereMet())
}
