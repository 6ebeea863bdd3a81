package postgres

import (
	"context"
	"testing"
	"time"

	"llm-billing-gateway/internal/core/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWallet(userID string) *domain.Wallet {
	return &domain.Wallet{
		UserID:    userID,
		Balance:   decimal.RequireFromString("2.000"),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		UpdatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func walletColumns() []string {
	return []string{"user_id", "balance", "created_at", "updated_at"}
}

func walletRow(w *domain.Wallet) *pgxmock.Rows {
	return pgxmock.NewRows(walletColumns()).AddRow(
		w.UserID, w.Balance, w.CreatedAt, w.UpdatedAt,
	)
}

func TestWalletRepo_GetByUserID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet("uid-1")

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE user_id").
		WithArgs(w.UserID).
		WillReturnRows(walletRow(w))

	result, err := repo.GetByUserID(context.Background(), w.UserID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, w.UserID, result.UserID)
	assert.True(t, w.Balance.Equal(result.Balance))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByUserID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE user_id").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(walletColumns()))

	result, err := repo.GetByUserID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_CreateIfAbsent_Inserted(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet("uid-new")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO wallets .+ ON CONFLICT").
		WithArgs(w.UserID, w.Balance, w.CreatedAt, w.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	created, err := repo.CreateIfAbsent(context.Background(), tx, w)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_CreateIfAbsent_AlreadyExists(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet("uid-existing")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO wallets .+ ON CONFLICT").
		WithArgs(w.UserID, w.Balance, w.CreatedAt, w.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	created, err := repo.CreateIfAbsent(context.Background(), tx, w)
	require.NoError(t, err)
	assert.False(t, created, "losing the insert race must report false")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_AddToBalance(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	after := newTestWallet("uid-1")
	after.Balance = decimal.RequireFromString("1.958")
	delta := decimal.RequireFromString("-0.042")

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE wallets SET balance = balance \\+ .+ RETURNING").
		WithArgs(after.UserID, delta).
		WillReturnRows(walletRow(after))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.AddToBalance(context.Background(), tx, after.UserID, delta)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "1.958", result.Balance.StringFixed(3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_AddToBalance_WalletMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE wallets SET balance = balance \\+ .+ RETURNING").
		WithArgs("missing", decimal.RequireFromString("1.000")).
		WillReturnRows(pgxmock.NewRows(walletColumns()))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.AddToBalance(context.Background(), tx, "missing", decimal.RequireFromString("1.000"))
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_InsertTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	txn := &domain.Transaction{
		Type:        domain.TransactionTypeDebit,
		Amount:      decimal.RequireFromString("0.042"),
		Description: "chat completion",
		Timestamp:   time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO wallet_transactions").
		WithArgs("uid-1", txn.Type, txn.Amount, txn.Description, txn.Timestamp).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.InsertTransaction(context.Background(), tx, "uid-1", txn)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_ListTransactions(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM wallet_transactions").
		WithArgs("uid-1", domain.TransactionTypeCredit).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(15)))

	rows := pgxmock.NewRows([]string{"type", "amount", "description", "created_at"}).
		AddRow(domain.TransactionTypeCredit, decimal.RequireFromString("2.000"), "Initial credit", now).
		AddRow(domain.TransactionTypeCredit, decimal.RequireFromString("1.000"), "refund", now.Add(-time.Minute))
	mock.ExpectQuery("SELECT .+ FROM wallet_transactions .+ ORDER BY created_at DESC").
		WithArgs("uid-1", domain.TransactionTypeCredit, 10, 10).
		WillReturnRows(rows)

	txns, total, err := repo.ListTransactions(context.Background(), "uid-1", domain.TransactionTypeCredit, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)
	require.Len(t, txns, 2)
	assert.Equal(t, "Initial credit", txns[0].Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_ListTransactions_EmptyPage(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM wallet_transactions").
		WithArgs("uid-1", domain.TransactionTypeCredit).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(15)))

	mock.ExpectQuery("SELECT .+ FROM wallet_transactions .+ ORDER BY created_at DESC").
		WithArgs("uid-1", domain.TransactionTypeCredit, 10, 20).
		WillReturnRows(pgxmock.NewRows([]string{"type", "amount", "description", "created_at"}))

	txns, total, err := repo.ListTransactions(context.Background(), "uid-1", domain.TransactionTypeCredit, 20, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(15), total, "out-of-range pages still report the total")
	assert.Empty(t, txns)
	assert.NoError(t, mock.ExpectationsWereMet())
}
