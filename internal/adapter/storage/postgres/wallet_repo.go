package postgres

import (
	"context"
	"errors"
	"fmt"

	"llm-billing-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// GetByUserID fetches a wallet by user ID. Returns nil, nil when absent.
func (r *WalletRepo) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	query := `SELECT user_id, balance, created_at, updated_at FROM wallets WHERE user_id = $1`

	w := &domain.Wallet{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&w.UserID, &w.Balance, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by user id: %w", err)
	}
	return w, nil
}

// CreateIfAbsent inserts the wallet unless one already exists. The ON
// CONFLICT clause makes concurrent first accesses resolve to exactly one row;
// the return value tells the caller whether it won the insert.
func (r *WalletRepo) CreateIfAbsent(ctx context.Context, tx pgx.Tx, w *domain.Wallet) (bool, error) {
	query := `INSERT INTO wallets (user_id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO NOTHING`

	tag, err := tx.Exec(ctx, query, w.UserID, w.Balance, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("insert wallet: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AddToBalance increments the balance in the store and returns the updated
// wallet. The increment happens inside the UPDATE so concurrent adjustments
// for the same user never lose a delta.
func (r *WalletRepo) AddToBalance(ctx context.Context, tx pgx.Tx, userID string, delta decimal.Decimal) (*domain.Wallet, error) {
	query := `UPDATE wallets SET balance = balance + $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING user_id, balance, created_at, updated_at`

	w := &domain.Wallet{}
	err := tx.QueryRow(ctx, query, userID, delta).Scan(
		&w.UserID, &w.Balance, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("add to wallet balance: %w", err)
	}
	return w, nil
}

// InsertTransaction appends a ledger entry for the user's wallet.
func (r *WalletRepo) InsertTransaction(ctx context.Context, tx pgx.Tx, userID string, t *domain.Transaction) error {
	query := `INSERT INTO wallet_transactions (user_id, type, amount, description, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := tx.Exec(ctx, query, userID, t.Type, t.Amount, t.Description, t.Timestamp)
	if err != nil {
		return fmt.Errorf("insert wallet transaction: %w", err)
	}
	return nil
}

// ListTransactions returns one page of entries of the given type, newest
// first, plus the total count of matching entries.
func (r *WalletRepo) ListTransactions(ctx context.Context, userID string, txType domain.TransactionType, offset, limit int) ([]domain.Transaction, int64, error) {
	countQuery := `SELECT COUNT(*) FROM wallet_transactions WHERE user_id = $1 AND type = $2`

	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, userID, txType).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count wallet transactions: %w", err)
	}

	dataQuery := `SELECT type, amount, description, created_at
		FROM wallet_transactions
		WHERE user_id = $1 AND type = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, dataQuery, userID, txType, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list wallet transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t := domain.Transaction{}
		if err := rows.Scan(&t.Type, &t.Amount, &t.Description, &t.Timestamp); err != nil {
			return nil, 0, fmt.Errorf("scan wallet transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate wallet transaction rows: %w", err)
	}
	return txns, total, nil
}
