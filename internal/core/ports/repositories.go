package ports

import (
	"context"
	"time"

	"llm-billing-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepository defines persistence operations for wallets and their
// transaction logs. Methods accepting pgx.Tx run inside transaction blocks so
// that a balance mutation and its ledger entry commit together.
type WalletRepository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error)
	// CreateIfAbsent inserts the wallet unless one already exists for the
	// user. Returns true if this call created the row. Safe under concurrent
	// first access: exactly one caller observes true.
	CreateIfAbsent(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) (bool, error)
	// AddToBalance atomically increments the balance by delta in the store
	// and returns the post-adjustment wallet. Never read-then-write.
	AddToBalance(ctx context.Context, tx pgx.Tx, userID string, delta decimal.Decimal) (*domain.Wallet, error)
	InsertTransaction(ctx context.Context, tx pgx.Tx, userID string, txn *domain.Transaction) error
	// ListTransactions returns one page of entries of the given type, newest
	// first, plus the total count of matching entries.
	ListTransactions(ctx context.Context, userID string, txType domain.TransactionType, offset, limit int) ([]domain.Transaction, int64, error)
}

// KeyRepository defines persistence operations for API keys.
type KeyRepository interface {
	// LockUser serializes key creation per user for the duration of the
	// surrounding transaction, so count+insert cannot race past the quota.
	LockUser(ctx context.Context, tx pgx.Tx, userID string) error
	CountByUser(ctx context.Context, tx pgx.Tx, userID string) (int, error)
	Insert(ctx context.Context, tx pgx.Tx, key *domain.APIKey) error
	// DeleteOwned deletes the row matching both key and owner. Returns false
	// when no such row exists, including when the key belongs to another
	// user, so callers cannot probe for foreign keys.
	DeleteOwned(ctx context.Context, key string, userID string) (bool, error)
	GetByKey(ctx context.Context, key string) (*domain.APIKey, error)
	ListByUser(ctx context.Context, userID string) ([]domain.APIKey, error)
}

// AuditRepository persists audit log rows.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// AuthorizationStore holds pending billing authorizations between the
// Authorize and Settle phases.
type AuthorizationStore interface {
	// Put stores a pending authorization with an expiry so abandoned
	// authorizations cannot accumulate.
	Put(ctx context.Context, auth *domain.Authorization, ttl time.Duration) error
	// Claim atomically removes and returns the pending authorization.
	// Returns nil, nil when it is absent (already settled, voided, or
	// expired); at most one caller ever receives a non-nil result.
	Claim(ctx context.Context, id uuid.UUID) (*domain.Authorization, error)
}
