package postgres

import (
	"context"
	"errors"
	"fmt"

	"llm-billing-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// KeyRepo implements ports.KeyRepository.
type KeyRepo struct {
	pool Pool
}

// NewKeyRepo creates a new KeyRepo.
func NewKeyRepo(pool Pool) *KeyRepo {
	return &KeyRepo{pool: pool}
}

// LockUser takes a per-user advisory lock for the duration of the
// surrounding transaction. Key creation counts and inserts under this lock,
// so a burst of concurrent creations cannot exceed the quota.
func (r *KeyRepo) LockUser(ctx context.Context, tx pgx.Tx, userID string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, userID)
	if err != nil {
		return fmt.Errorf("lock user for key creation: %w", err)
	}
	return nil
}

// CountByUser counts the user's active keys. Must run inside the same
// transaction as the LockUser call preceding an insert.
func (r *KeyRepo) CountByUser(ctx context.Context, tx pgx.Tx, userID string) (int, error) {
	var count int
	err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM api_keys WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count api keys: %w", err)
	}
	return count, nil
}

// Insert persists a new API key row.
func (r *KeyRepo) Insert(ctx context.Context, tx pgx.Tx, k *domain.APIKey) error {
	query := `INSERT INTO api_keys (key, user_id, created_at) VALUES ($1, $2, $3)`

	_, err := tx.Exec(ctx, query, k.Key, k.UserID, k.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// DeleteOwned deletes the row matching both key and owner. Zero rows
// affected reports false, whether the key is absent or owned by someone
// else, so non-owners cannot distinguish the two cases.
func (r *KeyRepo) DeleteOwned(ctx context.Context, key string, userID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM api_keys WHERE key = $1 AND user_id = $2`, key, userID)
	if err != nil {
		return false, fmt.Errorf("delete api key: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetByKey fetches a key row by its token. Returns nil, nil when absent.
func (r *KeyRepo) GetByKey(ctx context.Context, key string) (*domain.APIKey, error) {
	query := `SELECT key, user_id, created_at FROM api_keys WHERE key = $1`

	k := &domain.APIKey{}
	err := r.pool.QueryRow(ctx, query, key).Scan(&k.Key, &k.UserID, &k.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get api key: %w", err)
	}
	return k, nil
}

// ListByUser returns the user's keys, newest first.
func (r *KeyRepo) ListByUser(ctx context.Context, userID string) ([]domain.APIKey, error) {
	query := `SELECT key, user_id, created_at FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []domain.APIKey
	for rows.Next() {
		k := domain.APIKey{}
		if err := rows.Scan(&k.Key, &k.UserID, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan api key row: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate api key rows: %w", err)
	}
	return keys, nil
}
