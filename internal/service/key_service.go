package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"llm-billing-gateway/config"
	"llm-billing-gateway/internal/core/domain"
	"llm-billing-gateway/internal/core/ports"
	"llm-billing-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

const keyPrefix = "sk-"

// KeyServiceImpl implements ports.KeyService.
type KeyServiceImpl struct {
	keyRepo    ports.KeyRepository
	transactor ports.DBTransactor
	maxKeys    int
	log        zerolog.Logger
}

// NewKeyService creates a new KeyServiceImpl.
func NewKeyService(
	keyRepo ports.KeyRepository,
	transactor ports.DBTransactor,
	cfg config.BillingConfig,
	log zerolog.Logger,
) *KeyServiceImpl {
	return &KeyServiceImpl{
		keyRepo:    keyRepo,
		transactor: transactor,
		maxKeys:    cfg.MaxKeysPerUser,
		log:        log,
	}
}

// CreateKey mints a new API key for the user. The quota check and the insert
// run under a per-user lock inside one transaction, so a burst of concurrent
// creations ends with at most the configured maximum of keys.
func (s *KeyServiceImpl) CreateKey(ctx context.Context, userID string) (*domain.APIKey, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.keyRepo.LockUser(ctx, dbTx, userID); err != nil {
		return nil, apperror.InternalError(err)
	}

	count, err := s.keyRepo.CountByUser(ctx, dbTx, userID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if count >= s.maxKeys {
		return nil, apperror.ErrKeyQuotaExceeded(s.maxKeys)
	}

	token, err := generateKey(keyPrefix, 24)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate key: %w", err))
	}

	key := &domain.APIKey{
		Key:       token,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.keyRepo.Insert(ctx, dbTx, key); err != nil {
		return nil, apperror.InternalError(err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("user_id", userID).
		Str("key_fp", domain.KeyFingerprint(token)).
		Msg("api key created")

	return key, nil
}

// RevokeKey deletes the user's key. A key that does not exist under this
// owner fails with NotFound, whether it is absent entirely or held by
// another user.
func (s *KeyServiceImpl) RevokeKey(ctx context.Context, userID, key string) error {
	deleted, err := s.keyRepo.DeleteOwned(ctx, key, userID)
	if err != nil {
		return apperror.InternalError(err)
	}
	if !deleted {
		return apperror.ErrNotFound("API key")
	}

	s.log.Info().
		Str("user_id", userID).
		Str("key_fp", domain.KeyFingerprint(key)).
		Msg("api key revoked")

	return nil
}

// ResolveKey returns the owning user ID for a live key.
func (s *KeyServiceImpl) ResolveKey(ctx context.Context, key string) (string, error) {
	k, err := s.keyRepo.GetByKey(ctx, key)
	if err != nil {
		return "", apperror.InternalError(err)
	}
	if k == nil {
		return "", apperror.ErrInvalidCredential()
	}
	return k.UserID, nil
}

// ListKeys returns the user's keys, newest first.
func (s *KeyServiceImpl) ListKeys(ctx context.Context, userID string) ([]domain.APIKey, error) {
	keys, err := s.keyRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return keys, nil
}

func generateKey(prefix string, length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return prefix + hex.EncodeToString(b), nil
}
