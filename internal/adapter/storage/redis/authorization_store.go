package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"llm-billing-gateway/internal/core/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// AuthorizationStore implements ports.AuthorizationStore using Redis.
// Authorizations live under a TTL so abandoned ones expire on their own,
// and Claim uses GETDEL so each authorization can be settled at most once.
type AuthorizationStore struct {
	client *goredis.Client
	prefix string
}

// NewAuthorizationStore creates a new Redis-backed authorization store.
func NewAuthorizationStore(client *goredis.Client) *AuthorizationStore {
	return &AuthorizationStore{
		client: client,
		prefix: "auth:",
	}
}

// Put stores a pending authorization with TTL.
func (s *AuthorizationStore) Put(ctx context.Context, auth *domain.Authorization, ttl time.Duration) error {
	payload, err := json.Marshal(auth)
	if err != nil {
		return fmt.Errorf("marshal authorization: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+auth.ID.String(), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis authorization put: %w", err)
	}
	return nil
}

// Claim atomically retrieves and deletes a pending authorization.
// Returns nil, nil when the authorization is absent: already claimed,
// expired, or never issued.
func (s *AuthorizationStore) Claim(ctx context.Context, id uuid.UUID) (*domain.Authorization, error) {
	payload, err := s.client.GetDel(ctx, s.prefix+id.String()).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis authorization claim: %w", err)
	}

	auth := &domain.Authorization{}
	if err := json.Unmarshal(payload, auth); err != nil {
		return nil, fmt.Errorf("unmarshal authorization: %w", err)
	}
	return auth, nil
}
