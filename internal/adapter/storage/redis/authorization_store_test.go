package redis

import (
	"context"
	"testing"
	"time"

	"llm-billing-gateway/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuth(t *testing.T) *domain.Authorization {
	t.Helper()
	return domain.NewAuthorization("uid-1", decimal.RequireFromString("0.060"))
}

func TestAuthorizationStore_PutAndClaim(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewAuthorizationStore(client)
	ctx := context.Background()

	auth := newTestAuth(t)
	require.NoError(t, store.Put(ctx, auth, 15*time.Minute))

	claimed, err := store.Claim(ctx, auth.ID)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, auth.ID, claimed.ID)
	assert.Equal(t, auth.UserID, claimed.UserID)
	assert.True(t, auth.EstimatedCost.Equal(claimed.EstimatedCost))
}

func TestAuthorizationStore_Claim_OnlyOnce(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewAuthorizationStore(client)
	ctx := context.Background()

	auth := newTestAuth(t)
	require.NoError(t, store.Put(ctx, auth, 15*time.Minute))

	first, err := store.Claim(ctx, auth.ID)
	require.NoError(t, err)
	assert.NotNil(t, first)

	// Second claim must come back empty
	second, err := store.Claim(ctx, auth.ID)
	require.NoError(t, err)
	assert.Nil(t, second, "second claim should not see the authorization")
}

func TestAuthorizationStore_Claim_Unknown(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewAuthorizationStore(client)
	ctx := context.Background()

	claimed, err := store.Claim(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestAuthorizationStore_Claim_Expired(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewAuthorizationStore(client)
	ctx := context.Background()

	auth := newTestAuth(t)
	require.NoError(t, store.Put(ctx, auth, time.Second))

	// Fast-forward past TTL
	s.FastForward(2 * time.Second)

	claimed, err := store.Claim(ctx, auth.ID)
	require.NoError(t, err)
	assert.Nil(t, claimed, "expired authorization should not be claimable")
}
