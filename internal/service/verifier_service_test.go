package service

import (
	"context"
	"testing"
	"time"

	"llm-billing-gateway/config"
	"llm-billing-gateway/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-verifier"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestJWTVerifier_Verify(t *testing.T) {
	v := NewJWTVerifier(config.IdentityConfig{JWTSecret: testSecret})

	credential := signToken(t, testSecret, jwt.MapClaims{
		"sub": "uid-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	userID, err := v.Verify(context.Background(), credential)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", userID)
}

func TestJWTVerifier_Verify_IssuerEnforced(t *testing.T) {
	v := NewJWTVerifier(config.IdentityConfig{JWTSecret: testSecret, Issuer: "idp.example.com"})

	good := signToken(t, testSecret, jwt.MapClaims{
		"sub": "uid-1",
		"iss": "idp.example.com",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	userID, err := v.Verify(context.Background(), good)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", userID)

	wrongIssuer := signToken(t, testSecret, jwt.MapClaims{
		"sub": "uid-1",
		"iss": "evil.example.com",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	_, err = v.Verify(context.Background(), wrongIssuer)
	assert.Error(t, err)
}

func TestJWTVerifier_Verify_BadSignature(t *testing.T) {
	v := NewJWTVerifier(config.IdentityConfig{JWTSecret: testSecret})

	credential := signToken(t, "some-other-secret", jwt.MapClaims{
		"sub": "uid-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := v.Verify(context.Background(), credential)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_002", appErr.Code)
}

func TestJWTVerifier_Verify_Expired(t *testing.T) {
	v := NewJWTVerifier(config.IdentityConfig{JWTSecret: testSecret})

	credential := signToken(t, testSecret, jwt.MapClaims{
		"sub": "uid-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := v.Verify(context.Background(), credential)
	assert.Error(t, err)
}

func TestJWTVerifier_Verify_MissingSubject(t *testing.T) {
	v := NewJWTVerifier(config.IdentityConfig{JWTSecret: testSecret})

	credential := signToken(t, testSecret, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := v.Verify(context.Background(), credential)
	assert.Error(t, err)
}

func TestJWTVerifier_Verify_Garbage(t *testing.T) {
	v := NewJWTVerifier(config.IdentityConfig{JWTSecret: testSecret})

	_, err := v.Verify(context.Background(), "not-a-jwt")
	assert.Error(t, err)
}
