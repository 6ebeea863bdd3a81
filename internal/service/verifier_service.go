package service

import (
	"context"
	"fmt"

	"llm-billing-gateway/config"
	"llm-billing-gateway/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
)

// JWTVerifier implements ports.IdentityVerifier for HS256 JWTs minted by the
// external identity provider. The gateway never issues credentials itself;
// it only validates them and extracts the stable user ID.
type JWTVerifier struct {
	secret []byte
	issuer string
}

// NewJWTVerifier creates a new JWT identity verifier.
func NewJWTVerifier(cfg config.IdentityConfig) *JWTVerifier {
	return &JWTVerifier{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
	}
}

// Verify parses and validates a bearer credential, returning the user ID
// from the subject claim.
func (v *JWTVerifier) Verify(_ context.Context, credential string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.Parse(credential, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", apperror.ErrInvalidCredential()
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", apperror.ErrInvalidCredential()
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", apperror.ErrInvalidCredential()
	}

	return sub, nil
}
