package domain

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"
)

// APIKey delegates billing access to a user's wallet without the primary
// identity credential. A key authorizes calls only while its row exists in
// the registry; revocation takes effect immediately.
type APIKey struct {
	Key       string    `json:"key"`
	UserID    string    `json:"-"` // Never exposed in listings
	CreatedAt time.Time `json:"created_at"`
}

// KeyFingerprint returns a short stable digest of an API key, safe for logs
// and audit rows. Raw keys must never be logged.
func KeyFingerprint(key string) string {
	sum := blake2b.Sum256([]byte(key))
	return "fp_" + hex.EncodeToString(sum[:8])
}
