package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Authorization is the token issued by the ledger's Authorize phase. It
// carries the affordability check's inputs but reserves no funds; Settle
// consumes it at most once.
type Authorization struct {
	ID            uuid.UUID       `json:"id"`
	UserID        string          `json:"user_id"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewAuthorization mints an authorization for a user and estimate.
func NewAuthorization(userID string, estimatedCost decimal.Decimal) *Authorization {
	return &Authorization{
		ID:            uuid.New(),
		UserID:        userID,
		EstimatedCost: RoundMoney(estimatedCost),
		CreatedAt:     time.Now().UTC(),
	}
}
