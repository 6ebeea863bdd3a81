package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyScale is the fixed precision of every monetary value: 3 decimal
// places, matching the persisted NUMERIC columns.
const MoneyScale = 3

// RoundMoney normalizes a monetary value to the fixed 3-decimal precision.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// Wallet is a user's prepaid credit balance. There is exactly one wallet per
// user; it is created on first access with a starting grant and mutated only
// through atomic adjustments.
type Wallet struct {
	UserID    string          `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TransactionType represents the direction of a ledger entry.
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "CREDIT"
	TransactionTypeDebit  TransactionType = "DEBIT"
)

// Transaction is an immutable ledger entry. It is written atomically with the
// balance mutation it represents and never updated or deleted.
type Transaction struct {
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"` // non-negative
	Description string          `json:"description"`
	Timestamp   time.Time       `json:"timestamp"`
}

// SeedDescription is the description of the one CREDIT entry recording the
// starting grant of a freshly created wallet.
const SeedDescription = "Initial credit"

// TransactionFromAdjustment builds the ledger entry for a signed balance
// adjustment: CREDIT when the amount is positive, DEBIT otherwise, with the
// absolute value recorded.
func TransactionFromAdjustment(signedAmount decimal.Decimal, description string, at time.Time) Transaction {
	txType := TransactionTypeDebit
	if signedAmount.IsPositive() {
		txType = TransactionTypeCredit
	}
	return Transaction{
		Type:        txType,
		Amount:      RoundMoney(signedAmount.Abs()),
		Description: description,
		Timestamp:   at,
	}
}
