package ports

import (
	"context"

	"llm-billing-gateway/internal/core/domain"

	"github.com/shopspring/decimal"
)

// IdentityVerifier validates an opaque bearer credential issued by the
// external identity provider and yields the stable user identifier.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (string, error)
}

// --- Service Ports (Business Logic) ---

// KeyService defines the API-key registry business logic.
type KeyService interface {
	// CreateKey mints a new key for the user, enforcing the per-user quota.
	CreateKey(ctx context.Context, userID string) (*domain.APIKey, error)
	// RevokeKey deletes the user's key. Fails with NotFound when the key
	// does not exist under this owner, whoever else may hold it.
	RevokeKey(ctx context.Context, userID, key string) error
	// ResolveKey returns the owning user ID for a key.
	ResolveKey(ctx context.Context, key string) (string, error)
	ListKeys(ctx context.Context, userID string) ([]domain.APIKey, error)
}

// TransactionsPage is one page of a wallet's externally visible ledger.
type TransactionsPage struct {
	Transactions []domain.Transaction
	TotalCount   int64
	Page         int
	Limit        int
}

// WalletService defines wallet store orchestration.
type WalletService interface {
	GetOrCreateWallet(ctx context.Context, userID string) (*domain.Wallet, error)
	// AdjustBalance applies a signed adjustment and its ledger entry in one
	// atomic store operation, returning the post-adjustment wallet.
	AdjustBalance(ctx context.Context, userID string, signedAmount decimal.Decimal, description string) (*domain.Wallet, error)
	// GetTransactionsPage returns the CREDIT-typed entries, newest first.
	// page and limit are clamped to >= 1.
	GetTransactionsPage(ctx context.Context, userID string, page, limit int) (*TransactionsPage, error)
}

// Ledger defines the two-phase billing protocol around a unit of work.
type Ledger interface {
	// Authorize checks affordability and issues an authorization token. No
	// funds are reserved; the check is advisory.
	Authorize(ctx context.Context, userID string, estimatedCost decimal.Decimal) (*domain.Authorization, error)
	// Settle debits the actual cost exactly once per authorization. A
	// duplicate settle fails with AlreadySettled.
	Settle(ctx context.Context, auth *domain.Authorization, actualCost decimal.Decimal, description string) (*domain.Wallet, error)
	// Void releases an authorization whose work failed before producing a
	// cost, settling it at zero so nothing stays reserved.
	Void(ctx context.Context, auth *domain.Authorization, reason string) error
}

// Caller identifies who is paying for a unit of work: either an API key or
// an already-verified user ID. Exactly one field is set.
type Caller struct {
	APIKey string
	UserID string
}

// WorkResult is what a billed unit of work reports back.
type WorkResult struct {
	Cost       decimal.Decimal // actual usage-derived cost
	TokensUsed int
	Payload    any
}

// WorkFunc is the opaque unit of billable work.
type WorkFunc func(ctx context.Context) (*WorkResult, error)

// BillingOutcome bundles the work's result with the settled wallet balance.
type BillingOutcome struct {
	Result  *WorkResult
	Balance decimal.Decimal
}

// BillingGateway is the boundary the AI-invocation side calls: resolve the
// caller, authorize, run the work, settle the actual cost.
type BillingGateway interface {
	WithBilling(ctx context.Context, caller Caller, estimatedCost decimal.Decimal, description string, work WorkFunc) (*BillingOutcome, error)
}

// --- Upstream model invocation (black box) ---

// ChatMessage is one turn of a chat conversation.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatRequest is the inbound shape forwarded upstream.
type ChatRequest struct {
	Model     string
	Messages  []ChatMessage
	MaxTokens int
}

// ChatResult carries the model output and its token usage.
type ChatResult struct {
	Content          string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChatCompleter invokes the upstream chat-completion model. The gateway only
// depends on the returned token usage.
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (*ChatResult, error)
}

// ChatProxyResult is the billed outcome of one proxied chat completion.
type ChatProxyResult struct {
	Result  *ChatResult
	Cost    decimal.Decimal
	Balance decimal.Decimal
}

// ChatProxy is the metered front of the upstream model: price the request,
// bill the caller's wallet around the upstream call, return usage and the
// remaining balance.
type ChatProxy interface {
	Chat(ctx context.Context, caller Caller, req ChatRequest) (*ChatProxyResult, error)
}

// AuditService records audited actions.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
