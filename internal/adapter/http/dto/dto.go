package dto

import (
	"llm-billing-gateway/internal/core/domain"
	"llm-billing-gateway/internal/core/ports"
)

// KeyResponse is the response body for a minted or listed API key.
type KeyResponse struct {
	Key       string `json:"key"`
	CreatedAt string `json:"created_at"`
}

// KeyListResponse wraps the user's API keys.
type KeyListResponse struct {
	Keys []KeyResponse `json:"keys"`
}

// WalletResponse is the response for a balance query.
type WalletResponse struct {
	UserID  string `json:"user_id"`
	Balance string `json:"balance"`
}

// TransactionResponse is one ledger entry in a listing.
type TransactionResponse struct {
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Timestamp   string `json:"timestamp"`
}

// TransactionListResponse wraps one page of the wallet's credit history.
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	TotalCount   int64                 `json:"total_count"`
	Page         int                   `json:"page"`
	Limit        int                   `json:"limit"`
}

// ChatMessage is one turn of a chat conversation.
type ChatMessage struct {
	Role    string `json:"role" binding:"required,oneof=system user assistant"`
	Content string `json:"content" binding:"required"`
}

// ChatRequest is the request body for a proxied chat completion.
type ChatRequest struct {
	Model     string        `json:"model" binding:"required"`
	Messages  []ChatMessage `json:"messages" binding:"required,min=1,dive"`
	MaxTokens int           `json:"max_tokens" binding:"omitempty,gt=0"`
}

// ChatResponse is the response body for a proxied chat completion.
type ChatResponse struct {
	Content          string `json:"content"`
	FinishReason     string `json:"finish_reason"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	Cost             string `json:"cost"`
	RemainingBalance string `json:"remaining_balance"`
}

// ToWalletResponse converts a domain wallet.
func ToWalletResponse(w *domain.Wallet) WalletResponse {
	return WalletResponse{
		UserID:  w.UserID,
		Balance: w.Balance.StringFixed(domain.MoneyScale),
	}
}

// ToKeyResponse converts a domain API key.
func ToKeyResponse(k *domain.APIKey) KeyResponse {
	return KeyResponse{
		Key:       k.Key,
		CreatedAt: k.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// ToTransactionListResponse converts a service transactions page.
func ToTransactionListResponse(page *ports.TransactionsPage) TransactionListResponse {
	items := make([]TransactionResponse, 0, len(page.Transactions))
	for _, txn := range page.Transactions {
		items = append(items, TransactionResponse{
			Type:        string(txn.Type),
			Amount:      txn.Amount.StringFixed(domain.MoneyScale),
			Description: txn.Description,
			Timestamp:   txn.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return TransactionListResponse{
		Transactions: items,
		TotalCount:   page.TotalCount,
		Page:         page.Page,
		Limit:        page.Limit,
	}
}

// ToChatMessages converts inbound messages to the service shape.
func ToChatMessages(msgs []ChatMessage) []ports.ChatMessage {
	out := make([]ports.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ports.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
