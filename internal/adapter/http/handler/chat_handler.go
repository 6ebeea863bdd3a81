package handler

import (
	"llm-billing-gateway/internal/adapter/http/dto"
	"llm-billing-gateway/internal/adapter/http/middleware"
	"llm-billing-gateway/internal/core/ports"
	"llm-billing-gateway/pkg/apperror"
	"llm-billing-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// ChatHandler handles the metered AI invocation endpoint.
type ChatHandler struct {
	chatSvc ports.ChatProxy
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatSvc ports.ChatProxy) *ChatHandler {
	return &ChatHandler{chatSvc: chatSvc}
}

// Chat handles POST /api/v1/chat. The caller authenticates with an API key in
// the x-api-key header; the owning wallet is billed for the actual token
// usage of the upstream call.
func (h *ChatHandler) Chat(c *gin.Context) {
	apiKey := c.GetHeader(middleware.HeaderAPIKey)
	if apiKey == "" {
		response.Error(c, apperror.ErrUnauthorized())
		return
	}

	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.chatSvc.Chat(c.Request.Context(), ports.Caller{APIKey: apiKey}, ports.ChatRequest{
		Model:     req.Model,
		Messages:  dto.ToChatMessages(req.Messages),
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ChatResponse{
		Content:          result.Result.Content,
		FinishReason:     result.Result.FinishReason,
		Model:            req.Model,
		PromptTokens:     result.Result.PromptTokens,
		CompletionTokens: result.Result.CompletionTokens,
		TotalTokens:      result.Result.TotalTokens,
		Cost:             result.Cost.StringFixed(3),
		RemainingBalance: result.Balance.StringFixed(3),
	})
}
