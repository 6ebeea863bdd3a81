package service

import (
	"context"
	"fmt"

	"llm-billing-gateway/config"
	"llm-billing-gateway/internal/core/domain"
	"llm-billing-gateway/internal/core/ports"
	"llm-billing-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

// ChatServiceImpl implements ports.ChatProxy: it prices a chat request,
// wraps the upstream call in the billing protocol, and reports the actual
// cost alongside the model output.
type ChatServiceImpl struct {
	completer ports.ChatCompleter
	gateway   ports.BillingGateway
	prices    domain.PriceTable
	estTokens int
	log       zerolog.Logger
}

// NewChatService creates a new ChatServiceImpl.
func NewChatService(
	completer ports.ChatCompleter,
	gateway ports.BillingGateway,
	prices domain.PriceTable,
	cfg config.BillingConfig,
	log zerolog.Logger,
) *ChatServiceImpl {
	return &ChatServiceImpl{
		completer: completer,
		gateway:   gateway,
		prices:    prices,
		estTokens: cfg.EstimateTokens,
		log:       log,
	}
}

// Chat proxies one chat completion with billing. The estimate charges the
// model's rate at a conservative token budget (the request's max_tokens when
// set, the configured default otherwise); settlement uses the actual total
// token usage reported upstream.
func (s *ChatServiceImpl) Chat(ctx context.Context, caller ports.Caller, req ports.ChatRequest) (*ports.ChatProxyResult, error) {
	if !s.prices.Known(req.Model) {
		return nil, apperror.ErrUnknownModel(req.Model)
	}

	budget := s.estTokens
	if req.MaxTokens > 0 {
		budget = req.MaxTokens
	}
	estimate := s.prices.Cost(req.Model, budget)

	work := func(ctx context.Context) (*ports.WorkResult, error) {
		result, err := s.completer.Complete(ctx, req)
		if err != nil {
			return nil, apperror.ErrUpstreamFailure(err)
		}
		return &ports.WorkResult{
			Cost:       s.prices.Cost(req.Model, result.TotalTokens),
			TokensUsed: result.TotalTokens,
			Payload:    result,
		}, nil
	}

	outcome, err := s.gateway.WithBilling(ctx, caller, estimate, "Chat completion ("+req.Model+")", work)
	if err != nil {
		return nil, err
	}

	result, ok := outcome.Result.Payload.(*ports.ChatResult)
	if !ok {
		return nil, apperror.InternalError(fmt.Errorf("unexpected work payload %T", outcome.Result.Payload))
	}

	return &ports.ChatProxyResult{
		Result:  result,
		Cost:    outcome.Result.Cost,
		Balance: outcome.Balance,
	}, nil
}
