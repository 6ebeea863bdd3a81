package openai

import (
	"context"
	"fmt"
	"time"

	"llm-billing-gateway/config"
	"llm-billing-gateway/internal/core/ports"
	"llm-billing-gateway/internal/metrics"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// Completer implements ports.ChatCompleter against an OpenAI-compatible API.
type Completer struct {
	client *openai.Client
	log    zerolog.Logger
}

// NewCompleter creates an OpenAI-compatible chat completion client.
func NewCompleter(cfg config.UpstreamConfig, log zerolog.Logger) *Completer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Completer{
		client: openai.NewClientWithConfig(clientCfg),
		log:    log,
	}
}

// Complete forwards one chat completion upstream and reports its token usage.
func (c *Completer) Complete(ctx context.Context, req ports.ChatRequest) (*ports.ChatResult, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	})

	duration := time.Since(start)

	if err != nil {
		metrics.UpstreamRequestDuration.WithLabelValues(req.Model, "error").Observe(duration.Seconds())
		c.log.Warn().Err(err).Str("model", req.Model).Msg("upstream chat completion failed")
		return nil, fmt.Errorf("upstream chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		metrics.UpstreamRequestDuration.WithLabelValues(req.Model, "error").Observe(duration.Seconds())
		return nil, fmt.Errorf("upstream returned no choices")
	}

	metrics.UpstreamRequestDuration.WithLabelValues(req.Model, "success").Observe(duration.Seconds())
	metrics.UpstreamTokensTotal.WithLabelValues(req.Model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.UpstreamTokensTotal.WithLabelValues(req.Model, "completion").Add(float64(resp.Usage.CompletionTokens))

	choice := resp.Choices[0]
	return &ports.ChatResult{
		Content:          choice.Message.Content,
		FinishReason:     string(choice.FinishReason),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}
