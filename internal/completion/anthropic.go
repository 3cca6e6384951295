package completion

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultAnthropicModel is used when the anthropic provider has no model set.
const DefaultAnthropicModel = "claude-sonnet-4-5-20250929"

type messagesAPI interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicClient calls the Anthropic Messages API directly.
type AnthropicClient struct {
	model string
	api   messagesAPI
	retry RetryPolicy
	log   *slog.Logger
}

// NewAnthropicClient builds a client from cfg. An empty APIKey falls back to
// ANTHROPIC_API_KEY in the environment.
func NewAnthropicClient(cfg Config) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithRequestTimeout(readTimeout),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	client := anthropic.NewClient(opts...)
	return newAnthropicClient(&client.Messages, cfg)
}

func newAnthropicClient(api messagesAPI, cfg Config) *AnthropicClient {
	if cfg.Model == "" {
		cfg.Model = DefaultAnthropicModel
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	return &AnthropicClient{model: cfg.Model, api: api, retry: cfg.Retry, log: cfg.Logger}
}

// Model returns the Anthropic model name.
func (c *AnthropicClient) Model() string { return c.model }

// Complete sends req to the Messages API and returns the first text block.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	ctx, span := tracer.Start(ctx, "completion.complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("provider", ProviderAnthropic),
		attribute.String("model", c.model),
		attribute.Float64("temperature", req.Temperature),
		attribute.Int("max_tokens", req.maxTokens()),
	)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(req.maxTokens()),
		Temperature: anthropic.Float(req.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	}

	var text string
	attempts, err := c.retry.do(ctx, c.model, func(attempt int) error {
		start := time.Now()
		msg, err := c.api.New(ctx, params)
		if err != nil {
			cerr := classifyAnthropicError(c.model, err)
			c.log.DebugContext(ctx, "Claude API call failed",
				"model", c.model, "attempt", attempt, "error", err, "retryable", retryable(cerr))
			return cerr
		}
		c.log.DebugContext(ctx, "Claude API call complete",
			"model", c.model, "attempt", attempt, "elapsed_ms", time.Since(start).Milliseconds())

		t, ok := extractAnthropicText(msg)
		if !ok {
			return &MalformedResponseError{Model: c.model, Reason: "no text content block in message"}
		}
		text = t
		return nil
	})
	span.SetAttributes(attribute.Int("attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "messages call failed")
		return "", err
	}
	return text, nil
}

func extractAnthropicText(msg *anthropic.Message) (string, bool) {
	if msg == nil {
		return "", false
	}
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			return tb.Text, true
		}
	}
	return "", false
}

func classifyAnthropicError(model string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Model: model, Err: err}
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return &QuotaError{Model: model, Err: err}
		case apiErr.StatusCode >= 500:
			// includes 529 overloaded
			return &TransportError{Model: model, Retryable: true, Err: err}
		default:
			return &TransportError{Model: model, Err: err}
		}
	}

	// connection resets, DNS failures, timeouts
	return &TransportError{Model: model, Retryable: true, Err: err}
}
