package completion

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	// DefaultMaxTokens is used when a Request leaves MaxTokens at zero.
	DefaultMaxTokens = 1024
	// DefaultTemperature is the sampling temperature NewRequest starts from.
	DefaultTemperature = 0.7
)

// Provider names accepted by New.
const (
	ProviderBedrock   = "bedrock"
	ProviderAnthropic = "anthropic"
)

// Request is a single system+user completion.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// NewRequest builds a Request with the default token budget and temperature.
func NewRequest(system, user string) Request {
	return Request{
		System:      system,
		User:        user,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
	}
}

func (r Request) maxTokens() int {
	if r.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return r.MaxTokens
}

// Client sends one prompt to a hosted model and returns the first text block.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Model() string
}

// Config selects and configures a provider.
type Config struct {
	Provider string
	Model    string
	Region   string
	APIKey   string
	Retry    RetryPolicy
	Logger   *slog.Logger
}

// New constructs the client named by cfg.Provider.
func New(ctx context.Context, cfg Config) (Client, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	switch cfg.Provider {
	case "", ProviderBedrock:
		return NewBedrockClient(ctx, cfg)
	case ProviderAnthropic:
		return NewAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown completion provider %q (use bedrock or anthropic)", cfg.Provider)
	}
}
