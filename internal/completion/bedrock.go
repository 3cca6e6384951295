package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("promptpatterns/completion")

const readTimeout = 120 * time.Second

// converseAPI is the slice of the Bedrock runtime client we call.
type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockClient calls the Bedrock Converse API.
type BedrockClient struct {
	model string
	api   converseAPI
	retry RetryPolicy
	log   *slog.Logger
}

// NewBedrockClient loads the default AWS config for cfg.Region. SDK retries
// are disabled so RetryPolicy is the only retry layer.
func NewBedrockClient(ctx context.Context, cfg Config) (*BedrockClient, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithRetryMaxAttempts(1),
		config.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(readTimeout)),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	otelaws.AppendMiddlewares(&awsCfg.APIOptions)

	return newBedrockClient(bedrockruntime.NewFromConfig(awsCfg), cfg), nil
}

func newBedrockClient(api converseAPI, cfg Config) *BedrockClient {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	return &BedrockClient{
		model: cfg.Model,
		api:   api,
		retry: cfg.Retry,
		log:   cfg.Logger,
	}
}

// Model returns the Bedrock model id.
func (c *BedrockClient) Model() string { return c.model }

// Complete sends req through Converse and returns the first text block.
func (c *BedrockClient) Complete(ctx context.Context, req Request) (string, error) {
	ctx, span := tracer.Start(ctx, "completion.complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("provider", ProviderBedrock),
		attribute.String("model", c.model),
		attribute.Float64("temperature", req.Temperature),
		attribute.Int("max_tokens", req.maxTokens()),
	)

	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.model),
		System: []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: req.System},
		},
		Messages: []types.Message{
			{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: req.User},
				},
			},
		},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(req.maxTokens())),
			Temperature: aws.Float32(float32(req.Temperature)),
		},
	}

	var text string
	attempts, err := c.retry.do(ctx, c.model, func(attempt int) error {
		start := time.Now()
		resp, err := c.api.Converse(ctx, input)
		if err != nil {
			cerr := classifyBedrockError(c.model, err)
			c.log.DebugContext(ctx, "Bedrock Converse failed",
				"model", c.model, "attempt", attempt, "error", err, "retryable", retryable(cerr))
			return cerr
		}
		c.log.DebugContext(ctx, "Bedrock Converse complete",
			"model", c.model, "attempt", attempt, "elapsed_ms", time.Since(start).Milliseconds())

		t, ok := extractBedrockText(resp)
		if !ok {
			return &MalformedResponseError{Model: c.model, Reason: "no text content block in Converse output"}
		}
		text = t
		return nil
	})
	span.SetAttributes(attribute.Int("attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "converse failed")
		return "", err
	}
	return text, nil
}

func extractBedrockText(resp *bedrockruntime.ConverseOutput) (string, bool) {
	if resp == nil || resp.Output == nil {
		return "", false
	}
	msg, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", false
	}
	for _, block := range msg.Value.Content {
		if tb, ok := block.(*types.ContentBlockMemberText); ok {
			return tb.Value, true
		}
	}
	return "", false
}

// classifyBedrockError maps SDK errors onto the completion error types.
func classifyBedrockError(model string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Model: model, Err: err}
	}

	var (
		throttle    *types.ThrottlingException
		quota       *types.ServiceQuotaExceededException
		modelTO     *types.ModelTimeoutException
		unavailable *types.ServiceUnavailableException
		internal    *types.InternalServerException
		notReady    *types.ModelNotReadyException
	)
	switch {
	case errors.As(err, &throttle), errors.As(err, &quota):
		return &QuotaError{Model: model, Err: err}
	case errors.As(err, &modelTO), errors.As(err, &unavailable),
		errors.As(err, &internal), errors.As(err, &notReady):
		return &TransportError{Model: model, Retryable: true, Err: err}
	}

	var sendErr *smithyhttp.RequestSendError
	var netErr net.Error
	if errors.As(err, &sendErr) || errors.As(err, &netErr) {
		return &TransportError{Model: model, Retryable: true, Err: err}
	}

	// Remaining API errors (access denied, validation, unknown model) will
	// not change on retry.
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return &TransportError{Model: model, Err: err}
	}
	return &TransportError{Model: model, Retryable: true, Err: err}
}
