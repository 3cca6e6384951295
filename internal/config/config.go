package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"

	"github.com/apresai/promptpatterns/internal/completion"
)

const (
	DefaultBedrockModel = "global.anthropic.claude-sonnet-4-5-20250929-v1:0"
	DefaultRegion       = "us-west-2"
	DefaultResultsDir   = "results"
	DefaultPort         = 8000
	DefaultMaxRuns      = 5
)

// Keys used in the viper registry. Flags bind to the same names.
const (
	KeyProvider       = "provider"
	KeyModel          = "model"
	KeyBedrockModel   = "bedrock_model"
	KeyAnthropicModel = "anthropic_model"
	KeyRegion         = "region"
	KeyAPIKey         = "anthropic_api_key"
	KeyCompare        = "compare"
	KeyResultsDir     = "results_dir"
	KeySecretPrefix   = "secret_prefix"
	KeyOTLPEndpoint   = "otlp_endpoint"
	KeyLogLevel       = "log_level"
	KeyPort           = "port"
	KeyMaxRuns        = "max_runs"
)

var envBindings = map[string]string{
	KeyProvider:       "LLM_PROVIDER",
	KeyBedrockModel:   "BEDROCK_MODEL_ID",
	KeyAnthropicModel: "ANTHROPIC_MODEL",
	KeyRegion:         "BEDROCK_REGION",
	KeyAPIKey:         "ANTHROPIC_API_KEY",
	KeyCompare:        "COMPARE_MODELS",
	KeyResultsDir:     "RESULTS_DIR",
	KeySecretPrefix:   "SECRET_PREFIX",
	KeyOTLPEndpoint:   "OTEL_EXPORTER_OTLP_ENDPOINT",
	KeyLogLevel:       "LOG_LEVEL",
	KeyPort:           "PORT",
	KeyMaxRuns:        "MAX_RUNS",
}

// Config is the resolved runtime configuration for one invocation.
type Config struct {
	Provider       string   `validate:"oneof=bedrock anthropic"`
	BedrockModel   string   `validate:"required"`
	AnthropicModel string   `validate:"required"`
	Region         string   `validate:"required_if=Provider bedrock"`
	CompareModels  []string `validate:"dive,required"`
	ResultsDir     string   `validate:"required"`
	LogLevel       string   `validate:"oneof=debug info warn error"`
	Port           int      `validate:"min=1,max=65535"`
	MaxRuns        int      `validate:"min=1"`
	ModelOverride  string
	APIKey         string
	SecretPrefix   string
	OTLPEndpoint   string
}

// NewViper returns a registry with defaults and environment bindings
// applied. Callers bind their flags to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyProvider, completion.ProviderBedrock)
	v.SetDefault(KeyBedrockModel, DefaultBedrockModel)
	v.SetDefault(KeyAnthropicModel, completion.DefaultAnthropicModel)
	v.SetDefault(KeyRegion, DefaultRegion)
	v.SetDefault(KeyResultsDir, DefaultResultsDir)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyMaxRuns, DefaultMaxRuns)
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	return v
}

// LoadDotEnv reads KEY=VALUE files into the process environment. Variables
// already set win. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load resolves v into a validated Config.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Provider:       strings.ToLower(strings.TrimSpace(v.GetString(KeyProvider))),
		ModelOverride:  strings.TrimSpace(v.GetString(KeyModel)),
		BedrockModel:   v.GetString(KeyBedrockModel),
		AnthropicModel: v.GetString(KeyAnthropicModel),
		Region:         v.GetString(KeyRegion),
		APIKey:         v.GetString(KeyAPIKey),
		CompareModels:  splitList(v.GetString(KeyCompare)),
		ResultsDir:     v.GetString(KeyResultsDir),
		SecretPrefix:   v.GetString(KeySecretPrefix),
		OTLPEndpoint:   v.GetString(KeyOTLPEndpoint),
		LogLevel:       strings.ToLower(v.GetString(KeyLogLevel)),
		Port:           v.GetInt(KeyPort),
		MaxRuns:        v.GetInt(KeyMaxRuns),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags and reports the first failing field.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ActiveModel is the model id a single-model run uses.
func (c *Config) ActiveModel() string {
	if c.ModelOverride != "" {
		return c.ModelOverride
	}
	if c.Provider == completion.ProviderAnthropic {
		return c.AnthropicModel
	}
	return c.BedrockModel
}

// Models lists the model ids to run: the compare list when set, otherwise
// the active model.
func (c *Config) Models() []string {
	if len(c.CompareModels) > 0 {
		return c.CompareModels
	}
	return []string{c.ActiveModel()}
}

// Completion builds the client config for one model.
func (c *Config) Completion(model string, logger *slog.Logger) completion.Config {
	return completion.Config{
		Provider: c.Provider,
		Model:    model,
		Region:   c.Region,
		APIKey:   c.APIKey,
		Retry:    completion.DefaultRetryPolicy(),
		Logger:   logger,
	}
}

// Level maps LogLevel to a slog level.
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NeedsSecrets reports whether the Anthropic key should be fetched from
// Secrets Manager.
func (c *Config) NeedsSecrets() bool {
	return c.Provider == completion.ProviderAnthropic && c.APIKey == "" && c.SecretPrefix != ""
}

type secretsAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// NewSecretsClient builds a Secrets Manager client in region.
func NewSecretsClient(ctx context.Context, region string) (*secretsmanager.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	otelaws.AppendMiddlewares(&awsCfg.APIOptions)
	return secretsmanager.NewFromConfig(awsCfg), nil
}

// LoadSecrets fills APIKey from the secret named SecretPrefix+"ANTHROPIC_API_KEY".
// A missing secret is logged and left unset; the provider reports the
// missing key when it is first used.
func (c *Config) LoadSecrets(ctx context.Context, api secretsAPI, logger *slog.Logger) error {
	if c.APIKey != "" || c.SecretPrefix == "" {
		return nil
	}
	secretID := c.SecretPrefix + "ANTHROPIC_API_KEY"
	result, err := api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		logger.InfoContext(ctx, "Secret not found", "secret_id", secretID, "error", err)
		return nil
	}
	if result.SecretString == nil || *result.SecretString == "" {
		return fmt.Errorf("secret %s has no string value", secretID)
	}
	c.APIKey = strings.TrimSpace(*result.SecretString)
	logger.InfoContext(ctx, "Loaded secret", "secret_id", secretID)
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
