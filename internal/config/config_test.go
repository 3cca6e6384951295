package config

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/promptpatterns/internal/completion"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(NewViper())
	require.NoError(t, err)
	assert.Equal(t, completion.ProviderBedrock, cfg.Provider)
	assert.Equal(t, DefaultBedrockModel, cfg.ActiveModel())
	assert.Equal(t, DefaultRegion, cfg.Region)
	assert.Equal(t, DefaultResultsDir, cfg.ResultsDir)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
	assert.Equal(t, []string{DefaultBedrockModel}, cfg.Models())
	assert.False(t, cfg.NeedsSecrets())
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("BEDROCK_MODEL_ID", "env-model")
	t.Setenv("BEDROCK_REGION", "eu-central-1")
	t.Setenv("LOG_LEVEL", "DEBUG")

	v := NewViper()
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "env-model", cfg.ActiveModel())
	assert.Equal(t, "eu-central-1", cfg.Region)
	assert.Equal(t, slog.LevelDebug, cfg.Level())

	// Explicit values (what a bound flag provides) beat the environment.
	v.Set(KeyModel, "flag-model")
	v.Set(KeyRegion, "us-east-1")
	cfg, err = Load(v)
	require.NoError(t, err)
	assert.Equal(t, "flag-model", cfg.ActiveModel())
	assert.Equal(t, "us-east-1", cfg.Region)
}

func TestLoad_AnthropicProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "Anthropic")
	t.Setenv("SECRET_PREFIX", "promptpatterns/")

	cfg, err := Load(NewViper())
	require.NoError(t, err)
	assert.Equal(t, completion.ProviderAnthropic, cfg.Provider)
	assert.Equal(t, completion.DefaultAnthropicModel, cfg.ActiveModel())
	assert.True(t, cfg.NeedsSecrets())

	cc := cfg.Completion("m1", nil)
	assert.Equal(t, completion.ProviderAnthropic, cc.Provider)
	assert.Equal(t, "m1", cc.Model)
	assert.Equal(t, 3, cc.Retry.MaxAttempts)
}

func TestLoad_CompareModels(t *testing.T) {
	clearEnv(t)
	t.Setenv("COMPARE_MODELS", " model-a, ,model-b ")

	cfg, err := Load(NewViper())
	require.NoError(t, err)
	assert.Equal(t, []string{"model-a", "model-b"}, cfg.Models())
}

func TestLoad_ServerSettings(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(NewViper())
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultMaxRuns, cfg.MaxRuns)

	t.Setenv("PORT", "9090")
	t.Setenv("MAX_RUNS", "2")
	cfg, err = Load(NewViper())
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 2, cfg.MaxRuns)

	t.Setenv("MAX_RUNS", "0")
	_, err = Load(NewViper())
	assert.ErrorContains(t, err, "MaxRuns")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"unknown provider", KeyProvider, "openai", "Provider"},
		{"unknown log level", KeyLogLevel, "loud", "LogLevel"},
		{"empty results dir", KeyResultsDir, "", "ResultsDir"},
		{"zero port", KeyPort, "0", "Port"},
		{"port out of range", KeyPort, "70000", "Port"},
		{"non-numeric max runs", KeyMaxRuns, "many", "MaxRuns"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			v := NewViper()
			v.Set(tt.key, tt.val)
			_, err := Load(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	const key = "PROMPTPATTERNS_TEST_DOTENV"
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-file\nBEDROCK_REGION=file-region\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv(key) })
	t.Setenv("BEDROCK_REGION", "shell-region")

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "from-file", os.Getenv(key))
	assert.Equal(t, "shell-region", os.Getenv("BEDROCK_REGION"), "existing env wins")
}

type fakeSecrets struct {
	value *string
	err   error
	ids   []string
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.ids = append(f.ids, aws.ToString(in.SecretId))
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: f.value}, nil
}

func TestLoadSecrets(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("fills key", func(t *testing.T) {
		api := &fakeSecrets{value: aws.String(" sk-test \n")}
		cfg := &Config{SecretPrefix: "pp/"}
		require.NoError(t, cfg.LoadSecrets(ctx, api, logger))
		assert.Equal(t, "sk-test", cfg.APIKey)
		assert.Equal(t, []string{"pp/ANTHROPIC_API_KEY"}, api.ids)
	})

	t.Run("existing key is kept", func(t *testing.T) {
		api := &fakeSecrets{value: aws.String("other")}
		cfg := &Config{SecretPrefix: "pp/", APIKey: "mine"}
		require.NoError(t, cfg.LoadSecrets(ctx, api, logger))
		assert.Equal(t, "mine", cfg.APIKey)
		assert.Empty(t, api.ids)
	})

	t.Run("missing secret is not fatal", func(t *testing.T) {
		api := &fakeSecrets{err: errors.New("ResourceNotFoundException")}
		cfg := &Config{SecretPrefix: "pp/"}
		require.NoError(t, cfg.LoadSecrets(ctx, api, logger))
		assert.Empty(t, cfg.APIKey)
	})

	t.Run("binary secret is rejected", func(t *testing.T) {
		cfg := &Config{SecretPrefix: "pp/"}
		err := cfg.LoadSecrets(ctx, &fakeSecrets{}, logger)
		assert.ErrorContains(t, err, "no string value")
	})
}
