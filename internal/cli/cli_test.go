package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/promptpatterns/internal/completion"
	"github.com/apresai/promptpatterns/internal/config"
	"github.com/apresai/promptpatterns/internal/patterns"
	"github.com/apresai/promptpatterns/internal/report"
)

type fakeClient struct {
	model string
	mu    sync.Mutex
	users []string
}

func (f *fakeClient) Complete(_ context.Context, req completion.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, req.User)
	switch {
	case strings.Contains(req.System, "text quality evaluator"):
		return `{"preservation": 5, "no_distortion": 5, "tone_shift": 4}`, nil
	case strings.Contains(req.System, "quality auditor"):
		return `{"명확성": {"score": 4, "feedback": "ok"}}`, nil
	default:
		return "Answer from " + f.model + ".", nil
	}
}

func (f *fakeClient) Model() string { return f.model }

type fakeUploader struct {
	uri   string
	paths []string
}

func (f *fakeUploader) Upload(_ context.Context, localPath string) (string, error) {
	f.paths = append(f.paths, localPath)
	return f.uri + "/" + filepath.Base(localPath), nil
}

type testApp struct {
	*app
	stdout, stderr bytes.Buffer
	clients        []*fakeClient
	uploader       *fakeUploader
}

func newTestApp(t *testing.T, cfg *config.Config) *testApp {
	t.Helper()
	if cfg.ResultsDir == "" {
		cfg.ResultsDir = t.TempDir()
	}
	ta := &testApp{uploader: &fakeUploader{}}
	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	ta.app = &app{
		cfg:    cfg,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		stdout: &ta.stdout,
		stderr: &ta.stderr,
		newClient: func(_ context.Context, cc completion.Config) (completion.Client, error) {
			c := &fakeClient{model: cc.Model}
			ta.clients = append(ta.clients, c)
			return c, nil
		},
		newUploader: func(_ context.Context, _, uri string) (uploader, error) {
			ta.uploader.uri = strings.TrimSuffix(uri, "/")
			return ta.uploader, nil
		},
		now: func() time.Time {
			clock = clock.Add(500 * time.Millisecond)
			return clock
		},
		shutdown: func(context.Context) error { return nil },
	}
	return ta
}

func TestApp_TextRun(t *testing.T) {
	ta := newTestApp(t, &config.Config{Provider: "bedrock", BedrockModel: "model-a"})

	err := ta.run(context.Background(), runOptions{
		Patterns: []patterns.Pattern{patterns.ContentOptimization},
		Rounds:   -1,
	})
	require.NoError(t, err)

	out := ta.stdout.String()
	assert.Contains(t, out, "Pattern 3: Content Optimization")
	assert.Contains(t, out, "Total elapsed:")
	assert.Contains(t, out, "Model: model-a")
	assert.NotContains(t, out, "Results saved")
	require.Len(t, ta.clients, 1)
	assert.Len(t, ta.clients[0].users, 4)
}

func TestApp_JSONRun(t *testing.T) {
	ta := newTestApp(t, &config.Config{Provider: "bedrock", BedrockModel: "model-a"})

	err := ta.run(context.Background(), runOptions{
		Patterns: []patterns.Pattern{patterns.StyleTransfer},
		JSON:     true,
		Rounds:   -1,
	})
	require.NoError(t, err)

	var doc report.Document
	require.NoError(t, json.Unmarshal(ta.stdout.Bytes(), &doc), "stdout holds only the document")
	assert.Equal(t, "model-a", doc.ModelID)
	assert.NotEmpty(t, doc.RunID)
	require.Len(t, doc.Patterns, 1)
	assert.Equal(t, "style_transfer", doc.Patterns[0].Pattern)
	assert.Len(t, doc.Patterns[0].Scenarios, 3)
}

func TestApp_CompareModels(t *testing.T) {
	ta := newTestApp(t, &config.Config{
		Provider:      "bedrock",
		BedrockModel:  "ignored",
		CompareModels: []string{"model-a", "model-b"},
	})

	err := ta.run(context.Background(), runOptions{
		Patterns: []patterns.Pattern{patterns.ReverseNeutralization},
		JSON:     true,
		Rounds:   -1,
	})
	require.NoError(t, err)

	require.Len(t, ta.clients, 2)
	assert.Equal(t, "model-a", ta.clients[0].model)
	assert.Equal(t, "model-b", ta.clients[1].model)

	var doc report.Document
	require.NoError(t, json.Unmarshal(ta.stdout.Bytes(), &doc))
	assert.Equal(t, "model-a,model-b", doc.ModelID)
	require.Len(t, doc.Patterns, 2)
	assert.Equal(t, "model-a", doc.Patterns[0].Model)
	assert.Equal(t, "model-b", doc.Patterns[1].Model)
	assert.Contains(t, doc.Patterns[1].Scenarios[0].Output, "model-b")
}

func TestApp_CompareBanner(t *testing.T) {
	ta := newTestApp(t, &config.Config{Provider: "bedrock", CompareModels: []string{"model-a", "model-b"}})

	require.NoError(t, ta.run(context.Background(), runOptions{
		Patterns: []patterns.Pattern{patterns.ReverseNeutralization},
		Rounds:   -1,
	}))
	out := ta.stdout.String()
	assert.Contains(t, out, "Model: model-a")
	assert.Contains(t, out, "Model: model-b")
	assert.NotContains(t, out, "Total elapsed")
}

func TestApp_SaveAndUpload(t *testing.T) {
	dir := t.TempDir()
	ta := newTestApp(t, &config.Config{Provider: "bedrock", BedrockModel: "model-a", ResultsDir: dir})

	err := ta.run(context.Background(), runOptions{
		Patterns: []patterns.Pattern{patterns.ReverseNeutralization},
		JSON:     true,
		Upload:   "s3://bucket/runs/",
		Rounds:   -1,
	})
	require.NoError(t, err)

	require.Len(t, ta.uploader.paths, 1)
	saved := ta.uploader.paths[0]
	assert.Equal(t, dir, filepath.Dir(saved))
	data, err := os.ReadFile(saved)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"reverse_neutralization"`)

	assert.Contains(t, ta.stderr.String(), "Results saved: "+saved)
	assert.Contains(t, ta.stderr.String(), "Results uploaded: s3://bucket/runs/"+filepath.Base(saved))
}

func TestApp_CustomInput(t *testing.T) {
	ta := newTestApp(t, &config.Config{Provider: "bedrock", BedrockModel: "model-a"})

	err := ta.run(context.Background(), runOptions{
		Patterns: []patterns.Pattern{patterns.StyleTransfer},
		Input:    "결제 서비스가 10분간 중단되었습니다.",
		Rounds:   -1,
	})
	require.NoError(t, err)
	require.Len(t, ta.clients, 1)
	for _, u := range ta.clients[0].users {
		assert.Contains(t, u, "결제 서비스가 10분간 중단되었습니다.")
	}
}

func TestApp_ClientError(t *testing.T) {
	ta := newTestApp(t, &config.Config{Provider: "bedrock", BedrockModel: "model-a"})
	ta.newClient = func(context.Context, completion.Config) (completion.Client, error) {
		return nil, errors.New("no credentials")
	}

	err := ta.run(context.Background(), runOptions{Patterns: patterns.All, Rounds: -1})
	assert.ErrorContains(t, err, "create client for model-a: no credentials")
}

func press(m tea.Model, keys ...string) tea.Model {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "backspace":
			msg = tea.KeyMsg{Type: tea.KeyBackspace}
		case "space":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, _ = m.Update(msg)
	}
	return m
}

func TestTUI_SelectAndRun(t *testing.T) {
	m := press(initialTUIModel(selection{}),
		"enter", "down", "down", "enter", // Pattern -> 3
		"enter", "down", "enter", // Mode -> advanced
		"enter", "down", "enter", // Output -> json
		"enter", "m", "1", "x", "backspace", "enter", // Model -> m1
		"down", "enter", // skip Input, Run
	)
	final := m.(tuiModel)
	assert.True(t, final.confirmed)
	assert.Equal(t, selection{Pattern: "3", Advanced: true, Output: "json", Model: "m1"}, final.selection())
}

func TestTUI_PrefillAndValidation(t *testing.T) {
	m := initialTUIModel(selection{Pattern: "3", Output: "text", Input: "hello"})
	assert.Equal(t, 2, m.items[idxPattern].cursor)
	assert.Contains(t, m.View(), "Content Optimization")

	m.cursor = idxRun
	next := press(m, "enter").(tuiModel)
	assert.False(t, next.confirmed)
	require.Error(t, next.err)
	assert.Contains(t, next.View(), "Input only applies to patterns 1 and 2")
}

func TestTUI_TextInputKeepsSpaces(t *testing.T) {
	m := initialTUIModel(selection{Pattern: "1"})
	m.cursor = idxInput
	final := press(m, "enter", "a", "space", "b", "enter").(tuiModel)
	assert.Equal(t, "a b", final.items[idxInput].value)
	assert.Equal(t, idxRun, final.cursor)
}

func TestTUI_Quit(t *testing.T) {
	final := press(initialTUIModel(selection{}), "q").(tuiModel)
	assert.True(t, final.cancelled)
}

func TestPrintCatalogs(t *testing.T) {
	var buf bytes.Buffer
	printCatalogs(&buf)
	out := buf.String()
	assert.Contains(t, out, "Styles (pattern 1)")
	assert.Contains(t, out, "business-formal")
	assert.Contains(t, out, "Personas (pattern 2)")
	assert.Contains(t, out, "Refinement tasks (pattern 3)")
	assert.Contains(t, out, "advanced-blog")
}

func TestCommands(t *testing.T) {
	t.Cleanup(func() {
		flagOutput = "text"
		flagUpload = ""
		flagAdvanced = false
		rootCmd.SetArgs(nil)
	})

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(io.Discard)

	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "promptpatterns dev\n", buf.String())

	rootCmd.SetArgs([]string{"run", "4"})
	assert.ErrorContains(t, rootCmd.Execute(), "select 1, 2, 3, or all")

	// The pattern may also be given to the root command directly.
	rootCmd.SetArgs([]string{"4", "--advanced"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "unknown command")
	assert.ErrorContains(t, err, "select 1, 2, 3, or all")

	rootCmd.SetArgs([]string{"1", "2"})
	assert.ErrorContains(t, rootCmd.Execute(), "accepts at most 1 arg")

	rootCmd.SetArgs([]string{"run", "1", "--output", "xml"})
	assert.ErrorContains(t, rootCmd.Execute(), `invalid output "xml"`)

	flagOutput = "text"
	rootCmd.SetArgs([]string{"run", "2", "--upload", "bucket/prefix"})
	assert.ErrorContains(t, rootCmd.Execute(), "must start with s3://")
}
