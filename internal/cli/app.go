package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/apresai/promptpatterns/internal/completion"
	"github.com/apresai/promptpatterns/internal/config"
	"github.com/apresai/promptpatterns/internal/ingest"
	"github.com/apresai/promptpatterns/internal/observability"
	"github.com/apresai/promptpatterns/internal/patterns"
	"github.com/apresai/promptpatterns/internal/progress"
	"github.com/apresai/promptpatterns/internal/report"
)

var tracer = otel.Tracer("promptpatterns/cli")

type clientFactory func(ctx context.Context, cfg completion.Config) (completion.Client, error)

type uploaderFactory func(ctx context.Context, region, uri string) (uploader, error)

type uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// app holds what one invocation needs after configuration is resolved.
type app struct {
	cfg         *config.Config
	log         *slog.Logger
	stdout      io.Writer
	stderr      io.Writer
	newClient   clientFactory
	newUploader uploaderFactory
	now         func() time.Time
	shutdown    observability.ShutdownFunc
}

type runOptions struct {
	Patterns []patterns.Pattern
	Advanced bool
	JSON     bool
	Save     bool
	Upload   string
	Input    string
	Rounds   int
	Progress progress.Callback
}

func newApp(ctx context.Context, v *viper.Viper, stdout, stderr io.Writer) (*app, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	logger := observability.InitLogger(stderr, cfg.Level())

	shutdown, err := observability.InitTracer(ctx, cfg.OTLPEndpoint, "promptpatterns", Version)
	if err != nil {
		logger.Warn("Failed to init tracer, continuing without tracing", "error", err)
		shutdown = func(context.Context) error { return nil }
	}

	if cfg.NeedsSecrets() {
		sm, err := config.NewSecretsClient(ctx, cfg.Region)
		if err != nil {
			return nil, err
		}
		if err := cfg.LoadSecrets(ctx, sm, logger); err != nil {
			return nil, err
		}
	}

	return &app{
		cfg:       cfg,
		log:       logger,
		stdout:    stdout,
		stderr:    stderr,
		newClient: completion.New,
		newUploader: func(ctx context.Context, region, uri string) (uploader, error) {
			return report.NewUploader(ctx, region, uri)
		},
		now:      time.Now,
		shutdown: shutdown,
	}, nil
}

func (a *app) close() {
	if err := a.shutdown(context.Background()); err != nil {
		a.log.Error("Tracer shutdown error", "error", err)
	}
}

// run executes the selected patterns once per configured model, then
// emits, saves and uploads the result log as requested.
func (a *app) run(ctx context.Context, opts runOptions) (err error) {
	models := a.cfg.Models()
	ctx, span := tracer.Start(ctx, "cli.run")
	span.SetAttributes(
		attribute.StringSlice("models", models),
		attribute.Bool("advanced", opts.Advanced),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var input string
	if opts.Input != "" {
		content, err := ingest.Load(ctx, opts.Input)
		if err != nil {
			return fmt.Errorf("load input: %w", err)
		}
		a.log.InfoContext(ctx, "Loaded custom input",
			"source", content.Source, "type", content.Type, "chars", content.Chars, "truncated", content.Truncated)
		input = content.Text
	}

	var out io.Writer = a.stdout
	if opts.JSON {
		out = io.Discard
	}
	console := report.NewConsole(out)
	collector := report.NewCollector()
	cb := opts.Progress
	if cb == nil {
		cb = progress.NopCallback
	}

	start := a.now()
	for i, model := range models {
		if len(models) > 1 {
			console.Banner(fmt.Sprintf("Model: %s", model))
		}
		client, err := a.newClient(ctx, a.cfg.Completion(model, a.log))
		if err != nil {
			return fmt.Errorf("create client for %s: %w", model, err)
		}
		runner := patterns.NewRunner(client, collector,
			patterns.WithSink(console),
			patterns.WithLogger(a.log.With("model", model)),
			patterns.WithProgress(cb),
			patterns.WithInput(input),
			patterns.WithRounds(opts.Rounds),
			patterns.WithClock(a.now),
		)
		for j, p := range opts.Patterns {
			if j > 0 || i > 0 {
				console.Line("\n")
			}
			if _, err := runner.Run(ctx, p, opts.Advanced); err != nil {
				return err
			}
		}
	}

	modelID := strings.Join(models, ",")
	if len(models) == 1 {
		elapsed := a.now().Sub(start).Seconds()
		rule := strings.Repeat("=", 60)
		console.Line("\n%s", rule)
		console.Line("  Total elapsed: %.1fs", elapsed)
		console.Line("  Model: %s", modelID)
		console.Line("%s", rule)
	}

	if opts.JSON {
		if err := collector.WriteJSON(a.stdout, modelID); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
	}

	if !opts.Save && opts.Upload == "" {
		return nil
	}
	path, err := collector.Save(a.cfg.ResultsDir, modelID)
	if err != nil {
		return err
	}
	a.notice(opts, "Results saved: %s", path)

	if opts.Upload != "" {
		up, err := a.newUploader(ctx, a.cfg.Region, opts.Upload)
		if err != nil {
			return err
		}
		uri, err := up.Upload(ctx, path)
		if err != nil {
			return err
		}
		a.notice(opts, "Results uploaded: %s", uri)
	}
	return nil
}

// notice prints a status line where it will not corrupt JSON output.
func (a *app) notice(opts runOptions, format string, args ...any) {
	w := a.stdout
	if opts.JSON {
		w = a.stderr
	}
	fmt.Fprintf(w, "\n  "+format+"\n", args...)
}
