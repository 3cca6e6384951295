// Package patterns drives the three output-control demos (style transfer,
// reverse neutralization, content optimization) against a completion client
// and records every output in a report.Collector.
package patterns

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/apresai/promptpatterns/internal/completion"
	"github.com/apresai/promptpatterns/internal/progress"
	"github.com/apresai/promptpatterns/internal/report"
)

var tracer = otel.Tracer("promptpatterns/patterns")

// Pattern identifies one demo.
type Pattern string

const (
	StyleTransfer         Pattern = "style_transfer"
	ReverseNeutralization Pattern = "reverse_neutralization"
	ContentOptimization   Pattern = "content_optimization"
)

// All lists the patterns in menu order.
var All = []Pattern{StyleTransfer, ReverseNeutralization, ContentOptimization}

var patternTitles = map[Pattern]string{
	StyleTransfer:         "Style Transfer",
	ReverseNeutralization: "Reverse Neutralization",
	ContentOptimization:   "Content Optimization",
}

var patternHeaders = map[Pattern]string{
	StyleTransfer:         "Pattern 1: Style Transfer (Tone/Style Transformation)",
	ReverseNeutralization: "Pattern 2: Reverse Neutralization (Domain Expert Personas)",
	ContentOptimization:   "Pattern 3: Content Optimization (Self-Refine Loop)",
}

// Title is the short display name.
func (p Pattern) Title() string { return patternTitles[p] }

// ParseSelection maps a menu choice ("1", "2", "3" or "all") to patterns.
func ParseSelection(choice string) ([]Pattern, error) {
	switch strings.TrimSpace(strings.ToLower(choice)) {
	case "1":
		return []Pattern{StyleTransfer}, nil
	case "2":
		return []Pattern{ReverseNeutralization}, nil
	case "3":
		return []Pattern{ContentOptimization}, nil
	case "all":
		return append([]Pattern(nil), All...), nil
	default:
		return nil, fmt.Errorf("invalid pattern %q: select 1, 2, 3, or all", choice)
	}
}

// Sink receives the human-readable transcript of a run.
type Sink interface {
	Header(title string, advanced bool)
	Scenario(name, input string)
	Result(label, text string, limit int)
	Table(title string, headers []string, rows [][]string)
	Line(format string, args ...any)
}

// Runner executes patterns against one model.
type Runner struct {
	client    completion.Client
	collector *report.Collector
	out       Sink
	log       *slog.Logger
	progress  progress.Callback
	input     string
	rounds    int
	now       func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithSink sets where the text transcript goes.
func WithSink(s Sink) Option {
	return func(r *Runner) { r.out = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithProgress registers a progress callback.
func WithProgress(cb progress.Callback) Option {
	return func(r *Runner) { r.progress = cb }
}

// WithInput replaces the built-in style transfer scenarios and persona
// questions with custom text.
func WithInput(text string) Option {
	return func(r *Runner) { r.input = strings.TrimSpace(text) }
}

// WithRounds overrides the round count of every content optimization task.
func WithRounds(n int) Option {
	return func(r *Runner) { r.rounds = n }
}

// WithClock replaces time.Now for elapsed-time measurement.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a Runner that records into collector.
func NewRunner(client completion.Client, collector *report.Collector, opts ...Option) *Runner {
	r := &Runner{
		client:    client,
		collector: collector,
		out:       report.NewConsole(io.Discard),
		log:       slog.Default(),
		progress:  progress.NopCallback,
		rounds:    -1,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one pattern and returns its typed result.
func (r *Runner) Run(ctx context.Context, p Pattern, advanced bool) (any, error) {
	ctx, span := tracer.Start(ctx, "patterns."+string(p), trace.WithAttributes(
		attribute.Bool("advanced", advanced),
		attribute.String("model", r.client.Model()),
	))
	defer span.End()

	start := r.now()
	r.log.InfoContext(ctx, "Pattern started", "pattern", p, "advanced", advanced, "model", r.client.Model())

	var (
		res any
		err error
	)
	switch p {
	case StyleTransfer:
		res, err = r.StyleTransfer(ctx, advanced)
	case ReverseNeutralization:
		res, err = r.ReverseNeutralization(ctx, advanced)
	case ContentOptimization:
		if r.input != "" {
			r.log.InfoContext(ctx, "Custom input ignored by content optimization")
		}
		res, err = r.ContentOptimization(ctx, advanced)
	default:
		return nil, fmt.Errorf("unknown pattern %q", p)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pattern failed")
		r.progress(progress.Event{Stage: progress.StageComplete, Pattern: string(p), Error: err})
		return nil, fmt.Errorf("%s: %w", p.Title(), err)
	}

	r.log.InfoContext(ctx, "Pattern complete", "pattern", p, "elapsed_ms", r.now().Sub(start).Milliseconds())
	r.progress(progress.Event{Stage: progress.StageComplete, Pattern: string(p),
		Message: p.Title() + " complete", Percent: 1})
	return res, nil
}

// timed runs a completion and reports its wall time in seconds.
func (r *Runner) timed(ctx context.Context, req completion.Request) (string, float64, error) {
	start := r.now()
	out, err := r.client.Complete(ctx, req)
	if err != nil {
		return "", 0, err
	}
	return out, r.now().Sub(start).Seconds(), nil
}
