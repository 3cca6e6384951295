// Package refine runs the Self-Refine loop: generate a draft, then for a
// fixed number of rounds critique it against criteria and rewrite it using
// the critique, then critique once more to score the result.
package refine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/apresai/promptpatterns/internal/completion"
	"github.com/apresai/promptpatterns/internal/progress"
	"github.com/apresai/promptpatterns/internal/scoring"
)

var tracer = otel.Tracer("promptpatterns/refine")

// Kind distinguishes loop critiques from the closing evaluation.
type Kind string

const (
	KindCritique Kind = "critique"
	KindFinal    Kind = "final"
)

// Task describes one Self-Refine run. It is not modified by Run.
type Task struct {
	Name      string `json:"name"`
	Objective string `json:"objective" validate:"required"`
	Role      string `json:"role" validate:"required"`
	Criteria  string `json:"criteria"`
	// CriterionNames orders the score table. The model may report other names.
	CriterionNames []string `json:"criterion_names"`
	Rounds         int      `json:"rounds" validate:"gte=0"`
}

// Validate checks the task before any model call is made.
func (t Task) Validate() error {
	return validator.New().Struct(t)
}

// RoundRecord is one scored critique.
type RoundRecord struct {
	Round          int            `json:"round"`
	Kind           Kind           `json:"type"`
	Scores         scoring.Scores `json:"scores"`
	Average        float64        `json:"avg"`
	ElapsedSeconds float64        `json:"elapsed_sec"`
}

// Result is the outcome of a completed run.
type Result struct {
	Trace      []RoundRecord `json:"round_scores"`
	FinalDraft string        `json:"final_draft"`
}

// TotalElapsed sums the critique timings in the trace.
func (r *Result) TotalElapsed() float64 {
	total := 0.0
	for _, rec := range r.Trace {
		total += rec.ElapsedSeconds
	}
	return scoring.Round(total, 2)
}

// Improvement compares the first and last averages. ok is false when the
// trace has fewer than two records.
func (r *Result) Improvement() (first, last, delta float64, ok bool) {
	if len(r.Trace) < 2 {
		return 0, 0, 0, false
	}
	first = r.Trace[0].Average
	last = r.Trace[len(r.Trace)-1].Average
	return first, last, scoring.Round(last-first, 1), true
}

// StageError tags a client failure with where in the loop it happened.
type StageError struct {
	Stage progress.Stage
	Round int
	Err   error
}

func (e *StageError) Error() string {
	if e.Round > 0 {
		return fmt.Sprintf("[%s round %d] %v", e.Stage, e.Round, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Refiner runs Self-Refine against a completion client. It keeps no
// per-run state and may be reused.
type Refiner struct {
	client   completion.Client
	log      *slog.Logger
	progress progress.Callback
	now      func() time.Time
}

// Option configures a Refiner.
type Option func(*Refiner)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Refiner) { r.log = l }
}

// WithProgress registers a progress callback.
func WithProgress(cb progress.Callback) Option {
	return func(r *Refiner) { r.progress = cb }
}

// WithClock replaces time.Now for elapsed-time measurement.
func WithClock(now func() time.Time) Option {
	return func(r *Refiner) { r.now = now }
}

// New creates a Refiner.
func New(client completion.Client, opts ...Option) *Refiner {
	r := &Refiner{
		client:   client,
		log:      slog.Default(),
		progress: progress.NopCallback,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the loop. Any client error aborts the run and no partial
// result is returned.
func (r *Refiner) Run(ctx context.Context, task Task) (*Result, error) {
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("invalid refine task: %w", err)
	}

	ctx, span := tracer.Start(ctx, "refine.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("task", task.Name),
		attribute.Int("rounds", task.Rounds),
		attribute.String("model", r.client.Model()),
	)

	result, err := r.run(ctx, task)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refine failed")
		r.progress(progress.Event{Stage: progress.StageComplete, Message: "Self-Refine failed", Error: err})
		return nil, err
	}

	first, last, delta, ok := result.Improvement()
	if ok {
		span.SetAttributes(attribute.Float64("avg_first", first), attribute.Float64("avg_last", last))
	}
	r.log.InfoContext(ctx, "Self-Refine complete",
		"task", task.Name, "rounds", task.Rounds, "records", len(result.Trace), "delta", delta)
	return result, nil
}

func (r *Refiner) run(ctx context.Context, task Task) (*Result, error) {
	step := 0
	r.emit(progress.Event{Stage: progress.StageGenerate, Message: "Generating initial draft", RoundTotal: task.Rounds,
		Percent: progress.RoundPercent(step, task.Rounds)})

	draft, err := r.complete(ctx, progress.StageGenerate, 0, completion.Request{
		System:      task.Role,
		User:        task.Objective,
		MaxTokens:   draftMaxTokens,
		Temperature: generateTemperature,
	})
	if err != nil {
		return nil, err
	}
	step++
	r.emit(progress.Event{Stage: progress.StageGenerate, Message: "Initial draft ready", Text: draft, RoundTotal: task.Rounds,
		Percent: progress.RoundPercent(step, task.Rounds)})

	trace := make([]RoundRecord, 0, task.Rounds+1)

	for round := 1; round <= task.Rounds; round++ {
		critique, rec, err := r.critique(ctx, task, draft, round, KindCritique)
		if err != nil {
			return nil, err
		}
		trace = append(trace, rec)
		step++
		r.emit(progress.Event{Stage: progress.StageCritique, Message: fmt.Sprintf("Round %d critique", round),
			Round: round, RoundTotal: task.Rounds, Scores: rec.Scores, Average: rec.Average,
			Percent: progress.RoundPercent(step, task.Rounds)})

		draft, err = r.complete(ctx, progress.StageRefine, round, completion.Request{
			System:      task.Role + refineSuffix,
			User:        buildRefinePrompt(draft, critique, task.Objective),
			MaxTokens:   draftMaxTokens,
			Temperature: refineTemperature,
		})
		if err != nil {
			return nil, err
		}
		step++
		r.emit(progress.Event{Stage: progress.StageRefine, Message: fmt.Sprintf("Round %d refined", round),
			Round: round, RoundTotal: task.Rounds, Text: draft,
			Percent: progress.RoundPercent(step, task.Rounds)})
	}

	_, rec, err := r.critique(ctx, task, draft, task.Rounds+1, KindFinal)
	if err != nil {
		return nil, err
	}
	trace = append(trace, rec)
	r.emit(progress.Event{Stage: progress.StageFinal, Message: "Final evaluation",
		Round: task.Rounds + 1, RoundTotal: task.Rounds, Scores: rec.Scores, Average: rec.Average, Percent: 1})

	return &Result{Trace: trace, FinalDraft: draft}, nil
}

// critique scores draft and returns the raw critique text with its record.
func (r *Refiner) critique(ctx context.Context, task Task, draft string, round int, kind Kind) (string, RoundRecord, error) {
	req := completion.Request{
		System:      critiqueSystem,
		User:        buildCritiquePrompt(task.Criteria, draft),
		MaxTokens:   critiqueMaxTokens,
		Temperature: critiqueTemperature,
	}
	stage := progress.StageCritique
	if kind == KindFinal {
		req.System = finalSystem
		req.User = buildFinalPrompt(task.Criteria, draft)
		stage = progress.StageFinal
	}

	start := r.now()
	raw, err := r.complete(ctx, stage, round, req)
	if err != nil {
		return "", RoundRecord{}, err
	}
	elapsed := r.now().Sub(start)

	scores := scoring.ExtractScores(raw)
	r.logMismatch(ctx, task, round, scores)

	return raw, RoundRecord{
		Round:          round,
		Kind:           kind,
		Scores:         scores,
		Average:        scoring.Average(scores),
		ElapsedSeconds: scoring.Round(elapsed.Seconds(), 2),
	}, nil
}

func (r *Refiner) complete(ctx context.Context, stage progress.Stage, round int, req completion.Request) (string, error) {
	ctx, span := tracer.Start(ctx, "refine."+string(stage))
	defer span.End()
	span.SetAttributes(attribute.Int("round", round))

	out, err := r.client.Complete(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		r.log.ErrorContext(ctx, "Self-Refine step failed", "stage", stage, "round", round, "error", err)
		return "", &StageError{Stage: stage, Round: round, Err: err}
	}
	return out, nil
}

// logMismatch notes criteria the model renamed or skipped. Scores are kept
// under whatever names the model used.
func (r *Refiner) logMismatch(ctx context.Context, task Task, round int, scores scoring.Scores) {
	if len(task.CriterionNames) == 0 {
		return
	}
	var missing []string
	for _, name := range task.CriterionNames {
		if _, ok := scores[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		r.log.DebugContext(ctx, "Critique missing expected criteria",
			"round", round, "missing", missing, "reported", len(scores))
	}
}

func (r *Refiner) emit(e progress.Event) {
	r.progress(e)
}
