package patterns

import (
	"context"
	"fmt"
	"strings"

	"github.com/apresai/promptpatterns/internal/progress"
	"github.com/apresai/promptpatterns/internal/refine"
	"github.com/apresai/promptpatterns/internal/scoring"
)

// TaskResult is one Self-Refine run.
type TaskResult struct {
	Task        string               `json:"task"`
	Rounds      int                  `json:"rounds"`
	RoundScores []refine.RoundRecord `json:"round_scores"`
	FinalDraft  string               `json:"final_draft"`
}

// ContentOptimizationResult is the pattern 3 result.
type ContentOptimizationResult struct {
	Pattern Pattern      `json:"pattern"`
	Tasks   []TaskResult `json:"tasks"`
}

// ContentOptimization runs the Self-Refine loop over the mode's tasks.
func (r *Runner) ContentOptimization(ctx context.Context, advanced bool) (*ContentOptimizationResult, error) {
	r.out.Header(patternHeaders[ContentOptimization], advanced)
	r.collector.StartPattern(string(ContentOptimization), advanced, r.client.Model())

	result := &ContentOptimizationResult{Pattern: ContentOptimization, Tasks: []TaskResult{}}

	for _, key := range TaskKeys(advanced) {
		task, err := TaskByKey(key)
		if err != nil {
			return nil, err
		}
		if r.rounds >= 0 {
			task.Rounds = r.rounds
		}

		r.out.Line("\n%s", strings.Repeat("~", 40))
		r.out.Line("  Scenario: %s", task.Name)
		r.out.Line("\n  Task: %s", task.Objective)
		r.out.Line("   Rounds: %d\n", task.Rounds)

		refiner := refine.New(r.client,
			refine.WithLogger(r.log),
			refine.WithClock(r.now),
			refine.WithProgress(r.transcript(task)),
		)
		res, err := refiner.Run(ctx, task)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", key, err)
		}

		r.collector.AddResult(task.Name, "self-refine", task.Objective, res.FinalDraft,
			res.TotalElapsed(), map[string]any{"round_scores": res.Trace})

		if len(res.Trace) > 1 {
			r.printProgression(task, res)
		}

		result.Tasks = append(result.Tasks, TaskResult{
			Task:        task.Name,
			Rounds:      task.Rounds,
			RoundScores: res.Trace,
			FinalDraft:  res.FinalDraft,
		})
	}
	return result, nil
}

// transcript prints loop steps to the sink and forwards them to the
// runner's progress callback.
func (r *Runner) transcript(task refine.Task) progress.Callback {
	return func(e progress.Event) {
		switch e.Stage {
		case progress.StageGenerate:
			if e.Text != "" {
				r.out.Result("Initial Draft", e.Text, 0)
			}
		case progress.StageCritique:
			r.out.Line("  [Round %d Critique] avg: %.1f/5", e.Round, e.Average)
			r.printScores(e.Scores, task.CriterionNames)
		case progress.StageRefine:
			r.out.Result(fmt.Sprintf("Round %d Refined", e.Round), e.Text, 0)
		case progress.StageFinal:
			if task.Rounds > 1 {
				r.out.Line("  [Final Evaluation] avg: %.1f/5", e.Average)
				r.printScores(e.Scores, task.CriterionNames)
			}
		}
		if e.Stage != progress.StageComplete {
			r.progress(e)
		}
	}
}

func (r *Runner) printScores(scores scoring.Scores, order []string) {
	for _, k := range scores.Keys(order) {
		r.out.Line("   %s: %d/5", k, scores[k])
	}
	r.out.Line("")
}

func (r *Runner) printProgression(task refine.Task, res *refine.Result) {
	headers := append([]string{"Round"}, task.CriterionNames...)
	headers = append(headers, "AVG")

	rows := make([][]string, 0, len(res.Trace))
	for _, rec := range res.Trace {
		label := "Final"
		if rec.Kind == refine.KindCritique {
			label = fmt.Sprintf("R%d", rec.Round)
		}
		row := []string{label}
		for _, name := range task.CriterionNames {
			if v, ok := rec.Scores[name]; ok {
				row = append(row, fmt.Sprint(v))
			} else {
				row = append(row, "-")
			}
		}
		rows = append(rows, append(row, fmt.Sprintf("%.1f", rec.Average)))
	}
	r.out.Table(fmt.Sprintf("Score Progression (%s)", task.Name), headers, rows)

	if first, last, delta, ok := res.Improvement(); ok {
		r.out.Line("\n  Improvement: %.1f -> %.1f (%s)", first, last, signed(delta))
	}
}

func signed(v float64) string {
	if v >= 0 {
		return fmt.Sprintf("+%.1f", v)
	}
	return fmt.Sprintf("%.1f", v)
}
