package patterns

import (
	"context"
	"fmt"

	"github.com/apresai/promptpatterns/internal/completion"
	"github.com/apresai/promptpatterns/internal/metrics"
	"github.com/apresai/promptpatterns/internal/progress"
	"github.com/apresai/promptpatterns/internal/report"
	"github.com/apresai/promptpatterns/internal/scoring"
)

// StyleOutput is one restyled text.
type StyleOutput struct {
	Style            string                `json:"style"`
	Output           string                `json:"output"`
	ElapsedSeconds   float64               `json:"elapsed_sec"`
	CharsOriginal    int                   `json:"chars_original"`
	CharsTransformed int                   `json:"chars_transformed"`
	Preservation     *metrics.Preservation `json:"preservation_scores,omitempty"`
}

// StyleScenarioResult groups the outputs for one input text.
type StyleScenarioResult struct {
	Scenario string        `json:"scenario"`
	Input    string        `json:"input"`
	Outputs  []StyleOutput `json:"outputs"`
}

// StyleTransferResult is the pattern 1 result.
type StyleTransferResult struct {
	Pattern   Pattern               `json:"pattern"`
	Scenarios []StyleScenarioResult `json:"scenarios"`
}

func (r *Runner) styleScenarios(advanced bool) []Scenario {
	if r.input != "" {
		keys := basicStyleKeys
		if advanced {
			keys = make([]string, 0, len(Styles))
			for _, s := range Styles {
				keys = append(keys, s.Key)
			}
		}
		return []Scenario{{Key: "custom", Name: "Custom Input", Input: r.input, BasicStyles: keys, AdvancedStyles: keys}}
	}
	if advanced {
		return Scenarios
	}
	return Scenarios[:1]
}

// StyleTransfer rewrites each scenario in each of its styles. In advanced
// mode every output is also scored by the preservation judge.
func (r *Runner) StyleTransfer(ctx context.Context, advanced bool) (*StyleTransferResult, error) {
	r.out.Header(patternHeaders[StyleTransfer], advanced)
	r.collector.StartPattern(string(StyleTransfer), advanced, r.client.Model())

	result := &StyleTransferResult{Pattern: StyleTransfer, Scenarios: []StyleScenarioResult{}}
	var metricRows [][]string

	scenarios := r.styleScenarios(advanced)
	total, done := 0, 0
	for _, sc := range scenarios {
		total += len(sc.StyleKeys(advanced))
	}

	for _, sc := range scenarios {
		keys := sc.StyleKeys(advanced)
		if len(keys) == 0 {
			continue
		}
		original := sc.Input
		r.out.Scenario(sc.Name, original)

		scResult := StyleScenarioResult{Scenario: sc.Name, Input: original, Outputs: []StyleOutput{}}

		for _, key := range keys {
			style, err := StyleByKey(key)
			if err != nil {
				return nil, err
			}
			r.progress(progress.Event{Stage: progress.StageTransform,
				Message: fmt.Sprintf("%s: %s", sc.Name, style.Name), Percent: float64(done) / float64(total)})

			out, elapsed, err := r.timed(ctx, completion.NewRequest(style.System, transformPrompt(original)))
			if err != nil {
				return nil, fmt.Errorf("transform %s/%s: %w", sc.Key, style.Key, err)
			}
			r.out.Result(style.Name, out, 0)

			entry := StyleOutput{
				Style:            style.Name,
				Output:           out,
				ElapsedSeconds:   scoring.Round(elapsed, 2),
				CharsOriginal:    metrics.CountChars(original),
				CharsTransformed: metrics.CountChars(out),
			}

			var collected any
			if advanced {
				r.progress(progress.Event{Stage: progress.StageJudge,
					Message: fmt.Sprintf("Judging %s", style.Name), Percent: float64(done) / float64(total)})
				p, err := metrics.EvaluatePreservation(ctx, r.client, original, out)
				if err != nil {
					return nil, fmt.Errorf("judge %s/%s: %w", sc.Key, style.Key, err)
				}
				if p.Empty() {
					r.log.WarnContext(ctx, "Preservation judge reply did not parse", "scenario", sc.Key, "style", style.Key)
				}
				entry.Preservation = &p
				collected = p
				metricRows = append(metricRows, []string{
					report.Clip(sc.Name, 12),
					report.Clip(style.Name, 16),
					fmt.Sprint(entry.CharsOriginal),
					fmt.Sprint(entry.CharsTransformed),
					scoreCell(p.Preservation),
					scoreCell(p.NoDistortion),
					scoreCell(p.ToneShift),
					fmt.Sprintf("%.1fs", elapsed),
				})
			}

			r.collector.AddResult(sc.Name, style.Name, original, out, elapsed, collected)
			scResult.Outputs = append(scResult.Outputs, entry)
			done++
		}
		result.Scenarios = append(result.Scenarios, scResult)
	}

	if advanced && len(metricRows) > 0 {
		r.out.Table("Style Transfer Metrics",
			[]string{"Scenario", "Style", "Orig", "Trans", "Preserv", "NoDist", "ToneShift", "Time"},
			metricRows)
	}
	return result, nil
}

// scoreCell renders a judge score, with "-" for an axis the judge omitted.
func scoreCell(v int) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprint(v)
}
