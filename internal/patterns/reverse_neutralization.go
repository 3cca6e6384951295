package patterns

import (
	"context"
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/apresai/promptpatterns/internal/completion"
	"github.com/apresai/promptpatterns/internal/metrics"
	"github.com/apresai/promptpatterns/internal/progress"
	"github.com/apresai/promptpatterns/internal/report"
	"github.com/apresai/promptpatterns/internal/scoring"
)

const (
	neutralLabel    = "Neutral AI"
	neutralTruncate = 300
	personaTruncate = 500
)

// PersonaOutput is one answer to a question.
type PersonaOutput struct {
	Persona        string  `json:"persona"`
	Output         string  `json:"output"`
	ElapsedSeconds float64 `json:"elapsed_sec"`
	Chars          int     `json:"chars"`
	AvgSentenceLen float64 `json:"avg_sentence_len"`
}

// PersonaScenarioResult groups the answers to one question.
type PersonaScenarioResult struct {
	Scenario string          `json:"scenario"`
	Question string          `json:"question"`
	Outputs  []PersonaOutput `json:"outputs"`
}

// ReverseNeutralizationResult is the pattern 2 result.
type ReverseNeutralizationResult struct {
	Pattern   Pattern                 `json:"pattern"`
	Scenarios []PersonaScenarioResult `json:"scenarios"`
}

func (r *Runner) questions(advanced bool) []Question {
	if r.input != "" {
		return []Question{{Key: "custom", TextKO: r.input}}
	}
	keys := QuestionKeys(advanced)
	out := make([]Question, 0, len(keys))
	for _, k := range keys {
		out = append(out, questionByKey(k))
	}
	return out
}

// ReverseNeutralization asks each question of a neutral assistant and then
// of every persona, so the answers can be compared side by side.
func (r *Runner) ReverseNeutralization(ctx context.Context, advanced bool) (*ReverseNeutralizationResult, error) {
	r.out.Header(patternHeaders[ReverseNeutralization], advanced)
	r.collector.StartPattern(string(ReverseNeutralization), advanced, r.client.Model())

	personas := PersonasFor(advanced)
	questions := r.questions(advanced)
	result := &ReverseNeutralizationResult{Pattern: ReverseNeutralization, Scenarios: []PersonaScenarioResult{}}

	total := len(questions) * (len(personas) + 1)
	done := 0

	for _, q := range questions {
		question := q.TextKO
		if question == "" {
			question = q.Text
		}
		r.out.Scenario(cases.Title(language.English).String(q.Key), question)

		scResult := PersonaScenarioResult{Scenario: q.Key, Question: question, Outputs: []PersonaOutput{}}
		var rows [][]string

		ask := func(label, system string, limit int) error {
			r.progress(progress.Event{Stage: progress.StagePersona,
				Message: fmt.Sprintf("%s: %s", q.Key, label), Percent: float64(done) / float64(total)})

			out, elapsed, err := r.timed(ctx, completion.NewRequest(system, question))
			if err != nil {
				return fmt.Errorf("ask %s/%s: %w", q.Key, label, err)
			}
			display := label + " Persona"
			if label == neutralLabel {
				display = "Neutral Response (General AI)"
			}
			r.out.Result(display, out, limit)

			entry := PersonaOutput{
				Persona:        label,
				Output:         out,
				ElapsedSeconds: scoring.Round(elapsed, 2),
				Chars:          metrics.CountChars(out),
				AvgSentenceLen: metrics.AvgSentenceLen(out),
			}
			scResult.Outputs = append(scResult.Outputs, entry)
			r.collector.AddResult(q.Key, label, question, out, elapsed, nil)
			rows = append(rows, []string{
				report.Clip(label, 20),
				fmt.Sprint(entry.Chars),
				fmt.Sprintf("%.1f", entry.AvgSentenceLen),
				fmt.Sprintf("%.1fs", elapsed),
			})
			done++
			return nil
		}

		if err := ask(neutralLabel, neutralSystem, neutralTruncate); err != nil {
			return nil, err
		}
		for _, p := range personas {
			if err := ask(p.Name, p.System, personaTruncate); err != nil {
				return nil, err
			}
		}

		if advanced {
			r.out.Table(fmt.Sprintf("Reverse Neutralization Metrics (%s)", q.Key),
				[]string{"Persona", "Length(chars)", "AvgSentLen", "Time"}, rows)
		}
		result.Scenarios = append(result.Scenarios, scResult)
	}
	return result, nil
}
