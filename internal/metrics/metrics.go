// Package metrics measures LLM outputs: simple text statistics plus an
// LLM-judged semantic preservation check for style transfer.
package metrics

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/apresai/promptpatterns/internal/completion"
	"github.com/apresai/promptpatterns/internal/scoring"
)

// CountChars counts characters excluding spaces and newlines. Input is
// NFC-normalized first so decomposed Hangul counts one per syllable.
func CountChars(text string) int {
	text = norm.NFC.String(text)
	text = strings.NewReplacer(" ", "", "\n", "").Replace(text)
	return utf8.RuneCountInString(text)
}

var sentenceSplitRe = regexp.MustCompile(`[.!?]\s*`)

// AvgSentenceLen is the mean word count per sentence, rounded to one decimal.
func AvgSentenceLen(text string) float64 {
	var sentences []string
	for _, s := range sentenceSplitRe.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return 0
	}
	words := 0
	for _, s := range sentences {
		words += len(strings.Fields(s))
	}
	return scoring.Round(float64(words)/float64(len(sentences)), 1)
}

// Preservation is the judge's verdict on a style transfer, 1-5 per axis.
// Missing axes are zero.
type Preservation struct {
	Preservation int `json:"preservation"`
	NoDistortion int `json:"no_distortion"`
	ToneShift    int `json:"tone_shift"`
}

// Empty reports whether the judge output could not be parsed.
func (p Preservation) Empty() bool {
	return p == Preservation{}
}

const judgeSystem = "You are a text quality evaluator. Output JSON only."

func buildPreservationPrompt(original, transformed string) string {
	return fmt.Sprintf(`Evaluate semantic preservation between original and transformed text.

## Original
%s

## Transformed
%s

## Criteria
- preservation (1-5): Are all key facts from the original preserved?
- no_distortion (1-5): Is the original meaning undistorted? (5=no distortion)
- tone_shift (1-5): Is the tone/style clearly transformed?

Output JSON only: {"preservation": N, "no_distortion": N, "tone_shift": N}`, original, transformed)
}

// EvaluatePreservation asks the model to score how well transformed keeps
// the facts of original. A reply that does not parse yields a zero
// Preservation and no error; client errors are returned.
func EvaluatePreservation(ctx context.Context, client completion.Client, original, transformed string) (Preservation, error) {
	raw, err := client.Complete(ctx, completion.Request{
		System:      judgeSystem,
		User:        buildPreservationPrompt(original, transformed),
		MaxTokens:   200,
		Temperature: 0.2,
	})
	if err != nil {
		return Preservation{}, fmt.Errorf("evaluate preservation: %w", err)
	}

	flat := scoring.ExtractFlat(raw)
	return Preservation{
		Preservation: flat["preservation"],
		NoDistortion: flat["no_distortion"],
		ToneShift:    flat["tone_shift"],
	}, nil
}
