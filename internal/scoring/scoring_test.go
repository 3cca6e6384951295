package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractScores(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Scores
	}{
		{
			name: "plain json",
			raw:  `{"clarity": {"score": 7, "feedback": "ok"}, "brevity": {"score": 9, "feedback": "good"}}`,
			want: Scores{"clarity": 7, "brevity": 9},
		},
		{
			name: "fenced with language tag",
			raw:  "```json\n{\"A\": {\"score\": 8, \"feedback\": \"x\"}}\n```",
			want: Scores{"A": 8},
		},
		{
			name: "fenced without language tag",
			raw:  "```\n{\"A\": {\"score\": 5}}\n```",
			want: Scores{"A": 5},
		},
		{
			name: "prose around object",
			raw:  "Here is my evaluation:\n{\"A\": {\"score\": 6, \"feedback\": \"fine\"}}\nThanks!",
			want: Scores{"A": 6},
		},
		{
			name: "non-score keys ignored",
			raw:  `{"A": {"score": 4}, "summary": "meh", "B": {"feedback": "no score"}}`,
			want: Scores{"A": 4},
		},
		{
			name: "float score rounds",
			raw:  `{"A": {"score": 7.5}}`,
			want: Scores{"A": 8},
		},
		{
			name: "regex fallback on truncated json",
			raw:  `{"A": {"feedback": "good", "score": 6}, "B": {"score": 8, "feedback": "trunc`,
			want: Scores{"A": 6, "B": 8},
		},
		{
			name: "regex fallback tolerates key order",
			raw:  `broken { "명확성": {"feedback": "좋음", "score": 9}, "간결성": {"score": 7}`,
			want: Scores{"명확성": 9, "간결성": 7},
		},
		{
			name: "regex fallback rounds float score",
			raw:  `{"A": {"score": 4.5}`,
			want: Scores{"A": 5},
		},
		{
			name: "unbalanced object amid garbage",
			raw:  `garbage {"clarity": {"score": 5, "note": "x"} more garbage`,
			want: Scores{"clarity": 5},
		},
		{
			name: "two criteria",
			raw:  `{"a": {"score": 4}, "b": {"score": 2}}`,
			want: Scores{"a": 4, "b": 2},
		},
		{
			name: "nothing usable",
			raw:  "The text is good.",
			want: Scores{},
		},
		{
			name: "empty input",
			raw:  "",
			want: Scores{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractScores(tt.raw)
			assert.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractScores_FencedMatchesUnfenced(t *testing.T) {
	obj := `{"A": {"score": 3, "feedback": "x"}, "B": {"score": 10, "feedback": "y"}}`
	for _, lang := range []string{"", "json", "JSON", "javascript"} {
		fenced := "```" + lang + "\n" + obj + "\n```"
		assert.Equal(t, ExtractScores(obj), ExtractScores(fenced), "lang=%q", lang)
	}
}

func TestAverage(t *testing.T) {
	assert.Equal(t, 0.0, Average(Scores{}))
	assert.Equal(t, 0.0, Average(nil))
	assert.Equal(t, 7.5, Average(Scores{"a": 7, "b": 8}))
	assert.Equal(t, 7.3, Average(Scores{"a": 7, "b": 7, "c": 8}))
	assert.Equal(t, 6.7, Average(Scores{"a": 6, "b": 7, "c": 7}))

	// Exact ties round to the even digit.
	assert.Equal(t, 4.2, Average(Scores{"a": 4, "b": 4, "c": 4, "d": 5}))
	assert.Equal(t, 3.2, Average(Scores{"a": 3, "b": 3, "c": 3, "d": 4}))
	assert.Equal(t, 4.8, Average(Scores{"a": 5, "b": 5, "c": 5, "d": 4}))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0.2, Round(0.25, 1))
	assert.Equal(t, 2.0, Round(2.5, 0))
	assert.Equal(t, -4.2, Round(-4.25, 1))
	assert.Equal(t, 1.23, Round(1.23456, 2))
}

func TestScoresKeys(t *testing.T) {
	s := Scores{"z": 1, "b": 2, "a": 3, "extra": 4}
	assert.Equal(t, []string{"b", "a", "extra", "z"}, s.Keys([]string{"b", "a", "missing"}))
	assert.Equal(t, []string{"a", "b", "extra", "z"}, s.Keys(nil))
}

func TestExtractFlat(t *testing.T) {
	got := ExtractFlat(`Result: {"preservation": 9, "no_distortion": 8, "tone_shift": 7.4, "note": "x"}`)
	assert.Equal(t, map[string]int{"preservation": 9, "no_distortion": 8, "tone_shift": 7}, got)

	assert.Empty(t, ExtractFlat("no object here"))
	assert.Empty(t, ExtractFlat("{not json}"))
}
