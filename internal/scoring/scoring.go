// Package scoring pulls per-criterion scores out of model-written critiques.
//
// Models are asked for a JSON object but routinely wrap it in markdown fences,
// add prose around it, or emit something that does not quite parse. Extraction
// is therefore best effort: a strict JSON pass first, a regex pass second, and
// an empty result when neither finds anything. It never returns an error.
package scoring

import (
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Scores maps a criterion name, exactly as the model wrote it, to its score.
type Scores map[string]int

// Keys returns the criterion names in the given order first (only those
// present), then any remaining names sorted.
func (s Scores) Keys(order []string) []string {
	keys := make([]string, 0, len(s))
	seen := make(map[string]bool, len(s))
	for _, k := range order {
		if _, ok := s[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range s {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

var (
	leadingFenceRe  = regexp.MustCompile("^```[A-Za-z0-9_+-]*[ \t]*\n?")
	trailingFenceRe = regexp.MustCompile("\n?[ \t]*```$")

	// "name": { ... "score": 7 ... } with no nested braces in the inner object.
	scoreEntryRe = regexp.MustCompile(`"([^"]+)"\s*:\s*\{[^{}]*?"score"\s*:\s*(-?\d+(?:\.\d+)?)`)
)

// ExtractScores returns every criterion whose value carries a numeric score.
func ExtractScores(raw string) Scores {
	if scores := extractJSON(raw); len(scores) > 0 {
		return scores
	}
	return extractRegex(raw)
}

func extractJSON(raw string) Scores {
	obj, ok := widestObject(stripFences(raw))
	if !ok {
		return nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &top); err != nil {
		return nil
	}

	scores := make(Scores)
	for name, val := range top {
		var entry map[string]any
		if err := json.Unmarshal(val, &entry); err != nil {
			continue
		}
		if n, ok := entry["score"].(float64); ok {
			scores[name] = int(math.Round(n))
		}
	}
	return scores
}

func extractRegex(raw string) Scores {
	scores := make(Scores)
	for _, m := range scoreEntryRe.FindAllStringSubmatch(raw, -1) {
		n, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		if _, dup := scores[m[1]]; !dup {
			scores[m[1]] = int(math.Round(n))
		}
	}
	return scores
}

// stripFences removes one leading ```lang marker and one trailing ``` marker.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = leadingFenceRe.ReplaceAllString(s, "")
	s = trailingFenceRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// widestObject returns the span from the first '{' to the last '}'.
func widestObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// Average is the arithmetic mean rounded to one decimal, or 0 for no scores.
func Average(s Scores) float64 {
	if len(s) == 0 {
		return 0
	}
	sum := 0
	for _, v := range s {
		sum += v
	}
	return Round(float64(sum)/float64(len(s)), 1)
}

// Round rounds v to the given number of decimals. Exact ties go to the
// even digit, so 4.25 becomes 4.2 and 4.75 becomes 4.8.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.RoundToEven(v*p) / p
}

var flatObjectRe = regexp.MustCompile(`\{[^{}]+\}`)

// ExtractFlat parses the first brace-delimited object without nesting and
// keeps its numeric values. Used for single-line judge verdicts such as
// {"preservation": 9, "tone_shift": 7}.
func ExtractFlat(raw string) map[string]int {
	out := make(map[string]int)
	m := flatObjectRe.FindString(raw)
	if m == "" {
		return out
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(m), &obj); err != nil {
		return out
	}
	for k, v := range obj {
		if n, ok := v.(float64); ok {
			out[k] = int(math.Round(n))
		}
	}
	return out
}
