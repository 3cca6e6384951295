package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/apresai/promptpatterns/internal/patterns"
	"github.com/apresai/promptpatterns/internal/report"
)

func printCatalogs(w io.Writer) {
	tier := func(advanced bool) string {
		if advanced {
			return "advanced"
		}
		return "basic"
	}

	var rows [][]string
	for _, s := range patterns.Styles {
		rows = append(rows, []string{s.Key, s.Name, tier(s.Advanced)})
	}
	printSection(w, "Styles (pattern 1)", []string{"Key", "Name", "Mode"}, rows)

	rows = nil
	for _, p := range patterns.Personas {
		rows = append(rows, []string{p.Key, p.Name, tier(p.Advanced)})
	}
	printSection(w, "Personas (pattern 2)", []string{"Key", "Name", "Mode"}, rows)

	rows = nil
	for _, advanced := range []bool{false, true} {
		for _, key := range patterns.TaskKeys(advanced) {
			t, err := patterns.TaskByKey(key)
			if err != nil {
				continue
			}
			rows = append(rows, []string{key, t.Name, fmt.Sprint(t.Rounds), strings.Join(t.CriterionNames, ", ")})
		}
	}
	printSection(w, "Refinement tasks (pattern 3)", []string{"Key", "Name", "Rounds", "Criteria"}, rows)
	fmt.Fprintln(w)
}

func printSection(w io.Writer, title string, headers []string, rows [][]string) {
	fmt.Fprintf(w, "\n  %s\n", title)
	for _, line := range report.RenderTable(headers, rows) {
		fmt.Fprintln(w, line)
	}
}
