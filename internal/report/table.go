package report

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// asciiBorder draws +---+ rules and | column separators.
var asciiBorder = lipgloss.Border{
	Top:          "-",
	Bottom:       "-",
	Left:         "|",
	Right:        "|",
	TopLeft:      "+",
	TopRight:     "+",
	BottomLeft:   "+",
	BottomRight:  "+",
	MiddleLeft:   "+",
	MiddleRight:  "+",
	Middle:       "+",
	MiddleTop:    "+",
	MiddleBottom: "+",
}

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// RenderTable lays out rows as a +-...-+ bordered ASCII table. Column widths
// use terminal cell width so Hangul columns line up.
func RenderTable(headers []string, rows [][]string) []string {
	t := table.New().
		Border(asciiBorder).
		BorderHeader(true).
		BorderRow(false).
		StyleFunc(func(row, col int) lipgloss.Style { return cellStyle }).
		Headers(headers...)
	for _, row := range rows {
		cells := make([]string, len(headers))
		copy(cells, row)
		t.Row(cells...)
	}
	return strings.Split(t.Render(), "\n")
}

// Truncate shortens s to n runes and appends "..." when it was longer.
// n <= 0 disables truncation.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// Clip shortens s to at most n runes without a marker, for table cells.
func Clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
