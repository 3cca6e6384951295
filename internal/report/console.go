package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Console writes the human-readable run transcript. Colors are only
// emitted when out is a color-capable terminal.
type Console struct {
	out      io.Writer
	header   lipgloss.Style
	scenario lipgloss.Style
	label    lipgloss.Style
	dim      lipgloss.Style
}

// NewConsole writes to out. Pass io.Discard for JSON mode.
func NewConsole(out io.Writer) *Console {
	r := lipgloss.NewRenderer(out)
	return &Console{
		out:      out,
		header:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		scenario: r.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		label:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		dim:      r.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// Header prints a pattern title between "=" rules.
func (c *Console) Header(title string, advanced bool) {
	if advanced {
		title += " [ADVANCED]"
	}
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(c.out, rule)
	fmt.Fprintln(c.out, c.header.Render(title))
	fmt.Fprintln(c.out, rule)
}

// Banner prints a "#" framed line, used between models in compare mode.
func (c *Console) Banner(text string) {
	rule := strings.Repeat("#", 60)
	fmt.Fprintf(c.out, "\n%s\n  %s\n%s\n\n", rule, text, rule)
}

// Scenario prints the scenario name and its input.
func (c *Console) Scenario(name, input string) {
	fmt.Fprintf(c.out, "\n%s\n", strings.Repeat("~", 40))
	fmt.Fprintf(c.out, "  Scenario: %s\n", c.scenario.Render(name))
	if input != "" {
		fmt.Fprintf(c.out, "  Input: %s\n", input)
	}
	fmt.Fprintln(c.out)
}

// Result prints a labeled output block, truncated to limit runes when limit > 0.
func (c *Console) Result(label, text string, limit int) {
	fmt.Fprintf(c.out, "  [%s]\n", c.label.Render(label))
	fmt.Fprintf(c.out, "   %s\n\n", Truncate(text, limit))
}

// Table prints a titled ASCII table.
func (c *Console) Table(title string, headers []string, rows [][]string) {
	if title != "" {
		fmt.Fprintf(c.out, "\n  %s\n", title)
	}
	for _, line := range RenderTable(headers, rows) {
		fmt.Fprintln(c.out, line)
	}
}

// Line prints a formatted line.
func (c *Console) Line(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

// Note prints a dimmed line.
func (c *Console) Note(format string, args ...any) {
	fmt.Fprintln(c.out, c.dim.Render(fmt.Sprintf(format, args...)))
}
