package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// selection is what the menu (or the flags) decide for one run.
type selection struct {
	Pattern  string
	Advanced bool
	Output   string
	Model    string
	Input    string
}

// menuItem represents a single configurable option in the TUI.
type menuItem struct {
	label   string
	value   string
	options []menuOption
	text    bool
	hint    string
	editing bool
	cursor  int // cursor within options when editing
}

type menuOption struct {
	label string
	value string
}

// menuState tracks which phase the TUI is in.
type menuState int

const (
	stateMenu menuState = iota
	stateEditing
)

// tuiModel is the Bubble Tea model for the interactive menu.
type tuiModel struct {
	items     []menuItem
	cursor    int
	state     menuState
	width     int
	err       error
	confirmed bool
	cancelled bool
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			MarginBottom(1)

	menuLabelStyle = lipgloss.NewStyle().
			Width(10).
			Align(lipgloss.Right).
			MarginRight(2)

	menuValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	menuValueDimStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#555555")).
				Italic(true)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	optionStyle = lipgloss.NewStyle().
			PaddingLeft(4)

	selectedOptionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#04B575")).
				Bold(true).
				PaddingLeft(2)

	buttonStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 3)

	buttonDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555")).
			Padding(0, 3)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true)

	headerBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#7D56F4")).
			MarginBottom(1)
)

const (
	idxPattern = iota
	idxMode
	idxOutput
	idxModel
	idxInput
	idxRun
)

var errCancelled = errors.New("cancelled")

func buildMenuItems(sel selection) []menuItem {
	items := []menuItem{
		{
			label: "Pattern",
			value: "1",
			options: []menuOption{
				{label: "1  Style Transfer", value: "1"},
				{label: "2  Reverse Neutralization", value: "2"},
				{label: "3  Content Optimization (Self-Refine)", value: "3"},
				{label: "all  Every pattern", value: "all"},
			},
		},
		{
			label: "Mode",
			value: "basic",
			options: []menuOption{
				{label: "Basic", value: "basic"},
				{label: "Advanced (more scenarios, judge metrics)", value: "advanced"},
			},
		},
		{
			label: "Output",
			value: "text",
			options: []menuOption{
				{label: "Text transcript", value: "text"},
				{label: "JSON result log", value: "json"},
			},
		},
		{label: "Model", value: sel.Model, text: true, hint: "(configured default)"},
		{label: "Input", value: sel.Input, text: true, hint: "(built-in scenarios; or text, file, PDF, URL)"},
		{label: "Run"},
	}
	if sel.Pattern != "" {
		items[idxPattern].value = strings.ToLower(sel.Pattern)
	}
	if sel.Advanced {
		items[idxMode].value = "advanced"
	}
	if sel.Output != "" {
		items[idxOutput].value = strings.ToLower(sel.Output)
	}
	for i := range items {
		for j, opt := range items[i].options {
			if opt.value == items[i].value {
				items[i].cursor = j
			}
		}
	}
	return items
}

func initialTUIModel(sel selection) tuiModel {
	return tuiModel{
		items:  buildMenuItems(sel),
		cursor: idxPattern,
		state:  stateMenu,
	}
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) selection() selection {
	return selection{
		Pattern:  m.items[idxPattern].value,
		Advanced: m.items[idxMode].value == "advanced",
		Output:   m.items[idxOutput].value,
		Model:    strings.TrimSpace(m.items[idxModel].value),
		Input:    strings.TrimSpace(m.items[idxInput].value),
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case stateMenu:
			return m.updateMenu(msg)
		case stateEditing:
			return m.updateEditing(msg)
		}
	}
	return m, nil
}

func (m tuiModel) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.cancelled = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}

	case "enter", " ":
		if m.cursor == idxRun {
			if m.items[idxPattern].value == "3" && strings.TrimSpace(m.items[idxInput].value) != "" {
				m.err = fmt.Errorf("Input only applies to patterns 1 and 2")
				return m, nil
			}
			m.confirmed = true
			return m, tea.Quit
		}
		m.state = stateEditing
		m.items[m.cursor].editing = true
		m.err = nil
	}
	return m, nil
}

func (m tuiModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	item := &m.items[m.cursor]

	if item.text {
		switch msg.String() {
		case "enter":
			item.editing = false
			m.state = stateMenu
			m.cursor++
		case "esc":
			item.editing = false
			m.state = stateMenu
		case "backspace":
			if r := []rune(item.value); len(r) > 0 {
				item.value = string(r[:len(r)-1])
			}
		case "ctrl+u":
			item.value = ""
		default:
			switch msg.Type {
			case tea.KeyRunes:
				item.value += string(msg.Runes)
			case tea.KeySpace:
				item.value += " "
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "enter", " ":
		if item.cursor >= 0 && item.cursor < len(item.options) {
			item.value = item.options[item.cursor].value
		}
		item.editing = false
		m.state = stateMenu
		m.cursor++

	case "esc":
		item.editing = false
		m.state = stateMenu

	case "up", "k":
		if item.cursor > 0 {
			item.cursor--
		}

	case "down", "j":
		if item.cursor < len(item.options)-1 {
			item.cursor++
		}
	}
	return m, nil
}

func (m tuiModel) View() string {
	var b strings.Builder

	b.WriteString(headerBorder.Render(titleStyle.Render("Prompt Patterns")))
	b.WriteString("\n")

	for i, item := range m.items {
		isActive := m.cursor == i

		if i == idxRun {
			b.WriteString("\n")
			if isActive {
				b.WriteString("  " + buttonStyle.Render(" Run "))
			} else {
				b.WriteString("  " + buttonDimStyle.Render(" Run "))
			}
			b.WriteString("\n")
			continue
		}

		cursor := "  "
		if isActive {
			cursor = cursorStyle.Render("> ")
		}

		var renderedValue string
		switch {
		case item.editing && item.text:
			renderedValue = menuValueStyle.Render(item.value + "_")
		case item.value == "":
			renderedValue = menuValueDimStyle.Render(item.hint)
		default:
			displayVal := item.value
			for _, opt := range item.options {
				if opt.value == item.value {
					displayVal = opt.label
					break
				}
			}
			renderedValue = menuValueStyle.Render(displayVal)
		}

		b.WriteString(cursor + menuLabelStyle.Render(item.label) + " " + renderedValue + "\n")

		if item.editing && !item.text {
			for j, opt := range item.options {
				if j == item.cursor {
					b.WriteString(selectedOptionStyle.Render("> "+opt.label) + "\n")
				} else {
					b.WriteString(optionStyle.Render("  "+opt.label) + "\n")
				}
			}
		}
	}

	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render("  Error: "+m.err.Error()) + "\n")
	}

	switch {
	case m.state == stateMenu:
		b.WriteString(helpStyle.Render("  j/k or arrows to navigate | enter to edit | q to quit"))
	case m.items[m.cursor].text:
		b.WriteString(helpStyle.Render("  type value | enter to confirm | esc to cancel | ctrl+u to clear"))
	default:
		b.WriteString(helpStyle.Render("  j/k or arrows to pick | enter to select | esc to cancel"))
	}
	b.WriteString("\n")

	return b.String()
}

// runInteractiveSetup opens the menu prefilled from sel and returns the
// user's choices.
func runInteractiveSetup(sel selection) (selection, error) {
	if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
		return sel, fmt.Errorf("no pattern given: pass 1, 2, 3 or all (the menu needs a terminal)")
	}

	p := tea.NewProgram(initialTUIModel(sel), tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return sel, fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tuiModel)
	if final.cancelled || !final.confirmed {
		return sel, errCancelled
	}
	return final.selection(), nil
}
