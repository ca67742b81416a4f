package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nibzard/taskboard/internal/task"
	"github.com/nibzard/taskboard/internal/view"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headingStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	doneStyle    = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	cursorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dueStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	badgeStyles = map[view.Badge]lipgloss.Style{
		view.BadgeDanger:    lipgloss.NewStyle().Padding(0, 1).Background(lipgloss.Color("1")).Foreground(lipgloss.Color("15")),
		view.BadgeWarning:   lipgloss.NewStyle().Padding(0, 1).Background(lipgloss.Color("3")).Foreground(lipgloss.Color("0")),
		view.BadgeSuccess:   lipgloss.NewStyle().Padding(0, 1).Background(lipgloss.Color("2")).Foreground(lipgloss.Color("15")),
		view.BadgeSecondary: lipgloss.NewStyle().Padding(0, 1).Background(lipgloss.Color("8")).Foreground(lipgloss.Color("15")),
	}
)

func (m *tuiModel) View() string {
	var b strings.Builder
	writeTitle(&b)

	if m.showHelp {
		writeHelp(&b)
		m.writeFooter(&b)
		return b.String()
	}

	switch {
	case m.loadErr != nil:
		b.WriteString(errorStyle.Render("Error loading tasks:") + "\n")
		b.WriteString("  " + m.loadErr.Error() + "\n\n")
	case !m.loaded:
		b.WriteString("Loading...\n\n")
	default:
		m.writeBoard(&b)
	}

	if m.mode == modeAdd {
		b.WriteString(headingStyle.Render("New task") + "\n\n")
		for i := range m.inputs {
			b.WriteString("  " + m.inputs[i].View() + "\n")
		}
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString(m.status + "\n\n")
	}
	m.writeFooter(&b)
	return b.String()
}

func (m *tuiModel) writeBoard(b *strings.Builder) {
	fmt.Fprintf(b, "%s  %s\n\n",
		headingStyle.Render(fmt.Sprintf("To do (%d)", len(m.board.Pending))),
		mutedStyle.Render("sorted by "+string(m.sort)))
	if len(m.board.Pending) == 0 {
		b.WriteString(mutedStyle.Render("  No pending tasks.") + "\n")
	}
	for i, t := range m.board.Pending {
		b.WriteString(m.formatRow(i, t) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(mutedStyle.Render(fmt.Sprintf("Completed (%d)", len(m.board.Completed))) + "\n\n")
	offset := len(m.board.Pending)
	for i, t := range m.board.Completed {
		b.WriteString(m.formatRow(offset+i, t) + "\n")
	}
	b.WriteString("\n")
}

func (m *tuiModel) formatRow(index int, t task.Task) string {
	pointer := "  "
	if index == m.cursor && m.mode == modeList {
		pointer = cursorStyle.Render("> ")
	}
	check := "[ ]"
	title := t.Title
	if t.IsCompleted {
		check = "[x]"
		title = doneStyle.Render(title)
	}

	line := fmt.Sprintf("%s%s %s %s", pointer, check, title, renderBadge(t))
	if t.IsCompleted {
		return line
	}
	if due := view.FormatDue(t); due != "" {
		line += " " + dueStyle.Render("due "+due)
	}
	if t.Description != "" {
		desc := t.Description
		if len(desc) > 60 {
			desc = desc[:57] + "..."
		}
		line += "\n        " + mutedStyle.Render(desc)
	}
	return line
}

func renderBadge(t task.Task) string {
	style, ok := badgeStyles[view.BadgeFor(t.Priority, t.IsCompleted)]
	if !ok {
		return string(t.Priority)
	}
	return style.Render(string(t.Priority))
}

func writeTitle(b *strings.Builder) {
	title := "Task Board"
	b.WriteString(titleStyle.Render(title) + "\n")
	b.WriteString(strings.Repeat("=", len(title)) + "\n\n")
}

func writeHelp(b *strings.Builder) {
	b.WriteString("Keyboard Shortcuts\n\n")
	b.WriteString("  q, ctrl+c      Quit\n")
	b.WriteString("  up/k, down/j   Move\n")
	b.WriteString("  a              Add a task\n")
	b.WriteString("  space, enter   Toggle complete\n")
	b.WriteString("  d              Delete (asks first)\n")
	b.WriteString("  s              Switch sort (priority/date)\n")
	b.WriteString("  r, F5          Refresh\n")
	b.WriteString("  h, ?           Toggle this help screen\n\n")
}

func (m *tuiModel) writeFooter(b *strings.Builder) {
	footer := "Press h for help | q to quit"
	if m.source != "" {
		footer += " | " + m.source
	}
	b.WriteString(mutedStyle.Render(footer) + "\n")
}
