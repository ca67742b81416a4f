package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nibzard/taskboard/internal/task"
	"github.com/nibzard/taskboard/internal/view"
)

type mode int

const (
	modeList mode = iota
	modeAdd
	modeConfirm
)

// Draft form fields, in focus order.
const (
	fieldTitle = iota
	fieldDescription
	fieldPriority
	fieldDueDate
	fieldCount
)

type tasksMsg struct {
	tasks []task.Task
	err   error
}

// mutationMsg reports a finished create, toggle or delete.
type mutationMsg struct {
	status string
	err    error
	// draft is set when the mutation was a create from the draft form.
	draft bool
}

type tuiModel struct {
	ctx    context.Context
	api    TaskAPI
	source string

	sort     view.SortMode
	board    view.Board
	rows     []task.Task
	loaded   bool
	loadErr  error
	cursor   int
	mode     mode
	inputs   []textinput.Model
	focus    int
	pending  *task.Task
	status   string
	showHelp bool
	busy     bool
}

func newModel(ctx context.Context, api TaskAPI, opts ...TUIOption) *tuiModel {
	c := &tuiConfig{sort: view.DefaultSort}
	for _, opt := range opts {
		opt(c)
	}
	return &tuiModel{
		ctx:    ctx,
		api:    api,
		source: c.source,
		sort:   c.sort,
		inputs: newDraftInputs(),
		status: "Press a to add, space to toggle, d to delete, s to change sort.",
	}
}

func newDraftInputs() []textinput.Model {
	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		ti := textinput.New()
		ti.CharLimit = 256
		ti.Width = 40
		switch i {
		case fieldTitle:
			ti.Prompt = "Title:       "
			ti.Placeholder = "required"
		case fieldDescription:
			ti.Prompt = "Description: "
		case fieldPriority:
			ti.Prompt = "Priority:    "
			ti.Placeholder = "low, medium or high"
			ti.CharLimit = 16
		case fieldDueDate:
			ti.Prompt = "Due date:    "
			ti.Placeholder = "YYYY-MM-DD"
			ti.CharLimit = 10
		}
		inputs[i] = ti
	}
	return inputs
}

func (m *tuiModel) Init() tea.Cmd {
	return m.fetch()
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tasksMsg:
		m.busy = false
		if msg.err != nil {
			m.loadErr = msg.err
			return m, nil
		}
		m.loadErr = nil
		m.loaded = true
		m.setTasks(msg.tasks)
		return m, nil
	case mutationMsg:
		m.busy = false
		if msg.err != nil {
			m.status = msg.err.Error()
		} else {
			m.status = msg.status
		}
		// Refetch after every mutation, successful or not.
		if msg.draft {
			if msg.err == nil {
				m.resetDraft()
				return m, m.fetch()
			}
			// Keep what was typed so it can be fixed and resubmitted.
			m.mode = modeAdd
			return m, tea.Batch(m.focusField(fieldTitle), m.fetch())
		}
		return m, m.fetch()
	case tea.WindowSizeMsg:
		for i := range m.inputs {
			m.inputs[i].Width = max(msg.Width-20, 10)
		}
		return m, nil
	case tea.KeyMsg:
		switch m.mode {
		case modeAdd:
			return m.updateAddMode(msg)
		case modeConfirm:
			return m.updateConfirmMode(msg.String())
		default:
			return m.updateListMode(msg.String())
		}
	}
	return m, nil
}

func (m *tuiModel) updateListMode(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case "h", "?":
		m.showHelp = !m.showHelp
	case "r", "f5":
		m.status = "Refreshing..."
		return m, m.fetch()
	case "s":
		m.sort = m.sort.Next()
		m.setTasks(m.rows)
		m.status = "Sorted by " + string(m.sort)
	case "a":
		m.mode = modeAdd
		m.resetDraft()
		m.status = "New task: tab moves between fields, enter saves, esc cancels."
		return m, m.focusField(fieldTitle)
	case " ", "enter", "x":
		t, ok := m.selected()
		if !ok || m.busy {
			return m, nil
		}
		return m, m.toggle(t)
	case "d", "delete":
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.pending = &t
		m.mode = modeConfirm
		m.status = fmt.Sprintf("Delete %q? y/n", t.Title)
	}
	return m, nil
}

func (m *tuiModel) updateAddMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.mode = modeList
		m.resetDraft()
		m.status = "Cancelled"
		return m, nil
	case "tab", "down":
		return m, m.focusField((m.focus + 1) % fieldCount)
	case "shift+tab", "up":
		return m, m.focusField((m.focus + fieldCount - 1) % fieldCount)
	case "enter":
		draft := m.draft()
		if _, _, err := draft.Validate(); err != nil {
			// Rejected locally; nothing is sent.
			m.status = err.Error()
			return m, nil
		}
		m.mode = modeList
		m.busy = true
		return m, m.create(draft)
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *tuiModel) updateConfirmMode(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "y", "Y":
		if m.pending == nil {
			m.mode = modeList
			m.status = "Nothing to delete"
			return m, nil
		}
		id := m.pending.ID
		m.pending = nil
		m.mode = modeList
		m.busy = true
		return m, m.remove(id)
	case "n", "N", "esc", "q":
		m.pending = nil
		m.mode = modeList
		m.status = "Delete cancelled"
	case "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

// setTasks recomputes the board and the flattened row order.
func (m *tuiModel) setTasks(tasks []task.Task) {
	m.board = view.NewBoard(tasks, m.sort)
	rows := make([]task.Task, 0, len(m.board.Pending)+len(m.board.Completed))
	rows = append(rows, m.board.Pending...)
	rows = append(rows, m.board.Completed...)
	m.rows = rows
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *tuiModel) selected() (task.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return task.Task{}, false
	}
	return m.rows[m.cursor], true
}

func (m *tuiModel) draft() task.Draft {
	return task.Draft{
		Title:       strings.TrimSpace(m.inputs[fieldTitle].Value()),
		Description: m.inputs[fieldDescription].Value(),
		Priority:    strings.TrimSpace(m.inputs[fieldPriority].Value()),
		DueDate:     strings.TrimSpace(m.inputs[fieldDueDate].Value()),
	}
}

func (m *tuiModel) resetDraft() {
	for i := range m.inputs {
		m.inputs[i].SetValue("")
		m.inputs[i].Blur()
	}
	m.focus = fieldTitle
}

func (m *tuiModel) focusField(i int) tea.Cmd {
	m.inputs[m.focus].Blur()
	m.focus = i
	return m.inputs[i].Focus()
}

func (m *tuiModel) fetch() tea.Cmd {
	ctx, api := m.ctx, m.api
	return func() tea.Msg {
		tasks, err := api.List(ctx)
		return tasksMsg{tasks: tasks, err: err}
	}
}

func (m *tuiModel) create(draft task.Draft) tea.Cmd {
	ctx, api := m.ctx, m.api
	return func() tea.Msg {
		created, err := api.Create(ctx, draft)
		if err != nil {
			return mutationMsg{err: fmt.Errorf("add failed: %w", err), draft: true}
		}
		return mutationMsg{status: fmt.Sprintf("Added %q", created.Title), draft: true}
	}
}

func (m *tuiModel) toggle(t task.Task) tea.Cmd {
	ctx, api := m.ctx, m.api
	flipped := !t.IsCompleted
	return func() tea.Msg {
		if _, err := api.Update(ctx, t.ID, task.Patch{IsCompleted: &flipped}); err != nil {
			return mutationMsg{err: fmt.Errorf("toggle failed: %w", err)}
		}
		if flipped {
			return mutationMsg{status: fmt.Sprintf("Completed %q", t.Title)}
		}
		return mutationMsg{status: fmt.Sprintf("Reopened %q", t.Title)}
	}
}

func (m *tuiModel) remove(id string) tea.Cmd {
	ctx, api := m.ctx, m.api
	return func() tea.Msg {
		if err := api.Delete(ctx, id); err != nil {
			return mutationMsg{err: fmt.Errorf("delete failed: %w", err)}
		}
		return mutationMsg{status: "Deleted task"}
	}
}
