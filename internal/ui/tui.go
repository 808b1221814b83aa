// Package ui provides the terminal task list.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nibzard/todo-go/internal/task"
	"github.com/nibzard/todo-go/internal/viewstate"
)

// Controller is the view state the screen renders and sends intents to.
type Controller interface {
	Observe(ctx context.Context) <-chan viewstate.State
	Dialog() viewstate.Dialog
	OpenAddDialog()
	CancelAddDialog()
	EditDraft(text string)
	SubmitAdd(text string) bool
	ToggleSelection(t task.Model)
	Delete(t task.Model)
}

// TUIOption configures the TUI behavior.
type TUIOption func(*tuiConfig)

// tuiConfig holds TUI configuration.
type tuiConfig struct {
	altScreen bool
	input     io.Reader
	output    io.Writer
}

// WithAltScreen controls whether the TUI takes over the whole terminal.
func WithAltScreen(enabled bool) TUIOption {
	return func(c *tuiConfig) {
		c.altScreen = enabled
	}
}

// WithIO runs the TUI on the given streams instead of the terminal.
func WithIO(in io.Reader, out io.Writer) TUIOption {
	return func(c *tuiConfig) {
		c.input = in
		c.output = out
	}
}

// Run shows the task list until the user quits or ctx is cancelled.
func Run(ctx context.Context, ctrl Controller, opts ...TUIOption) error {
	c := &tuiConfig{altScreen: true}
	for _, opt := range opts {
		opt(c)
	}

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if c.output == nil {
		if !IsTTY(os.Stdout) {
			return fmt.Errorf("tui requires a TTY")
		}
	} else {
		programOpts = append(programOpts, tea.WithOutput(c.output))
	}
	if c.input != nil {
		programOpts = append(programOpts, tea.WithInput(c.input))
	}
	if c.altScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}

	model := newTUIModel(ctx, ctrl)
	defer model.stopObserving()

	program := tea.NewProgram(model, programOpts...)
	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

type tuiModel struct {
	ctx  context.Context
	ctrl Controller

	states        <-chan viewstate.State
	cancelObserve context.CancelFunc
	state         viewstate.State

	cursor   int
	offset   int
	width    int
	height   int
	showHelp bool
	spinning bool

	spinner spinner.Model
	input   textinput.Model
}

// stateMsg carries a state read from ch.
type stateMsg struct {
	state viewstate.State
	ch    <-chan viewstate.State
}

// streamClosedMsg reports that ch was closed.
type streamClosedMsg struct {
	ch <-chan viewstate.State
}

func newTUIModel(ctx context.Context, ctrl Controller) *tuiModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = cursorStyle

	ti := textinput.New()
	ti.Placeholder = "Task description"
	ti.CharLimit = 256
	ti.Width = dialogWidth - 8

	return &tuiModel{
		ctx:     ctx,
		ctrl:    ctrl,
		state:   viewstate.Loading{},
		spinner: s,
		input:   ti,
	}
}

func (m *tuiModel) Init() tea.Cmd {
	m.spinning = true
	return tea.Batch(m.observe(), m.spinner.Tick)
}

// observe starts a new observation, replacing any previous one.
func (m *tuiModel) observe() tea.Cmd {
	m.stopObserving()
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancelObserve = cancel
	m.states = m.ctrl.Observe(ctx)
	return waitForState(m.states)
}

func (m *tuiModel) stopObserving() {
	if m.cancelObserve != nil {
		m.cancelObserve()
		m.cancelObserve = nil
	}
	m.states = nil
}

func waitForState(ch <-chan viewstate.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return streamClosedMsg{ch: ch}
		}
		return stateMsg{state: s, ch: ch}
	}
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampCursor()
		return m, nil
	case stateMsg:
		if msg.ch != m.states {
			// from an observation that has since been replaced
			return m, nil
		}
		return m, tea.Batch(m.setState(msg.state), waitForState(msg.ch))
	case streamClosedMsg:
		if msg.ch == m.states {
			m.states = nil
		}
		return m, nil
	case spinner.TickMsg:
		if !m.spinning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.ResumeMsg:
		return m, m.observe()
	case tea.KeyMsg:
		if m.ctrl.Dialog().Open {
			return m.updateDialog(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

// setState applies a new screen state and restarts the spinner on Loading.
func (m *tuiModel) setState(s viewstate.State) tea.Cmd {
	m.state = s
	m.clampCursor()

	_, loading := s.(viewstate.Loading)
	if loading && !m.spinning {
		m.spinning = true
		return m.spinner.Tick
	}
	m.spinning = loading
	return nil
}

func (m *tuiModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	tasks := m.tasks()

	switch msg.String() {
	case "ctrl+c", "q":
		m.stopObserving()
		return m, tea.Quit
	case "ctrl+z":
		// Nothing observes while suspended; the subscription lingers.
		m.stopObserving()
		return m, tea.Suspend
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(tasks)-1 {
			m.cursor++
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = len(tasks) - 1
	case " ", "space", "enter", "x":
		if t, ok := m.current(); ok {
			m.ctrl.ToggleSelection(t)
		}
	case "d", "delete", "backspace":
		if t, ok := m.current(); ok {
			m.ctrl.Delete(t)
		}
	case "a", "+", "n":
		m.ctrl.OpenAddDialog()
		m.input.Reset()
		return m, m.input.Focus()
	case "?", "h":
		m.showHelp = !m.showHelp
	}
	m.clampCursor()
	return m, nil
}

func (m *tuiModel) updateDialog(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.stopObserving()
		return m, tea.Quit
	case "esc":
		m.ctrl.CancelAddDialog()
		m.input.Blur()
		m.input.Reset()
		return m, nil
	case "enter":
		if m.ctrl.SubmitAdd(m.input.Value()) {
			m.input.Blur()
			m.input.Reset()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.ctrl.EditDraft(m.input.Value())
	return m, cmd
}

func (m *tuiModel) tasks() []task.Model {
	if s, ok := m.state.(viewstate.Success); ok {
		return s.Tasks
	}
	return nil
}

func (m *tuiModel) current() (task.Model, bool) {
	tasks := m.tasks()
	if m.cursor < 0 || m.cursor >= len(tasks) {
		return task.Model{}, false
	}
	return tasks[m.cursor], true
}

func (m *tuiModel) clampCursor() {
	n := len(m.tasks())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}

	rows := m.listRows()
	if rows <= 0 {
		m.offset = 0
		return
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	if m.offset > n-rows {
		m.offset = n - rows
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// listRows is how many tasks fit on screen; 0 means no limit.
func (m *tuiModel) listRows() int {
	const chrome = 6 // title, blank, blank, fab, blank, help
	if m.height == 0 {
		return 0
	}
	rows := m.height - chrome
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m *tuiModel) View() string {
	var b strings.Builder
	writeTitle(&b)

	if m.showHelp {
		writeHelp(&b)
		writeFooter(&b)
		return b.String()
	}

	switch s := m.state.(type) {
	case viewstate.Loading:
		b.WriteString(m.spinner.View() + " Loading tasks...\n")
	case viewstate.Error:
		b.WriteString(errorStyle.Render("Could not load tasks") + "\n")
		b.WriteString("  " + s.Err.Error() + "\n\n")
		b.WriteString(mutedStyle.Render("  Restart todo to try again.") + "\n")
	case viewstate.Success:
		m.writeTasks(&b, s.Tasks)
	}

	b.WriteString("\n")
	b.WriteString(m.renderFAB())
	b.WriteString("\n\n")
	writeFooter(&b)

	if dialog := m.ctrl.Dialog(); dialog.Open {
		return m.overlayDialog(b.String())
	}
	return b.String()
}

func (m *tuiModel) writeTasks(b *strings.Builder, tasks []task.Model) {
	if len(tasks) == 0 {
		b.WriteString(mutedStyle.Render("No tasks yet. Press a to add one.") + "\n")
		return
	}

	end := len(tasks)
	if rows := m.listRows(); rows > 0 && m.offset+rows < end {
		end = m.offset + rows
	}
	for i := m.offset; i < end; i++ {
		b.WriteString(formatTask(tasks[i], i == m.cursor))
		b.WriteString("\n")
	}
}

func formatTask(t task.Model, selected bool) string {
	cursor := "  "
	if selected {
		cursor = cursorStyle.Render("> ")
	}
	box := "[ ]"
	text := t.Task
	if t.Selected {
		box = "[x]"
		text = doneStyle.Render(text)
	}
	return cursor + box + " " + text
}

func (m *tuiModel) renderFAB() string {
	fab := fabStyle.Render("+ Add task")
	if m.width <= 0 {
		return fab
	}
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, fab)
}

func (m *tuiModel) renderDialog() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Add a new task") + "\n\n")
	b.WriteString(mutedStyle.Render("Task description") + "\n")
	b.WriteString(m.input.View() + "\n\n")

	add := buttonStyle.Render("Add task")
	if task.IsBlank(m.input.Value()) {
		add = disabledButton.Render("Add task")
	}
	cancel := buttonStyle.Render("Cancel")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cancel, "  ", add) + "\n\n")
	b.WriteString(helpStyle.Render("enter: add • esc: cancel"))
	return dialogStyle.Render(b.String())
}

// overlayDialog centers the dialog on screen, or appends it when the
// screen size is not known yet.
func (m *tuiModel) overlayDialog(content string) string {
	dialog := m.renderDialog()
	if m.width <= 0 || m.height <= 0 {
		return content + "\n" + dialog + "\n"
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, dialog)
}

func writeTitle(b *strings.Builder) {
	b.WriteString(titleStyle.Render("Task list") + "\n\n")
}

func writeHelp(b *strings.Builder) {
	b.WriteString("Keyboard Shortcuts\n\n")
	b.WriteString("  up, k        Move up\n")
	b.WriteString("  down, j      Move down\n")
	b.WriteString("  space, x     Toggle done\n")
	b.WriteString("  d, delete    Delete task\n")
	b.WriteString("  a, +         Add task\n")
	b.WriteString("  ctrl+z       Suspend\n")
	b.WriteString("  ?, h         Toggle this help screen\n")
	b.WriteString("  q, ctrl+c    Quit\n\n")
}

func writeFooter(b *strings.Builder) {
	b.WriteString(helpStyle.Render("a add • space toggle • d delete • ? help • q quit") + "\n")
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
