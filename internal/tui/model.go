package tui

import (
	"context"
	"errors"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/pipectl/internal/poller"
	"github.com/felixgeelhaar/pipectl/pkg/pipeline/types"
)

// Panel is the controller behind the control panel.
// *poller.Controller satisfies it.
type Panel interface {
	Snapshot() poller.ViewState
	SetGoal(goal string)
	SetTaskID(taskID string)
	Submit(ctx context.Context, goal string) error
	FetchOnce(ctx context.Context) error
	StartPolling(taskID string) error
	Stop()
}

type focusField int

const (
	focusGoal focusField = iota
	focusTaskID
)

// Lines taken by everything except the result viewport
const chromeHeight = 14

// Model is the bubbletea control panel. It renders the controller's
// ViewState and forwards user actions to the controller; it never
// mutates task state itself.
type Model struct {
	ctx   context.Context
	panel Panel
	state poller.ViewState

	// startID is polled as soon as the program starts, when set
	startID string

	goal     textarea.Model
	taskID   textinput.Model
	result   viewport.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap
	focus    focusField
	copyText func(string) error

	notice   string
	color    bool
	width    int
	height   int
	ready    bool
	quitting bool

	styles Styles
}

// Styles contains lipgloss styles for the TUI
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Status  lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Muted   lipgloss.Style
	Border  lipgloss.Style
	Notice  lipgloss.Style
}

// DefaultStyles returns the default lipgloss styles
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")). // Purple
			MarginBottom(1),
		Label: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("241")),
		Status: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")), // Cyan
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")), // Red
		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("46")), // Green
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")), // Gray
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1),
		Notice: lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("226")), // Yellow
	}
}

// ModelOption configures a Model
type ModelOption func(*Model)

// WithStartTaskID polls taskID as soon as the program starts
func WithStartTaskID(taskID string) ModelOption {
	return func(m *Model) {
		m.startID = taskID
	}
}

// WithColor enables lipgloss colors in the result pane
func WithColor(color bool) ModelOption {
	return func(m *Model) {
		m.color = color
	}
}

// WithClipboard replaces the function used by copy-id
func WithClipboard(fn func(string) error) ModelOption {
	return func(m *Model) {
		if fn != nil {
			m.copyText = fn
		}
	}
}

// NewModel creates a control panel driving panel
func NewModel(ctx context.Context, panel Panel, opts ...ModelOption) Model {
	goal := textarea.New()
	goal.Placeholder = "Describe what the pipeline should accomplish..."
	goal.ShowLineNumbers = false
	goal.SetHeight(3)
	goal.CharLimit = 0
	goal.Focus()

	taskID := textinput.New()
	taskID.Placeholder = "task id"
	taskID.Prompt = ""

	spin := spinner.New(spinner.WithSpinner(spinner.Dot))

	vp := viewport.New(80, 10)
	vp.KeyMap = viewport.KeyMap{
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
	}

	m := Model{
		ctx:      ctx,
		panel:    panel,
		goal:     goal,
		taskID:   taskID,
		result:   vp,
		spinner:  spin,
		help:     help.New(),
		keys:     defaultKeyMap(),
		copyText: clipboard.WriteAll,
		styles:   DefaultStyles(),
	}
	for _, opt := range opts {
		opt(&m)
	}

	m.state = panel.Snapshot()
	m.goal.SetValue(m.state.Goal)
	m.taskID.SetValue(m.state.TaskID)
	m.refreshResult()
	return m
}

// State returns the snapshot the model currently renders
func (m Model) State() poller.ViewState {
	return m.state
}

// Init initializes the TUI model (required by Bubble Tea)
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, m.spinner.Tick}
	if m.startID != "" {
		cmds = append(cmds, m.pollCmd(m.startID))
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model state (required by Bubble Tea)
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case StateMsg:
		if !msg.State.Newer(m.state) {
			return m, nil
		}
		m.applyState(msg.State)
		return m, nil

	case actionMsg:
		return m.handleAction(msg), nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.updateInputs(msg)
}

// View renders the TUI (required by Bubble Tea)
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Initializing..."
	}
	return m.renderMain()
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		m.notice = ""
		return m, m.submitCmd(m.goal.Value())

	case key.Matches(msg, m.keys.Fetch):
		m.notice = ""
		return m, m.fetchCmd()

	case key.Matches(msg, m.keys.Poll):
		m.notice = ""
		return m, m.pollCmd(m.state.TaskID)

	case key.Matches(msg, m.keys.Stop):
		if m.state.Polling {
			m.panel.Stop()
			m.notice = "Polling stopped"
		}
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		m.notice = m.copyTaskID()
		return m, nil

	case key.Matches(msg, m.keys.Focus):
		return m, m.toggleFocus()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
		return m, nil

	case key.Matches(msg, m.keys.PageUp, m.keys.PageDown):
		var cmd tea.Cmd
		m.result, cmd = m.result.Update(msg)
		return m, cmd
	}

	return m.updateInputs(msg)
}

// updateInputs forwards msg to the focused field and reports edits to
// the controller.
func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.focus {
	case focusGoal:
		before := m.goal.Value()
		m.goal, cmd = m.goal.Update(msg)
		if after := m.goal.Value(); after != before {
			m.panel.SetGoal(after)
		}
	case focusTaskID:
		before := m.taskID.Value()
		m.taskID, cmd = m.taskID.Update(msg)
		if after := m.taskID.Value(); after != before {
			m.panel.SetTaskID(after)
		}
	}

	return m, cmd
}

func (m *Model) toggleFocus() tea.Cmd {
	if m.focus == focusGoal {
		m.focus = focusTaskID
		m.goal.Blur()
		return m.taskID.Focus()
	}

	m.focus = focusGoal
	m.taskID.Blur()
	m.taskID.SetValue(m.state.TaskID)
	return m.goal.Focus()
}

func (m *Model) applyState(v poller.ViewState) {
	m.state = v
	// The focused field belongs to the user
	if m.focus != focusTaskID && m.taskID.Value() != v.TaskID {
		m.taskID.SetValue(v.TaskID)
	}
	m.refreshResult()
}

func (m Model) handleAction(msg actionMsg) Model {
	if msg.err == nil || errors.Is(msg.err, poller.ErrSuperseded) {
		if msg.action == actionSubmit {
			m.taskID.SetValue(m.panel.Snapshot().TaskID)
		}
		return m
	}
	if errors.Is(msg.err, poller.ErrClosed) {
		return m
	}

	// Submit and fetch failures already reach the view through the
	// state; starting a poll without an id does not.
	if msg.action == actionPoll {
		m.notice = poller.ViewState{Err: msg.err}.ErrorMessage()
	}
	return m
}

func (m *Model) copyTaskID() string {
	if m.state.TaskID == "" {
		return "No task id to copy"
	}
	if err := m.copyText(m.state.TaskID); err != nil {
		return "Copy failed: " + err.Error()
	}
	return "Copied " + m.state.TaskID
}

func (m *Model) resize() {
	if !m.ready {
		return
	}
	inner := m.width - 4
	if inner < 20 {
		inner = 20
	}
	m.goal.SetWidth(inner)
	m.taskID.Width = inner

	height := m.height - chromeHeight
	if m.help.ShowAll {
		height -= 3
	}
	if height < 3 {
		height = 3
	}
	m.result.Width = inner
	m.result.Height = height
	m.help.Width = m.width
	m.refreshResult()
}

func (m *Model) refreshResult() {
	m.result.SetContent(renderResult(m.state, m.color))
}

func (m Model) busy() bool {
	return m.state.Polling || m.state.Status == types.StatusCreating
}

type actionKind int

const (
	actionSubmit actionKind = iota
	actionFetch
	actionPoll
)

// actionMsg reports a finished controller call
type actionMsg struct {
	action actionKind
	err    error
}

func (m Model) submitCmd(goal string) tea.Cmd {
	ctx, panel := m.ctx, m.panel
	return func() tea.Msg {
		return actionMsg{action: actionSubmit, err: panel.Submit(ctx, goal)}
	}
}

func (m Model) fetchCmd() tea.Cmd {
	ctx, panel := m.ctx, m.panel
	return func() tea.Msg {
		return actionMsg{action: actionFetch, err: panel.FetchOnce(ctx)}
	}
}

func (m Model) pollCmd(taskID string) tea.Cmd {
	panel := m.panel
	return func() tea.Msg {
		return actionMsg{action: actionPoll, err: panel.StartPolling(taskID)}
	}
}

// StateMsg carries a controller snapshot into the program
type StateMsg struct {
	State poller.ViewState
}
