package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/felixgeelhaar/pipectl/internal/errors"
	"github.com/felixgeelhaar/pipectl/internal/poller"
	"github.com/felixgeelhaar/pipectl/internal/ux"
	"github.com/felixgeelhaar/pipectl/pkg/pipeline/types"
)

type fakePanel struct {
	mu        sync.Mutex
	snap      poller.ViewState
	goals     []string
	ids       []string
	submitted []string
	fetches   int
	polled    []string
	stops     int

	submitErr error
	pollErr   error
}

func (f *fakePanel) Snapshot() poller.ViewState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakePanel) SetGoal(goal string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.goals = append(f.goals, goal)
}

func (f *fakePanel) SetTaskID(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, id)
}

func (f *fakePanel) Submit(ctx context.Context, goal string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, goal)
	if f.submitErr == nil {
		f.snap.TaskID = "t1"
	}
	return f.submitErr
}

func (f *fakePanel) FetchOnce(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	return nil
}

func (f *fakePanel) StartPolling(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polled = append(f.polled, id)
	if id == "" {
		return perrors.NewMissingTaskIDError()
	}
	return f.pollErr
}

func (f *fakePanel) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func newTestModel(t *testing.T, panel *fakePanel, opts ...ModelOption) Model {
	t.Helper()
	m := NewModel(context.Background(), panel, opts...)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 50})
	return updated.(Model)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func ctrlKey(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestNewModel_LoadsSnapshot(t *testing.T) {
	panel := &fakePanel{snap: poller.ViewState{Goal: "G", TaskID: "t9", Version: 3}}
	m := NewModel(context.Background(), panel)

	assert.Equal(t, "G", m.goal.Value())
	assert.Equal(t, "t9", m.taskID.Value())
	assert.Equal(t, uint64(3), m.State().Version)
	assert.Equal(t, "Initializing...", m.View())
}

func TestView_EmptyResult(t *testing.T) {
	m := newTestModel(t, &fakePanel{})

	view := m.View()
	assert.Contains(t, view, ux.EmptyResultText)
	assert.Contains(t, view, "idle")
}

func TestView_RendersTask(t *testing.T) {
	m := newTestModel(t, &fakePanel{})

	m, _ = update(t, m, StateMsg{State: poller.ViewState{
		TaskID: "t1",
		Status: types.StatusRunning,
		Task: &types.Task{
			Goal:      "X",
			Status:    types.StatusRunning,
			Plan:      []types.Step{{Instruction: "step1"}},
			Execution: []types.ExecutionTrace{{Instruction: "step1", Result: "r1"}},
		},
		Version: 1,
	}})

	view := m.View()
	assert.Contains(t, view, "running")
	assert.Contains(t, view, "1. step1")
	assert.Contains(t, view, "Step 1")
	assert.Contains(t, view, "Passed: undefined")
	assert.NotContains(t, view, ux.EmptyResultText)
	assert.Equal(t, "t1", m.taskID.Value())
}

func TestView_ShowsError(t *testing.T) {
	m := newTestModel(t, &fakePanel{})

	m, _ = update(t, m, StateMsg{State: poller.ViewState{
		Status:  types.StatusError,
		Err:     perrors.NewMissingTaskIDError(),
		Version: 1,
	}})

	view := m.View()
	assert.Contains(t, view, "cannot fetch task")
	assert.NotContains(t, view, "Suggestions", "the panel shows the one-line form")
}

func TestStateMsg_DropsOlderVersions(t *testing.T) {
	m := newTestModel(t, &fakePanel{})

	m, _ = update(t, m, StateMsg{State: poller.ViewState{Status: types.StatusExecuting, Version: 5}})
	m, _ = update(t, m, StateMsg{State: poller.ViewState{Status: types.StatusPlanning, Version: 4}})

	assert.Equal(t, types.StatusExecuting, m.State().Status)
}

func TestTyping_ReportsGoalAndTaskID(t *testing.T) {
	panel := &fakePanel{}
	m := newTestModel(t, panel)

	m = typeText(t, m, "ab")
	assert.Equal(t, []string{"a", "ab"}, panel.goals)

	m, _ = update(t, m, ctrlKey(tea.KeyTab))
	m = typeText(t, m, "t7")
	assert.Equal(t, []string{"t", "t7"}, panel.ids)

	// State updates leave the focused id field alone
	m, _ = update(t, m, StateMsg{State: poller.ViewState{TaskID: "t", Version: 1}})
	assert.Equal(t, "t7", m.taskID.Value())
}

func TestSubmit(t *testing.T) {
	panel := &fakePanel{}
	m := newTestModel(t, panel)
	m = typeText(t, m, "X")

	m, cmd := update(t, m, ctrlKey(tea.KeyCtrlS))
	require.NotNil(t, cmd)

	msg := cmd()
	assert.Equal(t, []string{"X"}, panel.submitted)

	m, _ = update(t, m, msg)
	assert.Equal(t, "t1", m.taskID.Value())
	assert.Empty(t, m.notice)
}

func TestFetchOnce(t *testing.T) {
	panel := &fakePanel{}
	m := newTestModel(t, panel)

	_, cmd := update(t, m, ctrlKey(tea.KeyCtrlF))
	require.NotNil(t, cmd)
	cmd()

	assert.Equal(t, 1, panel.fetches)
}

func TestPoll_MissingIDShowsNotice(t *testing.T) {
	panel := &fakePanel{}
	m := newTestModel(t, panel)

	m, cmd := update(t, m, ctrlKey(tea.KeyCtrlW))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	assert.Equal(t, []string{""}, panel.polled)
	assert.Contains(t, m.notice, "cannot fetch task")
}

func TestStartTaskIDPollsOnInit(t *testing.T) {
	panel := &fakePanel{}
	m := NewModel(context.Background(), panel, WithStartTaskID("t3"))

	cmd := m.pollCmd(m.startID)
	cmd()

	assert.Equal(t, []string{"t3"}, panel.polled)
	assert.NotNil(t, m.Init())
}

func TestStop(t *testing.T) {
	panel := &fakePanel{}
	m := newTestModel(t, panel)

	m, _ = update(t, m, ctrlKey(tea.KeyEsc))
	assert.Zero(t, panel.stops, "nothing to stop")

	m, _ = update(t, m, StateMsg{State: poller.ViewState{TaskID: "t1", Polling: true, Version: 1}})
	m, _ = update(t, m, ctrlKey(tea.KeyEsc))
	assert.Equal(t, 1, panel.stops)
	assert.Equal(t, "Polling stopped", m.notice)
}

func TestCopyTaskID(t *testing.T) {
	var copied string
	m := newTestModel(t, &fakePanel{}, WithClipboard(func(s string) error {
		copied = s
		return nil
	}))

	m, _ = update(t, m, ctrlKey(tea.KeyCtrlY))
	assert.Equal(t, "No task id to copy", m.notice)

	m, _ = update(t, m, StateMsg{State: poller.ViewState{TaskID: "t1", Version: 1}})
	m, _ = update(t, m, ctrlKey(tea.KeyCtrlY))
	assert.Equal(t, "t1", copied)
	assert.Equal(t, "Copied t1", m.notice)
}

func TestCopyTaskID_Failure(t *testing.T) {
	m := newTestModel(t, &fakePanel{}, WithClipboard(func(string) error {
		return errors.New("no clipboard")
	}))

	m, _ = update(t, m, StateMsg{State: poller.ViewState{TaskID: "t1", Version: 1}})
	m, _ = update(t, m, ctrlKey(tea.KeyCtrlY))
	assert.Equal(t, "Copy failed: no clipboard", m.notice)
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, &fakePanel{})

	m, cmd := update(t, m, ctrlKey(tea.KeyCtrlC))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Empty(t, m.View())
}

func TestHelpToggle(t *testing.T) {
	m := newTestModel(t, &fakePanel{})
	short := m.View()

	m, _ = update(t, m, ctrlKey(tea.KeyF1))
	assert.True(t, m.help.ShowAll)
	assert.Contains(t, m.View(), "poll task id")
	assert.NotContains(t, short, "poll task id")
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recordingSender) Send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func TestAdapter_ForwardsNewerSnapshots(t *testing.T) {
	a := NewAdapter()

	// Nothing attached yet
	a.Observe(poller.ViewState{Version: 1})

	s := &recordingSender{}
	a.Attach(s)

	a.Observe(poller.ViewState{Version: 2})
	a.Observe(poller.ViewState{Version: 2})
	a.Observe(poller.ViewState{Version: 1})
	a.Observe(poller.ViewState{Version: 3})

	assert.Eventually(t, func() bool { return s.count() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, s.count())
}
