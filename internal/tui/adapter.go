package tui

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/pipectl/internal/poller"
)

// sender is the part of *tea.Program the adapter needs
type sender interface {
	Send(msg tea.Msg)
}

// Adapter bridges controller observer callbacks into a running program.
// Register Observe with poller.WithObserver before the program exists,
// then Attach the program.
type Adapter struct {
	mu      sync.Mutex
	program sender
	last    uint64
}

// NewAdapter creates a new TUI adapter
func NewAdapter() *Adapter {
	return &Adapter{}
}

// Attach sets the program that receives state messages
func (a *Adapter) Attach(p sender) {
	a.mu.Lock()
	a.program = p
	a.mu.Unlock()
}

// Observe forwards a snapshot as a StateMsg. Snapshots older than one
// already forwarded are dropped. Delivery is asynchronous because the
// controller may be called from inside the program's update loop.
func (a *Adapter) Observe(v poller.ViewState) {
	a.mu.Lock()
	if v.Version <= a.last || a.program == nil {
		a.mu.Unlock()
		return
	}
	a.last = v.Version
	p := a.program
	a.mu.Unlock()

	go p.Send(StateMsg{State: v})
}

// Run starts the program in the alternate screen and blocks until the
// user quits or ctx is cancelled.
func Run(ctx context.Context, m Model, a *Adapter, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(m, opts...)
	a.Attach(p)

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}
