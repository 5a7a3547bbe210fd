package tui

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/pipectl/internal/poller"
	"github.com/felixgeelhaar/pipectl/internal/ux"
	"github.com/felixgeelhaar/pipectl/pkg/pipeline/types"
)

// renderMain renders the whole panel
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Pipeline Control Panel"))
	b.WriteString("\n")

	b.WriteString(m.styles.Label.Render("Goal"))
	b.WriteString("\n")
	b.WriteString(m.goal.View())
	b.WriteString("\n\n")

	b.WriteString(m.styles.Label.Render("Task ID "))
	b.WriteString(m.taskID.View())
	b.WriteString("\n\n")

	b.WriteString(m.renderStatusLine())
	b.WriteString("\n")

	if msg := m.state.ErrorMessage(); msg != "" {
		b.WriteString(m.styles.Error.Render("✗ " + msg))
	}
	b.WriteString("\n")

	b.WriteString(m.styles.Border.Render(m.result.View()))
	b.WriteString("\n")

	if m.notice != "" {
		b.WriteString(m.styles.Notice.Render(m.notice))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

// renderStatusLine shows the phase, the spinner while busy, and fetch stats
func (m Model) renderStatusLine() string {
	phase := m.state.Phase()

	icon := "•"
	style := m.styles.Status
	switch {
	case m.busy():
		icon = m.spinner.View()
	case phase == types.StatusDone:
		icon = "✓"
		style = m.styles.Success
	case phase == types.StatusError:
		icon = "✗"
		style = m.styles.Error
	}

	line := fmt.Sprintf("%s %s", icon, style.Render(phase.String()))
	if m.state.Polling {
		line += m.styles.Muted.Render(" · polling")
	}
	if m.state.Fetches > 0 {
		line += m.styles.Muted.Render(fmt.Sprintf(" · %d fetches, last %s",
			m.state.Fetches, m.state.LastFetch.Format("15:04:05")))
	}
	return line
}

// renderResult renders the task snapshot, or the empty text before one
// was fetched
func renderResult(v poller.ViewState, color bool) string {
	if !v.HasResult() {
		return ux.EmptyResultText
	}
	return ux.NewTaskReport(v).Body(color)
}
