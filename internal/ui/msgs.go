package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wardenhq/warden/internal/bulk"
	"github.com/wardenhq/warden/internal/store"
)

// tickMsg drives the once-per-second frame housekeeping: notification expiry
// and the dashboard poll countdown.
type tickMsg time.Time

// fetchResultMsg carries one completed gateway fetch back to the store owner.
// Messages are applied in arrival order; the per-key sequence number inside
// the FetchResult guards against out-of-order completion. requestID echoes
// the FetchRequest that issued the fetch so the inflight set stays honest.
type fetchResultMsg struct {
	requestID string
	result    store.FetchResult
}

// bulkDoneMsg reports a completed bulk run with its per-item outcomes.
type bulkDoneMsg struct {
	result bulk.Result
}

// exportDoneMsg reports a finished event export.
type exportDoneMsg struct {
	path  string
	count int
	err   error
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
