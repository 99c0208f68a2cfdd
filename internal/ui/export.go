package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wardenhq/warden/internal/gateway"
)

// exportCmd writes the currently visible events to a timestamped JSON file in
// the working directory. The snapshot is taken here, on the update loop, so
// the written set matches exactly what the table showed.
func (m Model) exportCmd() tea.Cmd {
	events := m.visibleEvents()
	if len(events) == 0 {
		return func() tea.Msg {
			return exportDoneMsg{err: fmt.Errorf("no events to export")}
		}
	}

	path := fmt.Sprintf("warden_export_%s.json", time.Now().Format("20060102_150405"))

	return func() tea.Msg {
		count, err := writeEventExport(path, events)
		if err != nil {
			return exportDoneMsg{err: err}
		}
		return exportDoneMsg{path: path, count: count}
	}
}

// writeEventExport writes the raw payloads of events to path as one indented
// JSON array, verbatim per document.
func writeEventExport(path string, events []gateway.Event) (int, error) {
	raws := make([]json.RawMessage, len(events))
	for i, ev := range events {
		raws[i] = ev.Raw
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(raws); err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return 0, err
	}
	return len(raws), nil
}
