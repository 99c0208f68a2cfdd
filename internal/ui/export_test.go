package ui

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/wardenhq/warden/internal/gateway"
	"github.com/wardenhq/warden/internal/pipeline"
)

func exportFixture(t *testing.T, agent, desc string, sev gateway.Severity) gateway.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"agent": map[string]string{"name": agent},
		"rule":  map[string]string{"description": desc},
	})
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return gateway.Event{AgentName: agent, Description: desc, Severity: sev, Raw: raw}
}

func compactJSON(t *testing.T, raw []byte) string {
	t.Helper()
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		t.Fatalf("compact %q: %v", raw, err)
	}
	return buf.String()
}

func TestWriteEventExport_RoundTripsFilteredSelection(t *testing.T) {
	all := []gateway.Event{
		exportFixture(t, "web-01", "sshd brute force", gateway.SeverityHigh),
		exportFixture(t, "db-01", "package installed", gateway.SeverityLow),
		exportFixture(t, "web-02", "sshd login denied", gateway.SeverityHigh),
		exportFixture(t, "web-03", "sshd session opened", gateway.SeverityLow),
	}
	filter := pipeline.EventFilter{
		Severities: map[gateway.Severity]bool{gateway.SeverityHigh: true},
		Text:       "sshd",
	}
	selected := pipeline.FilterEvents(all, filter)
	if len(selected) != 2 {
		t.Fatalf("fixture filter selected %d events, want 2", len(selected))
	}

	path := filepath.Join(t.TempDir(), "export.json")
	count, err := writeEventExport(path, selected)
	if err != nil {
		t.Fatalf("writeEventExport: %v", err)
	}
	if count != len(selected) {
		t.Fatalf("count = %d, want %d", count, len(selected))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var got []json.RawMessage
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(got) != len(selected) {
		t.Fatalf("exported %d documents, want %d", len(got), len(selected))
	}
	for i := range got {
		want := compactJSON(t, selected[i].Raw)
		if compactJSON(t, got[i]) != want {
			t.Errorf("document %d = %s, want %s", i, got[i], want)
		}
	}
}

func TestWriteEventExport_EmptySelection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.json")
	count, err := writeEventExport(path, nil)
	if err != nil {
		t.Fatalf("writeEventExport: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d", count)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var got []json.RawMessage
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("exported %d documents, want 0", len(got))
	}
}
