package pipeline

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/wardenhq/warden/internal/gateway"
)

func TestParseAgentFilter_Terms(t *testing.T) {
	web := agent("001", "web-01", "10.0.0.1", gateway.StatusActive, "Ubuntu 22.04")
	db := agent("002", "db-01", "10.0.1.9", gateway.StatusDisconnected, "CentOS 7")

	tests := []struct {
		query    string
		matchWeb bool
		matchDB  bool
	}{
		{"", true, true},
		{"web", true, false},
		{"10.0", true, true},
		{"name:db", false, true},
		{"n:web", true, false},
		{"id:002", false, true},
		{"ip:10.0.1", false, true},
		{"st:active", true, false},
		{"status:disconnected", false, true},
		{"os:ubuntu", true, false},
		{"os:UBUNTU", true, false},
		{"st:active os:centos", false, false}, // terms AND together
		{"name:web st:active", true, false},
		{"weird:web-01", false, false}, // unknown qualifier stays one bare token
	}
	for _, tt := range tests {
		f := ParseAgentFilter(tt.query)
		if got := f.Matches(web); got != tt.matchWeb {
			t.Fatalf("filter %q on web-01 = %v, want %v", tt.query, got, tt.matchWeb)
		}
		if got := f.Matches(db); got != tt.matchDB {
			t.Fatalf("filter %q on db-01 = %v, want %v", tt.query, got, tt.matchDB)
		}
	}
}

func TestParseAgentFilter_StatusIsExact(t *testing.T) {
	pending := agent("001", "a", "", gateway.StatusPending, "")
	if ParseAgentFilter("st:pend").Matches(pending) {
		t.Fatalf("status term should be an equality test, not substring")
	}
	if !ParseAgentFilter("st:pending").Matches(pending) {
		t.Fatalf("st:pending should match a pending agent")
	}
}

func TestAgentFilter_RawRoundTrip(t *testing.T) {
	f := ParseAgentFilter("name:web st:active")
	if f.Raw() != "name:web st:active" {
		t.Fatalf("Raw = %q", f.Raw())
	}
	if f.IsZero() {
		t.Fatalf("IsZero = true for a populated filter")
	}
	if !ParseAgentFilter("   ").IsZero() {
		t.Fatalf("whitespace query should parse to a zero filter")
	}
}

func event(name, desc string, sev gateway.Severity) gateway.Event {
	return gateway.Event{
		Timestamp:   time.Now(),
		Severity:    sev,
		AgentName:   name,
		Description: desc,
		Raw:         json.RawMessage(`{}`),
	}
}

func TestFilterEvents_SeverityAndText(t *testing.T) {
	events := []gateway.Event{
		event("web-01", "sshd: failed password", gateway.SeverityHigh),
		event("db-01", "integrity checksum changed", gateway.SeverityMedium),
		event("web-02", "sshd: session opened", gateway.SeverityLow),
	}

	got := FilterEvents(events, EventFilter{Text: "sshd"})
	if len(got) != 2 || got[0].AgentName != "web-01" || got[1].AgentName != "web-02" {
		t.Fatalf("text filter kept %v", got)
	}

	got = FilterEvents(events, EventFilter{Severities: map[gateway.Severity]bool{gateway.SeverityHigh: true}})
	if len(got) != 1 || got[0].AgentName != "web-01" {
		t.Fatalf("severity filter kept %v", got)
	}

	got = FilterEvents(events, EventFilter{
		Severities: map[gateway.Severity]bool{gateway.SeverityLow: true},
		Text:       "web",
	})
	if len(got) != 1 || got[0].AgentName != "web-02" {
		t.Fatalf("combined filter kept %v", got)
	}

	// Agent name and description are both searched.
	got = FilterEvents(events, EventFilter{Text: "checksum"})
	if len(got) != 1 || got[0].AgentName != "db-01" {
		t.Fatalf("description search kept %v", got)
	}
}

func TestFilterEvents_ZeroFilterCopies(t *testing.T) {
	events := []gateway.Event{event("a", "x", gateway.SeverityLow)}
	got := FilterEvents(events, EventFilter{})
	if len(got) != 1 {
		t.Fatalf("zero filter dropped events")
	}
	got[0].AgentName = "mutated"
	if events[0].AgentName != "a" {
		t.Fatalf("zero filter returned the input slice, not a copy")
	}
}
