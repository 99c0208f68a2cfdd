package gateway

import (
	"encoding/json"
	"strings"
	"time"
)

// AgentStatus is the connection state reported by the manager.
type AgentStatus string

const (
	StatusActive         AgentStatus = "active"
	StatusDisconnected   AgentStatus = "disconnected"
	StatusPending        AgentStatus = "pending"
	StatusNeverConnected AgentStatus = "never_connected"
)

// Label returns a human-readable form of the status.
func (s AgentStatus) Label() string {
	return strings.ReplaceAll(string(s), "_", " ")
}

// AgentOS describes the operating system an agent runs on.
type AgentOS struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Platform string `json:"platform"`
	Arch     string `json:"arch"`
}

// Agent mirrors the manager's agent resource.
type Agent struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	IP            string      `json:"ip"`
	Status        AgentStatus `json:"status"`
	Version       string      `json:"version"`
	NodeName      string      `json:"node_name"`
	Groups        []string    `json:"group"`
	DateAdd       string      `json:"dateAdd"`
	LastKeepAlive string      `json:"lastKeepAlive"`
	OS            *AgentOS    `json:"os"`
	Manager       string      `json:"manager"`
}

// OSName returns the OS descriptor or an empty string when the agent never
// reported one.
func (a Agent) OSName() string {
	if a.OS == nil {
		return ""
	}
	return a.OS.Name
}

// Group mirrors the manager's group resource.
type Group struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Hardware is the syscollector hardware record for one agent.
type Hardware struct {
	CPU struct {
		Cores int     `json:"cores"`
		MHz   float64 `json:"mhz"`
		Name  string  `json:"name"`
	} `json:"cpu"`
	RAM struct {
		Free  uint64 `json:"free"`
		Total uint64 `json:"total"`
		Usage int    `json:"usage"`
	} `json:"ram"`
	BoardSerial string `json:"board_serial"`
}

// Process is one syscollector process record.
type Process struct {
	PID   string `json:"pid"`
	Name  string `json:"name"`
	Cmd   string `json:"cmd"`
	State string `json:"state"`
}

// Package is one installed-software record.
type Package struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Vendor      string `json:"vendor"`
	Description string `json:"description"`
}

// Severity is the ordinal classification of an event or vulnerability.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityHigh:
		return "high"
	case SeverityMedium:
		return "medium"
	default:
		return "low"
	}
}

// SeverityFromLevel maps a Wazuh rule level to a severity bucket.
func SeverityFromLevel(level int) Severity {
	switch {
	case level >= 15:
		return SeverityCritical
	case level >= 12:
		return SeverityHigh
	case level >= 7:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// SeverityFromLabel parses indexer severity strings ("Critical", "high", ...).
func SeverityFromLabel(label string) Severity {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium":
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Event is one alert from the indexer. Raw retains the source document
// verbatim for the raw view and for export; the remaining fields are derived
// for table display.
type Event struct {
	Timestamp   time.Time
	Level       int
	Severity    Severity
	AgentID     string
	AgentName   string
	RuleID      string
	Description string
	Raw         json.RawMessage
}

// Vulnerability is one CVE finding for an agent.
type Vulnerability struct {
	CVE         string
	Severity    Severity
	AgentID     string
	PackageName string
	PackageVer  string
	Description string
}

// HistogramBucket is one bar of the alert timeline.
type HistogramBucket struct {
	Label string // HH:MM
	Count int
}

// AgentAlertCount pairs an agent name with its alert count.
type AgentAlertCount struct {
	Name  string
	Count int
}

// DashboardStats aggregates one event query for the dashboard: severity
// totals, the alert timeline, and the noisiest agents. Always derived from an
// event page, never independently mutated.
type DashboardStats struct {
	Critical  int
	High      int
	Medium    int
	Low       int
	Histogram []HistogramBucket
	TopAgents []AgentAlertCount
}

// Total returns the number of events counted into the severity buckets.
func (d DashboardStats) Total() int {
	return d.Critical + d.High + d.Medium + d.Low
}

// EventPage is the result of one indexer query.
type EventPage struct {
	Events []Event
	Total  int
	Stats  DashboardStats
}

// AgentPage is the result of one agent list query.
type AgentPage struct {
	Agents []Agent
	Total  int
}

// listData and listResponse mirror the manager's standard envelope.
type listData[T any] struct {
	AffectedItems      []T `json:"affected_items"`
	TotalAffectedItems int `json:"total_affected_items"`
}

type listResponse[T any] struct {
	Data listData[T] `json:"data"`
}
