package pipeline

import (
	"strings"

	"github.com/wardenhq/warden/internal/gateway"
)

// predicateField names what one filter term constrains.
type predicateField int

const (
	fieldGlobal predicateField = iota
	fieldName
	fieldID
	fieldIP
	fieldStatus
	fieldOS
)

type predicate struct {
	field predicateField
	value string // lowercased
}

// AgentFilter is a parsed filter query. Terms combine with AND; a zero filter
// matches every agent.
type AgentFilter struct {
	predicates []predicate
	raw        string
}

// ParseAgentFilter parses a field-qualified query. Terms look like
// "name:web", "st:active", "os:ubuntu", "ip:10.1"; bare terms match name, id,
// or IP. Unknown qualifiers fall back to a bare-term match on the whole token.
func ParseAgentFilter(query string) AgentFilter {
	f := AgentFilter{raw: query}
	for _, part := range strings.Fields(query) {
		field, value, found := strings.Cut(part, ":")
		if !found {
			f.predicates = append(f.predicates, predicate{fieldGlobal, strings.ToLower(part)})
			continue
		}
		value = strings.ToLower(value)
		switch strings.ToLower(field) {
		case "name", "n":
			f.predicates = append(f.predicates, predicate{fieldName, value})
		case "id":
			f.predicates = append(f.predicates, predicate{fieldID, value})
		case "ip":
			f.predicates = append(f.predicates, predicate{fieldIP, value})
		case "status", "st":
			f.predicates = append(f.predicates, predicate{fieldStatus, value})
		case "os":
			f.predicates = append(f.predicates, predicate{fieldOS, value})
		default:
			f.predicates = append(f.predicates, predicate{fieldGlobal, strings.ToLower(part)})
		}
	}
	return f
}

// Raw returns the query text the filter was parsed from.
func (f AgentFilter) Raw() string { return f.raw }

// IsZero reports whether the filter matches everything.
func (f AgentFilter) IsZero() bool { return len(f.predicates) == 0 }

// Matches applies every predicate to the agent. Substring matches are
// case-insensitive; status is an equality test.
func (f AgentFilter) Matches(a gateway.Agent) bool {
	for _, p := range f.predicates {
		if !p.matches(a) {
			return false
		}
	}
	return true
}

func (p predicate) matches(a gateway.Agent) bool {
	switch p.field {
	case fieldName:
		return strings.Contains(strings.ToLower(a.Name), p.value)
	case fieldID:
		return strings.Contains(strings.ToLower(a.ID), p.value)
	case fieldIP:
		return strings.Contains(strings.ToLower(a.IP), p.value)
	case fieldStatus:
		return strings.ToLower(string(a.Status)) == p.value
	case fieldOS:
		return strings.Contains(strings.ToLower(a.OSName()), p.value)
	default:
		return strings.Contains(strings.ToLower(a.Name), p.value) ||
			strings.Contains(strings.ToLower(a.ID), p.value) ||
			strings.Contains(strings.ToLower(a.IP), p.value)
	}
}

// EventFilter narrows an event page for display and export.
type EventFilter struct {
	Severities map[gateway.Severity]bool // nil or empty admits every severity
	Text       string                    // substring on agent name or description
}

// IsZero reports whether the filter admits every event.
func (f EventFilter) IsZero() bool {
	return len(f.Severities) == 0 && strings.TrimSpace(f.Text) == ""
}

// Matches reports whether the event passes the filter.
func (f EventFilter) Matches(ev gateway.Event) bool {
	if len(f.Severities) > 0 && !f.Severities[ev.Severity] {
		return false
	}
	if text := strings.ToLower(strings.TrimSpace(f.Text)); text != "" {
		if !strings.Contains(strings.ToLower(ev.AgentName), text) &&
			!strings.Contains(strings.ToLower(ev.Description), text) {
			return false
		}
	}
	return true
}

// FilterEvents returns the events passing the filter, preserving order.
func FilterEvents(events []gateway.Event, f EventFilter) []gateway.Event {
	if f.IsZero() {
		out := make([]gateway.Event, len(events))
		copy(out, events)
		return out
	}
	out := make([]gateway.Event, 0, len(events))
	for _, ev := range events {
		if f.Matches(ev) {
			out = append(out, ev)
		}
	}
	return out
}
