package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// LevelMode selects how a level filter constrains rule.level.
type LevelMode int

const (
	LevelMin LevelMode = iota
	LevelMax
	LevelExact
	LevelRange
)

// LevelFilter constrains events by rule level.
type LevelFilter struct {
	Mode LevelMode
	V1   int
	V2   int // upper bound, LevelRange only
}

// EventQuery configures one alert search.
type EventQuery struct {
	Minutes     int // time window ending now; zero means 15 minutes
	Offset      int
	Limit       int
	AgentID     string // restrict to one agent
	AgentName   string // wildcard match on agent.name
	Level       *LevelFilter
	RuleID      string // exact, comma list, or wildcard
	Description string // full-text match on rule.description
	Mitre       string // matches MITRE id, tactic, or technique
}

const (
	alertsIndex = "/wazuh-alerts-*/_search"
	vulnIndex   = "/wazuh-states-vulnerabilities*/_search"
)

// QueryEvents runs one alert search and derives the dashboard aggregates from
// the returned page.
func (c *Client) QueryEvents(ctx context.Context, q EventQuery) (EventPage, error) {
	minutes := q.Minutes
	if minutes <= 0 {
		minutes = 15
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	must := []any{
		map[string]any{"range": map[string]any{"@timestamp": map[string]any{
			"gte": fmt.Sprintf("now-%dm", minutes),
			"lte": "now",
		}}},
	}
	if q.AgentID != "" {
		must = append(must, map[string]any{"term": map[string]any{"agent.id": q.AgentID}})
	}
	if q.Level != nil {
		must = append(must, levelClause(*q.Level))
	}
	if name := strings.TrimSpace(q.AgentName); name != "" {
		must = append(must, map[string]any{"wildcard": map[string]any{"agent.name": map[string]any{
			"value":            "*" + strings.ToLower(name) + "*",
			"case_insensitive": true,
		}}})
	}
	if rule := strings.TrimSpace(q.RuleID); rule != "" {
		must = append(must, ruleIDClause(rule))
	}
	if desc := strings.TrimSpace(q.Description); desc != "" {
		must = append(must, map[string]any{"match": map[string]any{"rule.description": map[string]any{
			"query":    desc,
			"operator": "and",
		}}})
	}
	if mitre := strings.TrimSpace(q.Mitre); mitre != "" {
		must = append(must, mitreClause(mitre))
	}

	body := map[string]any{
		"from": q.Offset,
		"size": limit,
		"sort": []any{map[string]any{"@timestamp": map[string]any{"order": "desc"}}},
		"query": map[string]any{
			"bool": map[string]any{"must": must},
		},
	}

	var payload struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := c.doIndexer(ctx, "query events", alertsIndex, body, &payload); err != nil {
		return EventPage{}, err
	}

	events := make([]Event, 0, len(payload.Hits.Hits))
	for _, hit := range payload.Hits.Hits {
		events = append(events, decodeEvent(hit.Source))
	}
	return EventPage{
		Events: events,
		Total:  payload.Hits.Total.Value,
		Stats:  DeriveStats(events),
	}, nil
}

// AgentVulnerabilities queries the vulnerability state index for one agent.
func (c *Client) AgentVulnerabilities(ctx context.Context, agentID string) ([]Vulnerability, error) {
	body := map[string]any{
		"size": 500,
		"query": map[string]any{
			"bool": map[string]any{"must": []any{
				map[string]any{"term": map[string]any{"agent.id": agentID}},
			}},
		},
		"sort": []any{map[string]any{"vulnerability.severity": map[string]any{"order": "asc"}}},
	}

	var payload struct {
		Hits struct {
			Hits []struct {
				Source struct {
					Vulnerability struct {
						ID          string `json:"id"`
						Severity    string `json:"severity"`
						Description string `json:"description"`
					} `json:"vulnerability"`
					Package *struct {
						Name    string `json:"name"`
						Version string `json:"version"`
					} `json:"package"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := c.doIndexer(ctx, "agent vulnerabilities", vulnIndex, body, &payload); err != nil {
		return nil, err
	}

	vulns := make([]Vulnerability, 0, len(payload.Hits.Hits))
	for _, hit := range payload.Hits.Hits {
		src := hit.Source
		v := Vulnerability{
			CVE:         src.Vulnerability.ID,
			Severity:    SeverityFromLabel(src.Vulnerability.Severity),
			AgentID:     agentID,
			Description: src.Vulnerability.Description,
		}
		if src.Package != nil {
			v.PackageName = src.Package.Name
			v.PackageVer = src.Package.Version
		}
		vulns = append(vulns, v)
	}
	return vulns, nil
}

// eventDoc is the subset of an alert document needed for table display.
type eventDoc struct {
	Timestamp string `json:"@timestamp"`
	Rule      struct {
		Level       int    `json:"level"`
		ID          string `json:"id"`
		Description string `json:"description"`
	} `json:"rule"`
	Agent struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"agent"`
}

// decodeEvent derives display fields from a raw alert document. The raw
// payload is retained verbatim; decoding failures leave zero-valued fields
// rather than dropping the event.
func decodeEvent(raw json.RawMessage) Event {
	var doc eventDoc
	_ = json.Unmarshal(raw, &doc)

	ts, _ := time.Parse(time.RFC3339, doc.Timestamp)
	return Event{
		Timestamp:   ts,
		Level:       doc.Rule.Level,
		Severity:    SeverityFromLevel(doc.Rule.Level),
		AgentID:     doc.Agent.ID,
		AgentName:   doc.Agent.Name,
		RuleID:      doc.Rule.ID,
		Description: doc.Rule.Description,
		Raw:         raw,
	}
}

const topAgentCount = 5

// DeriveStats aggregates an event page into dashboard statistics: severity
// totals, a per-minute alert timeline, and the top agents by alert count.
func DeriveStats(events []Event) DashboardStats {
	var stats DashboardStats
	buckets := map[string]int{}
	perAgent := map[string]int{}

	for _, ev := range events {
		switch ev.Severity {
		case SeverityCritical:
			stats.Critical++
		case SeverityHigh:
			stats.High++
		case SeverityMedium:
			stats.Medium++
		default:
			stats.Low++
		}
		if !ev.Timestamp.IsZero() {
			buckets[ev.Timestamp.Format("15:04")]++
		}
		if ev.AgentName != "" {
			perAgent[ev.AgentName]++
		}
	}

	labels := make([]string, 0, len(buckets))
	for label := range buckets {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		stats.Histogram = append(stats.Histogram, HistogramBucket{Label: label, Count: buckets[label]})
	}

	for name, count := range perAgent {
		stats.TopAgents = append(stats.TopAgents, AgentAlertCount{Name: name, Count: count})
	}
	sort.Slice(stats.TopAgents, func(i, j int) bool {
		if stats.TopAgents[i].Count != stats.TopAgents[j].Count {
			return stats.TopAgents[i].Count > stats.TopAgents[j].Count
		}
		return stats.TopAgents[i].Name < stats.TopAgents[j].Name
	})
	if len(stats.TopAgents) > topAgentCount {
		stats.TopAgents = stats.TopAgents[:topAgentCount]
	}
	return stats
}

func levelClause(f LevelFilter) map[string]any {
	switch f.Mode {
	case LevelMax:
		return map[string]any{"range": map[string]any{"rule.level": map[string]any{"lte": f.V1}}}
	case LevelExact:
		return map[string]any{"term": map[string]any{"rule.level": f.V1}}
	case LevelRange:
		return map[string]any{"range": map[string]any{"rule.level": map[string]any{"gte": f.V1, "lte": f.V2}}}
	default:
		return map[string]any{"range": map[string]any{"rule.level": map[string]any{"gte": f.V1}}}
	}
}

func ruleIDClause(rule string) map[string]any {
	switch {
	case strings.Contains(rule, ","):
		parts := strings.Split(rule, ",")
		ids := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				ids = append(ids, p)
			}
		}
		return map[string]any{"terms": map[string]any{"rule.id": ids}}
	case strings.Contains(rule, "*"):
		return map[string]any{"wildcard": map[string]any{"rule.id": map[string]any{"value": rule}}}
	default:
		return map[string]any{"term": map[string]any{"rule.id": rule}}
	}
}

func mitreClause(mitre string) map[string]any {
	pattern := "*" + strings.ToLower(mitre) + "*"
	wildcard := func(field string) map[string]any {
		return map[string]any{"wildcard": map[string]any{field: map[string]any{
			"value":            pattern,
			"case_insensitive": true,
		}}}
	}
	return map[string]any{"bool": map[string]any{
		"should": []any{
			wildcard("rule.mitre.id"),
			wildcard("rule.mitre.tactic"),
			wildcard("rule.mitre.technique"),
		},
		"minimum_should_match": 1,
	}}
}
