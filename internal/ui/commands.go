package ui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wardenhq/warden/internal/bulk"
	"github.com/wardenhq/warden/internal/gateway"
	"github.com/wardenhq/warden/internal/store"
)

// fetchTimeout bounds any single background fetch, retries included.
const fetchTimeout = 30 * time.Second

// agentListLimit is how many agents one listing fetch pulls. The pipeline
// filters and paginates locally, so one big page keeps the cache simple.
const agentListLimit = 500

// dashboardWindowMin and dashboardEventLimit shape the stats query: one day
// of alerts, capped, aggregated client-side.
const (
	dashboardWindowMin   = 1440
	dashboardEventLimit  = 1000
	eventPageLimit       = 50
	agentEventsWindowMin = 60
	agentEventsLimit     = 100
)

func agentsKey() store.Key { return store.Key{Kind: store.KindAgents} }
func groupsKey() store.Key { return store.Key{Kind: store.KindGroups} }
func groupAgentsKey(group string) store.Key {
	return store.Key{Kind: store.KindGroupAgents, ID: group}
}
func hardwareKey(id string) store.Key  { return store.Key{Kind: store.KindHardware, ID: id} }
func processesKey(id string) store.Key { return store.Key{Kind: store.KindProcesses, ID: id} }
func packagesKey(id string) store.Key  { return store.Key{Kind: store.KindPackages, ID: id} }
func vulnsKey(id string) store.Key     { return store.Key{Kind: store.KindVulnerabilities, ID: id} }
func configKey(id, component string) store.Key {
	return store.Key{Kind: store.KindAgentConfig, ID: id, Params: component}
}
func agentEventsKey(id string) store.Key {
	return store.Key{Kind: store.KindAgentEvents, ID: id}
}

// eventsKey discriminates event queries by their parameters so a window or
// filter change is a distinct cache entry rather than a clobbered one.
func eventsKey(q gateway.EventQuery) store.Key {
	params := fmt.Sprintf("w=%d off=%d lim=%d", q.Minutes, q.Offset, q.Limit)
	if q.Level != nil {
		params += fmt.Sprintf(" lvl=%d:%d:%d", q.Level.Mode, q.Level.V1, q.Level.V2)
	}
	if q.AgentName != "" {
		params += " an=" + q.AgentName
	}
	if q.RuleID != "" {
		params += " rule=" + q.RuleID
	}
	if q.Description != "" {
		params += " desc=" + q.Description
	}
	if q.Mitre != "" {
		params += " mitre=" + q.Mitre
	}
	return store.Key{Kind: store.KindEvents, Params: params}
}

func dashboardKey() store.Key {
	return eventsKey(gateway.EventQuery{Minutes: dashboardWindowMin, Limit: dashboardEventLimit})
}

// ensure asks the store for a fresh value and, when a fetch is actually
// issued (not deduplicated into an in-flight one), returns the command that
// executes it.
func (m *Model) ensure(key store.Key) tea.Cmd {
	req, issue := m.store.EnsureFresh(key)
	if !issue {
		return nil
	}
	m.inflight[req.RequestID] = struct{}{}
	return m.fetchCmd(req)
}

// ensureEvents is ensure for event queries, which carry their parameters in
// the fetch itself rather than in the key alone.
func (m *Model) ensureEvents(q gateway.EventQuery) tea.Cmd {
	req, issue := m.store.EnsureFresh(eventsKey(q))
	if !issue {
		return nil
	}
	m.inflight[req.RequestID] = struct{}{}
	gw, ctx := m.gw, m.ctx
	return func() tea.Msg {
		fctx, cancel := context.WithTimeout(ctx, fetchTimeout)
		defer cancel()
		page, err := gw.QueryEvents(fctx, q)
		return fetchResultMsg{
			requestID: req.RequestID,
			result:    store.FetchResult{Key: req.Key, Seq: req.Seq, Value: page, Err: err},
		}
	}
}

// fetchCmd executes one fetch request off the render loop and reports the
// result as a message.
func (m *Model) fetchCmd(req store.FetchRequest) tea.Cmd {
	gw, ctx := m.gw, m.ctx
	return func() tea.Msg {
		fctx, cancel := context.WithTimeout(ctx, fetchTimeout)
		defer cancel()
		value, err := execute(fctx, gw, req.Key)
		return fetchResultMsg{
			requestID: req.RequestID,
			result:    store.FetchResult{Key: req.Key, Seq: req.Seq, Value: value, Err: err},
		}
	}
}

// execute dispatches one key to its gateway operation.
func execute(ctx context.Context, gw *gateway.Client, key store.Key) (any, error) {
	switch key.Kind {
	case store.KindAgents:
		return gw.ListAgents(ctx, gateway.AgentQuery{Limit: agentListLimit})
	case store.KindGroups:
		return gw.ListGroups(ctx)
	case store.KindGroupAgents:
		return gw.GroupAgents(ctx, key.ID)
	case store.KindHardware:
		return gw.AgentHardware(ctx, key.ID)
	case store.KindProcesses:
		return gw.AgentProcesses(ctx, key.ID)
	case store.KindPackages:
		return gw.AgentPackages(ctx, key.ID)
	case store.KindVulnerabilities:
		return gw.AgentVulnerabilities(ctx, key.ID)
	case store.KindAgentConfig:
		return gw.AgentConfig(ctx, key.ID, key.Params)
	case store.KindAgentEvents:
		return gw.QueryEvents(ctx, gateway.EventQuery{
			Minutes: agentEventsWindowMin,
			Limit:   agentEventsLimit,
			AgentID: key.ID,
		})
	default:
		return nil, fmt.Errorf("no fetcher for %s", key.Kind)
	}
}

// bulkCmd starts a bulk run on the application context. The run is detached
// from view lifetime: switching views or closing the inspector does not
// cancel it.
func (m *Model) bulkCmd(action bulk.Action, ids []string, group string) tea.Cmd {
	gw, ctx := m.gw, m.ctx
	return func() tea.Msg {
		return bulkDoneMsg{result: bulk.Run(ctx, gw, action, ids, group)}
	}
}
