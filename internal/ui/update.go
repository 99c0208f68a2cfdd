package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wardenhq/warden/internal/bulk"
	"github.com/wardenhq/warden/internal/gateway"
	"github.com/wardenhq/warden/internal/pipeline"
	"github.com/wardenhq/warden/internal/store"
)

// Update is the single consumer of the program's message channel. Fetch
// results are applied to the store in arrival order; everything else is
// intent routing.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.rawViewport.Width = msg.Width - 4
		m.rawViewport.Height = msg.Height - 6
		m.detailView.Width = msg.Width - 4
		m.detailView.Height = msg.Height - 8
		return m, nil

	case tickMsg:
		m.frame++
		m.expireNotifications()
		var cmds []tea.Cmd
		// Dashboard auto-refresh is tied to the view: leaving the dashboard
		// stops the polling, not any in-flight action.
		if m.view == ViewDashboard && m.frame%dashPollEvery == 0 {
			if cmd := m.ensure(agentsKey()); cmd != nil {
				cmds = append(cmds, cmd)
			}
			if cmd := m.ensureEvents(m.dashboardQuery()); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
		cmds = append(cmds, tickCmd())
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case fetchResultMsg:
		delete(m.inflight, msg.requestID)
		applied, err := m.store.Apply(msg.result)
		if err != nil {
			m.notify(fmt.Sprintf("%s: %v", msg.result.Key.Kind, err), notifyError)
		}
		if applied && msg.result.Key.Kind == store.KindAgents {
			m.rebuildJumpCorpus()
		}
		m.recompute()
		return m, nil

	case bulkDoneMsg:
		return m.handleBulkDone(msg)

	case exportDoneMsg:
		if msg.err != nil {
			m.notify(fmt.Sprintf("export failed: %v", msg.err), notifyError)
		} else {
			m.notify(fmt.Sprintf("exported %d events to %s", msg.count, msg.path), notifySuccess)
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Ctrl+C always quits, regardless of mode.
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	if m.overlay != OverlayNone {
		return m.handleOverlayKey(msg)
	}
	if m.searching {
		return m.handleSearchKey(msg)
	}
	if m.eventSearching {
		return m.handleEventSearchKey(msg)
	}

	if view, overlay, handled := transition(m.keys, m.view, m.overlay, msg.String()); handled {
		if overlay != m.overlay {
			return m.openOverlay(overlay)
		}
		if view != m.view {
			cmds := m.enterView(view)
			return m, tea.Batch(cmds...)
		}
		// transition resolved to the state we are already in
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Theme):
		return m.cycleTheme()
	case key.Matches(msg, m.keys.Refresh):
		return m.refreshCurrentView()
	}

	switch m.view {
	case ViewAgents:
		return m.handleAgentsKey(msg)
	case ViewInspector:
		return m.handleInspectorKey(msg)
	case ViewEvents:
		return m.handleEventsKey(msg)
	case ViewGroups:
		return m.handleGroupsKey(msg)
	}
	return m, nil
}

// transition is the pure view/overlay transition function for navigation
// intents, driven by the bindings in keys so the help text and the routing
// cannot drift apart. It returns the successor state and whether the key was
// a navigation intent at all; non-navigation keys fall through to the active
// view's handler.
func transition(keys keyMap, view View, overlay Overlay, k string) (View, Overlay, bool) {
	if overlay != OverlayNone {
		// Overlay keys are routed elsewhere; the only transition out is esc,
		// which restores the suspended view untouched.
		if keyIs(keys.Escape, k) {
			return view, OverlayNone, true
		}
		return view, overlay, false
	}
	switch {
	case keyIs(keys.ViewDashboard, k):
		return ViewDashboard, OverlayNone, true
	case keyIs(keys.ViewAgents, k):
		return ViewAgents, OverlayNone, true
	case keyIs(keys.ViewEvents, k):
		return ViewEvents, OverlayNone, true
	case keyIs(keys.ViewGroups, k):
		return ViewGroups, OverlayNone, true
	case keyIs(keys.Help, k):
		return view, OverlayHelp, true
	case keyIs(keys.Palette, k):
		return view, OverlayPalette, true
	case keyIs(keys.Jump, k):
		return view, OverlayJump, true
	case keyIs(keys.Escape, k):
		if view == ViewInspector {
			return ViewAgents, OverlayNone, true
		}
		return view, OverlayNone, false
	}
	return view, overlay, false
}

// keyIs reports whether k is one of the binding's key strings.
func keyIs(b key.Binding, k string) bool {
	for _, bound := range b.Keys() {
		if bound == k {
			return true
		}
	}
	return false
}

// enterView switches the active view and ensures its primary resources. The
// previous view's cache entries stay warm for fast back-and-forth; the store
// advances its generation so long-unreferenced entries age out.
func (m *Model) enterView(v View) []tea.Cmd {
	m.store.Advance()
	m.view = v

	var cmds []tea.Cmd
	add := func(cmd tea.Cmd) {
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	switch v {
	case ViewDashboard:
		add(m.ensure(agentsKey()))
		add(m.ensureEvents(m.dashboardQuery()))
	case ViewAgents:
		add(m.ensure(agentsKey()))
	case ViewInspector:
		add(m.ensureInspectorTab())
	case ViewEvents:
		add(m.ensureEvents(m.eventQuery()))
	case ViewGroups:
		add(m.ensure(groupsKey()))
	}
	m.recompute()
	return cmds
}

// ensureInspectorTab fetches the resource behind the active inspector tab.
func (m *Model) ensureInspectorTab() tea.Cmd {
	if m.inspectID == "" {
		return nil
	}
	switch m.tab {
	case TabProcesses:
		return m.ensure(processesKey(m.inspectID))
	case TabPrograms:
		return m.ensure(packagesKey(m.inspectID))
	case TabVulnerabilities:
		return m.ensure(vulnsKey(m.inspectID))
	case TabLogs:
		return m.ensure(agentEventsKey(m.inspectID))
	case TabConfig:
		return m.ensure(configKey(m.inspectID, gateway.ConfigComponents[m.configCompIdx]))
	default:
		return m.ensure(hardwareKey(m.inspectID))
	}
}

func (m Model) refreshCurrentView() (tea.Model, tea.Cmd) {
	m.invalidateCurrentView()
	cmds := m.enterView(m.view)
	m.notify("refreshing", notifyInfo)
	return m, tea.Batch(cmds...)
}

func (m *Model) invalidateCurrentView() {
	switch m.view {
	case ViewDashboard:
		m.store.Invalidate(agentsKey())
		m.store.Invalidate(dashboardKey())
	case ViewAgents:
		m.store.Invalidate(agentsKey())
	case ViewInspector:
		m.store.InvalidateAgent(m.inspectID)
	case ViewEvents:
		m.store.Invalidate(eventsKey(m.eventQuery()))
	case ViewGroups:
		m.store.Invalidate(groupsKey())
		if m.memberGroup != "" {
			m.store.Invalidate(groupAgentsKey(m.memberGroup))
		}
	}
}

// dashboardQuery is the fixed stats query: one day, aggregated client-side.
func (m Model) dashboardQuery() gateway.EventQuery {
	return gateway.EventQuery{Minutes: dashboardWindowMin, Limit: dashboardEventLimit}
}

// eventQuery assembles the current events-view query.
func (m Model) eventQuery() gateway.EventQuery {
	return gateway.EventQuery{
		Minutes: m.eventWindowMin,
		Offset:  m.eventOffset,
		Limit:   eventPageLimit,
		Level:   m.level,
	}
}

// recompute rebuilds the agent view model from the current cache snapshot
// and prunes the selection set against the filtered ids: a selection never
// survives a filter that hides its row.
func (m *Model) recompute() {
	agents := m.agentSnapshot()
	m.agentVM = pipeline.Apply(agents, m.filter, m.sort, m.page, m.prefs.PageSize)
	m.page = m.agentVM.Page
	if m.cursor >= len(m.agentVM.Rows) {
		m.cursor = len(m.agentVM.Rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}

	if len(m.selection) > 0 {
		visible := make(map[string]struct{}, len(agents))
		for _, a := range agents {
			if m.filter.Matches(a) {
				visible[a.ID] = struct{}{}
			}
		}
		for id := range m.selection {
			if _, ok := visible[id]; !ok {
				delete(m.selection, id)
			}
		}
	}
}

// agentSnapshot returns the cached agent list, possibly stale, or nil.
func (m *Model) agentSnapshot() []gateway.Agent {
	value, freshness := m.store.Get(agentsKey())
	if freshness == store.Missing {
		return nil
	}
	page, ok := value.(gateway.AgentPage)
	if !ok {
		return nil
	}
	return page.Agents
}

func (m *Model) rebuildJumpCorpus() {
	agents := m.agentSnapshot()
	m.jumpCorpus = make([]string, len(agents))
	m.jumpAgentIDs = make([]string, len(agents))
	for i, a := range agents {
		m.jumpCorpus[i] = a.Name + " " + a.ID + " " + a.IP
		m.jumpAgentIDs[i] = a.ID
	}
	if m.jumpIndex >= len(m.jumpCorpus) {
		m.jumpIndex = 0
	}
}

func (m *Model) notify(text string, level notifyLevel) {
	m.notifications = append(m.notifications, notification{text: text, level: level, when: time.Now()})
}

func (m *Model) expireNotifications() {
	keep := m.notifications[:0]
	for _, n := range m.notifications {
		if time.Since(n.when) < notificationLifetime {
			keep = append(keep, n)
		}
	}
	m.notifications = keep
}

func (m Model) cycleTheme() (tea.Model, tea.Cmd) {
	m.theme = NextTheme(m.theme.Name)
	m.prefs.Theme = m.theme.Name
	return m, m.savePrefsCmd()
}

func (m Model) handleBulkDone(msg bulkDoneMsg) (tea.Model, tea.Cmd) {
	m.bulkRunning = false
	res := msg.result

	level := notifySuccess
	if res.Failed > 0 {
		level = notifyWarning
	}
	m.notify(fmt.Sprintf("%s: %d succeeded, %d failed", res.Action, res.Succeeded, res.Failed), level)
	for _, item := range res.Items {
		if item.Err != nil {
			m.notify(fmt.Sprintf("agent %s: %s", item.AgentID, gateway.KindOf(item.Err)), notifyError)
		}
	}

	// The coordinator never writes to the cache; confirmed outcomes come
	// from re-fetching, so invalidate everything the run touched.
	for _, item := range res.Items {
		m.store.InvalidateAgent(item.AgentID)
	}
	if res.Action == bulk.ActionAssignGroup || res.Action == bulk.ActionRemoveGroup {
		m.store.Invalidate(groupsKey())
		m.store.InvalidateKind(store.KindGroupAgents)
	}

	var cmds []tea.Cmd
	if cmd := m.ensure(agentsKey()); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}
