package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wardenhq/warden/internal/bulk"
	"github.com/wardenhq/warden/internal/gateway"
	"github.com/wardenhq/warden/internal/pipeline"
	"github.com/wardenhq/warden/internal/store"
)

// --- Agents view ---

func (m Model) handleAgentsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.searchInput.SetValue(m.filter.Raw())
		m.searchInput.Focus()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor+1 < len(m.agentVM.Rows) {
			m.cursor++
		}
		return m, nil
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		if m.page+1 < m.agentVM.PageCount {
			m.page++
			m.cursor = 0
			m.recompute()
		}
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		if m.page > 0 {
			m.page--
			m.cursor = 0
			m.recompute()
		}
		return m, nil

	case key.Matches(msg, m.keys.CycleSort):
		m.sort.Key = m.sort.Key.Next()
		m.sort.Descending = false
		m.recompute()
		return m, nil
	case key.Matches(msg, m.keys.ReverseSort):
		m.sort.Descending = !m.sort.Descending
		m.recompute()
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if a, ok := m.selectedAgent(); ok {
			if _, selected := m.selection[a.ID]; selected {
				delete(m.selection, a.ID)
			} else {
				m.selection[a.ID] = struct{}{}
			}
		}
		return m, nil
	case key.Matches(msg, m.keys.ClearSelect):
		clear(m.selection)
		return m, nil

	case key.Matches(msg, m.keys.Upgrade):
		return m.confirmBulk(bulk.ActionUpgrade, "")
	case key.Matches(msg, m.keys.Restart):
		return m.confirmBulk(bulk.ActionRestart, "")
	case key.Matches(msg, m.keys.Assign):
		if len(m.actionTargets()) == 0 {
			m.notify("nothing selected", notifyWarning)
			return m, nil
		}
		return m.openOverlay(OverlayGroupPick)

	case key.Matches(msg, m.keys.Enter):
		if a, ok := m.selectedAgent(); ok {
			m.inspectID = a.ID
			m.inspectName = a.Name
			m.tab = TabHardware
			cmds := m.enterView(ViewInspector)
			return m, tea.Batch(cmds...)
		}
		return m, nil

	case msg.String() == "esc":
		if !m.filter.IsZero() {
			m.filter = pipeline.AgentFilter{}
			m.page = 0
			m.recompute()
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.searchInput.Blur()
		m.filter = pipeline.ParseAgentFilter(m.searchInput.Value())
		m.page = 0
		m.cursor = 0
		m.recompute()
		return m, nil
	case "esc":
		m.searching = false
		m.searchInput.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// selectedAgent returns the agent under the cursor in the current page.
func (m Model) selectedAgent() (gateway.Agent, bool) {
	if m.cursor < 0 || m.cursor >= len(m.agentVM.Rows) {
		return gateway.Agent{}, false
	}
	return m.agentVM.Rows[m.cursor], true
}

// actionTargets is the id set a bulk action applies to: the multi-selection
// when present, otherwise the cursor row.
func (m Model) actionTargets() []string {
	if len(m.selection) > 0 {
		ids := make([]string, 0, len(m.selection))
		for _, a := range m.agentVM.Rows {
			if _, ok := m.selection[a.ID]; ok {
				ids = append(ids, a.ID)
			}
		}
		// Selected rows may live on other pages of the same filtered set.
		seen := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			seen[id] = struct{}{}
		}
		for id := range m.selection {
			if _, ok := seen[id]; !ok {
				ids = append(ids, id)
			}
		}
		return ids
	}
	if a, ok := m.selectedAgent(); ok {
		return []string{a.ID}
	}
	return nil
}

func (m Model) confirmBulk(action bulk.Action, group string) (tea.Model, tea.Cmd) {
	ids := m.actionTargets()
	if len(ids) == 0 {
		m.notify("nothing selected", notifyWarning)
		return m, nil
	}
	if m.bulkRunning {
		m.notify("a bulk action is already running", notifyWarning)
		return m, nil
	}
	m.confirm = &confirmState{action: action, ids: ids, group: group}
	m.overlay = OverlayConfirm
	return m, nil
}

// --- Inspector view ---

func (m Model) handleInspectorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.NextTab):
		m.tab = m.tab.Next()
		return m, m.ensureInspectorTab()
	case key.Matches(msg, m.keys.PrevTab):
		m.tab = m.tab.Prev()
		return m, m.ensureInspectorTab()
	case key.Matches(msg, m.keys.Component) && m.tab == TabConfig:
		m.configCompIdx = (m.configCompIdx + 1) % len(gateway.ConfigComponents)
		return m, m.ensureInspectorTab()
	case key.Matches(msg, m.keys.Down):
		m.detailView.LineDown(1)
		return m, nil
	case key.Matches(msg, m.keys.Up):
		m.detailView.LineUp(1)
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.detailView.LineDown(m.detailView.Height)
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.detailView.LineUp(m.detailView.Height)
		return m, nil
	}
	return m, nil
}

// --- Events view ---

func (m Model) handleEventsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.rawView {
		switch {
		case key.Matches(msg, m.keys.RawJSON), msg.String() == "esc":
			m.rawView = false
			return m, nil
		case key.Matches(msg, m.keys.Down):
			m.rawViewport.LineDown(1)
			return m, nil
		case key.Matches(msg, m.keys.Up):
			m.rawViewport.LineUp(1)
			return m, nil
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.TextFind):
		m.eventSearching = true
		m.eventText.Focus()
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.eventCursor+1 < len(m.visibleEvents()) {
			m.eventCursor++
		}
		return m, nil
	case key.Matches(msg, m.keys.Up):
		if m.eventCursor > 0 {
			m.eventCursor--
		}
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.eventOffset += eventPageLimit
		m.eventCursor = 0
		return m, m.ensureEvents(m.eventQuery())
	case key.Matches(msg, m.keys.PageUp):
		if m.eventOffset >= eventPageLimit {
			m.eventOffset -= eventPageLimit
		} else {
			m.eventOffset = 0
		}
		m.eventCursor = 0
		return m, m.ensureEvents(m.eventQuery())
	case key.Matches(msg, m.keys.RawJSON):
		events := m.visibleEvents()
		if m.eventCursor < len(events) {
			m.rawView = true
			m.rawViewport.SetContent(prettyJSON(events[m.eventCursor].Raw))
			m.rawViewport.GotoTop()
		}
		return m, nil
	case key.Matches(msg, m.keys.Severity):
		return m.openOverlay(OverlaySeverity)
	case key.Matches(msg, m.keys.Interval):
		return m.openOverlay(OverlayInterval)
	case key.Matches(msg, m.keys.Export):
		return m, m.exportCmd()
	case msg.String() == "esc":
		if m.level != nil || !m.eventTextFilter().IsZero() {
			m.level = nil
			m.sevFilter = nil
			m.eventText.SetValue("")
			m.eventOffset = 0
			return m, m.ensureEvents(m.eventQuery())
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleEventSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.eventSearching = false
		m.eventText.Blur()
		m.eventCursor = 0
		return m, nil
	case "esc":
		m.eventSearching = false
		m.eventText.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.eventText, cmd = m.eventText.Update(msg)
	return m, cmd
}

// eventTextFilter is the client-side half of event filtering; the window,
// offset, and level constraint travel to the indexer instead.
func (m Model) eventTextFilter() pipeline.EventFilter {
	return pipeline.EventFilter{Severities: m.sevFilter, Text: m.eventText.Value()}
}

// visibleEvents applies the client-side filter to the cached event page.
func (m Model) visibleEvents() []gateway.Event {
	value, freshness := m.store.Get(eventsKey(m.eventQuery()))
	if freshness == store.Missing {
		return nil
	}
	page, ok := value.(gateway.EventPage)
	if !ok {
		return nil
	}
	return pipeline.FilterEvents(page.Events, m.eventTextFilter())
}

// --- Groups view ---

func (m Model) handleGroupsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	groups := m.groupSnapshot()

	if m.memberGroup != "" {
		members := m.groupMembers(m.memberGroup)
		switch {
		case msg.String() == "esc":
			m.memberGroup = ""
			return m, nil
		case key.Matches(msg, m.keys.Down):
			if m.memberCursor+1 < len(members) {
				m.memberCursor++
			}
			return m, nil
		case key.Matches(msg, m.keys.Up):
			if m.memberCursor > 0 {
				m.memberCursor--
			}
			return m, nil
		case msg.String() == "d":
			if m.memberCursor < len(members) {
				target := members[m.memberCursor]
				if m.bulkRunning {
					m.notify("a bulk action is already running", notifyWarning)
					return m, nil
				}
				m.confirm = &confirmState{
					action: bulk.ActionRemoveGroup,
					ids:    []string{target.ID},
					group:  m.memberGroup,
				}
				m.overlay = OverlayConfirm
			}
			return m, nil
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.groupCursor+1 < len(groups) {
			m.groupCursor++
		}
		return m, nil
	case key.Matches(msg, m.keys.Up):
		if m.groupCursor > 0 {
			m.groupCursor--
		}
		return m, nil
	case key.Matches(msg, m.keys.Enter):
		if m.groupCursor < len(groups) {
			m.memberGroup = groups[m.groupCursor].Name
			m.memberCursor = 0
			return m, m.ensure(groupAgentsKey(m.memberGroup))
		}
		return m, nil
	}
	return m, nil
}

func (m Model) groupSnapshot() []gateway.Group {
	value, freshness := m.store.Get(groupsKey())
	if freshness == store.Missing {
		return nil
	}
	groups, ok := value.([]gateway.Group)
	if !ok {
		return nil
	}
	return groups
}

func (m Model) groupMembers(group string) []gateway.Agent {
	value, freshness := m.store.Get(groupAgentsKey(group))
	if freshness == store.Missing {
		return nil
	}
	members, ok := value.([]gateway.Agent)
	if !ok {
		return nil
	}
	return members
}
