package ui

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/wardenhq/warden/internal/gateway"
	"github.com/wardenhq/warden/internal/store"
)

var viewTitles = []string{"Dashboard", "Agents", "Inspector", "Events", "Groups"}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "starting warden..."
	}

	st := m.theme.Styles()
	header := m.renderHeader(st)
	footer := m.renderFooter(st)

	var body string
	switch m.view {
	case ViewDashboard:
		body = m.renderDashboard(st)
	case ViewAgents:
		body = m.renderAgents(st)
	case ViewInspector:
		body = m.renderInspector(st)
	case ViewEvents:
		body = m.renderEvents(st)
	case ViewGroups:
		body = m.renderGroups(st)
	}

	if m.overlay != OverlayNone {
		bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
		body = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, m.renderOverlay(st))
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m Model) renderHeader(st Styles) string {
	var tabs []string
	for i, title := range viewTitles {
		if View(i) == ViewInspector {
			// The inspector has no hotkey of its own; show it only while open.
			if m.view != ViewInspector {
				continue
			}
			tabs = append(tabs, st.AccentText.Render(title+":"+m.inspectName))
			continue
		}
		label := fmt.Sprintf("%d %s", tabNumber(View(i)), title)
		if View(i) == m.view {
			tabs = append(tabs, st.AccentText.Render(label))
		} else {
			tabs = append(tabs, st.MutedText.Render(label))
		}
	}

	left := st.Logo.Render("warden") + "  " + strings.Join(tabs, "  ")
	right := st.MutedText.Render(m.theme.Name)
	if len(m.inflight) > 0 {
		right = m.spinner.View() + " " + st.InfoText.Render("loading") + "  " + right
	}
	if m.bulkRunning {
		right = st.WarningText.Render("bulk action running") + "  " + right
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return st.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func tabNumber(v View) int {
	switch v {
	case ViewAgents:
		return 2
	case ViewEvents:
		return 3
	case ViewGroups:
		return 4
	default:
		return 1
	}
}

func (m Model) renderFooter(st Styles) string {
	if n := m.latestNotification(); n != nil {
		var style lipgloss.Style
		switch n.level {
		case notifySuccess:
			style = st.SuccessText
		case notifyWarning:
			style = st.WarningText
		case notifyError:
			style = st.DangerText
		default:
			style = st.InfoText
		}
		return st.Footer.Width(m.width).Render(style.Render(n.text))
	}

	var hints string
	switch m.view {
	case ViewAgents:
		hints = "/ filter  s sort  S reverse  space select  u upgrade  r restart  a assign  enter inspect"
	case ViewInspector:
		hints = "tab panes  c component  esc back"
	case ViewEvents:
		hints = "/ find  s severity  i interval  v raw  x export  pgup/pgdn page"
	case ViewGroups:
		hints = "enter members  d remove member  esc back"
	default:
		hints = "1-4 views  f find agent  : palette  ? help"
	}
	return st.Footer.Width(m.width).Render(hints + "  |  ? help  q quit")
}

func (m *Model) latestNotification() *notification {
	if len(m.notifications) == 0 {
		return nil
	}
	return &m.notifications[len(m.notifications)-1]
}

// --- Dashboard ---

func (m Model) renderDashboard(st Styles) string {
	var b strings.Builder

	if m.cfg != nil {
		b.WriteString(st.MutedText.Render("manager "+m.cfg.ManagerURL) + "\n\n")
	}

	agents := m.agentSnapshot()
	counts := map[gateway.AgentStatus]int{}
	for _, a := range agents {
		counts[a.Status]++
	}
	b.WriteString(st.TableHeader.Render("Fleet") + "\n")
	b.WriteString(fmt.Sprintf("  %s  %s  %s  %s\n\n",
		st.StatusStyle(gateway.StatusActive).Render(fmt.Sprintf("%d active", counts[gateway.StatusActive])),
		st.StatusStyle(gateway.StatusDisconnected).Render(fmt.Sprintf("%d disconnected", counts[gateway.StatusDisconnected])),
		st.StatusStyle(gateway.StatusPending).Render(fmt.Sprintf("%d pending", counts[gateway.StatusPending])),
		st.StatusStyle(gateway.StatusNeverConnected).Render(fmt.Sprintf("%d never connected", counts[gateway.StatusNeverConnected]))))

	value, freshness := m.store.Get(dashboardKey())
	page, ok := value.(gateway.EventPage)
	if freshness == store.Missing || !ok {
		b.WriteString(st.MutedText.Render("loading alert statistics..."))
		return m.framePanel(st, b.String())
	}
	stats := page.Stats

	title := "Alerts, last 24h"
	if freshness == store.Stale {
		title += "  (stale)"
	}
	b.WriteString(st.TableHeader.Render(title) + "\n")
	b.WriteString(fmt.Sprintf("  %s  %s  %s  %s\n\n",
		st.SeverityStyle(gateway.SeverityCritical).Render(fmt.Sprintf("%d critical", stats.Critical)),
		st.SeverityStyle(gateway.SeverityHigh).Render(fmt.Sprintf("%d high", stats.High)),
		st.SeverityStyle(gateway.SeverityMedium).Render(fmt.Sprintf("%d medium", stats.Medium)),
		st.SeverityStyle(gateway.SeverityLow).Render(fmt.Sprintf("%d low", stats.Low))))

	if len(stats.Histogram) > 0 {
		b.WriteString(st.TableHeader.Render("Timeline") + "\n")
		b.WriteString(renderHistogram(st, stats.Histogram, m.width-8) + "\n")
	}

	if len(stats.TopAgents) > 0 {
		b.WriteString(st.TableHeader.Render("Noisiest agents") + "\n")
		for _, ta := range stats.TopAgents {
			b.WriteString(fmt.Sprintf("  %s %s\n", pad(ta.Name, 24), st.MutedText.Render(fmt.Sprintf("%d alerts", ta.Count))))
		}
	}

	return m.framePanel(st, b.String())
}

// renderHistogram draws one bar line per bucket, scaled to the widest count.
func renderHistogram(st Styles, buckets []gateway.HistogramBucket, width int) string {
	if width < 16 {
		width = 16
	}
	max := 1
	for _, bk := range buckets {
		if bk.Count > max {
			max = bk.Count
		}
	}
	// Cap the panel at the most recent buckets when the window is dense.
	if len(buckets) > 20 {
		buckets = buckets[len(buckets)-20:]
	}
	var b strings.Builder
	barWidth := width - 14
	for _, bk := range buckets {
		n := bk.Count * barWidth / max
		if n == 0 && bk.Count > 0 {
			n = 1
		}
		b.WriteString(fmt.Sprintf("  %s %s %d\n",
			st.MutedText.Render(bk.Label),
			st.InfoText.Render(strings.Repeat("▇", n)),
			bk.Count))
	}
	return b.String()
}

// --- Agents ---

func (m Model) renderAgents(st Styles) string {
	var b strings.Builder

	if m.searching {
		b.WriteString(st.AccentText.Render("filter: ") + m.searchInput.View() + "\n")
	} else if !m.filter.IsZero() {
		b.WriteString(st.MutedText.Render("filter: "+m.filter.Raw()+"  (esc clears)") + "\n")
	}

	sortLabel := m.sort.Key.String()
	if m.sort.Descending {
		sortLabel += " desc"
	}
	b.WriteString(st.MutedText.Render(fmt.Sprintf("%d agents, sorted by %s", m.agentVM.Total, sortLabel)) + "\n")

	b.WriteString(st.TableHeader.Render(
		"   "+pad("ID", 5)+pad("Name", 22)+pad("IP", 16)+pad("Status", 16)+pad("OS", 18)+pad("Version", 14)+"Seen") + "\n")

	for i, a := range m.agentVM.Rows {
		marker := "  "
		if _, sel := m.selection[a.ID]; sel {
			marker = st.AccentText.Render("* ")
		}
		row := marker + " " + pad(a.ID, 5) + pad(a.Name, 22) + pad(a.IP, 16) +
			st.StatusStyle(a.Status).Render(pad(a.Status.Label(), 16)) +
			pad(a.OSName(), 18) + pad(a.Version, 14) + keepAliveAge(a.LastKeepAlive)
		if i == m.cursor {
			row = st.Selected.Render(row)
		}
		b.WriteString(row + "\n")
	}
	if len(m.agentVM.Rows) == 0 {
		b.WriteString(st.MutedText.Render("  no agents match") + "\n")
	}

	b.WriteString("\n" + st.MutedText.Render(fmt.Sprintf("page %d/%d", m.agentVM.Page+1, maxInt(m.agentVM.PageCount, 1))))
	if len(m.selection) > 0 {
		b.WriteString(st.AccentText.Render(fmt.Sprintf("   %d selected", len(m.selection))))
	}
	return m.framePanel(st, b.String())
}

// keepAliveAge renders the manager's keepalive timestamp as a compact age.
func keepAliveAge(s string) string {
	if s == "" || strings.HasPrefix(s, "9999") {
		return "never"
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return relTime(t)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// --- Inspector ---

func (m Model) renderInspector(st Styles) string {
	var tabs []string
	for t := TabHardware; t <= TabConfig; t++ {
		label := t.String()
		if t == TabConfig {
			label += ":" + gateway.ConfigComponents[m.configCompIdx]
		}
		if t == m.tab {
			tabs = append(tabs, st.AccentText.Render(label))
		} else {
			tabs = append(tabs, st.MutedText.Render(label))
		}
	}
	head := fmt.Sprintf("%s %s\n%s\n\n",
		st.TableHeader.Render("agent "+m.inspectID),
		st.Text.Render(m.inspectName),
		strings.Join(tabs, " | "))

	vp := m.detailView
	vp.SetContent(m.inspectorContent(st))
	return m.framePanel(st, head+vp.View())
}

func (m Model) inspectorContent(st Styles) string {
	key := m.inspectorKey()
	value, freshness := m.store.Get(key)
	if freshness == store.Missing {
		return st.MutedText.Render("loading...")
	}

	var body string
	switch m.tab {
	case TabHardware:
		hw, ok := value.(*gateway.Hardware)
		if !ok || hw == nil {
			return st.MutedText.Render("no hardware inventory")
		}
		body = fmt.Sprintf("CPU      %s (%d cores @ %.0f MHz)\nRAM      %s free of %s (%d%% used)\nBoard    %s",
			hw.CPU.Name, hw.CPU.Cores, hw.CPU.MHz,
			formatKB(hw.RAM.Free), formatKB(hw.RAM.Total), hw.RAM.Usage,
			hw.BoardSerial)

	case TabProcesses:
		procs, _ := value.([]gateway.Process)
		var b strings.Builder
		b.WriteString(st.TableHeader.Render(pad("PID", 8)+pad("Name", 24)+pad("State", 8)+"Command") + "\n")
		for _, p := range procs {
			b.WriteString(pad(p.PID, 8) + pad(p.Name, 24) + pad(p.State, 8) + truncate(p.Cmd, 60) + "\n")
		}
		body = b.String()

	case TabPrograms:
		pkgs, _ := value.([]gateway.Package)
		var b strings.Builder
		b.WriteString(st.TableHeader.Render(pad("Name", 30)+pad("Version", 18)+"Vendor") + "\n")
		for _, p := range pkgs {
			b.WriteString(pad(p.Name, 30) + pad(p.Version, 18) + truncate(p.Vendor, 30) + "\n")
		}
		body = b.String()

	case TabVulnerabilities:
		vulns, _ := value.([]gateway.Vulnerability)
		if len(vulns) == 0 {
			body = st.SuccessText.Render("no known vulnerabilities")
			break
		}
		var b strings.Builder
		b.WriteString(st.TableHeader.Render(pad("CVE", 18)+pad("Severity", 10)+pad("Package", 26)+"Description") + "\n")
		for _, v := range vulns {
			b.WriteString(pad(v.CVE, 18) +
				st.SeverityStyle(v.Severity).Render(pad(v.Severity.String(), 10)) +
				pad(v.PackageName+" "+v.PackageVer, 26) + truncate(v.Description, 50) + "\n")
		}
		body = b.String()

	case TabLogs:
		page, _ := value.(gateway.EventPage)
		var b strings.Builder
		for _, ev := range page.Events {
			b.WriteString(fmt.Sprintf("%s  %s  %s\n",
				st.MutedText.Render(ev.Timestamp.Format("15:04:05")),
				st.SeverityStyle(ev.Severity).Render(fmt.Sprintf("[%2d]", ev.Level)),
				ev.Description))
		}
		if b.Len() == 0 {
			b.WriteString(st.MutedText.Render("no recent alerts for this agent"))
		}
		body = b.String()

	case TabConfig:
		raw, _ := value.(json.RawMessage)
		if len(raw) == 0 {
			body = st.MutedText.Render("no configuration returned for this component")
			break
		}
		body = prettyJSON(raw)
	}

	if freshness == store.Stale {
		body = st.WarningText.Render("(stale)") + "\n" + body
	}
	return body
}

func (m Model) inspectorKey() store.Key {
	switch m.tab {
	case TabProcesses:
		return processesKey(m.inspectID)
	case TabPrograms:
		return packagesKey(m.inspectID)
	case TabVulnerabilities:
		return vulnsKey(m.inspectID)
	case TabLogs:
		return agentEventsKey(m.inspectID)
	case TabConfig:
		return configKey(m.inspectID, gateway.ConfigComponents[m.configCompIdx])
	default:
		return hardwareKey(m.inspectID)
	}
}

func formatKB(kb uint64) string {
	switch {
	case kb >= 1<<20:
		return fmt.Sprintf("%.1f GB", float64(kb)/(1<<20))
	case kb >= 1<<10:
		return fmt.Sprintf("%.1f MB", float64(kb)/(1<<10))
	default:
		return fmt.Sprintf("%d KB", kb)
	}
}

// --- Events ---

func (m Model) renderEvents(st Styles) string {
	if m.rawView {
		vp := m.rawViewport
		return m.framePanel(st, st.TableHeader.Render("raw event")+"  "+st.MutedText.Render("(v or esc closes)")+"\n"+vp.View())
	}

	var b strings.Builder
	if m.eventSearching {
		b.WriteString(st.AccentText.Render("find: ") + m.eventText.View() + "\n")
	}

	status := fmt.Sprintf("window %s", formatWindow(m.eventWindowMin))
	if m.level != nil {
		status += "  level " + levelFilterString(m.level)
	}
	if len(m.sevFilter) > 0 {
		status += "  severity " + severityListString(m.sevFilter)
	}
	if text := strings.TrimSpace(m.eventText.Value()); text != "" && !m.eventSearching {
		status += "  text " + text
	}
	b.WriteString(st.MutedText.Render(status) + "\n")

	events := m.visibleEvents()
	value, freshness := m.store.Get(eventsKey(m.eventQuery()))
	if freshness == store.Missing {
		b.WriteString(st.MutedText.Render("loading events..."))
		return m.framePanel(st, b.String())
	}

	b.WriteString(st.TableHeader.Render(
		pad("Time", 10)+pad("Lvl", 5)+pad("Severity", 10)+pad("Agent", 20)+pad("Rule", 8)+"Description") + "\n")
	for i, ev := range events {
		row := pad(ev.Timestamp.Format("15:04:05"), 10) + pad(fmt.Sprintf("%d", ev.Level), 5) +
			st.SeverityStyle(ev.Severity).Render(pad(ev.Severity.String(), 10)) +
			pad(ev.AgentName, 20) + pad(ev.RuleID, 8) + truncate(ev.Description, maxInt(m.width-56, 20))
		if i == m.eventCursor {
			row = st.Selected.Render(row)
		}
		b.WriteString(row + "\n")
	}
	if len(events) == 0 {
		b.WriteString(st.MutedText.Render("  no events in this window") + "\n")
	}

	total := 0
	if page, ok := value.(gateway.EventPage); ok {
		total = page.Total
	}
	pager := fmt.Sprintf("showing %d-%d of %d", m.eventOffset+1, m.eventOffset+len(events), total)
	if freshness == store.Stale {
		pager += "  (stale)"
	}
	b.WriteString("\n" + st.MutedText.Render(pager))
	return m.framePanel(st, b.String())
}

func formatWindow(minutes int) string {
	switch {
	case minutes >= 1440 && minutes%1440 == 0:
		return fmt.Sprintf("%dd", minutes/1440)
	case minutes >= 60 && minutes%60 == 0:
		return fmt.Sprintf("%dh", minutes/60)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

func severityListString(sevs map[gateway.Severity]bool) string {
	var parts []string
	for s := gateway.SeverityCritical; s >= gateway.SeverityLow; s-- {
		if sevs[s] {
			parts = append(parts, s.String())
		}
	}
	return strings.Join(parts, ",")
}

// --- Groups ---

func (m Model) renderGroups(st Styles) string {
	var b strings.Builder

	if m.memberGroup != "" {
		members := m.groupMembers(m.memberGroup)
		b.WriteString(st.TableHeader.Render("group "+m.memberGroup) + "\n\n")
		for i, a := range members {
			row := "  " + pad(a.ID, 5) + pad(a.Name, 24) + st.StatusStyle(a.Status).Render(a.Status.Label())
			if i == m.memberCursor {
				row = st.Selected.Render(row)
			}
			b.WriteString(row + "\n")
		}
		if len(members) == 0 {
			b.WriteString(st.MutedText.Render("  no members, or still loading"))
		}
		return m.framePanel(st, b.String())
	}

	groups := m.groupSnapshot()
	b.WriteString(st.TableHeader.Render(pad("Group", 30)+"Agents") + "\n")
	for i, g := range groups {
		row := pad(g.Name, 30) + fmt.Sprintf("%d", g.Count)
		if i == m.groupCursor {
			row = st.Selected.Render(row)
		}
		b.WriteString(row + "\n")
	}
	if len(groups) == 0 {
		b.WriteString(st.MutedText.Render("  no groups, or still loading"))
	}
	return m.framePanel(st, b.String())
}

// --- Overlays ---

func (m Model) renderOverlay(st Styles) string {
	switch m.overlay {
	case OverlayPalette:
		return m.renderPalette(st)
	case OverlayJump:
		return m.renderJump(st)
	case OverlayHelp:
		return m.renderHelp(st)
	case OverlayConfirm:
		return m.renderConfirm(st)
	case OverlayGroupPick:
		return m.renderGroupPick(st)
	case OverlaySeverity:
		return st.Overlay.Render(st.TableHeader.Render("severity filter") + "\n" +
			m.overlayInput.View() + m.renderOverlayErr(st))
	case OverlayInterval:
		return st.Overlay.Render(st.TableHeader.Render("time window") + "\n" +
			m.overlayInput.View() + m.renderOverlayErr(st))
	}
	return ""
}

func (m Model) renderOverlayErr(st Styles) string {
	if m.overlayErr == "" {
		return ""
	}
	return "\n" + st.DangerText.Render(m.overlayErr)
}

func (m Model) renderPalette(st Styles) string {
	var b strings.Builder
	b.WriteString(m.paletteInput.View() + "\n\n")
	for i, c := range m.paletteMatches() {
		line := "  " + c.Title
		if i == m.paletteIndex {
			line = st.Selected.Render("> " + c.Title)
		}
		b.WriteString(line + "\n")
	}
	return st.Overlay.Render(b.String())
}

func (m Model) renderJump(st Styles) string {
	var b strings.Builder
	b.WriteString(m.jumpInput.View() + "\n\n")
	ranked := rankJump(m.jumpInput.Value(), m.jumpCorpus)
	const shown = 10
	for i, idx := range ranked {
		if i >= shown {
			break
		}
		line := "  " + m.jumpCorpus[idx]
		if i == m.jumpIndex {
			line = st.Selected.Render("> " + m.jumpCorpus[idx])
		}
		b.WriteString(line + "\n")
	}
	if len(ranked) == 0 {
		b.WriteString(st.MutedText.Render("  no matching agent"))
	}
	return st.Overlay.Render(b.String())
}

func (m Model) renderHelp(st Styles) string {
	rows := [][2]string{
		{"1 2 3 4", "switch view"},
		{"f", "fuzzy-find an agent"},
		{": / ctrl+p", "command palette"},
		{"ctrl+r / F5", "refresh current view"},
		{"T", "cycle theme"},
		{"/", "filter (agents) or find text (events)"},
		{"s S", "cycle / reverse sort (agents), severity (events)"},
		{"space c", "select / clear selection"},
		{"u r a", "upgrade, restart, assign group"},
		{"tab [ ]", "inspector panes"},
		{"v", "raw event JSON"},
		{"i", "event time window"},
		{"x", "export visible events"},
		{"q", "quit"},
	}
	var b strings.Builder
	b.WriteString(st.TableHeader.Render("keys") + "\n")
	for _, r := range rows {
		b.WriteString(st.AccentText.Render(pad(r[0], 14)) + r[1] + "\n")
	}
	return st.Overlay.Render(b.String())
}

func (m Model) renderConfirm(st Styles) string {
	if m.confirm == nil {
		return ""
	}
	c := m.confirm
	text := fmt.Sprintf("%s: %d agent(s)", c.action, len(c.ids))
	if c.group != "" {
		text = fmt.Sprintf("%s %q: %d agent(s)", c.action, c.group, len(c.ids))
	}
	ids := strings.Join(c.ids, ", ")
	return st.Overlay.Render(
		st.WarningText.Render(text) + "\n" +
			st.MutedText.Render(truncate(ids, 60)) + "\n\n" +
			st.Text.Render("y confirm    n cancel"))
}

func (m Model) renderGroupPick(st Styles) string {
	var b strings.Builder
	b.WriteString(st.TableHeader.Render("assign to group") + "\n\n")
	groups := m.groupSnapshot()
	for i, g := range groups {
		line := "  " + g.Name
		if i == m.groupPickIdx {
			line = st.Selected.Render("> " + g.Name)
		}
		b.WriteString(line + "\n")
	}
	if len(groups) == 0 {
		b.WriteString(st.MutedText.Render("  loading groups..."))
	}
	return st.Overlay.Render(b.String())
}

func (m Model) framePanel(st Styles, content string) string {
	height := m.height - 4
	if height < 3 {
		height = 3
	}
	return st.Panel.Width(m.width - 2).Height(height).Render(content)
}
