// Package ui implements the Warden terminal interface: a Bubble Tea model
// whose update loop owns the data store and routes user intents to the
// gateway, the bulk coordinator, and the filter pipeline.
package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wardenhq/warden/internal/bulk"
	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/gateway"
	"github.com/wardenhq/warden/internal/pipeline"
	"github.com/wardenhq/warden/internal/prefs"
	"github.com/wardenhq/warden/internal/store"
)

// View is the active screen.
type View int

const (
	ViewDashboard View = iota
	ViewAgents
	ViewInspector
	ViewEvents
	ViewGroups
)

// Overlay is the active popup. Overlays capture key routing but leave the
// underlying view's model untouched, so closing one restores the exact prior
// state.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayPalette
	OverlayJump
	OverlayHelp
	OverlayConfirm
	OverlayGroupPick
	OverlaySeverity
	OverlayInterval
)

// InspectorTab is the active agent-inspector pane.
type InspectorTab int

const (
	TabHardware InspectorTab = iota
	TabProcesses
	TabPrograms
	TabVulnerabilities
	TabLogs
	TabConfig
)

func (t InspectorTab) String() string {
	switch t {
	case TabProcesses:
		return "Processes"
	case TabPrograms:
		return "Programs"
	case TabVulnerabilities:
		return "Vulnerabilities"
	case TabLogs:
		return "Logs"
	case TabConfig:
		return "Config"
	default:
		return "Hardware"
	}
}

// Next cycles to the following inspector tab.
func (t InspectorTab) Next() InspectorTab { return (t + 1) % 6 }

// Prev cycles to the preceding inspector tab.
func (t InspectorTab) Prev() InspectorTab { return (t + 5) % 6 }

// Options configure the UI.
type Options struct {
	Context   context.Context
	Client    *gateway.Client
	Store     *store.Store
	Config    *config.Config
	Prefs     prefs.Prefs
	PrefsPath string
}

// notification is one transient status line.
type notification struct {
	text  string
	level notifyLevel
	when  time.Time
}

type notifyLevel int

const (
	notifyInfo notifyLevel = iota
	notifySuccess
	notifyWarning
	notifyError
)

// notificationLifetime bounds how long a notification stays on screen.
const notificationLifetime = 5 * time.Second

// confirmState carries a pending bulk action awaiting user confirmation.
type confirmState struct {
	action bulk.Action
	ids    []string
	group  string
}

// dashPollEvery is the dashboard auto-refresh cadence, counted in UI ticks.
const dashPollEvery = 30

// Model is the root application state.
type Model struct {
	ctx       context.Context
	gw        *gateway.Client
	store     *store.Store
	cfg       *config.Config
	prefsPath string
	prefs     prefs.Prefs

	theme Theme
	keys  keyMap

	width  int
	height int
	ready  bool

	view    View
	overlay Overlay
	tab     InspectorTab

	// Agents view
	searchInput textinput.Model
	searching   bool
	filter      pipeline.AgentFilter
	sort        pipeline.Sort
	page        int
	cursor      int
	selection   map[string]struct{}
	agentVM     pipeline.Page

	// Inspector
	inspectID     string
	inspectName   string
	configCompIdx int
	detailView    viewport.Model

	// Events view
	eventWindowMin int
	eventOffset    int
	eventCursor    int
	eventText      textinput.Model
	eventSearching bool
	level          *gateway.LevelFilter
	sevFilter      map[gateway.Severity]bool
	rawView        bool
	rawViewport    viewport.Model

	// Groups view
	groupCursor  int
	memberGroup  string // non-empty while viewing a group's members
	memberCursor int

	// Overlays
	paletteInput  textinput.Model
	paletteIndex  int
	jumpInput     textinput.Model
	jumpIndex     int
	confirm       *confirmState
	groupPickIdx  int
	overlayInput  textinput.Model // severity / interval free-form input
	overlayErr    string
	jumpCorpus    []string // agent "name id ip" triples, rebuilt on cache change
	jumpAgentIDs  []string
	paletteCorpus []paletteCommand

	spinner  spinner.Model
	inflight map[string]struct{} // outstanding fetch request ids
	frame    int

	notifications []notification
	bulkRunning   bool
	quitting      bool
}

// New creates the root model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	p := opts.Prefs

	search := textinput.New()
	search.Placeholder = "name:web st:active os:ubuntu ..."
	search.CharLimit = 120

	eventText := textinput.New()
	eventText.Placeholder = "agent or description text"
	eventText.CharLimit = 120

	palette := textinput.New()
	palette.Placeholder = "command"
	jump := textinput.New()
	jump.Placeholder = "agent name, id, or ip"
	overlayIn := textinput.New()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	windowMin := p.EventWindowMin
	if windowMin <= 0 {
		windowMin = 15
	}

	return Model{
		ctx:            ctx,
		gw:             opts.Client,
		store:          opts.Store,
		cfg:            opts.Config,
		prefsPath:      opts.PrefsPath,
		prefs:          p,
		theme:          ThemeByName(p.Theme),
		keys:           defaultKeyMap(),
		view:           ViewDashboard,
		overlay:        OverlayNone,
		tab:            TabHardware,
		searchInput:    search,
		eventText:      eventText,
		paletteInput:   palette,
		jumpInput:      jump,
		overlayInput:   overlayIn,
		sort:           pipeline.Sort{Key: pipeline.SortID},
		selection:      make(map[string]struct{}),
		inflight:       make(map[string]struct{}),
		eventWindowMin: windowMin,
		spinner:        sp,
		paletteCorpus:  paletteCommands(),
	}
}

// Run starts the program and blocks until quit.
func Run(opts Options) error {
	program := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(opts.Context))
	_, err := program.Run()
	return err
}

// Init kicks off the first frame: the UI tick, the spinner, and the
// dashboard's primary fetches.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(),
		m.spinner.Tick,
	}
	cmds = append(cmds, m.enterView(ViewDashboard)...)
	return tea.Batch(cmds...)
}
