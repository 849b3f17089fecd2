package watch

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/hearth/internal/events"
)

// Model is the BubbleTea model of hearth watch.
type Model struct {
	apiURL string
	apiKey string

	width  int
	height int

	health        HealthState
	schedule      *scheduleMsg
	scheduleStale bool
	failures      map[string]*Failure
	eventLog      []events.Event

	ticker Ticker
	fps    Sparkline
	table  table.Model
	theme  Theme
	now    func() time.Time

	hubEvents chan events.Event
	lastError string
}

// New creates a watch model for the API at apiURL.
func New(apiURL, apiKey string) *Model {
	theme := NewDefaultTheme()
	return &Model{
		apiURL:    apiURL,
		apiKey:    apiKey,
		failures:  make(map[string]*Failure),
		hubEvents: make(chan events.Event, 100),
		ticker:    NewTicker(),
		fps:       NewSparkline(40),
		table:     newScheduleTable(theme),
		theme:     theme,
		now:       time.Now,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		subscribeToEvents(m.apiURL, m.apiKey, m.hubEvents),
		receiveNextEvent(m.hubEvents),
		func() tea.Msg { return fetchHealth(m.apiURL, m.apiKey) },
		func() tea.Msg { return fetchSchedule(m.apiURL, m.apiKey) },
		tea.Tick(time.Second, func(t time.Time) tea.Msg { return clockMsg(t) }),
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, func() tea.Msg { return fetchSchedule(m.apiURL, m.apiKey) }
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(m.width - 6)

	case clockMsg:
		return m, tea.Tick(time.Second, func(t time.Time) tea.Msg { return clockMsg(t) })

	case eventMsg:
		e := events.Event(msg)
		m.eventLog = append([]events.Event{e}, m.eventLog...)
		if len(m.eventLog) > 50 {
			m.eventLog = m.eventLog[:50]
		}
		m.applyEvent(e, m.now())
		m.health.Connected = true
		m.lastError = ""

		cmds := []tea.Cmd{receiveNextEvent(m.hubEvents)}
		if m.scheduleStale {
			m.scheduleStale = false
			cmds = append(cmds, func() tea.Msg { return fetchSchedule(m.apiURL, m.apiKey) })
		}
		return m, tea.Batch(cmds...)

	case healthMsg:
		m.health.Status = msg.Status
		m.health.UptimeSeconds = msg.UptimeSeconds
		m.health.BootID = msg.BootID
		m.health.Running = msg.Running
		m.health.Tick = max(m.health.Tick, msg.Tick)
		m.health.Connected = true
		m.health.LastCheck = m.now()
		m.lastError = ""
		return m, tea.Tick(5*time.Second, func(time.Time) tea.Msg {
			return fetchHealth(m.apiURL, m.apiKey)
		})

	case scheduleMsg:
		m.schedule = &msg
		m.table.SetRows(scheduleRows(msg))

	case sseDisconnectedMsg:
		m.health.Connected = false
		m.lastError = "event stream disconnected, reconnecting..."
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg { return reconnectMsg{} })

	case reconnectMsg:
		return m, subscribeToEvents(m.apiURL, m.apiKey, m.hubEvents)

	case errMsg:
		m.lastError = msg.Error()
		return m, tea.Tick(5*time.Second, func(time.Time) tea.Msg {
			return fetchHealth(m.apiURL, m.apiKey)
		})
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	parts := []string{
		renderHeader(m.health, m.ticker, m.fps, m.theme, m.width, m.now()),
		renderSchedule(m.table, m.schedule, m.theme, m.width),
	}
	if f := renderFailures(m.sortedFailures(), m.theme, m.width); f != "" {
		parts = append(parts, f)
	}
	parts = append(parts, renderEventStream(m.eventLog, m.theme, m.width))
	if m.lastError != "" {
		parts = append(parts, m.theme.StatusFailed.Render(fmt.Sprintf(" ! %s", m.lastError)))
	}
	parts = append(parts, lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render(" [q] Quit • [r] Reload schedule • [↑/↓] Scroll"))

	return lipgloss.NewStyle().Margin(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}
