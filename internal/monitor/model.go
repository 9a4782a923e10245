package monitor

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/willi-kappler/iridium-weatherstation/internal/api"
	"github.com/willi-kappler/iridium-weatherstation/internal/ui"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(ui.PrimaryColor).
			Bold(true).
			PaddingLeft(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(ui.MutedColor).
			PaddingLeft(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(ui.ErrorColor).
			PaddingLeft(1)
)

// columns shown per station; the measurement keys come from api.RecordView
var columns = []struct {
	title string
	width int
	kind  string
	key   string
}{
	{"Station", 16, "", ""},
	{"Last record", 20, "", ""},
	{"Solar V", 8, "logger_status", "solar_battery"},
	{"Lithium V", 9, "logger_status", "lithium_battery"},
	{"Air °C", 7, "weather", "air_temperature"},
	{"RH %", 7, "weather", "air_relative_humidity"},
	{"Wind m/s", 8, "weather", "wind_speed"},
	{"Dir °", 6, "weather", "wind_direction"},
	{"hPa", 7, "weather", "air_pressure"},
	{"Records", 8, "", ""},
}

type keyMap struct {
	Up   key.Binding
	Down key.Binding
	Quit key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Quit}}
}

// stationState is what the monitor knows about one station
type stationState struct {
	name     string
	last     string
	records  int
	latest   map[string]api.RecordView // by kind
	received time.Time
}

type eventMsg api.Event

type feedClosedMsg struct{ err error }

// Model is the bubbletea model of the live monitor
type Model struct {
	url      string
	events   <-chan api.Event
	feedErr  func() error
	table    table.Model
	help     help.Model
	keys     keyMap
	stations map[string]*stationState
	total    int
	err      error
}

// NewModel creates a monitor reading from events. feedErr reports why the
// event channel was closed.
func NewModel(url string, events <-chan api.Event, feedErr func() error) Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{Title: c.title, Width: c.width}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ui.MutedColor).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(ui.TextColor).
		Background(ui.PrimaryColor)
	t.SetStyles(styles)

	return Model{
		url:     url,
		events:  events,
		feedErr: feedErr,
		table:   t,
		help:    help.New(),
		keys: keyMap{
			Up: key.NewBinding(
				key.WithKeys("up", "k"),
				key.WithHelp("↑/k", "up"),
			),
			Down: key.NewBinding(
				key.WithKeys("down", "j"),
				key.WithHelp("↓/j", "down"),
			),
			Quit: key.NewBinding(
				key.WithKeys("q", "ctrl+c"),
				key.WithHelp("q", "quit"),
			),
		},
		stations: make(map[string]*stationState),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.events
		if !ok {
			var err error
			if m.feedErr != nil {
				err = m.feedErr()
			}
			return feedClosedMsg{err: err}
		}
		return eventMsg(event)
	}
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		// Title, status and help take four lines
		m.table.SetHeight(max(msg.Height-4, 3))
		m.help.Width = msg.Width

	case eventMsg:
		m.apply(api.Event(msg))
		m.table.SetRows(m.rows())
		return m, m.waitForEvent()

	case feedClosedMsg:
		m.err = msg.err
		if m.err == nil {
			m.err = fmt.Errorf("feed closed")
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) apply(event api.Event) {
	s, ok := m.stations[event.Station]
	if !ok {
		s = &stationState{name: event.Station, latest: make(map[string]api.RecordView)}
		m.stations[event.Station] = s
	}

	s.records++
	s.received = event.Received
	s.latest[event.Kind] = event.Record
	if ts, ok := event.Record["timestamp"].(string); ok && ts > s.last {
		s.last = ts
	}
	m.total++
}

func (m Model) rows() []table.Row {
	names := make([]string, 0, len(m.stations))
	for name := range m.stations {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]table.Row, 0, len(names))
	for _, name := range names {
		s := m.stations[name]
		row := make(table.Row, len(columns))
		for i, c := range columns {
			switch {
			case i == 0:
				row[i] = s.name
			case i == 1:
				row[i] = s.last
			case c.key == "":
				row[i] = strconv.Itoa(s.records)
			default:
				row[i] = formatCell(s.latest[c.kind], c.key)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// formatCell renders a measurement; null values are shown as a dash
func formatCell(rec api.RecordView, key string) string {
	if rec == nil {
		return ""
	}
	v, ok := rec[key].(float64)
	if !ok {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// View implements tea.Model
func (m Model) View() string {
	title := titleStyle.Render("Iridium weather stations  " + m.url)

	status := statusStyle.Render(fmt.Sprintf("%d stations, %d records", len(m.stations), m.total))
	if m.err != nil {
		status = errorStyle.Render(fmt.Sprintf("%s %v", ui.FailureMarker, m.err))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.table.View(),
		status,
		m.help.View(m.keys),
	)
}

// Run connects to the feed and runs the monitor until the user quits
func Run(ctx context.Context, url string) error {
	feed, err := Dial(ctx, url)
	if err != nil {
		return err
	}
	defer feed.Close()

	p := tea.NewProgram(NewModel(url, feed.Events(), feed.Err), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
