package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/soniclayer/nowplayd/internal/history"
	"github.com/soniclayer/nowplayd/internal/player"
)

// RecentLister is the slice of the listening log the TUI needs.
type RecentLister interface {
	Recent(limit int) ([]history.Play, error)
}

// Model represents the now-playing TUI state.
type Model struct {
	events <-chan player.Event
	log    RecentLister

	track     *player.TrackSnapshot
	source    string
	stopped   bool
	errNote   string
	elapsedMS int

	showRecent bool
	recent     []history.Play

	width    int
	progress progress.Model
	help     help.Model
	keys     keyMap
}

// keyMap defines the key bindings for the TUI.
type keyMap struct {
	recent key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		recent: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "history"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.recent, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.recent, k.quit}}
}

type eventMsg player.Event

type tickMsg time.Time

type recentMsg struct {
	plays []history.Play
	err   error
}

// NewModel creates a TUI model consuming scheduler events. log may be nil
// when no listening log is configured.
func NewModel(events <-chan player.Event, log RecentLister) *Model {
	return &Model{
		events:   events,
		log:      log,
		progress: progress.New(progress.WithSolidFill("#1DB954")),
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init starts listening for scheduler events and the local progress tick.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), tick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = min(msg.Width-12, 48)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.recent):
			if m.showRecent {
				m.showRecent = false
				return m, nil
			}
			return m, m.fetchRecent()
		}
		return m, nil

	case eventMsg:
		m.applyEvent(player.Event(msg))
		return m, m.waitForEvent()

	case tickMsg:
		if m.track != nil && m.track.Playing && !m.stopped {
			m.elapsedMS += 1000
			if m.track.DurationMS > 0 && m.elapsedMS > m.track.DurationMS {
				m.elapsedMS = m.track.DurationMS
			}
		}
		return m, tick()

	case recentMsg:
		if msg.err == nil {
			m.recent = msg.plays
			m.showRecent = true
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) applyEvent(e player.Event) {
	switch e.Kind {
	case player.EventTrack:
		m.track = e.Track
		m.source = e.Source
		m.stopped = false
		m.errNote = ""
		m.elapsedMS = e.Track.ProgressMS
	case player.EventStopped:
		m.stopped = true
	case player.EventError:
		m.errNote = e.Err.Error()
	}
}

// View renders the now-playing panel.
func (m *Model) View() string {
	var b strings.Builder

	if m.track == nil || m.stopped {
		b.WriteString(styles.dim.Render("Nothing playing"))
	} else {
		b.WriteString(styles.title.Render(m.track.Track))
		b.WriteString("\n")
		b.WriteString(styles.accent.Render(m.track.Artist))
		if m.track.Album != "" {
			b.WriteString(styles.dim.Render(" • " + m.track.Album))
		}
		b.WriteString("\n\n")
		b.WriteString(m.renderTimeline())
	}

	if m.errNote != "" {
		b.WriteString("\n\n")
		b.WriteString(styles.err.Render("! " + m.errNote))
	}

	out := styles.frame.Render(b.String())
	if m.showRecent {
		out += "\n" + m.renderRecent()
	}
	return out + "\n" + styles.help.Render(m.help.View(m.keys))
}

func (m *Model) renderTimeline() string {
	state := "▶"
	if !m.track.Playing {
		state = "⏸"
	}

	if m.track.DurationMS <= 0 {
		return fmt.Sprintf("%s %s", state, clock(m.elapsedMS))
	}

	pct := float64(m.elapsedMS) / float64(m.track.DurationMS)
	if pct > 1 {
		pct = 1
	}
	return fmt.Sprintf("%s %s %s %s",
		state,
		clock(m.elapsedMS),
		m.progress.ViewAs(pct),
		clock(m.track.DurationMS),
	)
}

func (m *Model) renderRecent() string {
	if len(m.recent) == 0 {
		return styles.dim.Render("  no plays recorded yet")
	}

	var b strings.Builder
	b.WriteString(styles.accent.Render("Recent plays"))
	for _, p := range m.recent {
		b.WriteString(fmt.Sprintf("\n  %s  %s — %s",
			styles.dim.Render(p.PlayedAt.Local().Format("15:04")),
			p.Title,
			p.Artist,
		))
	}
	return b.String()
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		e, ok := <-m.events
		if !ok {
			return tea.Quit()
		}
		return eventMsg(e)
	}
}

func (m *Model) fetchRecent() tea.Cmd {
	return func() tea.Msg {
		if m.log == nil {
			return recentMsg{}
		}
		plays, err := m.log.Recent(10)
		return recentMsg{plays: plays, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// clock formats milliseconds as m:ss.
func clock(ms int) string {
	s := ms / 1000
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
