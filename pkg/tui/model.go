// Package tui is a terminal control panel for a running scope. It shows
// the live session status and maps keys onto the scope's controls.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"oscope-go/pkg/scope"
)

// Controls is what the panel drives. *scope.Remote implements it.
type Controls interface {
	Status() (scope.Status, error)
	ToggleRun() error
	Single() (bool, error)
	StepHScale(delta int) error
	ToggleChannel(ch int) error
	StepVScale(ch, delta int) error
}

// DefaultRefresh is the status poll period.
const DefaultRefresh = 200 * time.Millisecond

type statusMsg struct {
	status scope.Status
	err    error
}

type actionMsg struct {
	note string
	err  error
}

type tickMsg struct{}

// Model is the bubbletea model.
type Model struct {
	ctl     Controls
	refresh time.Duration
	help    help.Model

	status scope.Status
	seen   bool
	note   string
	err    error
	width  int
}

// New creates a model polling ctl every refresh.
func New(ctl Controls, refresh time.Duration) Model {
	if refresh <= 0 {
		refresh = DefaultRefresh
	}
	return Model{ctl: ctl, refresh: refresh, help: help.New()}
}

// Run starts the panel and blocks until the user quits.
func Run(ctl Controls, refresh time.Duration) error {
	_, err := tea.NewProgram(New(ctl, refresh), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.poll(), m.tick())
}

func (m Model) poll() tea.Cmd {
	return func() tea.Msg {
		st, err := m.ctl.Status()
		return statusMsg{status: st, err: err}
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(time.Time) tea.Msg { return tickMsg{} })
}

// act runs fn off the UI goroutine and refreshes the status after it.
func act(note string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{note: note, err: fn()}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.poll(), m.tick())

	case statusMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.status
			m.seen = true
		}
		return m, nil

	case actionMsg:
		m.note = msg.note
		m.err = msg.err
		return m, m.poll()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, keys.Run):
		return m, act("run/stop", m.ctl.ToggleRun)
	case key.Matches(msg, keys.Single):
		return m, func() tea.Msg {
			ok, err := m.ctl.Single()
			note := "single armed"
			if err == nil && !ok {
				note = "single needs a stopped scope with a channel on"
			}
			return actionMsg{note: note, err: err}
		}
	case key.Matches(msg, keys.HScaleDn):
		return m, act("timebase", func() error { return m.ctl.StepHScale(-1) })
	case key.Matches(msg, keys.HScaleUp):
		return m, act("timebase", func() error { return m.ctl.StepHScale(+1) })
	case key.Matches(msg, keys.Ch1):
		return m, act("CH1", func() error { return m.ctl.ToggleChannel(0) })
	case key.Matches(msg, keys.Ch2):
		return m, act("CH2", func() error { return m.ctl.ToggleChannel(1) })
	case key.Matches(msg, keys.Ch1VScale):
		return m, act("CH1 scale", func() error { return m.ctl.StepVScale(0, -1) })
	case key.Matches(msg, keys.Ch1VFine):
		return m, act("CH1 scale", func() error { return m.ctl.StepVScale(0, +1) })
	case key.Matches(msg, keys.Ch2VScale):
		return m, act("CH2 scale", func() error { return m.ctl.StepVScale(1, -1) })
	case key.Matches(msg, keys.Ch2VFine):
		return m, act("CH2 scale", func() error { return m.ctl.StepVScale(1, +1) })
	}
	return m, nil
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")).
			Background(lipgloss.Color("#444444")).Padding(0, 1)
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#aaaaaa")).Padding(0, 1)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	onlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00cc00")).Bold(true)
	offlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#cc0000")).Bold(true)
	offStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#555555"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5555"))
	channelStyle = [scope.NumChannels]lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("#ffff00")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")),
	}
)

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("oscope"))
	b.WriteString("\n\n")

	if !m.seen {
		b.WriteString("waiting for scope...\n")
	} else {
		b.WriteString(m.statusView())
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(errStyle.Render("ERROR: "+m.err.Error()) + "\n")
	} else if m.note != "" {
		b.WriteString(labelStyle.Render(m.note) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}

func (m Model) statusView() string {
	st := m.status
	link := offlineStyle.Render("offline")
	if st.Online {
		link = onlineStyle.Render("online")
	}
	lines := []string{
		fmt.Sprintf("%s %s   %s %s", labelStyle.Render("link"), link,
			labelStyle.Render("mode"), strings.ToUpper(strings.ReplaceAll(st.Mode, "_", " "))),
		fmt.Sprintf("%s %s/div", labelStyle.Render("time"), st.HScale),
		fmt.Sprintf("%s %d   %s %d", labelStyle.Render("frames"), st.Frames, labelStyle.Render("sweeps"), st.Sweeps),
		"",
	}
	for _, ch := range st.Channels {
		style := offStyle
		state := "off"
		if ch.Enabled {
			state = "on "
			if ch.Index < len(channelStyle) {
				style = channelStyle[ch.Index]
			}
		}
		pending := ""
		if ch.Pending {
			pending = labelStyle.Render(" pending")
		}
		lines = append(lines, fmt.Sprintf("%s %s  offset %3.0f%%%s",
			style.Render(fmt.Sprintf("%-10s", ch.Label)), state, ch.OffsetPercent, pending))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}
