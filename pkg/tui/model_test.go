package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"oscope-go/pkg/scope"
)

type fakeControls struct {
	calls  []string
	status scope.Status
	single bool
	err    error
}

func (f *fakeControls) Status() (scope.Status, error) { return f.status, f.err }
func (f *fakeControls) ToggleRun() error {
	f.calls = append(f.calls, "run")
	return f.err
}
func (f *fakeControls) Single() (bool, error) {
	f.calls = append(f.calls, "single")
	return f.single, f.err
}
func (f *fakeControls) StepHScale(d int) error {
	f.calls = append(f.calls, "h"+sign(d))
	return f.err
}
func (f *fakeControls) ToggleChannel(ch int) error {
	f.calls = append(f.calls, "ch"+string(rune('0'+ch)))
	return f.err
}
func (f *fakeControls) StepVScale(ch, d int) error {
	f.calls = append(f.calls, "v"+string(rune('0'+ch))+sign(d))
	return f.err
}

func sign(d int) string {
	if d < 0 {
		return "-"
	}
	return "+"
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and runs the resulting command, feeding its message
// back into the model.
func press(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Msg) {
	t.Helper()
	next, cmd := m.Update(k)
	m = next.(Model)
	if cmd == nil {
		return m, nil
	}
	msg := cmd()
	if _, ok := msg.(tea.QuitMsg); ok {
		return m, msg
	}
	next, _ = m.Update(msg)
	return next.(Model), msg
}

func TestKeyBindings(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"r", "run"},
		{"s", "single"},
		{"h", "h-"},
		{"H", "h+"},
		{"1", "ch0"},
		{"2", "ch1"},
		{"[", "v0-"},
		{"]", "v0+"},
		{"{", "v1-"},
		{"}", "v1+"},
	}
	for _, tt := range tests {
		f := &fakeControls{single: true}
		m := New(f, 0)
		press(t, m, runes(tt.key))
		if len(f.calls) != 1 || f.calls[0] != tt.want {
			t.Errorf("key %q: calls = %v, want [%s]", tt.key, f.calls, tt.want)
		}
	}
}

func TestQuit(t *testing.T) {
	for _, k := range []tea.KeyMsg{runes("q"), {Type: tea.KeyCtrlC}} {
		_, msg := press(t, New(&fakeControls{}, 0), k)
		if _, ok := msg.(tea.QuitMsg); !ok {
			t.Errorf("key %q did not quit (got %T)", k.String(), msg)
		}
	}
}

func TestSingleRefusedNote(t *testing.T) {
	m, _ := press(t, New(&fakeControls{single: false}, 0), runes("s"))
	if !strings.Contains(m.note, "stopped") {
		t.Errorf("note = %q", m.note)
	}
}

func TestView(t *testing.T) {
	f := &fakeControls{status: scope.Status{
		Mode:   "armed_single",
		Online: true,
		HScale: "1mS",
		Channels: []scope.ChannelStatus{
			{Index: 0, Enabled: true, Label: "CH1 500mV"},
			{Index: 1, Enabled: false, Label: "CH2 2V", OffsetPercent: 50},
		},
	}}
	m := New(f, 0)
	if !strings.Contains(m.View(), "waiting") {
		t.Error("view before first status should say waiting")
	}

	next, _ := m.Update(m.poll()())
	m = next.(Model)
	view := m.View()
	for _, want := range []string{"online", "ARMED SINGLE", "1mS/div", "CH1 500mV", "CH2 2V", "50%"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestErrorShown(t *testing.T) {
	f := &fakeControls{err: errors.New("reactor: reactor closed")}
	m, _ := press(t, New(f, 0), runes("r"))
	if !strings.Contains(m.View(), "reactor closed") {
		t.Errorf("error not shown:\n%s", m.View())
	}
}

func TestHelpToggle(t *testing.T) {
	m := New(&fakeControls{}, 0)
	m, _ = press(t, m, runes("?"))
	if !m.help.ShowAll {
		t.Error("? should expand help")
	}
	if !strings.Contains(m.View(), "CH2 finer") {
		t.Error("full help missing channel keys")
	}
}
