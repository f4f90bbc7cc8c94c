package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Run       key.Binding
	Single    key.Binding
	HScaleDn  key.Binding
	HScaleUp  key.Binding
	Ch1       key.Binding
	Ch2       key.Binding
	Ch1VScale key.Binding
	Ch1VFine  key.Binding
	Ch2VScale key.Binding
	Ch2VFine  key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Run, k.Single, k.HScaleDn, k.HScaleUp, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Run, k.Single, k.Quit, k.Help},
		{k.HScaleDn, k.HScaleUp},
		{k.Ch1, k.Ch1VScale, k.Ch1VFine},
		{k.Ch2, k.Ch2VScale, k.Ch2VFine},
	}
}

var keys = keyMap{
	Run: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "run/stop"),
	),
	Single: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "single"),
	),
	HScaleDn: key.NewBinding(
		key.WithKeys("h"),
		key.WithHelp("h", "faster timebase"),
	),
	HScaleUp: key.NewBinding(
		key.WithKeys("H"),
		key.WithHelp("H", "slower timebase"),
	),
	Ch1: key.NewBinding(
		key.WithKeys("1"),
		key.WithHelp("1", "CH1 on/off"),
	),
	Ch2: key.NewBinding(
		key.WithKeys("2"),
		key.WithHelp("2", "CH2 on/off"),
	),
	Ch1VScale: key.NewBinding(
		key.WithKeys("["),
		key.WithHelp("[", "CH1 coarser"),
	),
	Ch1VFine: key.NewBinding(
		key.WithKeys("]"),
		key.WithHelp("]", "CH1 finer"),
	),
	Ch2VScale: key.NewBinding(
		key.WithKeys("{"),
		key.WithHelp("{", "CH2 coarser"),
	),
	Ch2VFine: key.NewBinding(
		key.WithKeys("}"),
		key.WithHelp("}", "CH2 finer"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "more keys"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
