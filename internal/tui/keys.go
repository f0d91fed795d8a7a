package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Save    key.Binding
	Quit    key.Binding
	NextPen key.Binding
	PrevPen key.Binding
	Mark    key.Binding
	Paint   key.Binding
	Erase   key.Binding
	Help    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Save:    key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Quit:    key.NewBinding(key.WithKeys("esc", "ctrl+c", "ctrl+q"), key.WithHelp("esc", "save & quit")),
		NextPen: key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "next pen")),
		PrevPen: key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "prev pen")),
		Mark:    key.NewBinding(key.WithKeys("ctrl+b"), key.WithHelp("ctrl+b", "mark")),
		Paint:   key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("ctrl+k", "paint")),
		Erase:   key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "erase color")),
		Help:    key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "help")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Save, k.NextPen, k.Mark, k.Paint, k.Quit, k.Help}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Mark, k.Paint, k.Erase},
		{k.NextPen, k.PrevPen},
		{k.Save, k.Quit, k.Help},
	}
}
