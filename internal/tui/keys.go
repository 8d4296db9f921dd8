package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Clear key.Binding
	Reset key.Binding
	Hint  key.Binding
	Next  key.Binding
	Quit  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Clear: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
		Reset: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		Hint:  key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "hint")),
		Next:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Clear, k.Reset, k.Hint, k.Next, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
