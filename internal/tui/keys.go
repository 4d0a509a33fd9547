package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Run       key.Binding
	Cancel    key.Binding
	Ask       key.Binding
	Preview   key.Binding
	History   key.Binding
	NextField key.Binding
	PrevField key.Binding
	Quit      key.Binding

	Up      key.Binding
	Down    key.Binding
	Restore key.Binding
	Clear   key.Binding
	Back    key.Binding
	Yes     key.Binding
	No      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Run:       key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "run")),
		Cancel:    key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("ctrl+k", "cancel")),
		Ask:       key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "ask AI")),
		Preview:   key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "preview prompt")),
		History:   key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "history")),
		NextField: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		PrevField: key.NewBinding(key.WithKeys("shift+tab")),
		Quit:      key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),

		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Restore: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "restore")),
		Clear:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "clear all")),
		Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Yes:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
		No:      key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "keep")),
	}
}

// mainHelp and historyHelp satisfy help.KeyMap for the two screens.
type mainHelp struct{ k keyMap }

func (h mainHelp) ShortHelp() []key.Binding {
	return []key.Binding{h.k.Run, h.k.Cancel, h.k.Ask, h.k.Preview, h.k.History, h.k.NextField, h.k.Quit}
}

func (h mainHelp) FullHelp() [][]key.Binding { return [][]key.Binding{h.ShortHelp()} }

type historyHelp struct{ k keyMap }

func (h historyHelp) ShortHelp() []key.Binding {
	return []key.Binding{h.k.Up, h.k.Down, h.k.Restore, h.k.Clear, h.k.Back}
}

func (h historyHelp) FullHelp() [][]key.Binding { return [][]key.Binding{h.ShortHelp()} }
