package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the graph view bindings. It implements help.KeyMap.
type keyMap struct {
	Quit    key.Binding
	Reheat  key.Binding
	Reload  key.Binding
	Reset   key.Binding
	ZoomIn  key.Binding
	ZoomOut key.Binding
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	Save    key.Binding
	Copy    key.Binding
	Detail  key.Binding
	Labels  key.Binding
	Help    key.Binding
	Close   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Reheat:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reheat")),
		Reload:  key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reload data")),
		Reset:   key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "reset zoom")),
		ZoomIn:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
		ZoomOut: key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "zoom out")),
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "pan up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "pan down")),
		Left:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "pan left")),
		Right:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "pan right")),
		Save:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save svg")),
		Copy:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy id")),
		Detail:  key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "details")),
		Labels:  key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "labels")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Close:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Reheat, k.ZoomIn, k.ZoomOut, k.Reset, k.Save, k.Help}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.ZoomIn, k.ZoomOut, k.Reset},
		{k.Reheat, k.Reload, k.Labels},
		{k.Detail, k.Copy, k.Save},
		{k.Help, k.Close, k.Quit},
	}
}
