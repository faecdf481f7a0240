package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Forward   key.Binding
	Back      key.Binding
	Left      key.Binding
	Right     key.Binding
	TurnLeft  key.Binding
	TurnRight key.Binding
	Compose   key.Binding
	Submit    key.Binding
	Cancel    key.Binding
	Auth      key.Binding
	Quit      key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Forward:   key.NewBinding(key.WithKeys("w", "up"), key.WithHelp("w/↑", "forward")),
		Back:      key.NewBinding(key.WithKeys("s", "down"), key.WithHelp("s/↓", "back")),
		Left:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "strafe left")),
		Right:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "strafe right")),
		TurnLeft:  key.NewBinding(key.WithKeys("q", "left"), key.WithHelp("q/←", "turn left")),
		TurnRight: key.NewBinding(key.WithKeys("e", "right"), key.WithHelp("e/→", "turn right")),
		Compose:   key.NewBinding(key.WithKeys("/", "?"), key.WithHelp("/", "new note")),
		Submit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "drop note")),
		Cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Auth:      key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "sign in/out")),
		Quit:      key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	}
}

func (k keyMap) help(inputOpen bool) []key.Binding {
	if inputOpen {
		return []key.Binding{k.Submit, k.Cancel}
	}
	return []key.Binding{k.Forward, k.Back, k.TurnLeft, k.TurnRight, k.Compose, k.Auth, k.Quit}
}
