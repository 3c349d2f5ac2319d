package tui

import "charm.land/bubbles/v2/key"

// keyMap represents key map data used by this package.
type keyMap struct {
	quit       key.Binding
	toggleHelp key.Binding
	nextField  key.Binding
	prevField  key.Binding
	nextOption key.Binding
	prevOption key.Binding
	submit     key.Binding
	copyReport key.Binding
	clear      key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		toggleHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		nextField:  key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab/↓", "next field")),
		prevField:  key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab/↑", "previous field")),
		nextOption: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next option")),
		prevOption: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "previous option")),
		submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "check")),
		copyReport: key.NewBinding(key.WithKeys("y", "ctrl+y"), key.WithHelp("y", "copy report")),
		clear:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear result")),
	}
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.nextField, k.nextOption, k.submit, k.copyReport, k.quit}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.nextField, k.prevField, k.nextOption, k.prevOption},
		{k.submit, k.copyReport, k.clear, k.toggleHelp, k.quit},
	}
}

// textEntryKeys lists bindings still honored while the date field has focus.
// Plain runes such as q, h, l and y are typed into the field instead.
func (k keyMap) textEntryKeys() keyMap {
	k.quit = key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit"))
	k.nextField = key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab/↓", "next field"))
	k.nextOption = key.NewBinding(key.WithDisabled())
	k.prevOption = key.NewBinding(key.WithDisabled())
	k.copyReport = key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy report"))
	k.toggleHelp = key.NewBinding(key.WithDisabled())
	return k
}
