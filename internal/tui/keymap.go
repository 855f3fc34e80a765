// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings of the interactive front end.
type KeyMap struct {
	// Expand expands the query typed in the query box.
	Expand key.Binding

	// Search runs the search with the selected terms.
	Search key.Binding

	// Toggle selects or deselects the term under the cursor.
	Toggle key.Binding

	// Focus switches between the query box and the term list.
	Focus key.Binding

	Up   key.Binding
	Down key.Binding

	// More and Less adjust the number of results shown.
	More key.Binding
	Less key.Binding

	// ScrollUp and ScrollDown page through the results.
	ScrollUp   key.Binding
	ScrollDown key.Binding

	Quit key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Expand: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "expand query"),
		),
		Search: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "search with selected"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "x"),
			key.WithHelp("space", "toggle term"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "query/terms"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		More: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+/-", "top n"),
		),
		Less: key.NewBinding(
			key.WithKeys("-", "_"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup/pgdn", "scroll results"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("pgdown"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("esc", "quit"),
		),
	}
}

// helpBindings lists the bindings shown in the help line.
func (k KeyMap) helpBindings() []key.Binding {
	return []key.Binding{k.Expand, k.Focus, k.Toggle, k.Search, k.More, k.ScrollUp, k.Quit}
}
