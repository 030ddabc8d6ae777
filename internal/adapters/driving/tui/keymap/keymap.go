// Package keymap defines keybindings for the sync progress view.
package keymap

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
)

// Ensure KeyMap can drive a help.Model.
var _ help.KeyMap = (*KeyMap)(nil)

// KeyMap holds the progress view bindings.
type KeyMap struct {
	// Quit cancels a running pass, or exits once the pass has finished.
	Quit key.Binding

	// Help toggles the expanded help.
	Help key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "cancel and quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

// ShortHelp is shown under the progress bar while a pass runs.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Help}
}

// FullHelp is shown when help is toggled on.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Quit}, {k.Help}}
}

// AfterPass switches Quit to its finished-pass meaning.
func (k *KeyMap) AfterPass() {
	k.Quit.SetHelp("q", "quit")
	k.Help.SetEnabled(false)
}
