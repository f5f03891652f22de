package board

import (
	"context"
	"github.com/charmbracelet/bubbles/key"
	"github.com/maxaizer/recruit-pipeline/internal/domain/models"
	"slices"
)

type KeyMap struct {
	Approve  key.Binding
	Reject   key.Binding
	Previous key.Binding
	Next     key.Binding
	Close    key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Approve: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "approva"),
		),
		Reject: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rifiuta"),
		),
		Previous: key.NewBinding(
			key.WithKeys("k", "up", "left"),
			key.WithHelp("↑/k", "precedente"),
		),
		Next: key.NewBinding(
			key.WithKeys("j", "down", "right"),
			key.WithHelp("↓/j", "successiva"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "chiudi"),
		),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Approve, k.Reject, k.Previous, k.Next, k.Close}
}

func (k *KeyMap) setEnabled(enabled bool) {
	for _, binding := range []*key.Binding{&k.Approve, &k.Reject, &k.Previous, &k.Next, &k.Close} {
		binding.SetEnabled(enabled)
	}
}

// KeyEvent is a key press forwarded by the host shell. Key uses the same names as the bindings ("a", "up", "esc").
type KeyEvent struct {
	Key          string
	Ctrl         bool
	Alt          bool
	Meta         bool
	InputFocused bool
}

func (e KeyEvent) String() string {
	return e.Key
}

func (b *Board) Keys() KeyMap {
	keys := b.keys
	keys.setEnabled(b.options.KeyboardShortcuts)
	return keys
}

// HandleKey runs the shortcut bound to ev against the active proposal and reports whether ev was consumed.
// Keys typed into a focused input, keys with modifiers and keys pressed without an active proposal pass through.
func (b *Board) HandleKey(ctx context.Context, ev KeyEvent) (bool, error) {
	if ev.InputFocused || ev.Ctrl || ev.Alt || ev.Meta {
		return false, nil
	}

	id, ok := b.Active()
	if !ok {
		return false, nil
	}

	keys := b.Keys()
	switch {
	case key.Matches(ev, keys.Approve):
		return true, b.shortcutTransition(ctx, id, models.StatusApproved)
	case key.Matches(ev, keys.Reject):
		return true, b.shortcutTransition(ctx, id, models.StatusRejected)
	case key.Matches(ev, keys.Previous):
		b.step(id, -1)
		return true, nil
	case key.Matches(ev, keys.Next):
		b.step(id, 1)
		return true, nil
	case key.Matches(ev, keys.Close):
		b.Close()
		return true, nil
	}
	return false, nil
}

func (b *Board) shortcutTransition(ctx context.Context, id string, target models.Status) error {
	p, ok := b.store.Get(id)
	if !ok {
		b.Close()
		return nil
	}
	if p.Status == target {
		return nil
	}
	return b.transition(ctx, p, target)
}

// step moves the active proposal by delta within the rendered order, stopping at either end.
func (b *Board) step(id string, delta int) {
	order := b.Order()
	if len(order) == 0 {
		return
	}

	index := slices.Index(order, id)
	switch {
	case index < 0 && delta > 0:
		index = 0
	case index < 0:
		index = len(order) - 1
	default:
		index = min(max(index+delta, 0), len(order)-1)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = order[index]
}
