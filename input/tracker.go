package input

import "sort"

// Tracker records which keys and mouse buttons are currently held. It is owned by a single
// Synthesizer and is not safe for concurrent use.
type Tracker struct {
	keys    map[Key]struct{}
	buttons map[Button]struct{}
}

// State is an immutable snapshot of a Tracker.
type State struct {
	Keys    []Key
	Buttons []Button
}

// Mask is the OR of the masks of all held buttons.
func (s State) Mask() ButtonMask {
	var m ButtonMask
	for _, b := range s.Buttons {
		m |= b.Mask()
	}
	return m
}

// Empty reports whether nothing is held.
func (s State) Empty() bool {
	return len(s.Keys) == 0 && len(s.Buttons) == 0
}

func NewTracker() *Tracker {
	return &Tracker{
		keys:    make(map[Key]struct{}),
		buttons: make(map[Button]struct{}),
	}
}

func (t *Tracker) PressKey(k Key) { t.keys[k] = struct{}{} }

func (t *Tracker) ReleaseKey(k Key) { delete(t.keys, k) }

func (t *Tracker) PressButton(b Button) { t.buttons[b] = struct{}{} }

func (t *Tracker) ReleaseButton(b Button) { delete(t.buttons, b) }

func (t *Tracker) KeyHeld(k Key) bool {
	_, ok := t.keys[k]
	return ok
}

func (t *Tracker) ButtonHeld(b Button) bool {
	_, ok := t.buttons[b]
	return ok
}

// Clear forgets everything that is held.
func (t *Tracker) Clear() {
	t.keys = make(map[Key]struct{})
	t.buttons = make(map[Button]struct{})
}

// Snapshot returns the held keys and buttons in ascending order.
func (t *Tracker) Snapshot() State {
	s := State{
		Keys:    make([]Key, 0, len(t.keys)),
		Buttons: make([]Button, 0, len(t.buttons)),
	}
	for k := range t.keys {
		s.Keys = append(s.Keys, k)
	}
	for b := range t.buttons {
		s.Buttons = append(s.Buttons, b)
	}
	sort.Slice(s.Keys, func(i, j int) bool { return s.Keys[i] < s.Keys[j] })
	sort.Slice(s.Buttons, func(i, j int) bool { return s.Buttons[i] < s.Buttons[j] })
	return s
}
