package input

import (
	"fmt"
	"strings"
)

// Kind identifies the variant of an Event.
type Kind int

const (
	KindKey Kind = iota + 1
	KindMouseButton
	KindMouseMotion
)

func (k Kind) String() string {
	switch k {
	case KindKey:
		return "key"
	case KindMouseButton:
		return "mouse_button"
	case KindMouseMotion:
		return "mouse_motion"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Modifiers are the qualifier flags attached to every event.
type Modifiers struct {
	Alt     bool `json:"alt"`
	Shift   bool `json:"shift"`
	Control bool `json:"control"`
	Meta    bool `json:"meta"`
}

// Or combines two sets of flags.
func (m Modifiers) Or(o Modifiers) Modifiers {
	return Modifiers{
		Alt:     m.Alt || o.Alt,
		Shift:   m.Shift || o.Shift,
		Control: m.Control || o.Control,
		Meta:    m.Meta || o.Meta,
	}
}

func (m Modifiers) without(key Key) Modifiers {
	switch key {
	case KeyAlt:
		m.Alt = false
	case KeyShift:
		m.Shift = false
	case KeyControl:
		m.Control = false
	case KeyMeta:
		m.Meta = false
	}
	return m
}

func (m Modifiers) prefix() string {
	var b strings.Builder
	if m.Control {
		b.WriteString("Control+")
	}
	if m.Meta {
		b.WriteString("Meta+")
	}
	if m.Alt {
		b.WriteString("Alt+")
	}
	if m.Shift {
		b.WriteString("Shift+")
	}
	return b.String()
}

// Modifier is a flag that can be passed explicitly to a key press or release, for a modifier that
// is considered held even though no key event was sent for it.
type Modifier int

const (
	ModShift Modifier = iota + 1
	ModControl
	ModAlt
	ModMeta
)

// ParseModifier resolves "shift", "ctrl" (or "control"), "alt" and "meta", ignoring case.
func ParseModifier(name string) (Modifier, error) {
	switch strings.ToLower(name) {
	case "shift":
		return ModShift, nil
	case "ctrl", "control":
		return ModControl, nil
	case "alt":
		return ModAlt, nil
	case "meta":
		return ModMeta, nil
	}
	return 0, &InvalidInputError{Kind: "modifier", Name: name}
}

func modifiersOf(key Key, held []Modifier) Modifiers {
	m := Modifiers{
		Alt:     key == KeyAlt,
		Shift:   key == KeyShift,
		Control: key == KeyControl,
		Meta:    key == KeyMeta,
	}
	for _, h := range held {
		switch h {
		case ModShift:
			m.Shift = true
		case ModControl:
			m.Control = true
		case ModAlt:
			m.Alt = true
		case ModMeta:
			m.Meta = true
		}
	}
	return m
}

// Event is one synthesized input event: a KeyEvent, MouseButtonEvent or MouseMotionEvent.
type Event interface {
	Kind() Kind
	Mods() Modifiers
	// AsText renders the event for trace output.
	AsText() string
	withMods(Modifiers) Event
}

// KeyEvent is a key press or release.
type KeyEvent struct {
	Key       Key
	Pressed   bool
	Modifiers Modifiers
}

// MouseButtonEvent is a mouse button press or release at a position.
type MouseButtonEvent struct {
	Button         Button
	Pressed        bool
	DoubleClick    bool
	Position       Vector2
	GlobalPosition Vector2
	Mask           ButtonMask
	Modifiers      Modifiers
}

// MouseMotionEvent moves the cursor to Position.
type MouseMotionEvent struct {
	Position       Vector2
	GlobalPosition Vector2
	Relative       Vector2
	Mask           ButtonMask
	Modifiers      Modifiers
}

func (e KeyEvent) Kind() Kind { return KindKey }

func (e KeyEvent) Mods() Modifiers { return e.Modifiers }

func (e KeyEvent) withMods(m Modifiers) Event {
	e.Modifiers = m
	return e
}

func (e MouseButtonEvent) Kind() Kind { return KindMouseButton }

func (e MouseButtonEvent) Mods() Modifiers { return e.Modifiers }

func (e MouseButtonEvent) withMods(m Modifiers) Event {
	e.Modifiers = m
	return e
}

func (e MouseMotionEvent) Kind() Kind { return KindMouseMotion }

func (e MouseMotionEvent) Mods() Modifiers { return e.Modifiers }

func (e MouseMotionEvent) withMods(m Modifiers) Event {
	e.Modifiers = m
	return e
}

func (e KeyEvent) AsText() string {
	state := "released"
	if e.Pressed {
		state = "pressed"
	}
	text := e.Modifiers.prefix() + e.Key.String()
	if e.Key.IsModifier() {
		text = e.Key.String()
	}
	return fmt.Sprintf("InputEventKey : %s %s", text, state)
}

func (e MouseButtonEvent) AsText() string {
	return fmt.Sprintf("InputEventMouseButton : button_index=%s, pressed=%t, position=%s, button_mask=%d, doubleclick=%t, mods=%s",
		e.Button, e.Pressed, e.Position, e.Mask, e.DoubleClick, strings.TrimSuffix(e.Modifiers.prefix(), "+"))
}

func (e MouseMotionEvent) AsText() string {
	return fmt.Sprintf("InputEventMouseMotion : button_mask=%d, position=%s, relative=%s, mods=%s",
		e.Mask, e.Position, e.Relative, strings.TrimSuffix(e.Modifiers.prefix(), "+"))
}

// mouseFields returns the positional state of a mouse event.
func mouseFields(e Event) (pos, global Vector2, mask ButtonMask, ok bool) {
	switch m := e.(type) {
	case MouseButtonEvent:
		return m.Position, m.GlobalPosition, m.Mask, true
	case MouseMotionEvent:
		return m.Position, m.GlobalPosition, m.Mask, true
	}
	return Vector2{}, Vector2{}, 0, false
}

// PositionOf returns the position of a mouse event, and false for key events.
func PositionOf(e Event) (Vector2, bool) {
	pos, _, _, ok := mouseFields(e)
	return pos, ok
}
