package input

// History is the part of the synthesizer state that merging depends on. Without it, back-to-back
// events would forget that a modifier or a button was still held.
type History struct {
	// Last is the last delivered event of any kind, or nil.
	Last Event
	// LastMouse is the last delivered mouse event, or nil.
	LastMouse Event
}

// Merge combines a freshly built event with the events delivered before it:
//
//   - modifiers of the last event are OR-ed in, except that the release of a modifier key
//     clears its own flag;
//   - mouse events inherit the button mask of the last mouse event;
//   - a button press adds the button's bit and a release removes exactly that bit;
//   - a button event takes its position from the last mouse event, if there was one;
//   - the double-click flag only survives on a press.
//
// Merge does not modify its arguments.
func Merge(h History, next Event) Event {
	mods := next.Mods()
	if h.Last != nil {
		mods = mods.Or(h.Last.Mods())
	}
	if k, ok := next.(KeyEvent); ok && !k.Pressed && k.Key.IsModifier() {
		mods = mods.without(k.Key)
	}
	next = next.withMods(mods)

	pos, global, mask, hasMouse := Vector2{}, Vector2{}, ButtonMask(0), false
	if h.LastMouse != nil {
		pos, global, mask, hasMouse = mouseFields(h.LastMouse)
	}

	switch e := next.(type) {
	case MouseButtonEvent:
		if hasMouse {
			e.Position = pos
			e.GlobalPosition = global
		}
		e.Mask |= mask
		if e.Pressed {
			e.Mask |= e.Button.Mask()
		} else {
			e.Mask &^= e.Button.Mask()
			e.DoubleClick = false
		}
		return e
	case MouseMotionEvent:
		e.Mask |= mask
		return e
	}
	return next
}
