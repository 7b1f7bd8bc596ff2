package input

import (
	"context"
	"errors"
	"fmt"
)

// Dispatcher delivers a synthesized event to the application under test.
//
// A Dispatcher that has injected the event but then fails to notify a listener must return a
// *ListenerError, so that the synthesizer still accounts for the event.
type Dispatcher interface {
	Dispatch(ctx context.Context, e Event) error
}

// DispatcherFunc adapts a function literal to the Dispatcher interface.
type DispatcherFunc func(context.Context, Event) error

// Dispatch calls the underlying function.
func (f DispatcherFunc) Dispatch(ctx context.Context, e Event) error { return f(ctx, e) }

// ListenerError reports that an event reached the input device but a listener failed to
// process it.
type ListenerError struct {
	Listener string
	Err      error
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Listener, e.Err)
}

func (e *ListenerError) Unwrap() error { return e.Err }

// Synthesizer builds input events, merges them with the previously delivered events, delivers
// them and keeps the Tracker in step with what was delivered.
//
// Events are delivered in the order the methods are called. A Synthesizer is not safe for
// concurrent use.
type Synthesizer struct {
	dispatcher Dispatcher
	tracker    *Tracker
	fallback   func() Vector2
	history    History
}

// NewSynthesizer creates a Synthesizer. The fallback function supplies the cursor position while
// no mouse event has been delivered yet; it may be nil.
func NewSynthesizer(dispatcher Dispatcher, tracker *Tracker, fallback func() Vector2) *Synthesizer {
	if tracker == nil {
		tracker = NewTracker()
	}
	if fallback == nil {
		fallback = func() Vector2 { return Vector2{} }
	}
	return &Synthesizer{dispatcher: dispatcher, tracker: tracker, fallback: fallback}
}

// Tracker returns the tracker this synthesizer updates.
func (s *Synthesizer) Tracker() *Tracker { return s.tracker }

// History returns the events the next merge will be based on.
func (s *Synthesizer) History() History { return s.history }

// LastPosition is the position of the last delivered mouse event, or the fallback position.
func (s *Synthesizer) LastPosition() Vector2 {
	if pos, ok := PositionOf(s.history.LastMouse); ok {
		return pos
	}
	return s.fallback()
}

// Mask is the button mask of the last delivered mouse event.
func (s *Synthesizer) Mask() ButtonMask {
	_, _, mask, _ := mouseFields(s.history.LastMouse)
	return mask
}

func (s *Synthesizer) KeyPress(ctx context.Context, key Key, held ...Modifier) (Event, error) {
	return s.key(ctx, key, true, held)
}

func (s *Synthesizer) KeyRelease(ctx context.Context, key Key, held ...Modifier) (Event, error) {
	return s.key(ctx, key, false, held)
}

func (s *Synthesizer) key(ctx context.Context, key Key, pressed bool, held []Modifier) (Event, error) {
	if !key.Valid() {
		return nil, &InvalidInputError{Kind: "key", Value: int64(key)}
	}
	e := KeyEvent{Key: key, Pressed: pressed, Modifiers: modifiersOf(key, held)}
	return s.deliver(ctx, e, func() {
		if pressed {
			s.tracker.PressKey(key)
		} else {
			s.tracker.ReleaseKey(key)
		}
	})
}

func (s *Synthesizer) ButtonPress(ctx context.Context, button Button, doubleClick bool) (Event, error) {
	return s.button(ctx, button, true, doubleClick)
}

func (s *Synthesizer) ButtonRelease(ctx context.Context, button Button) (Event, error) {
	return s.button(ctx, button, false, false)
}

func (s *Synthesizer) button(ctx context.Context, button Button, pressed, doubleClick bool) (Event, error) {
	if !button.Valid() {
		return nil, &InvalidInputError{Kind: "button", Value: int64(button)}
	}
	pos := s.LastPosition()
	e := MouseButtonEvent{
		Button:         button,
		Pressed:        pressed,
		DoubleClick:    doubleClick,
		Position:       pos,
		GlobalPosition: pos,
	}
	return s.deliver(ctx, e, func() {
		if pressed {
			s.tracker.PressButton(button)
		} else {
			s.tracker.ReleaseButton(button)
		}
	})
}

// MouseMove moves the cursor to pos, reporting the delta from the last known position.
func (s *Synthesizer) MouseMove(ctx context.Context, pos Vector2) (Event, error) {
	e := MouseMotionEvent{
		Position:       pos,
		GlobalPosition: pos,
		Relative:       pos.Sub(s.LastPosition()),
	}
	return s.deliver(ctx, e, nil)
}

// SetMousePosition places the cursor at pos without reporting any relative movement.
func (s *Synthesizer) SetMousePosition(ctx context.Context, pos, global Vector2) (Event, error) {
	e := MouseMotionEvent{Position: pos, GlobalPosition: global}
	return s.deliver(ctx, e, nil)
}

// ReleaseAll delivers a release event for every held button and then every held key, and
// forgets the delivered history. The tracker is empty afterwards even if a delivery failed.
func (s *Synthesizer) ReleaseAll(ctx context.Context) error {
	var errs []error
	held := s.tracker.Snapshot()
	for _, b := range held.Buttons {
		if _, err := s.ButtonRelease(ctx, b); err != nil {
			errs = append(errs, err)
		}
	}
	for _, k := range held.Keys {
		if _, err := s.KeyRelease(ctx, k); err != nil {
			errs = append(errs, err)
		}
	}
	s.tracker.Clear()
	s.history = History{}
	return errors.Join(errs...)
}

// deliver merges e with the history and dispatches it. The tracker and history are updated
// whenever the event reached the device, including when a listener failed afterwards.
func (s *Synthesizer) deliver(ctx context.Context, e Event, update func()) (Event, error) {
	merged := Merge(s.history, e)
	err := s.dispatcher.Dispatch(ctx, merged)
	var listenerErr *ListenerError
	if err != nil && !errors.As(err, &listenerErr) {
		return nil, fmt.Errorf("delivering %s event: %w", merged.Kind(), err)
	}
	if update != nil {
		update()
	}
	s.history.Last = merged
	if merged.Kind() != KindKey {
		s.history.LastMouse = merged
	}
	if err != nil {
		return merged, fmt.Errorf("delivering %s event: %w", merged.Kind(), err)
	}
	return merged, nil
}
