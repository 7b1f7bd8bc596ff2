package scenetest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/launchdarkly/scenerunner/input"
	"github.com/launchdarkly/scenerunner/scene"
)

// Device is a fake scene.Device. It applies injected events to its press state the way an
// engine's input singleton does, and records them.
type Device struct {
	keys    map[input.Key]bool
	buttons map[input.Button]bool
	mask    input.ButtonMask
	mouse   input.Vector2
	events  []input.Event
	fail    error
	lock    sync.Mutex
}

var _ scene.Device = (*Device)(nil)

func newDevice() *Device {
	return &Device{
		keys:    make(map[input.Key]bool),
		buttons: make(map[input.Button]bool),
	}
}

func (d *Device) ParseInputEvent(ctx context.Context, e input.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.fail != nil {
		return d.fail
	}
	switch v := e.(type) {
	case input.KeyEvent:
		d.keys[v.Key] = v.Pressed
	case input.MouseButtonEvent:
		d.buttons[v.Button] = v.Pressed
		d.mask = v.Mask
		d.mouse = v.Position
	case input.MouseMotionEvent:
		d.mask = v.Mask
		d.mouse = v.Position
	default:
		return fmt.Errorf("unsupported event %T", e)
	}
	d.events = append(d.events, e)
	return nil
}

func (d *Device) WarpMousePosition(pos input.Vector2) {
	d.lock.Lock()
	d.mouse = pos
	d.lock.Unlock()
}

func (d *Device) IsKeyPressed(key input.Key) bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.keys[key]
}

func (d *Device) IsMouseButtonPressed(button input.Button) bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.buttons[button]
}

func (d *Device) MouseButtonMask() input.ButtonMask {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.mask
}

func (d *Device) mousePosition() input.Vector2 {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.mouse
}

// pressed lists the held keys and buttons in ascending order.
func (d *Device) pressed() ([]input.Key, []input.Button) {
	d.lock.Lock()
	defer d.lock.Unlock()
	keys := []input.Key{}
	for k, down := range d.keys {
		if down {
			keys = append(keys, k)
		}
	}
	buttons := []input.Button{}
	for b, down := range d.buttons {
		if down {
			buttons = append(buttons, b)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	sort.Slice(buttons, func(i, j int) bool { return buttons[i] < buttons[j] })
	return keys, buttons
}

// Events returns every event that was injected so far.
func (d *Device) Events() []input.Event {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]input.Event(nil), d.events...)
}

// ResetEvents forgets the recorded events.
func (d *Device) ResetEvents() {
	d.lock.Lock()
	d.events = nil
	d.lock.Unlock()
}

// FailWith makes ParseInputEvent return err; nil restores normal behaviour.
func (d *Device) FailWith(err error) {
	d.lock.Lock()
	d.fail = err
	d.lock.Unlock()
}
