package scene

import (
	"context"

	"github.com/launchdarkly/scenerunner/input"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Host is the engine-side surface that a Session drives. It is passed to Attach explicitly, so
// that device state is never ambient global state and several hosts can be tested in isolation.
type Host interface {
	// Instantiate loads the scene resource at path and creates a node from it.
	Instantiate(ctx context.Context, resourcePath string) (Node, error)
	AddToRoot(ctx context.Context, node Node) error
	RemoveFromRoot(ctx context.Context, node Node) error

	// Device is the input device of the host.
	Device() Device

	// AwaitIdleFrame returns after the host has finished its next frame.
	AwaitIdleFrame(ctx context.Context) error

	// GlobalMousePosition is the cursor position relative to the root viewport.
	GlobalMousePosition() input.Vector2

	IterationsPerSecond() int
	SetIterationsPerSecond(ips int)
	TimeScale() float64
	SetTimeScale(scale float64)

	// SetWindowForeground raises and maximizes (true) or minimizes (false) the host window.
	SetWindowForeground(foreground bool)
}

// Device is the host's input device. ParseInputEvent is the injection entry point; afterwards
// the press-state queries reflect the event. ParseInputEvent must give up when ctx is done.
type Device interface {
	ParseInputEvent(ctx context.Context, e input.Event) error
	WarpMousePosition(pos input.Vector2)
	IsKeyPressed(key input.Key) bool
	IsMouseButtonPressed(button input.Button) bool
	MouseButtonMask() input.ButtonMask
}

// Node is a live instance of a scene inside the host.
type Node interface {
	Name() string
	// Valid is false once the node has been freed.
	Valid() bool
	HasMethod(name string) bool
	Call(ctx context.Context, method string, args ...ldvalue.Value) (ldvalue.Value, error)
	// Get returns the named property, and false if the node has no such property.
	Get(name string) (ldvalue.Value, bool)
	// AwaitSignal returns the arguments of the next emission of the named signal.
	AwaitSignal(ctx context.Context, signal string) ([]ldvalue.Value, error)
	// MousePosition is the cursor position relative to the node's viewport.
	MousePosition() input.Vector2
	// FocusOwner names the control that has keyboard focus, or "" if none.
	FocusOwner() string
	// SetInputAsHandled marks the node's viewport input as consumed.
	SetInputAsHandled()
	Free()
}
