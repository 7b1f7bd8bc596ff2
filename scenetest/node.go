package scenetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/launchdarkly/scenerunner/input"
	"github.com/launchdarkly/scenerunner/scene"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Method implements a scene method of a fake node.
type Method func(args []ldvalue.Value) (ldvalue.Value, error)

// Node is a fake scene.Node.
type Node struct {
	name     string
	freed    bool
	host     *Host
	methods  map[string]Method
	props    map[string]ldvalue.Value
	waiters  map[string][]chan []ldvalue.Value
	received []input.Event
	handled  int
	focus    string
	lock     sync.Mutex
}

var _ scene.Node = (*Node)(nil)

func NewNode(name string) *Node {
	return &Node{
		name:    name,
		methods: make(map[string]Method),
		props:   make(map[string]ldvalue.Value),
		waiters: make(map[string][]chan []ldvalue.Value),
	}
}

// WithMethod adds a method to the node.
func (n *Node) WithMethod(name string, m Method) *Node {
	n.lock.Lock()
	n.methods[name] = m
	n.lock.Unlock()
	return n
}

// WithInputHooks gives the node a _gui_input method that records every event it receives.
func (n *Node) WithInputHooks() *Node {
	return n.WithMethod("_gui_input", func(args []ldvalue.Value) (ldvalue.Value, error) {
		if len(args) != 1 {
			return ldvalue.Null(), fmt.Errorf("_gui_input expects one argument, got %d", len(args))
		}
		e, err := input.FromValue(args[0])
		if err != nil {
			return ldvalue.Null(), err
		}
		n.lock.Lock()
		n.received = append(n.received, e)
		n.lock.Unlock()
		return ldvalue.Null(), nil
	})
}

// WithFocus sets the name reported by FocusOwner.
func (n *Node) WithFocus(control string) *Node {
	n.lock.Lock()
	n.focus = control
	n.lock.Unlock()
	return n
}

// SetProperty sets or adds a property.
func (n *Node) SetProperty(name string, v ldvalue.Value) *Node {
	n.lock.Lock()
	n.props[name] = v
	n.lock.Unlock()
	return n
}

func (n *Node) attach(h *Host) {
	n.lock.Lock()
	n.host = h
	n.lock.Unlock()
}

func (n *Node) Name() string { return n.name }

func (n *Node) Valid() bool {
	n.lock.Lock()
	defer n.lock.Unlock()
	return !n.freed
}

// Methods lists the method names of the node.
func (n *Node) Methods() []string {
	n.lock.Lock()
	defer n.lock.Unlock()
	ret := make([]string, 0, len(n.methods))
	for name := range n.methods {
		ret = append(ret, name)
	}
	return ret
}

func (n *Node) HasMethod(name string) bool {
	n.lock.Lock()
	defer n.lock.Unlock()
	_, ok := n.methods[name]
	return ok
}

func (n *Node) Call(ctx context.Context, method string, args ...ldvalue.Value) (ldvalue.Value, error) {
	n.lock.Lock()
	m := n.methods[method]
	n.lock.Unlock()
	if m == nil {
		return ldvalue.Null(), fmt.Errorf("node %s has no method %s", n.name, method)
	}
	return m(args)
}

func (n *Node) Get(name string) (ldvalue.Value, bool) {
	n.lock.Lock()
	defer n.lock.Unlock()
	v, ok := n.props[name]
	return v, ok
}

// Emit emits a signal to everyone currently waiting for it.
func (n *Node) Emit(signal string, args ...ldvalue.Value) {
	n.lock.Lock()
	waiters := n.waiters[signal]
	delete(n.waiters, signal)
	n.lock.Unlock()
	for _, ch := range waiters {
		ch <- append([]ldvalue.Value(nil), args...)
	}
}

// Waiting is the number of callers currently waiting for signal.
func (n *Node) Waiting(signal string) int {
	n.lock.Lock()
	defer n.lock.Unlock()
	return len(n.waiters[signal])
}

func (n *Node) AwaitSignal(ctx context.Context, signal string) ([]ldvalue.Value, error) {
	ch := make(chan []ldvalue.Value, 1)
	n.lock.Lock()
	n.waiters[signal] = append(n.waiters[signal], ch)
	n.lock.Unlock()

	select {
	case args := <-ch:
		return args, nil
	case <-ctx.Done():
		n.lock.Lock()
		ws := n.waiters[signal]
		for i, w := range ws {
			if w == ch {
				n.waiters[signal] = append(ws[:i], ws[i+1:]...)
				break
			}
		}
		n.lock.Unlock()
		return nil, ctx.Err()
	}
}

func (n *Node) MousePosition() input.Vector2 {
	n.lock.Lock()
	h := n.host
	n.lock.Unlock()
	if h == nil {
		return input.Vector2{}
	}
	return h.device.mousePosition()
}

func (n *Node) FocusOwner() string {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.focus
}

func (n *Node) SetInputAsHandled() {
	n.lock.Lock()
	n.handled++
	n.lock.Unlock()
}

// HandledCount is the number of times the viewport input was marked as handled.
func (n *Node) HandledCount() int {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.handled
}

// Received returns the events delivered to the node's input hook.
func (n *Node) Received() []input.Event {
	n.lock.Lock()
	defer n.lock.Unlock()
	return append([]input.Event(nil), n.received...)
}

func (n *Node) Free() {
	n.lock.Lock()
	n.freed = true
	n.lock.Unlock()
}

// Freed reports whether Free was called.
func (n *Node) Freed() bool { return !n.Valid() }
