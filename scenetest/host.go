// Package scenetest provides an in-memory host for testing code that drives scenes, in the same
// spirit as net/http/httptest. It can also serve that host over HTTP with the remote AUT service
// protocol, for testing clients of that protocol.
package scenetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/launchdarkly/scenerunner/input"
	"github.com/launchdarkly/scenerunner/scene"
)

const defaultIterationsPerSecond = 60

// Host is a fake scene.Host. Until StartTicking is called, every AwaitIdleFrame call advances
// the frame counter by itself; afterwards frames advance in real time at the iteration rate and
// AwaitIdleFrame waits for the next one.
type Host struct {
	scenes      map[string]func() *Node
	root        []*Node
	device      *Device
	frame       int
	frameCh     chan struct{}
	onFrame     []func(frame int)
	ips         int
	timeScale   float64
	foreground  bool
	windowCalls int
	mouseCalls  int
	ticking     bool
	stop        chan struct{}
	lock        sync.Mutex
}

var _ scene.Host = (*Host)(nil)

func NewHost() *Host {
	return &Host{
		scenes:    make(map[string]func() *Node),
		device:    newDevice(),
		frameCh:   make(chan struct{}),
		ips:       defaultIterationsPerSecond,
		timeScale: 1,
	}
}

// Register makes a scene resource loadable. Each Instantiate call creates a new node with factory.
func (h *Host) Register(resourcePath string, factory func() *Node) {
	h.lock.Lock()
	h.scenes[resourcePath] = factory
	h.lock.Unlock()
}

func (h *Host) Instantiate(ctx context.Context, resourcePath string) (scene.Node, error) {
	h.lock.Lock()
	factory := h.scenes[resourcePath]
	h.lock.Unlock()
	if factory == nil {
		return nil, fmt.Errorf("resource %q not found", resourcePath)
	}
	return factory(), nil
}

func (h *Host) AddToRoot(ctx context.Context, n scene.Node) error {
	node, ok := n.(*Node)
	if !ok {
		return fmt.Errorf("node %s does not belong to this host", n.Name())
	}
	if !node.Valid() {
		return fmt.Errorf("node %s was freed", node.Name())
	}
	node.attach(h)
	h.lock.Lock()
	h.root = append(h.root, node)
	h.lock.Unlock()
	return nil
}

func (h *Host) RemoveFromRoot(ctx context.Context, n scene.Node) error {
	h.lock.Lock()
	defer h.lock.Unlock()
	for i, child := range h.root {
		if scene.Node(child) == n {
			h.root = append(h.root[:i], h.root[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("node %s is not a child of the root", n.Name())
}

// Root returns the nodes currently attached under the root.
func (h *Host) Root() []*Node {
	h.lock.Lock()
	defer h.lock.Unlock()
	return append([]*Node(nil), h.root...)
}

func (h *Host) Device() scene.Device { return h.device }

// FakeDevice returns the device with its test accessors.
func (h *Host) FakeDevice() *Device { return h.device }

// OnFrame registers a function that is called at the end of every frame.
func (h *Host) OnFrame(fn func(frame int)) {
	h.lock.Lock()
	h.onFrame = append(h.onFrame, fn)
	h.lock.Unlock()
}

// Frames is the number of frames that have elapsed.
func (h *Host) Frames() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.frame
}

func (h *Host) AwaitIdleFrame(ctx context.Context) error {
	h.lock.Lock()
	if !h.ticking {
		h.lock.Unlock()
		h.tick()
		return ctx.Err()
	}
	ch := h.frameCh
	h.lock.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Host) tick() {
	h.lock.Lock()
	h.frame++
	frame := h.frame
	hooks := append([]func(int){}, h.onFrame...)
	done := h.frameCh
	h.frameCh = make(chan struct{})
	h.lock.Unlock()

	for _, fn := range hooks {
		fn(frame)
	}
	close(done)
}

// StartTicking advances frames in real time at the current iteration rate until Close is called.
func (h *Host) StartTicking() {
	h.lock.Lock()
	if h.ticking {
		h.lock.Unlock()
		return
	}
	h.ticking = true
	h.stop = make(chan struct{})
	stop := h.stop
	h.lock.Unlock()

	go func() {
		for {
			timer := time.NewTimer(time.Second / time.Duration(h.IterationsPerSecond()))
			select {
			case <-stop:
				timer.Stop()
				return
			case <-timer.C:
				h.tick()
			}
		}
	}()
}

// Close stops real-time ticking.
func (h *Host) Close() {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.ticking {
		close(h.stop)
		h.ticking = false
	}
}

func (h *Host) GlobalMousePosition() input.Vector2 {
	h.lock.Lock()
	h.mouseCalls++
	h.lock.Unlock()
	return h.device.mousePosition()
}

// MouseQueries is the number of GlobalMousePosition calls so far.
func (h *Host) MouseQueries() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.mouseCalls
}

func (h *Host) IterationsPerSecond() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.ips
}

func (h *Host) SetIterationsPerSecond(ips int) {
	if ips < 1 {
		ips = 1
	}
	h.lock.Lock()
	h.ips = ips
	h.lock.Unlock()
}

func (h *Host) TimeScale() float64 {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.timeScale
}

func (h *Host) SetTimeScale(scale float64) {
	h.lock.Lock()
	h.timeScale = scale
	h.lock.Unlock()
}

func (h *Host) SetWindowForeground(foreground bool) {
	h.lock.Lock()
	h.foreground = foreground
	h.windowCalls++
	h.lock.Unlock()
}

// WindowForeground reports the last window state that was set, and how many times it was set.
func (h *Host) WindowForeground() (bool, int) {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.foreground, h.windowCalls
}
