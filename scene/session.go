package scene

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/launchdarkly/scenerunner/input"
	"github.com/launchdarkly/scenerunner/logging"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const relativeMoveSettleFrames = 10

// DefaultDisposeTimeout bounds each step of Dispose that talks to the host.
const DefaultDisposeTimeout = 5 * time.Second

// DefaultMoveSpeed is used by SimulateMouseMoveRelative when no positive speed is given.
var DefaultMoveSpeed = input.Vec(0.2, 1)

// ErrDisposed is returned when input is simulated on a session that was already disposed.
var ErrDisposed = errors.New("scene session was already disposed")

// inputHooks are the node methods that receive every synthesized event directly.
var inputHooks = []string{"_gui_input", "_unhandled_input"}

// Options configures Attach.
type Options struct {
	// AutoFree frees the scene node when the session is disposed.
	AutoFree bool
	// Verbose writes a trace line for every event and time factor change to Logger.
	Verbose bool
	// Logger receives trace output and problems found during disposal.
	Logger logging.Logger
	// DisposeTimeout bounds how long Dispose waits for an unfinished input operation and for each
	// host request. Zero means DefaultDisposeTimeout.
	DisposeTimeout time.Duration
}

// Session owns one live scene instance and all input synthesized for it. A session is meant to
// be driven by a single goroutine; awaits block only that goroutine.
type Session struct {
	host         Host
	device       Device
	node         Node
	resourcePath string
	autoFree     bool
	verbose      bool
	logger       logging.Logger
	trace        logging.Logger
	clock        *FrameClock
	synth        *input.Synthesizer
	synthLock    chan struct{}
	windowRaised atomic.Bool
	disposed     atomic.Bool
	disposeWait  time.Duration
	disposeOnce  sync.Once
}

// Attach instantiates the scene at resourcePath, adds it under the host root and sets the time
// factor to 1. It returns a *LoadError if the scene cannot be instantiated or attached.
func Attach(ctx context.Context, host Host, resourcePath string, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NullLogger()
	}
	trace := logging.NullLogger()
	if opts.Verbose {
		trace = logger
	}

	node, err := host.Instantiate(ctx, resourcePath)
	if err != nil {
		return nil, &LoadError{ResourcePath: resourcePath, Err: err}
	}
	if err := host.AddToRoot(ctx, node); err != nil {
		node.Free()
		return nil, &LoadError{ResourcePath: resourcePath, Err: err}
	}

	s := &Session{
		host:         host,
		device:       host.Device(),
		node:         node,
		resourcePath: resourcePath,
		autoFree:     opts.AutoFree,
		verbose:      opts.Verbose,
		logger:       logger,
		trace:        trace,
		clock:        NewFrameClock(host, trace),
		synthLock:    make(chan struct{}, 1),
		disposeWait:  opts.DisposeTimeout,
	}
	if s.disposeWait <= 0 {
		s.disposeWait = DefaultDisposeTimeout
	}
	s.synth = input.NewSynthesizer(input.DispatcherFunc(s.dispatch), input.NewTracker(), s.viewportMousePosition)
	s.clock.SetTimeFactor(1)
	return s, nil
}

// Scene returns the scene node.
func (s *Session) Scene() Node { return s.node }

// SceneName is the node name, or the resource base name for generated node names.
func (s *Session) SceneName() string {
	name := s.node.Name()
	if !strings.HasPrefix(name, "@") {
		return name
	}
	base := path.Base(s.resourcePath)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Clock returns the frame clock of the session.
func (s *Session) Clock() *FrameClock { return s.clock }

// HeldInput returns the keys and buttons that are currently held by this session.
func (s *Session) HeldInput() input.State {
	_ = s.acquire(context.Background())
	defer s.release()
	return s.synth.Tracker().Snapshot()
}

// acquire takes the synthesis lock, or gives up when ctx is done.
func (s *Session) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case s.synthLock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) release() { <-s.synthLock }

// dispatch is the delivery half of synthesis; it is called with the synthesis lock held. Once
// the device has accepted the event, failures are reported as *input.ListenerError.
func (s *Session) dispatch(ctx context.Context, e input.Event) error {
	if pos, ok := input.PositionOf(e); ok {
		s.device.WarpMousePosition(pos)
	}
	if err := s.device.ParseInputEvent(ctx, e); err != nil {
		return err
	}
	if !s.node.Valid() {
		return nil
	}
	s.trace.Printf("\tprocess event %s (%s) <- %s", s.node.Name(), s.SceneName(), e.AsText())
	payload := input.ToValue(e)
	for _, hook := range inputHooks {
		if !s.node.HasMethod(hook) {
			continue
		}
		if _, err := s.node.Call(ctx, hook, payload); err != nil {
			return &input.ListenerError{Listener: hook, Err: err}
		}
	}
	s.node.SetInputAsHandled()
	return nil
}

func (s *Session) viewportMousePosition() input.Vector2 {
	return s.node.MousePosition()
}

func (s *Session) synthesize(ctx context.Context, action func(*input.Synthesizer) (input.Event, error)) error {
	if s.disposed.Load() {
		return ErrDisposed
	}
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()
	if s.disposed.Load() {
		return ErrDisposed
	}
	s.printCurrentFocus()
	_, err := action(s.synth)
	return err
}

func (s *Session) printCurrentFocus() {
	if !s.verbose {
		return
	}
	if focus := s.node.FocusOwner(); focus != "" {
		s.trace.Printf("\tfocus on %s", focus)
	} else {
		s.trace.Printf("\tno focus set")
	}
}

// SimulateKeyPress presses key. Modifiers passed in held are reported as held on this and all
// following events until the matching modifier key is released.
func (s *Session) SimulateKeyPress(ctx context.Context, key input.Key, held ...input.Modifier) error {
	return s.synthesize(ctx, func(sy *input.Synthesizer) (input.Event, error) { return sy.KeyPress(ctx, key, held...) })
}

func (s *Session) SimulateKeyRelease(ctx context.Context, key input.Key, held ...input.Modifier) error {
	return s.synthesize(ctx, func(sy *input.Synthesizer) (input.Event, error) { return sy.KeyRelease(ctx, key, held...) })
}

// SimulateKeyPressed presses and then releases key, as two separate events.
func (s *Session) SimulateKeyPressed(ctx context.Context, key input.Key, held ...input.Modifier) error {
	if err := s.SimulateKeyPress(ctx, key, held...); err != nil {
		return err
	}
	return s.SimulateKeyRelease(ctx, key, held...)
}

// SimulateMouseButtonPress presses button at the last known cursor position.
func (s *Session) SimulateMouseButtonPress(ctx context.Context, button input.Button, doubleClick bool) error {
	return s.synthesize(ctx, func(sy *input.Synthesizer) (input.Event, error) { return sy.ButtonPress(ctx, button, doubleClick) })
}

func (s *Session) SimulateMouseButtonRelease(ctx context.Context, button input.Button) error {
	return s.synthesize(ctx, func(sy *input.Synthesizer) (input.Event, error) { return sy.ButtonRelease(ctx, button) })
}

// SimulateMouseButtonPressed presses and then releases button, as two separate events.
func (s *Session) SimulateMouseButtonPressed(ctx context.Context, button input.Button, doubleClick bool) error {
	if err := s.SimulateMouseButtonPress(ctx, button, doubleClick); err != nil {
		return err
	}
	return s.SimulateMouseButtonRelease(ctx, button)
}

// SetMousePos places the cursor at pos.
func (s *Session) SetMousePos(ctx context.Context, pos input.Vector2) error {
	return s.synthesize(ctx, func(sy *input.Synthesizer) (input.Event, error) {
		return sy.SetMousePosition(ctx, pos, s.host.GlobalMousePosition())
	})
}

// SimulateMouseMove moves the cursor to pos, reporting the movement relative to the last known
// position.
func (s *Session) SimulateMouseMove(ctx context.Context, pos input.Vector2) error {
	return s.synthesize(ctx, func(sy *input.Synthesizer) (input.Event, error) { return sy.MouseMove(ctx, pos) })
}

// MousePosition is the last synthesized cursor position, or the viewport's if there was none.
func (s *Session) MousePosition() input.Vector2 {
	pos, _ := s.lastPosition(context.Background())
	return pos
}

func (s *Session) lastPosition(ctx context.Context) (input.Vector2, error) {
	if err := s.acquire(ctx); err != nil {
		return input.Vector2{}, err
	}
	defer s.release()
	return s.synth.LastPosition(), nil
}

func (s *Session) GlobalMousePosition() input.Vector2 {
	return s.host.GlobalMousePosition()
}

// SimulateMouseMoveRelative moves the cursor by delta along a straight line, emitting motion
// events at a fixed wall-clock cadence. Larger speed.X values take fewer and longer steps. When
// the cursor has reached the target it settles for a few frames.
func (s *Session) SimulateMouseMoveRelative(ctx context.Context, delta, speed input.Vector2) error {
	if !finite(delta) {
		return &input.InvalidInputError{Kind: "mouse delta", Name: delta.String()}
	}
	if !finite(speed) {
		return &input.InvalidInputError{Kind: "mouse speed", Name: speed.String()}
	}
	if speed.X <= 0 {
		speed = DefaultMoveSpeed
	}
	current, err := s.lastPosition(ctx)
	if err != nil {
		return err
	}
	final := current.Add(delta)
	step := speed.X * 0.1
	interval := time.Duration(step * float64(time.Second))

	for t := 0.0; !current.ApproxEqual(final); {
		t += step * speed.X
		if err := s.SimulateMouseMove(ctx, current); err != nil {
			return err
		}
		if err := s.clock.sleep(ctx, interval); err != nil {
			return err
		}
		if t >= 1 {
			current = final
		} else {
			current = current.Lerp(final, t)
		}
	}
	if err := s.SimulateMouseMove(ctx, final); err != nil {
		return err
	}
	return s.SimulateFrames(ctx, relativeMoveSettleFrames)
}

func finite(v input.Vector2) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) && !math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}

// SimulateFrames waits for count logical frames in lock-step with the host, scaled by the time
// factor.
func (s *Session) SimulateFrames(ctx context.Context, count int) error {
	return s.clock.AdvanceFrames(ctx, count)
}

// SimulateFramesEvery waits count times for interval of wall-clock time.
func (s *Session) SimulateFramesEvery(ctx context.Context, count int, interval time.Duration) error {
	return s.clock.AdvanceFramesEvery(ctx, count, interval)
}

// SetTimeFactor speeds up (> 1) or slows down (< 1) the simulated time of the scene. The factor is
// clamped to [MinTimeFactor, MaxTimeFactor].
func (s *Session) SetTimeFactor(f float64) *Session {
	s.clock.SetTimeFactor(f)
	return s
}

func (s *Session) TimeFactor() float64 { return s.clock.TimeFactor() }

// AwaitIdleFrame returns after the host's next frame.
func (s *Session) AwaitIdleFrame(ctx context.Context) error {
	return s.host.AwaitIdleFrame(ctx)
}

// AwaitMillis waits for ms milliseconds of wall-clock time.
func (s *Session) AwaitMillis(ctx context.Context, ms int) error {
	return s.clock.sleep(ctx, time.Duration(ms)*time.Millisecond)
}

// AwaitSignal waits until the scene emits signal with arguments equal to expected. Without
// expected arguments the first emission matches. Use WithTimeout or a context deadline to bound
// the wait.
func (s *Session) AwaitSignal(ctx context.Context, signal string, expected ...ldvalue.Value) error {
	for {
		args, err := s.node.AwaitSignal(ctx, signal)
		if err != nil {
			return err
		}
		if len(expected) == 0 || valuesEqual(args, expected) {
			return nil
		}
		s.trace.Printf("\tsignal %s%s ignored, waiting for %s", signal, formatValues(args), formatValues(expected))
	}
}

// Invoke calls a method of the scene. It returns a *MissingCapabilityError if there is no such
// method.
func (s *Session) Invoke(ctx context.Context, method string, args ...ldvalue.Value) (ldvalue.Value, error) {
	if !s.node.HasMethod(method) {
		return ldvalue.Null(), &MissingCapabilityError{Kind: "method", Name: method}
	}
	return s.node.Call(ctx, method, args...)
}

// Property returns a property of the scene, or a *MissingCapabilityError.
func (s *Session) Property(name string) (ldvalue.Value, error) {
	v, ok := s.node.Get(name)
	if !ok {
		return ldvalue.Null(), &MissingCapabilityError{Kind: "property", Name: name}
	}
	return v, nil
}

// GetProperty returns a property of the scene converted to T.
func GetProperty[T any](s *Session, name string) (T, error) {
	var out T
	v, err := s.Property(name)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(v.JSONString()), &out); err != nil {
		return out, fmt.Errorf("property '%s' (%s) is not a %T: %w", name, v.JSONString(), out, err)
	}
	return out, nil
}

// MoveWindowToForeground raises the host window so that it receives mouse input. The window is
// minimized again when the session is disposed.
func (s *Session) MoveWindowToForeground() {
	s.host.SetWindowForeground(true)
	s.windowRaised.Store(true)
}

// Disposed reports whether Dispose has run.
func (s *Session) Disposed() bool {
	return s.disposed.Load()
}

// Dispose restores the time factor, releases every key and button still held (so that the scene
// sees a release for every press), removes the scene from the host root, frees it if AutoFree was
// set and restores the host window. Only the first call has any effect. Dispose never fails;
// problems are written to the logger.
//
// If an earlier input operation is still running, for instance one abandoned by a timeout,
// Dispose waits for it at most DisposeTimeout and then tears the scene down without releasing.
func (s *Session) Dispose() {
	s.disposeOnce.Do(func() {
		s.disposed.Store(true)
		s.clock.Restore()

		if err := s.releaseHeldInput(); err != nil {
			s.logger.Printf("Error releasing held input of %s: %s", s.resourcePath, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.disposeWait)
		defer cancel()
		if err := s.host.RemoveFromRoot(ctx, s.node); err != nil {
			s.logger.Printf("Error removing %s from the scene tree: %s", s.resourcePath, err)
		}
		if s.autoFree && s.node.Valid() {
			s.node.Free()
		}
		if s.windowRaised.Load() {
			s.host.SetWindowForeground(false)
		}
	})
}

func (s *Session) releaseHeldInput() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.disposeWait)
	defer cancel()
	if err := s.acquire(ctx); err != nil {
		return fmt.Errorf("an earlier input operation is still running: %w", err)
	}
	defer s.release()
	return s.synth.ReleaseAll(ctx)
}
