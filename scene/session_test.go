package scene_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/launchdarkly/scenerunner/input"
	"github.com/launchdarkly/scenerunner/logging"
	"github.com/launchdarkly/scenerunner/scene"
	"github.com/launchdarkly/scenerunner/scenetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const testScenePath = "res://scenes/TestScene.tscn"

var ctx = context.Background()

type sessionFixture struct {
	host *scenetest.Host
	node *scenetest.Node
	s    *scene.Session
	logs *logging.CapturingLogger
}

func newSessionFixture(t *testing.T, configure ...func(*scenetest.Node)) *sessionFixture {
	f := &sessionFixture{host: scenetest.NewHost(), logs: &logging.CapturingLogger{}}
	f.host.Register(testScenePath, func() *scenetest.Node {
		f.node = scenetest.NewNode("TestScene").WithInputHooks()
		for _, c := range configure {
			c(f.node)
		}
		return f.node
	})
	s, err := scene.Attach(context.Background(), f.host, testScenePath, scene.Options{AutoFree: true, Logger: f.logs})
	require.NoError(t, err)
	f.s = s
	t.Cleanup(func() {
		s.Dispose()
		f.host.Close()
	})
	return f
}

func TestAttachAddsSceneUnderRoot(t *testing.T) {
	f := newSessionFixture(t)
	assert.Equal(t, []*scenetest.Node{f.node}, f.host.Root())
	assert.Equal(t, "TestScene", f.s.SceneName())
	assert.Equal(t, 1.0, f.s.TimeFactor())
}

func TestAttachUnknownResourceIsLoadError(t *testing.T) {
	_, err := scene.Attach(context.Background(), scenetest.NewHost(), "res://missing.tscn", scene.Options{})
	require.Error(t, err)
	var le *scene.LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "res://missing.tscn", le.ResourcePath)
}

func TestAttachFreesNodeThatCannotBeAdded(t *testing.T) {
	host := scenetest.NewHost()
	var node *scenetest.Node
	host.Register(testScenePath, func() *scenetest.Node {
		node = scenetest.NewNode("Broken")
		node.Free() // AddToRoot rejects freed nodes
		return node
	})
	_, err := scene.Attach(context.Background(), host, testScenePath, scene.Options{})
	var le *scene.LoadError
	require.True(t, errors.As(err, &le))
	assert.True(t, node.Freed())
	assert.Len(t, host.Root(), 0)
}

func TestSceneNameFallsBackToResourceName(t *testing.T) {
	host := scenetest.NewHost()
	host.Register(testScenePath, func() *scenetest.Node { return scenetest.NewNode("@Node2D@12") })
	s, err := scene.Attach(context.Background(), host, testScenePath, scene.Options{})
	require.NoError(t, err)
	defer s.Dispose()
	assert.Equal(t, "TestScene", s.SceneName())
}

func TestKeyPressIsDeliveredToDeviceAndScene(t *testing.T) {
	f := newSessionFixture(t)
	require.NoError(t, f.s.SimulateKeyPress(ctx, input.KeyA, input.ModShift))

	expected := input.KeyEvent{Key: input.KeyA, Pressed: true, Modifiers: input.Modifiers{Shift: true}}
	assert.Equal(t, []input.Event{expected}, f.host.FakeDevice().Events())
	assert.Equal(t, []input.Event{expected}, f.node.Received())
	assert.Equal(t, 1, f.node.HandledCount())
	assert.True(t, f.host.FakeDevice().IsKeyPressed(input.KeyA))
	assert.Equal(t, []input.Key{input.KeyA}, f.s.HeldInput().Keys)
}

func TestHeldModifierIsCarriedUntilReleased(t *testing.T) {
	f := newSessionFixture(t)
	require.NoError(t, f.s.SimulateKeyPress(ctx, input.KeyShift))
	require.NoError(t, f.s.SimulateKeyPressed(ctx, input.KeyA))
	require.NoError(t, f.s.SimulateKeyRelease(ctx, input.KeyShift))
	require.NoError(t, f.s.SimulateKeyPress(ctx, input.KeyB))

	events := f.node.Received()
	require.Len(t, events, 5)
	assert.True(t, events[0].Mods().Shift)
	assert.True(t, events[1].Mods().Shift)
	assert.True(t, events[2].Mods().Shift)
	assert.False(t, events[3].Mods().Shift)
	assert.False(t, events[4].Mods().Shift)
}

func TestMouseButtonMaskAccumulatesAcrossSession(t *testing.T) {
	f := newSessionFixture(t)
	require.NoError(t, f.s.SetMousePos(ctx, input.Vec(20, 30)))
	require.NoError(t, f.s.SimulateMouseButtonPress(ctx, input.ButtonLeft, false))
	require.NoError(t, f.s.SimulateMouseButtonPress(ctx, input.ButtonRight, false))
	assert.Equal(t, input.ButtonMask(5), f.host.FakeDevice().MouseButtonMask())

	require.NoError(t, f.s.SimulateMouseButtonRelease(ctx, input.ButtonLeft))
	assert.Equal(t, input.ButtonMask(4), f.host.FakeDevice().MouseButtonMask())
	assert.False(t, f.host.FakeDevice().IsMouseButtonPressed(input.ButtonLeft))
	assert.True(t, f.host.FakeDevice().IsMouseButtonPressed(input.ButtonRight))

	last := f.node.Received()[3].(input.MouseButtonEvent)
	assert.Equal(t, input.Vec(20, 30), last.Position)
}

func TestMouseMoveWarpsCursor(t *testing.T) {
	f := newSessionFixture(t)
	require.NoError(t, f.s.SetMousePos(ctx, input.Vec(10, 10)))
	require.NoError(t, f.s.SimulateMouseMove(ctx, input.Vec(15, 12)))

	motion := f.node.Received()[1].(input.MouseMotionEvent)
	assert.Equal(t, input.Vec(5, 2), motion.Relative)
	assert.Equal(t, input.Vec(15, 12), f.s.MousePosition())
	assert.Equal(t, input.Vec(15, 12), f.node.MousePosition())
	assert.Equal(t, input.Vec(15, 12), f.s.GlobalMousePosition())
}

func TestInvalidInputIsRejected(t *testing.T) {
	f := newSessionFixture(t)
	err := f.s.SimulateMouseButtonPress(ctx, input.Button(42), false)
	var ie *input.InvalidInputError
	require.True(t, errors.As(err, &ie))
	assert.Len(t, f.host.FakeDevice().Events(), 0)
}

func TestFailedDeliveryLeavesHeldInputUnchanged(t *testing.T) {
	f := newSessionFixture(t)
	f.host.FakeDevice().FailWith(errors.New("device gone"))
	err := f.s.SimulateKeyPress(ctx, input.KeyA)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device gone")
	assert.True(t, f.s.HeldInput().Empty())
}

func TestFailingInputHandlerStillReleasedOnDispose(t *testing.T) {
	f := newSessionFixture(t, func(n *scenetest.Node) {
		n.WithMethod("_gui_input", func([]ldvalue.Value) (ldvalue.Value, error) {
			return ldvalue.Null(), errors.New("handler failed")
		})
	})
	device := f.host.FakeDevice()

	err := f.s.SimulateKeyPress(ctx, input.KeyA)
	var le *input.ListenerError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "_gui_input", le.Listener)
	require.Error(t, f.s.SimulateMouseButtonPress(ctx, input.ButtonLeft, false))

	assert.True(t, device.IsKeyPressed(input.KeyA))
	assert.Equal(t, []input.Key{input.KeyA}, f.s.HeldInput().Keys)
	assert.Equal(t, []input.Button{input.ButtonLeft}, f.s.HeldInput().Buttons)

	f.s.Dispose()

	assert.False(t, device.IsKeyPressed(input.KeyA))
	assert.False(t, device.IsMouseButtonPressed(input.ButtonLeft))
	assert.Equal(t, input.ButtonMask(0), device.MouseButtonMask())
	require.NotEmpty(t, f.logs.Output())
	assert.Contains(t, f.logs.Output()[0].Message, "Error releasing held input")
}

func TestDisposeCompletesAfterTimedOutSynthesis(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	host := scenetest.NewHost()
	defer host.Close()
	host.Register(testScenePath, func() *scenetest.Node {
		return scenetest.NewNode("Stuck").WithMethod("_gui_input", func([]ldvalue.Value) (ldvalue.Value, error) {
			<-block
			return ldvalue.Null(), nil
		})
	})
	logs := &logging.CapturingLogger{}
	s, err := scene.Attach(ctx, host, testScenePath, scene.Options{Logger: logs, DisposeTimeout: 50 * time.Millisecond})
	require.NoError(t, err)

	err = scene.Await(ctx, 50*time.Millisecond, func(ctx context.Context) error {
		return s.SimulateKeyPress(ctx, input.KeyA)
	})
	require.True(t, scene.IsTimeout(err))

	disposed := make(chan struct{})
	go func() {
		s.Dispose()
		close(disposed)
	}()
	select {
	case <-disposed:
	case <-time.After(2 * time.Second):
		require.Fail(t, "Dispose did not return")
	}

	assert.True(t, s.Disposed())
	assert.Len(t, host.Root(), 0)
	assert.Equal(t, scene.ErrDisposed, s.SimulateKeyPress(ctx, input.KeyB))
	require.Len(t, logs.Output(), 1)
	assert.True(t, strings.HasPrefix(logs.Output()[0].Message,
		"Error releasing held input of "+testScenePath+": an earlier input operation is still running"))
}

func TestRelativeMouseMoveRejectsNonFiniteInput(t *testing.T) {
	f := newSessionFixture(t)
	var ie *input.InvalidInputError

	err := f.s.SimulateMouseMoveRelative(ctx, input.Vec(math.NaN(), 0), input.Vec(0.2, 1))
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "mouse delta", ie.Kind)

	err = f.s.SimulateMouseMoveRelative(ctx, input.Vec(1, math.Inf(-1)), input.Vec(0.2, 1))
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "mouse delta", ie.Kind)

	err = f.s.SimulateMouseMoveRelative(ctx, input.Vec(1, 1), input.Vec(math.NaN(), 1))
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "mouse speed", ie.Kind)

	assert.Len(t, f.host.FakeDevice().Events(), 0)
}

func TestRelativeMouseMoveReachesTarget(t *testing.T) {
	f := newSessionFixture(t)
	var slept []time.Duration
	scene.SetSleeper(f.s, func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	})
	require.NoError(t, f.s.SetMousePos(ctx, input.Vec(10, 10)))
	f.host.FakeDevice().ResetEvents()
	startFrames := f.host.Frames()

	require.NoError(t, f.s.SimulateMouseMoveRelative(context.Background(), input.Vec(900, 400), input.Vec(0.2, 1)))

	events := f.host.FakeDevice().Events()
	require.Greater(t, len(events), 2)
	first := events[0].(input.MouseMotionEvent)
	last := events[len(events)-1].(input.MouseMotionEvent)
	assert.Equal(t, input.Vec(10, 10), first.Position)
	assert.Equal(t, input.Vec(910, 410), last.Position)
	assert.Equal(t, input.Vec(910, 410), f.s.MousePosition())
	assert.Len(t, slept, len(events)-1)
	for _, d := range slept {
		assert.Equal(t, 20*time.Millisecond, d)
	}
	assert.Equal(t, 10, f.host.Frames()-startFrames)
}

func TestRelativeMouseMoveWithZeroSpeedUsesDefault(t *testing.T) {
	f := newSessionFixture(t)
	scene.SetSleeper(f.s, func(context.Context, time.Duration) error { return nil })
	require.NoError(t, f.s.SimulateMouseMoveRelative(context.Background(), input.Vec(5, 5), input.Vector2{}))
	assert.Equal(t, input.Vec(5, 5), f.s.MousePosition())
}

func TestRelativeMouseMoveStopsWhenContextIsDone(t *testing.T) {
	f := newSessionFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := f.s.SimulateMouseMoveRelative(ctx, input.Vec(100, 0), input.Vec(0.2, 1))
	assert.Equal(t, context.Canceled, err)
}

func TestSetTimeFactorIsClamped(t *testing.T) {
	f := newSessionFixture(t)
	assert.Equal(t, 9.0, f.s.SetTimeFactor(20).TimeFactor())
	assert.Equal(t, 540, f.host.IterationsPerSecond())
	assert.Equal(t, 9.0, f.host.TimeScale())

	assert.Equal(t, scene.MinTimeFactor, f.s.SetTimeFactor(0).TimeFactor())
	assert.Equal(t, scene.MinTimeFactor, f.s.SetTimeFactor(-3).TimeFactor())
	assert.Equal(t, 1, f.host.IterationsPerSecond())
}

func TestSimulateFramesIsScaledByTimeFactor(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	start := f.host.Frames()
	require.NoError(t, f.s.SimulateFrames(ctx, 10))
	assert.Equal(t, 10, f.host.Frames()-start)

	f.s.SetTimeFactor(5)
	start = f.host.Frames()
	require.NoError(t, f.s.SimulateFrames(ctx, 10))
	assert.Equal(t, 2, f.host.Frames()-start)

	start = f.host.Frames()
	require.NoError(t, f.s.SimulateFrames(ctx, 1))
	assert.Equal(t, 1, f.host.Frames()-start)
}

func TestSimulateFramesEveryWaitsWallClock(t *testing.T) {
	f := newSessionFixture(t)
	var slept []time.Duration
	scene.SetSleeper(f.s, func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	})
	require.NoError(t, f.s.SimulateFramesEvery(context.Background(), 3, 50*time.Millisecond))
	assert.Equal(t, []time.Duration{50 * time.Millisecond, 50 * time.Millisecond, 50 * time.Millisecond}, slept)
}

func TestAwaitSignalInTime(t *testing.T) {
	f := newSessionFixture(t)
	f.host.OnFrame(func(frame int) {
		if frame == 3 {
			f.node.Emit("panel_color_change", ldvalue.String("red"))
		}
		if frame == 5 {
			f.node.Emit("panel_color_change", ldvalue.String("blue"))
		}
	})
	f.host.StartTicking()

	err := scene.Await(context.Background(), time.Second, func(ctx context.Context) error {
		return f.s.AwaitSignal(ctx, "panel_color_change", ldvalue.String("blue"))
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, f.host.Frames(), 5)
}

func TestAwaitSignalTimesOut(t *testing.T) {
	f := newSessionFixture(t)
	err := scene.Await(context.Background(), 50*time.Millisecond, func(ctx context.Context) error {
		return f.s.AwaitSignal(ctx, "never")
	})
	assert.True(t, scene.IsTimeout(err))
	assert.Eventually(t, func() bool { return f.node.Waiting("never") == 0 }, time.Second, 5*time.Millisecond)
}

func TestInvokeAndProperties(t *testing.T) {
	f := newSessionFixture(t, func(n *scenetest.Node) {
		n.WithMethod("add", func(args []ldvalue.Value) (ldvalue.Value, error) {
			return ldvalue.Int(args[0].IntValue() + args[1].IntValue()), nil
		})
		n.SetProperty("score", ldvalue.Int(7))
		n.SetProperty("title", ldvalue.String("main"))
	})

	v, err := f.s.Invoke(context.Background(), "add", ldvalue.Int(2), ldvalue.Int(3))
	require.NoError(t, err)
	assert.Equal(t, ldvalue.Int(5), v)

	score, err := scene.GetProperty[int](f.s, "score")
	require.NoError(t, err)
	assert.Equal(t, 7, score)

	_, err = scene.GetProperty[int](f.s, "title")
	assert.Error(t, err)

	var mc *scene.MissingCapabilityError
	_, err = f.s.Invoke(context.Background(), "nope")
	require.True(t, errors.As(err, &mc))
	assert.Equal(t, "method", mc.Kind)

	_, err = f.s.Property("nope")
	require.True(t, errors.As(err, &mc))
	assert.Equal(t, "property", mc.Kind)
}

func TestAwaitMethodPollsEachFrame(t *testing.T) {
	calls := 0
	f := newSessionFixture(t, func(n *scenetest.Node) {
		n.WithMethod("color_cycle", func([]ldvalue.Value) (ldvalue.Value, error) {
			calls++
			if calls < 4 {
				return ldvalue.String("black"), nil
			}
			return ldvalue.String("green"), nil
		})
	})
	start := f.host.Frames()
	v, err := f.s.AwaitMethod(context.Background(), "color_cycle", scene.Equals(ldvalue.String("green")))
	require.NoError(t, err)
	assert.Equal(t, "green", v.StringValue())
	assert.Equal(t, 3, f.host.Frames()-start)

	_, err = f.s.AwaitMethod(context.Background(), "missing", scene.IsNotNull())
	var mc *scene.MissingCapabilityError
	assert.True(t, errors.As(err, &mc))
}

func TestDisposeReleasesEverythingHeld(t *testing.T) {
	f := newSessionFixture(t)
	require.NoError(t, f.s.SimulateKeyPress(ctx, input.KeyShift))
	require.NoError(t, f.s.SimulateKeyPress(ctx, input.KeyA))
	require.NoError(t, f.s.SimulateMouseButtonPress(ctx, input.ButtonLeft, false))
	require.NoError(t, f.s.SimulateMouseButtonPress(ctx, input.ButtonMiddle, false))
	f.s.SetTimeFactor(3)
	f.host.FakeDevice().ResetEvents()

	f.s.Dispose()

	device := f.host.FakeDevice()
	for _, k := range []input.Key{input.KeyShift, input.KeyA} {
		assert.False(t, device.IsKeyPressed(k), k.String())
	}
	for _, b := range input.AllButtons {
		assert.False(t, device.IsMouseButtonPressed(b), b.String())
	}
	assert.Equal(t, input.ButtonMask(0), device.MouseButtonMask())
	assert.Len(t, device.Events(), 4)
	for _, e := range device.Events() {
		switch v := e.(type) {
		case input.KeyEvent:
			assert.False(t, v.Pressed)
		case input.MouseButtonEvent:
			assert.False(t, v.Pressed)
		}
	}

	assert.Equal(t, 60, f.host.IterationsPerSecond())
	assert.Equal(t, 1.0, f.host.TimeScale())
	assert.Len(t, f.host.Root(), 0)
	assert.True(t, f.node.Freed())
	assert.True(t, f.s.Disposed())
}

func TestDisposeIsIdempotent(t *testing.T) {
	f := newSessionFixture(t)
	require.NoError(t, f.s.SimulateKeyPress(ctx, input.KeyA))
	f.s.Dispose()
	count := len(f.host.FakeDevice().Events())
	f.s.Dispose()
	assert.Len(t, f.host.FakeDevice().Events(), count)
	assert.Len(t, f.logs.Output(), 0)
}

func TestSimulateAfterDisposeFails(t *testing.T) {
	f := newSessionFixture(t)
	f.s.Dispose()
	assert.Equal(t, scene.ErrDisposed, f.s.SimulateKeyPress(ctx, input.KeyA))
}

func TestDisposedSessionDoesNotQueryHost(t *testing.T) {
	host := scenetest.NewHost()
	defer host.Close()
	host.Register(testScenePath, func() *scenetest.Node { return scenetest.NewNode("Done").WithFocus("Button") })
	logs := &logging.CapturingLogger{}
	s, err := scene.Attach(ctx, host, testScenePath, scene.Options{Verbose: true, Logger: logs})
	require.NoError(t, err)
	s.Dispose()
	traced, queries := len(logs.Output()), host.MouseQueries()

	assert.Equal(t, scene.ErrDisposed, s.SetMousePos(ctx, input.Vec(1, 1)))
	assert.Equal(t, scene.ErrDisposed, s.SimulateKeyPress(ctx, input.KeyA))
	assert.Equal(t, scene.ErrDisposed, s.SimulateMouseMove(ctx, input.Vec(2, 2)))

	assert.Len(t, logs.Output(), traced)
	assert.Equal(t, queries, host.MouseQueries())
}

func TestDisposeWithoutAutoFreeKeepsNode(t *testing.T) {
	host := scenetest.NewHost()
	node := scenetest.NewNode("Kept")
	host.Register(testScenePath, func() *scenetest.Node { return node })
	s, err := scene.Attach(context.Background(), host, testScenePath, scene.Options{})
	require.NoError(t, err)
	s.Dispose()
	assert.False(t, node.Freed())
	assert.Len(t, host.Root(), 0)
}

func TestMoveWindowToForegroundIsRestoredOnDispose(t *testing.T) {
	f := newSessionFixture(t)
	f.s.MoveWindowToForeground()
	fg, calls := f.host.WindowForeground()
	assert.True(t, fg)
	assert.Equal(t, 1, calls)

	f.s.Dispose()
	fg, calls = f.host.WindowForeground()
	assert.False(t, fg)
	assert.Equal(t, 2, calls)
}

func TestVerboseSessionTracesEvents(t *testing.T) {
	host := scenetest.NewHost()
	host.Register(testScenePath, func() *scenetest.Node { return scenetest.NewNode("Traced").WithFocus("Button") })
	logs := &logging.CapturingLogger{}
	s, err := scene.Attach(context.Background(), host, testScenePath, scene.Options{Verbose: true, Logger: logs})
	require.NoError(t, err)
	defer s.Dispose()

	require.NoError(t, s.SimulateKeyPress(ctx, input.KeyA))
	var messages []string
	for _, m := range logs.Output() {
		messages = append(messages, m.Message)
	}
	assert.Contains(t, messages, "set time factor: 1")
	assert.Contains(t, messages, "\tfocus on Button")
	assert.Contains(t, messages, "\tprocess event Traced (Traced) <- InputEventKey : A pressed")
}
