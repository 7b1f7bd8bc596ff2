package scenarios

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/launchdarkly/scenerunner/input"
	"github.com/launchdarkly/scenerunner/scene"
	"github.com/launchdarkly/scenerunner/servicedef"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// DefaultAwaitTimeout bounds the steps that wait for the scene when no timeout is configured.
const DefaultAwaitTimeout = time.Second * 5

// compiledStep is a validated step, ready to run against a session.
type compiledStep struct {
	desc       string
	timeout    time.Duration
	capability string
	run        func(ctx context.Context, s *scene.Session) error
}

func (s Step) compile(defaultTimeoutMS int) (compiledStep, error) {
	timeoutMS := s.TimeoutMS
	if timeoutMS == 0 {
		timeoutMS = defaultTimeoutMS
	}
	c := compiledStep{desc: s.Action, timeout: time.Duration(timeoutMS) * time.Millisecond}
	pos := input.Vec(s.X, s.Y)

	switch s.Action {
	case "key_press", "key_release", "key_pressed":
		key, err := input.ParseKey(s.Key)
		if err != nil {
			return c, err
		}
		mods := make([]input.Modifier, 0, len(s.Mods))
		for _, name := range s.Mods {
			m, err := input.ParseModifier(name)
			if err != nil {
				return c, err
			}
			mods = append(mods, m)
		}
		c.desc = fmt.Sprintf("%s %s", s.Action, key)
		c.run = func(ctx context.Context, ss *scene.Session) error {
			switch s.Action {
			case "key_press":
				return ss.SimulateKeyPress(ctx, key, mods...)
			case "key_release":
				return ss.SimulateKeyRelease(ctx, key, mods...)
			}
			return ss.SimulateKeyPressed(ctx, key, mods...)
		}

	case "mouse_press", "mouse_release", "mouse_pressed":
		button, err := input.ParseButton(s.Button)
		if err != nil {
			return c, err
		}
		c.desc = fmt.Sprintf("%s %s", s.Action, button)
		c.run = func(ctx context.Context, ss *scene.Session) error {
			switch s.Action {
			case "mouse_press":
				return ss.SimulateMouseButtonPress(ctx, button, s.DoubleClick)
			case "mouse_release":
				return ss.SimulateMouseButtonRelease(ctx, button)
			}
			return ss.SimulateMouseButtonPressed(ctx, button, s.DoubleClick)
		}

	case "mouse_pos":
		c.desc = fmt.Sprintf("mouse_pos %s", pos)
		c.run = func(ctx context.Context, ss *scene.Session) error { return ss.SetMousePos(ctx, pos) }

	case "mouse_move":
		c.desc = fmt.Sprintf("mouse_move %s", pos)
		c.run = func(ctx context.Context, ss *scene.Session) error { return ss.SimulateMouseMove(ctx, pos) }

	case "mouse_move_relative":
		speed := scene.DefaultMoveSpeed
		switch len(s.Speed) {
		case 0:
		case 2:
			speed = input.Vec(s.Speed[0], s.Speed[1])
		default:
			return c, errors.New("speed must have two elements")
		}
		c.desc = fmt.Sprintf("mouse_move_relative %s", pos)
		c.run = func(ctx context.Context, ss *scene.Session) error {
			return ss.SimulateMouseMoveRelative(ctx, pos, speed)
		}

	case "frames":
		if s.Count < 0 || s.IntervalMS < 0 {
			return c, errors.New("count and interval_ms must not be negative")
		}
		interval := time.Duration(s.IntervalMS) * time.Millisecond
		c.desc = fmt.Sprintf("frames %d", s.Count)
		c.run = func(ctx context.Context, ss *scene.Session) error {
			if interval > 0 {
				return ss.SimulateFramesEvery(ctx, s.Count, interval)
			}
			return ss.SimulateFrames(ctx, s.Count)
		}

	case "wait_ms":
		c.desc = fmt.Sprintf("wait_ms %d", s.MS)
		c.run = func(ctx context.Context, ss *scene.Session) error { return ss.AwaitMillis(ctx, s.MS) }

	case "idle_frame":
		c.run = func(ctx context.Context, ss *scene.Session) error { return ss.AwaitIdleFrame(ctx) }

	case "time_factor":
		c.desc = fmt.Sprintf("time_factor %v", s.Factor)
		c.capability = servicedef.CapabilityEngineSettings
		c.run = func(_ context.Context, ss *scene.Session) error {
			ss.SetTimeFactor(s.Factor)
			return nil
		}

	case "await_signal":
		if s.Signal == "" {
			return c, errors.New("signal is required")
		}
		args := toValues(s.Args)
		c.desc = fmt.Sprintf("await_signal %s", s.Signal)
		c.capability = servicedef.CapabilitySignals
		c.run = func(ctx context.Context, ss *scene.Session) error { return ss.AwaitSignal(ctx, s.Signal, args...) }

	case "await_method":
		if s.Method == "" || s.Value == nil {
			return c, errors.New("method and value are required")
		}
		args, expected := toValues(s.Args), toValue(s.Value)
		c.desc = fmt.Sprintf("await_method %s", s.Method)
		c.run = func(ctx context.Context, ss *scene.Session) error {
			_, err := ss.AwaitMethod(ctx, s.Method, scene.Equals(expected), args...)
			return err
		}

	case "invoke":
		if s.Method == "" {
			return c, errors.New("method is required")
		}
		args := toValues(s.Args)
		c.desc = fmt.Sprintf("invoke %s", s.Method)
		c.run = func(ctx context.Context, ss *scene.Session) error {
			v, err := ss.Invoke(ctx, s.Method, args...)
			if err != nil || s.Value == nil {
				return err
			}
			return expectValue("result of "+s.Method, v, toValue(s.Value))
		}

	case "expect_property":
		if s.Property == "" || s.Value == nil {
			return c, errors.New("property and value are required")
		}
		c.desc = fmt.Sprintf("expect_property %s", s.Property)
		c.run = func(_ context.Context, ss *scene.Session) error {
			v, err := ss.Property(s.Property)
			if err != nil {
				return err
			}
			return expectValue("property "+s.Property, v, toValue(s.Value))
		}

	case "window_foreground":
		c.capability = servicedef.CapabilityWindow
		c.run = func(_ context.Context, ss *scene.Session) error {
			ss.MoveWindowToForeground()
			return nil
		}

	default:
		return c, fmt.Errorf("unknown action %q", s.Action)
	}

	if c.timeout == 0 && waits(s.Action) {
		c.timeout = DefaultAwaitTimeout
	}
	return c, nil
}

// waits reports whether an action waits for the scene to do something, rather than for a known
// amount of time.
func waits(action string) bool {
	return action == "await_signal" || action == "await_method"
}

func expectValue(what string, actual, expected ldvalue.Value) error {
	if actual.Equal(expected) {
		return nil
	}
	return fmt.Errorf("%s was %s, expected %s", what, actual.JSONString(), expected.JSONString())
}

func toValues(values []any) []ldvalue.Value {
	ret := make([]ldvalue.Value, 0, len(values))
	for _, v := range values {
		ret = append(ret, toValue(v))
	}
	return ret
}

// toValue converts a decoded TOML value.
func toValue(v any) ldvalue.Value {
	switch o := v.(type) {
	case int64:
		return ldvalue.Float64(float64(o))
	case []any:
		return ldvalue.ArrayOf(toValues(o)...)
	case map[string]any:
		b := ldvalue.ObjectBuild()
		for k, item := range o {
			b.Set(k, toValue(item))
		}
		return b.Build()
	case time.Time, toml.LocalDate, toml.LocalDateTime, toml.LocalTime:
		return ldvalue.String(fmt.Sprint(o))
	}
	return ldvalue.CopyArbitraryValue(v)
}
