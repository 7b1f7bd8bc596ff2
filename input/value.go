package input

import (
	"fmt"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// ToValue serializes an event into the JSON-like form that is passed to input hooks and sent
// over the wire.
func ToValue(e Event) ldvalue.Value {
	b := ldvalue.ObjectBuild().
		Set("type", ldvalue.String(e.Kind().String())).
		Set("modifiers", modifiersValue(e.Mods()))
	switch v := e.(type) {
	case KeyEvent:
		b.Set("key", ldvalue.Int(int(v.Key))).
			Set("pressed", ldvalue.Bool(v.Pressed))
	case MouseButtonEvent:
		b.Set("button", ldvalue.Int(int(v.Button))).
			Set("pressed", ldvalue.Bool(v.Pressed)).
			Set("doubleClick", ldvalue.Bool(v.DoubleClick)).
			Set("position", vectorValue(v.Position)).
			Set("globalPosition", vectorValue(v.GlobalPosition)).
			Set("mask", ldvalue.Int(int(v.Mask)))
	case MouseMotionEvent:
		b.Set("position", vectorValue(v.Position)).
			Set("globalPosition", vectorValue(v.GlobalPosition)).
			Set("relative", vectorValue(v.Relative)).
			Set("mask", ldvalue.Int(int(v.Mask)))
	}
	return b.Build()
}

// FromValue is the inverse of ToValue.
func FromValue(v ldvalue.Value) (Event, error) {
	if v.Type() != ldvalue.ObjectType {
		return nil, fmt.Errorf("input event must be an object, got %s", v.JSONString())
	}
	mods := modifiersFromValue(v.GetByKey("modifiers"))
	switch kind := v.GetByKey("type").StringValue(); kind {
	case KindKey.String():
		return KeyEvent{
			Key:       Key(v.GetByKey("key").IntValue()),
			Pressed:   v.GetByKey("pressed").BoolValue(),
			Modifiers: mods,
		}, nil
	case KindMouseButton.String():
		return MouseButtonEvent{
			Button:         Button(v.GetByKey("button").IntValue()),
			Pressed:        v.GetByKey("pressed").BoolValue(),
			DoubleClick:    v.GetByKey("doubleClick").BoolValue(),
			Position:       vectorFromValue(v.GetByKey("position")),
			GlobalPosition: vectorFromValue(v.GetByKey("globalPosition")),
			Mask:           ButtonMask(v.GetByKey("mask").IntValue()),
			Modifiers:      mods,
		}, nil
	case KindMouseMotion.String():
		return MouseMotionEvent{
			Position:       vectorFromValue(v.GetByKey("position")),
			GlobalPosition: vectorFromValue(v.GetByKey("globalPosition")),
			Relative:       vectorFromValue(v.GetByKey("relative")),
			Mask:           ButtonMask(v.GetByKey("mask").IntValue()),
			Modifiers:      mods,
		}, nil
	default:
		return nil, fmt.Errorf("unknown input event type %q", kind)
	}
}

// VectorValue serializes a position as {"x":..., "y":...}.
func VectorValue(v Vector2) ldvalue.Value { return vectorValue(v) }

// VectorFromValue is the inverse of VectorValue.
func VectorFromValue(v ldvalue.Value) Vector2 { return vectorFromValue(v) }

func vectorValue(v Vector2) ldvalue.Value {
	return ldvalue.ObjectBuild().
		Set("x", ldvalue.Float64(v.X)).
		Set("y", ldvalue.Float64(v.Y)).
		Build()
}

func vectorFromValue(v ldvalue.Value) Vector2 {
	return Vector2{X: v.GetByKey("x").Float64Value(), Y: v.GetByKey("y").Float64Value()}
}

func modifiersValue(m Modifiers) ldvalue.Value {
	return ldvalue.ObjectBuild().
		Set("alt", ldvalue.Bool(m.Alt)).
		Set("shift", ldvalue.Bool(m.Shift)).
		Set("control", ldvalue.Bool(m.Control)).
		Set("meta", ldvalue.Bool(m.Meta)).
		Build()
}

func modifiersFromValue(v ldvalue.Value) Modifiers {
	return Modifiers{
		Alt:     v.GetByKey("alt").BoolValue(),
		Shift:   v.GetByKey("shift").BoolValue(),
		Control: v.GetByKey("control").BoolValue(),
		Meta:    v.GetByKey("meta").BoolValue(),
	}
}
