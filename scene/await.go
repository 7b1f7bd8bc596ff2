package scene

import (
	"context"
	"strings"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// ValueMatcher tests a value returned by the scene.
type ValueMatcher func(ldvalue.Value) bool

// Equals matches values equal to expected.
func Equals(expected ldvalue.Value) ValueMatcher {
	return func(v ldvalue.Value) bool { return v.Equal(expected) }
}

// IsNull matches null values.
func IsNull() ValueMatcher {
	return func(v ldvalue.Value) bool { return v.IsNull() }
}

// IsNotNull matches any non-null value.
func IsNotNull() ValueMatcher {
	return func(v ldvalue.Value) bool { return !v.IsNull() }
}

// AwaitMethod calls method once per idle frame until its return value matches, and returns that
// value. It returns a *MissingCapabilityError straight away if the scene has no such method.
func (s *Session) AwaitMethod(ctx context.Context, method string, match ValueMatcher, args ...ldvalue.Value) (ldvalue.Value, error) {
	if !s.node.HasMethod(method) {
		return ldvalue.Null(), &MissingCapabilityError{Kind: "method", Name: method}
	}
	for {
		v, err := s.node.Call(ctx, method, args...)
		if err != nil {
			return ldvalue.Null(), err
		}
		if match(v) {
			return v, nil
		}
		if err := s.host.AwaitIdleFrame(ctx); err != nil {
			return ldvalue.Null(), err
		}
	}
}

func valuesEqual(actual, expected []ldvalue.Value) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i := range actual {
		if !actual[i].Equal(expected[i]) {
			return false
		}
	}
	return true
}

func formatValues(values []ldvalue.Value) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, v.JSONString())
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
