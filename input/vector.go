package input

import (
	"fmt"
	"math"
)

const approxEpsilon = 0.00001

// Vector2 is a position or delta in viewport coordinates.
type Vector2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vec returns Vector2{x, y}.
func Vec(x, y float64) Vector2 { return Vector2{X: x, Y: y} }

func (v Vector2) Add(o Vector2) Vector2 { return Vector2{v.X + o.X, v.Y + o.Y} }

func (v Vector2) Sub(o Vector2) Vector2 { return Vector2{v.X - o.X, v.Y - o.Y} }

// Lerp interpolates linearly from v towards o by the weight t.
func (v Vector2) Lerp(o Vector2, t float64) Vector2 {
	return Vector2{v.X + (o.X-v.X)*t, v.Y + (o.Y-v.Y)*t}
}

// ApproxEqual compares both components with a tolerance relative to their magnitude.
func (v Vector2) ApproxEqual(o Vector2) bool {
	return approxEqual(v.X, o.X) && approxEqual(v.Y, o.Y)
}

func approxEqual(a, b float64) bool {
	if a == b {
		return true
	}
	tolerance := approxEpsilon * math.Abs(a)
	if tolerance < approxEpsilon {
		tolerance = approxEpsilon
	}
	return math.Abs(a-b) < tolerance
}

func (v Vector2) String() string {
	return fmt.Sprintf("(%g, %g)", v.X, v.Y)
}
