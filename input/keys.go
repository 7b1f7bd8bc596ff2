package input

import "fmt"

// Key is a key code. Printable keys use their uppercase character code; special keys are
// offset by SpecialKey.
type Key uint32

// SpecialKey is the offset for keys that have no character representation.
const SpecialKey Key = 1 << 24

const maxKey = SpecialKey | 0xFFFF

const (
	KeyEscape    Key = SpecialKey | 0x01
	KeyTab       Key = SpecialKey | 0x02
	KeyBackspace Key = SpecialKey | 0x04
	KeyEnter     Key = SpecialKey | 0x05
	KeyDelete    Key = SpecialKey | 0x08
	KeyHome      Key = SpecialKey | 0x0D
	KeyEnd       Key = SpecialKey | 0x0E
	KeyLeft      Key = SpecialKey | 0x0F
	KeyUp        Key = SpecialKey | 0x10
	KeyRight     Key = SpecialKey | 0x11
	KeyDown      Key = SpecialKey | 0x12
	KeyShift     Key = SpecialKey | 0x1D
	KeyControl   Key = SpecialKey | 0x1E
	KeyMeta      Key = SpecialKey | 0x1F
	KeyAlt       Key = SpecialKey | 0x20

	KeySpace Key = ' '
	Key0     Key = '0'
	Key1     Key = '1'
	Key9     Key = '9'
	KeyA     Key = 'A'
	KeyB     Key = 'B'
	KeyD     Key = 'D'
	KeyG     Key = 'G'
	KeyW     Key = 'W'
	KeyX     Key = 'X'
	KeyZ     Key = 'Z'
)

var specialKeyNames = map[Key]string{
	KeyEscape:    "Escape",
	KeyTab:       "Tab",
	KeyBackspace: "BackSpace",
	KeyEnter:     "Enter",
	KeyDelete:    "Delete",
	KeyHome:      "Home",
	KeyEnd:       "End",
	KeyLeft:      "Left",
	KeyUp:        "Up",
	KeyRight:     "Right",
	KeyDown:      "Down",
	KeyShift:     "Shift",
	KeyControl:   "Control",
	KeyMeta:      "Meta",
	KeyAlt:       "Alt",
	KeySpace:     "Space",
}

// Valid reports whether the key code is in the range the engine understands.
func (k Key) Valid() bool {
	return k > 0 && k <= maxKey
}

// IsModifier reports whether the key is one of Shift, Control, Alt or Meta.
func (k Key) IsModifier() bool {
	return k == KeyShift || k == KeyControl || k == KeyAlt || k == KeyMeta
}

func (k Key) String() string {
	if name, ok := specialKeyNames[k]; ok {
		return name
	}
	if k > ' ' && k < 0x7F {
		return string(rune(k))
	}
	return fmt.Sprintf("Key(%#x)", uint32(k))
}

// ParseKey resolves a key name as printed by Key.String, or a single character.
func ParseKey(name string) (Key, error) {
	for k, n := range specialKeyNames {
		if n == name {
			return k, nil
		}
	}
	if r := []rune(name); len(r) == 1 && r[0] > ' ' && r[0] < 0x7F {
		c := r[0]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		return Key(c), nil
	}
	return 0, &InvalidInputError{Kind: "key", Name: name}
}

// Button is a mouse button index, starting at 1.
type Button int

const (
	ButtonLeft Button = iota + 1
	ButtonMiddle
	ButtonRight
	ButtonWheelUp
	ButtonWheelDown
	ButtonWheelLeft
	ButtonWheelRight
	ButtonXButton1
	ButtonXButton2
)

// AllButtons lists every button in index order.
var AllButtons = []Button{
	ButtonLeft, ButtonMiddle, ButtonRight,
	ButtonWheelUp, ButtonWheelDown, ButtonWheelLeft, ButtonWheelRight,
	ButtonXButton1, ButtonXButton2,
}

var buttonNames = []string{"", "Left", "Middle", "Right", "WheelUp", "WheelDown", "WheelLeft", "WheelRight", "XButton1", "XButton2"}

// Valid reports whether the button index is a known button.
func (b Button) Valid() bool {
	return b >= ButtonLeft && b <= ButtonXButton2
}

func (b Button) String() string {
	if b.Valid() {
		return buttonNames[b]
	}
	return fmt.Sprintf("Button(%d)", int(b))
}

// Mask returns the bit this button contributes to a ButtonMask.
func (b Button) Mask() ButtonMask {
	return ButtonMask(1) << (uint(b) - 1)
}

// ParseButton resolves a button name as printed by Button.String.
func ParseButton(name string) (Button, error) {
	for i, n := range buttonNames {
		if i > 0 && n == name {
			return Button(i), nil
		}
	}
	return 0, &InvalidInputError{Kind: "button", Name: name}
}

// ButtonMask is a bitmask of held mouse buttons.
type ButtonMask int

// Has reports whether the button's bit is set.
func (m ButtonMask) Has(b Button) bool {
	return b.Valid() && m&b.Mask() != 0
}

// InvalidInputError means that an unknown key or button was requested. Such requests are never
// clamped or ignored.
type InvalidInputError struct {
	Kind  string
	Value int64
	Name  string
}

func (e *InvalidInputError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("invalid %s %q", e.Kind, e.Name)
	}
	return fmt.Sprintf("invalid %s %d", e.Kind, e.Value)
}
