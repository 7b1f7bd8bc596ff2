package scene

import (
	"errors"
	"fmt"
	"time"
)

// LoadError means the scene resource could not be instantiated or attached. A session cannot be
// created after it.
type LoadError struct {
	ResourcePath string
	Err          error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("could not load scene %q: %s", e.ResourcePath, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// MissingCapabilityError means the scene does not expose a requested method or property.
type MissingCapabilityError struct {
	// Kind is "method" or "property".
	Kind string
	Name string
}

func (e *MissingCapabilityError) Error() string {
	return fmt.Sprintf("the %s '%s' does not exist on the loaded scene", e.Kind, e.Name)
}

// CallSite is the source location of the code that started a guarded wait.
type CallSite struct {
	File string
	Line int
}

func (c CallSite) String() string {
	if c.File == "" {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", c.File, c.Line)
}

// TimeoutError means a deadline elapsed before the awaited operation completed. It is distinct
// from an assertion failure: the application never reached the expected state in time.
type TimeoutError struct {
	Timeout time.Duration
	Site    CallSite
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %dms (awaited at %s)", e.Timeout.Milliseconds(), e.Site)
}

// IsTimeout reports whether err is or wraps a *TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
