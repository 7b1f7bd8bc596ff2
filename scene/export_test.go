package scene

import (
	"context"
	"time"
)

// SetSleeper replaces the wall-clock wait of the session's clock.
func SetSleeper(s *Session, sleep func(context.Context, time.Duration) error) {
	s.clock.sleep = sleep
}
