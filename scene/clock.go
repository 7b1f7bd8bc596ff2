package scene

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/launchdarkly/scenerunner/logging"
)

const (
	// MinTimeFactor is what zero, negative or NaN time factors are clamped to.
	MinTimeFactor = 0.01
	// MaxTimeFactor is the largest supported time factor.
	MaxTimeFactor = 9.0
)

// ClampTimeFactor limits f to [MinTimeFactor, MaxTimeFactor].
func ClampTimeFactor(f float64) float64 {
	if math.IsNaN(f) || f < MinTimeFactor {
		return MinTimeFactor
	}
	return math.Min(MaxTimeFactor, f)
}

// FrameClock converts logical time into waits, and applies a time factor to the host's
// iteration rate and time scale.
type FrameClock struct {
	host      Host
	logger    logging.Logger
	baseRate  int
	baseScale float64
	factor    float64
	lock      sync.Mutex
	restore   sync.Once
	sleep     func(context.Context, time.Duration) error
}

// NewFrameClock captures the host's current iteration rate and time scale as the baseline that
// Restore returns to. The time factor starts at 1.
func NewFrameClock(host Host, logger logging.Logger) *FrameClock {
	if logger == nil {
		logger = logging.NullLogger()
	}
	return &FrameClock{
		host:      host,
		logger:    logger,
		baseRate:  host.IterationsPerSecond(),
		baseScale: host.TimeScale(),
		factor:    1,
		sleep:     Sleep,
	}
}

// SetTimeFactor clamps f, applies it to the host and returns the effective factor.
func (c *FrameClock) SetTimeFactor(f float64) float64 {
	f = ClampTimeFactor(f)
	rate := int(float64(c.baseRate) * f)
	if rate < 1 {
		rate = 1
	}
	c.lock.Lock()
	c.factor = f
	c.lock.Unlock()

	c.host.SetTimeScale(f)
	c.host.SetIterationsPerSecond(rate)
	c.logger.Printf("set time factor: %v", f)
	c.logger.Printf("set physics iterations_per_second: %d", rate)
	return f
}

func (c *FrameClock) TimeFactor() float64 {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.factor
}

// FramesFor is the number of host frames that AdvanceFrames waits for: count divided by the
// time factor, rounded up, and at least one.
func (c *FrameClock) FramesFor(count int) int {
	n := int(math.Ceil(float64(count) / c.TimeFactor()))
	if n < 1 {
		return 1
	}
	return n
}

// AdvanceFrames waits for FramesFor(count) idle frames of the host, in lock-step with its
// scheduler.
func (c *FrameClock) AdvanceFrames(ctx context.Context, count int) error {
	for i, n := 0, c.FramesFor(count); i < n; i++ {
		if err := c.host.AwaitIdleFrame(ctx); err != nil {
			return err
		}
	}
	return nil
}

// AdvanceFramesEvery waits count times for interval of wall-clock time, independently of how fast
// the host is ticking.
func (c *FrameClock) AdvanceFramesEvery(ctx context.Context, count int, interval time.Duration) error {
	for i := 0; i < count; i++ {
		if err := c.sleep(ctx, interval); err != nil {
			return err
		}
	}
	return nil
}

// Restore returns the host to the baseline rate and scale. Only the first call has an effect.
func (c *FrameClock) Restore() {
	c.restore.Do(func() {
		c.host.SetTimeScale(c.baseScale)
		c.host.SetIterationsPerSecond(c.baseRate)
		c.lock.Lock()
		c.factor = 1
		c.lock.Unlock()
	})
}

// Sleep waits for d of wall-clock time, or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
