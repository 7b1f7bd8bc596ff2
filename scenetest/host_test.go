package scenetest

import (
	"context"
	"testing"
	"time"

	"github.com/launchdarkly/scenerunner/input"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

func TestManualFramesAdvanceOnAwait(t *testing.T) {
	h := NewHost()
	var seen []int
	h.OnFrame(func(frame int) { seen = append(seen, frame) })
	require.NoError(t, h.AwaitIdleFrame(context.Background()))
	require.NoError(t, h.AwaitIdleFrame(context.Background()))
	assert.Equal(t, []int{1, 2}, seen)
}

func TestFrameHookAddedDuringFrameRunsFromNextFrame(t *testing.T) {
	h := NewHost()
	var late []int
	h.OnFrame(func(frame int) {
		if frame == 1 {
			h.OnFrame(func(frame int) { late = append(late, frame) })
		}
	})
	for i := 0; i < 3; i++ {
		require.NoError(t, h.AwaitIdleFrame(context.Background()))
	}
	assert.Equal(t, []int{2, 3}, late)
}

func TestTickingHostAdvancesOnItsOwn(t *testing.T) {
	h := NewHost()
	h.SetIterationsPerSecond(200)
	h.StartTicking()
	defer h.Close()
	assert.Eventually(t, func() bool { return h.Frames() >= 3 }, time.Second, time.Millisecond)
	require.NoError(t, h.AwaitIdleFrame(context.Background()))
}

func TestAwaitIdleFrameHonoursContext(t *testing.T) {
	h := NewHost()
	h.SetIterationsPerSecond(1)
	h.StartTicking()
	defer h.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Equal(t, context.DeadlineExceeded, h.AwaitIdleFrame(ctx))
}

func TestDeviceTracksPressState(t *testing.T) {
	d := newDevice()
	require.NoError(t, d.ParseInputEvent(context.Background(), input.KeyEvent{Key: input.KeyW, Pressed: true}))
	require.NoError(t, d.ParseInputEvent(context.Background(), input.MouseButtonEvent{Button: input.ButtonMiddle, Pressed: true, Mask: 2}))
	keys, buttons := d.pressed()
	assert.Equal(t, []input.Key{input.KeyW}, keys)
	assert.Equal(t, []input.Button{input.ButtonMiddle}, buttons)
	assert.Equal(t, input.ButtonMask(2), d.MouseButtonMask())

	require.NoError(t, d.ParseInputEvent(context.Background(), input.KeyEvent{Key: input.KeyW}))
	assert.False(t, d.IsKeyPressed(input.KeyW))
}

func TestNodeSignalWaiters(t *testing.T) {
	n := NewNode("n")
	done := make(chan []ldvalue.Value)
	go func() {
		args, _ := n.AwaitSignal(context.Background(), "s")
		done <- args
	}()
	require.Eventually(t, func() bool { return n.Waiting("s") == 1 }, time.Second, time.Millisecond)
	n.Emit("s", ldvalue.Int(1))
	assert.Equal(t, []ldvalue.Value{ldvalue.Int(1)}, <-done)
	assert.Equal(t, 0, n.Waiting("s"))
}
