package framework

import (
	"bytes"
	"errors"
	"testing"

	"github.com/launchdarkly/scenerunner/logging"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTestLogger struct {
	events []string
}

func (r *recordingTestLogger) TestStarted(id TestID) { r.events = append(r.events, "start "+id.String()) }

func (r *recordingTestLogger) TestError(id TestID, err error) {
	r.events = append(r.events, "error "+id.String()+": "+err.Error())
}

func (r *recordingTestLogger) TestFinished(id TestID, failed bool, debugOutput logging.CapturedOutput) {
	if failed {
		r.events = append(r.events, "failed "+id.String())
	} else {
		r.events = append(r.events, "passed "+id.String())
	}
}

func (r *recordingTestLogger) TestSkipped(id TestID, reason string) {
	r.events = append(r.events, "skipped "+id.String()+" "+reason)
}

func TestRunCollectsResults(t *testing.T) {
	tl := &recordingTestLogger{}
	results := Run(nil, tl, func(c *Context) {
		c.Run("a", func(c *Context) {
			c.Run("ok", func(c *Context) {})
			c.Run("bad", func(c *Context) {
				require.Equal(c, 1, 2)
			})
		})
		c.Run("skip", func(c *Context) { c.SkipWithReason("not today") })
	})

	require.Len(t, results.Tests, 4)
	assert.False(t, results.OK())
	require.Len(t, results.Failures, 1)
	assert.Equal(t, "a/bad", results.Failures[0].TestID.String())
	assert.Equal(t, 1, results.Skipped())
	assert.Contains(t, tl.events, "skipped skip not today")
	assert.Contains(t, tl.events, "failed a/bad")
	assert.Contains(t, tl.events, "passed a/ok")
}

func TestRunRecoversUnexpectedPanic(t *testing.T) {
	results := Run(nil, nil, func(c *Context) {
		c.Run("boom", func(c *Context) { panic(errors.New("kaboom")) })
	})
	require.Len(t, results.Failures, 1)
	assert.Contains(t, results.Failures[0].Errors[0].Error(), "kaboom")
}

func TestFilterExcludesTests(t *testing.T) {
	var filters RegexFilters
	require.NoError(t, filters.MustNotMatch.Set("^keys/"))
	ran := map[string]bool{}
	results := Run(filters.AsFilter, nil, func(c *Context) {
		c.Run("keys", func(c *Context) {
			c.Run("shift", func(c *Context) { ran["keys/shift"] = true })
		})
		c.Run("mouse", func(c *Context) { ran["mouse"] = true })
	})
	assert.Equal(t, map[string]bool{"mouse": true}, ran)
	assert.True(t, results.OK())
}

func TestSubtestIDsDoNotShareStorage(t *testing.T) {
	parent := TestID{Path: make([]string, 1, 4)}
	a := parent.Plus("a")
	b := parent.Plus("b")
	assert.Equal(t, "/a", a.String())
	assert.Equal(t, "/b", b.String())
}

func TestPrintResults(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = saved }()

	var buf bytes.Buffer
	PrintResults(&buf, Results{
		Tests:    []TestResult{{TestID: TestID{Path: []string{"x"}}, Errors: []error{errors.New("bad\nthing")}}},
		Failures: []TestResult{{TestID: TestID{Path: []string{"x"}}, Errors: []error{errors.New("bad\nthing")}}},
	})
	assert.Equal(t, "FAILED TESTS (1):\n  * x\n      bad\n      thing\n0 passed, 1 failed, 0 skipped\n", buf.String())

	buf.Reset()
	PrintResults(&buf, Results{Tests: []TestResult{{TestID: TestID{Path: []string{"y"}}}}})
	assert.Equal(t, "All tests passed (1 passed, 0 skipped)\n", buf.String())
}
