package scenarios

import (
	"context"
	"fmt"

	"github.com/launchdarkly/scenerunner/framework"
	"github.com/launchdarkly/scenerunner/scene"

	"github.com/stretchr/testify/require"
)

type environment struct {
	host         scene.Host
	capabilities framework.CapabilitySource
}

// T is the test scope of a scenario test. It can be passed to testify's assert and require
// functions; a failed require ends the test, and the scene is disposed either way.
type T struct {
	context *framework.Context
	env     *environment
	session *scene.Session
}

func newTestScope(context *framework.Context, env *environment) *T {
	return &T{context: context, env: env}
}

func (t *T) close() {
	if t.session != nil {
		t.session.Dispose()
	}
}

// Errorf is called by assertions to log a test failure. It does not cause an immediate exit.
func (t *T) Errorf(format string, args ...interface{}) {
	t.context.Errorf(format, args...)
}

// FailNow is called by assertions when a test should fail and immediately exit. The methods in
// the require package call FailNow.
func (t *T) FailNow() {
	t.context.FailNow()
}

// Run runs a subtest. This is equivalent to the Run method of testing.T.
func (t *T) Run(name string, action func(*T)) {
	var t1 *T
	t.context.Run(name, func(c *framework.Context) {
		t1 = newTestScope(c, t.env)
		action(t1)
	})
	if t1 != nil {
		t1.close()
	}
}

// Debug logs some debug output for the test. The output will be passed to the test logger at
// the end of the test.
func (t *T) Debug(format string, args ...interface{}) {
	t.context.Debug(format, args...)
}

// RequireCapability skips this test if the AUT service did not declare that it supports the
// specified capability.
func (t *T) RequireCapability(capability string) {
	if t.env.capabilities != nil && !t.env.capabilities.HasCapability(capability) {
		t.context.SkipWithReason(fmt.Sprintf("AUT service does not have capability %q", capability))
	}
}

// LoadScene attaches the scene at resourcePath for the rest of the test. Verbose traces go to
// the test's debug output.
func (t *T) LoadScene(resourcePath string, autoFree, verbose bool) *scene.Session {
	require.Nil(t, t.session, "a scene was already loaded in this test")
	s, err := scene.Attach(context.Background(), t.env.host, resourcePath, scene.Options{
		AutoFree: autoFree,
		Verbose:  verbose,
		Logger:   t.context.DebugLogger(),
	})
	require.NoError(t, err)
	t.session = s
	return s
}

// Session is the scene loaded by LoadScene, or nil.
func (t *T) Session() *scene.Session {
	return t.session
}
