package scenarios

import (
	"context"

	"github.com/launchdarkly/scenerunner/framework"
	"github.com/launchdarkly/scenerunner/scene"

	"github.com/stretchr/testify/require"
)

// RunScenarios runs every test of every file against host. Test IDs are "file name/test name".
// If capabilities is nil, every capability is assumed to be available.
func RunScenarios(
	files []*File,
	host scene.Host,
	capabilities framework.CapabilitySource,
	filter framework.Filter,
	testLogger framework.TestLogger,
) framework.Results {
	env := &environment{host: host, capabilities: capabilities}
	return framework.Run(filter, testLogger, func(c *framework.Context) {
		t := newTestScope(c, env)
		for _, f := range files {
			f := f
			t.Run(f.Name, func(t *T) { runFile(t, f) })
		}
	})
}

func runFile(t *T, f *File) {
	for _, capability := range f.Requires {
		t.RequireCapability(capability)
	}
	for _, test := range f.Tests {
		test := test
		t.Run(test.Name, func(t *T) { runTest(t, f, test) })
	}
}

func runTest(t *T, f *File, test Test) {
	for _, capability := range test.Requires {
		t.RequireCapability(capability)
	}
	timeoutMS := test.TimeoutMS
	if timeoutMS == 0 {
		timeoutMS = f.TimeoutMS
	}
	steps := make([]compiledStep, 0, len(test.Steps))
	for i, s := range test.Steps {
		step, err := s.compile(timeoutMS)
		require.NoError(t, err, "step %d", i+1)
		if step.capability != "" {
			t.RequireCapability(step.capability)
		}
		steps = append(steps, step)
	}

	session := t.LoadScene(f.Scene, f.autoFree(), f.Verbose)
	for i, step := range steps {
		t.Debug("step %d: %s", i+1, step.desc)
		err := scene.Await(context.Background(), step.timeout, func(ctx context.Context) error {
			return step.run(ctx, session)
		})
		require.NoError(t, err, "step %d (%s)", i+1, step.desc)
	}
}
