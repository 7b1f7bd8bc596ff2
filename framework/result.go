package framework

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

type Results struct {
	Tests    []TestResult
	Failures []TestResult
}

type TestResult struct {
	TestID  TestID
	Errors  []error
	Skipped bool
}

func (r Results) OK() bool {
	return len(r.Failures) == 0
}

// Skipped is the number of tests that skipped themselves.
func (r Results) Skipped() int {
	n := 0
	for _, t := range r.Tests {
		if t.Skipped {
			n++
		}
	}
	return n
}

type TestID struct {
	Path []string
}

// Plus returns the ID of a subtest.
func (t TestID) Plus(name string) TestID {
	path := make([]string, 0, len(t.Path)+1)
	return TestID{Path: append(append(path, t.Path...), name)}
}

func (t TestID) String() string {
	return strings.Join(t.Path, "/")
}

// PrintResults writes a summary of the run, listing every failed test.
func PrintResults(dest io.Writer, results Results) {
	passed := len(results.Tests) - len(results.Failures) - results.Skipped()
	if results.OK() {
		_, _ = color.New(color.FgGreen).Fprintf(dest, "All tests passed")
		fmt.Fprintf(dest, " (%d passed, %d skipped)\n", passed, results.Skipped())
		return
	}
	_, _ = color.New(color.FgRed, color.Bold).Fprintf(dest, "FAILED TESTS (%d):", len(results.Failures))
	fmt.Fprintln(dest)
	for _, f := range results.Failures {
		fmt.Fprintf(dest, "  * %s\n", f.TestID)
		for _, err := range f.Errors {
			for _, line := range strings.Split(err.Error(), "\n") {
				fmt.Fprintf(dest, "      %s\n", line)
			}
		}
	}
	fmt.Fprintf(dest, "%d passed, %d failed, %d skipped\n", passed, len(results.Failures), results.Skipped())
}
