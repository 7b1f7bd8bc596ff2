// Package framework contains the test-runner infrastructure used for scenario runs: a test
// context similar to Go's *testing.T, test IDs and filters, result accumulation and reporting.
//
// A Context fails through panics, like testing.T.FailNow, so it can be passed to testify's
// require functions. Tests are nested with Context.Run; each test has its own debug logger whose
// output is given to the TestLogger when the test finishes.
package framework
