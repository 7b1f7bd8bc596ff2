package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/launchdarkly/scenerunner/framework"

	"github.com/alessio/shellescape"
)

const defaultStatusTimeout = time.Second * 10

type commandParams struct {
	serviceURL    string
	scenarioPaths stringList
	filters       framework.RegexFilters
	statusTimeout time.Duration
	verbose       bool
	debug         bool
	debugAll      bool
}

type stringList []string

func (s stringList) String() string { return strings.Join(s, ",") }

// Set is called by the command line parser
func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func (c *commandParams) Read(args []string) bool {
	fs := flag.NewFlagSet("", flag.ExitOnError)
	fs.StringVar(&c.serviceURL, "url", "", "AUT service URL")
	fs.Var(&c.scenarioPaths, "scenario", "scenario file or directory of *.toml files (may be repeated)")
	fs.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	fs.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	fs.DurationVar(&c.statusTimeout, "status-timeout", defaultStatusTimeout, "how long to wait for the AUT service to respond")
	fs.BoolVar(&c.verbose, "verbose", false, "trace every synthesized event in the debug output")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging for failed tests")
	fs.BoolVar(&c.debugAll, "debug-all", false, "enable debug logging for all tests")

	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return false
	}
	if c.serviceURL == "" {
		fmt.Fprintln(os.Stderr, "-url is required")
		fs.Usage()
		return false
	}
	if len(c.scenarioPaths) == 0 {
		fmt.Fprintln(os.Stderr, "at least one -scenario is required")
		fs.Usage()
		return false
	}
	return true
}

// rerunCommand builds a command line that repeats this run for the failed tests only.
func (c *commandParams) rerunCommand(program string, failures []framework.TestResult) string {
	var b commandBuilder
	b.add(program, "-url", c.serviceURL)
	for _, p := range c.scenarioPaths {
		b.add("-scenario", p)
	}
	for _, f := range failures {
		b.add("-run", "^"+regexpQuote(f.TestID.String())+"$")
	}
	if c.verbose {
		b.add("-verbose")
	}
	b.add("-debug")
	return b.String()
}

func regexpQuote(s string) string {
	const special = `\.+*?()|[]{}^$`
	var sb strings.Builder
	for _, r := range s {
		if strings.ContainsRune(special, r) {
			sb.WriteRune('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}
