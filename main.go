package main

import (
	"fmt"
	"os"

	"github.com/launchdarkly/scenerunner/autclient"
	"github.com/launchdarkly/scenerunner/framework"
	"github.com/launchdarkly/scenerunner/logging"
	"github.com/launchdarkly/scenerunner/scenarios"
	"github.com/launchdarkly/scenerunner/servicedef"
)

func main() {
	var params commandParams
	if !params.Read(os.Args) {
		os.Exit(1)
	}

	files, err := scenarios.LoadAll(params.scenarioPaths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid scenario: %s\n", err)
		os.Exit(1)
	}

	mainDebugLogger := logging.NullLogger()
	if params.debugAll {
		mainDebugLogger = logging.NewConsoleLogger(os.Stdout)
	}

	client, err := autclient.Connect(params.serviceURL, params.statusTimeout,
		logging.PrefixedLogger(mainDebugLogger, "[AUT] "), os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "AUT service error: %s\n", err)
		os.Exit(1)
	}
	if params.verbose {
		for _, f := range files {
			f.Verbose = true
		}
	}

	fmt.Println()
	framework.PrintFilterDescription(os.Stdout, params.filters, client, servicedef.AllCapabilities)

	fmt.Printf("Running %d scenario file(s) against %s\n", len(files), client.Name())

	testLogger := &ConsoleTestLogger{
		Output:               os.Stdout,
		DebugOutputOnFailure: params.debug || params.debugAll,
		DebugOutputOnSuccess: params.debugAll,
	}

	results := scenarios.RunScenarios(files, client, client, params.filters.AsFilter, testLogger)

	fmt.Println()
	framework.PrintResults(os.Stdout, results)
	if !results.OK() {
		fmt.Println()
		fmt.Println("To run only the failed tests again:")
		fmt.Printf("  %s\n", params.rerunCommand(os.Args[0], results.Failures))
		os.Exit(1)
	}
}
