// Command benchmark runs the Tomasulo timing benchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv      Output results in CSV format (default: table)
//	-json     Output results as a JSON report
//	-engine   Drive each run through the akita engine
//	-machine  Path to machine configuration JSON file
//	-config   Path to latency configuration JSON file
//	-core     Run only the core benchmarks
//
// Example:
//
//	# Compare two latency settings
//	go run ./cmd/benchmark -json > base.json
//	go run ./cmd/benchmark -json -config fast_fp.json > fast_fp.json
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/tomasim/benchmarks"
	"github.com/sarchlab/tomasim/timing/latency"
	"github.com/sarchlab/tomasim/timing/pipeline"
)

func main() {
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results as a JSON report")
	useEngine := flag.Bool("engine", false, "Drive each run through the akita engine")
	machinePath := flag.String("machine", "", "Path to machine configuration JSON file")
	configPath := flag.String("config", "", "Path to latency configuration JSON file")
	coreOnly := flag.Bool("core", false, "Run only the core benchmarks")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	config := benchmarks.DefaultConfig()
	config.UseEngine = *useEngine
	config.Verbose = *verbose
	config.Output = os.Stdout

	if *machinePath != "" {
		machine, err := pipeline.LoadConfig(*machinePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			atexit.Exit(1)
		}
		config.Machine = machine
	}

	if *configPath != "" {
		timing, err := latency.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			atexit.Exit(1)
		}
		config.Timing = timing
	}

	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(1)
	}

	harness := benchmarks.NewHarness(config)
	if *coreOnly {
		harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
	} else {
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
	}

	results := harness.RunAll()

	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			atexit.Exit(1)
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)
	}

	if benchmarks.Summarize(results).Failed > 0 {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
