// Package main provides a profiling wrapper for the timing model to identify
// simulator performance bottlenecks.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/tomasim/benchmarks"
	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/loader"
	"github.com/sarchlab/tomasim/timing/pipeline"
)

var (
	cpuProfile = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile = flag.String("memprofile", "", "write memory profile to file")
	iterations = flag.Int("iterations", 100000, "loop iterations to synthesize when no trace is given")
	repeat     = flag.Int("repeat", 1, "number of times to replay the trace")
)

func main() {
	flag.Parse()

	trace, source, err := loadTrace()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading trace: %v\n", err)
		atexit.Exit(1)
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			atexit.Exit(1)
		}

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			atexit.Exit(1)
		}
		atexit.Register(func() {
			pprof.StopCPUProfile()
			_ = f.Close()
		})
	}

	fmt.Printf("Trace: %s (%d instructions)\n", source, trace.Len())

	pipe := pipeline.NewPipeline(trace)

	start := time.Now()
	var cycles uint64
	for i := 0; i < *repeat; i++ {
		if err := pipe.Reset(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			atexit.Exit(1)
		}
		n, err := pipe.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			atexit.Exit(1)
		}
		cycles += n
	}
	elapsed := time.Since(start)

	if *memProfile != "" {
		writeHeapProfile(*memProfile)
	}

	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Simulated cycles: %d\n", cycles)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if elapsed > 0 {
		fmt.Printf("Cycles/second: %.0f\n", float64(cycles)/elapsed.Seconds())
	}

	atexit.Exit(0)
}

func loadTrace() (*insts.SliceTrace, string, error) {
	if flag.NArg() > 0 {
		path := flag.Arg(0)
		trace, err := loader.Load(path)
		return trace, path, err
	}

	return benchmarks.BuildLoop(*iterations),
		fmt.Sprintf("loop x%d", *iterations), nil
}

func writeHeapProfile(path string) {
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", err)
		return
	}
	defer func() { _ = f.Close() }()

	if err := pprof.WriteHeapProfile(f); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
	}
}
