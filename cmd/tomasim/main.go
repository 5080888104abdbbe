// Command tomasim runs an instruction trace through the Tomasulo timing
// model and reports per-instruction timing.
//
// Usage:
//
//	tomasim [options] <trace.json>
//	tomasim [options] -bench <name>
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/k0kubun/pp/v3"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/tomasim/benchmarks"
	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/loader"
	"github.com/sarchlab/tomasim/report"
	"github.com/sarchlab/tomasim/timing/core"
	"github.com/sarchlab/tomasim/timing/latency"
	"github.com/sarchlab/tomasim/timing/pipeline"
)

type options struct {
	configPath  string
	machinePath string
	bench       string
	format      string
	engine      bool
	timeline    bool
	check       bool
	verbose     bool
	dump        bool
	color       bool
}

func parseFlags(args []string, stderr io.Writer) (*options, []string, error) {
	fs := flag.NewFlagSet("tomasim", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "Path to latency configuration JSON file")
	fs.StringVar(&o.machinePath, "machine", "", "Path to machine configuration JSON file")
	fs.StringVar(&o.bench, "bench", "", "Run a built-in microbenchmark instead of a trace file")
	fs.StringVar(&o.format, "format", "text", "Table format: text, csv or markdown")
	fs.BoolVar(&o.engine, "engine", false, "Drive the pipeline through the akita engine")
	fs.BoolVar(&o.timeline, "timeline", false, "Print the per-instruction timeline")
	fs.BoolVar(&o.check, "check", false, "Check machine invariants every cycle")
	fs.BoolVar(&o.verbose, "v", false, "Log every pipeline event")
	fs.BoolVar(&o.dump, "dump", false, "Dump raw statistics")
	fs.BoolVar(&o.color, "color", false, "Colorize the -dump output")

	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: tomasim [options] <trace.json>\n")
		_, _ = fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	return o, fs.Args(), nil
}

func main() {
	atexit.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	o, rest, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if o.bench == "" && len(rest) != 1 {
		_, _ = fmt.Fprintf(stderr, "Usage: tomasim [options] <trace.json>\n")
		return 2
	}

	format, err := report.ParseFormat(o.format)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	machine, timing, err := loadConfigs(o)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	trace, err := loadTrace(o, rest, machine.NumRegisters)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	if o.verbose {
		logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
			Level: pipeline.LevelTrace,
		}))
	}

	stats, err := simulate(o, trace, machine, timing, logger)
	if err != nil {
		logger.Error("simulation failed", "error", err, "cycle", stats.Cycles)
		return 1
	}

	if o.timeline {
		if err := report.WriteTimeline(stdout, trace, format); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	if err := report.WriteSummary(stdout, stats, format); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if o.dump {
		printer := pp.New()
		printer.SetOutput(stdout)
		printer.SetColoringEnabled(o.color)
		_, _ = printer.Println(stats)
	}

	return 0
}

func loadConfigs(o *options) (pipeline.Config, *latency.TimingConfig, error) {
	machine := pipeline.DefaultConfig()
	if o.machinePath != "" {
		var err error
		machine, err = pipeline.LoadConfig(o.machinePath)
		if err != nil {
			return machine, nil, err
		}
	}
	if err := machine.Validate(); err != nil {
		return machine, nil, fmt.Errorf("invalid machine config: %w", err)
	}

	timing := latency.DefaultTimingConfig()
	if o.configPath != "" {
		var err error
		timing, err = latency.LoadConfig(o.configPath)
		if err != nil {
			return machine, nil, err
		}
	}
	if err := timing.Validate(); err != nil {
		return machine, nil, fmt.Errorf("invalid latency config: %w", err)
	}

	return machine, timing, nil
}

func loadTrace(o *options, rest []string, numRegs int) (*insts.SliceTrace, error) {
	if o.bench == "" {
		return loader.Load(rest[0], loader.WithNumRegisters(numRegs))
	}

	for _, b := range benchmarks.GetMicrobenchmarks() {
		if b.Name == o.bench {
			return b.Trace(), nil
		}
	}

	return nil, fmt.Errorf("unknown benchmark %q", o.bench)
}

func simulate(
	o *options,
	trace insts.Trace,
	machine pipeline.Config,
	timing *latency.TimingConfig,
	logger *slog.Logger,
) (pipeline.Statistics, error) {
	if o.engine {
		b := core.MakeBuilder().
			WithConfig(machine).
			WithTimingConfig(timing).
			WithLogger(logger)
		if o.check {
			b = b.WithInvariantChecks()
		}

		c := b.Build("Core", trace)
		_, err := c.Run()
		return c.Stats(), err
	}

	opts := []pipeline.PipelineOption{
		pipeline.WithConfig(machine),
		pipeline.WithLatencyTable(latency.NewTableWithConfig(timing)),
		pipeline.WithLogger(logger),
	}
	if o.check {
		opts = append(opts, pipeline.WithInvariantChecks())
	}

	p := pipeline.NewPipeline(trace, opts...)
	_, err := p.Run()
	return p.Stats(), err
}
