package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/timing/core"
	"github.com/sarchlab/tomasim/timing/latency"
	"github.com/sarchlab/tomasim/timing/pipeline"
)

// Version is reported in JSON benchmark reports.
const Version = "0.1.0"

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the cycle counter at termination
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// Instructions is the number of instructions that entered the queue
	Instructions uint64 `json:"instructions"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	DispatchStalls   uint64 `json:"dispatch_stalls"`
	IssueStalls      uint64 `json:"issue_stalls"`
	CDBConflicts     uint64 `json:"cdb_conflicts"`
	Broadcasts       uint64 `json:"broadcasts"`
	ControlDiscarded uint64 `json:"control_discarded"`

	// Error is set if the run did not drain
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark trace.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Trace builds a fresh trace for each run.
	Trace func() *insts.SliceTrace
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Machine is the structural configuration
	Machine pipeline.Config

	// Timing holds the functional unit latencies
	Timing *latency.TimingConfig

	// UseEngine runs each benchmark through the akita engine instead of
	// driving the pipeline directly
	UseEngine bool

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Machine: pipeline.DefaultConfig(),
		Timing:  latency.DefaultTimingConfig(),
		Output:  os.Stdout,
	}
}

// Validate checks the machine and latency configurations. A nil Timing is
// valid and selects the default latencies.
func (c HarnessConfig) Validate() error {
	if err := c.Machine.Validate(); err != nil {
		return fmt.Errorf("invalid machine config: %w", err)
	}

	if c.Timing != nil {
		if err := c.Timing.Validate(); err != nil {
			return fmt.Errorf("invalid latency config: %w", err)
		}
	}

	return nil
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Timing == nil {
		config.Timing = latency.DefaultTimingConfig()
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		results = append(results, h.runBenchmark(bench))
	}

	return results
}

func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	trace := bench.Trace()

	start := time.Now()
	stats, err := h.simulate(trace)
	wallTime := time.Since(start)

	result := BenchmarkResult{
		Name:             bench.Name,
		Description:      bench.Description,
		SimulatedCycles:  stats.Cycles,
		Instructions:     stats.Instructions,
		CPI:              stats.CPI(),
		DispatchStalls:   stats.DispatchStalls,
		IssueStalls:      stats.IssueStalls,
		CDBConflicts:     stats.CDBConflicts,
		Broadcasts:       stats.Broadcasts,
		ControlDiscarded: stats.ControlDiscarded,
		WallTime:         wallTime,
	}
	if err != nil {
		result.Error = err.Error()
	}

	return result
}

func (h *Harness) simulate(trace insts.Trace) (pipeline.Statistics, error) {
	if h.config.UseEngine {
		c := core.MakeBuilder().
			WithConfig(h.config.Machine).
			WithTimingConfig(h.config.Timing).
			Build("Core", trace)
		_, err := c.Run()
		return c.Stats(), err
	}

	p := pipeline.NewPipeline(trace,
		pipeline.WithConfig(h.config.Machine),
		pipeline.WithLatencyTable(latency.NewTableWithConfig(h.config.Timing)),
	)
	_, err := p.Run()
	return p.Stats(), err
}

func resultTable(results []BenchmarkResult, verbose bool) table.Writer {
	t := table.NewWriter()

	header := table.Row{"Benchmark", "Cycles", "Insts", "CPI",
		"Dispatch Stalls", "Issue Stalls", "CDB Conflicts"}
	if verbose {
		header = append(header, "Description", "Wall Time")
	}
	t.AppendHeader(header)

	for _, r := range results {
		row := table.Row{r.Name, r.SimulatedCycles, r.Instructions,
			fmt.Sprintf("%.3f", r.CPI),
			r.DispatchStalls, r.IssueStalls, r.CDBConflicts}
		if verbose {
			row = append(row, r.Description, r.WallTime)
		}
		t.AppendRow(row)
	}

	return t
}

// PrintResults outputs benchmark results as a table.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	t := resultTable(results, h.config.Verbose)
	t.SetTitle("Tomasulo Timing Benchmark Results")
	_, _ = fmt.Fprintln(h.config.Output, t.Render())

	for _, r := range results {
		if r.Error != "" {
			_, _ = fmt.Fprintf(h.config.Output, "%s: %s\n", r.Name, r.Error)
		}
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, resultTable(results, false).RenderCSV())
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Version of the simulator
	Version string `json:"version"`

	// Machine is the structural configuration used
	Machine pipeline.Config `json:"machine"`

	// Timing is the latency configuration used
	Timing latency.TimingConfig `json:"timing"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	TotalBenchmarks   int           `json:"total_benchmarks"`
	TotalCycles       uint64        `json:"total_cycles"`
	TotalInstructions uint64        `json:"total_instructions"`
	AverageCPI        float64       `json:"average_cpi"`
	Failed            int           `json:"failed"`
	TotalWallTime     time.Duration `json:"total_wall_time_ns"`
}

// Summarize aggregates results.
func Summarize(results []BenchmarkResult) ReportSummary {
	s := ReportSummary{TotalBenchmarks: len(results)}
	for _, r := range results {
		s.TotalCycles += r.SimulatedCycles
		s.TotalInstructions += r.Instructions
		s.TotalWallTime += r.WallTime
		if r.Error != "" {
			s.Failed++
		}
	}

	if s.TotalInstructions > 0 {
		s.AverageCPI = float64(s.TotalCycles) / float64(s.TotalInstructions)
	}

	return s
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   Version,
			Machine:   h.config.Machine,
			Timing:    *h.config.Timing,
		},
		Results: results,
		Summary: Summarize(results),
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
