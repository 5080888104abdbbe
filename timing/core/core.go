// Package core wraps the Tomasulo pipeline as an akita ticking component.
// One akita tick simulates one machine cycle.
package core

import (
	"log/slog"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/timing/latency"
	"github.com/sarchlab/tomasim/timing/pipeline"
)

// Core is a Tomasulo machine driven by an akita engine.
type Core struct {
	*sim.TickingComponent

	engine   sim.Engine
	pipeline *pipeline.Pipeline
	err      error
}

// Tick advances the pipeline by one cycle. It returns false once the
// pipeline drains or fails, which stops further ticks.
func (c *Core) Tick() bool {
	if c.err != nil {
		return false
	}

	if err := c.pipeline.Tick(); err != nil {
		c.err = err
		return false
	}

	return !c.pipeline.Done()
}

// Run schedules the first tick and runs the engine until the pipeline
// drains. It returns the cycle counter at termination.
func (c *Core) Run() (uint64, error) {
	c.TickLater()

	if err := c.engine.Run(); err != nil {
		return c.pipeline.Cycle(), err
	}

	return c.pipeline.Cycle(), c.err
}

// Cycles returns the pipeline cycle counter.
func (c *Core) Cycles() uint64 {
	return c.pipeline.Cycle()
}

// Stats returns the pipeline statistics.
func (c *Core) Stats() pipeline.Statistics {
	return c.pipeline.Stats()
}

// Err returns the error that stopped the core, if any.
func (c *Core) Err() error {
	return c.err
}

// Pipeline returns the underlying pipeline.
func (c *Core) Pipeline() *pipeline.Pipeline {
	return c.pipeline
}

// Reset clears the pipeline and the recorded error so the trace can be
// simulated again. See pipeline.Pipeline.Reset for traces that cannot be
// replayed.
func (c *Core) Reset() error {
	if err := c.pipeline.Reset(); err != nil {
		return err
	}

	c.err = nil

	return nil
}

// Builder creates Cores.
type Builder struct {
	engine       sim.Engine
	freq         sim.Freq
	config       pipeline.Config
	timingConfig *latency.TimingConfig
	logger       *slog.Logger
	checks       bool
}

// MakeBuilder returns a Builder with the default machine, a 1 GHz clock and
// a fresh serial engine.
func MakeBuilder() Builder {
	return Builder{
		engine:       sim.NewSerialEngine(),
		freq:         1 * sim.GHz,
		config:       pipeline.DefaultConfig(),
		timingConfig: latency.DefaultTimingConfig(),
		logger:       slog.Default(),
	}
}

// WithEngine sets the engine.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the clock frequency.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithConfig sets the structural machine configuration.
func (b Builder) WithConfig(config pipeline.Config) Builder {
	b.config = config
	return b
}

// WithTimingConfig sets the functional unit latencies. nil selects the
// default latencies.
func (b Builder) WithTimingConfig(config *latency.TimingConfig) Builder {
	b.timingConfig = config
	return b
}

// WithLogger sets the logger for pipeline stage events.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// WithInvariantChecks enables the per-cycle consistency check.
func (b Builder) WithInvariantChecks() Builder {
	b.checks = true
	return b
}

// Build creates a Core that simulates trace.
func (b Builder) Build(name string, trace insts.Trace) *Core {
	timing := b.timingConfig
	if timing == nil {
		timing = latency.DefaultTimingConfig()
	}

	opts := []pipeline.PipelineOption{
		pipeline.WithConfig(b.config),
		pipeline.WithLatencyTable(latency.NewTableWithConfig(timing)),
		pipeline.WithLogger(b.logger),
	}
	if b.checks {
		opts = append(opts, pipeline.WithInvariantChecks())
	}

	c := &Core{
		engine:   b.engine,
		pipeline: pipeline.NewPipeline(trace, opts...),
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	return c
}
