// Package pipeline provides a cycle-accurate model of Tomasulo's algorithm.
//
// Each cycle runs five stages in a fixed order: retire from the common data
// bus, execute to the bus, issue to execute, dispatch to issue, and fetch.
// Later pipeline stages run first so that resources they free are visible
// to earlier stages in the same cycle, while no instruction moves through
// two stages in one cycle.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/timing/latency"
)

var (
	// ErrCycleLimit is returned when the simulation runs past its cycle
	// bound. It signals a modeling bug, such as a dependency that can never
	// resolve.
	ErrCycleLimit = errors.New("cycle limit exceeded")

	// ErrInvariant is returned when invariant checking finds inconsistent
	// machine state.
	ErrInvariant = errors.New("pipeline invariant violated")

	// ErrInvalidConfig is returned by Tick and Run when the pipeline was
	// built from a machine or latency configuration that fails validation.
	ErrInvalidConfig = errors.New("invalid pipeline config")

	// ErrTraceNotResettable is returned by Reset when the trace has been
	// stamped and cannot clear its own timing.
	ErrTraceNotResettable = errors.New("trace cannot be reset")
)

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the cycle counter, one past the last active cycle.
	Cycles uint64
	// Instructions is the number of instructions fetched into the queue.
	Instructions uint64
	// NopsSkipped is the number of trap and no-op instructions skipped at fetch.
	NopsSkipped uint64
	// ControlDiscarded is the number of branches, jumps and calls dropped at
	// dispatch.
	ControlDiscarded uint64
	// Broadcasts is the number of results sent on the common data bus.
	Broadcasts uint64
	// SilentRetires is the number of instructions that completed without
	// using the bus (stores).
	SilentRetires uint64
	// DispatchStalls is the number of cycles the queue head waited for a
	// free reservation station.
	DispatchStalls uint64
	// QueueFullCycles is the number of cycles fetch found the queue full.
	QueueFullCycles uint64
	// IssueStalls counts, per cycle, ready instructions left waiting for a
	// free functional unit.
	IssueStalls uint64
	// CDBConflicts counts, per cycle, completed instructions that lost bus
	// arbitration.
	CDBConflicts uint64
	// PeakIntStations and PeakFPStations are the highest reservation
	// station occupancies seen.
	PeakIntStations int
	PeakFPStations  int
	// PeakQueue is the highest instruction queue occupancy seen.
	PeakQueue int
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithConfig sets the structural machine configuration.
func WithConfig(config Config) PipelineOption {
	return func(p *Pipeline) {
		p.config = config
	}
}

// WithLatencyTable sets a custom latency table for the functional units.
func WithLatencyTable(table *latency.Table) PipelineOption {
	return func(p *Pipeline) {
		p.latencyTable = table
	}
}

// WithLogger sets the logger that receives stage events at LevelTrace.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithInvariantChecks enables a consistency check at the end of every cycle.
func WithInvariantChecks() PipelineOption {
	return func(p *Pipeline) {
		p.checkInvariants = true
	}
}

// cluster pairs the reservation stations of one class with the functional
// units they feed.
type cluster struct {
	stations *StationPool
	units    *UnitPool
}

// Pipeline is the Tomasulo machine and its per-cycle driver. It owns all
// machine state; the trace owns the instructions.
type Pipeline struct {
	config          Config
	latencyTable    *latency.Table
	logger          *slog.Logger
	tracing         bool
	checkInvariants bool

	trace      insts.Trace
	fetchIndex int
	configErr  error

	queue    *InstQueue
	mapTable *MapTable
	intPool  cluster
	fpPool   cluster
	cdb      CDB

	cycle     uint64
	maxCycles uint64

	stats Statistics
}

// NewPipeline creates a pipeline that simulates trace.
func NewPipeline(trace insts.Trace, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		config:       DefaultConfig(),
		latencyTable: latency.NewTable(),
		logger:       slog.Default(),
		trace:        trace,
	}

	for _, opt := range opts {
		opt(p)
	}

	p.tracing = p.logger.Enabled(context.Background(), LevelTrace)

	if p.latencyTable == nil {
		p.latencyTable = latency.NewTable()
	}
	timing := p.latencyTable.Config()

	if err := p.config.Validate(); err != nil {
		p.configErr = fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	} else if err := timing.Validate(); err != nil {
		p.configErr = fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	// An invalid pipeline is still built, with empty structures, so that
	// Tick can report configErr.
	p.queue = NewInstQueue(max(p.config.QueueSize, 0))
	p.mapTable = NewMapTable(max(p.config.NumRegisters, 0))
	p.intPool = cluster{
		stations: NewStationPool("int", max(p.config.IntStations, 0)),
		units: NewUnitPool("int",
			max(p.config.IntUnits, 0), timing.IntLatency),
	}
	p.fpPool = cluster{
		stations: NewStationPool("fp", max(p.config.FPStations, 0)),
		units: NewUnitPool("fp",
			max(p.config.FPUnits, 0), timing.FPLatency),
	}

	p.maxCycles = p.config.MaxCycles
	if p.maxCycles == 0 {
		p.maxCycles = p.defaultMaxCycles()
	}

	p.cycle = 1

	return p
}

// defaultMaxCycles allows every instruction to wait out a full queue, full
// stations and the longest latency on its own.
func (p *Pipeline) defaultMaxCycles() uint64 {
	perInst := p.latencyTable.MaxLatency() +
		uint64(p.config.QueueSize+p.config.IntStations+p.config.FPStations) + 8
	return uint64(p.trace.Len()+1) * perInst
}

// Cycle returns the current cycle counter.
func (p *Pipeline) Cycle() uint64 {
	return p.cycle
}

// Config returns the machine configuration.
func (p *Pipeline) Config() Config {
	return p.config
}

// Stats returns performance statistics.
func (p *Pipeline) Stats() Statistics {
	s := p.stats
	s.Cycles = p.cycle
	return s
}

// Queue returns the instruction queue.
func (p *Pipeline) Queue() *InstQueue {
	return p.queue
}

// MapTable returns the register map table.
func (p *Pipeline) MapTable() *MapTable {
	return p.mapTable
}

// IntStations returns the integer reservation stations.
func (p *Pipeline) IntStations() *StationPool {
	return p.intPool.stations
}

// FPStations returns the floating-point reservation stations.
func (p *Pipeline) FPStations() *StationPool {
	return p.fpPool.stations
}

// IntUnits returns the integer functional units.
func (p *Pipeline) IntUnits() *UnitPool {
	return p.intPool.units
}

// FPUnits returns the floating-point functional units.
func (p *Pipeline) FPUnits() *UnitPool {
	return p.fpPool.units
}

// CDB returns the common data bus.
func (p *Pipeline) CDB() *CDB {
	return &p.cdb
}

// FetchExhausted returns true once every trace instruction has been fetched
// or skipped.
func (p *Pipeline) FetchExhausted() bool {
	return p.fetchIndex >= p.trace.Len()
}

// Done returns true when the trace is exhausted and the machine has fully
// drained. Once true it stays true.
func (p *Pipeline) Done() bool {
	return p.FetchExhausted() &&
		p.queue.Empty() &&
		p.intPool.stations.Empty() &&
		p.fpPool.stations.Empty() &&
		p.intPool.units.Empty() &&
		p.fpPool.units.Empty() &&
		!p.cdb.Busy()
}

// Tick simulates one cycle. It does nothing once the pipeline is done.
func (p *Pipeline) Tick() error {
	if p.configErr != nil {
		return p.configErr
	}

	if p.Done() {
		return nil
	}

	if p.cycle > p.maxCycles {
		return fmt.Errorf("%w: cycle %d, %d of %d instructions fetched",
			ErrCycleLimit, p.cycle, p.fetchIndex, p.trace.Len())
	}

	p.retireFromCDB()
	if err := p.executeToCDB(); err != nil {
		return err
	}
	p.issueToExecute()
	p.dispatchToIssue()
	p.fetch()

	p.recordOccupancy()

	if p.checkInvariants {
		if err := p.verify(); err != nil {
			return err
		}
	}

	p.cycle++

	return nil
}

// Run simulates until the pipeline drains and returns the cycle counter at
// termination, one past the last active cycle.
func (p *Pipeline) Run() (uint64, error) {
	if p.configErr != nil {
		return p.cycle, p.configErr
	}

	for !p.Done() {
		if err := p.Tick(); err != nil {
			return p.cycle, err
		}
	}
	return p.cycle, nil
}

// RunCycles simulates at most the given number of cycles.
// Returns true if still running, false if done.
func (p *Pipeline) RunCycles(cycles uint64) (bool, error) {
	if p.configErr != nil {
		return false, p.configErr
	}

	for i := uint64(0); i < cycles && !p.Done(); i++ {
		if err := p.Tick(); err != nil {
			return false, err
		}
	}
	return !p.Done(), nil
}

// Reset clears all machine state and statistics so the trace can be
// replayed. Replaying needs a trace with a Reset() method, such as
// insts.SliceTrace, once any instruction has been fetched; otherwise Reset
// leaves the pipeline untouched and returns ErrTraceNotResettable.
func (p *Pipeline) Reset() error {
	r, resettable := p.trace.(interface{ Reset() })
	if !resettable && p.fetchIndex > 0 {
		return fmt.Errorf("%w: %d instructions already fetched",
			ErrTraceNotResettable, p.fetchIndex)
	}

	p.fetchIndex = 0
	p.queue.Reset()
	p.mapTable.Reset()
	p.intPool.stations.Reset()
	p.intPool.units.Reset()
	p.fpPool.stations.Reset()
	p.fpPool.units.Reset()
	p.cdb.Reset()
	p.cycle = 1
	p.stats = Statistics{}

	if resettable {
		r.Reset()
	}

	return nil
}

func (p *Pipeline) recordOccupancy() {
	p.stats.PeakIntStations = max(p.stats.PeakIntStations,
		p.intPool.stations.Occupied())
	p.stats.PeakFPStations = max(p.stats.PeakFPStations,
		p.fpPool.stations.Occupied())
	p.stats.PeakQueue = max(p.stats.PeakQueue, p.queue.Len())
}
