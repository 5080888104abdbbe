// Package latency provides the functional-unit timing model.
//
// Every unit in a pool has the same fixed latency. The values can be
// configured via TimingConfig.
package latency

import (
	"github.com/sarchlab/tomasim/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing
// configuration. A nil config selects the defaults.
func NewTableWithConfig(config *TimingConfig) *Table {
	if config == nil {
		config = DefaultTimingConfig()
	}

	return &Table{
		config: config,
	}
}

// GetLatency returns the execution latency in cycles for the given
// instruction. Control and no-op instructions never occupy a unit and
// report 0.
func (t *Table) GetLatency(inst *insts.Instruction) uint64 {
	if inst == nil {
		return 0
	}
	return t.ClassLatency(inst.Class)
}

// ClassLatency returns the execution latency for an operation class.
func (t *Table) ClassLatency(c insts.Class) uint64 {
	switch {
	case c.UsesIntFU():
		return t.config.IntLatency
	case c.UsesFPFU():
		return t.config.FPLatency
	default:
		return 0
	}
}

// MaxLatency returns the largest latency of any unit pool.
func (t *Table) MaxLatency() uint64 {
	return max(t.config.IntLatency, t.config.FPLatency)
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
