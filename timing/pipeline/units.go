package pipeline

import "github.com/sarchlab/tomasim/insts"

// Unit is one functional unit.
type Unit struct {
	Busy bool

	// Inst is the executing instruction.
	Inst *insts.Instruction

	// Station is the reservation station slot holding Inst.
	Station int

	// StartCycle is the cycle execution started.
	StartCycle uint64
}

// UnitPool is a fixed-capacity set of functional units sharing one latency.
type UnitPool struct {
	name    string
	latency uint64
	units   []Unit
	busy    int
}

// NewUnitPool creates size free units with the given latency.
func NewUnitPool(name string, size int, latency uint64) *UnitPool {
	p := &UnitPool{
		name:    name,
		latency: latency,
		units:   make([]Unit, size),
	}
	p.Reset()
	return p
}

// Reset frees every unit.
func (p *UnitPool) Reset() {
	for i := range p.units {
		p.units[i] = Unit{Station: -1}
	}
	p.busy = 0
}

// Name returns the pool name.
func (p *UnitPool) Name() string {
	return p.name
}

// Latency returns the execution latency of the units.
func (p *UnitPool) Latency() uint64 {
	return p.latency
}

// Capacity returns the number of units.
func (p *UnitPool) Capacity() int {
	return len(p.units)
}

// Busy returns the number of busy units.
func (p *UnitPool) Busy() int {
	return p.busy
}

// Empty returns true if every unit is free.
func (p *UnitPool) Empty() bool {
	return p.busy == 0
}

// Unit returns unit i.
func (p *UnitPool) Unit(i int) *Unit {
	return &p.units[i]
}

// Acquire assigns inst, held in the given station slot, to the first free
// unit. It returns the unit index, or false if every unit is busy.
func (p *UnitPool) Acquire(
	inst *insts.Instruction,
	station int,
	cycle uint64,
) (int, bool) {
	for i := range p.units {
		u := &p.units[i]
		if u.Busy {
			continue
		}

		u.Busy = true
		u.Inst = inst
		u.Station = station
		u.StartCycle = cycle
		p.busy++

		return i, true
	}

	return -1, false
}

// Completed returns the busy units whose instruction has finished executing
// by cycle.
func (p *UnitPool) Completed(cycle uint64) []int {
	var done []int
	for i := range p.units {
		u := &p.units[i]
		if u.Busy && cycle-u.StartCycle >= p.latency {
			done = append(done, i)
		}
	}
	return done
}

// Release frees unit i. This is the only way a unit becomes free.
func (p *UnitPool) Release(i int) {
	if !p.units[i].Busy {
		return
	}

	p.units[i] = Unit{Station: -1}
	p.busy--
}
