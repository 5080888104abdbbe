package pipeline

import (
	"slices"

	"github.com/sarchlab/tomasim/insts"
)

// StationState is the state of a reservation station slot.
type StationState uint8

// Reservation station states.
const (
	StationFree StationState = iota
	StationWaiting
	StationExecuting
)

// Station is one reservation station slot.
type Station struct {
	State StationState

	// Inst is the instruction held by the slot. The trace owns it.
	Inst *insts.Instruction

	// WaitOn holds, per source operand, the producer the operand is waiting
	// for, or NoTag once the value is available.
	WaitOn [insts.MaxSrc]Tag

	// ReadyCycle is the earliest cycle execution may begin.
	ReadyCycle uint64

	// Unit is the index of the functional unit executing the instruction,
	// or -1.
	Unit int
}

// Waiting returns true if any operand is still outstanding.
func (s *Station) Waiting() bool {
	for _, t := range s.WaitOn {
		if t != NoTag {
			return true
		}
	}
	return false
}

// Ready returns true if the instruction may start executing at cycle.
func (s *Station) Ready(cycle uint64) bool {
	return s.State == StationWaiting && !s.Waiting() && cycle >= s.ReadyCycle
}

func (s *Station) clear() {
	s.State = StationFree
	s.Inst = nil
	for i := range s.WaitOn {
		s.WaitOn[i] = NoTag
	}
	s.ReadyCycle = 0
	s.Unit = -1
}

// StationPool is a fixed-capacity set of reservation stations serving one
// class of functional units.
type StationPool struct {
	name     string
	slots    []Station
	occupied int
}

// NewStationPool creates a pool with size free slots.
func NewStationPool(name string, size int) *StationPool {
	p := &StationPool{
		name:  name,
		slots: make([]Station, size),
	}
	p.Reset()
	return p
}

// Reset frees every slot.
func (p *StationPool) Reset() {
	for i := range p.slots {
		p.slots[i].clear()
	}
	p.occupied = 0
}

// Name returns the pool name.
func (p *StationPool) Name() string {
	return p.name
}

// Capacity returns the number of slots.
func (p *StationPool) Capacity() int {
	return len(p.slots)
}

// Occupied returns the number of non-free slots.
func (p *StationPool) Occupied() int {
	return p.occupied
}

// Empty returns true if every slot is free.
func (p *StationPool) Empty() bool {
	return p.occupied == 0
}

// Slot returns slot i.
func (p *StationPool) Slot(i int) *Station {
	return &p.slots[i]
}

// Allocate places inst in the first free slot. It returns the slot index,
// or false if the pool is full.
func (p *StationPool) Allocate(
	inst *insts.Instruction,
	waitOn [insts.MaxSrc]Tag,
	readyCycle uint64,
) (int, bool) {
	for i := range p.slots {
		s := &p.slots[i]
		if s.State != StationFree {
			continue
		}

		s.State = StationWaiting
		s.Inst = inst
		s.WaitOn = waitOn
		s.ReadyCycle = readyCycle
		s.Unit = -1
		p.occupied++

		return i, true
	}

	return -1, false
}

// Ready returns the slots whose instruction may start executing at cycle,
// oldest first. The result is a snapshot; starting one entry does not
// change the readiness of the others.
func (p *StationPool) Ready(cycle uint64) []int {
	var ready []int
	for i := range p.slots {
		if p.slots[i].Ready(cycle) {
			ready = append(ready, i)
		}
	}

	slices.SortFunc(ready, func(a, b int) int {
		return p.slots[a].Inst.Index - p.slots[b].Inst.Index
	})

	return ready
}

// StartExecution marks slot as executing on unit.
func (p *StationPool) StartExecution(slot, unit int) {
	s := &p.slots[slot]
	s.State = StationExecuting
	s.Unit = unit
}

// Wake delivers the result of producer to every waiting operand. Woken
// slots may start executing no earlier than the cycle after cycle. It
// returns the number of operands cleared.
func (p *StationPool) Wake(producer Tag, cycle uint64) int {
	woken := 0
	for i := range p.slots {
		s := &p.slots[i]
		if s.State != StationWaiting {
			continue
		}

		for j, t := range s.WaitOn {
			if t == producer {
				s.WaitOn[j] = NoTag
				s.ReadyCycle = max(s.ReadyCycle, cycle+1)
				woken++
			}
		}
	}
	return woken
}

// Release frees slot.
func (p *StationPool) Release(slot int) {
	if p.slots[slot].State == StationFree {
		return
	}

	p.slots[slot].clear()
	p.occupied--
}
