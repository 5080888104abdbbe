package pipeline

import "github.com/sarchlab/tomasim/insts"

// CDB is the common data bus. It carries at most one result and holds it
// visible for exactly one cycle.
type CDB struct {
	inst  *insts.Instruction
	cycle uint64
}

// Busy returns true if the bus holds a result.
func (b *CDB) Busy() bool {
	return b.inst != nil
}

// Occupant returns the instruction on the bus, or nil.
func (b *CDB) Occupant() *insts.Instruction {
	return b.inst
}

// Grant puts inst on the bus at cycle. It returns false if the bus is
// already taken.
func (b *CDB) Grant(inst *insts.Instruction, cycle uint64) bool {
	if b.Busy() {
		return false
	}

	b.inst = inst
	b.cycle = cycle
	return true
}

// Retire clears the bus if its result was granted before cycle and returns
// the retired instruction.
func (b *CDB) Retire(cycle uint64) *insts.Instruction {
	if !b.Busy() || cycle <= b.cycle {
		return nil
	}

	inst := b.inst
	b.Reset()
	return inst
}

// Reset empties the bus.
func (b *CDB) Reset() {
	b.inst = nil
	b.cycle = 0
}
