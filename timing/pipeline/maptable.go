package pipeline

import "github.com/sarchlab/tomasim/insts"

// Tag is a stable handle for an in-flight instruction. It is the program
// index of the instruction, so it never dangles when the instruction leaves
// the machine.
type Tag int

// NoTag means no pending producer.
const NoTag Tag = -1

// TagOf returns the tag of an instruction.
func TagOf(inst *insts.Instruction) Tag {
	return Tag(inst.Index)
}

// MapTable maps each architectural register to the in-flight instruction
// that will produce its next value.
type MapTable struct {
	producers []Tag
	pending   int
}

// NewMapTable creates a map table for numRegs registers with no producers.
func NewMapTable(numRegs int) *MapTable {
	m := &MapTable{producers: make([]Tag, numRegs)}
	m.Reset()
	return m
}

// Reset clears every entry.
func (m *MapTable) Reset() {
	for i := range m.producers {
		m.producers[i] = NoTag
	}
	m.pending = 0
}

func (m *MapTable) tracked(r insts.Reg) bool {
	return r.Valid() && int(r) < len(m.producers)
}

// Lookup returns the producer of register r, or NoTag. The zero register,
// RegNone and out-of-range registers never have a producer.
func (m *MapTable) Lookup(r insts.Reg) Tag {
	if !m.tracked(r) {
		return NoTag
	}
	return m.producers[r]
}

// Rename makes tag the producer of r. A later rename always overwrites an
// earlier one.
func (m *MapTable) Rename(r insts.Reg, tag Tag) {
	if !m.tracked(r) {
		return
	}

	if m.producers[r] == NoTag {
		m.pending++
	}
	m.producers[r] = tag
}

// ClearIf clears r only if its producer is still tag. It returns true if
// the entry was cleared.
func (m *MapTable) ClearIf(r insts.Reg, tag Tag) bool {
	if tag == NoTag || !m.tracked(r) || m.producers[r] != tag {
		return false
	}

	m.producers[r] = NoTag
	m.pending--
	return true
}

// Pending returns the number of registers with a live producer.
func (m *MapTable) Pending() int {
	return m.pending
}
