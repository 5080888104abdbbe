package insts

// Trace is an ordered, finite sequence of decoded instructions. The timing
// model pulls instructions by increasing program index.
type Trace interface {
	// Len returns the number of instructions in the trace.
	Len() int

	// Get returns the instruction at program index i.
	Get(i int) *Instruction
}

// SliceTrace is an in-memory Trace.
type SliceTrace struct {
	insts []*Instruction
}

// NewSliceTrace creates a trace from the given instructions and assigns
// program indices in slice order.
func NewSliceTrace(instructions ...*Instruction) *SliceTrace {
	t := &SliceTrace{insts: instructions}
	for i, inst := range t.insts {
		inst.Index = i
	}
	return t
}

// Append adds an instruction at the end of the trace.
func (t *SliceTrace) Append(inst *Instruction) {
	inst.Index = len(t.insts)
	t.insts = append(t.insts, inst)
}

// Len returns the number of instructions.
func (t *SliceTrace) Len() int {
	return len(t.insts)
}

// Get returns the instruction at index i, or nil if out of range.
func (t *SliceTrace) Get(i int) *Instruction {
	if i < 0 || i >= len(t.insts) {
		return nil
	}
	return t.insts[i]
}

// Instructions returns the underlying instructions in program order.
func (t *SliceTrace) Instructions() []*Instruction {
	return t.insts
}

// Reset clears the timing of every instruction.
func (t *SliceTrace) Reset() {
	for _, inst := range t.insts {
		inst.ResetTiming()
	}
}
