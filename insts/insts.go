// Package insts provides the pre-decoded instruction records consumed by the
// Tomasulo timing model.
//
// Decoding raw machine words is not done here. A trace collaborator produces
// an ordered sequence of records, each carrying an operation class, up to
// three source registers and up to two destination registers. The timing
// model stamps four cycle timestamps on each record as it flows through the
// machine.
//
// Usage:
//
//	trace := insts.NewSliceTrace(
//		insts.New(insts.ClassIntComp, []insts.Reg{1, 2}, []insts.Reg{3}),
//		insts.New(insts.ClassFPComp, []insts.Reg{3}, []insts.Reg{4}),
//	)
//	inst := trace.Get(1)
//	fmt.Printf("Class: %v, Src: %v, Dst: %v\n", inst.Class, inst.Src, inst.Dst)
package insts

import "fmt"

// Reg identifies an architectural register.
type Reg int16

const (
	// RegNone marks an unused source or destination slot.
	RegNone Reg = -1

	// RegZero is hardwired to zero. It never produces or consumes a
	// dependency.
	RegZero Reg = 0
)

// Valid returns true if the register takes part in dependency tracking.
func (r Reg) Valid() bool {
	return r > RegZero
}

// Max number of register operands carried by an instruction.
const (
	MaxSrc = 3
	MaxDst = 2
)

// Timing holds the cycle timestamps stamped by the timing model.
// A zero value means the instruction never reached that point.
type Timing struct {
	// DispatchCycle is the cycle the instruction entered the instruction queue.
	DispatchCycle uint64

	// IssueCycle is the cycle the instruction entered a reservation station.
	IssueCycle uint64

	// ExecuteCycle is the cycle the instruction started executing.
	ExecuteCycle uint64

	// CDBCycle is the cycle the result was broadcast on the common data bus.
	CDBCycle uint64
}

// Instruction is a decoded instruction plus its timing record.
type Instruction struct {
	Index int   // Program order position
	Class Class // Operation class

	Src [MaxSrc]Reg // Source registers (RegNone if unused)
	Dst [MaxDst]Reg // Destination registers (RegNone if unused)

	Timing Timing
}

// New creates an instruction of the given class. Unused operand slots are
// filled with RegNone. Extra operands beyond MaxSrc/MaxDst are dropped.
func New(class Class, src, dst []Reg) *Instruction {
	inst := &Instruction{Class: class}

	for i := range inst.Src {
		inst.Src[i] = RegNone
		if i < len(src) {
			inst.Src[i] = src[i]
		}
	}

	for i := range inst.Dst {
		inst.Dst[i] = RegNone
		if i < len(dst) {
			inst.Dst[i] = dst[i]
		}
	}

	return inst
}

// SetDispatch records the dispatch cycle. It panics if already set.
func (i *Instruction) SetDispatch(cycle uint64) {
	i.Timing.DispatchCycle = i.stamp("dispatch", i.Timing.DispatchCycle, 0, cycle)
}

// SetIssue records the issue cycle. It panics if already set or if it
// precedes the dispatch cycle.
func (i *Instruction) SetIssue(cycle uint64) {
	i.Timing.IssueCycle = i.stamp("issue", i.Timing.IssueCycle,
		i.Timing.DispatchCycle, cycle)
}

// SetExecute records the execute-start cycle.
func (i *Instruction) SetExecute(cycle uint64) {
	i.Timing.ExecuteCycle = i.stamp("execute", i.Timing.ExecuteCycle,
		i.Timing.IssueCycle, cycle)
}

// SetCDB records the bus broadcast cycle.
func (i *Instruction) SetCDB(cycle uint64) {
	i.Timing.CDBCycle = i.stamp("cdb", i.Timing.CDBCycle,
		i.Timing.ExecuteCycle, cycle)
}

func (i *Instruction) stamp(stage string, old, prev, cycle uint64) uint64 {
	if old != 0 {
		panic(fmt.Sprintf("instruction %d: %s cycle already set to %d",
			i.Index, stage, old))
	}

	if cycle == 0 || cycle < prev {
		panic(fmt.Sprintf("instruction %d: %s cycle %d precedes %d",
			i.Index, stage, cycle, prev))
	}

	return cycle
}

// ResetTiming clears all timestamps so the instruction can be simulated again.
func (i *Instruction) ResetTiming() {
	i.Timing = Timing{}
}

// Sources returns the valid source registers.
func (i *Instruction) Sources() []Reg {
	regs := make([]Reg, 0, MaxSrc)
	for _, r := range i.Src {
		if r.Valid() {
			regs = append(regs, r)
		}
	}
	return regs
}

// Destinations returns the valid destination registers.
func (i *Instruction) Destinations() []Reg {
	regs := make([]Reg, 0, MaxDst)
	for _, r := range i.Dst {
		if r.Valid() {
			regs = append(regs, r)
		}
	}
	return regs
}

// String returns a short human-readable form, e.g. "#3 int [3] <- [1 2]".
func (i *Instruction) String() string {
	return fmt.Sprintf("#%d %v %v <- %v",
		i.Index, i.Class, i.Destinations(), i.Sources())
}
