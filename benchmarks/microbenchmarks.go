// Package benchmarks provides microbenchmark traces and a harness that runs
// them through the Tomasulo timing model.
package benchmarks

import "github.com/sarchlab/tomasim/insts"

// Register ids used by the microbenchmarks. FP registers sit above the
// integer file.
const (
	regSP insts.Reg = 29
	regF0 insts.Reg = 32
)

// GetMicrobenchmarks returns the standard set of microbenchmarks.
// Each benchmark targets one structure of the machine.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		independentInts(),
		dependencyChain(),
		fpChain(),
		loadStore(),
		stationPressure(),
		mixedOperations(),
		loopBody(),
	}
}

// GetCoreBenchmarks returns a small set for quick validation.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		dependencyChain(),
		loopBody(),
	}
}

func op(class insts.Class, dst []insts.Reg, src ...insts.Reg) *insts.Instruction {
	return insts.New(class, src, dst)
}

func regs(r ...insts.Reg) []insts.Reg {
	return r
}

// 1. Independent integer ops: bounded by the bus, one broadcast per cycle.
func independentInts() Benchmark {
	return Benchmark{
		Name:        "independent_int",
		Description: "20 independent integer ops - measures CDB throughput",
		Trace: func() *insts.SliceTrace {
			trace := insts.NewSliceTrace()
			for i := 0; i < 20; i++ {
				trace.Append(op(insts.ClassIntComp, regs(insts.Reg(1+i%5))))
			}
			return trace
		},
	}
}

// 2. Dependency chain: every op waits for the previous broadcast.
func dependencyChain() Benchmark {
	return Benchmark{
		Name:        "dependency_chain",
		Description: "20 dependent integer ops (r1 = r1 + 1) - measures wakeup latency",
		Trace: func() *insts.SliceTrace {
			return buildChain(insts.ClassIntComp, 1, 20)
		},
	}
}

// 3. FP chain: long latency on the single FP unit.
func fpChain() Benchmark {
	return Benchmark{
		Name:        "fp_chain",
		Description: "10 dependent FP ops - measures FP latency",
		Trace: func() *insts.SliceTrace {
			return buildChain(insts.ClassFPComp, regF0, 10)
		},
	}
}

func buildChain(class insts.Class, r insts.Reg, n int) *insts.SliceTrace {
	trace := insts.NewSliceTrace()
	for i := 0; i < n; i++ {
		trace.Append(op(class, regs(r), r))
	}
	return trace
}

// 4. Load/store pairs: stores retire without the bus.
func loadStore() Benchmark {
	return Benchmark{
		Name:        "load_store",
		Description: "10 load/store pairs - stores retire silently",
		Trace: func() *insts.SliceTrace {
			trace := insts.NewSliceTrace()
			for i := 0; i < 10; i++ {
				r := insts.Reg(8 + i%4)
				trace.Append(op(insts.ClassLoad, regs(r), regSP))
				trace.Append(op(insts.ClassStore, nil, r, regSP))
			}
			return trace
		},
	}
}

// 5. Station pressure: more independent FP ops than FP stations, followed
// by integer ops stuck behind them in the queue.
func stationPressure() Benchmark {
	return Benchmark{
		Name:        "station_pressure",
		Description: "6 FP ops then 6 int ops - measures head-of-line blocking",
		Trace: func() *insts.SliceTrace {
			trace := insts.NewSliceTrace()
			for i := 0; i < 6; i++ {
				trace.Append(op(insts.ClassFPComp, regs(regF0+insts.Reg(i))))
			}
			for i := 0; i < 6; i++ {
				trace.Append(op(insts.ClassIntComp, regs(insts.Reg(1+i))))
			}
			return trace
		},
	}
}

// 6. Mixed: int and FP work interleaved with no-ops and jumps.
func mixedOperations() Benchmark {
	return Benchmark{
		Name:        "mixed_operations",
		Description: "int, FP, no-op and jump mix - measures front-end filtering",
		Trace: func() *insts.SliceTrace {
			trace := insts.NewSliceTrace()
			for i := 0; i < 5; i++ {
				trace.Append(op(insts.ClassIntComp, regs(2), 1))
				trace.Append(op(insts.ClassNop, nil))
				trace.Append(op(insts.ClassFPComp, regs(regF0), regF0+1, 2))
				trace.Append(op(insts.ClassUncondCtrl, nil))
				trace.Append(op(insts.ClassIntComp, regs(1), 2))
			}
			return trace
		},
	}
}

// 7. Loop body: a compiled counting loop with a load-increment-store in
// the middle, unrolled for a number of iterations.
//
//	addu $4,$4,1
//	addu $5,$4,1
//	lw   $8,16($sp)
//	addi $7,$8,1
//	sw   $7,16($sp)
//	addu $3,$3,1
//	slt  $2,$6,$3
//	beq  $2,$0,loop
func loopBody() Benchmark {
	return Benchmark{
		Name:        "loop_body",
		Description: "50 iterations of a counting loop - measures steady-state CPI",
		Trace: func() *insts.SliceTrace {
			return BuildLoop(50)
		},
	}
}

// BuildLoop unrolls the counting loop for the given number of iterations.
func BuildLoop(iterations int) *insts.SliceTrace {
	trace := insts.NewSliceTrace()
	for i := 0; i < iterations; i++ {
		trace.Append(op(insts.ClassIntComp, regs(4), 4))
		trace.Append(op(insts.ClassIntComp, regs(5), 4))
		trace.Append(op(insts.ClassLoad, regs(8), regSP))
		trace.Append(op(insts.ClassIntComp, regs(7), 8))
		trace.Append(op(insts.ClassStore, nil, 7, regSP))
		trace.Append(op(insts.ClassIntComp, regs(3), 3))
		trace.Append(op(insts.ClassIntComp, regs(2), 6, 3))
		trace.Append(op(insts.ClassCondCtrl, nil, 2, insts.RegZero))
	}
	return trace
}
