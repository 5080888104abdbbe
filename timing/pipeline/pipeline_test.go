package pipeline_test

import (
	"bytes"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/timing/latency"
	"github.com/sarchlab/tomasim/timing/pipeline"
)

var _ = Describe("Config", func() {
	It("should have the default machine shape", func() {
		config := pipeline.DefaultConfig()

		Expect(config.QueueSize).To(Equal(10))
		Expect(config.IntStations).To(Equal(4))
		Expect(config.FPStations).To(Equal(2))
		Expect(config.IntUnits).To(Equal(2))
		Expect(config.FPUnits).To(Equal(1))
		Expect(config.NumRegisters).To(Equal(64))
		Expect(config.MaxCycles).To(BeZero())
		Expect(config.Validate()).To(Succeed())
	})

	DescribeTable("Validate",
		func(mutate func(*pipeline.Config)) {
			config := pipeline.DefaultConfig()
			mutate(&config)
			Expect(config.Validate()).NotTo(Succeed())
		},
		Entry("queue", func(c *pipeline.Config) { c.QueueSize = 0 }),
		Entry("int stations", func(c *pipeline.Config) { c.IntStations = 0 }),
		Entry("fp stations", func(c *pipeline.Config) { c.FPStations = -1 }),
		Entry("int units", func(c *pipeline.Config) { c.IntUnits = 0 }),
		Entry("fp units", func(c *pipeline.Config) { c.FPUnits = 0 }),
		Entry("registers", func(c *pipeline.Config) { c.NumRegisters = 0 }),
	)

	It("should round-trip through a file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "machine.json")
		config := pipeline.DefaultConfig()
		config.IntUnits = 3
		config.MaxCycles = 500

		Expect(config.SaveConfig(path)).To(Succeed())

		loaded, err := pipeline.LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(config))
	})

	It("should keep defaults for missing fields", func() {
		path := filepath.Join(GinkgoT().TempDir(), "machine.json")
		Expect(os.WriteFile(path, []byte(`{"fp_units": 2}`), 0644)).To(Succeed())

		loaded, err := pipeline.LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.FPUnits).To(Equal(2))
		Expect(loaded.QueueSize).To(Equal(10))
	})

	It("should fail on a missing or malformed file", func() {
		dir := GinkgoT().TempDir()
		_, err := pipeline.LoadConfig(filepath.Join(dir, "missing.json"))
		Expect(err).To(MatchError(ContainSubstring("failed to read")))

		path := filepath.Join(dir, "bad.json")
		Expect(os.WriteFile(path, []byte("{"), 0644)).To(Succeed())
		_, err = pipeline.LoadConfig(path)
		Expect(err).To(MatchError(ContainSubstring("failed to parse")))
	})
})

var _ = Describe("Pipeline", func() {
	Describe("NewPipeline", func() {
		It("should start at cycle 1 with an empty machine", func() {
			pipe := pipeline.NewPipeline(insts.NewSliceTrace(intOp(1)))

			Expect(pipe.Cycle()).To(Equal(uint64(1)))
			Expect(pipe.Queue().Empty()).To(BeTrue())
			Expect(pipe.IntStations().Capacity()).To(Equal(4))
			Expect(pipe.FPStations().Capacity()).To(Equal(2))
			Expect(pipe.IntUnits().Capacity()).To(Equal(2))
			Expect(pipe.FPUnits().Capacity()).To(Equal(1))
			Expect(pipe.IntUnits().Latency()).To(Equal(uint64(4)))
			Expect(pipe.FPUnits().Latency()).To(Equal(uint64(9)))
			Expect(pipe.CDB().Busy()).To(BeFalse())
			Expect(pipe.Done()).To(BeFalse())
		})

		It("should reject a negative pool size without panicking", func() {
			config := pipeline.DefaultConfig()
			config.IntStations = -1

			var pipe *pipeline.Pipeline
			Expect(func() {
				pipe = pipeline.NewPipeline(insts.NewSliceTrace(intOp(1)),
					pipeline.WithConfig(config))
			}).NotTo(Panic())

			cycles, err := pipe.Run()
			Expect(err).To(MatchError(pipeline.ErrInvalidConfig))
			Expect(err.Error()).To(ContainSubstring("int_stations"))
			Expect(cycles).To(Equal(uint64(1)))

			Expect(pipe.Tick()).To(MatchError(pipeline.ErrInvalidConfig))
			_, err = pipe.RunCycles(3)
			Expect(err).To(MatchError(pipeline.ErrInvalidConfig))
		})

		It("should reject zero units rather than hit the cycle limit", func() {
			config := pipeline.DefaultConfig()
			config.IntUnits = 0
			pipe := pipeline.NewPipeline(insts.NewSliceTrace(intOp(1)),
				pipeline.WithConfig(config))

			_, err := pipe.Run()
			Expect(err).To(MatchError(pipeline.ErrInvalidConfig))
			Expect(err).NotTo(MatchError(pipeline.ErrCycleLimit))
		})

		It("should reject a zero latency", func() {
			timing := latency.DefaultTimingConfig()
			timing.FPLatency = 0
			pipe := pipeline.NewPipeline(insts.NewSliceTrace(fpOp(1)),
				pipeline.WithLatencyTable(latency.NewTableWithConfig(timing)))

			_, err := pipe.Run()
			Expect(err).To(MatchError(pipeline.ErrInvalidConfig))
			Expect(err.Error()).To(ContainSubstring("fp_latency"))
		})

		It("should use default latencies for a nil table", func() {
			pipe := pipeline.NewPipeline(insts.NewSliceTrace(intOp(1)),
				pipeline.WithLatencyTable(nil))

			cycles, err := pipe.Run()
			Expect(err).NotTo(HaveOccurred())
			Expect(cycles).To(Equal(uint64(9)))
		})
	})

	Describe("Tick", func() {
		It("should do nothing once done", func() {
			pipe := pipeline.NewPipeline(insts.NewSliceTrace(intOp(1)))
			_, err := pipe.Run()
			Expect(err).NotTo(HaveOccurred())

			Expect(pipe.Tick()).To(Succeed())
			Expect(pipe.Cycle()).To(Equal(uint64(9)))
			Expect(pipe.Done()).To(BeTrue())
		})

		It("should fail past the cycle limit", func() {
			config := pipeline.DefaultConfig()
			config.MaxCycles = 5
			pipe := pipeline.NewPipeline(insts.NewSliceTrace(intOp(1)),
				pipeline.WithConfig(config))

			cycles, err := pipe.Run()

			Expect(err).To(MatchError(pipeline.ErrCycleLimit))
			Expect(cycles).To(Equal(uint64(6)))
		})
	})

	Describe("RunCycles", func() {
		It("should stop early when done", func() {
			pipe := pipeline.NewPipeline(insts.NewSliceTrace(intOp(1)))

			running, err := pipe.RunCycles(100)

			Expect(err).NotTo(HaveOccurred())
			Expect(running).To(BeFalse())
			Expect(pipe.Cycle()).To(Equal(uint64(9)))
		})
	})

	Describe("Stats", func() {
		It("should count the work done", func() {
			trace := insts.NewSliceTrace(
				intOp(1),
				ofClass(insts.ClassNop),
				ofClass(insts.ClassCondCtrl),
				insts.New(insts.ClassStore, []insts.Reg{1}, nil),
				fpOp(2),
			)
			pipe := pipeline.NewPipeline(trace)
			cycles, err := pipe.Run()
			Expect(err).NotTo(HaveOccurred())

			stats := pipe.Stats()
			Expect(stats.Cycles).To(Equal(cycles))
			Expect(stats.Instructions).To(Equal(uint64(4)))
			Expect(stats.NopsSkipped).To(Equal(uint64(1)))
			Expect(stats.ControlDiscarded).To(Equal(uint64(1)))
			Expect(stats.Broadcasts).To(Equal(uint64(2)))
			Expect(stats.SilentRetires).To(Equal(uint64(1)))
			Expect(stats.CPI()).To(BeNumerically("~",
				float64(cycles)/4, 1e-9))
		})

		It("should report zero CPI with no instructions", func() {
			Expect(pipeline.Statistics{Cycles: 5}.CPI()).To(BeZero())
		})
	})

	Describe("Reset", func() {
		It("should replay a trace with the same timing", func() {
			trace := insts.NewSliceTrace(intOp(1, 2), fpOp(3, 1), intOp(4, 3))
			pipe := pipeline.NewPipeline(trace)

			first, err := pipe.Run()
			Expect(err).NotTo(HaveOccurred())
			firstTiming := trace.Get(2).Timing

			Expect(pipe.Reset()).To(Succeed())
			Expect(pipe.Cycle()).To(Equal(uint64(1)))
			Expect(pipe.Stats().Instructions).To(BeZero())
			Expect(trace.Get(2).Timing).To(Equal(insts.Timing{}))

			second, err := pipe.Run()
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))
			Expect(trace.Get(2).Timing).To(Equal(firstTiming))
		})
	})

	Describe("WithLogger", func() {
		It("should log stage events at trace level", func() {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
				Level: pipeline.LevelTrace,
			}))
			pipe := pipeline.NewPipeline(insts.NewSliceTrace(intOp(1)),
				pipeline.WithLogger(logger))

			_, err := pipe.Run()
			Expect(err).NotTo(HaveOccurred())

			Expect(buf.String()).To(ContainSubstring("msg=fetch"))
			Expect(buf.String()).To(ContainSubstring("msg=broadcast"))
			Expect(buf.String()).To(ContainSubstring("cycle=7"))
		})

		It("should stay quiet above trace level", func() {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			pipe := pipeline.NewPipeline(insts.NewSliceTrace(intOp(1)),
				pipeline.WithLogger(logger))

			_, err := pipe.Run()
			Expect(err).NotTo(HaveOccurred())
			Expect(buf.Len()).To(BeZero())
		})
	})

	Describe("trace access", func() {
		var mockCtrl *gomock.Controller

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should pull each instruction exactly once, in order", func() {
			trace := NewMockTrace(mockCtrl)
			instructions := []*insts.Instruction{
				intOp(1), ofClass(insts.ClassNop), fpOp(2, 1),
			}

			trace.EXPECT().Len().Return(len(instructions)).AnyTimes()
			var calls []*gomock.Call
			for i, inst := range instructions {
				inst.Index = i
				calls = append(calls, trace.EXPECT().Get(i).Return(inst).Times(1))
			}
			gomock.InOrder(calls...)

			pipe := pipeline.NewPipeline(trace)
			_, err := pipe.Run()

			Expect(err).NotTo(HaveOccurred())
			Expect(instructions[2].Timing.CDBCycle).NotTo(BeZero())
		})

		It("should skip missing instructions", func() {
			trace := NewMockTrace(mockCtrl)
			inst := intOp(1)
			inst.Index = 1

			trace.EXPECT().Len().Return(2).AnyTimes()
			trace.EXPECT().Get(0).Return(nil)
			trace.EXPECT().Get(1).Return(inst)

			pipe := pipeline.NewPipeline(trace)
			_, err := pipe.Run()

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Timing.DispatchCycle).To(Equal(uint64(1)))
			Expect(pipe.Stats().NopsSkipped).To(Equal(uint64(1)))
		})

		It("should refuse to reset after fetching from a fixed trace", func() {
			trace := NewMockTrace(mockCtrl)
			inst := intOp(1)

			trace.EXPECT().Len().Return(1).AnyTimes()
			trace.EXPECT().Get(0).Return(inst).Times(1)

			pipe := pipeline.NewPipeline(trace)
			cycles, err := pipe.Run()
			Expect(err).NotTo(HaveOccurred())

			Expect(pipe.Reset()).To(MatchError(pipeline.ErrTraceNotResettable))
			Expect(pipe.Cycle()).To(Equal(cycles))
			Expect(pipe.Done()).To(BeTrue())
			Expect(inst.Timing.CDBCycle).To(Equal(uint64(7)))
		})

		It("should reset a fixed trace before anything is fetched", func() {
			trace := NewMockTrace(mockCtrl)
			trace.EXPECT().Len().Return(1).AnyTimes()

			pipe := pipeline.NewPipeline(trace)

			Expect(pipe.Reset()).To(Succeed())
			Expect(pipe.Cycle()).To(Equal(uint64(1)))
		})
	})

	Describe("random traces", func() {
		classes := []insts.Class{
			insts.ClassNop,
			insts.ClassIntComp,
			insts.ClassFPComp,
			insts.ClassLoad,
			insts.ClassStore,
			insts.ClassUncondCtrl,
			insts.ClassCondCtrl,
		}

		randomTrace := func(rng *rand.Rand, n int) *insts.SliceTrace {
			trace := insts.NewSliceTrace()
			for i := 0; i < n; i++ {
				src := make([]insts.Reg, rng.Intn(insts.MaxSrc+1))
				for j := range src {
					src[j] = insts.Reg(rng.Intn(8))
				}
				dst := make([]insts.Reg, rng.Intn(insts.MaxDst+1))
				for j := range dst {
					dst[j] = insts.Reg(rng.Intn(8))
				}
				trace.Append(insts.New(classes[rng.Intn(len(classes))], src, dst))
			}
			return trace
		}

		It("should drain every trace with consistent timing", func() {
			rng := rand.New(rand.NewSource(42))

			for round := 0; round < 50; round++ {
				config := pipeline.DefaultConfig()
				config.IntStations = 1 + rng.Intn(4)
				config.FPStations = 1 + rng.Intn(2)
				config.IntUnits = 1 + rng.Intn(2)
				config.QueueSize = 1 + rng.Intn(10)

				trace := randomTrace(rng, 1+rng.Intn(60))
				pipe := pipeline.NewPipeline(trace,
					pipeline.WithConfig(config),
					pipeline.WithInvariantChecks(),
				)

				cycles, err := pipe.Run()
				Expect(err).NotTo(HaveOccurred())
				Expect(pipe.Done()).To(BeTrue())
				Expect(pipe.MapTable().Pending()).To(BeZero())

				writers := 0
				for _, inst := range trace.Instructions() {
					if inst.Class.WritesCDB() {
						writers++
					}
				}
				Expect(cycles).To(BeNumerically(">=", writers))
				Expect(pipe.Stats().Broadcasts).To(Equal(uint64(writers)))

				for _, inst := range trace.Instructions() {
					t := inst.Timing
					switch {
					case inst.Class.IsNop():
						Expect(t).To(Equal(insts.Timing{}))
					case inst.Class.IsControl():
						Expect(t.DispatchCycle).NotTo(BeZero())
						Expect(t.IssueCycle).To(BeZero())
					case inst.Class.WritesCDB():
						Expect(t.IssueCycle).To(BeNumerically(">", t.DispatchCycle))
						Expect(t.ExecuteCycle).To(BeNumerically(">", t.IssueCycle))
						Expect(t.CDBCycle).To(BeNumerically(">", t.ExecuteCycle))
						Expect(t.CDBCycle).To(BeNumerically("<", cycles))
					default:
						Expect(t.ExecuteCycle).To(BeNumerically(">", t.IssueCycle))
						Expect(t.CDBCycle).To(BeZero())
					}
				}
			}
		})
	})
})
