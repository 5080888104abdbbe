package latency_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/timing/latency"
)

var _ = Describe("Latency", func() {
	var table *latency.Table

	BeforeEach(func() {
		table = latency.NewTable()
	})

	Describe("Default Timing Values", func() {
		It("should have correct integer latency", func() {
			Expect(table.Config().IntLatency).To(Equal(uint64(4)))
		})

		It("should have correct floating-point latency", func() {
			Expect(table.Config().FPLatency).To(Equal(uint64(9)))
		})

		It("should report the larger latency as max", func() {
			Expect(table.MaxLatency()).To(Equal(uint64(9)))
		})
	})

	Describe("Instruction Latencies", func() {
		DescribeTable("by class",
			func(c insts.Class, expected uint64) {
				inst := insts.New(c, nil, nil)
				Expect(table.GetLatency(inst)).To(Equal(expected))
			},
			Entry("integer computation", insts.ClassIntComp, uint64(4)),
			Entry("load", insts.ClassLoad, uint64(4)),
			Entry("store", insts.ClassStore, uint64(4)),
			Entry("floating point", insts.ClassFPComp, uint64(9)),
			Entry("conditional branch", insts.ClassCondCtrl, uint64(0)),
			Entry("jump", insts.ClassUncondCtrl, uint64(0)),
			Entry("nop", insts.ClassNop, uint64(0)),
		)
	})

	Describe("Nil Instruction Handling", func() {
		It("should return 0 for nil instruction", func() {
			Expect(table.GetLatency(nil)).To(Equal(uint64(0)))
		})
	})

	Describe("Custom Configuration", func() {
		It("should use custom latencies", func() {
			config := &latency.TimingConfig{IntLatency: 2, FPLatency: 20}
			custom := latency.NewTableWithConfig(config)

			Expect(custom.ClassLatency(insts.ClassLoad)).To(Equal(uint64(2)))
			Expect(custom.ClassLatency(insts.ClassFPComp)).To(Equal(uint64(20)))
			Expect(custom.MaxLatency()).To(Equal(uint64(20)))
		})

		It("should use default latencies for a nil config", func() {
			custom := latency.NewTableWithConfig(nil)

			Expect(custom.Config()).To(Equal(latency.DefaultTimingConfig()))
			Expect(custom.ClassLatency(insts.ClassIntComp)).To(Equal(uint64(4)))
		})
	})
})

var _ = Describe("TimingConfig", func() {
	Describe("Default Config", func() {
		It("should create valid default config", func() {
			config := latency.DefaultTimingConfig()
			Expect(config.Validate()).To(Succeed())
		})
	})

	Describe("Validation", func() {
		It("should reject zero integer latency", func() {
			config := latency.DefaultTimingConfig()
			config.IntLatency = 0
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("should reject zero floating-point latency", func() {
			config := latency.DefaultTimingConfig()
			config.FPLatency = 0
			Expect(config.Validate()).To(HaveOccurred())
		})
	})

	Describe("Clone", func() {
		It("should create independent copy", func() {
			original := latency.DefaultTimingConfig()
			clone := original.Clone()

			clone.IntLatency = 100

			Expect(original.IntLatency).To(Equal(uint64(4)))
			Expect(clone.IntLatency).To(Equal(uint64(100)))
		})
	})

	Describe("File Operations", func() {
		var tempDir string

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "latency-test")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			_ = os.RemoveAll(tempDir)
		})

		It("should save and load config", func() {
			original := latency.DefaultTimingConfig()
			original.IntLatency = 5
			original.FPLatency = 12

			path := filepath.Join(tempDir, "timing.json")
			Expect(original.SaveConfig(path)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.IntLatency).To(Equal(uint64(5)))
			Expect(loaded.FPLatency).To(Equal(uint64(12)))
		})

		It("should keep defaults for missing fields", func() {
			path := filepath.Join(tempDir, "partial.json")
			Expect(os.WriteFile(path, []byte(`{"fp_latency": 3}`), 0644)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.IntLatency).To(Equal(uint64(4)))
			Expect(loaded.FPLatency).To(Equal(uint64(3)))
		})

		It("should return error for non-existent file", func() {
			_, err := latency.LoadConfig("/nonexistent/path/timing.json")
			Expect(err).To(HaveOccurred())
		})

		It("should return error for invalid JSON", func() {
			path := filepath.Join(tempDir, "invalid.json")
			err := os.WriteFile(path, []byte("not valid json"), 0644)
			Expect(err).NotTo(HaveOccurred())

			_, err = latency.LoadConfig(path)
			Expect(err).To(HaveOccurred())
		})
	})
})
