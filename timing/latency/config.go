package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds the fixed execution latencies of each functional unit
// pool.
type TimingConfig struct {
	// IntLatency is the execution latency of the integer units, used by
	// integer computation, loads and stores. Default: 4 cycles.
	IntLatency uint64 `json:"int_latency"`

	// FPLatency is the execution latency of the floating-point units.
	// Default: 9 cycles.
	FPLatency uint64 `json:"fp_latency"`
}

// DefaultTimingConfig returns a TimingConfig with the default latencies.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		IntLatency: 4,
		FPLatency:  9,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Fields missing from the
// file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that all latency values are valid (> 0).
func (c *TimingConfig) Validate() error {
	if c.IntLatency == 0 {
		return fmt.Errorf("int_latency must be > 0")
	}
	if c.FPLatency == 0 {
		return fmt.Errorf("fp_latency must be > 0")
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	return &TimingConfig{
		IntLatency: c.IntLatency,
		FPLatency:  c.FPLatency,
	}
}
