package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds the structural parameters of the machine.
type Config struct {
	// QueueSize is the depth of the instruction queue. Default: 10.
	QueueSize int `json:"queue_size"`

	// IntStations is the number of integer reservation stations. Default: 4.
	IntStations int `json:"int_stations"`

	// FPStations is the number of floating-point reservation stations.
	// Default: 2.
	FPStations int `json:"fp_stations"`

	// IntUnits is the number of integer functional units. Default: 2.
	IntUnits int `json:"int_units"`

	// FPUnits is the number of floating-point functional units. Default: 1.
	FPUnits int `json:"fp_units"`

	// NumRegisters is the number of architectural registers tracked by the
	// map table. Default: 64.
	NumRegisters int `json:"num_registers"`

	// MaxCycles bounds the simulation. Running past it means the model is
	// stuck. 0 derives a bound from the trace length.
	MaxCycles uint64 `json:"max_cycles"`
}

// DefaultConfig returns the default machine configuration.
func DefaultConfig() Config {
	return Config{
		QueueSize:    10,
		IntStations:  4,
		FPStations:   2,
		IntUnits:     2,
		FPUnits:      1,
		NumRegisters: 64,
	}
}

// LoadConfig loads a Config from a JSON file. Fields missing from the file
// keep their default values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read machine config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse machine config: %w", err)
	}

	return config, nil
}

// SaveConfig writes the Config to a JSON file.
func (c Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize machine config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write machine config file: %w", err)
	}

	return nil
}

// Validate checks that every pool has at least one entry.
func (c Config) Validate() error {
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be > 0")
	}
	if c.IntStations <= 0 {
		return fmt.Errorf("int_stations must be > 0")
	}
	if c.FPStations <= 0 {
		return fmt.Errorf("fp_stations must be > 0")
	}
	if c.IntUnits <= 0 {
		return fmt.Errorf("int_units must be > 0")
	}
	if c.FPUnits <= 0 {
		return fmt.Errorf("fp_units must be > 0")
	}
	if c.NumRegisters <= 0 {
		return fmt.Errorf("num_registers must be > 0")
	}
	return nil
}
