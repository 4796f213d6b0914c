package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultContainerCapacity is the amount units one container holds.
const DefaultContainerCapacity = 24

// ShipperWiring assigns a shipper its LSP pool.
type ShipperWiring struct {
	ID   int   `yaml:"id"`
	LSPs []int `yaml:"lsps"`
}

// LSPWiring assigns an LSP its carrier pool.
type LSPWiring struct {
	ID       int   `yaml:"id"`
	Carriers []int `yaml:"carriers"`
}

// CarrierWiring declares a carrier; its fleet is derived from the vehicle
// table's carrier column. SpeedJitter optionally perturbs its quoted speeds.
type CarrierWiring struct {
	ID          int     `yaml:"id"`
	SpeedJitter float64 `yaml:"speed_jitter"`
}

// AgentWiring is the static assignment of carriers to LSPs and LSPs to
// shippers, loaded once per run.
type AgentWiring struct {
	Shippers []ShipperWiring `yaml:"shippers"`
	LSPs     []LSPWiring     `yaml:"lsps"`
	Carriers []CarrierWiring `yaml:"carriers"`
}

// InstanceFiles names the CSV tables of one instance.
type InstanceFiles struct {
	Nodes     string `yaml:"nodes"`
	Distances string `yaml:"distances"`
	Requests  string `yaml:"requests"`
	Vehicles  string `yaml:"vehicles"`
	Services  string `yaml:"services"`
}

// ScenarioConfig groups everything a run needs beyond the instance tables.
type ScenarioConfig struct {
	Seed              int64         `yaml:"seed"`
	StepSize          int64         `yaml:"step_size"`
	Horizon           int64         `yaml:"horizon"`
	LoadTime          int64         `yaml:"load_time"`
	ContainerCapacity int           `yaml:"container_capacity"`
	Files             InstanceFiles `yaml:"files"`
	Agents            AgentWiring   `yaml:"agents"`
}

// DefaultScenarioConfig returns the defaults applied to absent fields.
func DefaultScenarioConfig() *ScenarioConfig {
	return &ScenarioConfig{
		StepSize:          1,
		LoadTime:          1,
		ContainerCapacity: DefaultContainerCapacity,
	}
}

// LoadScenarioConfig reads and validates a YAML scenario file.
func LoadScenarioConfig(path string) (*ScenarioConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario config: %w", err)
	}
	cfg := DefaultScenarioConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing scenario config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scenario config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field ranges and fills defaults for zero values.
func (c *ScenarioConfig) Validate() error {
	if c.StepSize <= 0 {
		return fmt.Errorf("step_size must be positive, got %d", c.StepSize)
	}
	if c.LoadTime < 0 {
		return fmt.Errorf("load_time must be non-negative, got %d", c.LoadTime)
	}
	if c.ContainerCapacity <= 0 {
		return fmt.Errorf("container_capacity must be positive, got %d", c.ContainerCapacity)
	}
	if c.Horizon < 0 {
		return fmt.Errorf("horizon must be non-negative, got %d", c.Horizon)
	}
	return nil
}
