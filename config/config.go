// Package config has the host-side configuration, loaded from YAML
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/calvinmclean/autobrew/brew"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial     SerialConfig     `yaml:"serial"`
	TWChart    TWChartConfig    `yaml:"twchart"`
	History    HistoryConfig    `yaml:"history"`
	Controller ControllerConfig `yaml:"controller"`
	Sim        SimConfig        `yaml:"sim"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// TWChartConfig is where completed shots are uploaded. An empty address disables uploads
type TWChartConfig struct {
	Address string `yaml:"address"`
}

// HistoryConfig is the local shot log. An empty path disables it
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// ControllerConfig has the tuning of the extraction controller used by the simulator
type ControllerConfig struct {
	MinExtraction    time.Duration `yaml:"min_extraction"`
	MaxExtraction    time.Duration `yaml:"max_extraction"`
	DripDelay        time.Duration `yaml:"drip_delay"`
	SampleInterval   time.Duration `yaml:"sample_interval"`
	OvershootGain    time.Duration `yaml:"overshoot_gain"`
	Debounce         time.Duration `yaml:"debounce"`
	SampleCount      int           `yaml:"sample_count"`
	FinalSampleCount int           `yaml:"final_sample_count"`
}

// SimConfig describes the simulated machine.
type SimConfig struct {
	Target       float32       `yaml:"target"`        // Target weight (g)
	FlowRate     float32       `yaml:"flow_rate"`     // Steady flow with the pump on (g/s)
	Preinfusion  time.Duration `yaml:"preinfusion"`   // Time until the first drops land
	DripWeight   float32       `yaml:"drip_weight"`   // Weight that lands after the pump stops (g)
	DripTau      time.Duration `yaml:"drip_tau"`      // Time constant of the drip tail
	Noise        float32       `yaml:"noise"`         // Reading noise (g)
	Tick         time.Duration `yaml:"tick"`          // Simulated control loop period
	ReadDuration time.Duration `yaml:"read_duration"` // Time taken by one sensor sample
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	def := brew.DefaultConfig()
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0",
			BaudRate: 115200,
		},
		Controller: ControllerConfig{
			MinExtraction:    def.MinExtraction,
			MaxExtraction:    def.MaxExtraction,
			DripDelay:        def.DripDelay,
			SampleInterval:   def.SampleInterval,
			OvershootGain:    def.OvershootGain,
			Debounce:         def.Debounce,
			SampleCount:      def.SampleCount,
			FinalSampleCount: def.FinalSampleCount,
		},
		Sim: SimConfig{
			Target:       36,
			FlowRate:     1.5,
			Preinfusion:  6 * time.Second,
			DripWeight:   2,
			DripTau:      time.Second,
			Noise:        0.05,
			Tick:         50 * time.Millisecond,
			ReadDuration: 100 * time.Millisecond,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Brew().Validate(); err != nil {
		return nil, fmt.Errorf("invalid controller config: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Brew returns the controller section as a brew.Config
func (c *Config) Brew() brew.Config {
	return brew.Config{
		MinExtraction:    c.Controller.MinExtraction,
		MaxExtraction:    c.Controller.MaxExtraction,
		DripDelay:        c.Controller.DripDelay,
		SampleInterval:   c.Controller.SampleInterval,
		OvershootGain:    c.Controller.OvershootGain,
		Debounce:         c.Controller.Debounce,
		SampleCount:      c.Controller.SampleCount,
		FinalSampleCount: c.Controller.FinalSampleCount,
	}
}

// ensureDefaults ensures that all required fields have default values if missing.
// A zero overshoot gain is kept since it disables the prediction.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Controller.MinExtraction == 0 {
		c.Controller.MinExtraction = def.Controller.MinExtraction
	}
	if c.Controller.MaxExtraction == 0 {
		c.Controller.MaxExtraction = def.Controller.MaxExtraction
	}
	if c.Controller.DripDelay == 0 {
		c.Controller.DripDelay = def.Controller.DripDelay
	}
	if c.Controller.SampleInterval == 0 {
		c.Controller.SampleInterval = def.Controller.SampleInterval
	}
	if c.Controller.Debounce == 0 {
		c.Controller.Debounce = def.Controller.Debounce
	}
	if c.Controller.SampleCount == 0 {
		c.Controller.SampleCount = def.Controller.SampleCount
	}
	if c.Controller.FinalSampleCount == 0 {
		c.Controller.FinalSampleCount = def.Controller.FinalSampleCount
	}

	if c.Sim.Target == 0 {
		c.Sim.Target = def.Sim.Target
	}
	if c.Sim.FlowRate == 0 {
		c.Sim.FlowRate = def.Sim.FlowRate
	}
	if c.Sim.DripTau == 0 {
		c.Sim.DripTau = def.Sim.DripTau
	}
	if c.Sim.Tick == 0 {
		c.Sim.Tick = def.Sim.Tick
	}
	if c.Sim.ReadDuration == 0 {
		c.Sim.ReadDuration = def.Sim.ReadDuration
	}
}
