package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// DriverConfig holds the tunable control gains and limits. Values are
// scaled integers (hundredths) so they survive round trips through the
// on-car tuning UI unchanged; the controller multiplies by 0.01.
type DriverConfig struct {
	SteeringKpy   int `yaml:"steering_kpy"`
	SteeringKvy   int `yaml:"steering_kvy"`
	YawBW         int `yaml:"yaw_bw"`
	MotorBW       int `yaml:"motor_bw"`
	SpeedLimit    int `yaml:"speed_limit"`
	TractionLimit int `yaml:"traction_limit"`
}

// Calibration holds the measured hardware constants: servo linearization,
// DC motor response, and chassis geometry. These are per-car measurements,
// not tuning knobs.
type Calibration struct {
	ServoCenter float64 `yaml:"servo_center"`
	ServoScale  float64 `yaml:"servo_scale"`
	ServoBW     float64 `yaml:"servo_bw"` // servo closed-loop bandwidth, rad/s

	MotorK1     float64 `yaml:"motor_k1"`
	MotorK2     float64 `yaml:"motor_k2"`
	MotorK3     float64 `yaml:"motor_k3"`
	MotorOffset float64 `yaml:"motor_offset"` // dead zone: minimum effective command

	LF float64 `yaml:"lf"` // CG to front axle, m
	LR float64 `yaml:"lr"` // CG to rear axle, m

	VAlpha float64 `yaml:"v_alpha"` // wheel speed filter smoothing factor
	VScale float64 `yaml:"v_scale"` // distance per encoder tick, m
}

// SimConfig controls the closed-loop simulation harness.
type SimConfig struct {
	Dt         float64 `yaml:"dt"`
	Duration   float64 `yaml:"duration"`
	Integrator string  `yaml:"integrator"`
	Track      string  `yaml:"track"`
	Seed       int64   `yaml:"seed"`
}

// Config aggregates all sections.
type Config struct {
	Driver      DriverConfig `yaml:"driver"`
	Calibration Calibration  `yaml:"calibration"`
	Sim         SimConfig    `yaml:"sim"`
}

const (
	DefaultDt       = 0.02
	DefaultDuration = 30.0
)

func DefaultConfig() *Config {
	return &Config{
		Driver: DriverConfig{
			SteeringKpy:   100,
			SteeringKvy:   200,
			YawBW:         100,
			MotorBW:       70,
			SpeedLimit:    500,
			TractionLimit: 800,
		},
		Calibration: Calibration{
			ServoCenter: 126.5,
			ServoScale:  121.3,
			ServoBW:     2 * math.Pi * 4,
			MotorK1:     2.58,
			MotorK2:     0.093,
			MotorK3:     0.218,
			MotorOffset: 0.103,
			LF:          6.5 * 0.0254,
			LR:          5 * 0.0254,
			VAlpha:      0.3,
			VScale:      0.02,
		},
		Sim: SimConfig{
			Dt:         DefaultDt,
			Duration:   DefaultDuration,
			Integrator: "rk4",
			Track:      "oval",
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Calibration.ServoScale == 0 {
		return fmt.Errorf("calibration: servo_scale must be nonzero")
	}
	if c.Calibration.VAlpha <= 0 || c.Calibration.VAlpha > 1 {
		return fmt.Errorf("calibration: v_alpha must be in (0, 1], got %f", c.Calibration.VAlpha)
	}
	if c.Driver.SpeedLimit <= 0 {
		return fmt.Errorf("driver: speed_limit must be positive, got %d", c.Driver.SpeedLimit)
	}
	if c.Driver.TractionLimit <= 0 {
		return fmt.Errorf("driver: traction_limit must be positive, got %d", c.Driver.TractionLimit)
	}
	if c.Sim.Dt <= 0 {
		return fmt.Errorf("sim: dt must be positive, got %f", c.Sim.Dt)
	}
	return nil
}
