package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MotorPins holds the H-bridge pin pair for one wheel.
type MotorPins struct {
	ForwardPin int `yaml:"forward_pin"`
	ReversePin int `yaml:"reverse_pin"`
}

// MotorsConfig holds both drive motors.
type MotorsConfig struct {
	Left  MotorPins `yaml:"left"`
	Right MotorPins `yaml:"right"`
}

// ButtonConfig maps one lid button to its input and LED pins.
type ButtonConfig struct {
	Pin    int `yaml:"pin"`
	LEDPin int `yaml:"led_pin"`
}

// ButtonsConfig holds the four buttons and the poll period.
type ButtonsConfig struct {
	PollIntervalMs int          `yaml:"poll_interval_ms"` // also the debounce window
	A              ButtonConfig `yaml:"a"`
	B              ButtonConfig `yaml:"b"`
	X              ButtonConfig `yaml:"x"`
	Y              ButtonConfig `yaml:"y"`
}

// UltrasonicConfig holds the HC-SR04 wiring.
type UltrasonicConfig struct {
	TriggerPin int `yaml:"trigger_pin"`
	EchoPin    int `yaml:"echo_pin"`
	TimeoutMs  int `yaml:"timeout_ms"`
}

// UnderlightConfig selects the I2C bus carrying the SN3218.
type UnderlightConfig struct {
	I2CBus  int  `yaml:"i2c_bus"`
	Address byte `yaml:"address"`
}

// CameraConfig selects and tunes the capture backend.
// Type is "v4l" for a real Video4Linux device or "mock" for the
// synthetic pattern generator.
type CameraConfig struct {
	Type          string  `yaml:"type"`
	Device        int     `yaml:"device"`         // V4L device index
	FPS           float64 `yaml:"fps"`            // recording frame rate
	RecordingsDir string  `yaml:"recordings_dir"` // default output dir for video jobs
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel   int  `yaml:"debug_level"`   // 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockHardware bool `yaml:"mock_hardware"` // true = run without GPIO/I2C/camera hardware
}

// Config aggregates all application configuration.
type Config struct {
	Motors     MotorsConfig     `yaml:"motors"`
	Buttons    ButtonsConfig    `yaml:"buttons"`
	Ultrasonic UltrasonicConfig `yaml:"ultrasonic"`
	Underlight UnderlightConfig `yaml:"underlight"`
	Camera     CameraConfig     `yaml:"camera"`
	Defaults   DefaultsConfig   `yaml:"defaults"`
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	// Basic validation
	switch cfg.Camera.Type {
	case "":
		cfg.Camera.Type = "mock"
	case "mock", "v4l":
	default:
		return nil, fmt.Errorf("unsupported camera type: %s", cfg.Camera.Type)
	}
	if cfg.Camera.FPS < 0 {
		return nil, fmt.Errorf("camera.fps must be >= 0, got %g", cfg.Camera.FPS)
	}
	if cfg.Camera.FPS == 0 {
		cfg.Camera.FPS = 30
	}
	if cfg.Camera.RecordingsDir == "" {
		cfg.Camera.RecordingsDir = "recordings"
	}
	if cfg.Defaults.DebugLevel < 0 || cfg.Defaults.DebugLevel > 4 {
		return nil, fmt.Errorf("debug_level must be 0-4, got %d", cfg.Defaults.DebugLevel)
	}
	if cfg.Buttons.PollIntervalMs < 0 {
		return nil, fmt.Errorf("poll_interval_ms must be >= 0, got %d", cfg.Buttons.PollIntervalMs)
	}
	if cfg.Buttons.PollIntervalMs == 0 {
		cfg.Buttons.PollIntervalMs = 10
	}
	if cfg.Ultrasonic.TimeoutMs <= 0 {
		cfg.Ultrasonic.TimeoutMs = 30
	}
	if cfg.Underlight.Address == 0 {
		cfg.Underlight.Address = 0x54
	}

	return &cfg, nil
}

// PollInterval returns the button poll period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Buttons.PollIntervalMs) * time.Millisecond
}

// UltrasonicTimeout returns the echo wait deadline.
func (c *Config) UltrasonicTimeout() time.Duration {
	return time.Duration(c.Ultrasonic.TimeoutMs) * time.Millisecond
}
