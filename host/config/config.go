// Package config loads the skoobot-host settings from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all host configuration.
type Config struct {
	Robot    RobotConfig   `yaml:"robot"`
	Record   RecordConfig  `yaml:"record"`
	Monitor  MonitorConfig `yaml:"monitor"`
	LogLevel string        `yaml:"log_level"`
}

// RobotConfig selects and talks to a robot.
type RobotConfig struct {
	// Address of the robot; empty means the first one found by a scan.
	Address     string        `yaml:"address"`
	BaseUUID    string        `yaml:"base_uuid"`
	ScanTimeout time.Duration `yaml:"scan_timeout"`
	Timeout     time.Duration `yaml:"timeout"`
}

// RecordConfig holds recording settings.
type RecordConfig struct {
	Mode         string        `yaml:"mode"` // "push" or "pull"
	Output       string        `yaml:"output"`
	Play         bool          `yaml:"play"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"`
}

// MonitorConfig holds the UART debug monitor settings.
type MonitorConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "skoobot")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Robot: RobotConfig{
			ScanTimeout: 5 * time.Second,
			Timeout:     2 * time.Second,
		},
		Record: RecordConfig{
			Mode:         "push",
			Output:       "skoobot.wav",
			PollInterval: 15 * time.Millisecond,
			Timeout:      45 * time.Second,
		},
		Monitor: MonitorConfig{
			Device: "/dev/ttyUSB0",
			Baud:   115200,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in record.output is expanded to the user's
// home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Record.Output = expandTilde(cfg.Record.Output)

	return cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to defaults
// otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.Robot.ScanTimeout <= 0 {
		return fmt.Errorf("robot.scan_timeout must be > 0")
	}

	if c.Robot.Timeout <= 0 {
		return fmt.Errorf("robot.timeout must be > 0")
	}

	switch c.Record.Mode {
	case "push", "pull":
	default:
		return fmt.Errorf("record.mode must be \"push\" or \"pull\", got %q", c.Record.Mode)
	}

	if c.Record.Output == "" {
		return fmt.Errorf("record.output must not be empty")
	}

	if c.Record.Timeout <= 0 {
		return fmt.Errorf("record.timeout must be > 0")
	}

	if c.Monitor.Baud <= 0 {
		return fmt.Errorf("monitor.baud must be > 0")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
