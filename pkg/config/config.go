package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the wireless emulator's configuration.
type Config struct {
	Framework      FrameworkConfig      `yaml:"framework"`
	ChannelService ChannelServiceConfig `yaml:"channel_service"`
	Runtime        RuntimeConfig        `yaml:"runtime"`
	Mobility       MobilityConfig       `yaml:"mobility"`
	Reporting      ReportingConfig      `yaml:"reporting"`
	Emergency      EmergencyConfig      `yaml:"emergency"`
	Safety         SafetyConfig         `yaml:"safety"`
}

// FrameworkConfig contains general framework settings.
type FrameworkConfig struct {
	Version   string `yaml:"version"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// ChannelServiceConfig contains settings for the ray-tracing channel
// computation service.
type ChannelServiceConfig struct {
	ListenAddr     string        `yaml:"listen_addr"`
	ComputeTimeout time.Duration `yaml:"compute_timeout"`
}

// RuntimeConfig contains settings for the container/veth orchestration
// adapter.
type RuntimeConfig struct {
	DefaultImage string `yaml:"default_image"`
	NodePrefix   string `yaml:"node_prefix"`
}

// MobilityConfig contains settings for the mobility HTTP API.
type MobilityConfig struct {
	ListenAddr   string        `yaml:"listen_addr"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// ReportingConfig contains reporting and output settings.
type ReportingConfig struct {
	OutputDir string   `yaml:"output_dir"`
	KeepLastN int      `yaml:"keep_last_n"`
	Formats   []string `yaml:"formats"`
}

// EmergencyConfig contains emergency stop settings.
type EmergencyConfig struct {
	StopFile           string        `yaml:"stop_file"`
	AutoCleanupTimeout time.Duration `yaml:"auto_cleanup_timeout"`
}

// SafetyConfig contains safety limits.
type SafetyConfig struct {
	MaxConcurrentLinks  int  `yaml:"max_concurrent_links"`
	RequireConfirmation bool `yaml:"require_confirmation"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Framework: FrameworkConfig{
			Version:   "v1",
			LogLevel:  "info",
			LogFormat: "text",
		},
		ChannelService: ChannelServiceConfig{
			ListenAddr:     "127.0.0.1:8900",
			ComputeTimeout: 10 * time.Second,
		},
		Runtime: RuntimeConfig{
			DefaultImage: "wireless-node:latest",
			NodePrefix:   "we",
		},
		Mobility: MobilityConfig{
			ListenAddr:   "127.0.0.1:8901",
			PollInterval: 2 * time.Second,
		},
		Reporting: ReportingConfig{
			OutputDir: "./reports",
			KeepLastN: 50,
			Formats:   []string{"json", "html"},
		},
		Emergency: EmergencyConfig{
			StopFile:           "/tmp/wireless-emulator-emergency-stop",
			AutoCleanupTimeout: 5 * time.Minute,
		},
		Safety: SafetyConfig{
			MaxConcurrentLinks:  64,
			RequireConfirmation: true,
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults for
// any field the file doesn't set. If path doesn't exist, the default
// configuration is returned unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = "config.yaml"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	if err := yaml.Unmarshal(expandedData, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if addr := os.Getenv("CHANNEL_SERVICE_ADDR"); addr != "" {
		cfg.ChannelService.ListenAddr = addr
	}

	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.ChannelService.ListenAddr == "" {
		return fmt.Errorf("channel_service.listen_addr is required")
	}

	if c.Runtime.DefaultImage == "" {
		return fmt.Errorf("runtime.default_image is required")
	}

	if c.Reporting.OutputDir == "" {
		return fmt.Errorf("reporting.output_dir is required")
	}

	if c.Safety.MaxConcurrentLinks < 1 {
		return fmt.Errorf("safety.max_concurrent_links must be at least 1")
	}

	return nil
}
