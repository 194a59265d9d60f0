package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server" json:"server"`
	Model   ModelConfig   `yaml:"model" json:"model"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host         string `yaml:"host" json:"host"`
	Port         int    `yaml:"port" json:"port"`
	ReadTimeout  int    `yaml:"read_timeout" json:"read_timeout"`   // seconds
	WriteTimeout int    `yaml:"write_timeout" json:"write_timeout"` // seconds
	EnableCORS   bool   `yaml:"enable_cors" json:"enable_cors"`
}

// ModelConfig holds model artifact and decision configuration
type ModelConfig struct {
	// Dir is where training writes and serving reads artifacts.
	Dir string `yaml:"dir" json:"dir"`
	// ModelFile is the serialized pipeline within Dir.
	ModelFile string `yaml:"model_file" json:"model_file"`
	// FeaturesFile is the ordered feature list within Dir.
	FeaturesFile string `yaml:"features_file" json:"features_file"`
	// DefaultThreshold classifies a predicted probability as positive.
	// 0.30 trades recall for precision on the rare outcome.
	DefaultThreshold float64 `yaml:"default_threshold" json:"default_threshold"`
	// RegistryPath is the SQLite database tracking trained models.
	RegistryPath string `yaml:"registry_path" json:"registry_path"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format   string `yaml:"format" json:"format"` // json, text
	Output   string `yaml:"output" json:"output"` // stdout, file, both
	FilePath string `yaml:"file_path" json:"file_path"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
			EnableCORS:   true,
		},
		Model: ModelConfig{
			Dir:              "./artifacts",
			ModelFile:        "model_best.json",
			FeaturesFile:     "model_features.csv",
			DefaultThreshold: 0.30,
			RegistryPath:     "./artifacts/registry.db",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "text",
			Output:   "stdout",
			FilePath: "./logs/ctrcd.log",
		},
	}
}

// LoadConfig reads a YAML config file, merges it over the defaults and
// applies environment overrides. An empty path skips the file step.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
		mergeConfig(cfg, &fileCfg)

		// A plain bool cannot distinguish "enable_cors: false" from the key
		// being absent, so probe for it separately.
		var flags struct {
			Server struct {
				EnableCORS *bool `yaml:"enable_cors"`
			} `yaml:"server"`
		}
		if err := yaml.Unmarshal(data, &flags); err == nil && flags.Server.EnableCORS != nil {
			cfg.Server.EnableCORS = *flags.Server.EnableCORS
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *Config) {
	if src.Server.Host != "" {
		dst.Server.Host = src.Server.Host
	}
	if src.Server.Port != 0 {
		dst.Server.Port = src.Server.Port
	}
	if src.Server.ReadTimeout != 0 {
		dst.Server.ReadTimeout = src.Server.ReadTimeout
	}
	if src.Server.WriteTimeout != 0 {
		dst.Server.WriteTimeout = src.Server.WriteTimeout
	}

	if src.Model.Dir != "" {
		dst.Model.Dir = src.Model.Dir
	}
	if src.Model.ModelFile != "" {
		dst.Model.ModelFile = src.Model.ModelFile
	}
	if src.Model.FeaturesFile != "" {
		dst.Model.FeaturesFile = src.Model.FeaturesFile
	}
	if src.Model.DefaultThreshold != 0 {
		dst.Model.DefaultThreshold = src.Model.DefaultThreshold
	}
	if src.Model.RegistryPath != "" {
		dst.Model.RegistryPath = src.Model.RegistryPath
	}

	if src.Logging.Level != "" {
		dst.Logging.Level = src.Logging.Level
	}
	if src.Logging.Format != "" {
		dst.Logging.Format = src.Logging.Format
	}
	if src.Logging.Output != "" {
		dst.Logging.Output = src.Logging.Output
	}
	if src.Logging.FilePath != "" {
		dst.Logging.FilePath = src.Logging.FilePath
	}
}

// applyEnvOverrides lets the environment win over file and defaults.
func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv("CTRCD_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("CTRCD_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if dir := os.Getenv("CTRCD_MODEL_DIR"); dir != "" {
		cfg.Model.Dir = dir
	}
	if thr := os.Getenv("CTRCD_THRESHOLD"); thr != "" {
		if t, err := strconv.ParseFloat(thr, 64); err == nil {
			cfg.Model.DefaultThreshold = t
		}
	}
	if level := os.Getenv("CTRCD_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Model.DefaultThreshold <= 0 || c.Model.DefaultThreshold >= 1 {
		return fmt.Errorf("default threshold must be in (0,1), got %v", c.Model.DefaultThreshold)
	}

	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !contains(validLevels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	validFormats := []string{"json", "text"}
	if !contains(validFormats, strings.ToLower(c.Logging.Format)) {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}
	validOutputs := []string{"stdout", "file", "both"}
	if !contains(validOutputs, strings.ToLower(c.Logging.Output)) {
		return fmt.Errorf("invalid log output: %s", c.Logging.Output)
	}
	return nil
}

// ModelPath returns the full path of the serving model artifact.
func (c *Config) ModelPath() string {
	return filepath.Join(c.Model.Dir, c.Model.ModelFile)
}

// FeaturesPath returns the full path of the ordered feature list.
func (c *Config) FeaturesPath() string {
	return filepath.Join(c.Model.Dir, c.Model.FeaturesFile)
}

// contains checks if a slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
