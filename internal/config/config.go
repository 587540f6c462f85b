// Package config loads server configuration from the environment and an
// optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Recognized environment variables.
const (
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
	EnvFreeImageAPIKey = "FREEIMAGE_API_KEY"
	EnvRemoveBGAPIKey  = "REMOVEBG_API_KEY"
	EnvOutputDir       = "PROMPTSHOP_OUTPUT_DIR"
	EnvLogLevel        = "PROMPTSHOP_LOG_LEVEL"
	EnvLogFormat       = "PROMPTSHOP_LOG_FORMAT"
)

// ErrInvalidConfig is returned when a config file cannot be parsed or holds
// out-of-range values.
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigurationError reports a credential that an operation needs but
// that was not supplied.
type ConfigurationError struct {
	Variable string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s is not set", e.Variable)
}

// Config holds every tunable of the server.
type Config struct {
	GeminiAPIKey    string `yaml:"gemini_api_key"`
	RemoveBGAPIKey  string `yaml:"removebg_api_key"`
	FreeImageAPIKey string `yaml:"freeimage_api_key"`

	// GenerateModel is the Gemini model used for text-to-image generation.
	GenerateModel string `yaml:"generate_model"`
	// EditModel is the Gemini model used for instruction-based edits.
	EditModel string `yaml:"edit_model"`

	// Base URLs of the HTTP services. Empty means the public endpoint.
	GeminiBaseURL    string `yaml:"gemini_base_url"`
	RemoveBGBaseURL  string `yaml:"removebg_base_url"`
	FreeImageBaseURL string `yaml:"freeimage_base_url"`

	GeminiTimeout   time.Duration `yaml:"gemini_timeout"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`

	RegistryCapacity int           `yaml:"registry_capacity"`
	RegistryTTL      time.Duration `yaml:"registry_ttl"`

	// OutputDir receives a copy of every image produced. Empty disables it.
	OutputDir     string `yaml:"output_dir"`
	PreviewSize   int    `yaml:"preview_size"`
	MaxImageBytes int    `yaml:"max_image_bytes"`

	// MaxConcurrentCalls bounds in-flight tools/call requests.
	MaxConcurrentCalls int `yaml:"max_concurrent_calls"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		GenerateModel:      "gemini-2.0-flash-exp-image-generation",
		EditModel:          "gemini-2.0-flash-exp",
		GeminiTimeout:      120 * time.Second,
		UpstreamTimeout:    60 * time.Second,
		DownloadTimeout:    10 * time.Second,
		RegistryCapacity:   256,
		OutputDir:          "generated_images",
		PreviewSize:        256,
		MaxImageBytes:      10 * 1024 * 1024,
		MaxConcurrentCalls: 4,
		LogLevel:           "info",
		LogFormat:          "console",
	}
}

// Load builds a Config from defaults, then the YAML file at path (if path
// is not empty), then the environment. Environment variables are expanded
// inside the file before parsing.
//
// lookup is usually os.LookupEnv; tests pass a map-backed function.
func Load(path string, lookup func(string) (string, bool)) (*Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		expanded := os.Expand(string(data), func(k string) string {
			v, _ := lookup(k)
			return v
		})
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	applyEnv(cfg, lookup)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvGeminiAPIKey); ok && v != "" {
		cfg.GeminiAPIKey = v
	}
	if v, ok := lookup(EnvRemoveBGAPIKey); ok && v != "" {
		cfg.RemoveBGAPIKey = v
	}
	if v, ok := lookup(EnvFreeImageAPIKey); ok && v != "" {
		cfg.FreeImageAPIKey = v
	}
	// An explicitly empty value disables the disk copy.
	if v, ok := lookup(EnvOutputDir); ok {
		cfg.OutputDir = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		cfg.LogFormat = v
	}
}

// Validate rejects out-of-range values.
func (c *Config) Validate() error {
	switch {
	case c.GenerateModel == "":
		return fmt.Errorf("%w: generate_model is empty", ErrInvalidConfig)
	case c.EditModel == "":
		return fmt.Errorf("%w: edit_model is empty", ErrInvalidConfig)
	case c.GeminiTimeout < 0, c.UpstreamTimeout < 0, c.DownloadTimeout < 0:
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	case c.RegistryCapacity < 0:
		return fmt.Errorf("%w: registry_capacity must not be negative", ErrInvalidConfig)
	case c.RegistryTTL < 0:
		return fmt.Errorf("%w: registry_ttl must not be negative", ErrInvalidConfig)
	case c.PreviewSize < 0:
		return fmt.Errorf("%w: preview_size must not be negative", ErrInvalidConfig)
	case c.MaxImageBytes <= 0:
		return fmt.Errorf("%w: max_image_bytes must be positive, got %d", ErrInvalidConfig, c.MaxImageBytes)
	case c.MaxConcurrentCalls <= 0:
		return fmt.Errorf("%w: max_concurrent_calls must be positive", ErrInvalidConfig)
	}
	return nil
}

// Credential returns the value of a credential variable, or a
// *ConfigurationError naming it when it is not set.
func (c *Config) Credential(variable string) (string, error) {
	var v string
	switch variable {
	case EnvGeminiAPIKey:
		v = c.GeminiAPIKey
	case EnvRemoveBGAPIKey:
		v = c.RemoveBGAPIKey
	case EnvFreeImageAPIKey:
		v = c.FreeImageAPIKey
	}
	if v == "" {
		return "", &ConfigurationError{Variable: variable}
	}
	return v, nil
}

// MissingCredentials lists the credential variables that are not set.
func (c *Config) MissingCredentials() []string {
	var missing []string
	for _, name := range []string{EnvGeminiAPIKey, EnvRemoveBGAPIKey, EnvFreeImageAPIKey} {
		if _, err := c.Credential(name); err != nil {
			missing = append(missing, name)
		}
	}
	return missing
}
