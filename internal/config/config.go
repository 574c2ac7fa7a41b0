package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv.
const (
	EnvAPIKey   = "GEMINI_API_KEY"
	EnvModel    = "DUALSUB_MODEL"
	EnvEndpoint = "DUALSUB_ENDPOINT"
)

// SubtitleSettings holds subtitle export parameters.
type SubtitleSettings struct {
	CJKCharsPerLine   int  `yaml:"cjk_chars_per_line"`
	LatinCharsPerLine int  `yaml:"latin_chars_per_line"`
	WriteText         bool `yaml:"write_text"`
	WriteJSON         bool `yaml:"write_json"`
}

// APIConfig holds the transcription service settings.
type APIConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	APIVersion  string        `yaml:"api_version"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout"`
	Temperature float64       `yaml:"temperature"`
}

// PipelineConfig holds the routing and chunking parameters.
type PipelineConfig struct {
	ChunkThresholdBytes int     `yaml:"chunk_threshold_bytes"`
	MaxInputBytes       int64   `yaml:"max_input_bytes"`
	WindowSeconds       float64 `yaml:"window_seconds"`
	SampleRate          int     `yaml:"sample_rate"`
	RateLimitPerMin     int     `yaml:"rate_limit_per_min"`
}

// Config holds the full application configuration.
type Config struct {
	SubtitleSettings `yaml:"subtitle"`

	API      APIConfig      `yaml:"api"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// Default returns a Config with hardcoded defaults.
func Default() *Config {
	return &Config{
		SubtitleSettings: SubtitleSettings{
			CJKCharsPerLine:   25,
			LatinCharsPerLine: 42,
			WriteText:         true,
		},
		API: APIConfig{
			Endpoint:    "https://generativelanguage.googleapis.com/",
			APIVersion:  "v1beta",
			Model:       "gemini-2.5-flash",
			Timeout:     10 * time.Minute,
			Temperature: 0.2,
		},
		Pipeline: PipelineConfig{
			ChunkThresholdBytes: 5 * 1024 * 1024 / 2,
			MaxInputBytes:       20 * 1024 * 1024,
			WindowSeconds:       60,
			SampleRate:          16000,
			RateLimitPerMin:     0,
		},
	}
}

// Load reads a YAML file on top of the defaults. Fields missing from the
// file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides API settings from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.API.APIKey = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.API.Model = v
	}
	if v := os.Getenv(EnvEndpoint); v != "" {
		c.API.Endpoint = v
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Pipeline.ChunkThresholdBytes < 0 {
		errs = append(errs, fmt.Errorf("chunk_threshold_bytes must not be negative, got %d", c.Pipeline.ChunkThresholdBytes))
	}
	if c.Pipeline.MaxInputBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_input_bytes must be positive, got %d", c.Pipeline.MaxInputBytes))
	}
	if c.Pipeline.WindowSeconds <= 0 {
		errs = append(errs, fmt.Errorf("window_seconds must be positive, got %v", c.Pipeline.WindowSeconds))
	}
	if c.Pipeline.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample_rate must be positive, got %d", c.Pipeline.SampleRate))
	}
	if c.Pipeline.RateLimitPerMin < 0 {
		errs = append(errs, fmt.Errorf("rate_limit_per_min must not be negative, got %d", c.Pipeline.RateLimitPerMin))
	}
	if c.API.Temperature < 0 || c.API.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be within [0, 2], got %v", c.API.Temperature))
	}
	if c.CJKCharsPerLine <= 0 || c.LatinCharsPerLine <= 0 {
		errs = append(errs, errors.New("chars per line limits must be positive"))
	}
	return errors.Join(errs...)
}
