// Package config provides configuration loading for the language front-end
// and any host embedding the kernel. Values resolve in order:
// environment variable, explicit YAML config file, default.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config holds the resolved runtime settings.
type Config struct {
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	SweepSchedule string `yaml:"sweep_schedule"`
	Metrics       bool   `yaml:"metrics"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		LogLevel:      "error",
		LogFormat:     "text",
		SweepSchedule: "",
		Metrics:       false,
	}
}

// Load resolves configuration from a .env file (best effort), the optional
// YAML file named by LOGICA_CONFIG, and the environment. Environment
// variables win over the file.
func Load() (Config, error) {
	// Missing .env is the normal case.
	_ = godotenv.Load()

	cfg := Defaults()

	if path := strings.TrimSpace(os.Getenv("LOGICA_CONFIG")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.LogLevel = GetEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = GetEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.SweepSchedule = GetEnv("LOGICA_SWEEP_SCHEDULE", cfg.SweepSchedule)
	cfg.Metrics = GetEnvBool("LOGICA_METRICS", cfg.Metrics)

	return cfg, nil
}

// GetEnv retrieves an environment variable with optional default.
func GetEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt retrieves an integer environment variable with optional default.
// Unparseable values fall back to the default.
func GetEnvInt(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// GetEnvBool retrieves a boolean environment variable with optional default.
// Accepts the forms strconv.ParseBool accepts.
func GetEnvBool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

// GetEnvDuration retrieves a duration environment variable with optional default.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
