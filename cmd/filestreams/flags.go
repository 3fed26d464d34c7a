package main

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"
)

// globalOptions holds the flags shared by every command
type globalOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
	Debug      bool
}

func validateFlags(opts *globalOptions) error {
	if opts.ConfigPath != "" {
		if _, err := os.Stat(opts.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", opts.ConfigPath)
		}
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, opts.LogLevel) {
		return fmt.Errorf("invalid log level: %s", opts.LogLevel)
	}
	if !slices.Contains([]string{"json", "text"}, opts.LogFormat) {
		return fmt.Errorf("invalid log format: %s", opts.LogFormat)
	}
	return nil
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
