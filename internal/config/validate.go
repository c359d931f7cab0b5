package config

import (
	"fmt"
	"log/slog"
	"strings"
)

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// Validate checks the config for invalid values and returns all errors found.
// Dangerous values are clamped to safe defaults. Validation errors are logged
// as warnings but do not prevent startup.
func (c *Config) Validate() []error {
	var errs []error

	if c.CaptureDir == "" {
		errs = append(errs, fmt.Errorf("capture_dir is empty, using the working directory"))
		c.CaptureDir = "."
	}

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel))
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
	}

	if c.GridLimit < 0 {
		errs = append(errs, fmt.Errorf("grid_limit %d is negative, clamping to 0 (unlimited)", c.GridLimit))
		c.GridLimit = 0
	} else if c.GridLimit > 10000 {
		errs = append(errs, fmt.Errorf("grid_limit %d exceeds maximum 10000, clamping", c.GridLimit))
		c.GridLimit = 10000
	}

	if c.WatchDebounceMs < 50 {
		errs = append(errs, fmt.Errorf("watch_debounce_ms %d is below minimum 50, clamping", c.WatchDebounceMs))
		c.WatchDebounceMs = 50
	} else if c.WatchDebounceMs > 60000 {
		errs = append(errs, fmt.Errorf("watch_debounce_ms %d exceeds maximum 60000, clamping", c.WatchDebounceMs))
		c.WatchDebounceMs = 60000
	}

	for _, err := range errs {
		slog.Warn("config validation", "error", err)
	}

	return errs
}
