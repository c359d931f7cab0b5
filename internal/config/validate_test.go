package config

import (
	"strings"
	"testing"
)

func TestValidateDefaultsAreClean(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Fatalf("default config has validation errors: %v", errs)
	}
}

func TestValidateUnknownLogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "verbose"
	errs := cfg.Validate()
	if len(errs) == 0 {
		t.Fatal("expected an error for an unknown log level")
	}
	found := false
	for _, err := range errs {
		if strings.Contains(err.Error(), "log_level") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a log_level error, got %v", errs)
	}
}

func TestValidateWarningLevelAccepted(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "WARNING"
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Fatalf("warning should be an accepted level: %v", errs)
	}
}

func TestValidateInvalidLogFormat(t *testing.T) {
	cfg := Default()
	cfg.LogFormat = "xml"
	if errs := cfg.Validate(); len(errs) == 0 {
		t.Fatal("expected an error for an invalid log format")
	}
}

func TestValidateGridLimitClamping(t *testing.T) {
	cfg := Default()
	cfg.GridLimit = -5
	if errs := cfg.Validate(); len(errs) == 0 {
		t.Fatal("expected an error for a negative grid limit")
	}
	if cfg.GridLimit != 0 {
		t.Fatalf("GridLimit = %d, want 0 (clamped)", cfg.GridLimit)
	}

	cfg = Default()
	cfg.GridLimit = 99999
	cfg.Validate()
	if cfg.GridLimit != 10000 {
		t.Fatalf("GridLimit = %d, want 10000 (clamped)", cfg.GridLimit)
	}
}

func TestValidateDebounceClamping(t *testing.T) {
	cfg := Default()
	cfg.WatchDebounceMs = 0
	cfg.Validate()
	if cfg.WatchDebounceMs != 50 {
		t.Fatalf("WatchDebounceMs = %d, want 50 (clamped)", cfg.WatchDebounceMs)
	}

	cfg = Default()
	cfg.WatchDebounceMs = 120000
	cfg.Validate()
	if cfg.WatchDebounceMs != 60000 {
		t.Fatalf("WatchDebounceMs = %d, want 60000 (clamped)", cfg.WatchDebounceMs)
	}
}

func TestValidateEmptyCaptureDir(t *testing.T) {
	cfg := Default()
	cfg.CaptureDir = ""
	if errs := cfg.Validate(); len(errs) == 0 {
		t.Fatal("expected an error for an empty capture dir")
	}
	if cfg.CaptureDir != "." {
		t.Fatalf("CaptureDir = %q, want %q", cfg.CaptureDir, ".")
	}
}
