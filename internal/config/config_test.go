package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ibralyousef/polaroid-batch-scanner/internal/config"
)

func TestLoadDefaultsExpandPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".config", "photoscan")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "Pictures", "scans") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Scanner.ScanimageBinary != "scanimage" {
		t.Fatalf("unexpected scanimage binary: %q", cfg.Scanner.ScanimageBinary)
	}
	if cfg.Scanner.InitAttempts != 3 || cfg.Scanner.InitBackoffSeconds != 2 {
		t.Fatalf("unexpected init retry defaults: %+v", cfg.Scanner)
	}
	if cfg.Scanner.CalibrationDPI != 75 {
		t.Fatalf("unexpected calibration dpi: %d", cfg.Scanner.CalibrationDPI)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.LayoutPath() != filepath.Join(wantData, "config.json") {
		t.Fatalf("unexpected layout path: %q", cfg.LayoutPath())
	}
	if cfg.PrefixesPath() != filepath.Join(wantData, "cartridge_prefixes.json") {
		t.Fatalf("unexpected prefixes path: %q", cfg.PrefixesPath())
	}
}

func TestLoadExplicitFileOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(t.TempDir(), "photoscan.toml")
	body := `
[paths]
data_dir = "~/photoscan-data"

[scanner]
device = "genesys:libusb:001:004"
capture_timeout = 120

[logging]
level = "debug"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatalf("expected existing config, got exists=%v resolved=%q", exists, resolved)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "photoscan-data") {
		t.Fatalf("tilde expansion failed: %q", cfg.Paths.DataDir)
	}
	if cfg.Scanner.Device != "genesys:libusb:001:004" {
		t.Fatalf("unexpected device: %q", cfg.Scanner.Device)
	}
	if cfg.Scanner.CaptureTimeout != 120 {
		t.Fatalf("unexpected capture timeout: %d", cfg.Scanner.CaptureTimeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected level: %q", cfg.Logging.Level)
	}
	// Untouched sections keep defaults.
	if cfg.Scanner.InitAttempts != 3 {
		t.Fatalf("expected default init attempts, got %d", cfg.Scanner.InitAttempts)
	}
}

func TestLoadRejectsBadLogging(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photoscan.toml")
	if err := os.WriteFile(path, []byte("[logging]\nformat = \"xml\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for unsupported log format")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Scanner.CalibrationDPI != 75 {
		t.Fatalf("sample config produced unexpected calibration dpi: %d", cfg.Scanner.CalibrationDPI)
	}
}

func TestExpandPathTilde(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	got, err := config.ExpandPath("~/Pictures/Family")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(tempHome, "Pictures", "Family") {
		t.Fatalf("unexpected expansion: %q", got)
	}
}
