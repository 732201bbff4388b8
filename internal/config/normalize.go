package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScanner()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeScanner() {
	c.Scanner.ScanimageBinary = strings.TrimSpace(c.Scanner.ScanimageBinary)
	if c.Scanner.ScanimageBinary == "" {
		c.Scanner.ScanimageBinary = defaultScanimageBinary
	}
	c.Scanner.Device = strings.TrimSpace(c.Scanner.Device)
	if c.Scanner.CaptureTimeout <= 0 {
		c.Scanner.CaptureTimeout = defaultCaptureTimeout
	}
	if c.Scanner.InitAttempts <= 0 {
		c.Scanner.InitAttempts = defaultInitAttempts
	}
	if c.Scanner.InitBackoffSeconds < 0 {
		c.Scanner.InitBackoffSeconds = defaultInitBackoffSeconds
	}
	if c.Scanner.CalibrationDPI <= 0 {
		c.Scanner.CalibrationDPI = defaultCalibrationDPI
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
