package config

const (
	defaultDataDir            = "~/.config/photoscan"
	defaultOutputDir          = "~/Pictures/scans"
	defaultLogDir             = "~/.local/share/photoscan/logs"
	defaultScanimageBinary    = "scanimage"
	defaultCaptureTimeout     = 60
	defaultInitAttempts       = 3
	defaultInitBackoffSeconds = 2
	defaultCalibrationDPI     = 75
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Scanner: Scanner{
			ScanimageBinary:    defaultScanimageBinary,
			CaptureTimeout:     defaultCaptureTimeout,
			InitAttempts:       defaultInitAttempts,
			InitBackoffSeconds: defaultInitBackoffSeconds,
			CalibrationDPI:     defaultCalibrationDPI,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
