// Package config loads and validates the application configuration.
//
// The TOML application config covers directories, the scanner backend, and
// logging. Calibration state (config.json) and the cartridge prefix map
// (cartridge_prefixes.json) are separate JSON documents owned by the layout
// and naming packages; this package only decides where they live.
package config
