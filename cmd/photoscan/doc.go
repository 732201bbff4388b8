// Command photoscan digitizes batches of photos on a flatbed scanner.
// Run without arguments for the interactive menu, or use the subcommands
// directly: scan, calibrate, settings, history, config.
package main
