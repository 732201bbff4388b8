// Package workflow drives a scanning session: resolving the cartridge,
// capturing each calibrated position, naming and writing the files, and the
// operator loop between batches. It owns the session state machine; hardware
// access, naming, and persistence are injected.
package workflow
