// Package scanner wraps the SANE scanimage frontend. Every capture is an
// isolated subprocess invocation parameterized by geometry in millimeters, so
// there is no persistent device handle to corrupt; preview captures
// additionally run through their own executor to keep them independent of the
// primary capture path.
package scanner
