// Package geometry models scan areas in millimeter space and converts them
// to and from pixel space at a given resolution. All functions are pure;
// validation against the scanner bed returns ErrOutOfBounds without mutating
// inputs.
package geometry
