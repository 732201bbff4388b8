// Package naming owns cartridge identification and output filenames.
//
// Cartridge numbers are global: the prefix letter only selects a destination
// folder, so the next free number is derived from the highest number found in
// ANY mapped folder regardless of prefix. Sequence numbers are per cartridge
// per date. Neither counter is held as live state; both are recomputed from
// directory listings every time they are needed, so external changes to the
// folders are always picked up.
package naming
