// Package layout owns the persisted calibration document (config.json):
// scanner bed dimensions, scan settings, and the ordered photo positions.
// Saves are all-or-nothing: the document is written to a temp file and
// renamed into place, with the prior file preserved as config.json.backup.
package layout
