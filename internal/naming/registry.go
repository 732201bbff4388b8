package naming

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ibralyousef/polaroid-batch-scanner/internal/fileutil"
)

// Finding records the cartridges discovered in one destination folder during
// a global suggestion scan, for the operator-facing report.
type Finding struct {
	Folder     string
	Cartridges []string
}

// Registry answers naming questions by scanning the configured destination
// folders. It holds no counters; every answer is derived fresh from the
// filesystem.
type Registry struct {
	prefixes PrefixMap
}

// NewRegistry builds a registry over the given prefix map.
func NewRegistry(prefixes PrefixMap) *Registry {
	if prefixes == nil {
		prefixes = PrefixMap{}
	}
	return &Registry{prefixes: prefixes}
}

// SuggestNextCartridge returns the next free cartridge for the prefix by
// scanning ALL mapped folders for the highest cartridge number used by ANY
// prefix. Folders that do not exist yet are skipped. The findings report
// lists what was found where.
func (r *Registry) SuggestNextCartridge(prefix string) (Cartridge, []Finding, error) {
	if _, err := r.prefixes.Folder(prefix); err != nil {
		return Cartridge{}, nil, err
	}

	var allNames []string
	var findings []Finding

	for _, p := range r.prefixes.Prefixes() {
		folder, err := r.prefixes.Folder(p)
		if err != nil {
			return Cartridge{}, nil, err
		}
		names, err := listFilenames(folder)
		if err != nil {
			return Cartridge{}, nil, err
		}
		allNames = append(allNames, names...)

		seen := map[string]struct{}{}
		for _, name := range names {
			if label, ok := CartridgeLabel(name); ok {
				seen[label] = struct{}{}
			}
		}
		if len(seen) > 0 {
			labels := make([]string, 0, len(seen))
			for label := range seen {
				labels = append(labels, label)
			}
			sort.Strings(labels)
			findings = append(findings, Finding{Folder: folder, Cartridges: labels})
		}
	}

	next := NextCartridgeNumber(allNames)
	if next > MaxCartridgeNumber {
		return Cartridge{}, findings, fmt.Errorf("no cartridge numbers left below %d", MaxCartridgeNumber+1)
	}
	return Cartridge{Prefix: prefix, Number: next}, findings, nil
}

// NextSequence returns the next sequence number for the cartridge on the
// given date by scanning the cartridge's destination folder.
func (r *Registry) NextSequence(c Cartridge, date time.Time) (int, error) {
	folder, err := r.prefixes.Folder(c.Prefix)
	if err != nil {
		return 0, err
	}
	names, err := listFilenames(folder)
	if err != nil {
		return 0, err
	}
	return NextSequenceNumber(c, date, names)
}

// Destination returns the expanded destination folder for the cartridge.
func (r *Registry) Destination(c Cartridge) (string, error) {
	return r.prefixes.Folder(c.Prefix)
}

func listFilenames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// ReserveAndWrite writes data to path unless a file is already there. An
// existing file is left byte-for-byte untouched and ErrFileExists is
// returned; scanning continues with the next sequence number. The write
// itself goes through a temp file and rename so a crash never leaves a
// corrupt final-named file.
func ReserveAndWrite(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrFileExists, filepath.Base(path))
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}
	return fileutil.WriteFileAtomic(path, data, 0o644)
}
