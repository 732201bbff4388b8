package naming

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/ibralyousef/polaroid-batch-scanner/internal/config"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/fileutil"
)

// PrefixMap maps a single-letter cartridge prefix to its destination folder.
// Folder values may use home-directory shorthand; Folder expands it.
type PrefixMap map[string]string

// Prefixes returns the mapped prefix letters in sorted order.
func (m PrefixMap) Prefixes() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Folder returns the expanded destination folder for the prefix, or
// ErrNoDestination when the prefix is unmapped.
func (m PrefixMap) Folder(prefix string) (string, error) {
	raw, ok := m[prefix]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNoDestination, prefix)
	}
	expanded, err := config.ExpandPath(raw)
	if err != nil {
		return "", fmt.Errorf("expand folder for prefix %q: %w", prefix, err)
	}
	return expanded, nil
}

// PrefixStore persists the prefix map as cartridge_prefixes.json.
type PrefixStore struct {
	path string
}

// NewPrefixStore creates a store for the given file path.
func NewPrefixStore(path string) *PrefixStore {
	return &PrefixStore{path: path}
}

// Path returns the backing file location.
func (s *PrefixStore) Path() string {
	return s.path
}

// Load reads the prefix map. A missing file yields an empty map so first runs
// work before any prefix has been configured.
func (s *PrefixStore) Load() (PrefixMap, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return PrefixMap{}, nil
		}
		return nil, fmt.Errorf("read prefixes %s: %w", s.path, err)
	}
	var m PrefixMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse prefixes %s: %w", s.path, err)
	}
	if m == nil {
		m = PrefixMap{}
	}
	return m, nil
}

// Save persists the prefix map atomically.
func (s *PrefixStore) Save(m PrefixMap) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode prefixes: %w", err)
	}
	data = append(data, '\n')
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create prefixes directory: %w", err)
	}
	return fileutil.WriteFileAtomic(s.path, data, 0o644)
}

// Add maps a new prefix to a destination folder and persists the result.
func (s *PrefixStore) Add(prefix, folder string) (PrefixMap, error) {
	m, err := s.Load()
	if err != nil {
		return nil, err
	}
	m[prefix] = folder
	if err := s.Save(m); err != nil {
		return nil, err
	}
	return m, nil
}
