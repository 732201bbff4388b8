package layout

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ibralyousef/polaroid-batch-scanner/internal/fileutil"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/geometry"
)

// ErrNotCalibrated reports a missing or empty positions list; scanning cannot
// start until calibration has been run.
var ErrNotCalibrated = errors.New("no calibrated positions; run calibration first")

// Layout is the persisted calibration document.
type Layout struct {
	ScannerBed   geometry.Bed    `json:"scanner_bed"`
	ScanSettings Settings        `json:"scan_settings"`
	Positions    []geometry.Rect `json:"positions"`
}

// Default returns a layout for an A4-class flatbed with factory settings and
// no positions.
func Default() Layout {
	return Layout{
		ScannerBed:   geometry.Bed{WidthMM: 216, HeightMM: 297},
		ScanSettings: DefaultSettings(),
	}
}

// Store reads and writes the calibration document at a fixed path.
type Store struct {
	path string
}

// NewStore creates a store for the given document path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the document location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the document. A missing file yields the default layout without
// error so first runs work before any calibration.
func (s *Store) Load() (Layout, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Layout{}, fmt.Errorf("read layout %s: %w", s.path, err)
	}

	doc := Default()
	if err := json.Unmarshal(data, &doc); err != nil {
		return Layout{}, fmt.Errorf("parse layout %s: %w", s.path, err)
	}
	if err := doc.ScanSettings.Validate(); err != nil {
		return Layout{}, fmt.Errorf("layout %s: %w", s.path, err)
	}
	return doc, nil
}

// Save persists the document atomically. The prior file, when present, is
// copied to <path>.backup before the replacement lands.
func (s *Store) Save(doc Layout) error {
	if err := doc.ScanSettings.Validate(); err != nil {
		return err
	}

	if _, err := os.Stat(s.path); err == nil {
		if err := fileutil.CopyFile(s.path, s.path+".backup"); err != nil {
			return fmt.Errorf("back up layout: %w", err)
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create layout directory: %w", err)
	}
	return fileutil.WriteFileAtomic(s.path, data, 0o644)
}

// SavePositions replaces the bed and positions in one atomic write, leaving
// scan settings untouched. This is the calibration commit path.
func (s *Store) SavePositions(bed geometry.Bed, positions []geometry.Rect) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	doc.ScannerBed = bed
	doc.Positions = append([]geometry.Rect(nil), positions...)
	return s.Save(doc)
}

// SaveSettings replaces the scan settings, leaving positions untouched.
func (s *Store) SaveSettings(settings Settings) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	doc.ScanSettings = settings
	return s.Save(doc)
}

// RequirePositions loads the document and fails with ErrNotCalibrated when no
// positions have been calibrated yet.
func (s *Store) RequirePositions() (Layout, error) {
	doc, err := s.Load()
	if err != nil {
		return Layout{}, err
	}
	if len(doc.Positions) == 0 {
		return Layout{}, ErrNotCalibrated
	}
	return doc, nil
}
