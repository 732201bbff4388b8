package naming_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ibralyousef/polaroid-batch-scanner/internal/naming"
)

func TestPrefixStoreMissingFileYieldsEmptyMap(t *testing.T) {
	store := naming.NewPrefixStore(filepath.Join(t.TempDir(), "cartridge_prefixes.json"))
	m, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m) != 0 {
		t.Fatalf("expected empty map, got %v", m)
	}
}

func TestPrefixStoreAddPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cartridge_prefixes.json")
	store := naming.NewPrefixStore(path)

	if _, err := store.Add("P", "~/Pictures/Personal"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Add("F", "~/Pictures/Family"); err != nil {
		t.Fatal(err)
	}

	m, err := naming.NewPrefixStore(path).Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(m) != 2 || m["P"] != "~/Pictures/Personal" || m["F"] != "~/Pictures/Family" {
		t.Fatalf("unexpected map after reload: %v", m)
	}
	if got := m.Prefixes(); len(got) != 2 || got[0] != "F" || got[1] != "P" {
		t.Fatalf("unexpected prefix order: %v", got)
	}
}

func TestPrefixMapFolderExpandsTilde(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	m := naming.PrefixMap{"P": "~/Pictures/Personal"}
	folder, err := m.Folder("P")
	if err != nil {
		t.Fatal(err)
	}
	if folder != filepath.Join(tempHome, "Pictures", "Personal") {
		t.Fatalf("unexpected expansion: %q", folder)
	}

	if _, err := m.Folder("Z"); !errors.Is(err, naming.ErrNoDestination) {
		t.Fatalf("expected ErrNoDestination, got %v", err)
	}
}
