package naming_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ibralyousef/polaroid-batch-scanner/internal/naming"
)

var testDate = time.Date(2025, 10, 2, 0, 0, 0, 0, time.UTC)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveCartridge(t *testing.T) {
	cases := []struct {
		input      string
		wantPrefix string
		wantNumber int
		hasNumber  bool
		wantErr    bool
	}{
		{"P#001", "P", 1, true, false},
		{"f#042", "F", 42, true, false},
		{"P#", "P", 0, false, false},
		{" g# ", "G", 0, false, false},
		{"P#7", "P", 7, true, false},
		{"P#000", "", 0, false, true},
		{"P001", "", 0, false, true},
		{"PP#001", "", 0, false, true},
		{"#001", "", 0, false, true},
		{"", "", 0, false, true},
	}

	for _, tc := range cases {
		c, hasNumber, err := naming.ResolveCartridge(tc.input)
		if tc.wantErr {
			if !errors.Is(err, naming.ErrInvalidCartridgeFormat) {
				t.Fatalf("%q: expected ErrInvalidCartridgeFormat, got %v", tc.input, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tc.input, err)
		}
		if c.Prefix != tc.wantPrefix || c.Number != tc.wantNumber || hasNumber != tc.hasNumber {
			t.Fatalf("%q: got %+v hasNumber=%v", tc.input, c, hasNumber)
		}
	}
}

func TestBuildFilenameParseRoundTrip(t *testing.T) {
	c := naming.Cartridge{Prefix: "P", Number: 3}
	name := naming.BuildFilename(c, testDate, 17, "tiff")
	if name != "P#003_20251002_0017.tiff" {
		t.Fatalf("unexpected filename: %q", name)
	}

	parsed, ok := naming.ParseFilename(name)
	if !ok {
		t.Fatalf("ParseFilename rejected %q", name)
	}
	if parsed.Cartridge != c || parsed.Date != "20251002" || parsed.Sequence != 17 || parsed.Ext != "tiff" {
		t.Fatalf("round trip mismatch: %+v", parsed)
	}
}

func TestSuggestNextCartridgeIsGlobalAcrossPrefixes(t *testing.T) {
	personal := t.TempDir()
	family := t.TempDir()
	touch(t, personal, "P#001_20251002_0004.tiff")
	touch(t, family, "F#009_20251002_0001.tiff")

	reg := naming.NewRegistry(naming.PrefixMap{"P": personal, "F": family})

	for _, prefix := range []string{"P", "F"} {
		c, findings, err := reg.SuggestNextCartridge(prefix)
		if err != nil {
			t.Fatalf("suggest %s: %v", prefix, err)
		}
		if c.Number != 10 {
			t.Fatalf("suggest %s: expected number 10, got %d", prefix, c.Number)
		}
		if len(findings) != 2 {
			t.Fatalf("expected findings from both folders, got %+v", findings)
		}
	}
}

func TestSuggestNextCartridgeEmptyFoldersStartAtOne(t *testing.T) {
	reg := naming.NewRegistry(naming.PrefixMap{"P": t.TempDir()})
	c, findings, err := reg.SuggestNextCartridge("P")
	if err != nil {
		t.Fatal(err)
	}
	if c.Number != 1 {
		t.Fatalf("expected 1, got %d", c.Number)
	}
	if len(findings) != 0 {
		t.Fatalf("expected no findings, got %+v", findings)
	}
}

func TestSuggestNextCartridgeUnmappedPrefix(t *testing.T) {
	reg := naming.NewRegistry(naming.PrefixMap{"P": t.TempDir()})
	if _, _, err := reg.SuggestNextCartridge("Z"); !errors.Is(err, naming.ErrNoDestination) {
		t.Fatalf("expected ErrNoDestination, got %v", err)
	}
}

func TestSuggestSkipsMissingFoldersAndForeignFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "P#007_20240101_0001.tif")
	touch(t, dir, "vacation.jpg")
	touch(t, dir, "notes.txt")

	reg := naming.NewRegistry(naming.PrefixMap{
		"P": dir,
		"F": filepath.Join(dir, "does-not-exist"),
	})
	c, _, err := reg.SuggestNextCartridge("F")
	if err != nil {
		t.Fatal(err)
	}
	if c.Number != 8 {
		t.Fatalf("expected 8, got %d", c.Number)
	}
}

func TestNextSequencePerCartridgePerDate(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "P#003_20251002_0001.tiff")
	touch(t, dir, "P#003_20251002_0002.tiff")
	touch(t, dir, "P#003_20251001_0009.tiff") // other date
	touch(t, dir, "P#004_20251002_0007.tiff") // other cartridge

	reg := naming.NewRegistry(naming.PrefixMap{"P": dir})
	seq, err := reg.NextSequence(naming.Cartridge{Prefix: "P", Number: 3}, testDate)
	if err != nil {
		t.Fatal(err)
	}
	if seq != 3 {
		t.Fatalf("expected 3, got %d", seq)
	}

	seq, err = reg.NextSequence(naming.Cartridge{Prefix: "P", Number: 5}, testDate)
	if err != nil {
		t.Fatal(err)
	}
	if seq != 1 {
		t.Fatalf("expected 1 for unseen cartridge, got %d", seq)
	}
}

func TestNextSequenceExhaustion(t *testing.T) {
	c := naming.Cartridge{Prefix: "P", Number: 1}
	names := []string{naming.BuildFilename(c, testDate, naming.MaxSequenceNumber, "tiff")}
	if _, err := naming.NextSequenceNumber(c, testDate, names); !errors.Is(err, naming.ErrSequenceExhausted) {
		t.Fatalf("expected ErrSequenceExhausted, got %v", err)
	}
}

func TestNextCartridgeNumberPureDerivation(t *testing.T) {
	names := []string{
		"P#001_20251002_0004.tiff",
		"F#009_20251002_0001.png",
		"Q#012_20240601_0001.jpeg",
		"random.tiff",
		"P#abc_20251002_0001.tiff",
	}
	if got := naming.NextCartridgeNumber(names); got != 13 {
		t.Fatalf("expected 13, got %d", got)
	}
	if got := naming.NextCartridgeNumber(nil); got != 1 {
		t.Fatalf("expected 1 for empty set, got %d", got)
	}
}

func TestReserveAndWriteNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "P#001_20251002_0001.tiff")
	original := []byte("original bytes")
	if err := os.WriteFile(path, original, 0o644); err != nil {
		t.Fatal(err)
	}

	err := naming.ReserveAndWrite(path, []byte("replacement"))
	if !errors.Is(err, naming.ErrFileExists) {
		t.Fatalf("expected ErrFileExists, got %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(original) {
		t.Fatal("existing file was modified")
	}
}

func TestReserveAndWriteWritesFreshFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "P#001_20251002_0001.tiff")
	if err := naming.ReserveAndWrite(path, []byte("scan")); err != nil {
		t.Fatalf("ReserveAndWrite: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "scan" {
		t.Fatalf("unexpected contents: %q", got)
	}
}

func TestBatchNamingScenario(t *testing.T) {
	// Scanning 4 rectangles for cartridge P#003 with no prior files produces
	// sequences 0001-0004.
	dir := t.TempDir()
	reg := naming.NewRegistry(naming.PrefixMap{"P": dir})
	c := naming.Cartridge{Prefix: "P", Number: 3}

	var produced []string
	for i := 0; i < 4; i++ {
		seq, err := reg.NextSequence(c, testDate)
		if err != nil {
			t.Fatal(err)
		}
		name := naming.BuildFilename(c, testDate, seq, "tiff")
		if err := naming.ReserveAndWrite(filepath.Join(dir, name), []byte("img")); err != nil {
			t.Fatal(err)
		}
		produced = append(produced, name)
	}

	for i, name := range produced {
		want := fmt.Sprintf("P#003_20251002_%04d.tiff", i+1)
		if name != want {
			t.Fatalf("photo %d: got %q want %q", i+1, name, want)
		}
	}
}
