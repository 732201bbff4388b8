package workflow_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/image/tiff"

	"github.com/ibralyousef/polaroid-batch-scanner/internal/config"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/geometry"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/history"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/layout"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/naming"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/scanner"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/workflow"
)

var batchDate = time.Date(2025, 10, 2, 9, 30, 0, 0, time.UTC)

func tiffFixture(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 4, 4)), nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// fakeCapturer serves a fixed TIFF payload and can be scripted to fail a
// position a number of times before succeeding.
type fakeCapturer struct {
	data        []byte
	failures    map[int]int
	captures    []scanner.CaptureRequest
	previews    []scanner.CaptureRequest
	previewFail error
}

func (f *fakeCapturer) Capture(_ context.Context, req scanner.CaptureRequest) ([]byte, error) {
	f.captures = append(f.captures, req)
	if f.failures[req.Rect.ID] > 0 {
		f.failures[req.Rect.ID]--
		return nil, errors.New("scanimage: sane_start: Device busy")
	}
	return f.data, nil
}

func (f *fakeCapturer) Preview(_ context.Context, req scanner.CaptureRequest) ([]byte, error) {
	f.previews = append(f.previews, req)
	if f.previewFail != nil {
		return nil, f.previewFail
	}
	return f.data, nil
}

type memHistorian struct {
	records []history.Record
}

func (m *memHistorian) Append(_ context.Context, rec history.Record) (int64, error) {
	m.records = append(m.records, rec)
	return int64(len(m.records)), nil
}

// scriptPrompter replays canned operator input and records what the session
// reported back.
type scriptPrompter struct {
	cartridges []string
	confirm    bool
	suggested  naming.Cartridge
	findings   []naming.Finding

	addFolder string
	addOK     bool

	choices []workflow.BatchChoice
	results []workflow.BatchResult

	previewLabels []string
	notes         []string
}

func (p *scriptPrompter) AskCartridge() (string, error) {
	if len(p.cartridges) == 0 {
		return "", errors.New("prompter exhausted")
	}
	input := p.cartridges[0]
	p.cartridges = p.cartridges[1:]
	return input, nil
}

func (p *scriptPrompter) ConfirmSuggestion(c naming.Cartridge, findings []naming.Finding) (bool, error) {
	p.suggested = c
	p.findings = findings
	return p.confirm, nil
}

func (p *scriptPrompter) AddPrefixFolder(string) (string, bool, error) {
	return p.addFolder, p.addOK, nil
}

func (p *scriptPrompter) AfterBatch(result workflow.BatchResult) (workflow.BatchChoice, error) {
	p.results = append(p.results, result)
	if len(p.choices) == 0 {
		return workflow.ChoiceExit, nil
	}
	choice := p.choices[0]
	p.choices = p.choices[1:]
	return choice, nil
}

func (p *scriptPrompter) ShowPreview(_ image.Image, label string) {
	p.previewLabels = append(p.previewLabels, label)
}

func (p *scriptPrompter) Notify(message string) {
	p.notes = append(p.notes, message)
}

type env struct {
	cfg      *config.Config
	layout   *layout.Store
	prefixes *naming.PrefixStore
	dest     string
	fallback string
}

func newEnv(t *testing.T, positionCount int) env {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Scanner.InitBackoffSeconds = 0
	cfg.Paths.OutputDir = filepath.Join(dir, "output")

	layoutStore := layout.NewStore(filepath.Join(dir, "config.json"))
	doc := layout.Default()
	for i := 0; i < positionCount; i++ {
		doc.Positions = append(doc.Positions, geometry.Rect{
			ID:       i + 1,
			Label:    fmt.Sprintf("Photo %d", i+1),
			LeftMM:   float64(i * 50),
			TopMM:    10,
			WidthMM:  40,
			HeightMM: 50,
		})
	}
	if err := layoutStore.Save(doc); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(dir, "scans")
	prefixStore := naming.NewPrefixStore(filepath.Join(dir, "cartridge_prefixes.json"))
	if _, err := prefixStore.Add("P", dest); err != nil {
		t.Fatal(err)
	}

	return env{cfg: &cfg, layout: layoutStore, prefixes: prefixStore, dest: dest, fallback: cfg.Paths.OutputDir}
}

func newSession(t *testing.T, e env, capturer workflow.Capturer, historian workflow.Historian, prompter workflow.Prompter) *workflow.Session {
	t.Helper()
	session, err := workflow.NewSession(e.cfg, workflow.Deps{
		Layout:    e.layout,
		Prefixes:  e.prefixes,
		Capturer:  capturer,
		Historian: historian,
		Prompter:  prompter,
		Clock:     func() time.Time { return batchDate },
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return session
}

func TestFourPhotoBatchProducesSequentialFiles(t *testing.T) {
	e := newEnv(t, 4)
	capturer := &fakeCapturer{data: tiffFixture(t)}
	historian := &memHistorian{}
	prompter := &scriptPrompter{cartridges: []string{"P#3"}, choices: []workflow.BatchChoice{workflow.ChoiceExit}}

	session := newSession(t, e, capturer, historian, prompter)
	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for seq := 1; seq <= 4; seq++ {
		name := fmt.Sprintf("P#003_20251002_%04d.tiff", seq)
		if _, err := os.Stat(filepath.Join(e.dest, name)); err != nil {
			t.Errorf("expected %s on disk: %v", name, err)
		}
	}

	if len(prompter.results) != 1 {
		t.Fatalf("expected 1 batch report, got %d", len(prompter.results))
	}
	result := prompter.results[0]
	if result.Err != nil || len(result.Completed) != 4 {
		t.Fatalf("unexpected batch result: %+v", result)
	}
	if len(historian.records) != 4 {
		t.Fatalf("expected 4 history records, got %d", len(historian.records))
	}
	if historian.records[0].SessionID != session.ID() {
		t.Fatal("history record missing session id")
	}
	if session.State() != workflow.StateIdle {
		t.Fatalf("session should end idle, got %s", session.State())
	}
}

func TestTransientCaptureFailureIsRetried(t *testing.T) {
	e := newEnv(t, 2)
	capturer := &fakeCapturer{data: tiffFixture(t), failures: map[int]int{1: 2}}
	prompter := &scriptPrompter{cartridges: []string{"P#1"}, choices: []workflow.BatchChoice{workflow.ChoiceExit}}

	session := newSession(t, e, capturer, nil, prompter)
	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Position 1 takes three attempts, position 2 takes one.
	if len(capturer.captures) != 4 {
		t.Fatalf("expected 4 capture calls, got %d", len(capturer.captures))
	}
	if len(prompter.results[0].Completed) != 2 {
		t.Fatalf("batch should complete after retries: %+v", prompter.results[0])
	}
}

func TestExhaustedRetriesAbortBatchAndReportSuccesses(t *testing.T) {
	e := newEnv(t, 3)
	capturer := &fakeCapturer{data: tiffFixture(t), failures: map[int]int{2: 10}}
	prompter := &scriptPrompter{cartridges: []string{"P#1"}, choices: []workflow.BatchChoice{workflow.ChoiceExit}}

	session := newSession(t, e, capturer, nil, prompter)
	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	result := prompter.results[0]
	if result.Err == nil {
		t.Fatal("expected batch failure")
	}
	if result.FailedPosition != 2 {
		t.Fatalf("expected failure at position 2, got %d", result.FailedPosition)
	}
	if len(result.Completed) != 1 || result.Completed[0].Position != 1 {
		t.Fatalf("expected exactly position 1 completed: %+v", result.Completed)
	}

	entries, err := os.ReadDir(e.dest)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 file on disk after abort, got %d", len(entries))
	}
}

func TestBareInputTriggersGlobalSuggestion(t *testing.T) {
	e := newEnv(t, 1)

	// Another prefix's folder holds the globally highest cartridge number.
	otherDest := filepath.Join(t.TempDir(), "films")
	if _, err := e.prefixes.Add("F", otherDest); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(otherDest, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(otherDest, "F#009_20250101_0001.tiff"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	capturer := &fakeCapturer{data: tiffFixture(t)}
	prompter := &scriptPrompter{cartridges: []string{"P#"}, confirm: true, choices: []workflow.BatchChoice{workflow.ChoiceExit}}

	session := newSession(t, e, capturer, nil, prompter)
	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if prompter.suggested.Number != 10 {
		t.Fatalf("expected suggestion 10 from global scan, got %d", prompter.suggested.Number)
	}
	if _, err := os.Stat(filepath.Join(e.dest, "P#010_20251002_0001.tiff")); err != nil {
		t.Fatalf("expected suggested cartridge used in filename: %v", err)
	}
}

func TestUnmappedPrefixOffersFolderMapping(t *testing.T) {
	e := newEnv(t, 1)
	newDest := filepath.Join(t.TempDir(), "slides")
	capturer := &fakeCapturer{data: tiffFixture(t)}
	prompter := &scriptPrompter{
		cartridges: []string{"S#1"},
		addFolder:  newDest,
		addOK:      true,
		choices:    []workflow.BatchChoice{workflow.ChoiceExit},
	}

	session := newSession(t, e, capturer, nil, prompter)
	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := os.Stat(filepath.Join(newDest, "S#001_20251002_0001.tiff")); err != nil {
		t.Fatalf("expected scan written to newly mapped folder: %v", err)
	}

	prefixes, err := e.prefixes.Load()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := prefixes.Folder("S"); err != nil {
		t.Fatalf("mapping not persisted: %v", err)
	}
}

func TestDeclinedPrefixMappingFallsBackToGeneric(t *testing.T) {
	e := newEnv(t, 2)
	prompter := &scriptPrompter{
		cartridges: []string{"S#1"},
		addOK:      false,
		choices:    []workflow.BatchChoice{workflow.ChoiceExit},
	}

	session := newSession(t, e, &fakeCapturer{data: tiffFixture(t)}, nil, prompter)
	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("declined mapping must fall back to generic output: %v", err)
	}

	for pos := 1; pos <= 2; pos++ {
		name := fmt.Sprintf("photo%d.tiff", pos)
		if _, err := os.Stat(filepath.Join(e.fallback, name)); err != nil {
			t.Errorf("expected %s in fallback output dir: %v", name, err)
		}
	}
	if len(prompter.notes) == 0 {
		t.Fatal("expected a notice about the generic fallback")
	}
}

func TestEmptyInputUsesGenericNamingAndNeverOverwrites(t *testing.T) {
	e := newEnv(t, 2)
	historian := &memHistorian{}
	prompter := &scriptPrompter{
		cartridges: []string{""},
		choices:    []workflow.BatchChoice{workflow.ChoiceContinue, workflow.ChoiceExit},
	}

	session := newSession(t, e, &fakeCapturer{data: tiffFixture(t)}, historian, prompter)
	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	first := prompter.results[0]
	if first.Err != nil || len(first.Completed) != 2 {
		t.Fatalf("unexpected first batch: %+v", first)
	}
	if first.Completed[0].Filename != "photo1.tiff" || first.Completed[1].Filename != "photo2.tiff" {
		t.Fatalf("unexpected generic filenames: %+v", first.Completed)
	}

	// The second batch finds photo1/photo2 already present: every position
	// is skipped and the files stay untouched.
	second := prompter.results[1]
	if second.Err != nil || len(second.Completed) != 0 {
		t.Fatalf("unexpected second batch: %+v", second)
	}
	if len(second.Skipped) != 2 {
		t.Fatalf("expected both positions skipped, got %v", second.Skipped)
	}

	if len(historian.records) != 2 {
		t.Fatalf("expected 2 journal records, got %d", len(historian.records))
	}
	if historian.records[0].Cartridge != "generic" {
		t.Fatalf("generic scans should journal as generic, got %q", historian.records[0].Cartridge)
	}
}

func TestRunRequiresCalibration(t *testing.T) {
	e := newEnv(t, 0)
	prompter := &scriptPrompter{cartridges: []string{"P#1"}}

	session := newSession(t, e, &fakeCapturer{data: tiffFixture(t)}, nil, prompter)
	if err := session.Run(context.Background()); !errors.Is(err, layout.ErrNotCalibrated) {
		t.Fatalf("expected ErrNotCalibrated, got %v", err)
	}
}

func TestExistingFilesAdvanceSequence(t *testing.T) {
	e := newEnv(t, 1)
	if err := os.MkdirAll(e.dest, 0o755); err != nil {
		t.Fatal(err)
	}
	for seq := 1; seq <= 2; seq++ {
		name := fmt.Sprintf("P#003_20251002_%04d.tiff", seq)
		if err := os.WriteFile(filepath.Join(e.dest, name), []byte("existing"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	capturer := &fakeCapturer{data: tiffFixture(t)}
	prompter := &scriptPrompter{cartridges: []string{"P#3"}, choices: []workflow.BatchChoice{workflow.ChoiceExit}}

	session := newSession(t, e, capturer, nil, prompter)
	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := os.Stat(filepath.Join(e.dest, "P#003_20251002_0003.tiff")); err != nil {
		t.Fatalf("expected sequence to continue at 0003: %v", err)
	}
	// The pre-existing files must be untouched.
	data, err := os.ReadFile(filepath.Join(e.dest, "P#003_20251002_0001.tiff"))
	if err != nil || string(data) != "existing" {
		t.Fatalf("existing file was modified: %q %v", data, err)
	}
}

func TestPreviewUsesIsolatedPathAtCalibrationDPI(t *testing.T) {
	e := newEnv(t, 2)

	doc, err := e.layout.Load()
	if err != nil {
		t.Fatal(err)
	}
	doc.ScanSettings.PreviewMode = layout.PreviewFullBed
	if err := e.layout.Save(doc); err != nil {
		t.Fatal(err)
	}

	capturer := &fakeCapturer{data: tiffFixture(t)}
	prompter := &scriptPrompter{
		cartridges: []string{"P#1"},
		choices:    []workflow.BatchChoice{workflow.ChoicePreview, workflow.ChoiceExit},
	}

	session := newSession(t, e, capturer, nil, prompter)
	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(prompter.previewLabels) != 1 || prompter.previewLabels[0] != "Full bed" {
		t.Fatalf("expected one full-bed preview, got %v", prompter.previewLabels)
	}
	if len(capturer.previews) != 1 {
		t.Fatalf("expected one preview capture, got %d", len(capturer.previews))
	}
	if got := capturer.previews[0].Resolution; got != e.cfg.Scanner.CalibrationDPI {
		t.Fatalf("preview resolution = %d, want %d", got, e.cfg.Scanner.CalibrationDPI)
	}
	// Main captures are unaffected by previewing.
	if len(capturer.captures) != 2 {
		t.Fatalf("expected 2 main captures, got %d", len(capturer.captures))
	}
}

func TestPreviewFailureIsNonFatal(t *testing.T) {
	e := newEnv(t, 1)

	doc, err := e.layout.Load()
	if err != nil {
		t.Fatal(err)
	}
	doc.ScanSettings.PreviewMode = layout.PreviewIndividual
	if err := e.layout.Save(doc); err != nil {
		t.Fatal(err)
	}

	capturer := &fakeCapturer{data: tiffFixture(t), previewFail: errors.New("preview backend wedged")}
	prompter := &scriptPrompter{
		cartridges: []string{"P#1"},
		choices:    []workflow.BatchChoice{workflow.ChoicePreview, workflow.ChoiceContinue, workflow.ChoiceExit},
	}

	session := newSession(t, e, capturer, nil, prompter)
	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("preview failure must not kill the session: %v", err)
	}
	if len(prompter.notes) == 0 {
		t.Fatal("expected a preview failure notice")
	}
	// The continue choice ran a second full batch.
	if len(prompter.results) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(prompter.results))
	}
}

func TestInvalidCartridgeInputReprompts(t *testing.T) {
	e := newEnv(t, 1)
	capturer := &fakeCapturer{data: tiffFixture(t)}
	prompter := &scriptPrompter{
		cartridges: []string{"12#P", "P#1000", "P#7"},
		choices:    []workflow.BatchChoice{workflow.ChoiceExit},
	}

	session := newSession(t, e, capturer, nil, prompter)
	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(prompter.notes) != 2 {
		t.Fatalf("expected 2 invalid-input notices, got %v", prompter.notes)
	}
	if _, err := os.Stat(filepath.Join(e.dest, "P#007_20251002_0001.tiff")); err != nil {
		t.Fatalf("expected scan for re-entered cartridge: %v", err)
	}
}

func TestSessionLockIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.lock")

	first, err := workflow.AcquireSessionLock(path)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	defer first.Release()

	if _, err := workflow.AcquireSessionLock(path); !errors.Is(err, workflow.ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}

	if err := first.Release(); err != nil {
		t.Fatal(err)
	}
	second, err := workflow.AcquireSessionLock(path)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	_ = second.Release()
}
