package workflow

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ibralyousef/polaroid-batch-scanner/internal/config"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/encode"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/geometry"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/history"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/layout"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/logging"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/naming"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/retry"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/scanner"
)

// State identifies where a session is in its lifecycle.
type State string

const (
	StateIdle              State = "idle"
	StateCalibrating       State = "calibrating"
	StateAwaitingCartridge State = "awaiting-cartridge"
	StateScanning          State = "scanning"
	StateBatchComplete     State = "batch-complete"
	StatePreviewing        State = "previewing"
)

// BatchChoice is the operator's decision after a batch.
type BatchChoice int

const (
	ChoiceContinue BatchChoice = iota
	ChoicePreview
	ChoiceRecalibrate
	ChoiceExit
)

// Capturer is the hardware surface the session needs.
type Capturer interface {
	Capture(ctx context.Context, req scanner.CaptureRequest) ([]byte, error)
	Preview(ctx context.Context, req scanner.CaptureRequest) ([]byte, error)
}

// Historian journals completed scans. May be nil to disable journaling.
type Historian interface {
	Append(ctx context.Context, rec history.Record) (int64, error)
}

// Calibrator runs an interactive calibration and persists the result.
type Calibrator interface {
	Calibrate(ctx context.Context) error
}

// Prompter is the operator-facing side of the session.
type Prompter interface {
	// AskCartridge reads raw cartridge input, e.g. "P#" or "P#12".
	AskCartridge() (string, error)
	// ConfirmSuggestion shows the global scan findings and the suggested
	// cartridge; a decline loops back to AskCartridge.
	ConfirmSuggestion(c naming.Cartridge, findings []naming.Finding) (bool, error)
	// AddPrefixFolder asks for a destination folder for an unmapped prefix.
	// ok=false means the operator declined.
	AddPrefixFolder(prefix string) (folder string, ok bool, err error)
	// AfterBatch reports the batch outcome and reads the next action.
	AfterBatch(result BatchResult) (BatchChoice, error)
	// ShowPreview displays a preview capture.
	ShowPreview(img image.Image, label string)
	// Notify shows an informational message.
	Notify(message string)
}

// Target names where a batch's files go: a cartridge in its prefix folder,
// or generic photoN files in the fallback output directory. Generic is what
// empty cartridge input and a declined prefix mapping resolve to.
type Target struct {
	Cartridge naming.Cartridge
	Generic   bool
}

func (t Target) String() string {
	if t.Generic {
		return "generic"
	}
	return t.Cartridge.String()
}

// PhotoResult is one successfully written photo.
type PhotoResult struct {
	Position int
	Label    string
	Filename string
	Path     string
	Bytes    int
}

// BatchResult reports one pass over the calibrated positions. When Err is
// set, FailedPosition names the position that exhausted its retries and
// Completed lists everything written before the abort.
type BatchResult struct {
	Target         Target
	Date           time.Time
	Completed      []PhotoResult
	Skipped        []string
	FailedPosition int
	Err            error
}

// Deps are the collaborators a session needs.
type Deps struct {
	Layout     *layout.Store
	Prefixes   *naming.PrefixStore
	Capturer   Capturer
	Historian  Historian
	Calibrator Calibrator
	Prompter   Prompter
	Logger     *slog.Logger
	Clock      func() time.Time
}

// Session runs one operator's scanning workflow.
type Session struct {
	cfg    *config.Config
	deps   Deps
	logger *slog.Logger
	policy retry.Policy
	clock  func() time.Time
	id     string

	state  State
	layout layout.Layout
}

// NewSession wires a session. The retry policy comes from the scanner config.
func NewSession(cfg *config.Config, deps Deps) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if deps.Layout == nil || deps.Prefixes == nil || deps.Capturer == nil || deps.Prompter == nil {
		return nil, errors.New("layout store, prefix store, capturer, and prompter are required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Session{
		cfg:    cfg,
		deps:   deps,
		logger: logging.NewComponentLogger(deps.Logger, "workflow"),
		policy: retry.Policy{
			MaxAttempts: cfg.Scanner.InitAttempts,
			Backoff:     time.Duration(cfg.Scanner.InitBackoffSeconds) * time.Second,
		},
		clock: clock,
		id:    uuid.NewString(),
		state: StateIdle,
	}, nil
}

// ID returns the session identifier used in the history journal.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

func (s *Session) setState(next State) {
	if s.state == next {
		return
	}
	s.logger.Debug("state transition", slog.String("from", string(s.state)), slog.String("to", string(next)))
	s.state = next
}

// Run drives the session until the operator exits or an unrecoverable error
// occurs. Calibrated positions must already exist; callers should offer
// calibration when this fails with layout.ErrNotCalibrated.
func (s *Session) Run(ctx context.Context) error {
	doc, err := s.deps.Layout.RequirePositions()
	if err != nil {
		return err
	}
	s.layout = doc

	s.setState(StateAwaitingCartridge)
	target, err := s.resolveTarget()
	if err != nil {
		s.setState(StateIdle)
		return err
	}

	for {
		s.setState(StateScanning)
		result := s.ScanBatch(ctx, target)
		s.setState(StateBatchComplete)
		if result.Err != nil {
			s.logger.Error("batch aborted",
				slog.Int("failed_position", result.FailedPosition),
				slog.Int("completed", len(result.Completed)),
				logging.Error(result.Err))
		}

		done, err := s.afterBatchLoop(ctx, result)
		if err != nil {
			s.setState(StateIdle)
			return err
		}
		if done {
			s.setState(StateIdle)
			return nil
		}
	}
}

// afterBatchLoop handles the operator choices that keep the session in
// BatchComplete. It returns done=true on exit and done=false when the next
// choice is another scan pass.
func (s *Session) afterBatchLoop(ctx context.Context, result BatchResult) (bool, error) {
	for {
		choice, err := s.deps.Prompter.AfterBatch(result)
		if err != nil {
			return false, err
		}
		switch choice {
		case ChoiceContinue:
			return false, nil
		case ChoiceExit:
			return true, nil
		case ChoicePreview:
			s.setState(StatePreviewing)
			if err := s.preview(ctx); err != nil {
				s.deps.Prompter.Notify(fmt.Sprintf("Preview failed: %v. The scanner may need a moment; scanning is unaffected.", err))
			}
			s.setState(StateBatchComplete)
		case ChoiceRecalibrate:
			if s.deps.Calibrator == nil {
				s.deps.Prompter.Notify("Calibration is not available in this session.")
				continue
			}
			s.setState(StateCalibrating)
			if err := s.deps.Calibrator.Calibrate(ctx); err != nil {
				s.deps.Prompter.Notify(fmt.Sprintf("Calibration failed: %v", err))
			} else if doc, err := s.deps.Layout.RequirePositions(); err == nil {
				s.layout = doc
			}
			s.setState(StateBatchComplete)
		}
	}
}

// resolveTarget loops until the operator names a usable cartridge. Bare
// input like "P#" triggers the global suggestion scan; empty input selects
// generic photoN naming, as does declining to map a new prefix.
func (s *Session) resolveTarget() (Target, error) {
	for {
		input, err := s.deps.Prompter.AskCartridge()
		if err != nil {
			return Target{}, err
		}
		if strings.TrimSpace(input) == "" {
			return s.genericTarget("Using generic photo names"), nil
		}

		cartridge, hasNumber, err := naming.ResolveCartridge(input)
		if err != nil {
			s.deps.Prompter.Notify(fmt.Sprintf("Invalid cartridge %q: use a prefix letter, #, and an optional 1-999 number (for example P#12 or P#), or press Enter for generic names.", input))
			continue
		}

		prefixes, mapped, err := s.ensureDestination(cartridge.Prefix)
		if err != nil {
			return Target{}, err
		}
		if !mapped {
			return s.genericTarget(fmt.Sprintf("Prefix %s left unmapped; using generic photo names", cartridge.Prefix)), nil
		}
		registry := naming.NewRegistry(prefixes)

		if !hasNumber {
			suggested, findings, err := registry.SuggestNextCartridge(cartridge.Prefix)
			if err != nil {
				return Target{}, err
			}
			ok, err := s.deps.Prompter.ConfirmSuggestion(suggested, findings)
			if err != nil {
				return Target{}, err
			}
			if !ok {
				continue
			}
			cartridge = suggested
		}

		s.logger.Info("cartridge resolved", slog.String("cartridge", cartridge.String()))
		return Target{Cartridge: cartridge}, nil
	}
}

func (s *Session) genericTarget(reason string) Target {
	s.deps.Prompter.Notify(fmt.Sprintf("%s; files go to %s.", reason, s.cfg.Paths.OutputDir))
	s.logger.Info("generic naming selected", slog.String("output_dir", s.cfg.Paths.OutputDir))
	return Target{Generic: true}
}

// ensureDestination returns the prefix map, offering to add a folder mapping
// when the prefix has none. mapped=false means the operator declined the
// mapping; the caller falls back to generic output.
func (s *Session) ensureDestination(prefix string) (prefixes naming.PrefixMap, mapped bool, err error) {
	prefixes, err = s.deps.Prefixes.Load()
	if err != nil {
		return nil, false, err
	}
	if _, err := prefixes.Folder(prefix); err == nil {
		return prefixes, true, nil
	} else if !errors.Is(err, naming.ErrNoDestination) {
		return nil, false, err
	}

	folder, ok, err := s.deps.Prompter.AddPrefixFolder(prefix)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	prefixes, err = s.deps.Prefixes.Add(prefix, folder)
	if err != nil {
		return nil, false, err
	}
	return prefixes, true, nil
}

// ScanBatch captures every calibrated position once. A capture failure is
// retried per the policy; once retries are exhausted the batch aborts and
// the result reports what was written.
func (s *Session) ScanBatch(ctx context.Context, target Target) BatchResult {
	result := BatchResult{Target: target, Date: s.clock()}

	var registry *naming.Registry
	destination := s.cfg.Paths.OutputDir
	if !target.Generic {
		prefixes, err := s.deps.Prefixes.Load()
		if err != nil {
			result.Err = err
			return result
		}
		registry = naming.NewRegistry(prefixes)
		destination, err = registry.Destination(target.Cartridge)
		if err != nil {
			result.Err = err
			return result
		}
	}

	settings := s.layout.ScanSettings
	for _, rect := range s.layout.Positions {
		data, err := s.captureWithRetry(ctx, rect, settings)
		if err != nil {
			result.FailedPosition = rect.ID
			result.Err = fmt.Errorf("position %d (%s): %w", rect.ID, rect.Label, err)
			return result
		}

		payload, err := s.encodeCapture(data, settings)
		if err != nil {
			result.FailedPosition = rect.ID
			result.Err = fmt.Errorf("position %d (%s): %w", rect.ID, rect.Label, err)
			return result
		}

		var photo PhotoResult
		var skipped []string
		if target.Generic {
			photo, skipped, err = s.writeGeneric(ctx, target, destination, rect, settings, payload)
		} else {
			photo, skipped, err = s.writeNext(ctx, registry, target, destination, rect, settings, payload, result.Date)
		}
		result.Skipped = append(result.Skipped, skipped...)
		if err != nil {
			result.FailedPosition = rect.ID
			result.Err = fmt.Errorf("position %d (%s): %w", rect.ID, rect.Label, err)
			return result
		}
		if photo.Filename != "" {
			result.Completed = append(result.Completed, photo)
		}
	}
	return result
}

func (s *Session) captureWithRetry(ctx context.Context, rect geometry.Rect, settings layout.Settings) ([]byte, error) {
	var data []byte
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		captured, err := s.deps.Capturer.Capture(ctx, scanner.CaptureRequest{
			Rect:       rect,
			Resolution: settings.Resolution,
			Mode:       settings.Mode,
		})
		if err != nil {
			return err
		}
		data = captured
		return nil
	}, func(attempt int, err error) {
		s.logger.Warn("capture failed, retrying",
			slog.Int("position", rect.ID),
			slog.Int("attempt", attempt),
			logging.Error(err))
	})
	return data, err
}

func (s *Session) encodeCapture(data []byte, settings layout.Settings) ([]byte, error) {
	img, err := encode.Decode(data)
	if err != nil {
		return nil, err
	}
	return encode.Bytes(encode.ApplyMode(img, settings.Mode), settings.Format)
}

// writeNext derives the next sequence number from the destination folder and
// writes the photo. An existing file is never overwritten: the collision is
// recorded as skipped and the next sequence number is tried.
func (s *Session) writeNext(ctx context.Context, registry *naming.Registry, target Target,
	destination string, rect geometry.Rect, settings layout.Settings, payload []byte, date time.Time) (PhotoResult, []string, error) {

	var skipped []string
	for attempt := 0; attempt < 3; attempt++ {
		seq, err := registry.NextSequence(target.Cartridge, date)
		if err != nil {
			return PhotoResult{}, skipped, err
		}
		filename := naming.BuildFilename(target.Cartridge, date, seq, settings.Format.Extension())
		path := filepath.Join(destination, filename)

		err = naming.ReserveAndWrite(path, payload)
		if errors.Is(err, naming.ErrFileExists) {
			s.logger.Warn("file already exists, skipping name", slog.String("filename", filename))
			skipped = append(skipped, filename)
			continue
		}
		if err != nil {
			return PhotoResult{}, skipped, err
		}

		photo := PhotoResult{
			Position: rect.ID,
			Label:    rect.Label,
			Filename: filename,
			Path:     path,
			Bytes:    len(payload),
		}
		s.journal(ctx, target, photo, settings)
		s.logger.Info("photo written",
			slog.Int("position", rect.ID),
			slog.String("filename", filename),
			slog.Int("bytes", photo.Bytes))
		return photo, skipped, nil
	}
	return PhotoResult{}, skipped, fmt.Errorf("could not reserve a free filename for %s after repeated collisions", target.Cartridge)
}

// writeGeneric writes photoN into the fallback output directory. The name is
// fixed per position, so a collision skips the position instead of advancing
// a sequence; the existing file stays untouched.
func (s *Session) writeGeneric(ctx context.Context, target Target, destination string,
	rect geometry.Rect, settings layout.Settings, payload []byte) (PhotoResult, []string, error) {

	filename := naming.GenericFilename(rect.ID, settings.Format.Extension())
	path := filepath.Join(destination, filename)

	err := naming.ReserveAndWrite(path, payload)
	if errors.Is(err, naming.ErrFileExists) {
		s.logger.Warn("file already exists, skipping position", slog.String("filename", filename))
		return PhotoResult{}, []string{filename}, nil
	}
	if err != nil {
		return PhotoResult{}, nil, err
	}

	photo := PhotoResult{
		Position: rect.ID,
		Label:    rect.Label,
		Filename: filename,
		Path:     path,
		Bytes:    len(payload),
	}
	s.journal(ctx, target, photo, settings)
	s.logger.Info("photo written",
		slog.Int("position", rect.ID),
		slog.String("filename", filename),
		slog.Int("bytes", photo.Bytes))
	return photo, nil, nil
}

func (s *Session) journal(ctx context.Context, target Target, photo PhotoResult, settings layout.Settings) {
	if s.deps.Historian == nil {
		return
	}
	_, err := s.deps.Historian.Append(ctx, history.Record{
		SessionID:  s.id,
		Cartridge:  target.String(),
		Filename:   photo.Filename,
		Path:       photo.Path,
		Position:   photo.Position,
		Resolution: settings.Resolution,
		Mode:       string(settings.Mode),
		Format:     string(settings.Format),
		Bytes:      int64(photo.Bytes),
	})
	if err != nil {
		// Journaling is advisory; the photo on disk is what matters.
		s.logger.Warn("history journal write failed", logging.Error(err))
	}
}

// preview captures per the configured preview mode over the isolated preview
// path and hands the images to the prompter.
func (s *Session) preview(ctx context.Context) error {
	settings := s.layout.ScanSettings
	dpi := s.cfg.Scanner.CalibrationDPI

	switch settings.PreviewMode {
	case layout.PreviewOff:
		s.deps.Prompter.Notify("Preview is disabled in settings.")
		return nil
	case layout.PreviewFullBed:
		img, err := s.previewCapture(ctx, geometry.Rect{
			WidthMM:  s.layout.ScannerBed.WidthMM,
			HeightMM: s.layout.ScannerBed.HeightMM,
		}, dpi)
		if err != nil {
			return err
		}
		s.deps.Prompter.ShowPreview(img, "Full bed")
		return nil
	case layout.PreviewIndividual:
		for _, rect := range s.layout.Positions {
			img, err := s.previewCapture(ctx, rect, dpi)
			if err != nil {
				return err
			}
			s.deps.Prompter.ShowPreview(img, rect.Label)
		}
		return nil
	default:
		return fmt.Errorf("unknown preview mode %q", settings.PreviewMode)
	}
}

func (s *Session) previewCapture(ctx context.Context, rect geometry.Rect, dpi int) (image.Image, error) {
	data, err := s.deps.Capturer.Preview(ctx, scanner.CaptureRequest{
		Rect:       rect,
		Resolution: dpi,
		Mode:       layout.ModeColor,
	})
	if err != nil {
		return nil, err
	}
	return encode.Decode(data)
}
