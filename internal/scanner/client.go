package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ibralyousef/polaroid-batch-scanner/internal/geometry"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/layout"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/logging"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/retry"
)

// ErrScannerUnavailable reports that the scanner could not be reached after
// the retry policy was exhausted. It is fatal for the session.
var ErrScannerUnavailable = errors.New("scanner unavailable")

// errNoDevices is retried during init: backends take a moment to enumerate a
// scanner that was just powered on.
var errNoDevices = errors.New("no scanners detected")

// Device describes one detected scanner.
type Device struct {
	Name        string
	Description string
}

// CaptureRequest parameterizes a single capture. The rectangle is in
// millimeters; it is passed to the backend through the scanner protocol's
// standard geometry options (-l, -t, -x, -y).
type CaptureRequest struct {
	Rect       geometry.Rect
	Resolution int
	Mode       layout.ColorMode
}

// Executor abstracts command execution for testability.
type Executor interface {
	Output(ctx context.Context, binary string, args []string) (stdout []byte, stderr string, err error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor for the main capture path
// (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithPreviewExecutor injects a custom executor for the preview path.
func WithPreviewExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.previewExec = exec
		}
	}
}

// WithLogger attaches a logger; nil keeps the no-op default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "scanner")
	}
}

// Client invokes the scanimage frontend.
type Client struct {
	binary         string
	device         string
	captureTimeout time.Duration
	initPolicy     retry.Policy
	exec           Executor
	previewExec    Executor
	logger         *slog.Logger
}

// New constructs a scanner client. The device may be empty to use the first
// scanner the backend detects.
func New(binary, device string, captureTimeoutSeconds int, initPolicy retry.Policy, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("scanimage binary required")
	}
	client := &Client{
		binary:         binary,
		device:         strings.TrimSpace(device),
		captureTimeout: time.Duration(captureTimeoutSeconds) * time.Second,
		initPolicy:     initPolicy,
		exec:           commandExecutor{},
		previewExec:    commandExecutor{},
		logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Init verifies the scanner is reachable, retrying transient busy conditions
// and empty device listings per the client's policy. Permanent failures (a
// missing binary, a permission error) fail on the first attempt. Either way
// the error is ErrScannerUnavailable, which is fatal for the session.
func (c *Client) Init(ctx context.Context) ([]Device, error) {
	policy := c.initPolicy
	policy.Retryable = func(err error) bool {
		return errors.Is(err, errNoDevices) || IsTransient(err)
	}

	var devices []Device
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		found, err := c.Devices(ctx)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return errNoDevices
		}
		devices = found
		return nil
	}, func(attempt int, err error) {
		c.logger.Warn("scanner busy or unavailable, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", c.initPolicy.MaxAttempts),
			slog.Duration("backoff", c.initPolicy.Backoff),
			logging.Error(err))
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrScannerUnavailable, err)
	}
	c.logger.Info("scanner ready", slog.Int("devices", len(devices)), slog.String("first", devices[0].Name))
	return devices, nil
}

// Devices lists detected scanners via scanimage -L.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	stdout, stderr, err := c.exec.Output(ctx, c.binary, []string{"-L"})
	if err != nil {
		return nil, classify(err, stderr)
	}
	return parseDeviceList(string(stdout)), nil
}

// Capture performs one full-resolution capture and returns the image bytes
// in the backend's TIFF encoding. Output-format conversion happens later in
// the encode package.
func (c *Client) Capture(ctx context.Context, req CaptureRequest) ([]byte, error) {
	return c.run(ctx, c.exec, req)
}

// Preview performs a capture over the isolated preview path. Geometry may
// cover the full bed or a single position; resolution is typically the
// calibration DPI.
func (c *Client) Preview(ctx context.Context, req CaptureRequest) ([]byte, error) {
	return c.run(ctx, c.previewExec, req)
}

func (c *Client) run(ctx context.Context, exec Executor, req CaptureRequest) ([]byte, error) {
	if req.Resolution <= 0 {
		return nil, fmt.Errorf("capture resolution must be positive, got %d", req.Resolution)
	}
	mode := req.Mode
	if mode == "" {
		mode = layout.ModeColor
	}

	if c.captureTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.captureTimeout)
		defer cancel()
	}

	args := []string{"--format=tiff", "--resolution", strconv.Itoa(req.Resolution), "--mode", string(mode)}
	if c.device != "" {
		args = append(args, "-d", c.device)
	}
	if req.Rect.WidthMM > 0 && req.Rect.HeightMM > 0 {
		args = append(args,
			"-l", formatMM(req.Rect.LeftMM),
			"-t", formatMM(req.Rect.TopMM),
			"-x", formatMM(req.Rect.WidthMM),
			"-y", formatMM(req.Rect.HeightMM),
		)
	}

	started := time.Now()
	stdout, stderr, err := exec.Output(ctx, c.binary, args)
	if err != nil {
		return nil, classify(err, stderr)
	}
	if len(stdout) == 0 {
		return nil, errors.New("scanimage produced no image data")
	}
	c.logger.Debug("capture complete",
		slog.Int("resolution", req.Resolution),
		slog.String("mode", string(mode)),
		slog.Int("bytes", len(stdout)),
		slog.Duration("elapsed", time.Since(started)))
	return stdout, nil
}

func formatMM(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// classify folds the backend's stderr into the returned error so transient
// busy conditions stay recognizable for the retry policy.
func classify(err error, stderr string) error {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, stderr)
}

// IsTransient reports whether the error looks like a temporary device
// condition worth retrying: a busy device or the transient invalid-argument
// state some backends report right after USB reconnects.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "busy") ||
		strings.Contains(msg, "invalid argument") ||
		strings.Contains(msg, "error during device i/o")
}

func parseDeviceList(output string) []Device {
	var devices []Device
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		// scanimage -L lines look like:
		// device `genesys:libusb:001:004' is a Canon LiDE 400 flatbed scanner
		if !strings.HasPrefix(line, "device ") {
			continue
		}
		rest := strings.TrimPrefix(line, "device ")
		start := strings.IndexAny(rest, "`'")
		if start < 0 {
			continue
		}
		end := strings.IndexAny(rest[start+1:], "'`")
		if end < 0 {
			continue
		}
		name := rest[start+1 : start+1+end]
		desc := strings.TrimSpace(strings.TrimPrefix(rest[start+1+end+1:], " is a "))
		devices = append(devices, Device{Name: name, Description: desc})
	}
	return devices
}
