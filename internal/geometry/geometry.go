package geometry

import (
	"errors"
	"fmt"
	"math"
)

// MMPerInch is the millimeter/inch conversion constant used for all
// resolution math.
const MMPerInch = 25.4

// ErrOutOfBounds reports a rectangle that does not fit on the scanner bed.
var ErrOutOfBounds = errors.New("rectangle out of scanner bed bounds")

// Bed describes the scanner's physical capture area in millimeters.
type Bed struct {
	WidthMM  float64 `json:"width_mm"`
	HeightMM float64 `json:"height_mm"`
}

// Rect is a scan area in millimeter space. The ID and Label identify the
// photo position; order within a slice of Rects is display and scan order.
type Rect struct {
	ID       int     `json:"id"`
	Label    string  `json:"label"`
	LeftMM   float64 `json:"left_mm"`
	TopMM    float64 `json:"top_mm"`
	WidthMM  float64 `json:"width_mm"`
	HeightMM float64 `json:"height_mm"`
}

// PixelRect is a scan area in pixel space at a particular resolution.
type PixelRect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// MMToPixels converts a millimeter length to pixels at the given DPI.
func MMToPixels(mm float64, dpi int) float64 {
	return mm * float64(dpi) / MMPerInch
}

// PixelsToMM converts a pixel length to millimeters at the given DPI.
func PixelsToMM(px float64, dpi int) float64 {
	return px / float64(dpi) * MMPerInch
}

// ToPixels converts the rectangle to pixel space at the given DPI.
func (r Rect) ToPixels(dpi int) PixelRect {
	return PixelRect{
		Left:   MMToPixels(r.LeftMM, dpi),
		Top:    MMToPixels(r.TopMM, dpi),
		Width:  MMToPixels(r.WidthMM, dpi),
		Height: MMToPixels(r.HeightMM, dpi),
	}
}

// ToMM converts the pixel rectangle back to millimeter space at the given DPI.
// The ID and Label of the result are zero values; callers carry those
// separately.
func (p PixelRect) ToMM(dpi int) Rect {
	return Rect{
		LeftMM:   PixelsToMM(p.Left, dpi),
		TopMM:    PixelsToMM(p.Top, dpi),
		WidthMM:  PixelsToMM(p.Width, dpi),
		HeightMM: PixelsToMM(p.Height, dpi),
	}
}

// Contains reports whether the millimeter point (x, y) lies inside the
// rectangle, edges inclusive.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.LeftMM && x <= r.LeftMM+r.WidthMM &&
		y >= r.TopMM && y <= r.TopMM+r.HeightMM
}

// Overlaps reports whether the two rectangles intersect with positive area.
func (r Rect) Overlaps(other Rect) bool {
	return r.LeftMM < other.LeftMM+other.WidthMM && r.LeftMM+r.WidthMM > other.LeftMM &&
		r.TopMM < other.TopMM+other.HeightMM && r.TopMM+r.HeightMM > other.TopMM
}

// Validate checks the rectangle invariants: every field non-negative and the
// rectangle fully inside the bed. A failing rectangle is reported with
// ErrOutOfBounds so callers can reject the edit and keep prior state.
func (r Rect) Validate(bed Bed) error {
	if r.LeftMM < 0 || r.TopMM < 0 || r.WidthMM < 0 || r.HeightMM < 0 {
		return fmt.Errorf("%w: negative dimension in %s", ErrOutOfBounds, r.describe())
	}
	if r.LeftMM+r.WidthMM > bed.WidthMM {
		return fmt.Errorf("%w: %s exceeds bed width %.1fmm", ErrOutOfBounds, r.describe(), bed.WidthMM)
	}
	if r.TopMM+r.HeightMM > bed.HeightMM {
		return fmt.Errorf("%w: %s exceeds bed height %.1fmm", ErrOutOfBounds, r.describe(), bed.HeightMM)
	}
	return nil
}

// Round returns a copy with all millimeter fields rounded to two decimals,
// matching the precision persisted in calibration files.
func (r Rect) Round() Rect {
	r.LeftMM = round2(r.LeftMM)
	r.TopMM = round2(r.TopMM)
	r.WidthMM = round2(r.WidthMM)
	r.HeightMM = round2(r.HeightMM)
	return r
}

func (r Rect) describe() string {
	return fmt.Sprintf("rect %d (%.1f,%.1f %.1fx%.1fmm)", r.ID, r.LeftMM, r.TopMM, r.WidthMM, r.HeightMM)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
