// Package calibrate models an interactive calibration session as an explicit
// state machine over discrete pointer events. It owns no rendering: a UI
// adapter feeds it pointer positions in bed millimeters and reads back the
// rectangle set to draw.
package calibrate

import (
	"errors"
	"fmt"
	"math"

	"github.com/ibralyousef/polaroid-batch-scanner/internal/geometry"
)

// Mode selects how new rectangles are created.
type Mode int

const (
	// ModePolaroid places fixed-size rectangles; a drag only positions them.
	ModePolaroid Mode = iota
	// ModeCustom rubber-band draws rectangles of arbitrary size.
	ModeCustom
)

// Default polaroid frame, 3.5 by 4.25 inches.
const (
	DefaultPolaroidWidthMM  = 88.9
	DefaultPolaroidHeightMM = 107.95
)

// MaxPositions caps how many rectangles one session may hold.
const MaxPositions = 20

// minRectMM is the smallest committable rectangle edge.
const minRectMM = 5.0

// handleToleranceMM is the pick radius around resize handles.
const handleToleranceMM = 3.0

var (
	ErrNoPositions   = errors.New("no positions placed")
	ErrTooManyRects  = errors.New("too many positions")
	ErrCountMismatch = errors.New("wrong number of positions")
	ErrBadFixedSize  = errors.New("polaroid size must be positive")
	ErrBadBed        = errors.New("scan bed dimensions must be positive")
)

// Point is a pointer position in bed millimeters.
type Point struct {
	X float64
	Y float64
}

// Handle identifies which part of a rectangle a drag grabbed.
type Handle int

const (
	handleNone Handle = iota
	handleBody
	handleNW
	handleNE
	handleSW
	handleSE
	handleN
	handleS
	handleW
	handleE
)

type dragKind int

const (
	dragNone dragKind = iota
	dragDraw
	dragMove
	dragResize
)

type dragState struct {
	kind   dragKind
	index  int
	handle Handle
	anchor Point
	orig   geometry.Rect
}

// Params configures a session. A MaxRects above zero is a commitment, not
// just a cap: Save refuses a set whose size differs from it.
type Params struct {
	Bed           geometry.Bed
	Mode          Mode
	FixedWidthMM  float64
	FixedHeightMM float64
	MaxRects      int
}

// Session holds the in-progress rectangle set. All coordinates are bed
// millimeters; clamping keeps every rectangle inside the bed throughout a
// drag, so a committed set can only fail validation if the bed itself is
// misconfigured.
type Session struct {
	bed      geometry.Bed
	mode     Mode
	fixedW   float64
	fixedH   float64
	maxRects int
	required int

	rects    []geometry.Rect
	original []geometry.Rect
	selected int
	drag     *dragState
	dirty    bool
}

// NewSession starts a calibration session seeded with any previously
// calibrated positions.
func NewSession(params Params, existing []geometry.Rect) (*Session, error) {
	if params.Bed.WidthMM <= 0 || params.Bed.HeightMM <= 0 {
		return nil, ErrBadBed
	}
	maxRects := params.MaxRects
	if maxRects <= 0 || maxRects > MaxPositions {
		maxRects = MaxPositions
	}
	fixedW, fixedH := params.FixedWidthMM, params.FixedHeightMM
	if params.Mode == ModePolaroid {
		if fixedW == 0 && fixedH == 0 {
			fixedW, fixedH = DefaultPolaroidWidthMM, DefaultPolaroidHeightMM
		}
		if fixedW <= 0 || fixedH <= 0 {
			return nil, ErrBadFixedSize
		}
		if fixedW > params.Bed.WidthMM || fixedH > params.Bed.HeightMM {
			return nil, fmt.Errorf("polaroid size %gx%gmm exceeds bed %gx%gmm",
				fixedW, fixedH, params.Bed.WidthMM, params.Bed.HeightMM)
		}
	}

	required := 0
	if params.MaxRects > 0 {
		required = maxRects
	}

	s := &Session{
		bed:      params.Bed,
		mode:     params.Mode,
		fixedW:   fixedW,
		fixedH:   fixedH,
		maxRects: maxRects,
		required: required,
		rects:    append([]geometry.Rect(nil), existing...),
		original: append([]geometry.Rect(nil), existing...),
		selected: -1,
	}
	s.renumber()
	return s, nil
}

// Bed returns the session's scan bed.
func (s *Session) Bed() geometry.Bed { return s.bed }

// Mode returns the placement mode.
func (s *Session) Mode() Mode { return s.mode }

// Rects returns a copy of the current rectangle set in display order.
func (s *Session) Rects() []geometry.Rect {
	return append([]geometry.Rect(nil), s.rects...)
}

// Selected returns the currently selected rectangle, if any.
func (s *Session) Selected() (geometry.Rect, bool) {
	if s.selected < 0 || s.selected >= len(s.rects) {
		return geometry.Rect{}, false
	}
	return s.rects[s.selected], true
}

// Dirty reports whether the session has uncommitted changes.
func (s *Session) Dirty() bool { return s.dirty }

// PointerDown begins a gesture: a resize if a handle of the topmost
// rectangle under the pointer was grabbed, a move if its body was, or a new
// rectangle otherwise.
func (s *Session) PointerDown(p Point) {
	if s.drag != nil {
		return
	}
	if idx, handle := s.hitTest(p); idx >= 0 {
		s.selected = idx
		kind := dragMove
		if handle != handleBody {
			kind = dragResize
		}
		s.drag = &dragState{kind: kind, index: idx, handle: handle, anchor: p, orig: s.rects[idx]}
		return
	}
	if len(s.rects) >= s.maxRects {
		return
	}
	s.drag = &dragState{kind: dragDraw, anchor: p}
	if s.mode == ModePolaroid {
		rect := s.clampRect(geometry.Rect{
			LeftMM:   p.X - s.fixedW/2,
			TopMM:    p.Y - s.fixedH/2,
			WidthMM:  s.fixedW,
			HeightMM: s.fixedH,
		})
		s.rects = append(s.rects, rect)
	} else {
		s.rects = append(s.rects, s.clampRect(geometry.Rect{LeftMM: p.X, TopMM: p.Y}))
	}
	s.drag.index = len(s.rects) - 1
	s.selected = s.drag.index
}

// PointerMove updates the gesture in progress.
func (s *Session) PointerMove(p Point) {
	if s.drag == nil {
		return
	}
	switch s.drag.kind {
	case dragDraw:
		if s.mode == ModePolaroid {
			s.rects[s.drag.index] = s.clampRect(geometry.Rect{
				LeftMM:   p.X - s.fixedW/2,
				TopMM:    p.Y - s.fixedH/2,
				WidthMM:  s.fixedW,
				HeightMM: s.fixedH,
			})
		} else {
			s.rects[s.drag.index] = s.clampRect(rectFromCorners(s.drag.anchor, p))
		}
	case dragMove:
		moved := s.drag.orig
		moved.LeftMM += p.X - s.drag.anchor.X
		moved.TopMM += p.Y - s.drag.anchor.Y
		s.rects[s.drag.index] = s.clampRect(moved)
	case dragResize:
		s.rects[s.drag.index] = s.clampRect(s.resized(p))
	}
}

// PointerUp commits the gesture. A drawn rectangle below the minimum size is
// discarded and the prior set restored.
func (s *Session) PointerUp(p Point) {
	if s.drag == nil {
		return
	}
	s.PointerMove(p)
	drag := s.drag
	s.drag = nil

	rect := s.rects[drag.index]
	if rect.WidthMM < minRectMM || rect.HeightMM < minRectMM {
		if drag.kind == dragDraw {
			s.rects = append(s.rects[:drag.index], s.rects[drag.index+1:]...)
			s.selected = -1
		} else {
			s.rects[drag.index] = drag.orig
		}
		s.renumber()
		return
	}

	s.rects[drag.index] = rect.Round()
	s.renumber()
	s.dirty = true
}

// Delete removes the selected rectangle, or the most recently created one if
// none is selected. It reports whether anything was removed.
func (s *Session) Delete() bool {
	if len(s.rects) == 0 || s.drag != nil {
		return false
	}
	idx := s.selected
	if idx < 0 {
		idx = len(s.rects) - 1
	}
	s.rects = append(s.rects[:idx], s.rects[idx+1:]...)
	s.selected = -1
	s.renumber()
	s.dirty = true
	return true
}

// Save validates the set and returns it for persistence. Out-of-bounds
// rectangles are a hard error; overlapping pairs come back as warnings since
// overlap is sometimes intentional (bleed margins around small prints).
func (s *Session) Save() ([]geometry.Rect, []string, error) {
	if len(s.rects) == 0 {
		return nil, nil, ErrNoPositions
	}
	if len(s.rects) > s.maxRects {
		return nil, nil, fmt.Errorf("%w: %d placed, limit %d", ErrTooManyRects, len(s.rects), s.maxRects)
	}
	if s.required > 0 && len(s.rects) != s.required {
		return nil, nil, fmt.Errorf("%w: %d placed, %d required", ErrCountMismatch, len(s.rects), s.required)
	}
	for _, rect := range s.rects {
		if err := rect.Validate(s.bed); err != nil {
			return nil, nil, fmt.Errorf("position %d: %w", rect.ID, err)
		}
	}
	var warnings []string
	for i := 0; i < len(s.rects); i++ {
		for j := i + 1; j < len(s.rects); j++ {
			if s.rects[i].Overlaps(s.rects[j]) {
				warnings = append(warnings,
					fmt.Sprintf("positions %d and %d overlap", s.rects[i].ID, s.rects[j].ID))
			}
		}
	}
	s.original = append([]geometry.Rect(nil), s.rects...)
	s.dirty = false
	return s.Rects(), warnings, nil
}

// Cancel discards every change made in the session and restores the set the
// session started with.
func (s *Session) Cancel() []geometry.Rect {
	s.rects = append([]geometry.Rect(nil), s.original...)
	s.selected = -1
	s.drag = nil
	s.dirty = false
	return s.Rects()
}

// hitTest finds the topmost rectangle under p, preferring resize handles
// over body hits. Topmost means last in display order.
func (s *Session) hitTest(p Point) (int, Handle) {
	for i := len(s.rects) - 1; i >= 0; i-- {
		if h := handleAt(s.rects[i], p, s.mode); h != handleNone {
			return i, h
		}
	}
	for i := len(s.rects) - 1; i >= 0; i-- {
		if s.rects[i].Contains(p.X, p.Y) {
			return i, handleBody
		}
	}
	return -1, handleNone
}

func handleAt(r geometry.Rect, p Point, mode Mode) Handle {
	near := func(x, y float64) bool {
		return math.Abs(p.X-x) <= handleToleranceMM && math.Abs(p.Y-y) <= handleToleranceMM
	}
	right := r.LeftMM + r.WidthMM
	bottom := r.TopMM + r.HeightMM
	midX := r.LeftMM + r.WidthMM/2
	midY := r.TopMM + r.HeightMM/2

	switch {
	case near(r.LeftMM, r.TopMM):
		return handleNW
	case near(right, r.TopMM):
		return handleNE
	case near(r.LeftMM, bottom):
		return handleSW
	case near(right, bottom):
		return handleSE
	}
	// Polaroid frames resize only from corners so the aspect stays locked.
	if mode == ModePolaroid {
		return handleNone
	}
	switch {
	case near(midX, r.TopMM):
		return handleN
	case near(midX, bottom):
		return handleS
	case near(r.LeftMM, midY):
		return handleW
	case near(right, midY):
		return handleE
	}
	return handleNone
}

// resized applies the drag's handle to its original rectangle. In polaroid
// mode the aspect ratio of the fixed frame is preserved.
func (s *Session) resized(p Point) geometry.Rect {
	orig := s.drag.orig
	dx := p.X - s.drag.anchor.X
	dy := p.Y - s.drag.anchor.Y
	r := orig

	switch s.drag.handle {
	case handleNW:
		r.LeftMM += dx
		r.TopMM += dy
		r.WidthMM -= dx
		r.HeightMM -= dy
	case handleNE:
		r.TopMM += dy
		r.WidthMM += dx
		r.HeightMM -= dy
	case handleSW:
		r.LeftMM += dx
		r.WidthMM -= dx
		r.HeightMM += dy
	case handleSE:
		r.WidthMM += dx
		r.HeightMM += dy
	case handleN:
		r.TopMM += dy
		r.HeightMM -= dy
	case handleS:
		r.HeightMM += dy
	case handleW:
		r.LeftMM += dx
		r.WidthMM -= dx
	case handleE:
		r.WidthMM += dx
	}

	if r.WidthMM < minRectMM {
		if s.drag.handle == handleNW || s.drag.handle == handleSW || s.drag.handle == handleW {
			r.LeftMM = orig.LeftMM + orig.WidthMM - minRectMM
		}
		r.WidthMM = minRectMM
	}
	if r.HeightMM < minRectMM {
		if s.drag.handle == handleNW || s.drag.handle == handleNE || s.drag.handle == handleN {
			r.TopMM = orig.TopMM + orig.HeightMM - minRectMM
		}
		r.HeightMM = minRectMM
	}

	if s.mode == ModePolaroid {
		aspect := s.fixedH / s.fixedW
		r.HeightMM = r.WidthMM * aspect
		if s.drag.handle == handleNW || s.drag.handle == handleNE {
			r.TopMM = orig.TopMM + orig.HeightMM - r.HeightMM
		}
	}
	return r
}

func rectFromCorners(a, b Point) geometry.Rect {
	return geometry.Rect{
		LeftMM:   math.Min(a.X, b.X),
		TopMM:    math.Min(a.Y, b.Y),
		WidthMM:  math.Abs(b.X - a.X),
		HeightMM: math.Abs(b.Y - a.Y),
	}
}

// clampRect keeps the rectangle inside the bed without changing its size
// unless the size itself exceeds the bed.
func (s *Session) clampRect(r geometry.Rect) geometry.Rect {
	if r.WidthMM > s.bed.WidthMM {
		r.WidthMM = s.bed.WidthMM
	}
	if r.HeightMM > s.bed.HeightMM {
		r.HeightMM = s.bed.HeightMM
	}
	if r.LeftMM < 0 {
		r.LeftMM = 0
	}
	if r.TopMM < 0 {
		r.TopMM = 0
	}
	if r.LeftMM+r.WidthMM > s.bed.WidthMM {
		r.LeftMM = s.bed.WidthMM - r.WidthMM
	}
	if r.TopMM+r.HeightMM > s.bed.HeightMM {
		r.TopMM = s.bed.HeightMM - r.HeightMM
	}
	return r
}

// renumber reassigns ids and labels to match display order.
func (s *Session) renumber() {
	for i := range s.rects {
		s.rects[i].ID = i + 1
		s.rects[i].Label = fmt.Sprintf("Photo %d", i+1)
	}
}
