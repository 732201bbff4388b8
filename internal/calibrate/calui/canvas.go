// Package calui renders a calibration session in a Fyne window. It is a thin
// adapter: all interaction rules live in the calibrate package, this package
// only converts pointer positions between screen pixels and bed millimeters
// and draws the current rectangle set over the preview image.
package calui

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"github.com/ibralyousef/polaroid-batch-scanner/internal/calibrate"
)

var (
	bedColor      = color.RGBA{R: 245, G: 245, B: 240, A: 255}
	rectColor     = color.RGBA{R: 30, G: 120, B: 220, A: 255}
	selectedColor = color.RGBA{R: 230, G: 120, B: 20, A: 255}
	handlePx      = 3
)

// bedCanvas draws the scan bed, the preview image, and the rectangle set,
// and feeds pointer events into the session.
type bedCanvas struct {
	widget.BaseWidget

	session *calibrate.Session
	preview image.Image
	raster  *fynecanvas.Raster

	lastSize fyne.Size
	onChange func()
}

func newBedCanvas(session *calibrate.Session, preview image.Image, onChange func()) *bedCanvas {
	bc := &bedCanvas{session: session, preview: preview, onChange: onChange}
	bc.raster = fynecanvas.NewRaster(bc.draw)
	bc.raster.ScaleMode = fynecanvas.ImageScalePixels
	bc.ExtendBaseWidget(bc)
	return bc
}

func (bc *bedCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(bc.raster)
}

func (bc *bedCanvas) MinSize() fyne.Size {
	return fyne.NewSize(480, 640)
}

// pxPerMM derives the display scale from the widget's current size so the
// whole bed always stays visible.
func (bc *bedCanvas) pxPerMM() float64 {
	size := bc.Size()
	if size.Width <= 0 || size.Height <= 0 {
		size = bc.MinSize()
	}
	bed := bc.session.Bed()
	scaleX := float64(size.Width) / bed.WidthMM
	scaleY := float64(size.Height) / bed.HeightMM
	if scaleY < scaleX {
		return scaleY
	}
	return scaleX
}

func (bc *bedCanvas) toMM(pos fyne.Position) calibrate.Point {
	scale := bc.pxPerMM()
	return calibrate.Point{X: float64(pos.X) / scale, Y: float64(pos.Y) / scale}
}

// MouseDown starts a gesture in the session.
func (bc *bedCanvas) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	bc.session.PointerDown(bc.toMM(ev.Position))
	bc.refresh()
}

// MouseUp commits the gesture.
func (bc *bedCanvas) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	bc.session.PointerUp(bc.toMM(ev.Position))
	bc.refresh()
}

// Dragged forwards intermediate pointer positions.
func (bc *bedCanvas) Dragged(ev *fyne.DragEvent) {
	bc.session.PointerMove(bc.toMM(ev.Position))
	bc.refresh()
}

func (bc *bedCanvas) DragEnd() {}

func (bc *bedCanvas) refresh() {
	bc.raster.Refresh()
	if bc.onChange != nil {
		bc.onChange()
	}
}

func (bc *bedCanvas) draw(w, h int) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.SetRGBA(x, y, bedColor)
		}
	}

	scale := bc.pxPerMM()
	bed := bc.session.Bed()
	bedW := int(bed.WidthMM * scale)
	bedH := int(bed.HeightMM * scale)

	if bc.preview != nil {
		drawScaled(out, bc.preview, bedW, bedH)
	}

	selected, hasSelection := bc.session.Selected()
	for _, rect := range bc.session.Rects() {
		c := rectColor
		if hasSelection && rect.ID == selected.ID {
			c = selectedColor
		}
		left := int(rect.LeftMM * scale)
		top := int(rect.TopMM * scale)
		right := int((rect.LeftMM + rect.WidthMM) * scale)
		bottom := int((rect.TopMM + rect.HeightMM) * scale)
		drawBorder(out, left, top, right, bottom, c)
		for _, p := range [][2]int{
			{left, top}, {right, top}, {left, bottom}, {right, bottom},
			{(left + right) / 2, top}, {(left + right) / 2, bottom},
			{left, (top + bottom) / 2}, {right, (top + bottom) / 2},
		} {
			drawHandle(out, p[0], p[1], c)
		}
	}
	return out
}

// drawScaled renders src into the top-left bedW x bedH region with nearest
// sampling. Preview images are low resolution so anything fancier is wasted.
func drawScaled(dst *image.RGBA, src image.Image, bedW, bedH int) {
	bounds := src.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 || bedW == 0 || bedH == 0 {
		return
	}
	maxX := min(bedW, dst.Bounds().Dx())
	maxY := min(bedH, dst.Bounds().Dy())
	for y := 0; y < maxY; y++ {
		srcY := bounds.Min.Y + y*bounds.Dy()/bedH
		for x := 0; x < maxX; x++ {
			srcX := bounds.Min.X + x*bounds.Dx()/bedW
			dst.Set(x, y, src.At(srcX, srcY))
		}
	}
}

func drawBorder(dst *image.RGBA, left, top, right, bottom int, c color.RGBA) {
	for x := left; x <= right; x++ {
		setSafe(dst, x, top, c)
		setSafe(dst, x, bottom, c)
	}
	for y := top; y <= bottom; y++ {
		setSafe(dst, left, y, c)
		setSafe(dst, right, y, c)
	}
}

func drawHandle(dst *image.RGBA, cx, cy int, c color.RGBA) {
	for dy := -handlePx; dy <= handlePx; dy++ {
		for dx := -handlePx; dx <= handlePx; dx++ {
			setSafe(dst, cx+dx, cy+dy, c)
		}
	}
}

func setSafe(dst *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(dst.Bounds()) {
		dst.SetRGBA(x, y, c)
	}
}
