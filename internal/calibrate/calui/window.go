package calui

import (
	"fmt"
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/ibralyousef/polaroid-batch-scanner/internal/calibrate"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/geometry"
)

// Result is the outcome of a calibration window.
type Result struct {
	Saved    bool
	Rects    []geometry.Rect
	Warnings []string
}

// Run opens the calibration window and blocks until the operator saves or
// cancels. The preview image, if any, is drawn under the rectangles.
func Run(session *calibrate.Session, preview image.Image) Result {
	application := app.New()
	window := application.NewWindow("Calibrate photo positions")

	var result Result

	status := widget.NewLabel("")
	updateStatus := func() {
		count := len(session.Rects())
		text := fmt.Sprintf("%d position(s) placed. Drag to draw or move, corners resize.", count)
		if _, ok := session.Selected(); ok {
			text += " D deletes the selected position."
		}
		status.SetText(text)
	}

	canvas := newBedCanvas(session, preview, updateStatus)

	save := func() {
		rects, warnings, err := session.Save()
		if err != nil {
			dialog.ShowError(err, window)
			return
		}
		result = Result{Saved: true, Rects: rects, Warnings: warnings}
		window.Close()
	}
	cancel := func() {
		session.Cancel()
		result = Result{}
		window.Close()
	}
	remove := func() {
		if session.Delete() {
			canvas.refresh()
		}
	}

	buttons := container.NewHBox(
		widget.NewButton("Delete (D)", remove),
		widget.NewButton("Save (Enter)", save),
		widget.NewButton("Cancel (Esc)", cancel),
	)

	window.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyDelete, fyne.KeyD:
			remove()
		case fyne.KeyReturn, fyne.KeyEnter:
			save()
		case fyne.KeyEscape:
			cancel()
		}
	})

	window.SetContent(container.NewBorder(nil, container.NewVBox(status, buttons), nil, nil, canvas))
	window.Resize(fyne.NewSize(560, 820))
	updateStatus()
	window.ShowAndRun()
	return result
}
