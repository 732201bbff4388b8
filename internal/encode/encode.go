// Package encode converts raw capture bytes into the operator's chosen
// output format. The scan backend always hands back TIFF; this package
// decodes it, applies any color-mode fallback the backend skipped, and
// re-encodes to tiff, png, or jpeg.
package encode

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
	"golang.org/x/image/tiff"

	"github.com/ibralyousef/polaroid-batch-scanner/internal/layout"
)

const jpegQuality = 95

// lineartThreshold splits 8-bit luminance into black and white.
const lineartThreshold = 128

// Decode parses raw capture bytes. TIFF is tried first since that is what
// the backend emits; any other registered format is accepted as a fallback.
func Decode(data []byte) (image.Image, error) {
	if img, err := tiff.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding capture data: %w", err)
	}
	return img, nil
}

// ApplyMode enforces the requested color mode in software. Backends usually
// honor --mode themselves, but some ignore it for certain resolutions and
// deliver color anyway.
func ApplyMode(img image.Image, mode layout.ColorMode) image.Image {
	switch mode {
	case layout.ModeGray, layout.Mode16BitGray:
		return imaging.Grayscale(img)
	case layout.ModeLineart:
		return threshold(imaging.Grayscale(img))
	default:
		return img
	}
}

// Encode writes img to w in the given output format.
func Encode(w io.Writer, img image.Image, format layout.Format) error {
	switch format {
	case layout.FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case layout.FormatPNG:
		return png.Encode(w, img)
	case layout.FormatJPEG:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality))
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// Bytes is the buffer-returning form of Encode.
func Bytes(img image.Image, format layout.Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FitPreview scales img down to fit within the given box for on-screen
// display, preserving aspect ratio. Images already inside the box are
// returned untouched.
func FitPreview(img image.Image, maxWidth, maxHeight int) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() <= maxWidth && bounds.Dy() <= maxHeight {
		return img
	}
	return imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)
}

func threshold(src *image.NRGBA) image.Image {
	bounds := src.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			// Grayscale output has R == G == B.
			if src.NRGBAAt(x, y).R >= lineartThreshold {
				out.SetGray(x, y, color.Gray{Y: 255})
			} else {
				out.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return out
}
