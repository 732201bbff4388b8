package layout

import "fmt"

// Legal scan resolutions in DPI.
var Resolutions = []int{75, 150, 300, 600, 1200, 2400, 4800}

// ColorMode is a SANE color mode value.
type ColorMode string

const (
	ModeColor     ColorMode = "Color"
	ModeGray      ColorMode = "Gray"
	Mode16BitGray ColorMode = "16 bits gray"
	ModeLineart   ColorMode = "Lineart"
)

// ColorModes lists the legal color modes in menu order.
var ColorModes = []ColorMode{ModeColor, ModeGray, Mode16BitGray, ModeLineart}

// Description returns the operator-facing label for the mode.
func (m ColorMode) Description() string {
	switch m {
	case ModeColor:
		return "Color (24-bit RGB)"
	case ModeGray:
		return "Grayscale (8-bit)"
	case Mode16BitGray:
		return "16 bits gray (16-bit grayscale)"
	case ModeLineart:
		return "Black & White (1-bit)"
	default:
		return string(m)
	}
}

// Format is an output image format.
type Format string

const (
	FormatTIFF Format = "tiff"
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// Formats lists the legal output formats in menu order.
var Formats = []Format{FormatTIFF, FormatPNG, FormatJPEG}

// Description returns the operator-facing label for the format.
func (f Format) Description() string {
	switch f {
	case FormatTIFF:
		return "TIFF (lossless, large files)"
	case FormatPNG:
		return "PNG (lossless, medium files)"
	case FormatJPEG:
		return "JPEG (lossy, small files)"
	default:
		return string(f)
	}
}

// Extension returns the filename extension written for the format. JPEG files
// are written with the short .jpg extension.
func (f Format) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// PreviewMode selects the pre-scan preview behavior.
type PreviewMode string

const (
	PreviewOff        PreviewMode = "off"
	PreviewFullBed    PreviewMode = "scan"
	PreviewIndividual PreviewMode = "guide"
)

// PreviewModes lists the legal preview modes in menu order.
var PreviewModes = []PreviewMode{PreviewOff, PreviewFullBed, PreviewIndividual}

// Description returns the operator-facing label for the preview mode.
func (p PreviewMode) Description() string {
	switch p {
	case PreviewOff:
		return "Off (no preview)"
	case PreviewFullBed:
		return "Full Bed Preview (75 DPI with overlays)"
	case PreviewIndividual:
		return "Quick Preview (75 DPI scan of each photo)"
	default:
		return string(p)
	}
}

// Settings is the persisted scan_settings record.
type Settings struct {
	Resolution  int         `json:"resolution"`
	Mode        ColorMode   `json:"mode"`
	Format      Format      `json:"format"`
	PreviewMode PreviewMode `json:"preview_mode"`
}

// DefaultSettings returns the factory scan settings.
func DefaultSettings() Settings {
	return Settings{
		Resolution:  1200,
		Mode:        ModeColor,
		Format:      FormatTIFF,
		PreviewMode: PreviewOff,
	}
}

// Validate checks every field against its enumerated legal values.
func (s Settings) Validate() error {
	if !containsInt(Resolutions, s.Resolution) {
		return fmt.Errorf("scan_settings.resolution: unsupported value %d", s.Resolution)
	}
	if !containsMode(ColorModes, s.Mode) {
		return fmt.Errorf("scan_settings.mode: unsupported value %q", s.Mode)
	}
	if !containsFormat(Formats, s.Format) {
		return fmt.Errorf("scan_settings.format: unsupported value %q", s.Format)
	}
	if !containsPreview(PreviewModes, s.PreviewMode) {
		return fmt.Errorf("scan_settings.preview_mode: unsupported value %q", s.PreviewMode)
	}
	return nil
}

func containsInt(values []int, v int) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsMode(values []ColorMode, v ColorMode) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsFormat(values []Format, v Format) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsPreview(values []PreviewMode, v PreviewMode) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
