package naming

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// MaxCartridgeNumber is the highest assignable cartridge number.
	MaxCartridgeNumber = 999
	// MaxSequenceNumber is the highest assignable per-date sequence number.
	MaxSequenceNumber = 9999
	// dateLayout is the YYYYMMDD portion of every filename.
	dateLayout = "20060102"
)

// Cartridge is a prefix letter plus a global number, e.g. P#001.
type Cartridge struct {
	Prefix string
	Number int
}

// String renders the canonical zero-padded form, e.g. "F#042".
func (c Cartridge) String() string {
	return fmt.Sprintf("%s#%03d", c.Prefix, c.Number)
}

var (
	// cartridgeInput accepts "P#" (suggestion requested) or "P#042".
	cartridgeInput = regexp.MustCompile(`^([A-Z])#(\d{1,3})?$`)
	// anyCartridgeFile matches any cartridge-named scan regardless of prefix,
	// capturing the cartridge number. Both .tif/.tiff and .jpg/.jpeg spellings
	// are recognized.
	anyCartridgeFile = regexp.MustCompile(`^[A-Z]#(\d{3})_.*\.(tif|tiff|png|jpg|jpeg)$`)
)

// ResolveCartridge parses operator input. A bare "P#" returns hasNumber=false
// so the caller can ask the registry for a suggestion; "P#042" returns the
// explicit cartridge. Input is case-folded before matching.
func ResolveCartridge(input string) (c Cartridge, hasNumber bool, err error) {
	trimmed := strings.ToUpper(strings.TrimSpace(input))
	m := cartridgeInput.FindStringSubmatch(trimmed)
	if m == nil {
		return Cartridge{}, false, fmt.Errorf("%w: %q (use {LETTER}#NNN or {LETTER}#)", ErrInvalidCartridgeFormat, input)
	}
	c.Prefix = m[1]
	if m[2] == "" {
		return c, false, nil
	}
	n, convErr := strconv.Atoi(m[2])
	if convErr != nil || n < 1 || n > MaxCartridgeNumber {
		return Cartridge{}, false, fmt.Errorf("%w: number must be 1-%d", ErrInvalidCartridgeFormat, MaxCartridgeNumber)
	}
	c.Number = n
	return c, true, nil
}

// BuildFilename renders the canonical scan filename:
// {PREFIX}#{CART:3}_{YYYYMMDD}_{SEQ:4}.{ext}
func BuildFilename(c Cartridge, date time.Time, sequence int, ext string) string {
	return fmt.Sprintf("%s_%s_%04d.%s", c.String(), date.Format(dateLayout), sequence, ext)
}

// ParsedName is the result of decomposing a scan filename.
type ParsedName struct {
	Cartridge Cartridge
	Date      string // YYYYMMDD
	Sequence  int
	Ext       string
}

var fullName = regexp.MustCompile(`^([A-Z])#(\d{3})_(\d{8})_(\d{4})\.(tif|tiff|png|jpg|jpeg)$`)

// ParseFilename decomposes a canonical scan filename. It is the inverse of
// BuildFilename; ok is false for names that do not follow the pattern.
func ParseFilename(name string) (ParsedName, bool) {
	m := fullName.FindStringSubmatch(name)
	if m == nil {
		return ParsedName{}, false
	}
	cart, _ := strconv.Atoi(m[2])
	seq, _ := strconv.Atoi(m[4])
	return ParsedName{
		Cartridge: Cartridge{Prefix: m[1], Number: cart},
		Date:      m[3],
		Sequence:  seq,
		Ext:       m[5],
	}, true
}

// NextCartridgeNumber derives the next free global cartridge number from a
// set of existing filenames. Names that do not follow the cartridge pattern
// are ignored. Returns 1 for an empty set.
func NextCartridgeNumber(names []string) int {
	maxSeen := 0
	for _, name := range names {
		m := anyCartridgeFile.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > maxSeen {
			maxSeen = n
		}
	}
	return maxSeen + 1
}

// NextSequenceNumber derives the next sequence number for the cartridge/date
// pair from a set of existing filenames. Returns 1 when no file matches and
// ErrSequenceExhausted past MaxSequenceNumber.
func NextSequenceNumber(c Cartridge, date time.Time, names []string) (int, error) {
	pattern := regexp.MustCompile(
		`^` + regexp.QuoteMeta(c.String()) + `_` + date.Format(dateLayout) + `_(\d{4})\.(tif|tiff|png|jpg|jpeg)$`)

	maxSeen := 0
	for _, name := range names {
		m := pattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > maxSeen {
			maxSeen = n
		}
	}
	if maxSeen >= MaxSequenceNumber {
		return 0, fmt.Errorf("%w: %s on %s", ErrSequenceExhausted, c, date.Format(dateLayout))
	}
	return maxSeen + 1, nil
}

// GenericFilename names a scan made without a cartridge: photoN.<ext>, N
// being the calibrated position id. Generic files go to the fallback output
// directory and follow the same never-overwrite rule as cartridge scans.
func GenericFilename(position int, ext string) string {
	return fmt.Sprintf("photo%d.%s", position, ext)
}

// CartridgeLabel extracts the cartridge portion (e.g. "P#001") from a
// canonical filename, for findings reports.
func CartridgeLabel(name string) (string, bool) {
	if m := anyCartridgeFile.FindStringSubmatch(name); m != nil {
		return name[:strings.Index(name, "_")], true
	}
	return "", false
}
