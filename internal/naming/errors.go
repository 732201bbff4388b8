package naming

import "errors"

var (
	// ErrInvalidCartridgeFormat reports operator input that is not
	// {LETTER}# or {LETTER}#NNN with NNN in 1-999.
	ErrInvalidCartridgeFormat = errors.New("invalid cartridge format")

	// ErrNoDestination reports a prefix with no mapped destination folder.
	ErrNoDestination = errors.New("no destination folder configured for prefix")

	// ErrSequenceExhausted reports a cartridge/date pair that has used all
	// 9999 sequence numbers.
	ErrSequenceExhausted = errors.New("sequence numbers exhausted for cartridge")

	// ErrFileExists reports a write that was skipped because the target
	// already exists. Existing files are never overwritten.
	ErrFileExists = errors.New("file already exists, write skipped")
)
