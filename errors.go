package phar

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors returned (possibly wrapped with call-site context via
// github.com/pkg/errors) by Decode, Encode, and the Archive/Entry mutators.
// Use errors.Cause (or errors.Is against these values after unwrapping) to
// classify a failure.
var (
	// ErrMagicMismatch means the trailing 4 octets of the buffer are not
	// the magic sequence "GBMB".
	ErrMagicMismatch = errors.New("phar: magic trailer mismatch")

	// ErrUnknownSignature means the signature-kind word is not one of the
	// four accepted values.
	ErrUnknownSignature = errors.New("phar: unknown signature kind")

	// ErrSignatureInvalid means the whole-archive digest did not verify.
	ErrSignatureInvalid = errors.New("phar: signature digest does not verify")

	// ErrPreludeTerminatorMissing means the terminator was not found in
	// the signed region.
	ErrPreludeTerminatorMissing = errors.New("phar: prelude terminator not found")

	// ErrTruncatedManifest means the declared manifest length exceeds the
	// bytes remaining in the signed region.
	ErrTruncatedManifest = errors.New("phar: manifest truncated")

	// ErrOutOfBounds means a cursor read requested more bytes than remain.
	ErrOutOfBounds = errors.New("phar: read past end of buffer")

	// ErrFileCorrupt is the sentinel FileCorruptError wraps.
	ErrFileCorrupt = errors.New("phar: file payload failed crc32 check")

	// ErrUnsupportedCompression means an entry declares or requests a
	// compression kind other than NONE or GZ.
	ErrUnsupportedCompression = errors.New("phar: unsupported compression kind")

	// ErrInvalidPrelude means setPrelude's input lacks the
	// __halt_compiler(); token.
	ErrInvalidPrelude = errors.New("phar: prelude missing __halt_compiler(); token")

	// ErrPermissionOutOfRange means a permission value fell outside 0..0xFFF.
	ErrPermissionOutOfRange = errors.New("phar: permission out of range")

	// ErrEmptyArchive means Encode was called on an Archive with no entries.
	ErrEmptyArchive = errors.New("phar: archive has no entries")
)

// FileCorruptError reports which entry failed its per-file CRC-32 check
// during decode. It unwraps to ErrFileCorrupt.
type FileCorruptError struct {
	Name string
}

func (e *FileCorruptError) Error() string {
	return fmt.Sprintf("phar: entry %q failed crc32 check", e.Name)
}

func (e *FileCorruptError) Unwrap() error {
	return ErrFileCorrupt
}

// CompressionError wraps a failure from the underlying DEFLATE engine.
// It unwraps to the underlying cause.
type CompressionError struct {
	Cause error
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("phar: compression error: %s", e.Cause)
}

func (e *CompressionError) Unwrap() error {
	return e.Cause
}
