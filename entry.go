package phar

import (
	"os"
	"time"

	"github.com/pkg/errors"
)

// Compression identifies how an Entry's payload is stored on disk.
type Compression uint16

const (
	CompressionNone Compression = 0x0000
	CompressionGZ   Compression = 0x1000
	// CompressionBZIP2 is a defined format flag but is not writable; the
	// encoder refuses it and the decoder raises ErrUnsupportedCompression.
	CompressionBZIP2 Compression = 0x2000

	compressionMask   = 0xF000
	permissionMask    = 0x0FFF
	defaultPermission = 0o666
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "NONE"
	case CompressionGZ:
		return "GZ"
	case CompressionBZIP2:
		return "BZIP2"
	default:
		return "unknown"
	}
}

// Entry is the in-memory model of one archived file.
type Entry struct {
	name        string
	payload     []byte
	compression Compression
	permission  uint16
	timestamp   uint32
	metadata    []byte
}

// NewEntry returns an Entry with the given name and uncompressed payload,
// NONE compression, default permission 0o666, and the current wall-clock
// time as its timestamp.
func NewEntry(name string, payload []byte) *Entry {
	return &Entry{
		name:       name,
		payload:    payload,
		permission: defaultPermission,
		timestamp:  uint32(time.Now().Unix()),
	}
}

func (e *Entry) Name() string { return e.name }

func (e *Entry) SetName(name string) { e.name = name }

func (e *Entry) Payload() []byte { return e.payload }

func (e *Entry) SetPayload(payload []byte) { e.payload = payload }

func (e *Entry) Compression() Compression { return e.compression }

// SetCompression sets the compression kind. Only CompressionNone and
// CompressionGZ are writable; any other value (including CompressionBZIP2)
// fails with ErrUnsupportedCompression.
func (e *Entry) SetCompression(c Compression) error {
	if c != CompressionNone && c != CompressionGZ {
		return errors.Wrapf(ErrUnsupportedCompression, "kind=%#x", uint16(c))
	}
	e.compression = c
	return nil
}

func (e *Entry) Permission() uint16 { return e.permission }

// SetPermission sets the 12-bit permission field. p must satisfy
// 0 <= p <= 0xFFF, otherwise ErrPermissionOutOfRange is returned.
func (e *Entry) SetPermission(p int) error {
	if p < 0 || p > 0xFFF {
		return errors.Wrapf(ErrPermissionOutOfRange, "permission=%#x", p)
	}
	e.permission = uint16(p)
	return nil
}

func (e *Entry) Timestamp() uint32 { return e.timestamp }

// SetTimestamp sets the entry's Unix-seconds timestamp. A negative value is
// replaced by the current wall-clock second.
func (e *Entry) SetTimestamp(t int64) {
	if t < 0 {
		t = time.Now().Unix()
	}
	e.timestamp = uint32(t)
}

func (e *Entry) Metadata() []byte { return e.metadata }

func (e *Entry) SetMetadata(metadata []byte) { e.metadata = metadata }

// Size returns the length of the uncompressed payload.
func (e *Entry) Size() int { return len(e.payload) }

// CompressedBytes returns the payload encoded per the entry's current
// compression kind, computed fresh from the current payload each call.
func (e *Entry) CompressedBytes() ([]byte, error) {
	switch e.compression {
	case CompressionNone:
		return e.payload, nil
	case CompressionGZ:
		return deflateRaw(e.payload)
	default:
		return nil, errors.Wrapf(ErrUnsupportedCompression, "kind=%#x", uint16(e.compression))
	}
}

// CompressedSize returns the length of CompressedBytes(), or -1 if it
// cannot be computed (e.g. an unsupported compression kind).
func (e *Entry) CompressedSize() int {
	b, err := e.CompressedBytes()
	if err != nil {
		return -1
	}
	return len(b)
}

// flagsWord packs compression and permission into the manifest's per-file
// flags word: permission occupies the low 12 bits, compression the high 4.
func (e *Entry) flagsWord() uint32 {
	return uint32(e.permission&permissionMask) | uint32(e.compression&compressionMask)
}

// Mode returns the entry's permission bits translated to an os.FileMode,
// including setuid/setgid/sticky, the way a unix file mode would encode
// them.
func (e *Entry) Mode() os.FileMode {
	return unixPermToFileMode(uint32(e.permission))
}

// SetMode sets the entry's permission field from the permission bits (and
// setuid/setgid/sticky bits) of mode.
func (e *Entry) SetMode(mode os.FileMode) {
	e.permission = uint16(fileModeToUnixPerm(mode) & permissionMask)
}

const (
	unixSetuid = 0o4000
	unixSetgid = 0o2000
	unixSticky = 0o1000
)

// unixPermToFileMode converts a raw 12-bit unix permission word (as stored
// in Entry.permission) to an os.FileMode.
func unixPermToFileMode(perm uint32) os.FileMode {
	mode := os.FileMode(perm & 0o777)
	if perm&unixSetuid != 0 {
		mode |= os.ModeSetuid
	}
	if perm&unixSetgid != 0 {
		mode |= os.ModeSetgid
	}
	if perm&unixSticky != 0 {
		mode |= os.ModeSticky
	}
	return mode
}

// fileModeToUnixPerm converts the permission and setuid/setgid/sticky bits
// of an os.FileMode to the raw 12-bit unix permission word Entry.permission
// expects.
func fileModeToUnixPerm(mode os.FileMode) uint32 {
	perm := uint32(mode.Perm())
	if mode&os.ModeSetuid != 0 {
		perm |= unixSetuid
	}
	if mode&os.ModeSetgid != 0 {
		perm |= unixSetgid
	}
	if mode&os.ModeSticky != 0 {
		perm |= unixSticky
	}
	return perm
}
