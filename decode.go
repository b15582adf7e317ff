package phar

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// magic is the fixed 4-octet trailer ending every encoded archive.
var magic = [4]byte{'G', 'B', 'M', 'B'}

// Decoder parses an encoded buffer into an Archive. The zero value is ready
// to use; set Log to a non-nil *logrus.Logger to trace parse steps at
// Debug level (the codec never logs on its own initiative otherwise).
type Decoder struct {
	Log *logrus.Logger
}

// Decode parses buf into an Archive, performing magic/signature/prelude/
// manifest/CRC validation. It never returns a partially-populated Archive
// on error.
func Decode(buf []byte) (*Archive, error) {
	var d Decoder
	return d.Decode(buf)
}

// DecodeReader reads r fully, then parses the result exactly as Decode does.
func DecodeReader(r io.Reader) (*Archive, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading archive")
	}
	return Decode(buf)
}

func (d *Decoder) debugf(format string, args ...interface{}) {
	if d.Log != nil {
		d.Log.Debugf(format, args...)
	}
}

func (d *Decoder) Decode(buf []byte) (*Archive, error) {
	// 1. Validate magic.
	if len(buf) < 8 {
		return nil, errors.Wrapf(ErrMagicMismatch, "buffer too short (%d bytes)", len(buf))
	}
	if !bytes.Equal(buf[len(buf)-4:], magic[:]) {
		return nil, errors.Wrap(ErrMagicMismatch, "trailing 4 octets are not \"GBMB\"")
	}
	d.debugf("magic ok, buffer length %d", len(buf))

	// 2. Read signature kind.
	sigKindOffset := len(buf) - 8
	sigKind := SignatureKind(binary.LittleEndian.Uint32(buf[sigKindOffset : sigKindOffset+4]))
	digestLength, err := sigKind.DigestLength()
	if err != nil {
		return nil, err
	}
	d.debugf("signature kind %s, digest length %d", sigKind, digestLength)

	// 3. Locate signed region and verify the digest.
	if sigKindOffset-digestLength < 0 {
		return nil, errors.Wrapf(ErrOutOfBounds, "buffer too short for a %s digest", sigKind)
	}
	digestOffset := sigKindOffset - digestLength
	expectedDigest := buf[digestOffset:sigKindOffset]
	signed := buf[:digestOffset]
	if err := sigKind.verify(signed, expectedDigest); err != nil {
		return nil, err
	}
	d.debugf("signature verified over %d signed bytes", len(signed))

	// 4. Locate prelude end.
	termIdx := bytes.Index(signed, []byte(preludeTerminator))
	if termIdx < 0 {
		return nil, errors.Wrap(ErrPreludeTerminatorMissing, preludeTerminator)
	}
	preludeEnd := termIdx + len(preludeTerminator)
	prelude := string(signed[:preludeEnd])

	// 5. Read manifest frame.
	cur := NewByteCursor(signed)
	if _, err := cur.Get(preludeEnd); err != nil {
		return nil, errors.Wrap(err, "prelude")
	}
	manifestLen, err := cur.GetU32LE()
	if err != nil {
		return nil, errors.Wrap(err, "manifest length")
	}
	if preludeEnd+4+int(manifestLen) > len(signed) {
		return nil, errors.Wrapf(ErrTruncatedManifest, "declared %d bytes, %d remaining", manifestLen, len(signed)-preludeEnd-4)
	}
	manifestBytes, err := cur.Get(int(manifestLen))
	if err != nil {
		return nil, errors.Wrap(err, "manifest bytes")
	}
	payloadRegion, err := cur.Get(-1)
	if err != nil {
		return nil, errors.Wrap(err, "payload region")
	}

	// 6. Parse manifest header.
	man := NewByteCursor(manifestBytes)
	filesCount, err := man.GetU32LE()
	if err != nil {
		return nil, errors.Wrap(err, "filesCount")
	}
	manifestAPI, err := man.GetU16LE()
	if err != nil {
		return nil, errors.Wrap(err, "manifestApi")
	}
	globalFlags, err := man.GetU32LE()
	if err != nil {
		return nil, errors.Wrap(err, "globalFlags")
	}
	alias, err := man.GetLenString()
	if err != nil {
		return nil, errors.Wrap(err, "alias")
	}
	globalMetadata, err := man.GetLenString()
	if err != nil {
		return nil, errors.Wrap(err, "globalMetadata")
	}
	d.debugf("manifest header: %d files, api %d, flags %#x", filesCount, manifestAPI, globalFlags)

	a := &Archive{
		prelude:        prelude,
		alias:          string(alias),
		globalFlags:    globalFlags,
		manifestAPI:    manifestAPI,
		globalMetadata: append([]byte{}, globalMetadata...),
		signatureKind:  sigKind,
		byName:         make(map[string]int),
	}

	// 7. Parse the file table, interleaved with the payload cursor.
	payload := NewByteCursor(payloadRegion)
	for i := uint32(0); i < filesCount; i++ {
		name, err := man.GetLenString()
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d: name", i)
		}
		// CRC is authoritative for integrity; the uncompressed-size field
		// is retained only for diagnostics.
		uncompressedSize, err := man.GetU32LE()
		if err != nil {
			return nil, errors.Wrapf(err, "entry %q: uncompressedSize", name)
		}
		timestamp, err := man.GetU32LE()
		if err != nil {
			return nil, errors.Wrapf(err, "entry %q: timestamp", name)
		}
		compressedSize, err := man.GetU32LE()
		if err != nil {
			return nil, errors.Wrapf(err, "entry %q: compressedSize", name)
		}
		storedCRC32, err := man.GetU32LE()
		if err != nil {
			return nil, errors.Wrapf(err, "entry %q: crc32", name)
		}
		flagsWord, err := man.GetU32LE()
		if err != nil {
			return nil, errors.Wrapf(err, "entry %q: flags", name)
		}
		entryMetadata, err := man.GetLenString()
		if err != nil {
			return nil, errors.Wrapf(err, "entry %q: metadata", name)
		}

		compressedBytes, err := payload.Get(int(compressedSize))
		if err != nil {
			return nil, errors.Wrapf(err, "entry %q: payload", name)
		}

		compression := Compression(flagsWord & compressionMask)
		permission := uint16(flagsWord & permissionMask)

		var decoded []byte
		switch compression {
		case CompressionNone:
			decoded = compressedBytes
		case CompressionGZ:
			decoded, err = inflateRaw(compressedBytes)
			if err != nil {
				return nil, errors.Wrapf(err, "entry %q", name)
			}
		default:
			return nil, errors.Wrapf(ErrUnsupportedCompression, "entry %q: kind=%#x", name, uint16(compression))
		}

		if got := checksumCRC32(decoded); got != storedCRC32 {
			return nil, &FileCorruptError{Name: string(name)}
		}
		d.debugf("entry %q: %d uncompressed bytes (declared %d), compression %s", name, len(decoded), uncompressedSize, compression)

		e := &Entry{
			name:        string(name),
			payload:     decoded,
			compression: compression,
			permission:  permission,
			timestamp:   timestamp,
			metadata:    append([]byte(nil), entryMetadata...),
		}
		// A later entry with the same name evicts the earlier one.
		a.AddFile(e)
	}

	return a, nil
}
