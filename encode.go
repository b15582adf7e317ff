package phar

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Encoder serializes an Archive to a byte buffer. The zero value is ready
// to use; set Log to a non-nil *logrus.Logger to trace serialize steps at
// Debug level.
type Encoder struct {
	Log *logrus.Logger
}

// Encode serializes a into a byte buffer: prelude, manifest, payloads,
// signature digest, and magic trailer. It fails with ErrEmptyArchive if a
// has no entries.
func Encode(a *Archive) ([]byte, error) {
	var e Encoder
	return e.Encode(a)
}

func (e *Encoder) debugf(format string, args ...interface{}) {
	if e.Log != nil {
		e.Log.Debugf(format, args...)
	}
}

func (e *Encoder) Encode(a *Archive) ([]byte, error) {
	regions, err := e.encodeRegions(a)
	if err != nil {
		return nil, err
	}

	out := NewWriteCursor()
	out.Put(regions.prelude)
	out.Put(regions.manifestFrame)
	out.Put(regions.payloads)
	out.Put(regions.digest)
	out.PutU32LE(uint32(a.signatureKind))
	out.Put(magic[:])
	return out.Bytes(), nil
}

// WriteTo serializes a and writes it to w, returning the number of bytes
// written. It composes the encoded regions without first concatenating
// them into one buffer.
func (a *Archive) WriteTo(w io.Writer) (int64, error) {
	var e Encoder
	regions, err := e.encodeRegions(a)
	if err != nil {
		return 0, err
	}

	mr := newMultiPartReader()
	mr.add(regions.prelude)
	mr.add(regions.manifestFrame)
	mr.add(regions.payloads)
	mr.add(regions.digest)

	var sigKind ByteCursor
	sigKind.PutU32LE(uint32(a.signatureKind))
	mr.add(sigKind.Bytes())
	mr.add(magic[:])

	return io.Copy(w, mr.Reader())
}

// encodedRegions holds the byte ranges that make up an encoded archive,
// everything except the trailing signature-kind word and magic (which are
// fixed-size and cheap enough to append directly).
type encodedRegions struct {
	prelude       []byte
	manifestFrame []byte // u32 length prefix + manifest bytes
	payloads      []byte
	digest        []byte
}

func (e *Encoder) encodeRegions(a *Archive) (*encodedRegions, error) {
	if a.GetFileCount() == 0 {
		return nil, ErrEmptyArchive
	}

	man := NewWriteCursor()
	man.PutU32LE(uint32(a.GetFileCount()))
	man.PutU16LE(a.manifestAPI)
	man.PutU32LE(a.globalFlags)
	man.PutLenString([]byte(a.alias))
	man.PutLenString(a.globalMetadata)

	payloads := NewWriteCursor()
	for _, entry := range a.order {
		compressedBytes, err := entry.CompressedBytes()
		if err != nil {
			return nil, errors.Wrapf(err, "entry %q", entry.Name())
		}

		man.PutLenString([]byte(entry.Name()))
		man.PutU32LE(uint32(len(entry.Payload())))
		man.PutU32LE(entry.Timestamp())
		man.PutU32LE(uint32(len(compressedBytes)))
		man.PutU32LE(checksumCRC32(entry.Payload()))
		man.PutU32LE(entry.flagsWord())
		man.PutLenString(entry.Metadata())

		payloads.Put(compressedBytes)
		e.debugf("entry %q: %d uncompressed, %d compressed, compression %s", entry.Name(), entry.Size(), len(compressedBytes), entry.Compression())
	}

	frame := NewWriteCursor()
	frame.PutLenString(man.Bytes())

	signed := NewWriteCursor()
	signed.Put([]byte(a.prelude))
	signed.Put(frame.Bytes())
	signed.Put(payloads.Bytes())

	digest, err := a.signatureKind.computeRaw(signed.Bytes())
	if err != nil {
		return nil, err
	}
	e.debugf("signed %d bytes with %s, digest length %d", len(signed.Bytes()), a.signatureKind, len(digest))

	return &encodedRegions{
		prelude:       []byte(a.prelude),
		manifestFrame: frame.Bytes(),
		payloads:      payloads.Bytes(),
		digest:        digest,
	}, nil
}
