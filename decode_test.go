package phar

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"go4.org/readerutil"
)

// flipByte returns a copy of good with the octet at offset XORed with 0xFF,
// built by splicing three disjoint ranges together via go4.org/readerutil
// rather than mutating a full copy of good directly.
func flipByte(t *testing.T, good []byte, offset int) []byte {
	t.Helper()
	flipped := good[offset] ^ 0xFF
	sra := readerutil.NewMultiReaderAt(
		bytes.NewReader(good[:offset]),
		bytes.NewReader([]byte{flipped}),
		bytes.NewReader(good[offset+1:]),
	)
	out := make([]byte, sra.Size())
	_, err := sra.ReadAt(out, 0)
	require.NoError(t, err)
	return out
}

func TestDecode_MagicMismatch_TooShort(t *testing.T) {
	_, err := Decode([]byte("short"))
	require.ErrorIs(t, err, ErrMagicMismatch)
}

func TestDecode_MagicMismatch_WrongTrailer(t *testing.T) {
	a := minimalArchive(t)
	buf, err := Encode(a)
	require.NoError(t, err)

	buf[len(buf)-1] = 'X'
	_, err = Decode(buf)
	require.ErrorIs(t, err, ErrMagicMismatch)
}

func TestDecode_UnknownSignatureKind(t *testing.T) {
	a := minimalArchive(t)
	buf, err := Encode(a)
	require.NoError(t, err)

	sigKindOffset := len(buf) - 8
	buf[sigKindOffset] = 0x99
	buf[sigKindOffset+1] = 0
	buf[sigKindOffset+2] = 0
	buf[sigKindOffset+3] = 0

	_, err = Decode(buf)
	require.ErrorIs(t, err, ErrUnknownSignature)
}

func TestDecode_SignatureInvalid(t *testing.T) {
	a := minimalArchive(t)
	buf, err := Encode(a)
	require.NoError(t, err)

	digestOffset := len(buf) - 8 - 20 // SHA1 is the default kind
	mutated := flipByte(t, buf, digestOffset)

	_, err = Decode(mutated)
	require.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestDecode_PreludeTerminatorMissing(t *testing.T) {
	a := minimalArchive(t)
	require.NoError(t, a.SetSignatureKind(SignatureMD5))
	buf, err := Encode(a)
	require.NoError(t, err)

	// Corrupt a byte inside the terminator text itself, then re-sign so the
	// digest still verifies: the terminator-lookup failure must surface on
	// its own, not masked behind ErrSignatureInvalid.
	termIdx := bytes.Index(buf, []byte(preludeTerminator))
	require.GreaterOrEqual(t, termIdx, 0)
	mutated := resign(t, buf, SignatureMD5, termIdx, '!')

	_, err = Decode(mutated)
	require.ErrorIs(t, err, ErrPreludeTerminatorMissing)
}

func TestDecode_TruncatedManifest(t *testing.T) {
	a := minimalArchive(t)
	require.NoError(t, a.SetSignatureKind(SignatureMD5))
	buf, err := Encode(a)
	require.NoError(t, err)

	preludeEnd := len(a.Prelude())
	manifestLenOffset := preludeEnd
	mutated := resignU32(t, buf, SignatureMD5, manifestLenOffset, 0xFFFFFFFF)

	_, err = Decode(mutated)
	require.ErrorIs(t, err, ErrTruncatedManifest)
}

func TestDecode_OutOfBounds_BufferTooShortForDigest(t *testing.T) {
	a := minimalArchive(t)
	require.NoError(t, a.SetSignatureKind(SignatureSHA512))
	buf, err := Encode(a)
	require.NoError(t, err)

	// Truncate the buffer so fewer bytes remain than SHA512's 64-octet
	// digest plus the trailing 8-octet signature-kind/magic footer.
	short := buf[len(buf)-8-10:]
	_, err = Decode(short)
	require.ErrorIs(t, err, ErrOutOfBounds)
}

// FileCorruptError, priority case 1: the payload is flipped without
// re-signing, so signature verification fails before the CRC check ever
// runs.
func TestDecode_PayloadFlip_SignatureCaughtFirst(t *testing.T) {
	a := minimalArchive(t)
	buf, err := Encode(a)
	require.NoError(t, err)

	digestOffset := len(buf) - 8 - 20
	payloadByteOffset := digestOffset - 1 // last byte of "hi", right before the digest
	mutated := flipByte(t, buf, payloadByteOffset)

	_, err = Decode(mutated)
	require.ErrorIs(t, err, ErrSignatureInvalid)
}

// FileCorruptError, priority case 2: the payload is flipped and the
// signature is recomputed over the mutated bytes, so verification passes
// and the per-file CRC-32 check is what catches the corruption.
func TestDecode_PayloadFlip_CRCCaughtAfterResign(t *testing.T) {
	a := minimalArchive(t)
	buf, err := Encode(a)
	require.NoError(t, err)

	digestOffset := len(buf) - 8 - 20
	payloadByteOffset := digestOffset - 1
	mutated := resign(t, buf, SignatureSHA1, payloadByteOffset, buf[payloadByteOffset]^0xFF)

	_, err = Decode(mutated)
	var corrupt *FileCorruptError
	require.ErrorAs(t, err, &corrupt)
	require.Equal(t, "a.txt", corrupt.Name)
}

// resign mutates the single octet at offset to newByte, then recomputes the
// whole-archive digest under kind over the mutated signed region and
// splices it back in, so the returned buffer verifies under kind even
// though its content differs from what was originally signed.
func resign(t *testing.T, buf []byte, kind SignatureKind, offset int, newByte byte) []byte {
	t.Helper()
	digestLen, err := kind.DigestLength()
	require.NoError(t, err)

	sigKindOffset := len(buf) - 8
	digestOffset := sigKindOffset - digestLen

	signed := append([]byte(nil), buf[:digestOffset]...)
	signed[offset] = newByte

	digest, err := kind.computeRaw(signed)
	require.NoError(t, err)

	out := append([]byte(nil), signed...)
	out = append(out, digest...)
	out = append(out, buf[sigKindOffset:]...)
	return out
}

// resignU32 overwrites the little-endian u32 at offset with v, then
// resigns as resign does.
func resignU32(t *testing.T, buf []byte, kind SignatureKind, offset int, v uint32) []byte {
	t.Helper()
	digestLen, err := kind.DigestLength()
	require.NoError(t, err)
	sigKindOffset := len(buf) - 8
	digestOffset := sigKindOffset - digestLen

	signed := append([]byte(nil), buf[:digestOffset]...)
	signed[offset] = byte(v)
	signed[offset+1] = byte(v >> 8)
	signed[offset+2] = byte(v >> 16)
	signed[offset+3] = byte(v >> 24)

	digest, err := kind.computeRaw(signed)
	require.NoError(t, err)

	out := append([]byte(nil), signed...)
	out = append(out, digest...)
	out = append(out, buf[sigKindOffset:]...)
	return out
}

func TestDecodeReader_RoundTrip(t *testing.T) {
	a := minimalArchive(t)
	want, err := Encode(a)
	require.NoError(t, err)

	decoded, err := DecodeReader(bytes.NewReader(want))
	require.NoError(t, err)
	requireArchivesEqual(t, a, decoded)
}

func TestDecode_UnsupportedCompressionInManifest(t *testing.T) {
	a := minimalArchive(t)
	e := a.GetFile("a.txt")
	e.compression = CompressionNone
	buf, err := Encode(a)
	require.NoError(t, err)

	// Locate the flags word for the single entry and set its compression
	// nibble to BZIP2's 0x2000 without touching permission bits, then
	// resign so the mutation survives signature verification.
	flagsOffset := bytes.Index(buf, []byte("a.txt")) + len("a.txt") + 4 + 4 + 4 + 4
	mutated := resignU32(t, buf, SignatureSHA1, flagsOffset, uint32(CompressionBZIP2)|uint32(e.permission))

	_, err = Decode(mutated)
	require.ErrorIs(t, err, ErrUnsupportedCompression)
}
