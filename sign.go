package phar

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"

	"github.com/pkg/errors"
)

// SignatureKind selects the whole-archive hash function used to sign and
// verify an encoded buffer.
type SignatureKind uint32

// The four signature kinds accepted by the format. Any other value is
// rejected with ErrUnknownSignature.
const (
	SignatureMD5    SignatureKind = 0x01
	SignatureSHA1   SignatureKind = 0x02
	SignatureSHA256 SignatureKind = 0x04
	SignatureSHA512 SignatureKind = 0x08
)

func (k SignatureKind) String() string {
	switch k {
	case SignatureMD5:
		return "MD5"
	case SignatureSHA1:
		return "SHA1"
	case SignatureSHA256:
		return "SHA256"
	case SignatureSHA512:
		return "SHA512"
	default:
		return "unknown"
	}
}

// DigestLength returns the raw digest length in octets for k, or
// ErrUnknownSignature if k is not one of the four accepted kinds.
func (k SignatureKind) DigestLength() (int, error) {
	switch k {
	case SignatureMD5:
		return md5.Size, nil
	case SignatureSHA1:
		return sha1.Size, nil
	case SignatureSHA256:
		return sha256.Size, nil
	case SignatureSHA512:
		return sha512.Size, nil
	default:
		return 0, errors.Wrapf(ErrUnknownSignature, "kind=%#x", uint32(k))
	}
}

// computeRaw returns the raw binary digest of data under signature kind k.
func (k SignatureKind) computeRaw(data []byte) ([]byte, error) {
	switch k {
	case SignatureMD5:
		sum := md5.Sum(data)
		return sum[:], nil
	case SignatureSHA1:
		sum := sha1.Sum(data)
		return sum[:], nil
	case SignatureSHA256:
		sum := sha256.Sum256(data)
		return sum[:], nil
	case SignatureSHA512:
		sum := sha512.Sum512(data)
		return sum[:], nil
	default:
		return nil, errors.Wrapf(ErrUnknownSignature, "kind=%#x", uint32(k))
	}
}

// verify reports whether digest is the correct raw digest of data under k.
// Both sides are compared octet-for-octet; no hex or text transformation is
// applied to either.
func (k SignatureKind) verify(data, digest []byte) error {
	want, err := k.computeRaw(data)
	if err != nil {
		return err
	}
	if !bytes.Equal(want, digest) {
		return ErrSignatureInvalid
	}
	return nil
}

// isKnownSignatureKind reports whether k is one of the four accepted values.
func isKnownSignatureKind(k SignatureKind) bool {
	switch k {
	case SignatureMD5, SignatureSHA1, SignatureSHA256, SignatureSHA512:
		return true
	default:
		return false
	}
}
