package phar

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ByteCursor is a forward-only read/write cursor over an octet buffer. The
// read side advances a position through a fixed buffer; the write side
// appends to an internal slice. A single ByteCursor is used for one
// direction at a time by Decoder and Encoder.
type ByteCursor struct {
	buf []byte // read buffer (NewByteCursor) or accumulated write buffer (NewWriteCursor)
	pos int    // read position; unused on the write side
}

// NewByteCursor returns a cursor positioned at the start of buf for reading.
func NewByteCursor(buf []byte) *ByteCursor {
	return &ByteCursor{buf: buf}
}

// NewWriteCursor returns an empty cursor ready to accumulate written bytes.
func NewWriteCursor() *ByteCursor {
	return &ByteCursor{}
}

// Remaining returns the number of unread bytes left in a read cursor.
func (c *ByteCursor) Remaining() int {
	return len(c.buf) - c.pos
}

// Bytes returns the bytes written so far (write cursor) or the full
// underlying buffer (read cursor).
func (c *ByteCursor) Bytes() []byte {
	return c.buf
}

// Get returns exactly n octets starting at the current position and
// advances the position by n. If n < 0, it returns all remaining octets.
// It fails with ErrOutOfBounds if the requested range extends past the end
// of the buffer.
func (c *ByteCursor) Get(n int) ([]byte, error) {
	if n < 0 {
		n = c.Remaining()
	}
	if n < 0 || c.pos+n > len(c.buf) {
		return nil, errors.Wrapf(ErrOutOfBounds, "requested %d bytes at offset %d, have %d", n, c.pos, len(c.buf))
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// GetU16LE reads 2 octets and interprets them as a little-endian unsigned
// integer.
func (c *ByteCursor) GetU16LE() (uint16, error) {
	b, err := c.Get(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// GetU32LE reads 4 octets and interprets them as a little-endian unsigned
// integer.
func (c *ByteCursor) GetU32LE() (uint32, error) {
	b, err := c.Get(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// GetLenString reads a u32 length prefix L, then returns the next L octets.
func (c *ByteCursor) GetLenString() ([]byte, error) {
	n, err := c.GetU32LE()
	if err != nil {
		return nil, errors.Wrap(err, "length prefix")
	}
	b, err := c.Get(int(n))
	if err != nil {
		return nil, errors.Wrap(err, "length-prefixed payload")
	}
	return b, nil
}

// Put appends raw bytes to the write buffer.
func (c *ByteCursor) Put(b []byte) {
	c.buf = append(c.buf, b...)
}

// PutU16LE appends a little-endian 16-bit unsigned integer.
func (c *ByteCursor) PutU16LE(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	c.buf = append(c.buf, b[:]...)
}

// PutU32LE appends a little-endian 32-bit unsigned integer.
func (c *ByteCursor) PutU32LE(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	c.buf = append(c.buf, b[:]...)
}

// PutLenString appends a u32 length prefix followed by b.
func (c *ByteCursor) PutLenString(b []byte) {
	c.PutU32LE(uint32(len(b)))
	c.buf = append(c.buf, b...)
}
