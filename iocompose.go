package phar

import (
	"bytes"
	"io"
)

// multiPartReader composes disjoint byte slices into a single forward-only
// io.Reader, tracking the combined size as parts are appended. It exists so
// Archive.WriteTo can stream the assembled regions of an encoded archive
// (prelude, manifest, payloads, signature, magic) without concatenating them
// into one intermediate buffer first.
type multiPartReader struct {
	parts [][]byte
	size  int64
}

func newMultiPartReader() *multiPartReader {
	return &multiPartReader{}
}

// add appends a byte range to the composed stream. The slice is not copied;
// callers must not mutate it afterwards.
func (m *multiPartReader) add(data []byte) {
	if len(data) == 0 {
		return
	}
	m.parts = append(m.parts, data)
	m.size += int64(len(data))
}

// Size returns the total length of all parts added so far.
func (m *multiPartReader) Size() int64 {
	return m.size
}

// Reader returns a forward-only io.Reader over the composed parts in the
// order they were added.
func (m *multiPartReader) Reader() io.Reader {
	readers := make([]io.Reader, len(m.parts))
	for i, p := range m.parts {
		readers[i] = bytes.NewReader(p)
	}
	return io.MultiReader(readers...)
}
