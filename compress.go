package phar

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
)

// deflateRaw compresses data using raw DEFLATE (no zlib or gzip wrapper),
// matching the on-disk convention used by the archive format.
func deflateRaw(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, &CompressionError{Cause: err}
	}
	if _, err := w.Write(data); err != nil {
		return nil, &CompressionError{Cause: err}
	}
	if err := w.Close(); err != nil {
		return nil, &CompressionError{Cause: err}
	}
	return buf.Bytes(), nil
}

// inflateRaw decompresses a raw DEFLATE stream produced by deflateRaw (or
// any other encoder emitting unwrapped DEFLATE).
func inflateRaw(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, &CompressionError{Cause: err}
	}
	return out, nil
}
