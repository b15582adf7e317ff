// Package zipbridge converts between a phar.Archive and a ZIP container.
// The conversion is lossy in both directions: only entry names and
// uncompressed payloads survive a round trip.
package zipbridge

import (
	"archive/zip"
	"bytes"
	"io"
	"time"

	"github.com/pkg/errors"

	phar "github.com/relvacode/phargo"
)

// ToZip builds a ZIP container holding one entry per archive entry: the
// entry's name and uncompressed payload, with the ZIP entry's modification
// time set from the entry's Unix-seconds timestamp. Per-entry metadata,
// permissions, compression kind, the archive alias, and its prelude are not
// preserved.
func ToZip(archive *phar.Archive) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	for _, e := range archive.GetFiles() {
		hdr := &zip.FileHeader{
			Name:     e.Name(),
			Method:   zip.Store,
			Modified: time.Unix(int64(e.Timestamp()), 0).UTC(),
		}
		fw, err := w.CreateHeader(hdr)
		if err != nil {
			return nil, errors.Wrapf(err, "entry %q: create zip header", e.Name())
		}
		if _, err := fw.Write(e.Payload()); err != nil {
			return nil, errors.Wrapf(err, "entry %q: write zip payload", e.Name())
		}
	}

	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "closing zip writer")
	}
	return buf.Bytes(), nil
}

// ToPhar reads a ZIP container and builds a new Archive with the default
// prelude, default signature kind (SHA1), default flags, and one entry per
// ZIP entry: the uncompressed payload after ZIP-side decompression, default
// permission 0o666, and the ZIP entry's modification time (or now, if the
// ZIP entry carries no usable time).
func ToPhar(zipData []byte) (*phar.Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipData), int64(len(zipData)))
	if err != nil {
		return nil, errors.Wrap(err, "opening zip reader")
	}

	archive, err := phar.NewArchive(phar.Config{})
	if err != nil {
		return nil, err
	}

	for _, zf := range zr.File {
		payload, err := readZipEntry(zf)
		if err != nil {
			return nil, errors.Wrapf(err, "entry %q", zf.Name)
		}

		e := phar.NewEntry(zf.Name, payload)
		if ts := zf.Modified; !ts.IsZero() {
			e.SetTimestamp(ts.Unix())
		} else {
			e.SetTimestamp(-1)
		}
		archive.AddFile(e)
	}

	return archive, nil
}

func readZipEntry(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
