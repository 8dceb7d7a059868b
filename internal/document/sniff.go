package document

import (
	"bytes"
	"io"
	"os"

	"github.com/rotisserie/eris"
)

// Kind classifies an archived attachment by content. Download URLs on the
// procurement portals rarely carry extensions, so the leading bytes decide
// how a file is processed.
type Kind int

const (
	KindUnknown Kind = iota
	KindPDF
	KindSpreadsheet
)

var (
	pdfMagic = []byte("%PDF")
	zipMagic = []byte("PK\x03\x04") // xlsx is a zip container
)

// Detect reads the magic bytes of a stored file. Files too short to carry a
// signature classify as unknown, not as errors.
func Detect(path string) (Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return KindUnknown, eris.Wrapf(err, "document: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		return KindUnknown, nil
	}

	switch {
	case bytes.Equal(magic, pdfMagic):
		return KindPDF, nil
	case bytes.Equal(magic, zipMagic):
		return KindSpreadsheet, nil
	}
	return KindUnknown, nil
}
