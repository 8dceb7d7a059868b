package document

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
)

// Extractor turns a PDF on disk into plain text.
type Extractor interface {
	ExtractText(ctx context.Context, pdfPath string) (string, error)
}

// PdfToText shells out to poppler's pdftotext. Auction notices are almost
// always born-digital PDFs with a text layer, so no OCR pass is needed.
type PdfToText struct {
	binPath string
}

// NewPdfToText wraps the binary at binPath, or "pdftotext" from PATH when
// empty.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// ExtractText converts one PDF, preserving layout so the column-ish tables
// in auction documents keep their token order. A failed conversion carries
// the tool's stderr in the error.
func (p *PdfToText) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.binPath, "-layout", pdfPath, "-")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "document: pdftotext failed for %s: %s",
			pdfPath, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
