// Package document archives original notice attachments and extracts text
// and spreadsheet content from them.
package document

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Store is a path-addressable attachment archive rooted at a local
// directory. Content is stored under its SHA-256 hash, so re-fetching the
// same attachment lands on the same path.
type Store struct {
	baseDir string
}

// NewStore creates the base directory if needed and returns a Store.
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		return nil, eris.New("document: empty base dir")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "document: create base dir %s", baseDir)
	}
	return &Store{baseDir: baseDir}, nil
}

// Put stores the content and returns its relative path inside the archive.
// The original filename only contributes its extension.
func (s *Store) Put(name string, r io.Reader) (string, error) {
	tmp, err := os.CreateTemp(s.baseDir, "incoming-*")
	if err != nil {
		return "", eris.Wrap(err, "document: create temp file")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h), r); err != nil {
		tmp.Close() //nolint:errcheck
		return "", eris.Wrap(err, "document: write temp file")
	}
	if err := tmp.Close(); err != nil {
		return "", eris.Wrap(err, "document: close temp file")
	}

	sum := hex.EncodeToString(h.Sum(nil))
	rel := filepath.Join(sum[:2], sum+strings.ToLower(filepath.Ext(name)))

	dest := filepath.Join(s.baseDir, rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", eris.Wrap(err, "document: create shard dir")
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", eris.Wrapf(err, "document: move into archive %s", rel)
	}

	return rel, nil
}

// Open returns a reader for a previously stored attachment.
func (s *Store) Open(relPath string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.baseDir, relPath))
	if err != nil {
		return nil, eris.Wrapf(err, "document: open %s", relPath)
	}
	return f, nil
}

// Abs resolves a stored relative path to its absolute location, for tools
// that need a real file on disk (pdftotext, xlsx parsing).
func (s *Store) Abs(relPath string) string {
	return filepath.Join(s.baseDir, relPath)
}
