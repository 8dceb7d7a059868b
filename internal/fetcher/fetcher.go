// Package fetcher downloads notice attachments over HTTP and FTP with
// per-host rate limiting and transient-error retry.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher defines the interface for downloading remote documents.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Mux routes downloads to the right fetcher by URL scheme. Attachment links
// on older municipal servers still come through as ftp://.
type Mux struct {
	HTTP Fetcher
	FTP  Fetcher
}

// NewMux creates a Mux with default HTTP and FTP fetchers.
func NewMux(httpOpts HTTPOptions, ftpOpts FTPOptions) *Mux {
	return &Mux{
		HTTP: NewHTTPFetcher(httpOpts),
		FTP:  NewFTPFetcher(ftpOpts),
	}
}

func (m *Mux) forURL(rawURL string) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: parse url %q", rawURL)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return m.HTTP, nil
	case "ftp":
		return m.FTP, nil
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme %q in %s", u.Scheme, rawURL)
	}
}

// Download fetches the URL with the fetcher matching its scheme.
func (m *Mux) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	f, err := m.forURL(rawURL)
	if err != nil {
		return nil, err
	}
	return f.Download(ctx, rawURL)
}

// DownloadToFile fetches the URL to a local file with the fetcher matching its scheme.
func (m *Mux) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	f, err := m.forURL(rawURL)
	if err != nil {
		return 0, err
	}
	return f.DownloadToFile(ctx, rawURL, path)
}
