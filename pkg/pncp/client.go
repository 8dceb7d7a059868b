// Package pncp is a client for the PNCP open-data API, Brazil's national
// public procurement portal.
package pncp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	// defaultBaseURL serves the paginated consultation endpoints.
	defaultBaseURL = "https://pncp.gov.br/api/consulta"
	// defaultItemBaseURL serves per-notice detail and attachment endpoints.
	defaultItemBaseURL = "https://pncp.gov.br/api/pncp"

	defaultPageSize = 50
	defaultTimeout  = 30 * time.Second
)

// ErrRateLimited is returned when PNCP answers 429. Callers stop scheduling
// new listing requests for the rest of the cycle instead of retrying.
var ErrRateLimited = eris.New("pncp: rate limited")

// ErrNotFound is returned when a notice has no detail record (HTTP 404).
var ErrNotFound = eris.New("pncp: notice not found")

// Client defines the PNCP API operations the pipeline consumes.
type Client interface {
	List(ctx context.Context, w Window, modalityCode, page int) (*Page, error)
	Detail(ctx context.Context, cnpj string, year, seq int) (*Detail, error)
	Attachments(ctx context.Context, cnpj string, year, seq int) ([]Attachment, error)
}

// APIError is returned when PNCP responds with an unexpected status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pncp: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the consultation base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithItemBaseURL overrides the detail/attachment base URL.
func WithItemBaseURL(url string) Option {
	return func(c *httpClient) {
		c.itemBaseURL = url
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithPageSize sets the tamanhoPagina sent on listing requests.
func WithPageSize(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithRateLimit caps outbound requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		c.userAgent = ua
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	baseURL     string
	itemBaseURL string
	pageSize    int
	userAgent   string
	http        *http.Client
	limiter     *rate.Limiter
}

// NewClient creates a PNCP client with conservative defaults.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:     defaultBaseURL,
		itemBaseURL: defaultItemBaseURL,
		pageSize:    defaultPageSize,
		userAgent:   "radar-cli/1.0",
		limiter:     rate.NewLimiter(5, 5),
		http: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List fetches one page of auction notices published inside the window.
func (c *httpClient) List(ctx context.Context, w Window, modalityCode, page int) (*Page, error) {
	params := url.Values{
		"dataInicial":                 {w.From.Format("20060102")},
		"dataFinal":                   {w.To.Format("20060102")},
		"codigoModalidadeContratacao": {strconv.Itoa(modalityCode)},
		"pagina":                      {strconv.Itoa(page)},
		"tamanhoPagina":               {strconv.Itoa(c.pageSize)},
	}

	var out Page
	reqURL := c.baseURL + "/v1/contratacoes/publicacao?" + params.Encode()
	if err := c.get(ctx, reqURL, &out); err != nil {
		return nil, eris.Wrapf(err, "pncp: list page %d", page)
	}
	return &out, nil
}

// Detail fetches the authoritative per-notice record.
func (c *httpClient) Detail(ctx context.Context, cnpj string, year, seq int) (*Detail, error) {
	var out Detail
	reqURL := fmt.Sprintf("%s/v1/orgaos/%s/compras/%d/%d", c.itemBaseURL, cnpj, year, seq)
	if err := c.get(ctx, reqURL, &out); err != nil {
		return nil, eris.Wrapf(err, "pncp: detail %s/%d/%d", cnpj, year, seq)
	}
	return &out, nil
}

// Attachments lists the files published with a notice.
func (c *httpClient) Attachments(ctx context.Context, cnpj string, year, seq int) ([]Attachment, error) {
	var out []Attachment
	reqURL := fmt.Sprintf("%s/v1/orgaos/%s/compras/%d/%d/arquivos", c.itemBaseURL, cnpj, year, seq)
	if err := c.get(ctx, reqURL, &out); err != nil {
		return nil, eris.Wrapf(err, "pncp: attachments %s/%d/%d", cnpj, year, seq)
	}
	return out, nil
}

func (c *httpClient) get(ctx context.Context, reqURL string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	switch {
	case resp.StatusCode == http.StatusNoContent:
		// PNCP answers 204 for windows with no records.
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}

	return nil
}
