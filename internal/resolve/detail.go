package resolve

import (
	"context"
	"errors"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"

	"github.com/lanceiro/radar-cli/internal/resilience"
	"github.com/lanceiro/radar-cli/pkg/pncp"
)

// DetailFetcher memoizes per-notice detail lookups for the duration of a run
// and guards them with a circuit breaker, so a failing endpoint stops
// costing one extra call per record and the cascade degrades to local
// sources.
type DetailFetcher struct {
	client  pncp.Client
	breaker *resilience.CircuitBreaker
	memo    *cache.Cache
}

// NewDetailFetcher wires the client behind a breaker and a TTL memo.
func NewDetailFetcher(client pncp.Client, breaker *resilience.CircuitBreaker, ttl time.Duration) *DetailFetcher {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &DetailFetcher{
		client:  client,
		breaker: breaker,
		memo:    cache.New(ttl, 2*ttl),
	}
}

// Fetch returns the authoritative detail for an external id. Not-found is a
// miss (nil, nil), cached negatively so one notice never asks twice.
// Breaker-open and transport errors surface to the caller.
func (f *DetailFetcher) Fetch(ctx context.Context, externalID string) (*pncp.Detail, error) {
	if v, ok := f.memo.Get(externalID); ok {
		d, _ := v.(*pncp.Detail)
		return d, nil
	}

	cnpj, year, seq, err := pncp.ParseExternalID(externalID)
	if err != nil {
		return nil, eris.Wrap(err, "resolve: detail lookup id")
	}

	d, err := resilience.ExecuteVal(ctx, f.breaker, func(ctx context.Context) (*pncp.Detail, error) {
		d, err := f.client.Detail(ctx, cnpj, year, seq)
		if err != nil && errors.Is(err, pncp.ErrNotFound) {
			// Missing detail records are normal and must not trip the breaker.
			return nil, nil
		}
		return d, err
	})
	if err != nil {
		return nil, err
	}

	f.memo.Set(externalID, d, cache.DefaultExpiration)
	return d, nil
}

// FetchRecord adapts Fetch to the DetailLookup strategy signature.
func (f *DetailFetcher) FetchRecord(ctx context.Context, r *Record) (*pncp.Detail, error) {
	return f.Fetch(ctx, r.ExternalID)
}
