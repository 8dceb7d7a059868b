package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/lanceiro/radar-cli/internal/model"
)

// RegisterDomain records one counterpart-domain sighting. The first example
// URL is kept; occurrences and last_seen advance on every later sighting.
func (s *Store) RegisterDomain(ctx context.Context, domain, exampleURL string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO counterpart_domains (domain, example_url, occurrences, first_seen, last_seen)
		 VALUES ($1, $2, 1, now(), now())
		 ON CONFLICT (domain) DO UPDATE SET
			occurrences = counterpart_domains.occurrences + 1,
			last_seen   = now()`,
		domain, exampleURL,
	)
	return eris.Wrapf(err, "store: register domain %s", domain)
}

// ListDomains returns registry rows, most-sighted first.
func (s *Store) ListDomains(ctx context.Context, limit int) ([]model.CounterpartDomain, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT domain, example_url, occurrences, first_seen, last_seen
		 FROM counterpart_domains ORDER BY occurrences DESC, domain ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: list domains")
	}
	defer rows.Close()

	var domains []model.CounterpartDomain
	for rows.Next() {
		var d model.CounterpartDomain
		if err := rows.Scan(&d.Domain, &d.ExampleURL, &d.Occurrences, &d.FirstSeen, &d.LastSeen); err != nil {
			return nil, eris.Wrap(err, "store: scan domain")
		}
		domains = append(domains, d)
	}
	return domains, eris.Wrap(rows.Err(), "store: list domains iterate")
}
