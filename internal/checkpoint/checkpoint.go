// Package checkpoint tracks which notices have already been inserted so a
// collect run only creates records on first sight. A hit means the record
// exists and may still be re-resolved later; dedup governs insertion, not
// re-processing.
package checkpoint

import "context"

// Store is the seen-set consulted before inserting a notice.
type Store interface {
	HasSeen(ctx context.Context, externalID string) (bool, error)
	MarkSeen(ctx context.Context, externalID string) error
	Count(ctx context.Context) (int64, error)
	Close() error
}
