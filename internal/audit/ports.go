package audit

import "context"

// Sink durably stores batches of audit entries. Sinks are ranked: flush walks
// the list until one succeeds, query returns the first sink that answers.
type Sink interface {
	// Insert persists a batch as a single write.
	Insert(ctx context.Context, entries []Entry) error

	// Select returns entries matching the filter, ordered by timestamp
	// descending, paged by limit/offset.
	Select(ctx context.Context, f Filter, limit, offset int) ([]Entry, error)
}
