package source

import (
	"context"

	"github.com/timmy/promptvault/internal/domain"
)

// Adapter defines the contract every prompt source satisfies.
type Adapter interface {
	// GetName returns the short machine key for this source.
	// Parameters: none.
	// Returns:
	//   - string: stable source key; its first three characters appear in record ids.
	GetName() string

	// GetDisplayName returns a human-readable name for this source.
	// Parameters: none.
	// Returns:
	//   - string: display-friendly source name.
	GetDisplayName() string

	// GetBaseURL returns the website the source scrapes.
	// Parameters: none.
	// Returns:
	//   - string: base URL of the source site.
	GetBaseURL() string

	// Fetch collects up to limit normalized records.
	// Items that fail to parse are skipped. A source that cannot be reached
	// returns an empty slice or an error; callers treat both as zero results.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - limit: maximum number of records to return.
	// Returns:
	//   - []domain.PromptRecord: records without ids.
	//   - error: non-nil when the whole source failed.
	Fetch(ctx context.Context, limit int) ([]domain.PromptRecord, error)
}

// Truncate caps records at limit.
func Truncate(records []domain.PromptRecord, limit int) []domain.PromptRecord {
	if limit >= 0 && len(records) > limit {
		return records[:limit]
	}
	return records
}
