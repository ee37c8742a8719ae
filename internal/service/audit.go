package service

import (
	"context"
	"fmt"
	"os"

	"github.com/timmy/promptvault/internal/corpus"
	"github.com/timmy/promptvault/internal/filter"
	"github.com/timmy/promptvault/internal/logger"
)

// ConfirmFunc asks the operator whether blocked records may be removed.
type ConfirmFunc func(blocked []filter.Flagged) bool

// AuditReport summarizes an audit of an existing corpus.
type AuditReport struct {
	Total     int
	Stats     filter.Stats
	Blocked   []filter.Flagged
	Review    []filter.Flagged
	LogPath   string
	Confirmed bool
	Removed   int
	Remaining int
}

// Clean reports whether every record passed.
func (r *AuditReport) Clean() bool {
	return len(r.Blocked) == 0 && len(r.Review) == 0
}

// AuditService re-screens a persisted corpus.
type AuditService struct {
	filter *filter.Filter
}

// NewAuditService creates an audit service.
func NewAuditService(contentFilter *filter.Filter) *AuditService {
	return &AuditService{filter: contentFilter}
}

// Audit filters every record of the corpus. Blocked records are removed only
// when confirm returns true; review records are never removed.
// Parameters:
//   - ctx: context for logging.
//   - store: corpus to audit; the file must exist.
//   - confirm: operator confirmation, asked only when something is blocked. Nil means no.
// Returns:
//   - *AuditReport: findings and what was removed.
//   - error: non-nil if the corpus is missing, malformed or cannot be rewritten.
func (s *AuditService) Audit(ctx context.Context, store *corpus.Store, confirm ConfirmFunc) (*AuditReport, error) {
	if _, err := os.Stat(store.Path()); err != nil {
		return nil, fmt.Errorf("corpus not found: %w", err)
	}
	records, err := store.Load()
	if err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "Auditing %d existing prompts in %s", len(records), store.Path())
	res, err := s.filter.FilterItems(ctx, records)
	if err != nil {
		logger.CtxWarn(ctx, "audit: %v", err)
	}

	report := &AuditReport{
		Total:     len(records),
		Stats:     res.Stats,
		Blocked:   res.Blocked,
		Review:    res.Review,
		LogPath:   res.LogPath,
		Remaining: len(records),
	}
	if len(report.Blocked) == 0 || confirm == nil {
		return report, nil
	}

	report.Confirmed = confirm(report.Blocked)
	if !report.Confirmed {
		return report, nil
	}

	ids := make([]string, 0, len(report.Blocked))
	for _, b := range report.Blocked {
		if b.Record.ID != "" {
			ids = append(ids, b.Record.ID)
		}
	}
	removed, err := store.Remove(ctx, ids)
	if err != nil {
		return report, fmt.Errorf("failed to remove blocked records: %w", err)
	}
	report.Removed = removed
	report.Remaining = len(records) - removed
	return report, nil
}
