package corpus

import (
	"time"

	"github.com/timmy/promptvault/internal/domain"
)

// MergeStats summarizes one merge.
type MergeStats struct {
	Added    int      `json:"added"`
	Skipped  int      `json:"skipped"`
	Total    int      `json:"total"`
	AddedIDs []string `json:"added_ids"`
}

// MergeRecords folds incoming into existing, skipping records whose prefix key
// is already present and records with an empty prompt. Accepted records get an id whose sequence is the corpus
// length at insertion time plus one, bumped past any id already in use.
// Parameters:
//   - existing: current corpus; not modified.
//   - incoming: records to add, in order.
//   - now: date used when a provisional id has no date segment.
// Returns:
//   - []domain.PromptRecord: the merged corpus.
//   - MergeStats: counters and the ids assigned to added records.
func MergeRecords(existing, incoming []domain.PromptRecord, now time.Time) ([]domain.PromptRecord, MergeStats) {
	merged := make([]domain.PromptRecord, len(existing), len(existing)+len(incoming))
	copy(merged, existing)

	keys := make(map[string]struct{}, len(merged)+len(incoming))
	ids := make(map[string]struct{}, len(merged)+len(incoming))
	for i := range merged {
		keys[merged[i].PrefixKey()] = struct{}{}
		if merged[i].ID != "" {
			ids[merged[i].ID] = struct{}{}
		}
	}

	stats := MergeStats{AddedIDs: []string{}}
	for _, rec := range incoming {
		if rec.Validate() != nil {
			stats.Skipped++
			continue
		}
		key := rec.PrefixKey()
		if _, dup := keys[key]; dup {
			stats.Skipped++
			continue
		}

		prefix, ok := domain.IDPrefix(rec.ID)
		if !ok {
			prefix = now.Format(domain.IDDateLayout) + "_" + domain.SourceCode(rec.SourceName)
		}
		seq := len(merged) + 1
		id := domain.WithSequence(prefix, seq)
		for {
			if _, taken := ids[id]; !taken {
				break
			}
			seq++
			id = domain.WithSequence(prefix, seq)
		}

		rec.ID = id
		merged = append(merged, rec)
		keys[key] = struct{}{}
		ids[id] = struct{}{}
		stats.Added++
		stats.AddedIDs = append(stats.AddedIDs, id)
	}

	stats.Total = len(merged)
	return merged, stats
}

// RemoveRecords drops every record whose id is in ids, preserving order.
func RemoveRecords(records []domain.PromptRecord, ids []string) ([]domain.PromptRecord, int) {
	if len(ids) == 0 {
		return records, 0
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	kept := make([]domain.PromptRecord, 0, len(records))
	for _, rec := range records {
		if _, ok := drop[rec.ID]; ok {
			continue
		}
		kept = append(kept, rec)
	}
	return kept, len(records) - len(kept)
}
