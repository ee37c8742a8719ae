// Package filter screens prompt records for policy-violating content.
//
// Screening has three tiers: hard-block keywords (L1), soft review keywords (L2)
// and NSFW image URL patterns. Only the part of a prompt before the negative
// prompt marker is scanned, since negative prompts list excluded concepts.
package filter

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/timmy/promptvault/internal/domain"
	"github.com/timmy/promptvault/internal/logger"
)

const (
	// ReviewThreshold is the number of distinct L2 hits that flags a record.
	ReviewThreshold = 2
	// MaxReviewReasons caps the L2 reasons recorded per record.
	MaxReviewReasons = 5

	maxURLInReason = 100
)

// ImageInspector is a reserved hook for image-content screening.
// A nil inspector skips the check.
type ImageInspector interface {
	Inspect(ctx context.Context, imageURL string, verdict *domain.FilterVerdict) error
}

// Options configures a Filter.
type Options struct {
	// LogDir receives one filter log per batch with flagged records. Empty disables logs.
	LogDir string

	ExtraBlockKeywords  []string
	ExtraReviewKeywords []string
	ExtraURLPatterns    []string

	Inspector ImageInspector
	Now       func() time.Time
}

type urlPattern struct {
	source string
	re     *regexp.Regexp
}

// Filter holds the keyword tables. It keeps no state between calls and is
// safe for concurrent use.
type Filter struct {
	block     []string
	review    []string
	urls      []urlPattern
	logDir    string
	inspector ImageInspector
	now       func() time.Time
}

// New builds a Filter from the built-in tables plus any configured extras.
// Parameters:
//   - opts: log directory, extra keywords and hooks.
// Returns:
//   - *Filter: ready filter.
//   - error: non-nil if an extra URL pattern is not a valid regular expression.
func New(opts Options) (*Filter, error) {
	f := &Filter{
		block:     lowerAll(BlockKeywords, opts.ExtraBlockKeywords),
		review:    lowerAll(ReviewKeywords, opts.ExtraReviewKeywords),
		logDir:    opts.LogDir,
		inspector: opts.Inspector,
		now:       opts.Now,
	}
	if f.now == nil {
		f.now = time.Now
	}

	for _, p := range append(append([]string{}, URLPatterns...), opts.ExtraURLPatterns...) {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid url pattern %q: %w", p, err)
		}
		f.urls = append(f.urls, urlPattern{source: p, re: re})
	}
	return f, nil
}

// lowerAll merges keyword lists, lowercased and without duplicates, so a
// configured extra that repeats a built-in term counts once.
func lowerAll(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]bool, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, kw := range list {
			kw = strings.ToLower(kw)
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true
			out = append(out, kw)
		}
	}
	return out
}

// Check screens one record's prompt and image URLs.
func (f *Filter) Check(rec *domain.PromptRecord) domain.FilterVerdict {
	verdict := f.CheckPrompt(rec.Prompt)
	if !verdict.Blocked {
		f.checkImageURLs(rec.Images, &verdict)
	}
	return verdict
}

// CheckPrompt screens prompt text against the L1 and L2 keyword lists.
func (f *Filter) CheckPrompt(text string) domain.FilterVerdict {
	var verdict domain.FilterVerdict
	main := strings.ToLower(domain.SplitNegative(text))

	for _, kw := range f.block {
		if strings.Contains(main, kw) {
			verdict.Block(fmt.Sprintf("L1 keyword hit: '%s'", kw))
			return verdict
		}
	}

	var hits []string
	for _, kw := range f.review {
		if strings.Contains(main, kw) {
			hits = append(hits, kw)
		}
	}
	if len(hits) < ReviewThreshold {
		return verdict
	}
	if len(hits) > MaxReviewReasons {
		hits = hits[:MaxReviewReasons]
	}
	for _, kw := range hits {
		verdict.Flag(fmt.Sprintf("L2 keyword hit: '%s'", kw))
	}
	return verdict
}

// CheckImageURLs screens image URLs against the NSFW URL patterns.
func (f *Filter) CheckImageURLs(urls []string) domain.FilterVerdict {
	var verdict domain.FilterVerdict
	f.checkImageURLs(urls, &verdict)
	return verdict
}

func (f *Filter) checkImageURLs(urls []string, verdict *domain.FilterVerdict) {
	for _, u := range urls {
		lower := strings.ToLower(u)
		for _, p := range f.urls {
			if p.re.MatchString(lower) {
				verdict.Block(fmt.Sprintf("NSFW URL pattern: '%s' in %s", p.source, truncate(u, maxURLInReason)))
				return
			}
		}
	}
}

// CheckImages runs the configured ImageInspector over each image URL.
// It is a no-op when no inspector is set.
func (f *Filter) CheckImages(ctx context.Context, rec *domain.PromptRecord, verdict *domain.FilterVerdict) error {
	if f.inspector == nil || verdict.Blocked {
		return nil
	}
	for _, u := range rec.Images {
		if err := f.inspector.Inspect(ctx, u, verdict); err != nil {
			return fmt.Errorf("inspect %s: %w", u, err)
		}
		if verdict.Blocked {
			return nil
		}
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Stats counts verdicts over one or more batches.
type Stats struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Flagged int `json:"flagged"`
	Blocked int `json:"blocked"`
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Total += other.Total
	s.Passed += other.Passed
	s.Flagged += other.Flagged
	s.Blocked += other.Blocked
}

// String renders the summary line printed after a batch.
func (s Stats) String() string {
	return fmt.Sprintf("Content Filter: %d checked, %d passed, %d flagged, %d blocked",
		s.Total, s.Passed, s.Flagged, s.Blocked)
}

// Flagged pairs a non-safe record with its verdict.
type Flagged struct {
	Record  domain.PromptRecord
	Verdict domain.FilterVerdict
}

// BatchResult partitions a batch. Relative order is preserved within each slice.
type BatchResult struct {
	Safe    []domain.PromptRecord
	Review  []Flagged
	Blocked []Flagged
	Stats   Stats
	LogPath string // empty when no log was written
}

// ReviewRecords returns the records sent to review.
func (r *BatchResult) ReviewRecords() []domain.PromptRecord {
	return records(r.Review)
}

// BlockedRecords returns the blocked records.
func (r *BatchResult) BlockedRecords() []domain.PromptRecord {
	return records(r.Blocked)
}

func records(items []Flagged) []domain.PromptRecord {
	out := make([]domain.PromptRecord, len(items))
	for i, it := range items {
		out[i] = it.Record
	}
	return out
}

// FilterItems screens a batch and writes a filter log when anything was flagged.
// Counters in the result cover this call only.
// Parameters:
//   - ctx: context for the image inspector and logging.
//   - recs: records to screen.
// Returns:
//   - *BatchResult: partition and counters; always non-nil.
//   - error: non-nil if the log write failed; the partition is still returned.
func (f *Filter) FilterItems(ctx context.Context, recs []domain.PromptRecord) (*BatchResult, error) {
	result := &BatchResult{Safe: []domain.PromptRecord{}}
	var flagged []LogItem

	for i := range recs {
		rec := recs[i]
		verdict := f.Check(&rec)
		if err := f.CheckImages(ctx, &rec, &verdict); err != nil {
			logger.CtxWarn(ctx, "image inspection failed for %s: %v", rec.ID, err)
		}

		result.Stats.Total++
		switch {
		case verdict.Blocked:
			result.Stats.Blocked++
			result.Blocked = append(result.Blocked, Flagged{Record: rec, Verdict: verdict})
		case verdict.NeedsReview:
			result.Stats.Flagged++
			result.Review = append(result.Review, Flagged{Record: rec, Verdict: verdict})
		default:
			result.Stats.Passed++
			result.Safe = append(result.Safe, rec)
			continue
		}
		flagged = append(flagged, newLogItem(&rec, verdict))
	}

	if len(flagged) == 0 || f.logDir == "" {
		return result, nil
	}

	path, err := writeLog(f.logDir, f.now(), result.Stats, flagged)
	if err != nil {
		return result, fmt.Errorf("write filter log: %w", err)
	}
	result.LogPath = path
	logger.CtxInfo(ctx, "Filter log saved: %s", path)
	return result, nil
}
