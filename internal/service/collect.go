package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/moby/sys/atomicwriter"
	"github.com/timmy/promptvault/internal/corpus"
	"github.com/timmy/promptvault/internal/domain"
	"github.com/timmy/promptvault/internal/filter"
	"github.com/timmy/promptvault/internal/logger"
	"github.com/timmy/promptvault/internal/source"
)

// AllSources selects every registered adapter.
const AllSources = "all"

const batchTimeLayout = "20060102_1504"

// RunRecorder persists the collect-run ledger. Implemented by repository.CollectRunRepository.
type RunRecorder interface {
	Create(ctx context.Context, run *domain.CollectRun) error
	Update(ctx context.Context, run *domain.CollectRun) error
}

// CorpusPublisher uploads a corpus file after a merge.
type CorpusPublisher interface {
	Publish(ctx context.Context, corpusPath string) (*PublishResult, error)
}

// CollectConfig holds configuration for the collect service
type CollectConfig struct {
	OutputDir         string
	CorpusPath        string
	DefaultLimit      int
	PublishAfterMerge bool
}

// CollectService runs adapters one at a time and folds their output into the corpus.
type CollectService struct {
	registry  *source.Registry
	filter    *filter.Filter
	recorder  RunRecorder
	publisher CorpusPublisher
	logger    *logger.Logger
	cfg       CollectConfig
	now       func() time.Time
}

// NewCollectService creates a new collect service.
// Parameters:
//   - registry: adapters available to the run.
//   - contentFilter: filter applied before merging.
//   - recorder: optional run ledger; nil disables recording.
//   - publisher: optional corpus publisher; nil disables publishing.
//   - log: fallback logger.
//   - cfg: output locations and defaults.
// Returns:
//   - *CollectService: ready service.
func NewCollectService(
	registry *source.Registry,
	contentFilter *filter.Filter,
	recorder RunRecorder,
	publisher CorpusPublisher,
	log *logger.Logger,
	cfg *CollectConfig,
) *CollectService {
	if log == nil {
		log = logger.GetDefault()
	}
	return &CollectService{
		registry:  registry,
		filter:    contentFilter,
		recorder:  recorder,
		publisher: publisher,
		logger:    log,
		cfg:       *cfg,
		now:       time.Now,
	}
}

// log returns a logger from context if available, otherwise returns the service logger
func (s *CollectService) log(ctx context.Context) *logger.Logger {
	return logger.FromContextOr(ctx, s.logger)
}

// RunOptions controls one collect run.
type RunOptions struct {
	Limit      int
	Merge      bool
	NoFilter   bool
	CorpusPath string // overrides CollectConfig.CorpusPath
}

// SourceReport describes what happened to one requested adapter.
type SourceReport struct {
	Name        string
	DisplayName string
	RunID       string
	Fetched     int
	OutputFile  string
	FetchErr    error // source unavailable; the run continues with zero records
	Filter      *filter.Stats
	FilterLog   string
	Review      []filter.Flagged
	Blocked     []filter.Flagged
	Merge       *corpus.MergeStats
	Published   *PublishResult
	Err         error // unknown adapter or a corpus failure
	Duration    time.Duration
}

// Failed reports whether the source could not be collected or merged.
func (r *SourceReport) Failed() bool {
	return r.Err != nil
}

// RunReport aggregates a multi-source run.
type RunReport struct {
	Sources []SourceReport
	Filter  filter.Stats // totals across every filtered batch in this run
	Added   int
	Skipped int
}

// Failures returns the number of sources that failed.
func (r *RunReport) Failures() int {
	n := 0
	for i := range r.Sources {
		if r.Sources[i].Failed() {
			n++
		}
	}
	return n
}

// ResolveNames expands "all" into every registered adapter name.
func (s *CollectService) ResolveNames(name string) []string {
	if name == "" || strings.EqualFold(name, AllSources) {
		return s.registry.Names()
	}
	return []string{name}
}

// Known reports whether name is "all" or a registered adapter.
func (s *CollectService) Known(name string) bool {
	return name == "" || strings.EqualFold(name, AllSources) || s.registry.Has(name)
}

// Run collects from each named adapter in order. A failing source never
// aborts the sources after it.
// Parameters:
//   - ctx: context for cancellation; checked between sources.
//   - names: adapter names, typically from ResolveNames.
//   - opts: limit, merge and filter switches.
// Returns:
//   - *RunReport: one SourceReport per name plus run totals.
func (s *CollectService) Run(ctx context.Context, names []string, opts RunOptions) *RunReport {
	if opts.Limit <= 0 {
		opts.Limit = s.cfg.DefaultLimit
	}
	if opts.CorpusPath == "" {
		opts.CorpusPath = s.cfg.CorpusPath
	}

	report := &RunReport{Sources: make([]SourceReport, 0, len(names))}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			report.Sources = append(report.Sources, SourceReport{Name: name, Err: err})
			continue
		}

		sr := s.runSource(ctx, name, opts)
		if sr.Filter != nil {
			report.Filter.Add(*sr.Filter)
		}
		if sr.Merge != nil {
			report.Added += sr.Merge.Added
			report.Skipped += sr.Merge.Skipped
		}
		report.Sources = append(report.Sources, sr)
	}
	return report
}

func (s *CollectService) runSource(ctx context.Context, name string, opts RunOptions) (sr SourceReport) {
	start := s.now()
	began := time.Now()
	sr = SourceReport{Name: name}
	defer func() {
		sr.Duration = time.Since(began)
		status := domain.RunStatusCompleted
		if sr.Failed() {
			status = domain.RunStatusFailed
		}
		logger.With(logger.Fields{logger.FieldSource: name}).
			WithCount(sr.Fetched).
			WithDuration(sr.Duration.Milliseconds()).
			WithStatus(string(status)).
			Info(s.log(ctx).WithContext(ctx), "Source finished")
	}()

	adapter, err := s.registry.Get(name)
	if err != nil {
		sr.Err = err
		s.log(ctx).WithError(err).Error("Unknown adapter")
		return sr
	}
	sr.DisplayName = adapter.GetDisplayName()

	ctx = s.log(ctx).WithField(logger.FieldSource, name).WithContext(ctx)
	run := s.startRun(ctx, name, start)
	if run != nil {
		sr.RunID = run.ID
		ctx = s.log(ctx).WithField(logger.FieldRunID, run.ID).WithContext(ctx)
	}
	var problems []string

	s.log(ctx).Infof("[%s] Fetching up to %d prompts...", sr.DisplayName, opts.Limit)
	records, err := adapter.Fetch(ctx, opts.Limit)
	if err != nil {
		sr.FetchErr = err
		problems = append(problems, "fetch: "+err.Error())
		s.log(ctx).WithError(err).Warn("Source unavailable, continuing with zero results")
		records = nil
	}
	records = source.Truncate(records, opts.Limit)
	stampBatch(records, name, start)
	sr.Fetched = len(records)

	if s.cfg.OutputDir != "" {
		path, err := saveBatch(s.cfg.OutputDir, name, start, records)
		if err != nil {
			problems = append(problems, "save batch: "+err.Error())
			s.log(ctx).WithError(err).Warn("Failed to save raw batch")
		} else {
			sr.OutputFile = path
			s.log(ctx).Infof("[%s] Got %d prompts, saved to %s", sr.DisplayName, len(records), path)
		}
	}

	if opts.Merge {
		s.mergeBatch(ctx, &sr, records, opts, &problems)
	}

	s.finishRun(ctx, run, &sr, problems)
	return sr
}

func (s *CollectService) mergeBatch(ctx context.Context, sr *SourceReport, records []domain.PromptRecord, opts RunOptions, problems *[]string) {
	safe := records
	if !opts.NoFilter && s.filter != nil {
		res, err := s.filter.FilterItems(ctx, records)
		if err != nil {
			*problems = append(*problems, err.Error())
			s.log(ctx).WithError(err).Warn("Filter log not written")
		}
		stats := res.Stats
		sr.Filter = &stats
		sr.FilterLog = res.LogPath
		sr.Review = res.Review
		sr.Blocked = res.Blocked
		safe = res.Safe

		for _, b := range res.Blocked {
			s.log(ctx).WithFields(logger.Fields{
				"id":      b.Record.ID,
				"reasons": b.Verdict.Reasons,
			}).Warn("Blocked record")
		}
	}

	store := corpus.NewStore(opts.CorpusPath)
	stats, err := store.Merge(ctx, safe)
	if err != nil {
		sr.Err = fmt.Errorf("merge into %s: %w", opts.CorpusPath, err)
		*problems = append(*problems, sr.Err.Error())
		s.log(ctx).WithError(err).Error("Merge failed")
		return
	}
	sr.Merge = stats

	if !s.cfg.PublishAfterMerge || s.publisher == nil {
		return
	}
	published, err := s.publisher.Publish(ctx, opts.CorpusPath)
	if err != nil {
		*problems = append(*problems, "publish: "+err.Error())
		s.log(ctx).WithError(err).Warn("Publish after merge failed")
		return
	}
	sr.Published = published
}

func (s *CollectService) startRun(ctx context.Context, name string, start time.Time) *domain.CollectRun {
	if s.recorder == nil {
		return nil
	}
	run := &domain.CollectRun{Source: name, Status: domain.RunStatusRunning, StartedAt: start}
	if err := s.recorder.Create(ctx, run); err != nil {
		s.log(ctx).WithError(err).Warn("Failed to record collect run")
		return nil
	}
	return run
}

func (s *CollectService) finishRun(ctx context.Context, run *domain.CollectRun, sr *SourceReport, problems []string) {
	if run == nil {
		return
	}
	done := s.now()
	run.CompletedAt = &done
	run.Fetched = sr.Fetched
	run.OutputFile = sr.OutputFile
	run.ErrorLog = strings.Join(problems, "\n")
	if sr.Filter != nil {
		run.Passed = sr.Filter.Passed
		run.Flagged = sr.Filter.Flagged
		run.Blocked = sr.Filter.Blocked
	}
	if sr.Merge != nil {
		run.Added = sr.Merge.Added
		run.Skipped = sr.Merge.Skipped
		run.CorpusTotal = sr.Merge.Total
		run.AddedIDs = sr.Merge.AddedIDs
	}
	run.Status = domain.RunStatusCompleted
	if sr.Failed() {
		run.Status = domain.RunStatusFailed
	}

	if err := s.recorder.Update(ctx, run); err != nil {
		s.log(ctx).WithError(err).Warn("Failed to update collect run")
	}
}

// stampBatch sets the adapter name and provisional ids 1..n.
func stampBatch(records []domain.PromptRecord, name string, now time.Time) {
	for i := range records {
		records[i].SourceName = name
		records[i].ID = domain.GenerateID(now, name, i+1)
	}
}

// saveBatch writes the raw batch to {dir}/{name}_{YYYYMMDD_HHMM}.json.
func saveBatch(dir, name string, now time.Time, records []domain.PromptRecord) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	data, err := corpus.Encode(records)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.json", name, now.Format(batchTimeLayout)))
	if err := atomicwriter.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// IsConfigurationError reports whether err is an unknown-adapter error.
func IsConfigurationError(err error) bool {
	var cfgErr *source.ConfigurationError
	return errors.As(err, &cfgErr)
}
