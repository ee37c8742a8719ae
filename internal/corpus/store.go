// Package corpus stores the deduplicated prompt corpus as a single JSON file.
package corpus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/moby/sys/atomicwriter"
	"github.com/timmy/promptvault/internal/domain"
	"github.com/timmy/promptvault/internal/logger"
)

// ErrMalformedCorpus is returned when the corpus file exists but cannot be used.
var ErrMalformedCorpus = errors.New("malformed corpus")

// Store reads and rewrites one corpus file. A Store does not lock the file;
// callers serialize merges against the same path.
type Store struct {
	path string
	now  func() time.Time
}

// NewStore creates a store for the corpus at path.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the corpus file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the corpus. A missing file is an empty corpus.
// Returns:
//   - []domain.PromptRecord: records in file order.
//   - error: wraps ErrMalformedCorpus for invalid JSON or schema violations.
func (s *Store) Load() ([]domain.PromptRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.PromptRecord{}, nil
		}
		return nil, fmt.Errorf("failed to read corpus %s: %w", s.path, err)
	}
	return Decode(data)
}

// Decode validates and decodes corpus bytes.
func Decode(data []byte) ([]domain.PromptRecord, error) {
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCorpus, err)
	}

	sch, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to compile corpus schema: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCorpus, err)
	}

	var records []domain.PromptRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCorpus, err)
	}
	if records == nil {
		records = []domain.PromptRecord{}
	}
	return records, nil
}

// Encode renders records as pretty-printed JSON without HTML escaping.
func Encode(records []domain.PromptRecord) ([]byte, error) {
	if records == nil {
		records = []domain.PromptRecord{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save atomically replaces the corpus file with records.
func (s *Store) Save(records []domain.PromptRecord) error {
	data, err := Encode(records)
	if err != nil {
		return fmt.Errorf("failed to encode corpus: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create corpus directory: %w", err)
		}
	}
	if err := atomicwriter.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write corpus %s: %w", s.path, err)
	}
	return nil
}

// Merge loads the corpus, folds incoming into it and saves the result.
// Parameters:
//   - ctx: carries the logger.
//   - incoming: filtered records with provisional ids.
// Returns:
//   - *MergeStats: added, skipped, total and assigned ids.
//   - error: non-nil if the corpus is malformed or cannot be written.
func (s *Store) Merge(ctx context.Context, incoming []domain.PromptRecord) (*MergeStats, error) {
	existing, err := s.Load()
	if err != nil {
		return nil, err
	}

	merged, stats := MergeRecords(existing, incoming, s.now())
	if err := s.Save(merged); err != nil {
		return nil, err
	}

	logger.With(logger.Fields{
		logger.FieldCorpus: s.path,
		"added":            stats.Added,
		"skipped":          stats.Skipped,
		"total":            stats.Total,
	}).Info(ctx, "Corpus merged")
	return &stats, nil
}

// Remove deletes records by id and rewrites the corpus.
// The file is not rewritten when nothing matched.
func (s *Store) Remove(ctx context.Context, ids []string) (int, error) {
	records, err := s.Load()
	if err != nil {
		return 0, err
	}

	kept, removed := RemoveRecords(records, ids)
	if removed == 0 {
		return 0, nil
	}
	if err := s.Save(kept); err != nil {
		return 0, err
	}

	logger.CtxInfo(ctx, "Removed %d records from %s, %d remain", removed, s.path, len(kept))
	return removed, nil
}
