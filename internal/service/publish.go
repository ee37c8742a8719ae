package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/timmy/promptvault/internal/corpus"
	"github.com/timmy/promptvault/internal/logger"
	"github.com/timmy/promptvault/internal/storage"
)

const corpusContentType = "application/json; charset=utf-8"

// PublishResult describes an uploaded corpus.
type PublishResult struct {
	Key     string
	URL     string
	Size    int64
	Records int
}

// PublishService copies the corpus file to object storage for the static gallery.
type PublishService struct {
	storage storage.ObjectStorage
	key     string
}

// NewPublishService creates a publish service.
// Parameters:
//   - objectStorage: destination bucket client.
//   - key: object key of the corpus, e.g. data/prompts.json.
// Returns:
//   - *PublishService: ready service.
func NewPublishService(objectStorage storage.ObjectStorage, key string) *PublishService {
	if key == "" {
		key = "data/prompts.json"
	}
	return &PublishService{storage: objectStorage, key: key}
}

// Publish validates the local corpus and uploads it.
// A malformed corpus is never uploaded.
func (s *PublishService) Publish(ctx context.Context, corpusPath string) (*PublishResult, error) {
	data, err := os.ReadFile(corpusPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}
	records, err := corpus.Decode(data)
	if err != nil {
		return nil, err
	}

	if err := s.storage.Upload(ctx, s.key, bytes.NewReader(data), int64(len(data)), corpusContentType); err != nil {
		return nil, err
	}

	result := &PublishResult{
		Key:     s.key,
		URL:     s.storage.GetURL(s.key),
		Size:    int64(len(data)),
		Records: len(records),
	}
	logger.With(logger.Fields{
		logger.FieldCorpus: corpusPath,
		logger.FieldSize:   result.Size,
	}).WithCount(result.Records).Info(ctx, "Corpus published to %s", result.URL)
	return result, nil
}

// Pull downloads the published corpus and replaces the local file with it.
// Returns the number of records written.
func (s *PublishService) Pull(ctx context.Context, corpusPath string) (int, error) {
	body, err := s.storage.Download(ctx, s.key)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return 0, fmt.Errorf("failed to read published corpus: %w", err)
	}
	records, err := corpus.Decode(data)
	if err != nil {
		return 0, fmt.Errorf("published corpus: %w", err)
	}

	if err := corpus.NewStore(corpusPath).Save(records); err != nil {
		return 0, err
	}
	logger.CtxInfo(ctx, "Pulled %d records from %s into %s", len(records), s.key, corpusPath)
	return len(records), nil
}
