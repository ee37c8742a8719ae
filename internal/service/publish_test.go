package service

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/promptvault/internal/corpus"
	"github.com/timmy/promptvault/internal/storage"
)

type memStorage struct {
	objects      map[string][]byte
	contentTypes map[string]string
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (m *memStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.objects[key] = data
	m.contentTypes[key] = contentType
	return nil
}

func (m *memStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStorage) GetURL(key string) string { return "https://cdn.test/" + key }

func (m *memStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.objects[key]
	return ok, nil
}

func TestPublishUploadsCorpus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.json")
	require.NoError(t, corpus.NewStore(path).Save(promptRecords("a cat in a garden", "neon city street")))

	mem := newMemStorage()
	res, err := NewPublishService(mem, "").Publish(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "data/prompts.json", res.Key)
	assert.Equal(t, "https://cdn.test/data/prompts.json", res.URL)
	assert.Equal(t, 2, res.Records)
	assert.Equal(t, int64(len(mem.objects["data/prompts.json"])), res.Size)
	assert.Equal(t, "application/json; charset=utf-8", mem.contentTypes["data/prompts.json"])
}

func TestPublishRejectsMalformedCorpus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.json")
	require.NoError(t, writeFile(path, `[{"prompt": "   "}]`))

	mem := newMemStorage()
	_, err := NewPublishService(mem, "corpus.json").Publish(context.Background(), path)
	assert.ErrorIs(t, err, corpus.ErrMalformedCorpus)
	assert.Empty(t, mem.objects)
}

func TestPublishMissingCorpus(t *testing.T) {
	_, err := NewPublishService(newMemStorage(), "").Publish(context.Background(),
		filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestPullReplacesLocalCorpus(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.json")
	require.NoError(t, corpus.NewStore(src).Save(promptRecords("a cat in a garden")))

	mem := newMemStorage()
	svc := NewPublishService(mem, "")
	_, err := svc.Publish(context.Background(), src)
	require.NoError(t, err)

	dst := filepath.Join(dir, "nested", "prompts.json")
	n, err := svc.Pull(context.Background(), dst)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := corpus.NewStore(dst).Load()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a cat in a garden", got[0].Prompt)
}

func TestPullMissingObject(t *testing.T) {
	_, err := NewPublishService(newMemStorage(), "").Pull(context.Background(),
		filepath.Join(t.TempDir(), "prompts.json"))
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}
