package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFileName), []byte(content), 0o644))
}

func TestFetchReadsManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"prompt":"a cat in a garden, soft light","tags":["Cat","garden"],"tool":"Flux"}
not json at all

{"prompt":"   "}
{"prompt":"neon koi pond","images":["https://img.test/koi.png"],"style":"Digital-Art","created_at":"2026-09-01"}
`)

	a := NewAdapter(dir)
	records, err := a.Fetch(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "a cat in a garden, soft light", records[0].Prompt)
	assert.Equal(t, []string{"cat", "garden"}, records[0].Tags)
	assert.Equal(t, "Flux", records[0].Tool)
	assert.Equal(t, "staging", records[0].SourceName)

	assert.Equal(t, "digital-art", records[1].Style)
	assert.Equal(t, "2026-09-01", records[1].CreatedAt)
	assert.Equal(t, []string{"general"}, records[1].Tags)
}

func TestFetchHonoursLimit(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "{\"prompt\":\"one\"}\n{\"prompt\":\"two\"}\n{\"prompt\":\"three\"}\n")

	records, err := NewAdapter(dir).Fetch(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestFetchMissingManifest(t *testing.T) {
	_, err := NewAdapter(t.TempDir()).Fetch(context.Background(), 10)
	assert.Error(t, err)
}
