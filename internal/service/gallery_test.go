package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/promptvault/internal/corpus"
	"github.com/timmy/promptvault/internal/domain"
)

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func galleryRecords() []domain.PromptRecord {
	return []domain.PromptRecord{
		{ID: "p1", Prompt: "a red fox in the snow", Tags: []string{"animal", "winter"},
			Style: "watercolor", Tool: "Midjourney", Author: "kit"},
		{ID: "p2", Prompt: "neon city street at night", Tags: []string{"city", "night"},
			Style: "cyberpunk", Tool: "Stable Diffusion", Author: "neo"},
		{ID: "p3", Prompt: "a fox cub sleeping", Tags: []string{"animal"},
			Style: "photo", Tool: "Flux", SourceName: "civitai"},
	}
}

func newGallery(t *testing.T) (*GalleryService, *corpus.Store) {
	t.Helper()
	store := corpus.NewStore(filepath.Join(t.TempDir(), "prompts.json"))
	require.NoError(t, store.Save(galleryRecords()))
	g := NewGalleryService(store)
	require.NoError(t, g.Reload())
	return g, store
}

func pageIDs(p PromptPage) []string {
	ids := make([]string, 0, len(p.Items))
	for _, rec := range p.Items {
		ids = append(ids, rec.ID)
	}
	return ids
}

func TestGalleryQuery(t *testing.T) {
	g, _ := newGallery(t)

	tests := []struct {
		name  string
		query PromptQuery
		want  []string
	}{
		{name: "everything", query: PromptQuery{}, want: []string{"p1", "p2", "p3"}},
		{name: "all filter", query: PromptQuery{Filter: "all"}, want: []string{"p1", "p2", "p3"}},
		{name: "tag", query: PromptQuery{Filter: "animal"}, want: []string{"p1", "p3"}},
		{name: "tag substring", query: PromptQuery{Filter: "anim"}, want: []string{"p1", "p3"}},
		{name: "exact tool", query: PromptQuery{Filter: "Flux"}, want: []string{"p3"}},
		{name: "exact style", query: PromptQuery{Filter: "cyberpunk"}, want: []string{"p2"}},
		{name: "search is case insensitive", query: PromptQuery{Query: "FOX"}, want: []string{"p1", "p3"}},
		{name: "search author", query: PromptQuery{Query: "kit"}, want: []string{"p1"}},
		{name: "search tool", query: PromptQuery{Query: "stable"}, want: []string{"p2"}},
		{name: "search tags", query: PromptQuery{Query: "winter"}, want: []string{"p1"}},
		{name: "filter and search", query: PromptQuery{Filter: "animal", Query: "cub"}, want: []string{"p3"}},
		{name: "no match", query: PromptQuery{Query: "dragon"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := g.Query(tt.query)
			assert.Equal(t, tt.want, pageIDs(page))
			assert.Equal(t, len(tt.want), page.Total)
		})
	}
}

func TestGalleryPagination(t *testing.T) {
	g, _ := newGallery(t)

	first := g.Query(PromptQuery{Page: 1, PageSize: 2})
	assert.Equal(t, []string{"p1", "p2"}, pageIDs(first))
	assert.True(t, first.HasMore)

	second := g.Query(PromptQuery{Page: 2, PageSize: 2})
	assert.Equal(t, []string{"p3"}, pageIDs(second))
	assert.False(t, second.HasMore)
	assert.Equal(t, 3, second.Total)

	past := g.Query(PromptQuery{Page: 9, PageSize: 2})
	assert.Empty(t, past.Items)
	assert.NotNil(t, past.Items)

	clamped := g.Query(PromptQuery{Page: -1, PageSize: 1000})
	assert.Equal(t, 1, clamped.Page)
	assert.Equal(t, MaxPageSize, clamped.PageSize)
	assert.Equal(t, DefaultPageSize, g.Query(PromptQuery{}).PageSize)
}

func TestGalleryGet(t *testing.T) {
	g, _ := newGallery(t)

	rec, ok := g.Get("p2")
	require.True(t, ok)
	assert.Equal(t, "neon city street at night", rec.Prompt)

	_, ok = g.Get("missing")
	assert.False(t, ok)
}

func TestGalleryTags(t *testing.T) {
	g, _ := newGallery(t)

	assert.Equal(t, []TagCount{
		{Tag: "animal", Count: 2},
		{Tag: "winter", Count: 1},
		{Tag: "city", Count: 1},
		{Tag: "night", Count: 1},
	}, g.Tags(0))
	assert.Len(t, g.Tags(2), 2)
}

func TestGalleryStats(t *testing.T) {
	g, _ := newGallery(t)

	stats := g.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, map[string]int{"Midjourney": 1, "Stable Diffusion": 1, "Flux": 1}, stats.ByTool)
	assert.Equal(t, map[string]int{"unknown": 2, "civitai": 1}, stats.BySource)
	assert.False(t, stats.LoadedAt.IsZero())
}

func TestGalleryReloadKeepsSnapshotOnError(t *testing.T) {
	g, store := newGallery(t)
	require.NoError(t, writeFile(store.Path(), "not json"))

	err := g.Reload()
	assert.ErrorIs(t, err, corpus.ErrMalformedCorpus)
	assert.Equal(t, 3, g.Len())
}

func TestGalleryWatchReloadsOnWrite(t *testing.T) {
	g, store := newGallery(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Watch(ctx) }()

	updated := append(galleryRecords(), domain.PromptRecord{ID: "p4", Prompt: "a lighthouse at dusk"})
	require.Eventually(t, func() bool {
		if err := store.Save(updated); err != nil {
			return false
		}
		return g.Len() == 4
	}, 5*time.Second, 50*time.Millisecond)

	_, ok := g.Get("p4")
	assert.True(t, ok)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
