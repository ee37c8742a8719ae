package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/timmy/promptvault/internal/corpus"
	"github.com/timmy/promptvault/internal/domain"
	"github.com/timmy/promptvault/internal/logger"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	DefaultTopTags  = 15

	// filterAll disables the gallery filter.
	filterAll = "all"
)

// PromptQuery selects a page of the gallery.
type PromptQuery struct {
	Query    string // lowercase substring of prompt, tags, author or tool
	Filter   string // tag substring, exact style or exact tool
	Page     int
	PageSize int
}

// PromptPage is one page of matching records.
type PromptPage struct {
	Items    []domain.PromptRecord `json:"items"`
	Total    int                   `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
	HasMore  bool                  `json:"has_more"`
}

// TagCount is the number of records carrying a tag.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// GalleryStats summarizes the loaded corpus.
type GalleryStats struct {
	Total    int            `json:"total"`
	ByTool   map[string]int `json:"by_tool"`
	ByStyle  map[string]int `json:"by_style"`
	BySource map[string]int `json:"by_source"`
	LoadedAt time.Time      `json:"loaded_at"`
}

// GalleryService serves read-only queries over an in-memory corpus snapshot.
type GalleryService struct {
	store *corpus.Store

	mu       sync.RWMutex
	records  []domain.PromptRecord
	byID     map[string]int
	loadedAt time.Time
}

// NewGalleryService creates a gallery over store. Call Reload before serving.
func NewGalleryService(store *corpus.Store) *GalleryService {
	return &GalleryService{store: store, byID: map[string]int{}}
}

// Reload replaces the snapshot with the current corpus file.
// The previous snapshot is kept when the file is malformed.
func (g *GalleryService) Reload() error {
	records, err := g.store.Load()
	if err != nil {
		return err
	}

	byID := make(map[string]int, len(records))
	for i, rec := range records {
		if rec.ID != "" {
			byID[rec.ID] = i
		}
	}

	g.mu.Lock()
	g.records = records
	g.byID = byID
	g.loadedAt = time.Now()
	g.mu.Unlock()
	return nil
}

// Watch reloads the snapshot whenever the corpus file changes. It blocks
// until ctx is done.
// Parameters:
//   - ctx: stops the watcher when cancelled.
// Returns:
//   - error: non-nil if the watcher cannot be started.
func (g *GalleryService) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(g.store.Path())
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	target := filepath.Base(g.store.Path())
	ctx = logger.SetComponent(ctx, "gallery")
	log := logger.FromContext(ctx)
	log.WithField(logger.FieldCorpus, g.store.Path()).Info("Watching corpus for changes")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if err := g.Reload(); err != nil {
				log.WithError(err).Warn("Corpus reload failed, keeping previous snapshot")
				continue
			}
			log.WithField(logger.FieldCount, g.Len()).Info("Corpus reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("Corpus watcher error")
		}
	}
}

// Len returns the number of records in the snapshot.
func (g *GalleryService) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.records)
}

// Query returns one page of records matching q, in corpus order.
func (g *GalleryService) Query(q PromptQuery) PromptPage {
	page, size := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	search := strings.ToLower(strings.TrimSpace(q.Query))
	filterKey := strings.TrimSpace(q.Filter)
	if filterKey == filterAll {
		filterKey = ""
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	matched := make([]domain.PromptRecord, 0)
	for i := range g.records {
		rec := &g.records[i]
		if matchesFilter(rec, filterKey) && matchesSearch(rec, search) {
			matched = append(matched, *rec)
		}
	}

	start := (page - 1) * size
	if start > len(matched) {
		start = len(matched)
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}

	return PromptPage{
		Items:    matched[start:end],
		Total:    len(matched),
		Page:     page,
		PageSize: size,
		HasMore:  end < len(matched),
	}
}

func matchesFilter(rec *domain.PromptRecord, key string) bool {
	if key == "" {
		return true
	}
	for _, t := range rec.Tags {
		if strings.Contains(t, key) {
			return true
		}
	}
	return rec.Style == key || rec.Tool == key
}

func matchesSearch(rec *domain.PromptRecord, q string) bool {
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(rec.Prompt), q) ||
		strings.Contains(strings.ToLower(rec.Author), q) ||
		strings.Contains(strings.ToLower(rec.Tool), q) {
		return true
	}
	for _, t := range rec.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// Get returns the record with id.
func (g *GalleryService) Get(id string) (domain.PromptRecord, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	i, ok := g.byID[id]
	if !ok {
		return domain.PromptRecord{}, false
	}
	return g.records[i], true
}

// Tags returns the n most used tags, most used first. Ties keep first-seen order.
func (g *GalleryService) Tags(n int) []TagCount {
	if n <= 0 {
		n = DefaultTopTags
	}

	g.mu.RLock()
	counts := map[string]int{}
	var order []string
	for i := range g.records {
		for _, t := range g.records[i].Tags {
			if _, seen := counts[t]; !seen {
				order = append(order, t)
			}
			counts[t]++
		}
	}
	g.mu.RUnlock()

	tags := make([]TagCount, len(order))
	for i, t := range order {
		tags[i] = TagCount{Tag: t, Count: counts[t]}
	}
	sort.SliceStable(tags, func(i, j int) bool { return tags[i].Count > tags[j].Count })
	if len(tags) > n {
		tags = tags[:n]
	}
	return tags
}

// Stats summarizes the snapshot by tool, style and source.
func (g *GalleryService) Stats() GalleryStats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	stats := GalleryStats{
		Total:    len(g.records),
		ByTool:   map[string]int{},
		ByStyle:  map[string]int{},
		BySource: map[string]int{},
		LoadedAt: g.loadedAt,
	}
	for i := range g.records {
		rec := &g.records[i]
		stats.ByTool[rec.Tool]++
		stats.ByStyle[rec.Style]++
		src := rec.SourceName
		if src == "" {
			src = "unknown"
		}
		stats.BySource[src]++
	}
	return stats
}
