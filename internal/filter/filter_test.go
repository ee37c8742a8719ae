package filter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/promptvault/internal/domain"
)

var fixedNow = time.Date(2026, 10, 19, 9, 30, 15, 0, time.UTC)

func newFilter(t *testing.T, opts Options) *Filter {
	t.Helper()
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	f, err := New(opts)
	require.NoError(t, err)
	return f
}

func TestCheckPrompt(t *testing.T) {
	f := newFilter(t, Options{})

	tests := []struct {
		name        string
		prompt      string
		blocked     bool
		needsReview bool
		reasons     []string
	}{
		{
			name:   "clean",
			prompt: "a cat in a garden, watercolor",
		},
		{
			name:    "l1 hit blocks with first keyword only",
			prompt:  "NSFW explicit nude scene",
			blocked: true,
			reasons: []string{"[BLOCK] L1 keyword hit: 'nsfw'"},
		},
		{
			name:    "chinese l1 term",
			prompt:  "一张色情图片",
			blocked: true,
			reasons: []string{"[BLOCK] L1 keyword hit: '色情'"},
		},
		{
			name:   "negative prompt is not scanned",
			prompt: "portrait of a knight\n\nNegative prompt: nude, nsfw, lingerie, blood",
		},
		{
			name:   "single l2 hit is noise",
			prompt: "fantasy knight covered in blood",
		},
		{
			name:        "multiple l2 hits go to review",
			prompt:      "sexy lingerie photoshoot, blood splatter scene",
			needsReview: true,
			reasons: []string{
				"[REVIEW] L2 keyword hit: 'lingerie'",
				"[REVIEW] L2 keyword hit: 'sexy'",
				"[REVIEW] L2 keyword hit: 'blood'",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := f.CheckPrompt(tt.prompt)
			assert.Equal(t, tt.blocked, v.Blocked)
			assert.Equal(t, tt.needsReview, v.NeedsReview)
			assert.Equal(t, tt.reasons, v.Reasons)
		})
	}
}

func TestCheckPromptCapsReviewReasons(t *testing.T) {
	f := newFilter(t, Options{})
	v := f.CheckPrompt("lingerie bikini cleavage seductive sensual provocative revealing")

	assert.True(t, v.NeedsReview)
	assert.Len(t, v.Reasons, MaxReviewReasons)
	assert.Equal(t, "[REVIEW] L2 keyword hit: 'lingerie'", v.Reasons[0])
	assert.Equal(t, "[REVIEW] L2 keyword hit: 'sensual'", v.Reasons[4])
}

func TestCheckImageURLs(t *testing.T) {
	f := newFilter(t, Options{})

	v := f.CheckImageURLs([]string{"https://ok.example/a.png", "https://cdn.example.com/NSFW/img.png"})
	assert.True(t, v.Blocked)
	assert.Equal(t, []string{"[BLOCK] NSFW URL pattern: '/nsfw/' in https://cdn.example.com/NSFW/img.png"}, v.Reasons)

	long := "https://cdn.example.com/x?rating=explicit&pad=" + strings.Repeat("a", 200)
	v = f.CheckImageURLs([]string{long})
	require.Len(t, v.Reasons, 1)
	assert.True(t, strings.HasSuffix(v.Reasons[0], " in "+long[:100]))

	assert.True(t, f.CheckImageURLs([]string{"https://cdn.example.com/safe.png"}).Safe())
}

func TestCheckSkipsURLsWhenBlocked(t *testing.T) {
	f := newFilter(t, Options{})
	rec := domain.PromptRecord{Prompt: "hentai poster", Images: []string{"https://x.test/porn/1.png"}}

	v := f.Check(&rec)
	assert.True(t, v.Blocked)
	assert.Len(t, v.Reasons, 1)
	assert.Contains(t, v.Reasons[0], "L1 keyword hit")
}

func TestCheckReviewThenURLBlock(t *testing.T) {
	f := newFilter(t, Options{})
	rec := domain.PromptRecord{
		Prompt: "sexy bikini beach",
		Images: []string{"https://x.test/adult/1.png"},
	}

	v := f.Check(&rec)
	assert.True(t, v.Blocked)
	assert.True(t, v.NeedsReview)
	assert.Len(t, v.Reasons, 3)
}

func TestExtraKeywordsAndPatterns(t *testing.T) {
	f := newFilter(t, Options{
		ExtraBlockKeywords:  []string{"Forbidden"},
		ExtraReviewKeywords: []string{"spooky", "eerie"},
		ExtraURLPatterns:    []string{`/private/\d+`},
	})

	assert.True(t, f.CheckPrompt("a forbidden door").Blocked)
	assert.True(t, f.CheckPrompt("spooky eerie castle").NeedsReview)
	assert.True(t, f.CheckImageURLs([]string{"https://x.test/private/42.png"}).Blocked)

	_, err := New(Options{ExtraURLPatterns: []string{"("}})
	assert.Error(t, err)
}

func TestExtraKeywordsRepeatingBuiltinsCountOnce(t *testing.T) {
	f := newFilter(t, Options{
		ExtraBlockKeywords:  []string{"NSFW"},
		ExtraReviewKeywords: []string{"Sexy", "SEXY"},
	})

	verdict := f.CheckPrompt("a sexy portrait in a studio")
	assert.True(t, verdict.Safe())
	assert.Empty(t, verdict.Reasons)

	blocked := f.CheckPrompt("nsfw render")
	assert.Equal(t, []string{"[BLOCK] L1 keyword hit: 'nsfw'"}, blocked.Reasons)
}

func TestFilterItemsPartitionsAndLogs(t *testing.T) {
	dir := t.TempDir()
	f := newFilter(t, Options{LogDir: dir})

	recs := []domain.PromptRecord{
		{ID: "a", Prompt: "a cat in a garden"},
		{ID: "b", Prompt: "nsfw explicit render"},
		{ID: "c", Prompt: "sexy lingerie photoshoot, blood splatter scene"},
		{ID: "d", Prompt: "mountain lake at dawn"},
		{ID: "e", Prompt: "stylized robot", Images: []string{"https://x.test/img?nsfw=true"}},
	}

	res, err := f.FilterItems(context.Background(), recs)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "d"}, ids(res.Safe))
	assert.Equal(t, []string{"c"}, ids(res.ReviewRecords()))
	assert.Equal(t, []string{"b", "e"}, ids(res.BlockedRecords()))
	assert.Equal(t, Stats{Total: 5, Passed: 2, Flagged: 1, Blocked: 2}, res.Stats)

	require.Equal(t, filepath.Join(dir, "filter_20261019_093015.json"), res.LogPath)
	l, err := ReadLog(res.LogPath)
	require.NoError(t, err)
	assert.Equal(t, "20261019_093015", l.Timestamp)
	assert.Equal(t, res.Stats, l.Stats)
	require.Len(t, l.FlaggedItems, 3)
	assert.Equal(t, "b", l.FlaggedItems[0].ID)
	assert.True(t, l.FlaggedItems[0].Blocked)
	assert.Equal(t, "c", l.FlaggedItems[1].ID)
	assert.True(t, l.FlaggedItems[1].NeedsReview)
	assert.Len(t, l.FlaggedItems[1].Reasons, 3)
}

func TestFilterItemsStatsArePerCall(t *testing.T) {
	dir := t.TempDir()
	f := newFilter(t, Options{LogDir: dir})
	batch := []domain.PromptRecord{{ID: "x", Prompt: "porn"}}

	first, err := f.FilterItems(context.Background(), batch)
	require.NoError(t, err)
	second, err := f.FilterItems(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, Stats{Total: 1, Blocked: 1}, second.Stats)
	assert.Equal(t, filepath.Join(dir, "filter_20261019_093015_1.json"), second.LogPath)
	assert.NotEqual(t, first.LogPath, second.LogPath)

	var total Stats
	total.Add(first.Stats)
	total.Add(second.Stats)
	assert.Equal(t, Stats{Total: 2, Blocked: 2}, total)
	assert.Equal(t, "Content Filter: 2 checked, 0 passed, 0 flagged, 2 blocked", total.String())
}

func TestFilterItemsCleanBatchWritesNoLog(t *testing.T) {
	dir := t.TempDir()
	f := newFilter(t, Options{LogDir: dir})

	res, err := f.FilterItems(context.Background(), []domain.PromptRecord{{ID: "a", Prompt: "a quiet harbor"}})
	require.NoError(t, err)
	assert.Empty(t, res.LogPath)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFilterItemsEmptyBatch(t *testing.T) {
	f := newFilter(t, Options{LogDir: t.TempDir()})
	res, err := f.FilterItems(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Safe)
	assert.Equal(t, Stats{}, res.Stats)
}

func TestFilterItemsLogWriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	f := newFilter(t, Options{LogDir: filepath.Join(blocker, "logs")})
	res, err := f.FilterItems(context.Background(), []domain.PromptRecord{{ID: "a", Prompt: "gore"}})

	require.Error(t, err)
	require.NotNil(t, res)
	assert.Len(t, res.Blocked, 1)
}

func TestLogPreviewIsTruncated(t *testing.T) {
	dir := t.TempDir()
	f := newFilter(t, Options{LogDir: dir})
	prompt := "xxx " + strings.Repeat("猫", 100)

	res, err := f.FilterItems(context.Background(), []domain.PromptRecord{{Prompt: prompt}})
	require.NoError(t, err)

	l, err := ReadLog(res.LogPath)
	require.NoError(t, err)
	assert.Equal(t, "unknown", l.FlaggedItems[0].ID)
	assert.Equal(t, 80, len([]rune(l.FlaggedItems[0].PromptPreview)))
}

type blockingInspector struct{ err error }

func (b blockingInspector) Inspect(ctx context.Context, url string, v *domain.FilterVerdict) error {
	if b.err != nil {
		return b.err
	}
	if strings.Contains(url, "bad") {
		v.Block("image inspector: " + url)
	}
	return nil
}

func TestImageInspectorHook(t *testing.T) {
	f := newFilter(t, Options{Inspector: blockingInspector{}})
	res, err := f.FilterItems(context.Background(), []domain.PromptRecord{
		{ID: "a", Prompt: "city at night", Images: []string{"https://x.test/bad.png"}},
		{ID: "b", Prompt: "city at dawn", Images: []string{"https://x.test/good.png"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(res.BlockedRecords()))
	assert.Equal(t, []string{"b"}, ids(res.Safe))

	f = newFilter(t, Options{Inspector: blockingInspector{err: errors.New("offline")}})
	res, err = f.FilterItems(context.Background(), []domain.PromptRecord{{ID: "a", Prompt: "city"}})
	require.NoError(t, err)
	assert.Len(t, res.Safe, 1)
}

func ids(recs []domain.PromptRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}
