package corpus

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/promptvault/internal/domain"
)

var mergeNow = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

func batch(src string, prompts ...string) []domain.PromptRecord {
	out := make([]domain.PromptRecord, len(prompts))
	for i, p := range prompts {
		out[i] = domain.PromptRecord{
			ID:         domain.GenerateID(mergeNow, src, i+1),
			Prompt:     p,
			SourceName: src,
		}
	}
	return out
}

func TestMergeRecordsSequenceContinuesCorpus(t *testing.T) {
	existing := batch("civitai", "a lighthouse", "a red fox")
	existing[0].ID = "20260101_civ_001"
	existing[1].ID = "20260101_civ_002"

	merged, stats := MergeRecords(existing, batch("prompthero", "a koi pond", "a desert road"), mergeNow)

	assert.Equal(t, 2, stats.Added)
	assert.Equal(t, 0, stats.Skipped)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, []string{"20261019_pro_003", "20261019_pro_004"}, stats.AddedIDs)
	assert.Equal(t, "20260101_civ_001", merged[0].ID)
	assert.Len(t, existing, 2)
}

func TestMergeRecordsIdempotent(t *testing.T) {
	incoming := batch("civitai", "a lighthouse at dusk", "a red fox in snow")

	first, stats := MergeRecords(nil, incoming, mergeNow)
	require.Equal(t, 2, stats.Added)

	second, stats := MergeRecords(first, incoming, mergeNow)
	assert.Equal(t, 0, stats.Added)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, first, second)
}

func TestMergeRecordsPrefixDedup(t *testing.T) {
	base := strings.Repeat("ultra detailed matte painting of a floating castle ", 3)
	require.Greater(t, len(base), 100)

	incoming := batch("civitai",
		base+"at sunset",
		strings.ToUpper(base[:50])+base[50:]+"at midnight with fireworks",
	)

	merged, stats := MergeRecords(nil, incoming, mergeNow)
	assert.Equal(t, 1, stats.Added)
	assert.Equal(t, 1, stats.Skipped)
	require.Len(t, merged, 1)
	assert.True(t, strings.HasSuffix(merged[0].Prompt, "at sunset"))
}

func TestMergeRecordsCatScenario(t *testing.T) {
	pad := strings.Repeat(", detailed", 10)
	incoming := batch("civitai",
		"a cat in a garden, detailed, 4k"+pad,
		"a cat in a garden, detailed, 4k"+pad+", extra",
	)

	merged, stats := MergeRecords([]domain.PromptRecord{}, incoming, mergeNow)
	assert.Equal(t, MergeStats{Added: 1, Skipped: 1, Total: 1, AddedIDs: []string{"20261019_civ_001"}}, stats)
	assert.Len(t, merged, 1)
}

func TestMergeRecordsShortPromptsAreDistinct(t *testing.T) {
	incoming := batch("civitai", "a cat in a garden, detailed, 4k", "a cat in a garden, detailed, 4k, extra")

	_, stats := MergeRecords(nil, incoming, mergeNow)
	assert.Equal(t, 2, stats.Added)
	assert.Equal(t, 0, stats.Skipped)
}

func TestMergeRecordsBumpsPastTakenIDs(t *testing.T) {
	// 002 was removed by an audit, so len+1 collides with 003.
	existing := []domain.PromptRecord{
		{ID: "20261019_civ_001", Prompt: "first"},
		{ID: "20261019_civ_003", Prompt: "third"},
	}

	_, stats := MergeRecords(existing, batch("civitai", "fourth"), mergeNow)
	assert.Equal(t, []string{"20261019_civ_004"}, stats.AddedIDs)
}

func TestMergeRecordsRebuildsMalformedIDs(t *testing.T) {
	incoming := []domain.PromptRecord{
		{ID: "bogus", Prompt: "a quiet harbor", SourceName: "midjourney"},
		{Prompt: "a loud market"},
	}

	_, stats := MergeRecords(nil, incoming, mergeNow)
	assert.Equal(t, []string{"20261019_mid_001", "20261019_unk_002"}, stats.AddedIDs)
}

func TestMergeRecordsMonotonicAcrossSources(t *testing.T) {
	var incoming []domain.PromptRecord
	incoming = append(incoming, batch("civitai", "one", "two")...)
	incoming = append(incoming, batch("staging", "three")...)

	existing := make([]domain.PromptRecord, 5)
	for i := range existing {
		existing[i] = domain.PromptRecord{ID: fmt.Sprintf("20260101_old_%03d", i+1), Prompt: fmt.Sprintf("old %d", i)}
	}

	_, stats := MergeRecords(existing, incoming, mergeNow)
	assert.Equal(t, []string{"20261019_civ_006", "20261019_civ_007", "20261019_sta_008"}, stats.AddedIDs)
}

func TestRemoveRecords(t *testing.T) {
	recs := batch("civitai", "a", "b", "c")
	kept, removed := RemoveRecords(recs, []string{recs[1].ID, "missing"})

	assert.Equal(t, 1, removed)
	require.Len(t, kept, 2)
	assert.Equal(t, "a", kept[0].Prompt)
	assert.Equal(t, "c", kept[1].Prompt)

	same, removed := RemoveRecords(recs, nil)
	assert.Equal(t, 0, removed)
	assert.Len(t, same, 3)
}

func TestMergeRecordsSkipsBlankPrompts(t *testing.T) {
	incoming := batch("midjourney", strings.Repeat(" ", 25), "a koi pond", "", "\n\t ")

	merged, stats := MergeRecords(nil, incoming, mergeNow)

	assert.Equal(t, 1, stats.Added)
	assert.Equal(t, 3, stats.Skipped)
	require.Len(t, merged, 1)
	assert.Equal(t, "a koi pond", merged[0].Prompt)
	assert.Equal(t, []string{"20261019_mid_001"}, stats.AddedIDs)
}
