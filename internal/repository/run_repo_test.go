package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/promptvault/internal/config"
	"github.com/timmy/promptvault/internal/domain"
)

func newTestRepo(t *testing.T) *CollectRunRepository {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "runs.db"),
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return NewCollectRunRepository(db)
}

func TestCollectRunLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	run := &domain.CollectRun{Source: "civitai"}
	require.NoError(t, repo.Create(ctx, run))
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, domain.RunStatusRunning, run.Status)

	done := time.Now()
	run.Status = domain.RunStatusCompleted
	run.Fetched = 10
	run.Added = 7
	run.Skipped = 1
	run.AddedIDs = domain.StringArray{"20261019_civ_001", "20261019_civ_002"}
	run.CompletedAt = &done
	require.NoError(t, repo.Update(ctx, run))

	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, got.Status)
	assert.Equal(t, 10, got.Fetched)
	assert.Equal(t, 7, got.Added)
	assert.Equal(t, domain.StringArray{"20261019_civ_001", "20261019_civ_002"}, got.AddedIDs)
	require.NotNil(t, got.CompletedAt)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRecentAndCounts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

	for i, src := range []string{"civitai", "prompthero", "civitai"} {
		status := domain.RunStatusCompleted
		if i == 1 {
			status = domain.RunStatusFailed
		}
		require.NoError(t, repo.Create(ctx, &domain.CollectRun{
			Source:    src,
			Status:    status,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := repo.ListRecent(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "civitai", runs[0].Source)
	assert.Equal(t, "prompthero", runs[1].Source)

	runs, err = repo.ListRecent(ctx, "civitai", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[domain.RunStatusCompleted])
	assert.Equal(t, int64(1), counts[domain.RunStatusFailed])
}
