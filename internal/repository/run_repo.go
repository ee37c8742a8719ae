package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/promptvault/internal/domain"
	"gorm.io/gorm"
)

// ErrRunNotFound is returned when a collect run id is unknown.
var ErrRunNotFound = errors.New("collect run not found")

// CollectRunRepository persists the collect-run ledger.
type CollectRunRepository struct {
	db *gorm.DB
}

// NewCollectRunRepository creates a new CollectRunRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *CollectRunRepository: repository instance bound to db.
func NewCollectRunRepository(db *gorm.DB) *CollectRunRepository {
	return &CollectRunRepository{db: db}
}

// Create inserts a new run. An empty ID is filled with a UUID and an empty
// status defaults to running.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - run: run to persist; ID and StartedAt are set in place when empty.
// Returns:
//   - error: non-nil if the insert fails.
func (r *CollectRunRepository) Create(ctx context.Context, run *domain.CollectRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = domain.RunStatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(run).Error
}

// Update saves every field of an existing run.
func (r *CollectRunRepository) Update(ctx context.Context, run *domain.CollectRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

// GetByID retrieves a run by its ID.
// Returns ErrRunNotFound when no row matches.
func (r *CollectRunRepository) GetByID(ctx context.Context, id string) (*domain.CollectRun, error) {
	var run domain.CollectRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return &run, nil
}

// ListRecent returns the newest runs first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - source: adapter name to filter on; empty lists every source.
//   - limit: maximum rows; values <= 0 mean 20.
// Returns:
//   - []domain.CollectRun: runs ordered by start time, newest first.
//   - error: non-nil if the query fails.
func (r *CollectRunRepository) ListRecent(ctx context.Context, source string, limit int) ([]domain.CollectRun, error) {
	if limit <= 0 {
		limit = 20
	}
	query := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit)
	if source != "" {
		query = query.Where("source = ?", source)
	}

	var runs []domain.CollectRun
	if err := query.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// CountByStatus returns the number of runs per status.
func (r *CollectRunRepository) CountByStatus(ctx context.Context) (map[domain.RunStatus]int64, error) {
	var rows []struct {
		Status domain.RunStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&domain.CollectRun{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.RunStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
