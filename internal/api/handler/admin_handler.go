package handler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/promptvault/internal/api/middleware"
	"github.com/timmy/promptvault/internal/domain"
	"github.com/timmy/promptvault/internal/logger"
	"github.com/timmy/promptvault/internal/repository"
	"github.com/timmy/promptvault/internal/service"
)

// RunLister reads the collect-run ledger. Implemented by repository.CollectRunRepository.
type RunLister interface {
	ListRecent(ctx context.Context, source string, limit int) ([]domain.CollectRun, error)
	GetByID(ctx context.Context, id string) (*domain.CollectRun, error)
}

// AdminHandler triggers collect runs. Only one run may be active because
// merges rewrite the whole corpus file.
type AdminHandler struct {
	collect *service.CollectService
	runs    RunLister
	logger  *logger.Logger

	mu            sync.RWMutex
	wg            sync.WaitGroup
	isRunning     bool
	lastRunTime   time.Time
	lastRunStatus string
	lastReport    []SourceSummary
}

// NewAdminHandler creates a new admin handler.
// Parameters:
//   - collect: collect service used for background runs.
//   - runs: optional ledger reader; nil disables the runs endpoint.
//   - log: logger for background runs.
// Returns:
//   - *AdminHandler: initialized handler.
func NewAdminHandler(collect *service.CollectService, runs RunLister, log *logger.Logger) *AdminHandler {
	if log == nil {
		log = logger.GetDefault()
	}
	return &AdminHandler{collect: collect, runs: runs, logger: log}
}

// CollectRequest represents the collect API request.
type CollectRequest struct {
	Source string `json:"source" binding:"required"`
	Limit  int    `json:"limit" binding:"omitempty,min=1,max=1000"`
}

// SourceSummary is the JSON view of one source in a finished run.
type SourceSummary struct {
	Source  string `json:"source"`
	RunID   string `json:"run_id,omitempty"`
	Fetched int    `json:"fetched"`
	Passed  int    `json:"passed"`
	Flagged int    `json:"flagged"`
	Blocked int    `json:"blocked"`
	Added   int    `json:"added"`
	Skipped int    `json:"skipped"`
	Error   string `json:"error,omitempty"`
}

// CollectStatusResponse represents the collect status.
type CollectStatusResponse struct {
	IsRunning     bool            `json:"is_running"`
	LastRunTime   string          `json:"last_run_time,omitempty"`
	LastRunStatus string          `json:"last_run_status,omitempty"`
	LastReport    []SourceSummary `json:"last_report,omitempty"`
}

// TriggerCollect handles POST /api/v1/admin/collect. The run continues in the
// background after the response is written.
func (h *AdminHandler) TriggerCollect(c *gin.Context) {
	ctx := c.Request.Context()

	var req CollectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.collect.Known(req.Source) {
		logger.CtxWarn(ctx, "Unknown source requested: source=%s, client_ip=%s", req.Source, c.ClientIP())
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown adapter: " + req.Source})
		return
	}

	h.mu.Lock()
	if h.isRunning {
		h.mu.Unlock()
		logger.CtxWarn(ctx, "Collect request rejected: already running, source=%s", req.Source)
		c.JSON(http.StatusConflict, gin.H{"error": "collect is already running"})
		return
	}
	h.isRunning = true
	h.wg.Add(1)
	h.mu.Unlock()

	// Detach from the request so the run outlives it, keeping the request logger.
	runCtx := middleware.GetLogger(c).WithContext(context.Background())
	names := h.collect.ResolveNames(req.Source)
	go h.run(runCtx, names, req.Limit)

	logger.CtxInfo(ctx, "Collect started: sources=%v, limit=%d", names, req.Limit)
	c.JSON(http.StatusAccepted, gin.H{
		"message": "collect started",
		"sources": names,
	})
}

func (h *AdminHandler) run(ctx context.Context, names []string, limit int) {
	defer h.wg.Done()
	start := time.Now()

	report := h.collect.Run(ctx, names, service.RunOptions{Limit: limit, Merge: true})

	summaries := make([]SourceSummary, 0, len(report.Sources))
	for i := range report.Sources {
		summaries = append(summaries, summarize(&report.Sources[i]))
	}
	status := "success"
	if report.Failures() > 0 {
		status = "partial failure"
	}

	h.mu.Lock()
	h.isRunning = false
	h.lastRunTime = time.Now()
	h.lastRunStatus = status
	h.lastReport = summaries
	h.mu.Unlock()

	logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		logger.FieldStatus:     status,
	}).Info(ctx, "Collect finished: added=%d, skipped=%d, %s", report.Added, report.Skipped, report.Filter)
}

func summarize(sr *service.SourceReport) SourceSummary {
	s := SourceSummary{Source: sr.Name, RunID: sr.RunID, Fetched: sr.Fetched}
	if sr.Filter != nil {
		s.Passed = sr.Filter.Passed
		s.Flagged = sr.Filter.Flagged
		s.Blocked = sr.Filter.Blocked
	}
	if sr.Merge != nil {
		s.Added = sr.Merge.Added
		s.Skipped = sr.Merge.Skipped
	}
	switch {
	case sr.Err != nil:
		s.Error = sr.Err.Error()
	case sr.FetchErr != nil:
		s.Error = sr.FetchErr.Error()
	}
	return s
}

// GetCollectStatus handles GET /api/v1/admin/collect/status.
func (h *AdminHandler) GetCollectStatus(c *gin.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	resp := CollectStatusResponse{
		IsRunning:     h.isRunning,
		LastRunStatus: h.lastRunStatus,
		LastReport:    h.lastReport,
	}
	if !h.lastRunTime.IsZero() {
		resp.LastRunTime = h.lastRunTime.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

// ListRuns handles GET /api/v1/admin/runs.
func (h *AdminHandler) ListRuns(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history is disabled"})
		return
	}
	runs, err := h.runs.ListRecent(c.Request.Context(), c.Query("source"), queryInt(c, "limit", 20))
	if err != nil {
		logger.CtxError(c.Request.Context(), "Failed to list runs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetRun handles GET /api/v1/admin/runs/:id.
func (h *AdminHandler) GetRun(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history is disabled"})
		return
	}
	run, err := h.runs.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if err != nil {
		logger.CtxError(c.Request.Context(), "Failed to get run: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get run"})
		return
	}
	c.JSON(http.StatusOK, run)
}

// Wait blocks until a background run, if any, has finished.
func (h *AdminHandler) Wait() {
	h.wg.Wait()
}
