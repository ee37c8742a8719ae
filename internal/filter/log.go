package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/moby/sys/atomicwriter"
	"github.com/timmy/promptvault/internal/domain"
)

const (
	logTimeLayout = "20060102_150405"
	previewLength = 80
)

// Log is the filter log file written for a batch with flagged records.
type Log struct {
	Timestamp    string    `json:"timestamp"`
	Stats        Stats     `json:"stats"`
	FlaggedItems []LogItem `json:"flagged_items"`
}

// LogItem is one non-safe record in a filter log.
type LogItem struct {
	ID            string   `json:"id"`
	PromptPreview string   `json:"prompt_preview"`
	Blocked       bool     `json:"blocked"`
	NeedsReview   bool     `json:"needs_review"`
	Reasons       []string `json:"reasons"`
}

func newLogItem(rec *domain.PromptRecord, v domain.FilterVerdict) LogItem {
	id := rec.ID
	if id == "" {
		id = "unknown"
	}
	return LogItem{
		ID:            id,
		PromptPreview: rec.Preview(previewLength),
		Blocked:       v.Blocked,
		NeedsReview:   v.NeedsReview,
		Reasons:       v.Reasons,
	}
}

// writeLog writes a new log file; it never overwrites an existing one.
func writeLog(dir string, now time.Time, stats Stats, items []LogItem) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	stamp := now.Format(logTimeLayout)
	path, err := uniquePath(dir, "filter_"+stamp)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Log{Timestamp: stamp, Stats: stats, FlaggedItems: items}); err != nil {
		return "", err
	}

	if err := atomicwriter.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func uniquePath(dir, base string) (string, error) {
	path := filepath.Join(dir, base+".json")
	for n := 1; ; n++ {
		_, err := os.Stat(path)
		if os.IsNotExist(err) {
			return path, nil
		}
		if err != nil {
			return "", err
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d.json", base, n))
	}
}

// ReadLog decodes a filter log file.
func ReadLog(path string) (*Log, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var l Log
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decode filter log %s: %w", path, err)
	}
	return &l, nil
}
