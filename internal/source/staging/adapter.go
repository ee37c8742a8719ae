package staging

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/timmy/promptvault/internal/domain"
	"github.com/timmy/promptvault/internal/logger"
	"github.com/timmy/promptvault/internal/source"
)

const (
	Name        = "staging"
	DisplayName = "Local Staging"

	// ManifestFileName is the JSONL manifest file name in the staging directory.
	ManifestFileName = "manifest.jsonl"

	maxLineSize = 1 << 20
)

// ManifestItem represents a line in manifest.jsonl.
type ManifestItem struct {
	Prompt    string   `json:"prompt"`
	Images    []string `json:"images"`
	Tags      []string `json:"tags"`
	Style     string   `json:"style"`
	SourceURL string   `json:"source_url"`
	Author    string   `json:"author"`
	Tool      string   `json:"tool"`
	CreatedAt string   `json:"created_at"`
}

// Adapter implements source.Adapter for prompts prepared by hand in a local directory.
type Adapter struct {
	basePath string
	now      func() time.Time
}

// NewAdapter creates a new staging adapter.
// Parameters:
//   - basePath: directory holding manifest.jsonl.
// Returns:
//   - *Adapter: initialized staging adapter.
func NewAdapter(basePath string) *Adapter {
	return &Adapter{basePath: basePath, now: time.Now}
}

func (a *Adapter) GetName() string        { return Name }
func (a *Adapter) GetDisplayName() string { return DisplayName }

// GetBaseURL returns the manifest location as a file URL.
func (a *Adapter) GetBaseURL() string {
	abs, err := filepath.Abs(a.basePath)
	if err != nil {
		abs = a.basePath
	}
	return "file://" + filepath.ToSlash(abs)
}

// ManifestPath returns the full path of the manifest file.
func (a *Adapter) ManifestPath() string {
	return filepath.Join(a.basePath, ManifestFileName)
}

// Fetch reads up to limit items from the manifest. Malformed lines and
// items with an empty prompt are skipped.
func (a *Adapter) Fetch(ctx context.Context, limit int) ([]domain.PromptRecord, error) {
	manifestPath := a.ManifestPath()

	file, err := os.Open(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("manifest file not found: %s", manifestPath)
		}
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer file.Close()

	now := a.now()
	records := []domain.PromptRecord{}
	skipped := 0

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if len(records) >= limit {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var item ManifestItem
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			skipped++
			continue
		}
		if strings.TrimSpace(item.Prompt) == "" {
			skipped++
			continue
		}

		records = append(records, domain.NewPromptRecord(domain.PromptInput{
			Prompt:     item.Prompt,
			Images:     item.Images,
			Tags:       item.Tags,
			Style:      item.Style,
			SourceURL:  item.SourceURL,
			Author:     item.Author,
			Tool:       item.Tool,
			CreatedAt:  item.CreatedAt,
			SourceName: Name,
		}, now))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading manifest: %w", err)
	}
	if skipped > 0 {
		logger.CtxWarn(ctx, "staging manifest: skipped %d malformed lines", skipped)
	}

	return source.Truncate(records, limit), nil
}
