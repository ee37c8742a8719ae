package midjourney

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/promptvault/internal/domain"
	"github.com/timmy/promptvault/internal/logger"
	"github.com/timmy/promptvault/internal/source"
)

const (
	Name        = "midjourney"
	DisplayName = "Midjourney Showcase"
	BaseURL     = "https://www.midjourney.com"

	DefaultAPIURL      = "https://www.midjourney.com/api/app/recent-jobs"
	DefaultFallbackURL = "https://midlibrary.io/styles?sort=trending"

	fallbackSourceURL = "https://midlibrary.io"
	cdnURL            = "https://cdn.midjourney.com"
	tool              = "Midjourney"

	maxAmount       = 50
	minPromptLength = 10
)

var (
	fallbackPromptPattern = regexp.MustCompile(`(?i)class="[^"]*prompt[^"]*"[^>]*>([^<]{20,})<`)
	fallbackImgPattern    = regexp.MustCompile(`<img[^>]*src="(https://[^"]*midlibrary[^"]*)"`)
)

var tagRules = source.Single(
	"portrait", "portrait",
	"landscape", "landscape",
	"anime", "anime",
	"fantasy", "fantasy",
	"abstract", "abstract",
	"architecture", "architecture",
	"character", "character",
	"product", "product",
	"logo", "logo",
	"pattern", "pattern",
	"texture", "texture",
	"isometric", "isometric",
	"--niji", "niji",
	"--style raw", "raw-style",
)

var styleRules = source.Rules{
	{Label: "anime", Keywords: []string{"anime", "--niji"}},
	{Label: "photorealistic", Keywords: []string{"photorealistic", "photo", "realistic", "raw"}},
	{Label: "3d-render", Keywords: []string{"3d", "isometric", "render"}},
	{Label: "illustration", Keywords: []string{"illustration", "drawing", "sketch"}},
	{Label: "oil-painting", Keywords: []string{"oil painting", "classical"}},
	{Label: "watercolor", Keywords: []string{"watercolor"}},
	{Label: "cinematic", Keywords: []string{"cinematic", "film"}},
}

// Config configures the Midjourney adapter.
type Config struct {
	APIURL       string
	FallbackURL  string
	BrowserAgent string
}

// Adapter collects prompts from the Midjourney community feed,
// falling back to a public style library when the feed is unavailable.
type Adapter struct {
	client *resty.Client
	cfg    Config
	now    func() time.Time
}

// NewAdapter creates a Midjourney adapter.
func NewAdapter(client *resty.Client, cfg Config) *Adapter {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.FallbackURL == "" {
		cfg.FallbackURL = DefaultFallbackURL
	}
	return &Adapter{client: client, cfg: cfg, now: time.Now}
}

func (a *Adapter) GetName() string        { return Name }
func (a *Adapter) GetDisplayName() string { return DisplayName }
func (a *Adapter) GetBaseURL() string     { return BaseURL }

// Fetch tries the recent-jobs feed and uses the fallback page when it yields nothing.
func (a *Adapter) Fetch(ctx context.Context, limit int) ([]domain.PromptRecord, error) {
	if limit <= 0 {
		return []domain.PromptRecord{}, nil
	}

	records, err := a.fetchFeed(ctx, limit)
	if err != nil {
		logger.CtxWarn(ctx, "midjourney feed failed: %v", err)
	}
	if len(records) > 0 {
		return records, nil
	}

	logger.CtxInfo(ctx, "midjourney feed empty, trying fallback")
	return a.fetchFallback(ctx, limit)
}

type feedRequest struct {
	Amount  int    `json:"amount"`
	JobType string `json:"jobType"`
	OrderBy string `json:"orderBy"`
	Dedupe  bool   `json:"dedupe"`
}

type job struct {
	ID          string          `json:"id"`
	Prompt      string          `json:"prompt"`
	FullCommand string          `json:"full_command"`
	ImagePaths  []interface{}   `json:"image_paths"`
	URL         string          `json:"url"`
	Username    string          `json:"username"`
	EnqueueTime json.RawMessage `json:"enqueue_time"`
}

func (a *Adapter) fetchFeed(ctx context.Context, limit int) ([]domain.PromptRecord, error) {
	amount := limit
	if amount > maxAmount {
		amount = maxAmount
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetBody(feedRequest{Amount: amount, JobType: "yfcc", OrderBy: "hot", Dedupe: true}).
		Post(a.cfg.APIURL)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("status %d", resp.StatusCode())
	}

	jobs, err := decodeJobs(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("decode jobs: %w", err)
	}

	now := a.now()
	records := make([]domain.PromptRecord, 0, len(jobs))
	for _, j := range jobs {
		text := j.Prompt
		if text == "" {
			text = j.FullCommand
		}
		if !source.LongEnough(text, minPromptLength) {
			continue
		}
		records = append(records, domain.NewPromptRecord(domain.PromptInput{
			Prompt:     text,
			Images:     []string{jobImage(j)},
			Tags:       tagRules.All(text),
			Style:      styleRules.First(text, domain.DefaultStyle),
			SourceURL:  fmt.Sprintf("%s/jobs/%s", BaseURL, j.ID),
			Author:     j.Username,
			Tool:       tool,
			CreatedAt:  source.Head(scalarString(j.EnqueueTime), 10),
			SourceName: Name,
		}, now))
	}
	return source.Truncate(records, limit), nil
}

// decodeJobs accepts either a bare array or an object with a "jobs" array.
func decodeJobs(body []byte) ([]job, error) {
	var list []job
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Jobs []job `json:"jobs"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Jobs, nil
}

func jobImage(j job) string {
	if len(j.ImagePaths) > 0 {
		if path, ok := j.ImagePaths[0].(string); ok && path != "" {
			return fmt.Sprintf("%s/%s/%s", cdnURL, j.ID, path)
		}
		return ""
	}
	return j.URL
}

// scalarString renders a JSON string or number as text.
func scalarString(v json.RawMessage) string {
	if len(v) == 0 || string(v) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(v)
}

func (a *Adapter) fetchFallback(ctx context.Context, limit int) ([]domain.PromptRecord, error) {
	req := a.client.R().SetContext(ctx)
	if a.cfg.BrowserAgent != "" {
		req.SetHeader("User-Agent", a.cfg.BrowserAgent)
	}
	resp, err := req.Get(a.cfg.FallbackURL)
	if err != nil {
		return nil, fmt.Errorf("midjourney fallback failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("midjourney fallback error: status %d", resp.StatusCode())
	}

	body := resp.String()
	prompts := fallbackPromptPattern.FindAllStringSubmatch(body, -1)
	images := fallbackImgPattern.FindAllStringSubmatch(body, -1)

	now := a.now()
	records := make([]domain.PromptRecord, 0, len(prompts))
	for i, m := range prompts {
		if len(records) >= limit {
			break
		}
		text := strings.TrimSpace(html.UnescapeString(m[1]))
		if !source.LongEnough(text, minPromptLength) {
			continue
		}
		image := ""
		if i < len(images) {
			image = images[i][1]
		}
		records = append(records, domain.NewPromptRecord(domain.PromptInput{
			Prompt:     text,
			Images:     []string{image},
			Tags:       tagRules.All(text),
			Style:      styleRules.First(text, domain.DefaultStyle),
			SourceURL:  fallbackSourceURL,
			Tool:       tool,
			SourceName: Name,
		}, now))
	}
	return records, nil
}
