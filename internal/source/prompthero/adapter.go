package prompthero

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/promptvault/internal/domain"
	"github.com/timmy/promptvault/internal/logger"
	"github.com/timmy/promptvault/internal/source"
)

const (
	Name           = "prompthero"
	DisplayName    = "PromptHero"
	DefaultBaseURL = "https://prompthero.com"

	perPage         = 20
	minPromptLength = 20
)

var (
	ldPattern     = regexp.MustCompile(`(?s)<script[^>]*type="application/ld\+json"[^>]*>(.*?)</script>`)
	promptPattern = regexp.MustCompile(`data-prompt="([^"]+)"`)
	imgPattern    = regexp.MustCompile(`<img[^>]*src="(https://[^"]*prompthero[^"]*)"`)
)

var tagRules = source.Single(
	"portrait", "portrait",
	"landscape", "landscape",
	"anime", "anime",
	"fantasy", "fantasy",
	"sci-fi", "sci-fi",
	"cyberpunk", "cyberpunk",
	"realistic", "photorealistic",
	"architecture", "architecture",
	"character", "character",
	"product", "product",
)

var styleRules = source.Rules{
	{Label: "anime", Keywords: []string{"anime"}},
	{Label: "photorealistic", Keywords: []string{"realistic", "photo"}},
	{Label: "digital-art", Keywords: []string{"painting"}},
}

var toolRules = source.Rules{
	{Label: "Midjourney", Keywords: []string{"midjourney", "--ar"}},
	{Label: "Flux", Keywords: []string{"flux"}},
}

// Adapter scrapes the PromptHero popular listing. The site has no public API.
type Adapter struct {
	client    *resty.Client
	baseURL   string
	userAgent string
	now       func() time.Time
}

// NewAdapter creates a PromptHero adapter.
// Parameters:
//   - client: shared HTTP client.
//   - baseURL: site root; empty uses DefaultBaseURL.
//   - userAgent: browser user agent sent with page requests.
// Returns:
//   - *Adapter: initialized adapter.
func NewAdapter(client *resty.Client, baseURL, userAgent string) *Adapter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Adapter{client: client, baseURL: baseURL, userAgent: userAgent, now: time.Now}
}

func (a *Adapter) GetName() string        { return Name }
func (a *Adapter) GetDisplayName() string { return DisplayName }
func (a *Adapter) GetBaseURL() string     { return a.baseURL }

// Fetch walks listing pages until limit records are collected.
// Pages that fail to load are skipped.
func (a *Adapter) Fetch(ctx context.Context, limit int) ([]domain.PromptRecord, error) {
	if limit <= 0 {
		return []domain.PromptRecord{}, nil
	}

	pages := limit/perPage + 1
	records := make([]domain.PromptRecord, 0, limit)
	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return source.Truncate(records, limit), err
		}

		body, err := a.fetchPage(ctx, page)
		if err != nil {
			logger.CtxWarn(ctx, "prompthero page %d failed: %v", page, err)
			continue
		}

		records = append(records, a.parseHTML(body, a.now())...)
		if len(records) >= limit {
			break
		}
	}
	return source.Truncate(records, limit), nil
}

func (a *Adapter) fetchPage(ctx context.Context, page int) (string, error) {
	req := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"page": strconv.Itoa(page),
			"sort": "popular",
			"time": "week",
		}).
		SetHeader("Accept", "text/html,application/xhtml+xml")
	if a.userAgent != "" {
		req.SetHeader("User-Agent", a.userAgent)
	}

	resp, err := req.Get(a.baseURL + "/prompts")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("status %d", resp.StatusCode())
	}
	return resp.String(), nil
}

// parseHTML reads JSON-LD blocks first and falls back to prompt cards.
func (a *Adapter) parseHTML(body string, now time.Time) []domain.PromptRecord {
	var records []domain.PromptRecord
	for _, m := range ldPattern.FindAllStringSubmatch(body, -1) {
		for _, obj := range decodeLD(m[1]) {
			if rec, ok := a.fromLD(obj, now); ok {
				records = append(records, rec)
			}
		}
	}
	if len(records) > 0 {
		return records
	}
	return a.parseCards(body, now)
}

type ldObject struct {
	Type        string          `json:"@type"`
	Description string          `json:"description"`
	Text        string          `json:"text"`
	ContentURL  string          `json:"contentUrl"`
	Image       json.RawMessage `json:"image"`
	URL         string          `json:"url"`
	Author      json.RawMessage `json:"author"`
}

// decodeLD accepts a single object or an array of objects.
func decodeLD(text string) []ldObject {
	var list []ldObject
	if err := json.Unmarshal([]byte(text), &list); err == nil {
		return list
	}
	var one ldObject
	if err := json.Unmarshal([]byte(text), &one); err == nil {
		return []ldObject{one}
	}
	return nil
}

func (a *Adapter) fromLD(obj ldObject, now time.Time) (domain.PromptRecord, bool) {
	if obj.Type != "ImageObject" && obj.Type != "CreativeWork" {
		return domain.PromptRecord{}, false
	}
	text := obj.Description
	if text == "" {
		text = obj.Text
	}
	if !source.LongEnough(text, minPromptLength) {
		return domain.PromptRecord{}, false
	}

	image := obj.ContentURL
	if image == "" {
		image = rawString(obj.Image)
	}
	var author struct {
		Name string `json:"name"`
	}
	_ = json.Unmarshal(obj.Author, &author)

	return a.newRecord(text, image, obj.URL, author.Name, now), true
}

func (a *Adapter) parseCards(body string, now time.Time) []domain.PromptRecord {
	prompts := promptPattern.FindAllStringSubmatch(body, -1)
	images := imgPattern.FindAllStringSubmatch(body, -1)

	var records []domain.PromptRecord
	for i, m := range prompts {
		text := html.UnescapeString(m[1])
		if !source.LongEnough(text, minPromptLength) {
			continue
		}
		image := ""
		if i < len(images) {
			image = images[i][1]
		}
		records = append(records, a.newRecord(text, image, a.baseURL, "", now))
	}
	return records
}

func (a *Adapter) newRecord(text, image, sourceURL, author string, now time.Time) domain.PromptRecord {
	return domain.NewPromptRecord(domain.PromptInput{
		Prompt:     text,
		Images:     []string{image},
		Tags:       tagRules.All(text),
		Style:      styleRules.First(text, domain.DefaultStyle),
		SourceURL:  sourceURL,
		Author:     author,
		Tool:       toolRules.First(text, "Stable Diffusion"),
		SourceName: Name,
	}, now)
}

// rawString returns v when it holds a JSON string, otherwise "".
func rawString(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return s
}
