package civitai

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/promptvault/internal/domain"
	"github.com/timmy/promptvault/internal/logger"
	"github.com/timmy/promptvault/internal/source"
)

const (
	Name        = "civitai"
	DisplayName = "Civitai"
	BaseURL     = "https://civitai.com"

	// DefaultAPIURL is the public images endpoint; no authentication is required.
	DefaultAPIURL = "https://civitai.com/api/v1/images"

	maxPageSize     = 100
	minPromptLength = 20
)

var tagRules = source.Rules{
	{Label: "portrait", Keywords: []string{"portrait", "face", "headshot", "woman", "man", "girl", "boy"}},
	{Label: "landscape", Keywords: []string{"landscape", "scenery", "mountain", "ocean", "forest", "nature"}},
	{Label: "anime", Keywords: []string{"anime", "manga", "waifu", "chibi"}},
	{Label: "photorealistic", Keywords: []string{"photorealistic", "photo", "realistic", "raw photo", "dslr"}},
	{Label: "fantasy", Keywords: []string{"fantasy", "dragon", "magic", "wizard", "elf", "sword"}},
	{Label: "sci-fi", Keywords: []string{"sci-fi", "cyberpunk", "futuristic", "robot", "mech", "space"}},
	{Label: "architecture", Keywords: []string{"architecture", "building", "interior", "room", "house"}},
	{Label: "product", Keywords: []string{"product", "commercial", "advertisement", "packaging"}},
	{Label: "character", Keywords: []string{"character", "oc", "costume", "armor"}},
	{Label: "cinematic", Keywords: []string{"cinematic", "film", "movie", "dramatic lighting"}},
}

var styleRules = source.Rules{
	{Label: "anime", Keywords: []string{"anime", "manga", "waifu"}},
	{Label: "photorealistic", Keywords: []string{"photorealistic", "raw photo", "dslr", "realistic"}},
	{Label: "digital-art", Keywords: []string{"digital art", "digital painting", "illustration"}},
	{Label: "oil-painting", Keywords: []string{"oil painting", "classical", "renaissance"}},
	{Label: "pixel-art", Keywords: []string{"pixel art", "8-bit", "16-bit"}},
	{Label: "3d-render", Keywords: []string{"3d render", "blender", "octane", "unreal engine"}},
	{Label: "cinematic", Keywords: []string{"cinematic", "film still", "movie"}},
	{Label: "watercolor", Keywords: []string{"watercolor", "aquarelle"}},
	{Label: "concept-art", Keywords: []string{"concept art", "environment design"}},
}

// Config configures the Civitai adapter.
type Config struct {
	APIURL string
	Sort   string
	Period string
}

// Adapter collects prompts from the Civitai image API.
type Adapter struct {
	client *resty.Client
	cfg    Config
	now    func() time.Time
}

// NewAdapter creates a Civitai adapter.
// Parameters:
//   - client: shared HTTP client.
//   - cfg: endpoint and listing options; empty fields use defaults.
// Returns:
//   - *Adapter: initialized adapter.
func NewAdapter(client *resty.Client, cfg Config) *Adapter {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Sort == "" {
		cfg.Sort = "Most Reactions"
	}
	if cfg.Period == "" {
		cfg.Period = "Week"
	}
	return &Adapter{client: client, cfg: cfg, now: time.Now}
}

func (a *Adapter) GetName() string        { return Name }
func (a *Adapter) GetDisplayName() string { return DisplayName }
func (a *Adapter) GetBaseURL() string     { return BaseURL }

type imagesResponse struct {
	Items []imageItem `json:"items"`
}

type imageItem struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	Username  string    `json:"username"`
	CreatedAt string    `json:"createdAt"`
	Meta      *metaData `json:"meta"`
}

type metaData struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negativePrompt"`
	Model          string `json:"Model"`
}

// Fetch requests one page of the most reacted images of the week.
func (a *Adapter) Fetch(ctx context.Context, limit int) ([]domain.PromptRecord, error) {
	if limit <= 0 {
		return []domain.PromptRecord{}, nil
	}
	pageSize := limit
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	var body imagesResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"limit":  strconv.Itoa(pageSize),
			"sort":   a.cfg.Sort,
			"period": a.cfg.Period,
			"nsfw":   "None",
		}).
		SetHeader("Accept", "application/json").
		SetResult(&body).
		Get(a.cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("civitai api request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("civitai api error: status %d", resp.StatusCode())
	}

	now := a.now()
	records := make([]domain.PromptRecord, 0, len(body.Items))
	for _, img := range body.Items {
		rec, ok := a.toRecord(img, now)
		if !ok {
			continue
		}
		records = append(records, rec)
	}

	logger.CtxDebug(ctx, "civitai returned %d items, kept %d", len(body.Items), len(records))
	return source.Truncate(records, limit), nil
}

func (a *Adapter) toRecord(img imageItem, now time.Time) (domain.PromptRecord, bool) {
	if img.Meta == nil {
		return domain.PromptRecord{}, false
	}
	text := strings.TrimSpace(img.Meta.Prompt)
	if !source.LongEnough(text, minPromptLength) {
		return domain.PromptRecord{}, false
	}
	if neg := img.Meta.NegativePrompt; neg != "" {
		text += "\n\n" + domain.NegativePromptMarker + " " + neg
	}

	return domain.NewPromptRecord(domain.PromptInput{
		Prompt:     text,
		Images:     []string{img.URL},
		Tags:       tagRules.All(text),
		Style:      styleRules.First(text, domain.DefaultStyle),
		SourceURL:  fmt.Sprintf("%s/images/%d", BaseURL, img.ID),
		Author:     img.Username,
		Tool:       toolFromModel(img.Meta.Model),
		CreatedAt:  source.Head(img.CreatedAt, 10),
		SourceName: Name,
	}, now), true
}

// toolFromModel maps the checkpoint name reported in image metadata to a tool label.
func toolFromModel(model string) string {
	m := strings.ToLower(model)
	switch {
	case strings.Contains(m, "flux"):
		return "Flux"
	case strings.Contains(m, "sdxl"):
		return "SDXL"
	case strings.Contains(m, "midjourney"):
		return "Midjourney"
	default:
		return "Stable Diffusion"
	}
}
