// Package builtin registers the adapters that ship with PromptVault.
package builtin

import (
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/promptvault/internal/config"
	"github.com/timmy/promptvault/internal/source"
	"github.com/timmy/promptvault/internal/source/civitai"
	"github.com/timmy/promptvault/internal/source/midjourney"
	"github.com/timmy/promptvault/internal/source/prompthero"
	"github.com/timmy/promptvault/internal/source/staging"
)

// Register adds every enabled built-in adapter to reg.
// Parameters:
//   - reg: registry to populate.
//   - cfg: source and collect settings.
//   - client: shared HTTP client handed to network adapters.
// Returns:
//   - error: non-nil if a name is already registered.
func Register(reg *source.Registry, cfg *config.Config, client *resty.Client) error {
	src := cfg.Sources

	type entry struct {
		enabled bool
		name    string
		factory source.Factory
	}
	entries := []entry{
		{src.Civitai.Enabled, civitai.Name, func() source.Adapter {
			return civitai.NewAdapter(client, civitai.Config{
				APIURL: src.Civitai.APIURL,
				Sort:   src.Civitai.Sort,
				Period: src.Civitai.Period,
			})
		}},
		{src.PromptHero.Enabled, prompthero.Name, func() source.Adapter {
			return prompthero.NewAdapter(client, src.PromptHero.BaseURL, cfg.Collect.BrowserAgent)
		}},
		{src.Midjourney.Enabled, midjourney.Name, func() source.Adapter {
			return midjourney.NewAdapter(client, midjourney.Config{
				APIURL:       src.Midjourney.APIURL,
				FallbackURL:  src.Midjourney.FallbackURL,
				BrowserAgent: cfg.Collect.BrowserAgent,
			})
		}},
		{src.Staging.Enabled, staging.Name, func() source.Adapter {
			return staging.NewAdapter(src.Staging.Path)
		}},
	}

	for _, e := range entries {
		if !e.enabled {
			continue
		}
		if err := reg.Register(e.name, e.factory); err != nil {
			return fmt.Errorf("register %s: %w", e.name, err)
		}
	}
	return nil
}
