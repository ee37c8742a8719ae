package source

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPConfig holds settings shared by every network adapter.
type HTTPConfig struct {
	Timeout      time.Duration
	UserAgent    string // sent to JSON APIs
	BrowserAgent string // sent to HTML pages
}

// NewHTTPClient builds the resty client adapters share.
// Every request is bounded by cfg.Timeout; there is no retry.
func NewHTTPClient(cfg HTTPConfig) *resty.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetTimeout(timeout)
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	return client
}
