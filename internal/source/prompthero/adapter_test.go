package prompthero

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/promptvault/internal/source"
)

const ldPage = `<html><head>
<script type="application/ld+json">[
 {"@type":"ImageObject","description":"realistic portrait of an old fisherman, golden hour","contentUrl":"https://cdn.prompthero.test/1.jpg","url":"https://prompthero.com/prompt/1","author":{"name":"ana"}},
 {"@type":"Person","name":"not a prompt"},
 {"@type":"CreativeWork","text":"anime girl under cherry blossoms --ar 2:3","image":"https://cdn.prompthero.test/2.jpg"}
]</script>
<script type="application/ld+json">{"@type":"ImageObject","description":"short"}</script>
<script type="application/ld+json">{broken json</script>
</head></html>`

const cardPage = `<div data-prompt="cyberpunk city street at night, flux render &amp; neon">
<img class="x" src="https://cdn.prompthero.test/card.jpg"></div>
<div data-prompt="tiny"></div>`

func newAdapter(url string) *Adapter {
	client := source.NewHTTPClient(source.HTTPConfig{Timeout: 5 * time.Second})
	a := NewAdapter(client, url, "TestBrowser/1.0")
	a.now = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }
	return a
}

func TestFetchJSONLD(t *testing.T) {
	var agent atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent.Store(r.Header.Get("User-Agent"))
		assert.Equal(t, "/prompts", r.URL.Path)
		assert.Equal(t, "popular", r.URL.Query().Get("sort"))
		_, _ = w.Write([]byte(ldPage))
	}))
	defer srv.Close()

	records, err := newAdapter(srv.URL).Fetch(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "TestBrowser/1.0", agent.Load())

	assert.Equal(t, "realistic portrait of an old fisherman, golden hour", records[0].Prompt)
	assert.Equal(t, []string{"https://cdn.prompthero.test/1.jpg"}, records[0].Images)
	assert.Equal(t, "ana", records[0].Author)
	assert.Equal(t, "https://prompthero.com/prompt/1", records[0].SourceURL)
	assert.Equal(t, []string{"portrait", "photorealistic"}, records[0].Tags)
	assert.Equal(t, "photorealistic", records[0].Style)
	assert.Equal(t, "Stable Diffusion", records[0].Tool)

	assert.Equal(t, "Midjourney", records[1].Tool)
	assert.Equal(t, "anime", records[1].Style)
	assert.Equal(t, []string{"https://cdn.prompthero.test/2.jpg"}, records[1].Images)
}

func TestFetchFallsBackToCards(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(cardPage))
	}))
	defer srv.Close()

	records, err := newAdapter(srv.URL).Fetch(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "cyberpunk city street at night, flux render & neon", records[0].Prompt)
	assert.Equal(t, "Flux", records[0].Tool)
	assert.Equal(t, []string{"cyberpunk"}, records[0].Tags)
	assert.Equal(t, []string{"https://cdn.prompthero.test/card.jpg"}, records[0].Images)
}

func TestFetchSkipsFailingPages(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Query().Get("page") == "1" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(cardPage))
	}))
	defer srv.Close()

	// limit 25 needs pages 1 and 2.
	records, err := newAdapter(srv.URL).Fetch(context.Background(), 25)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
