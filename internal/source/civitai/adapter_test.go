package civitai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/promptvault/internal/source"
)

const imagesBody = `{"items":[
 {"id":101,"url":"https://img.civitai.test/101.png","username":"alice","createdAt":"2026-10-01T08:00:00.000Z",
  "meta":{"prompt":"cinematic portrait of an elf wizard in a forest","negativePrompt":"blurry","Model":"FLUX.1 dev"}},
 {"id":102,"url":"https://img.civitai.test/102.png","username":"bob","createdAt":"2026-10-02T08:00:00.000Z",
  "meta":{"prompt":"too short"}},
 {"id":103,"url":"https://img.civitai.test/103.png","username":"carol","createdAt":"2026-10-03T08:00:00.000Z",
  "meta":null},
 {"id":104,"url":"https://img.civitai.test/104.png","username":"dave","createdAt":"2026-10-04T08:00:00.000Z",
  "meta":{"prompt":"a watercolor painting of a quiet harbor town","Model":"sdxl_base"}}
]}`

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *http.Request) {
	t.Helper()
	var captured http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = *r
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func newAdapter(url string) *Adapter {
	client := source.NewHTTPClient(source.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "PromptVault/1.0"})
	a := NewAdapter(client, Config{APIURL: url})
	a.now = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }
	return a
}

func TestFetchParsesItems(t *testing.T) {
	srv, req := newTestServer(t, http.StatusOK, imagesBody)
	a := newAdapter(srv.URL)

	records, err := a.Fetch(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	q := req.URL.Query()
	assert.Equal(t, "10", q.Get("limit"))
	assert.Equal(t, "Most Reactions", q.Get("sort"))
	assert.Equal(t, "Week", q.Get("period"))
	assert.Equal(t, "None", q.Get("nsfw"))
	assert.Equal(t, "PromptVault/1.0", req.Header.Get("User-Agent"))

	first := records[0]
	assert.Equal(t, "cinematic portrait of an elf wizard in a forest\n\nNegative prompt: blurry", first.Prompt)
	assert.Equal(t, "Flux", first.Tool)
	assert.Equal(t, "2026-10-01", first.CreatedAt)
	assert.Equal(t, "https://civitai.com/images/101", first.SourceURL)
	assert.Equal(t, "alice", first.Author)
	assert.Equal(t, "civitai", first.SourceName)
	assert.Equal(t, []string{"https://img.civitai.test/101.png"}, first.Images)
	assert.Contains(t, first.Tags, "portrait")
	assert.Contains(t, first.Tags, "fantasy")
	assert.Equal(t, "cinematic", first.Style)

	second := records[1]
	assert.Equal(t, "SDXL", second.Tool)
	assert.Equal(t, "watercolor", second.Style)
}

func TestFetchCapsPageSizeAndLimit(t *testing.T) {
	srv, req := newTestServer(t, http.StatusOK, imagesBody)
	a := newAdapter(srv.URL)

	records, err := a.Fetch(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, "100", req.URL.Query().Get("limit"))
	assert.Len(t, records, 2)

	records, err = a.Fetch(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFetchServerError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusServiceUnavailable, `{"error":"down"}`)
	a := newAdapter(srv.URL)

	records, err := a.Fetch(context.Background(), 10)
	assert.Error(t, err)
	assert.Empty(t, records)
}

func TestToolFromModel(t *testing.T) {
	assert.Equal(t, "Flux", toolFromModel("flux1-dev"))
	assert.Equal(t, "SDXL", toolFromModel("juggernautSDXL"))
	assert.Equal(t, "Midjourney", toolFromModel("midjourney-mimic"))
	assert.Equal(t, "Stable Diffusion", toolFromModel(""))
}
