package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mixtape/internal/config"
)

// fakeAPI is a stand-in for the YouTube Data API with canned responses
// and per-endpoint call counters.
type fakeAPI struct {
	searchCalls  int
	detailsCalls int
	searchBody   string
	detailsBody  string
	failSearch   bool
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		f.searchCalls++
		if f.failSearch {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"error":{"message":"quota exceeded"}}`)
			return
		}
		fmt.Fprint(w, f.searchBody)
	})
	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		f.detailsCalls++
		fmt.Fprint(w, f.detailsBody)
	})
	return mux
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()

	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	return NewClient(&config.YouTubeConfig{
		APIKey:         "test-key",
		BaseURL:        srv.URL,
		TimeoutSeconds: 5,
		MaxResults:     10,
		CacheTTLMin:    1,
	}, nil)
}

func searchItem(id, title string) string {
	return fmt.Sprintf(`{"id":{"videoId":%q},"snippet":{"title":%q,"thumbnails":{"medium":{"url":"https://i.ytimg.com/%s.jpg"}}}}`, id, title, id)
}

func TestSearchMergesDetails(t *testing.T) {
	api := &fakeAPI{
		searchBody: `{"items":[` + searchItem("v1", "First") + `,` + searchItem("v2", "Second") + `]}`,
		detailsBody: `{"items":[
			{"id":"v2","contentDetails":{"duration":"PT2M"},"statistics":{"viewCount":"99"}},
			{"id":"v1","contentDetails":{"duration":"PT4M2S"},"statistics":{"viewCount":"1234"}}
		]}`,
	}
	client := newTestClient(t, api)

	results, err := client.Search(context.Background(), "test query")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}

	// Search response order wins, regardless of the detail response order
	if results[0].VideoID != "v1" || results[1].VideoID != "v2" {
		t.Errorf("Expected search order preserved, got %s, %s", results[0].VideoID, results[1].VideoID)
	}
	if results[0].Duration != "PT4M2S" || results[0].Views != "1234" {
		t.Errorf("Expected merged details for v1, got %+v", results[0])
	}
	if results[0].Title != "First" || results[0].Thumbnail != "https://i.ytimg.com/v1.jpg" {
		t.Errorf("Expected snippet fields for v1, got %+v", results[0])
	}
}

func TestSearchDetailFallbacks(t *testing.T) {
	// v2 gets no detail entry, so it falls back to placeholders
	api := &fakeAPI{
		searchBody:  `{"items":[` + searchItem("v1", "First") + `,` + searchItem("v2", "Second") + `]}`,
		detailsBody: `{"items":[{"id":"v1","contentDetails":{"duration":"PT1M"},"statistics":{"viewCount":"5"}}]}`,
	}
	client := newTestClient(t, api)

	results, err := client.Search(context.Background(), "partial")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[1].Duration != "N/A" || results[1].Views != "0" {
		t.Errorf("Expected placeholder details for v2, got %+v", results[1])
	}
}

func TestSearchNoIDsSkipsDetails(t *testing.T) {
	// Candidates without video IDs (e.g. channels) yield no detail lookup
	api := &fakeAPI{
		searchBody: `{"items":[{"id":{},"snippet":{"title":"A channel"}}]}`,
	}
	client := newTestClient(t, api)

	results, err := client.Search(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected empty result list, got %d", len(results))
	}
	if results == nil {
		t.Error("Expected empty slice, got nil")
	}
	if api.detailsCalls != 0 {
		t.Errorf("Expected no details call, got %d", api.detailsCalls)
	}
}

func TestSearchUsesCache(t *testing.T) {
	api := &fakeAPI{
		searchBody:  `{"items":[` + searchItem("v1", "First") + `]}`,
		detailsBody: `{"items":[{"id":"v1","contentDetails":{"duration":"PT1M"},"statistics":{"viewCount":"5"}}]}`,
	}
	client := newTestClient(t, api)

	for i := 0; i < 3; i++ {
		if _, err := client.Search(context.Background(), "same query"); err != nil {
			t.Fatalf("Search %d failed: %v", i, err)
		}
	}

	if api.searchCalls != 1 {
		t.Errorf("Expected 1 upstream search call, got %d", api.searchCalls)
	}
	if api.detailsCalls != 1 {
		t.Errorf("Expected 1 upstream details call, got %d", api.detailsCalls)
	}
}

func TestSearchUpstreamError(t *testing.T) {
	api := &fakeAPI{failSearch: true}
	client := newTestClient(t, api)

	_, err := client.Search(context.Background(), "quota")
	if err == nil {
		t.Fatal("Expected error from failing upstream")
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("Expected upstream message in error, got %v", err)
	}
}

func TestSearchSendsExpectedParams(t *testing.T) {
	var searchQuery, detailIDs, key string

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		searchQuery = r.URL.Query().Get("q")
		key = r.URL.Query().Get("key")
		if got := r.URL.Query().Get("type"); got != "video" {
			t.Errorf("Expected type=video, got %q", got)
		}
		if got := r.URL.Query().Get("part"); got != "snippet" {
			t.Errorf("Expected part=snippet, got %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
	})
	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		detailIDs = r.URL.Query().Get("id")
		fmt.Fprint(w, `{"items":[]}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := NewClient(&config.YouTubeConfig{
		APIKey:         "secret-key",
		BaseURL:        srv.URL,
		TimeoutSeconds: 5,
		MaxResults:     10,
	}, nil)

	if _, err := client.Search(context.Background(), "daft punk"); err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if searchQuery != "daft punk" {
		t.Errorf("Expected query forwarded, got %q", searchQuery)
	}
	if key != "secret-key" {
		t.Errorf("Expected API key on request, got %q", key)
	}
	if detailIDs != "" {
		t.Error("Expected no details call for empty search result")
	}
}
