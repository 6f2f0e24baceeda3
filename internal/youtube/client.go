// YouTube Data API client for the search proxy.
//
// The API key lives on the server only; clients never see it. Search is a
// two-stage pipeline: fetch candidate videos by keyword, then batch-fetch
// duration and view count for the collected IDs and merge by ID.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mixtape/internal/cache"
	"mixtape/internal/config"
	"mixtape/pkg/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Client talks to the YouTube Data API v3
type Client struct {
	apiKey     string
	baseURL    string
	maxResults int
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *cache.SearchCache
	logger     *logrus.Logger
}

// NewClient creates a new YouTube client. Upstream calls are bounded by the
// configured timeout (single attempt, no retry) and paced by a token-bucket
// rate limiter.
func NewClient(cfg *config.YouTubeConfig, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	ttl := time.Duration(cfg.CacheTTLMin) * time.Minute
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxResults: cfg.MaxResults,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		limiter: rate.NewLimiter(limit, 1),
		cache:   cache.NewSearchCache(ttl),
		logger:  logger,
	}
}

// Search runs the two-stage search pipeline and returns enriched results in
// the search response's original order. A query with no matching video IDs
// returns an empty list without calling the detail endpoint.
func (c *Client) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	if cached, ok := c.cache.GetResults(query); ok {
		return cached, nil
	}

	candidates, err := c.searchVideos(ctx, query)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(candidates))
	for _, v := range candidates {
		if v.ID.VideoID != "" {
			ids = append(ids, v.ID.VideoID)
		}
	}

	if len(ids) == 0 {
		empty := []models.SearchResult{}
		c.cache.SetResults(query, empty)
		return empty, nil
	}

	details, err := c.videoDetails(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(candidates))
	for _, v := range candidates {
		if v.ID.VideoID == "" {
			continue
		}
		result := models.SearchResult{
			VideoID:   v.ID.VideoID,
			Title:     v.Snippet.Title,
			Thumbnail: v.Snippet.Thumbnails.Medium.URL,
			Duration:  "N/A",
			Views:     "0",
		}
		if d, ok := details[v.ID.VideoID]; ok {
			result.Duration = d.duration
			result.Views = d.views
		}
		results = append(results, result)
	}

	c.cache.SetResults(query, results)
	return results, nil
}

// searchVideo is one candidate from the search endpoint
type searchVideo struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title      string `json:"title"`
		Thumbnails struct {
			Medium struct {
				URL string `json:"url"`
			} `json:"medium"`
		} `json:"thumbnails"`
	} `json:"snippet"`
}

// searchVideos calls the keyword search endpoint.
func (c *Client) searchVideos(ctx context.Context, query string) ([]searchVideo, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(c.maxResults))
	params.Set("q", query)

	var resp struct {
		Items []searchVideo `json:"items"`
	}
	if err := c.doGet(ctx, "/search", params, &resp); err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}

	return resp.Items, nil
}

type videoDetail struct {
	duration string
	views    string
}

// videoDetails batch-fetches duration and view count for the given IDs and
// indexes them by video ID.
func (c *Client) videoDetails(ctx context.Context, ids []string) (map[string]videoDetail, error) {
	params := url.Values{}
	params.Set("part", "contentDetails,statistics")
	params.Set("id", strings.Join(ids, ","))

	var resp struct {
		Items []struct {
			ID             string `json:"id"`
			ContentDetails struct {
				Duration string `json:"duration"`
			} `json:"contentDetails"`
			Statistics struct {
				ViewCount string `json:"viewCount"`
			} `json:"statistics"`
		} `json:"items"`
	}
	if err := c.doGet(ctx, "/videos", params, &resp); err != nil {
		return nil, fmt.Errorf("details request failed: %w", err)
	}

	details := make(map[string]videoDetail, len(resp.Items))
	for _, v := range resp.Items {
		details[v.ID] = videoDetail{
			duration: v.ContentDetails.Duration,
			views:    v.Statistics.ViewCount,
		}
	}
	return details, nil
}

// doGet issues one rate-limited GET against the API and decodes the JSON
// response into result.
func (c *Client) doGet(ctx context.Context, endpoint string, params url.Values, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	params.Set("key", c.apiKey)
	apiURL := c.baseURL + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error.Message != "" {
			return fmt.Errorf("youtube API error (status %d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return fmt.Errorf("youtube API error: status %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
