package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"time"

	"golang.org/x/time/rate"

	"github.com/spacesedan/commentpulse/internal/models"
)

const (
	YOUTUBE_API_URL = "https://www.googleapis.com/youtube/v3/commentThreads"
	USER_AGENT      = "commentpulse-client/1.0 (+https://github.com/spacesedan/commentpulse)"

	PAGE_SIZE       = 50
	MAX_RETRIES     = 5
	INITIAL_BACKOFF = 1 * time.Second
	MAX_BACKOFF     = 32 * time.Second
)

var videoIDPattern = regexp.MustCompile(`v=([a-zA-Z0-9_-]{11})`)

// ErrInvalidVideoURL reports a URL with no extractable video ID.
var ErrInvalidVideoURL = errors.New("[YouTubeClient] invalid YouTube URL")

// VideoIDFromURL extracts the 11-character video ID from a watch URL.
func VideoIDFromURL(videoURL string) (string, error) {
	match := videoIDPattern.FindStringSubmatch(videoURL)
	if match == nil {
		return "", ErrInvalidVideoURL
	}
	return match[1], nil
}

// YouTubeClient fetches comment threads from the YouTube Data API. It is the
// concrete comment source: pages of (text, author, published_at) tuples plus
// an opaque continuation token, empty on the last page.
type YouTubeClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

func NewYouTubeClient() *YouTubeClient {
	return &YouTubeClient{
		apiKey: os.Getenv("YOUTUBE_API_KEY"),
		client: &http.Client{Timeout: 10 * time.Second},
		// YouTube Data API quota is generous but shared; one request per
		// second keeps a full re-poll of the watchlist well under it.
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
	}
}

// NewYouTubeClientWithBase is used by tests to point the client at a local
// server.
func NewYouTubeClientWithBase(apiKey, baseURL string) *YouTubeClient {
	c := NewYouTubeClient()
	c.apiKey = apiKey
	c.baseURL = baseURL
	return c
}

type commentThreadsResponse struct {
	Items []struct {
		Snippet struct {
			TopLevelComment struct {
				Snippet struct {
					TextOriginal      string `json:"textOriginal"`
					AuthorDisplayName string `json:"authorDisplayName"`
					PublishedAt       string `json:"publishedAt"`
				} `json:"snippet"`
			} `json:"topLevelComment"`
		} `json:"snippet"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

// Fetch requests the next page of top-level comments for a video. An empty
// pageToken starts from the beginning; an empty returned token signals the
// last page.
func (yc *YouTubeClient) Fetch(ctx context.Context, videoID, pageToken string) ([]models.RawComment, string, error) {
	if err := yc.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	body, err := yc.fetchWithBackoff(ctx, videoID, pageToken)
	if err != nil {
		return nil, "", err
	}

	var parsed commentThreadsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, "", fmt.Errorf("[YouTubeClient] Failed to decode response: %w", err)
	}

	comments := make([]models.RawComment, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		snippet := item.Snippet.TopLevelComment.Snippet
		comments = append(comments, models.RawComment{
			Text:        snippet.TextOriginal,
			Author:      snippet.AuthorDisplayName,
			PublishedAt: snippet.PublishedAt,
		})
	}

	slog.Info("[YouTubeClient] Fetched comment page",
		slog.String("video_id", videoID),
		slog.Int("count", len(comments)),
		slog.Bool("last_page", parsed.NextPageToken == ""))

	return comments, parsed.NextPageToken, nil
}

func (yc *YouTubeClient) fetchWithBackoff(ctx context.Context, videoID, pageToken string) ([]byte, error) {
	backoff := INITIAL_BACKOFF
	var lastErr error

	for attempt := 0; attempt < MAX_RETRIES; attempt++ {
		if attempt > 0 {
			slog.Warn("[YouTubeClient] Retrying request",
				slog.Int("attempt", attempt),
				slog.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > MAX_BACKOFF {
				backoff = MAX_BACKOFF
			}
		}

		body, retryable, err := yc.doRequest(ctx, videoID, pageToken)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, fmt.Errorf("[YouTubeClient] Request failed after %d retries: %w", MAX_RETRIES, lastErr)
}

func (yc *YouTubeClient) doRequest(ctx context.Context, videoID, pageToken string) (body []byte, retryable bool, err error) {
	endpoint := YOUTUBE_API_URL
	if yc.baseURL != "" {
		endpoint = yc.baseURL
	}
	parsedURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, false, fmt.Errorf("[YouTubeClient] Failed to parse URL: %w", err)
	}

	queryParams := parsedURL.Query()
	queryParams.Set("part", "snippet")
	queryParams.Set("videoId", videoID)
	queryParams.Set("key", yc.apiKey)
	queryParams.Set("maxResults", fmt.Sprintf("%d", PAGE_SIZE))
	queryParams.Set("order", "relevance")
	if pageToken != "" {
		queryParams.Set("pageToken", pageToken)
	}
	parsedURL.RawQuery = queryParams.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsedURL.String(), nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", USER_AGENT)

	resp, err := yc.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, true, err
		}
		return data, false, nil
	case http.StatusForbidden, http.StatusTooManyRequests:
		return nil, true, fmt.Errorf("[YouTubeClient] Quota or rate limit hit: %d", resp.StatusCode)
	default:
		data, _ := io.ReadAll(resp.Body)
		return nil, false, fmt.Errorf("[YouTubeClient] Unexpected status %d: %s", resp.StatusCode, string(data))
	}
}
