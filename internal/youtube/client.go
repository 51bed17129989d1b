// Package youtube reads video metadata, comment threads and channel uploads from YouTube.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/TobiSchelling/CommentGender/internal/telemetry"
)

const (
	DefaultBaseURL = "https://www.googleapis.com/youtube/v3"
	DefaultFeedURL = "https://www.youtube.com/feeds/videos.xml"

	// MaxPageSize is the largest maxResults commentThreads.list accepts.
	MaxPageSize = 100
)

// ErrVideoNotFound is returned when videos.list has no item for the requested id.
var ErrVideoNotFound = errors.New("video not found")

// APIError is a non-200 answer from the YouTube Data API.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("YouTube %s returned %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Kind tells a top-level comment from a reply.
type Kind string

const (
	KindTopLevel Kind = "top_level"
	KindReply    Kind = "reply"
)

// Comment is a single comment record as extracted from a comment thread.
type Comment struct {
	Author      string
	Text        string
	PublishedAt time.Time
	Kind        Kind
}

// Video holds the metadata used to name the export.
type Video struct {
	ID           string
	Title        string
	ChannelTitle string
}

// Client talks to the YouTube Data API v3 and the channel feeds.
type Client struct {
	apiKey   string
	baseURL  string
	feedURL  string
	pageSize int
	client   *http.Client
	logger   *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the Data API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithFeedURL overrides the channel feed URL.
func WithFeedURL(u string) Option {
	return func(c *Client) { c.feedURL = u }
}

// WithPageSize sets maxResults for commentThreads requests, capped at MaxPageSize.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 && n <= MaxPageSize {
			c.pageSize = n
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a YouTube client for the given API key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		baseURL:  DefaultBaseURL,
		feedURL:  DefaultFeedURL,
		pageSize: MaxPageSize,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsConfigured returns whether an API key is available.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

type commentSnippet struct {
	AuthorDisplayName string `json:"authorDisplayName"`
	TextDisplay       string `json:"textDisplay"`
	PublishedAt       string `json:"publishedAt"`
}

type commentResource struct {
	Snippet commentSnippet `json:"snippet"`
}

type commentThreadsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		Snippet struct {
			TopLevelComment commentResource `json:"topLevelComment"`
		} `json:"snippet"`
		Replies struct {
			Comments []commentResource `json:"comments"`
		} `json:"replies"`
	} `json:"items"`
}

type videosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
}

// VideoDetails fetches the title and channel of a video.
func (c *Client) VideoDetails(ctx context.Context, videoID string) (Video, error) {
	params := url.Values{
		"part": {"snippet"},
		"id":   {videoID},
	}

	var result videosResponse
	if err := c.get(ctx, "videos", params, &result); err != nil {
		return Video{}, err
	}
	if len(result.Items) == 0 {
		return Video{}, fmt.Errorf("%w: %q", ErrVideoNotFound, videoID)
	}

	item := result.Items[0]
	return Video{
		ID:           videoID,
		Title:        item.Snippet.Title,
		ChannelTitle: item.Snippet.ChannelTitle,
	}, nil
}

// CommentPages walks the comment threads of a video page by page and hands each
// page's records to fn. Each thread contributes its top-level comment followed by
// its inline replies. The walk stops at the first error, from the API or from fn.
func (c *Client) CommentPages(ctx context.Context, videoID string, fn func(page []Comment) error) error {
	pageToken := ""
	for page := 1; ; page++ {
		params := url.Values{
			"part":       {"snippet,replies"},
			"videoId":    {videoID},
			"maxResults": {strconv.Itoa(c.pageSize)},
			"textFormat": {"plainText"},
		}
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var result commentThreadsResponse
		if err := c.get(ctx, "commentThreads", params, &result); err != nil {
			return fmt.Errorf("comment page %d: %w", page, err)
		}
		telemetry.CommentPages.Inc()

		records := make([]Comment, 0, len(result.Items))
		for _, item := range result.Items {
			records = append(records, toComment(item.Snippet.TopLevelComment.Snippet, KindTopLevel))
			for _, reply := range item.Replies.Comments {
				records = append(records, toComment(reply.Snippet, KindReply))
			}
		}
		c.logger.Debug("fetched comment page",
			zap.String("video_id", videoID),
			zap.Int("page", page),
			zap.Int("threads", len(result.Items)),
			zap.Int("records", len(records)))

		if err := fn(records); err != nil {
			return err
		}

		if result.NextPageToken == "" {
			return nil
		}
		pageToken = result.NextPageToken
	}
}

// Comments fetches every comment record of a video. Any failure discards what was
// fetched so far.
func (c *Client) Comments(ctx context.Context, videoID string) ([]Comment, error) {
	var all []Comment
	err := c.CommentPages(ctx, videoID, func(page []Comment) error {
		all = append(all, page...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, cm := range all {
		telemetry.Comments.WithLabelValues(string(cm.Kind)).Inc()
	}
	c.logger.Info("fetched comments", zap.String("video_id", videoID), zap.Int("count", len(all)))
	return all, nil
}

func toComment(s commentSnippet, kind Kind) Comment {
	// A malformed timestamp leaves PublishedAt zero; it is informational only.
	published, _ := time.Parse(time.RFC3339, s.PublishedAt)
	return Comment{
		Author:      s.AuthorDisplayName,
		Text:        s.TextDisplay,
		PublishedAt: published,
		Kind:        kind,
	}
}

// get issues a GET to the Data API endpoint and decodes the JSON answer into out.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("YouTube %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", endpoint, err)
	}
	return nil
}
