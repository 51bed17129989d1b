package youtube

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

// Upload is a recent video from a channel's uploads feed.
type Upload struct {
	VideoID   string
	Title     string
	URL       string
	Published time.Time
}

// ChannelUploads reads the public Atom feed of a channel and returns up to limit
// uploads, newest first as the feed lists them. A limit of 0 returns all entries.
// Entries without a watch URL are skipped.
func (c *Client) ChannelUploads(ctx context.Context, channelID string, limit int) ([]Upload, error) {
	if strings.TrimSpace(channelID) == "" {
		return nil, fmt.Errorf("channel id is empty")
	}

	parser := gofeed.NewParser()
	parser.Client = c.client

	feedURL := c.feedURL + "?" + url.Values{"channel_id": {channelID}}.Encode()
	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing channel feed: %w", err)
	}

	var uploads []Upload
	for _, item := range feed.Items {
		if limit > 0 && len(uploads) >= limit {
			break
		}
		if u, ok := parseUpload(item); ok {
			uploads = append(uploads, u)
		}
	}

	c.logger.Debug("parsed channel feed",
		zap.String("channel_id", channelID),
		zap.Int("entries", len(feed.Items)),
		zap.Int("uploads", len(uploads)))
	return uploads, nil
}

func parseUpload(item *gofeed.Item) (Upload, bool) {
	id := ExtractVideoID(item.Link)
	if id == "" {
		return Upload{}, false
	}

	u := Upload{
		VideoID: id,
		Title:   strings.TrimSpace(item.Title),
		URL:     item.Link,
	}
	if item.PublishedParsed != nil {
		u.Published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		u.Published = *item.UpdatedParsed
	}
	return u, true
}
