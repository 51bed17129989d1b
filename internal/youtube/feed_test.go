package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const channelFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:yt="http://www.youtube.com/xml/schemas/2015">
  <title>Chan</title>
  <entry>
    <yt:videoId>new1</yt:videoId>
    <title>Newest upload</title>
    <link rel="alternate" href="https://www.youtube.com/watch?v=new1"/>
    <published>2024-03-01T10:00:00+00:00</published>
  </entry>
  <entry>
    <title>Not a video</title>
    <link rel="alternate" href="https://www.youtube.com/channel/UC1"/>
    <published>2024-02-20T10:00:00+00:00</published>
  </entry>
  <entry>
    <yt:videoId>old2</yt:videoId>
    <title>  Older upload </title>
    <link rel="alternate" href="https://www.youtube.com/watch?v=old2"/>
    <published>2024-02-01T10:00:00+00:00</published>
  </entry>
  <entry>
    <yt:videoId>old3</yt:videoId>
    <title>Oldest upload</title>
    <link rel="alternate" href="https://www.youtube.com/watch?v=old3"/>
    <published>2024-01-01T10:00:00+00:00</published>
  </entry>
</feed>`

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "UC123", r.URL.Query().Get("channel_id"))
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprint(w, channelFeed)
	}))
}

func TestChannelUploads(t *testing.T) {
	srv := newFeedServer(t)
	defer srv.Close()

	c := NewClient("", WithFeedURL(srv.URL))
	uploads, err := c.ChannelUploads(context.Background(), "UC123", 0)
	require.NoError(t, err)
	require.Len(t, uploads, 3)

	assert.Equal(t, "new1", uploads[0].VideoID)
	assert.Equal(t, "Newest upload", uploads[0].Title)
	assert.Equal(t, "https://www.youtube.com/watch?v=new1", uploads[0].URL)
	assert.Equal(t, 2024, uploads[0].Published.Year())
	assert.Equal(t, "Older upload", uploads[1].Title)
	assert.Equal(t, "old3", uploads[2].VideoID)
}

func TestChannelUploadsLimit(t *testing.T) {
	srv := newFeedServer(t)
	defer srv.Close()

	uploads, err := NewClient("", WithFeedURL(srv.URL)).ChannelUploads(context.Background(), "UC123", 2)
	require.NoError(t, err)
	require.Len(t, uploads, 2)
	assert.Equal(t, "old2", uploads[1].VideoID)
}

func TestChannelUploadsErrors(t *testing.T) {
	_, err := NewClient("").ChannelUploads(context.Background(), "  ", 0)
	assert.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err = NewClient("", WithFeedURL(srv.URL)).ChannelUploads(context.Background(), "UC404", 0)
	assert.Error(t, err)
}
