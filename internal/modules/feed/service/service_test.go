package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	channelDomain "github.com/reshetovitsme/streamer-census/internal/modules/channel/domain"
	"github.com/reshetovitsme/streamer-census/internal/modules/feed/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	records []channelDomain.Record
	filter  channelDomain.Filter
	err     error
}

func (f *fakeLister) List(_ context.Context, filter channelDomain.Filter) ([]channelDomain.Record, error) {
	f.filter = filter
	return f.records, f.err
}

func TestGenerateFeed(t *testing.T) {
	at := time.Date(2026, 5, 2, 23, 0, 0, 0, time.UTC)
	lister := &fakeLister{records: []channelDomain.Record{{
		ChannelID:   "UC1",
		Title:       "Mate & Gaming <en vivo>",
		Category:    "Gaming",
		Region:      "cuyo",
		Province:    "Mendoza",
		Confidence:  92,
		Method:      "local-code",
		Indicators:  []string{"local-code:mza"},
		DetectedAt:  at,
		URL:         "https://youtube.com/channel/UC1",
		Description: "Streams desde MZA",
	}}}
	svc := New(lister)

	feed, err := svc.GenerateFeed(context.Background(), domain.Request{Region: "cuyo", Limit: 500, BaseURL: "http://localhost:8080/"})
	require.NoError(t, err)

	assert.Equal(t, channelDomain.Filter{Region: "cuyo", Limit: domain.DefaultLimit}, lister.filter)
	assert.Equal(t, "http://localhost:8080/rss?region=cuyo", feed.Link.Href)
	assert.Equal(t, at, feed.Updated)
	require.Len(t, feed.Items, 1)

	item := feed.Items[0]
	assert.Equal(t, "UC1", item.Id)
	assert.Equal(t, "https://youtube.com/channel/UC1", item.Link.Href)
	assert.Equal(t, "Gaming · Mendoza, cuyo · confianza 92% (local-code)", item.Description)
	assert.Contains(t, item.Content, "<li>local-code:mza</li>")

	rss, err := feed.ToRss()
	require.NoError(t, err)
	assert.Contains(t, rss, "Mate &amp; Gaming &lt;en vivo&gt;")
}

func TestGenerateFeed_ListError(t *testing.T) {
	svc := New(&fakeLister{err: fmt.Errorf("boom")})
	_, err := svc.GenerateFeed(context.Background(), domain.Request{})
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "ñañ...", truncate("ñañaña", 3))
	assert.Equal(t, "ok", truncate("ok", 3))
}
