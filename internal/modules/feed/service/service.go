package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	channelDomain "github.com/reshetovitsme/streamer-census/internal/modules/channel/domain"
	"github.com/reshetovitsme/streamer-census/internal/modules/feed/domain"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// ChannelLister is the read side of the accepted-channel store.
type ChannelLister interface {
	List(ctx context.Context, filter channelDomain.Filter) ([]channelDomain.Record, error)
}

// Service handles RSS feed generation
type Service struct {
	channels ChannelLister
	now      func() time.Time
}

// New creates a new feed service
func New(channels ChannelLister) *Service {
	return &Service{channels: channels, now: time.Now}
}

// GenerateFeed renders the newest accepted channels matching req
func (s *Service) GenerateFeed(ctx context.Context, req domain.Request) (*feeds.Feed, error) {
	records, err := s.channels.List(ctx, req.Filter())
	if err != nil {
		return nil, oops.With("region", req.Region, "category", req.Category, "context", "failed to list channels").Wrap(err)
	}

	feed := &feeds.Feed{
		Title:       req.Title(),
		Link:        &feeds.Link{Href: req.Link()},
		Description: "Canales de streamers argentinos detectados automáticamente",
		Created:     s.now(),
		Updated:     s.now(),
	}
	if len(records) > 0 {
		feed.Updated = records[0].DetectedAt
	}

	feed.Items = lo.Map(records, func(r channelDomain.Record, _ int) *feeds.Item {
		return recordToFeedItem(r)
	})
	return feed, nil
}

func recordToFeedItem(r channelDomain.Record) *feeds.Item {
	location := r.Region
	if r.Province != "" {
		location = fmt.Sprintf("%s, %s", r.Province, r.Region)
	}
	description := fmt.Sprintf("%s · %s · confianza %d%% (%s)", r.Category, location, r.Confidence, r.Method)

	var content strings.Builder
	fmt.Fprintf(&content, "<p>%s</p>", html.EscapeString(description))
	if r.Description != "" {
		fmt.Fprintf(&content, "<p>%s</p>", html.EscapeString(r.Description))
	}
	if len(r.Indicators) > 0 {
		content.WriteString("<p><strong>Indicadores:</strong></p><ul>")
		for _, indicator := range r.Indicators {
			fmt.Fprintf(&content, "<li>%s</li>", html.EscapeString(indicator))
		}
		content.WriteString("</ul>")
	}

	return &feeds.Item{
		Title:       truncate(r.Title, 100),
		Link:        &feeds.Link{Href: r.URL},
		Description: description,
		Content:     content.String(),
		Created:     r.DetectedAt,
		Id:          r.ChannelID,
	}
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
