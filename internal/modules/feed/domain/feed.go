package domain

import (
	"fmt"
	"strings"

	channelDomain "github.com/reshetovitsme/streamer-census/internal/modules/channel/domain"
)

// DefaultLimit is the number of channels in a feed when none is requested.
const DefaultLimit = 50

// Request describes which accepted channels a feed renders.
type Request struct {
	Region   string `json:"region"`
	Category string `json:"category"`
	Limit    int    `json:"limit"`
	BaseURL  string `json:"base_url"`
}

// Filter maps the request onto the channel store.
func (r Request) Filter() channelDomain.Filter {
	limit := r.Limit
	if limit <= 0 || limit > DefaultLimit {
		limit = DefaultLimit
	}
	return channelDomain.Filter{Region: r.Region, Category: r.Category, Limit: limit}
}

// Title names the feed after its filters.
func (r Request) Title() string {
	parts := []string{"Streamers argentinos"}
	if r.Region != "" {
		parts = append(parts, "región "+r.Region)
	}
	if r.Category != "" {
		parts = append(parts, r.Category)
	}
	return strings.Join(parts, " · ")
}

// Link is the self URL of the feed.
func (r Request) Link() string {
	link := fmt.Sprintf("%s/rss", strings.TrimRight(r.BaseURL, "/"))
	var query []string
	if r.Region != "" {
		query = append(query, "region="+r.Region)
	}
	if r.Category != "" {
		query = append(query, "category="+r.Category)
	}
	if len(query) > 0 {
		link += "?" + strings.Join(query, "&")
	}
	return link
}
