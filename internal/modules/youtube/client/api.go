package client

import (
	"context"

	"github.com/reshetovitsme/streamer-census/internal/modules/youtube/domain"
)

// API is the upstream the crawler pays quota for. Every call takes the API
// key to use so credential rotation stays outside the transport.
//
// Errors wrap ErrQuotaExceeded when the key is out of budget, ErrUpstreamTransient
// for network and 5xx failures, ErrMalformedResponse for undecodable bodies and
// ErrNoData when a channel does not exist.
type API interface {
	SearchChannels(ctx context.Context, apiKey, query, pageToken string) (domain.SearchPage, error)
	ChannelDetail(ctx context.Context, apiKey, channelID string) (domain.Channel, error)
	RecentVideos(ctx context.Context, apiKey, channelID string, limit int) ([]domain.Video, error)
}
