package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/reshetovitsme/streamer-census/internal/modules/youtube/domain"
	apperr "github.com/reshetovitsme/streamer-census/internal/shared/errors"
	"github.com/reshetovitsme/streamer-census/internal/shared/retry"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// DefaultBaseURL is the YouTube Data API v3 endpoint.
const DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

const searchPageSize = 50

// quotaReasons are error reasons that mean the key is out of budget for today.
var quotaReasons = []string{"quotaExceeded", "dailyLimitExceeded", "dailyLimitExceededUnreg"}

// DataAPI talks to the YouTube Data API v3 over HTTP.
type DataAPI struct {
	baseURL    string
	regionCode string
	language   string
	http       *http.Client
}

// Options configures DataAPI.
type Options struct {
	BaseURL    string
	RegionCode string
	Language   string
	Timeout    time.Duration
}

// NewDataAPI creates an HTTP client for the Data API.
func NewDataAPI(opts Options) *DataAPI {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &DataAPI{
		baseURL:    opts.BaseURL,
		regionCode: opts.RegionCode,
		language:   opts.Language,
		http:       &http.Client{Timeout: opts.Timeout},
	}
}

// --- Data API v3 wire types ---

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

type searchResponse struct {
	NextPageToken string       `json:"nextPageToken"`
	Items         []searchItem `json:"items"`
}

type searchItem struct {
	ID struct {
		ChannelID string `json:"channelId"`
	} `json:"id"`
	Snippet snippet `json:"snippet"`
}

type snippet struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PublishedAt time.Time `json:"publishedAt"`
	CustomURL   string    `json:"customUrl"`
	Country     string    `json:"country"`
}

type channelsResponse struct {
	Items []struct {
		ID         string  `json:"id"`
		Snippet    snippet `json:"snippet"`
		Statistics struct {
			SubscriberCount       string `json:"subscriberCount"`
			HiddenSubscriberCount bool   `json:"hiddenSubscriberCount"`
			VideoCount            string `json:"videoCount"`
		} `json:"statistics"`
	} `json:"items"`
}

type playlistItemsResponse struct {
	Items []playlistItem `json:"items"`
}

type playlistItem struct {
	Snippet struct {
		Title       string    `json:"title"`
		Description string    `json:"description"`
		PublishedAt time.Time `json:"publishedAt"`
		ResourceID  struct {
			VideoID string `json:"videoId"`
		} `json:"resourceId"`
	} `json:"snippet"`
}

// SearchChannels runs search.list restricted to channels.
func (a *DataAPI) SearchChannels(ctx context.Context, apiKey, query, pageToken string) (domain.SearchPage, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "channel")
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(searchPageSize))
	if a.regionCode != "" {
		params.Set("regionCode", a.regionCode)
	}
	if a.language != "" {
		params.Set("relevanceLanguage", a.language)
	}
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var resp searchResponse
	if err := a.get(ctx, "search", apiKey, params, &resp); err != nil {
		return domain.SearchPage{}, oops.With("query", query, "page_token", pageToken).Wrap(err)
	}

	items := lo.FilterMap(resp.Items, func(item searchItem, _ int) (domain.ChannelSummary, bool) {
		return domain.ChannelSummary{
			ID:          item.ID.ChannelID,
			Title:       item.Snippet.Title,
			Description: item.Snippet.Description,
			PublishedAt: item.Snippet.PublishedAt,
		}, item.ID.ChannelID != ""
	})

	return domain.SearchPage{Items: items, NextPageToken: resp.NextPageToken}, nil
}

// ChannelDetail runs channels.list for a single id.
func (a *DataAPI) ChannelDetail(ctx context.Context, apiKey, channelID string) (domain.Channel, error) {
	params := url.Values{}
	params.Set("part", "snippet,statistics")
	params.Set("id", channelID)

	var resp channelsResponse
	if err := a.get(ctx, "channels", apiKey, params, &resp); err != nil {
		return domain.Channel{}, oops.With("channel_id", channelID).Wrap(err)
	}
	if len(resp.Items) == 0 {
		return domain.Channel{}, oops.With("channel_id", channelID).Wrap(apperr.ErrNoData)
	}

	item := resp.Items[0]
	subscribers, _ := strconv.ParseInt(item.Statistics.SubscriberCount, 10, 64)
	videos, _ := strconv.ParseInt(item.Statistics.VideoCount, 10, 64)
	return domain.Channel{
		ID:                item.ID,
		Title:             item.Snippet.Title,
		Description:       item.Snippet.Description,
		CustomURL:         item.Snippet.CustomURL,
		Country:           item.Snippet.Country,
		Subscribers:       subscribers,
		SubscribersHidden: item.Statistics.HiddenSubscriberCount,
		VideoCount:        videos,
		PublishedAt:       item.Snippet.PublishedAt,
	}, nil
}

// RecentVideos lists the newest uploads through the uploads playlist.
// A channel without an uploads playlist has no videos, not an error.
func (a *DataAPI) RecentVideos(ctx context.Context, apiKey, channelID string, limit int) ([]domain.Video, error) {
	if limit <= 0 {
		return []domain.Video{}, nil
	}
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("playlistId", domain.UploadsPlaylistID(channelID))
	params.Set("maxResults", strconv.Itoa(min(limit, searchPageSize)))

	var resp playlistItemsResponse
	err := a.get(ctx, "playlistItems", apiKey, params, &resp)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return []domain.Video{}, nil
	}
	if err != nil {
		return nil, oops.With("channel_id", channelID).Wrap(err)
	}

	return lo.Map(resp.Items, func(item playlistItem, _ int) domain.Video {
		return domain.Video{
			ID:          item.Snippet.ResourceID.VideoID,
			Title:       item.Snippet.Title,
			Description: item.Snippet.Description,
			PublishedAt: item.Snippet.PublishedAt,
		}
	}), nil
}

// StatusError is a non-2xx answer that is neither a quota nor a transient failure.
type StatusError struct {
	StatusCode int
	Reason     string
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("youtube data api %d %s: %s", e.StatusCode, e.Reason, e.Message)
}

func (a *DataAPI) get(ctx context.Context, resource, apiKey string, params url.Values, out any) error {
	params.Set("key", apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/"+resource+"?"+params.Encode(), nil)
	if err != nil {
		return oops.With("resource", resource).Wrap(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return oops.With("resource", resource).Wrapf(apperr.ErrUpstreamTransient, "%v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return classify(resource, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return oops.With("resource", resource).Wrapf(apperr.ErrMalformedResponse, "%v", err)
	}
	return nil
}

// classify maps an error response onto the error taxonomy.
func classify(resource string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var parsed apiError
	_ = json.Unmarshal(body, &parsed)
	reason := ""
	if len(parsed.Error.Errors) > 0 {
		reason = parsed.Error.Errors[0].Reason
	}

	switch {
	case resp.StatusCode == http.StatusForbidden && lo.Contains(quotaReasons, reason):
		return oops.With("resource", resource, "reason", reason).Wrap(apperr.ErrQuotaExceeded)
	case retry.IsRetryableStatus(resp.StatusCode):
		return oops.With("resource", resource, "status", resp.StatusCode, "reason", reason).Wrap(apperr.ErrUpstreamTransient)
	default:
		return &StatusError{StatusCode: resp.StatusCode, Reason: reason, Message: parsed.Error.Message}
	}
}
