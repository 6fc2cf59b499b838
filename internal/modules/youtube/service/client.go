package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	cacheService "github.com/reshetovitsme/streamer-census/internal/modules/cache/service"
	"github.com/reshetovitsme/streamer-census/internal/modules/youtube/client"
	"github.com/reshetovitsme/streamer-census/internal/modules/youtube/domain"
	apperr "github.com/reshetovitsme/streamer-census/internal/shared/errors"
	"github.com/reshetovitsme/streamer-census/internal/shared/metrics"
	"github.com/reshetovitsme/streamer-census/internal/shared/retry"
	"github.com/samber/lo"
	"github.com/samber/oops"
	"golang.org/x/time/rate"
)

// Ledger is the part of the quota ledger the client needs.
type Ledger interface {
	CanAfford(cost int) bool
	Charge(credential string, cost int) error
	MarkExhausted(credential string) error
	IsExhausted(credential string) bool
}

// Caches groups the response cache namespaces. Any of them may be nil.
type Caches struct {
	Search *cacheService.Cache
	Detail *cacheService.Cache
	Videos *cacheService.Cache
}

// Options configures Client.
type Options struct {
	Costs   domain.Costs
	Retry   retry.Config
	Timeout time.Duration
	// RequestsPerSecond paces upstream calls; 0 disables pacing.
	RequestsPerSecond float64
}

// Client wraps the upstream API with quota accounting, caching and
// credential rotation. It is either Active on one credential or Exhausted;
// Exhausted is terminal for the life of the Client.
type Client struct {
	api     client.API
	ledger  Ledger
	caches  Caches
	opts    Options
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	creds     []domain.Credential
	index     int
	exhausted bool
}

// New creates a client over keys. Credentials the ledger already marked
// exhausted today are skipped; if none are left the client starts Exhausted.
func New(api client.API, ledger Ledger, caches Caches, keys []string, opts Options, logger *slog.Logger, m *metrics.Metrics) (*Client, error) {
	if len(keys) == 0 {
		return nil, apperr.ErrNoCredentials
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Retry.Logger == nil {
		opts.Retry.Logger = logger
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	c := &Client{
		api:     api,
		ledger:  ledger,
		caches:  caches,
		opts:    opts,
		limiter: limiter,
		logger:  logger,
		metrics: m,
		creds: lo.Map(keys, func(key string, _ int) domain.Credential {
			return domain.NewCredential(key)
		}),
		index: -1,
	}
	if !c.advance() {
		logger.Warn("all credentials already exhausted today", "credentials", len(c.creds))
	}
	return c, nil
}

// Search returns one page of channel hits. When the ledger cannot afford the
// call the page comes back empty with Skipped set.
func (c *Client) Search(ctx context.Context, query, pageToken string) (domain.SearchPage, error) {
	key := cacheService.Key(query, pageToken)
	page, fetched, err := call(ctx, c, domain.OperationSearch, c.opts.Costs.Search, c.caches.Search, key,
		func(ctx context.Context, apiKey string) (domain.SearchPage, error) {
			return c.api.SearchChannels(ctx, apiKey, query, pageToken)
		})
	if err != nil {
		return domain.SearchPage{}, err
	}
	page.Skipped = !fetched
	return page, nil
}

// Detail fetches a channel snapshot. A nil channel with a nil error means the
// ledger could not afford the call.
func (c *Client) Detail(ctx context.Context, channelID string) (*domain.Channel, error) {
	ch, fetched, err := call(ctx, c, domain.OperationDetail, c.opts.Costs.Detail, c.caches.Detail, cacheService.Key(channelID),
		func(ctx context.Context, apiKey string) (domain.Channel, error) {
			return c.api.ChannelDetail(ctx, apiKey, channelID)
		})
	if err != nil || !fetched {
		return nil, err
	}
	return &ch, nil
}

// RecentVideos fetches up to limit recent uploads. A nil slice with a nil
// error means the ledger could not afford the call.
func (c *Client) RecentVideos(ctx context.Context, channelID string, limit int) ([]domain.Video, error) {
	key := cacheService.Key(channelID, strconv.Itoa(limit))
	videos, fetched, err := call(ctx, c, domain.OperationSubItems, c.opts.Costs.SubItems, c.caches.Videos, key,
		func(ctx context.Context, apiKey string) ([]domain.Video, error) {
			return c.api.RecentVideos(ctx, apiKey, channelID, limit)
		})
	if err != nil || !fetched {
		return nil, err
	}
	if videos == nil {
		videos = []domain.Video{}
	}
	return videos, nil
}

// Exhausted reports whether every credential has been rejected for quota.
func (c *Client) Exhausted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exhausted
}

// Current returns the fingerprint of the active credential, or "" when exhausted.
func (c *Client) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exhausted {
		return ""
	}
	return c.creds[c.index].Fingerprint
}

// Costs returns the declared per-operation costs.
func (c *Client) Costs() domain.Costs {
	return c.opts.Costs
}

// CanAfford asks the ledger whether cost still fits today.
func (c *Client) CanAfford(cost int) bool {
	return c.ledger.CanAfford(cost)
}

// advance moves to the next credential not yet exhausted today. Must hold mu
// or be called before the client is shared.
func (c *Client) advance() bool {
	for next := c.index + 1; next < len(c.creds); next++ {
		if !c.ledger.IsExhausted(c.creds[next].Fingerprint) {
			c.index = next
			return true
		}
	}
	c.exhausted = true
	return false
}

// call runs one metered upstream operation: exhaustion check, cache, ledger
// gate, request with transient retries, then rotation on quota errors. fetched is false
// when the ledger could not afford the call.
func call[T any](
	ctx context.Context,
	c *Client,
	op domain.Operation,
	cost int,
	cache *cacheService.Cache,
	key string,
	fn func(ctx context.Context, apiKey string) (T, error),
) (T, bool, error) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.exhausted {
		return zero, false, oops.With("operation", op).Wrap(apperr.ErrAllCredentialsExhausted)
	}
	if v, ok := cacheService.GetJSON[T](ctx, cache, key); ok {
		return v, true, nil
	}
	if !c.ledger.CanAfford(cost) {
		c.logger.Debug("quota cannot afford call", "operation", op, "cost", cost)
		return zero, false, nil
	}

	for attempt := 0; attempt < len(c.creds); attempt++ {
		cred := c.creds[c.index]

		v, err := retry.Do(ctx, c.opts.Retry, func(ctx context.Context) (T, error) {
			if err := c.limiter.Wait(ctx); err != nil {
				return zero, err
			}
			callCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
			defer cancel()
			v, err := fn(callCtx, cred.Key)
			if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				// our own per-call deadline, not the caller's
				err = oops.With("timeout", c.opts.Timeout).Wrapf(apperr.ErrUpstreamTransient, "%v", err)
			}
			return v, err
		})

		switch {
		case err == nil:
			c.metrics.IncAPICall(string(op), "ok")
			if err := c.ledger.Charge(cred.Fingerprint, cost); err != nil {
				if !errors.Is(err, apperr.ErrQuotaExceeded) {
					return zero, false, oops.With("operation", op).Wrapf(apperr.ErrStorage, "%v", err)
				}
				c.logger.Warn("quota charge rejected after successful call", "operation", op, "error", err)
			}
			cacheService.PutJSON(ctx, cache, key, v)
			return v, true, nil

		case errors.Is(err, apperr.ErrQuotaExceeded):
			c.metrics.IncAPICall(string(op), "quota")
			if err := c.ledger.MarkExhausted(cred.Fingerprint); err != nil {
				c.logger.Error("failed to persist exhausted credential", "credential", cred, "error", err)
			}
			if !c.advance() {
				c.logger.Warn("all credentials exhausted", "operation", op, "credentials", len(c.creds))
				return zero, false, oops.With("operation", op).Wrap(apperr.ErrAllCredentialsExhausted)
			}
			c.metrics.IncRotation()
			c.logger.Info("rotated credential after quota error",
				"operation", op,
				"from", cred,
				"to", c.creds[c.index])

		default:
			result := "error"
			if errors.Is(err, apperr.ErrUpstreamTransient) {
				result = "transient"
			}
			c.metrics.IncAPICall(string(op), result)
			return zero, false, oops.With("operation", op, "credential", cred.Fingerprint).Wrap(err)
		}
	}

	c.exhausted = true
	return zero, false, oops.With("operation", op).Wrap(apperr.ErrAllCredentialsExhausted)
}
