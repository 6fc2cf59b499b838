package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/reshetovitsme/streamer-census/internal/modules/acquisition/domain"
	"github.com/reshetovitsme/streamer-census/internal/modules/acquisition/repository"
	channelDomain "github.com/reshetovitsme/streamer-census/internal/modules/channel/domain"
	classifyDomain "github.com/reshetovitsme/streamer-census/internal/modules/classify/domain"
	seenDomain "github.com/reshetovitsme/streamer-census/internal/modules/seen/domain"
	youtubeDomain "github.com/reshetovitsme/streamer-census/internal/modules/youtube/domain"
	apperr "github.com/reshetovitsme/streamer-census/internal/shared/errors"
	"github.com/reshetovitsme/streamer-census/internal/shared/metrics"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// Client is the metered upstream the engine drives.
type Client interface {
	Search(ctx context.Context, query, pageToken string) (youtubeDomain.SearchPage, error)
	Detail(ctx context.Context, channelID string) (*youtubeDomain.Channel, error)
	RecentVideos(ctx context.Context, channelID string, limit int) ([]youtubeDomain.Video, error)
	Exhausted() bool
	Costs() youtubeDomain.Costs
	CanAfford(cost int) bool
}

type Classifier interface {
	Classify(ctx context.Context, in classifyDomain.Input) (classifyDomain.Result, error)
}

type SeenStore interface {
	IsSeen(channelID string) bool
	MarkAccepted(channelID string) bool
	MarkRejected(channelID, reason string) bool
	Flush(ctx context.Context) error
}

// Sink persists accepted channels. It returns ErrAlreadyRecorded for a
// channel written before.
type Sink interface {
	Record(ctx context.Context, record channelDomain.Record) error
}

type Quota interface {
	Used() int
	Remaining() int
	Save() error
}

// Deps are the collaborators of an Engine. Searches may be nil.
type Deps struct {
	Client     Client
	Classifier Classifier
	Seen       SeenStore
	Sink       Sink
	Quota      Quota
	Searches   repository.Repository
}

// Options tunes a run.
type Options struct {
	// ReserveFloor is the quota below which no new search page is started.
	ReserveFloor int
	// MinSubscribers rejects channels with fewer public subscribers; 0 disables it.
	MinSubscribers   int64
	SampleSize       int
	DescriptionLimit int
	// SaveEvery flushes the seen store and quota ledger after this many
	// processed channels; 0 flushes only at the end of the run.
	SaveEvery int
}

// Engine drives search tasks and manual id lists through the upstream,
// the classifier and the sinks. It is the only component that decides to
// stop a run early.
type Engine struct {
	deps    Deps
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string
}

// step tells the caller how to continue after one channel.
type step int

const (
	stepNext    step = iota
	stepAbandon      // transient upstream failure, drop the current task
	stepBudget       // the ledger cannot afford another channel
)

type run struct {
	ctx       context.Context
	cancel    context.CancelCauseFunc
	summary   *domain.Summary
	usedStart int
	unsaved   int
	err       error
}

func (r *run) halted() bool {
	return r.summary.StopReason != domain.StopReasonCompleted
}

func (r *run) stop(reason domain.StopReason) {
	if !r.halted() {
		r.summary.StopReason = reason
	}
}

// New creates an engine.
func New(deps Deps, opts Options, logger *slog.Logger, m *metrics.Metrics) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = 10
	}
	return &Engine{
		deps:    deps,
		opts:    opts,
		logger:  logger,
		metrics: m,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Run walks tasks in order. The returned summary is always populated; the
// error is non-nil only when a persistent store failed.
func (e *Engine) Run(ctx context.Context, tasks []domain.Task) (*domain.Summary, error) {
	r := e.begin(ctx)
	defer r.cancel(nil)
	e.logger.Info("acquisition run started", "run_id", r.summary.RunID, "tasks", len(tasks))

	for _, task := range tasks {
		if e.taskCheckpoint(r) {
			break
		}
		r.summary.Tasks++
		if err := e.runTask(r, task); err != nil {
			e.halt(r, err)
			break
		}
	}
	return e.finish(r)
}

// ProcessIDs classifies explicit channel ids or channel URLs. Invalid entries
// are counted and skipped.
func (e *Engine) ProcessIDs(ctx context.Context, ids []string) (*domain.Summary, error) {
	r := e.begin(ctx)
	defer r.cancel(nil)
	e.logger.Info("manual run started", "run_id", r.summary.RunID, "ids", len(ids))

	for _, raw := range ids {
		if e.entityCheckpoint(r) {
			break
		}
		channelID, ok := youtubeDomain.ExtractChannelID(raw)
		if !ok {
			r.summary.Invalid++
			e.logger.Warn("skipping invalid channel id", "input", raw)
			continue
		}
		r.summary.Candidates++
		if e.deps.Seen.IsSeen(channelID) {
			r.summary.SkippedSeen++
			continue
		}

		next, err := e.process(r, channelID)
		if err != nil {
			e.halt(r, err)
			break
		}
		if next == stepBudget {
			e.logger.Warn("quota budget reached, stopping manual run", "channel_id", channelID)
			r.stop(domain.StopReasonQuotaFloor)
			break
		}
	}
	return e.finish(r)
}

func (e *Engine) begin(ctx context.Context) *run {
	ctx, cancel := context.WithCancelCause(ctx)
	return &run{
		ctx:       ctx,
		cancel:    cancel,
		summary:   domain.NewSummary(e.newID(), e.now()),
		usedStart: e.deps.Quota.Used(),
	}
}

func (e *Engine) runTask(r *run, task domain.Task) error {
	logger := e.logger.With("query", task.Query)
	logger.Info("search task started", "pages", task.Pages)

	token := ""
	for page := 1; page <= task.Pages; page++ {
		if page > 1 && e.taskCheckpoint(r) {
			return nil
		}

		result, err := e.deps.Client.Search(r.ctx, task.Query, token)
		if err != nil {
			if fatal(r.ctx, err) {
				return err
			}
			r.summary.Errors++
			logger.Warn("search task abandoned", "page", page, "error", err)
			return nil
		}
		if result.Skipped {
			logger.Warn("quota cannot afford another search page", "page", page)
			r.stop(domain.StopReasonQuotaFloor)
			return nil
		}

		ids := lo.Uniq(lo.FilterMap(result.Items, func(item youtubeDomain.ChannelSummary, _ int) (string, bool) {
			return item.ID, item.ID != ""
		}))
		fresh := lo.Filter(ids, func(id string, _ int) bool {
			return !e.deps.Seen.IsSeen(id)
		})
		r.summary.Pages++
		r.summary.Candidates += len(ids)
		r.summary.SkippedSeen += len(ids) - len(fresh)
		e.logSearch(r, task.Query, page, len(ids), len(fresh))
		logger.Info("search page fetched", "page", page, "results", len(ids), "new", len(fresh))

		for _, channelID := range fresh {
			if e.entityCheckpoint(r) {
				return nil
			}
			next, err := e.process(r, channelID)
			if err != nil {
				return err
			}
			switch next {
			case stepAbandon:
				logger.Warn("search task abandoned after upstream failure", "channel_id", channelID)
				return nil
			case stepBudget:
				logger.Warn("quota cannot afford another channel, ending task", "channel_id", channelID)
				return nil
			}
		}

		if result.NextPageToken == "" {
			break
		}
		token = result.NextPageToken
	}
	return nil
}

// process fetches, classifies and records one unseen channel. A non-nil
// error ends the run.
func (e *Engine) process(r *run, channelID string) (step, error) {
	costs := e.deps.Client.Costs()
	if !e.deps.Client.CanAfford(costs.Detail + costs.SubItems) {
		return stepBudget, nil
	}
	logger := e.logger.With("channel_id", channelID)

	ch, err := e.deps.Client.Detail(r.ctx, channelID)
	switch {
	case errors.Is(err, apperr.ErrNoData), errors.Is(err, apperr.ErrMalformedResponse):
		logger.Debug("channel has no usable data", "error", err)
		return stepNext, e.reject(r, channelID, seenDomain.ReasonNoData)
	case err != nil:
		return e.upstreamFailure(r, logger, err)
	case ch == nil:
		return stepBudget, nil
	}

	if e.opts.MinSubscribers > 0 && ch.SubscribersKnown() && ch.Subscribers < e.opts.MinSubscribers {
		return stepNext, e.reject(r, channelID, seenDomain.ReasonLowSubscribers)
	}

	videos, err := e.deps.Client.RecentVideos(r.ctx, channelID, e.opts.SampleSize)
	switch {
	case err != nil:
		return e.upstreamFailure(r, logger, err)
	case videos == nil:
		return stepBudget, nil
	}

	result, err := e.deps.Classifier.Classify(r.ctx, classifyInput(ch, videos))
	if err != nil {
		return e.upstreamFailure(r, logger, err)
	}
	switch {
	case !result.Accepted:
		return stepNext, e.reject(r, channelID, result.Method.String())
	case !result.Live:
		return stepNext, e.reject(r, channelID, seenDomain.ReasonNotLive)
	}

	record := channelDomain.NewRecord(*ch, result, e.now(), e.opts.DescriptionLimit)
	err = e.deps.Sink.Record(context.WithoutCancel(r.ctx), record)
	switch {
	case errors.Is(err, apperr.ErrAlreadyRecorded):
		logger.Info("channel already recorded")
	case err != nil:
		return stepNext, err
	default:
		r.summary.Accept(result.Region, result.Category)
		e.metrics.IncOutcome(seenDomain.OutcomeAccepted.String(), result.Method.String())
	}
	r.summary.Analyzed++
	e.deps.Seen.MarkAccepted(channelID)
	return stepNext, e.tick(r)
}

func (e *Engine) reject(r *run, channelID, reason string) error {
	r.summary.Analyzed++
	r.summary.Reject(reason)
	e.deps.Seen.MarkRejected(channelID, reason)
	e.metrics.IncOutcome(seenDomain.OutcomeRejected.String(), reason)
	e.logger.Debug("channel rejected", "channel_id", channelID, "reason", reason)
	return e.tick(r)
}

// upstreamFailure turns a per-channel error into a step. Exhaustion,
// cancellation and storage failures end the run; transient errors abandon
// the task; anything else skips the channel without marking it seen.
func (e *Engine) upstreamFailure(r *run, logger *slog.Logger, err error) (step, error) {
	if fatal(r.ctx, err) {
		return stepNext, err
	}
	r.summary.Errors++
	if errors.Is(err, apperr.ErrUpstreamTransient) {
		logger.Warn("transient upstream failure", "error", err)
		return stepAbandon, nil
	}
	logger.Warn("skipping channel after upstream failure", "error", err)
	return stepNext, nil
}

func fatal(ctx context.Context, err error) bool {
	return errors.Is(err, apperr.ErrAllCredentialsExhausted) ||
		errors.Is(err, apperr.ErrStorage) ||
		ctx.Err() != nil
}

// halt records why the run ended on err.
func (e *Engine) halt(r *run, err error) {
	switch {
	case errors.Is(err, apperr.ErrAllCredentialsExhausted):
		r.cancel(apperr.ErrAllCredentialsExhausted)
		e.logger.Warn("all credentials exhausted, stopping run")
		r.stop(domain.StopReasonExhausted)
	case r.ctx.Err() != nil && !errors.Is(err, apperr.ErrStorage):
		r.stop(domain.StopReasonCancelled)
	default:
		r.err = err
		r.stop(domain.StopReasonFailed)
	}
}

// taskCheckpoint runs between tasks and search pages.
func (e *Engine) taskCheckpoint(r *run) bool {
	if e.entityCheckpoint(r) {
		return true
	}
	if remaining := e.deps.Quota.Remaining(); remaining < e.opts.ReserveFloor {
		e.logger.Warn("quota below reserve floor, stopping run",
			"remaining", remaining,
			"floor", e.opts.ReserveFloor)
		r.stop(domain.StopReasonQuotaFloor)
		return true
	}
	return false
}

// entityCheckpoint runs between channels.
func (e *Engine) entityCheckpoint(r *run) bool {
	switch {
	case r.halted():
		return true
	case errors.Is(context.Cause(r.ctx), apperr.ErrAllCredentialsExhausted), e.deps.Client.Exhausted():
		r.stop(domain.StopReasonExhausted)
		return true
	case r.ctx.Err() != nil:
		r.stop(domain.StopReasonCancelled)
		return true
	}
	return false
}

func (e *Engine) tick(r *run) error {
	r.unsaved++
	if e.opts.SaveEvery <= 0 || r.unsaved < e.opts.SaveEvery {
		return nil
	}
	return e.flush(r)
}

func (e *Engine) flush(r *run) error {
	if err := e.deps.Seen.Flush(context.WithoutCancel(r.ctx)); err != nil {
		return oops.With("run_id", r.summary.RunID).Wrapf(apperr.ErrStorage, "%v", err)
	}
	if err := e.deps.Quota.Save(); err != nil {
		return oops.With("run_id", r.summary.RunID).Wrapf(apperr.ErrStorage, "%v", err)
	}
	r.unsaved = 0
	return nil
}

func (e *Engine) logSearch(r *run, query string, page, results, fresh int) {
	if e.deps.Searches == nil {
		return
	}
	err := e.deps.Searches.Append(context.WithoutCancel(r.ctx), domain.SearchRecord{
		RunID:   r.summary.RunID,
		Query:   query,
		Page:    page,
		Results: results,
		New:     fresh,
		At:      e.now().UTC(),
	})
	if err != nil {
		e.logger.Warn("failed to log search", "query", query, "page", page, "error", err)
	}
}

func (e *Engine) finish(r *run) (*domain.Summary, error) {
	if err := e.flush(r); err != nil {
		e.logger.Error("final flush failed", "error", err)
		if r.err == nil {
			r.err = err
		}
		r.summary.StopReason = domain.StopReasonFailed
	}

	s := r.summary
	s.FinishedAt = e.now()
	s.QuotaUsed = max(e.deps.Quota.Used()-r.usedStart, 0)
	s.QuotaRemaining = e.deps.Quota.Remaining()

	e.logger.Info("acquisition run finished",
		"run_id", s.RunID,
		"stop_reason", s.StopReason.String(),
		"duration", s.Duration().Round(time.Second),
		"tasks", s.Tasks,
		"pages", s.Pages,
		"candidates", s.Candidates,
		"skipped_seen", s.SkippedSeen,
		"analyzed", s.Analyzed,
		"accepted", s.Accepted,
		"rejected", s.RejectedTotal(),
		"errors", s.Errors,
		"quota_used", s.QuotaUsed,
		"quota_remaining", s.QuotaRemaining)
	return s, r.err
}

func classifyInput(ch *youtubeDomain.Channel, videos []youtubeDomain.Video) classifyDomain.Input {
	return classifyDomain.Input{
		ChannelID:   ch.ID,
		Title:       ch.Title,
		Description: ch.Description,
		CountryHint: ch.Country,
		Recent: lo.Map(videos, func(v youtubeDomain.Video, _ int) classifyDomain.RecentItem {
			return classifyDomain.RecentItem{Title: v.Title, Description: v.Description}
		}),
	}
}
