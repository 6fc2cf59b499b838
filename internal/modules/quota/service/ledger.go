package service

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/reshetovitsme/streamer-census/internal/modules/quota/domain"
	"github.com/reshetovitsme/streamer-census/internal/modules/quota/repository"
	"github.com/reshetovitsme/streamer-census/internal/shared/errors"
	"github.com/reshetovitsme/streamer-census/internal/shared/metrics"
	"github.com/samber/oops"
)

// Options configures a Ledger.
type Options struct {
	DailyLimit   int
	SafetyBuffer int
	// WarnRatio of DailyLimit after which a single warning is logged per day.
	WarnRatio float64
	// Location decides where calendar days start.
	Location *time.Location
	Now      func() time.Time
}

// Ledger tracks quota usage per credential and in aggregate for the
// current calendar day. All methods are safe for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	repo    repository.Repository
	opts    Options
	state   domain.State
	warned  bool
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New loads the persisted state and resets it if it belongs to an earlier day.
func New(repo repository.Repository, opts Options, logger *slog.Logger, m *metrics.Metrics) (*Ledger, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	state, err := repo.Load()
	if err != nil {
		return nil, oops.With("context", "failed to load quota ledger").Wrap(err)
	}
	if state.Used == nil {
		state.Used = map[string]int{}
	}

	l := &Ledger{repo: repo, opts: opts, state: state, logger: logger, metrics: m}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rollover() {
		if err := l.repo.Save(l.state); err != nil {
			return nil, oops.With("context", "failed to persist quota rollover").Wrap(err)
		}
	}
	l.warned = l.overWarnLine()
	l.publish()
	return l, nil
}

// CanAfford reports whether cost fits under DailyLimit - SafetyBuffer.
func (l *Ledger) CanAfford(cost int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rolloverAndPersist()
	return cost >= 0 && l.state.UsedTotal+cost <= l.ceiling()
}

// Charge records cost against credential. It fails with ErrQuotaExceeded,
// leaving the ledger untouched, when the charge would cross the ceiling.
func (l *Ledger) Charge(credential string, cost int) error {
	if cost < 0 {
		return oops.With("cost", cost).Wrapf(errors.ErrInvalidConfig, "negative quota cost")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.rolloverAndPersist()

	if l.state.UsedTotal+cost > l.ceiling() {
		return oops.
			With("credential", credential, "cost", cost, "used", l.state.UsedTotal, "ceiling", l.ceiling()).
			Wrap(errors.ErrQuotaExceeded)
	}

	l.state.Used[credential] += cost
	l.state.UsedTotal += cost

	if !l.warned && l.overWarnLine() {
		l.warned = true
		l.logger.Warn("quota usage crossed warning threshold",
			"used", l.state.UsedTotal,
			"daily_limit", l.opts.DailyLimit,
			"warn_ratio", l.opts.WarnRatio)
	}
	l.publish()

	if err := l.repo.Save(l.state); err != nil {
		return oops.With("context", "failed to persist quota charge").Wrap(err)
	}
	return nil
}

// Remaining is DailyLimit - SafetyBuffer - used today. Callers treat any
// non-positive value as exhausted.
func (l *Ledger) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rolloverAndPersist()
	return l.ceiling() - l.state.UsedTotal
}

// Used returns the aggregate usage for today.
func (l *Ledger) Used() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rolloverAndPersist()
	return l.state.UsedTotal
}

// MarkExhausted remembers that the upstream refused credential for the rest of the day.
func (l *Ledger) MarkExhausted(credential string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rolloverAndPersist()

	if slices.Contains(l.state.Exhausted, credential) {
		return nil
	}
	l.state.Exhausted = append(l.state.Exhausted, credential)
	if err := l.repo.Save(l.state); err != nil {
		return oops.With("credential", credential, "context", "failed to persist exhausted credential").Wrap(err)
	}
	return nil
}

// IsExhausted reports whether credential was marked exhausted today.
func (l *Ledger) IsExhausted(credential string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rolloverAndPersist()
	return slices.Contains(l.state.Exhausted, credential)
}

// Snapshot returns a copy of the current state.
func (l *Ledger) Snapshot() domain.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rolloverAndPersist()
	return l.state.Clone()
}

// Restore replaces the in-memory state and persists it. A snapshot from an
// earlier day is reset immediately.
func (l *Ledger) Restore(state domain.State) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state = state.Clone()
	l.rollover()
	l.warned = l.overWarnLine()
	l.publish()
	if err := l.repo.Save(l.state); err != nil {
		return oops.With("context", "failed to persist restored quota state").Wrap(err)
	}
	return nil
}

// Save persists the current state.
func (l *Ledger) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.repo.Save(l.state)
}

func (l *Ledger) ceiling() int {
	return l.opts.DailyLimit - l.opts.SafetyBuffer
}

func (l *Ledger) overWarnLine() bool {
	return l.opts.WarnRatio > 0 && float64(l.state.UsedTotal) >= l.opts.WarnRatio*float64(l.opts.DailyLimit)
}

func (l *Ledger) today() string {
	return l.opts.Now().In(l.opts.Location).Format(domain.DateLayout)
}

// rollover resets usage when the stored date is not today. Must hold mu.
func (l *Ledger) rollover() bool {
	today := l.today()
	if l.state.Date == today {
		return false
	}
	if l.state.Date != "" {
		l.logger.Info("quota day rolled over",
			"previous_date", l.state.Date,
			"previous_used", l.state.UsedTotal,
			"date", today)
	}
	l.state = domain.NewState(today)
	l.warned = false
	l.publish()
	return true
}

// rolloverAndPersist is the first step of every operation. Must hold mu.
func (l *Ledger) rolloverAndPersist() {
	if l.rollover() {
		if err := l.repo.Save(l.state); err != nil {
			l.logger.Error("failed to persist quota rollover", "error", err)
		}
	}
}

func (l *Ledger) publish() {
	l.metrics.SetQuota(l.state.UsedTotal, l.ceiling()-l.state.UsedTotal)
}

// Reload re-reads the persisted state so charges made by another process
// become visible. Nothing is written back.
func (l *Ledger) Reload() error {
	state, err := l.repo.Load()
	if err != nil {
		return oops.With("context", "failed to reload quota ledger").Wrap(err)
	}
	if state.Used == nil {
		state.Used = map[string]int{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = state
	l.rollover()
	l.warned = l.overWarnLine()
	l.publish()
	return nil
}

// Report summarizes today's usage.
func (l *Ledger) Report() domain.Report {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover()
	state := l.state.Clone()
	return domain.Report{
		Date:          state.Date,
		DailyLimit:    l.opts.DailyLimit,
		SafetyBuffer:  l.opts.SafetyBuffer,
		Used:          state.UsedTotal,
		Remaining:     l.ceiling() - state.UsedTotal,
		PerCredential: state.Used,
		Exhausted:     slices.Clone(state.Exhausted),
	}
}
