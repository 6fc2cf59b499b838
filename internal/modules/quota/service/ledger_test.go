package service

import (
	"sync"
	"testing"
	"time"

	"github.com/reshetovitsme/streamer-census/internal/modules/quota/domain"
	"github.com/reshetovitsme/streamer-census/internal/modules/quota/repository"
	"github.com/reshetovitsme/streamer-census/internal/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newLedger(t *testing.T, dir string, limit, buffer int, c *clock) *Ledger {
	t.Helper()
	repo, err := repository.NewFileStorage(dir)
	require.NoError(t, err)
	l, err := New(repo, Options{DailyLimit: limit, SafetyBuffer: buffer, WarnRatio: 0.8, Now: c.Now}, nil, nil)
	require.NoError(t, err)
	return l
}

func TestLedger_CanAffordAtCeiling(t *testing.T) {
	c := &clock{now: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)}
	l := newLedger(t, t.TempDir(), 1000, 100, c)

	require.NoError(t, l.Charge("k1", 400))
	require.NoError(t, l.Charge("k2", 400))

	assert.False(t, l.CanAfford(200))
	assert.True(t, l.CanAfford(100))
	assert.Equal(t, 100, l.Remaining())
}

func TestLedger_ChargeOverCeilingFails(t *testing.T) {
	c := &clock{now: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)}
	l := newLedger(t, t.TempDir(), 1000, 100, c)

	require.NoError(t, l.Charge("k1", 850))
	err := l.Charge("k1", 100)
	require.ErrorIs(t, err, errors.ErrQuotaExceeded)
	assert.Equal(t, 850, l.Used())

	require.NoError(t, l.Charge("k1", 50))
	assert.Equal(t, 0, l.Remaining())
	assert.False(t, l.CanAfford(1))
	assert.True(t, l.CanAfford(0))
}

func TestLedger_RemainingEqualsCeilingMinusCharges(t *testing.T) {
	c := &clock{now: time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)}
	l := newLedger(t, t.TempDir(), 10000, 500, c)

	charges := []int{100, 1, 1, 0, 100, 37, 1}
	sum := 0
	for i, cost := range charges {
		require.NoError(t, l.Charge("key", cost))
		sum += cost
		assert.Equal(t, 10000-500-sum, l.Remaining(), "after charge %d", i)
	}

	snap := l.Snapshot()
	assert.Equal(t, sum, snap.UsedTotal)
	assert.Equal(t, sum, snap.Used["key"])
}

func TestLedger_RollsOverExactlyOnce(t *testing.T) {
	c := &clock{now: time.Date(2026, 10, 19, 23, 0, 0, 0, time.UTC)}
	l := newLedger(t, t.TempDir(), 1000, 0, c)

	require.NoError(t, l.Charge("k1", 700))
	require.NoError(t, l.MarkExhausted("k2"))

	c.Advance(2 * time.Hour)
	assert.Equal(t, 1000, l.Remaining())
	assert.False(t, l.IsExhausted("k2"))

	require.NoError(t, l.Charge("k1", 10))
	c.Advance(time.Hour)
	assert.Equal(t, 990, l.Remaining())
	assert.Equal(t, "2026-10-20", l.Snapshot().Date)
}

func TestLedger_PersistsAcrossRestartsSameDay(t *testing.T) {
	dir := t.TempDir()
	c := &clock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}

	first := newLedger(t, dir, 1000, 100, c)
	require.NoError(t, first.Charge("k1", 300))
	require.NoError(t, first.MarkExhausted("k1"))

	second := newLedger(t, dir, 1000, 100, c)
	assert.Equal(t, 300, second.Used())
	assert.True(t, second.IsExhausted("k1"))

	c.Advance(24 * time.Hour)
	third := newLedger(t, dir, 1000, 100, c)
	assert.Equal(t, 0, third.Used())
}

func TestLedger_RestoreFromEarlierDayResets(t *testing.T) {
	c := &clock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	l := newLedger(t, t.TempDir(), 1000, 100, c)

	old := domain.NewState("2026-10-18")
	old.Used["k1"] = 500
	old.UsedTotal = 500
	require.NoError(t, l.Restore(old))
	assert.Equal(t, 0, l.Used())

	same := domain.NewState("2026-10-19")
	same.Used["k1"] = 500
	same.UsedTotal = 500
	require.NoError(t, l.Restore(same))
	assert.Equal(t, 400, l.Remaining())
}

func TestLedger_DayBoundaryFollowsLocation(t *testing.T) {
	pacific, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	c := &clock{now: time.Date(2026, 10, 20, 5, 0, 0, 0, time.UTC)} // 22:00 on the 19th in Pacific time

	repo, err := repository.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	l, err := New(repo, Options{DailyLimit: 100, Location: pacific, Now: c.Now}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19", l.Snapshot().Date)
}

func TestLedger_ConcurrentChargesNeverOvershoot(t *testing.T) {
	c := &clock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	l := newLedger(t, t.TempDir(), 1000, 100, c)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Charge("k", 25) == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 36, accepted)
	assert.Equal(t, 900, l.Used())
	assert.Equal(t, 0, l.Remaining())
}

func TestLedger_NegativeCostRejected(t *testing.T) {
	c := &clock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	l := newLedger(t, t.TempDir(), 1000, 100, c)

	assert.ErrorIs(t, l.Charge("k", -1), errors.ErrInvalidConfig)
	assert.False(t, l.CanAfford(-1))
}

func TestLedger_ReloadSeesOtherProcess(t *testing.T) {
	c := &clock{now: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)}
	dir := t.TempDir()
	crawler := newLedger(t, dir, 1000, 100, c)
	server := newLedger(t, dir, 1000, 100, c)

	require.NoError(t, crawler.Charge("k1", 300))
	require.NoError(t, crawler.MarkExhausted("k1"))
	assert.Zero(t, server.Report().Used)

	require.NoError(t, server.Reload())
	report := server.Report()
	assert.Equal(t, "2026-10-19", report.Date)
	assert.Equal(t, 300, report.Used)
	assert.Equal(t, 600, report.Remaining)
	assert.Equal(t, map[string]int{"k1": 300}, report.PerCredential)
	assert.Equal(t, []string{"k1"}, report.Exhausted)

	c.Advance(24 * time.Hour)
	require.NoError(t, server.Reload())
	assert.Zero(t, server.Report().Used)
}
