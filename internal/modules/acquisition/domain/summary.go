package domain

import (
	"time"

	"github.com/samber/lo"
)

// Summary is the outcome of one run. It is produced even when the run stops
// early.
type Summary struct {
	RunID          string         `json:"run_id"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     time.Time      `json:"finished_at"`
	Tasks          int            `json:"tasks"`
	Pages          int            `json:"pages"`
	Candidates     int            `json:"candidates"`
	SkippedSeen    int            `json:"skipped_seen"`
	Invalid        int            `json:"invalid"`
	Analyzed       int            `json:"analyzed"`
	Accepted       int            `json:"accepted"`
	Rejected       map[string]int `json:"rejected"`
	Errors         int            `json:"errors"`
	QuotaUsed      int            `json:"quota_used"`
	QuotaRemaining int            `json:"quota_remaining"`
	StopReason     StopReason     `json:"stop_reason"`
	ByRegion       map[string]int `json:"by_region"`
	ByCategory     map[string]int `json:"by_category"`
}

// NewSummary starts an empty summary.
func NewSummary(runID string, startedAt time.Time) *Summary {
	return &Summary{
		RunID:      runID,
		StartedAt:  startedAt,
		Rejected:   map[string]int{},
		ByRegion:   map[string]int{},
		ByCategory: map[string]int{},
		StopReason: StopReasonCompleted,
	}
}

// Reject counts a rejection by reason.
func (s *Summary) Reject(reason string) {
	s.Rejected[reason]++
}

// Accept counts an accepted channel.
func (s *Summary) Accept(region, category string) {
	s.Accepted++
	s.ByRegion[region]++
	s.ByCategory[category]++
}

// RejectedTotal sums rejections over all reasons.
func (s Summary) RejectedTotal() int {
	return lo.Sum(lo.Values(s.Rejected))
}

// Duration is the wall time of the run.
func (s Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
