package domain

import "slices"

// RecentItem is a recent upload used as extra evidence.
type RecentItem struct {
	Title       string
	Description string
}

// Input is everything the pipeline looks at. Missing fields are empty strings.
type Input struct {
	ChannelID   string
	Title       string
	Description string
	CountryHint string
	Recent      []RecentItem
}

// Result is the outcome of one classification. It is built once and never
// mutated; Indicators returns a copy.
type Result struct {
	Accepted   bool
	Confidence int
	Method     Method
	Category   string
	Region     string
	Province   string
	LiveScore  int
	Live       bool
	indicators []string
}

// NewResult builds a Result owning a copy of indicators.
func NewResult(r Result, indicators []string) Result {
	r.Confidence = Clamp(r.Confidence)
	r.LiveScore = Clamp(r.LiveScore)
	r.indicators = slices.Clone(indicators)
	return r
}

// Indicators is the ordered evidence trail.
func (r Result) Indicators() []string {
	return slices.Clone(r.indicators)
}

// Clamp bounds a score to [0,100].
func Clamp(v int) int {
	return min(max(v, 0), 100)
}
