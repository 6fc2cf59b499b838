package domain

import "slices"

// DateLayout is the calendar-day key persisted with the ledger.
const DateLayout = "2006-01-02"

// State is the persisted quota usage for one calendar day.
// UsedTotal always equals the sum of Used.
type State struct {
	Date      string         `json:"date"`
	Used      map[string]int `json:"used"`
	UsedTotal int            `json:"used_total"`
	// Exhausted lists credentials the upstream rejected for budget today.
	Exhausted []string `json:"exhausted,omitempty"`
}

// NewState returns an empty ledger for date.
func NewState(date string) State {
	return State{Date: date, Used: map[string]int{}}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	used := make(map[string]int, len(s.Used))
	for k, v := range s.Used {
		used[k] = v
	}
	return State{
		Date:      s.Date,
		Used:      used,
		UsedTotal: s.UsedTotal,
		Exhausted: slices.Clone(s.Exhausted),
	}
}

// Report is the read-only view of the ledger served to operators.
type Report struct {
	Date          string         `json:"date"`
	DailyLimit    int            `json:"daily_limit"`
	SafetyBuffer  int            `json:"safety_buffer"`
	Used          int            `json:"used"`
	Remaining     int            `json:"remaining"`
	PerCredential map[string]int `json:"per_credential"`
	Exhausted     []string       `json:"exhausted"`
}
