package domain

import "time"

// SearchRecord logs one executed search page.
type SearchRecord struct {
	RunID   string    `json:"run_id"`
	Query   string    `json:"query"`
	Page    int       `json:"page"`
	Results int       `json:"results"`
	New     int       `json:"new"`
	At      time.Time `json:"at"`
}
