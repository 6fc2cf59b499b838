package domain

import "time"

// Rejection reasons recorded alongside OutcomeRejected. Classifier method
// names (exclusion, insufficient-evidence) are also used verbatim.
const (
	ReasonNoData         = "no-data"
	ReasonLowSubscribers = "low-subscribers"
	ReasonNotLive        = "not-live"
)

// Record marks a channel as processed. A channel id appears at most once.
type Record struct {
	ChannelID string    `json:"channel_id"`
	Outcome   Outcome   `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`
	SeenAt    time.Time `json:"seen_at"`
}

// Accepted builds an accepted record.
func Accepted(channelID string, at time.Time) Record {
	return Record{ChannelID: channelID, Outcome: OutcomeAccepted, SeenAt: at}
}

// Rejected builds a rejected record with reason.
func Rejected(channelID, reason string, at time.Time) Record {
	return Record{ChannelID: channelID, Outcome: OutcomeRejected, Reason: reason, SeenAt: at}
}
