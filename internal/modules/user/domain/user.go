package domain

import "time"

// User is a Telegram user receiving run summaries in ChatID. Subscribing
// again from another chat moves the subscription there.
type User struct {
	ID       int64     `json:"id"`
	Username string    `json:"username,omitempty"`
	ChatID   int64     `json:"chat_id"`
	AddedAt  time.Time `json:"added_at"`
}
