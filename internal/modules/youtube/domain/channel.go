package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
)

// ChannelURLPrefix is the public URL of a channel without its id.
const ChannelURLPrefix = "https://youtube.com/channel/"

var channelIDPattern = regexp.MustCompile(`UC[A-Za-z0-9_-]{22}`)

// Channel is a read-only snapshot of a YouTube channel.
type Channel struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	CustomURL         string    `json:"custom_url,omitempty"`
	Country           string    `json:"country,omitempty"`
	Subscribers       int64     `json:"subscribers"`
	SubscribersHidden bool      `json:"subscribers_hidden"`
	VideoCount        int64     `json:"video_count"`
	PublishedAt       time.Time `json:"published_at"`
}

// URL returns the public channel URL.
func (c Channel) URL() string {
	return ChannelURLPrefix + c.ID
}

// SubscribersKnown reports whether the subscriber count is public and reported.
func (c Channel) SubscribersKnown() bool {
	return !c.SubscribersHidden && c.Subscribers > 0
}

// ChannelSummary is one search hit.
type ChannelSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PublishedAt time.Time `json:"published_at"`
}

// SearchPage is one page of channel search results. Skipped is set when the
// call was not made because the quota ledger could not afford it.
type SearchPage struct {
	Items         []ChannelSummary `json:"items"`
	NextPageToken string           `json:"next_page_token,omitempty"`
	Skipped       bool             `json:"-"`
}

// Video is a recent upload of a channel.
type Video struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PublishedAt time.Time `json:"published_at"`
}

// ValidChannelID reports whether id has the UC + 22 character shape.
func ValidChannelID(id string) bool {
	return len(id) == 24 && channelIDPattern.MatchString(id)
}

// ExtractChannelID accepts a bare id or any text containing one, such as a
// /channel/ URL.
func ExtractChannelID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if ValidChannelID(s) {
		return s, true
	}
	if i := strings.Index(s, "/channel/"); i >= 0 {
		rest := s[i+len("/channel/"):]
		if j := strings.IndexAny(rest, "/?#"); j >= 0 {
			rest = rest[:j]
		}
		if ValidChannelID(rest) {
			return rest, true
		}
	}
	if m := channelIDPattern.FindString(s); m != "" {
		return m, true
	}
	return "", false
}

// UploadsPlaylistID maps a channel id to its uploads playlist.
func UploadsPlaylistID(channelID string) string {
	if strings.HasPrefix(channelID, "UC") {
		return "UU" + channelID[2:]
	}
	return channelID
}

// Credential is an API key with a fingerprint that is safe to log and persist.
type Credential struct {
	Key         string
	Fingerprint string
}

// NewCredential fingerprints key with SHA-256.
func NewCredential(key string) Credential {
	sum := sha256.Sum256([]byte(key))
	return Credential{Key: key, Fingerprint: hex.EncodeToString(sum[:4])}
}

// String never prints the key.
func (c Credential) String() string {
	return c.Fingerprint
}

// Costs declares quota units per upstream operation.
type Costs struct {
	Search   int
	Detail   int
	SubItems int
}

// Operation names an upstream call in logs and metrics.
type Operation string

const (
	OperationSearch   Operation = "search"
	OperationDetail   Operation = "detail"
	OperationSubItems Operation = "sub_items"
)
