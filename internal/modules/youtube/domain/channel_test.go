package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractChannelID(t *testing.T) {
	const id = "UCabcdefghijklmnopqrstuv"
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{id, id, true},
		{"  " + id + "\n", id, true},
		{"https://www.youtube.com/channel/" + id, id, true},
		{"https://youtube.com/channel/" + id + "/videos?view=0", id, true},
		{"mirá mi canal: youtube.com/channel/" + id + " saludos", id, true},
		{"https://youtube.com/@streamer", "", false},
		{"UCshort", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractChannelID(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestValidChannelID(t *testing.T) {
	assert.True(t, ValidChannelID("UC_x5XG1OV2P6uZZ5FSM9Ttw"))
	assert.False(t, ValidChannelID("UU_x5XG1OV2P6uZZ5FSM9Ttw"))
	assert.False(t, ValidChannelID("UC_x5XG1OV2P6uZZ5FSM9Ttw1"))
}

func TestUploadsPlaylistID(t *testing.T) {
	assert.Equal(t, "UU_x5XG1OV2P6uZZ5FSM9Ttw", UploadsPlaylistID("UC_x5XG1OV2P6uZZ5FSM9Ttw"))
}

func TestCredentialNeverPrintsKey(t *testing.T) {
	c := NewCredential("AIzaSecret")
	assert.Len(t, c.Fingerprint, 8)
	assert.NotContains(t, c.String(), "AIza")
	assert.Equal(t, c.Fingerprint, NewCredential("AIzaSecret").Fingerprint)
}

func TestChannelHelpers(t *testing.T) {
	c := Channel{ID: "UC_x5XG1OV2P6uZZ5FSM9Ttw"}
	assert.Equal(t, "https://youtube.com/channel/UC_x5XG1OV2P6uZZ5FSM9Ttw", c.URL())
	assert.False(t, c.SubscribersKnown())
	c.Subscribers = 1200
	assert.True(t, c.SubscribersKnown())
	c.SubscribersHidden = true
	assert.False(t, c.SubscribersKnown())
}
