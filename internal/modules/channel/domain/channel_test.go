package domain

import (
	"testing"
	"time"

	classifyDomain "github.com/reshetovitsme/streamer-census/internal/modules/classify/domain"
	youtubeDomain "github.com/reshetovitsme/streamer-census/internal/modules/youtube/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord(t *testing.T) {
	ch := youtubeDomain.Channel{
		ID:                "UCabcdefghijklmnopqrstuv",
		Title:             "El Bunker",
		Description:       "Ñandú día tras día",
		Subscribers:       5000,
		SubscribersHidden: true,
	}
	result := classifyDomain.NewResult(classifyDomain.Result{
		Accepted:   true,
		Confidence: 92,
		Method:     classifyDomain.MethodLocalCode,
		Category:   "Charlas",
		Region:     "cuyo",
		Province:   "Mendoza",
		LiveScore:  40,
	}, []string{"local-code:MZA", "live:keywords(1)"})
	at := time.Date(2026, 5, 2, 21, 30, 15, 999, time.FixedZone("ART", -3*3600))

	r := NewRecord(ch, result, at, 4)

	assert.Equal(t, "Ñand", r.Description)
	assert.Zero(t, r.Subscribers)
	assert.Equal(t, "local-code", r.Method)
	assert.Equal(t, "https://youtube.com/channel/UCabcdefghijklmnopqrstuv", r.URL)
	assert.Equal(t, "local-code:MZA | live:keywords(1)", r.JoinedIndicators())
	assert.Equal(t, time.Date(2026, 5, 3, 0, 30, 15, 0, time.UTC), r.DetectedAt)

	row := r.Row()
	require.Len(t, row, len(Columns))
	assert.Equal(t, "2026-05-03T00:30:15Z", row[9])

	parsed, err := ParseRow(row)
	require.NoError(t, err)
	assert.Equal(t, r, parsed)
}

func TestParseRow_WrongWidth(t *testing.T) {
	_, err := ParseRow([]string{"UC1", "x"})
	assert.Error(t, err)
}

func TestComputeStats(t *testing.T) {
	at := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	records := []Record{
		{Region: "cuyo", Category: "Gaming", Method: "local-code", Confidence: 92, DetectedAt: at},
		{Region: "cuyo", Category: "Charlas", Method: "cultural-pattern", Confidence: 70, DetectedAt: at.Add(time.Hour)},
		{Region: "noa", Category: "Gaming", Method: "local-code", Confidence: 90, DetectedAt: at.Add(-time.Hour)},
	}

	s := ComputeStats(records)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, map[string]int{"cuyo": 2, "noa": 1}, s.ByRegion)
	assert.Equal(t, map[string]int{"Gaming": 2, "Charlas": 1}, s.ByCategory)
	assert.Equal(t, 2, s.ByMethod["local-code"])
	assert.InDelta(t, 84.0, s.AverageConfidence, 0.001)
	assert.Equal(t, at.Add(time.Hour), s.LastDetectedAt)

	empty := ComputeStats(nil)
	assert.Zero(t, empty.Total)
	assert.Zero(t, empty.AverageConfidence)
}
