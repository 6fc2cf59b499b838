package domain

import (
	"strconv"
	"strings"
	"time"

	classifyDomain "github.com/reshetovitsme/streamer-census/internal/modules/classify/domain"
	youtubeDomain "github.com/reshetovitsme/streamer-census/internal/modules/youtube/domain"
	"github.com/reshetovitsme/streamer-census/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// IndicatorSeparator joins the evidence trail into one column.
const IndicatorSeparator = " | "

// Columns is the export contract; downstream tools rely on this order.
var Columns = []string{
	"channel_id",
	"title",
	"category",
	"region",
	"province",
	"subscribers",
	"confidence",
	"method",
	"indicators",
	"detected_at",
	"url",
	"description",
	"live_score",
}

// Record is an accepted channel. It is written once per channel id and
// never updated.
type Record struct {
	ChannelID   string    `json:"channel_id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Region      string    `json:"region"`
	Province    string    `json:"province"`
	Subscribers int64     `json:"subscribers"`
	Confidence  int       `json:"confidence"`
	Method      string    `json:"method"`
	Indicators  []string  `json:"indicators"`
	DetectedAt  time.Time `json:"detected_at"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	LiveScore   int       `json:"live_score"`
}

// NewRecord combines a channel snapshot with its classification. The
// description is cut to descriptionLimit runes when the limit is positive.
func NewRecord(ch youtubeDomain.Channel, r classifyDomain.Result, at time.Time, descriptionLimit int) Record {
	description := ch.Description
	if runes := []rune(description); descriptionLimit > 0 && len(runes) > descriptionLimit {
		description = string(runes[:descriptionLimit])
	}
	subscribers := ch.Subscribers
	if !ch.SubscribersKnown() {
		subscribers = 0
	}
	return Record{
		ChannelID:   ch.ID,
		Title:       ch.Title,
		Category:    r.Category,
		Region:      r.Region,
		Province:    r.Province,
		Subscribers: subscribers,
		Confidence:  r.Confidence,
		Method:      r.Method.String(),
		Indicators:  r.Indicators(),
		DetectedAt:  at.UTC().Truncate(time.Second),
		URL:         ch.URL(),
		Description: description,
		LiveScore:   r.LiveScore,
	}
}

// JoinedIndicators is the single-column form of Indicators.
func (r Record) JoinedIndicators() string {
	return strings.Join(r.Indicators, IndicatorSeparator)
}

// SplitIndicators parses the single-column form.
func SplitIndicators(s string) []string {
	return lo.Compact(strings.Split(s, IndicatorSeparator))
}

// Row renders the record in Columns order.
func (r Record) Row() []string {
	return []string{
		r.ChannelID,
		r.Title,
		r.Category,
		r.Region,
		r.Province,
		strconv.FormatInt(r.Subscribers, 10),
		strconv.Itoa(r.Confidence),
		r.Method,
		r.JoinedIndicators(),
		r.DetectedAt.UTC().Format(time.RFC3339),
		r.URL,
		r.Description,
		strconv.Itoa(r.LiveScore),
	}
}

// ParseRow is the inverse of Row.
func ParseRow(row []string) (Record, error) {
	if len(row) != len(Columns) {
		return Record{}, oops.With("columns", len(row)).Wrap(errors.ErrStorage)
	}
	subscribers, err := strconv.ParseInt(row[5], 10, 64)
	if err != nil {
		return Record{}, oops.With("column", "subscribers").Wrap(err)
	}
	confidence, err := strconv.Atoi(row[6])
	if err != nil {
		return Record{}, oops.With("column", "confidence").Wrap(err)
	}
	detectedAt, err := time.Parse(time.RFC3339, row[9])
	if err != nil {
		return Record{}, oops.With("column", "detected_at").Wrap(err)
	}
	liveScore, err := strconv.Atoi(row[12])
	if err != nil {
		return Record{}, oops.With("column", "live_score").Wrap(err)
	}
	return Record{
		ChannelID:   row[0],
		Title:       row[1],
		Category:    row[2],
		Region:      row[3],
		Province:    row[4],
		Subscribers: subscribers,
		Confidence:  confidence,
		Method:      row[7],
		Indicators:  SplitIndicators(row[8]),
		DetectedAt:  detectedAt,
		URL:         row[10],
		Description: row[11],
		LiveScore:   liveScore,
	}, nil
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Region   string
	Category string
	Limit    int
}

// Match reports whether r passes the filter's field constraints.
func (f Filter) Match(r Record) bool {
	return (f.Region == "" || strings.EqualFold(f.Region, r.Region)) &&
		(f.Category == "" || strings.EqualFold(f.Category, r.Category))
}

// Stats summarizes the accepted set.
type Stats struct {
	Total             int            `json:"total"`
	ByRegion          map[string]int `json:"by_region"`
	ByCategory        map[string]int `json:"by_category"`
	ByMethod          map[string]int `json:"by_method"`
	AverageConfidence float64        `json:"average_confidence"`
	LastDetectedAt    time.Time      `json:"last_detected_at,omitzero"`
}

// ComputeStats aggregates records.
func ComputeStats(records []Record) Stats {
	s := Stats{
		Total:      len(records),
		ByRegion:   lo.CountValuesBy(records, func(r Record) string { return r.Region }),
		ByCategory: lo.CountValuesBy(records, func(r Record) string { return r.Category }),
		ByMethod:   lo.CountValuesBy(records, func(r Record) string { return r.Method }),
	}
	if len(records) == 0 {
		return s
	}
	s.AverageConfidence = lo.MeanBy(records, func(r Record) float64 { return float64(r.Confidence) })
	s.LastDetectedAt = lo.MaxBy(records, func(a, b Record) bool { return a.DetectedAt.After(b.DetectedAt) }).DetectedAt
	return s
}
