package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/reshetovitsme/streamer-census/internal/modules/classify/domain"
	"github.com/reshetovitsme/streamer-census/internal/shared/errors"
	"github.com/reshetovitsme/streamer-census/internal/shared/textnorm"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// Options holds the acceptance thresholds.
type Options struct {
	MinConfidence int
	MinLiveness   int
	// SampleSize caps how many recent uploads join the evidence text.
	SampleSize int
}

type term struct {
	label string
	re    *regexp.Regexp
}

type scoredSet struct {
	name       string
	weight     int
	cap        int
	recentOnly bool
	terms      []term
}

type marker struct {
	term
	province string
}

type region struct {
	name       string
	indicators []term
	provinces  []term
}

type category struct {
	name     string
	keywords []term
}

// Pipeline classifies channels against a compiled lexicon. It holds no
// mutable state and is safe for concurrent use.
type Pipeline struct {
	opts   Options
	lex    *domain.Lexicon
	logger *slog.Logger

	names      []term
	codes      []marker
	provinces  []marker
	exclusions []term
	selfID     *regexp.Regexp
	cultural   []scoredSet
	liveSets   []scoredSet
	regions    []region
	categories []category
}

// New compiles lex. Invalid raw patterns fail with ErrInvalidConfig.
func New(lex *domain.Lexicon, opts Options, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = 10
	}

	p := &Pipeline{
		opts:   opts,
		lex:    lex,
		logger: logger,
		names:  compileTerms(lex.Explicit.Names),
		codes: lo.FilterMap(lex.Explicit.Codes, func(c domain.LocalCode, _ int) (marker, bool) {
			re := textnorm.CompileTerm(c.Code)
			return marker{term: term{label: c.Code, re: re}, province: c.Province}, re != nil
		}),
		provinces: lo.FilterMap(lex.Explicit.Provinces, func(name string, _ int) (marker, bool) {
			re := textnorm.CompileTerm(name)
			return marker{term: term{label: name, re: re}, province: name}, re != nil
		}),
		exclusions: compileTerms(lex.Exclusion.Terms),
		regions: lo.Map(lex.Regions.Items, func(r domain.Region, _ int) region {
			return region{name: r.Name, indicators: compileTerms(r.Indicators), provinces: compileTerms(r.Provinces)}
		}),
		categories: lo.Map(lex.Categories.Items, func(c domain.Category, _ int) category {
			return category{name: c.Name, keywords: compileTerms(c.Keywords)}
		}),
	}

	var err error
	if p.cultural, err = compileSets(lex.Cultural.Sets); err != nil {
		return nil, err
	}
	if p.liveSets, err = compileSets(lex.Liveness); err != nil {
		return nil, err
	}
	if p.selfID, err = compileSelfID(lex.Exclusion.SelfID, lex.Exclusion.Terms); err != nil {
		return nil, err
	}
	return p, nil
}

// Classify runs the detector chain: exclusion, explicit markers, cultural
// scoring, then region/category refinement and the liveness score. It only
// fails when ctx was cancelled because every credential is exhausted.
func (p *Pipeline) Classify(ctx context.Context, in domain.Input) (domain.Result, error) {
	if err := exhausted(ctx); err != nil {
		return domain.Result{}, err
	}

	text := p.evidence(in)
	var indicators []string

	// Exclusion evidence.
	exclusionHits, exclusionTerms := countTerms(p.exclusions, text)
	hint := strings.ToUpper(strings.TrimSpace(in.CountryHint))
	foreignHint := hint != "" && !strings.EqualFold(hint, p.lex.Country)
	if foreignHint {
		exclusionHits += p.lex.Exclusion.ForeignHintHits
		exclusionTerms = append(exclusionTerms, "country-hint:"+hint)
	}
	selfID := ""
	if p.selfID != nil {
		selfID = p.selfID.FindString(text)
	}
	excl := p.lex.Exclusion
	exclusionFires := exclusionHits >= excl.Threshold || selfID != ""

	// Explicit markers. Cultural evidence can only raise their confidence.
	method, confidence, explicitMark := p.explicit(text, hint)
	province := p.province(text)
	culturalConfidence, culturalIndicators := p.culturalScore(text)
	var boost []string
	if method != "" && culturalConfidence > confidence {
		confidence = culturalConfidence
		boost = culturalIndicators
	}

	if exclusionFires {
		strong := exclusionHits >= excl.StrongThreshold || (selfID != "" && exclusionHits >= excl.Threshold)
		if method == "" || strong {
			indicators = append(indicators, lo.Map(exclusionTerms, func(t string, _ int) string { return "exclusion:" + t })...)
			if selfID != "" {
				indicators = append(indicators, "self-id:"+selfID)
			}
			if method != "" {
				indicators = append(indicators, "overrides:"+explicitMark)
			}
			return p.finish(ctx, in, text, domain.Result{Method: domain.MethodExclusion}, indicators)
		}
		confidence -= excl.MixedPenalty
		indicators = append(indicators, explicitMark)
		indicators = append(indicators, boost...)
		indicators = append(indicators, fmt.Sprintf("mixed-signal:exclusion=%d", exclusionHits))
		return p.finish(ctx, in, text, domain.Result{
			Accepted:   confidence >= p.opts.MinConfidence,
			Confidence: confidence,
			Method:     method,
			Province:   province,
		}, indicators)
	}

	if method != "" {
		indicators = append(indicators, explicitMark)
		indicators = append(indicators, boost...)
		return p.finish(ctx, in, text, domain.Result{
			Accepted:   confidence >= p.opts.MinConfidence,
			Confidence: confidence,
			Method:     method,
			Province:   province,
		}, indicators)
	}

	if err := exhausted(ctx); err != nil {
		return domain.Result{}, err
	}

	// Cultural scoring.
	indicators = append(indicators, culturalIndicators...)
	confidence = culturalConfidence

	method = domain.MethodInsufficientEvidence
	accepted := confidence >= p.opts.MinConfidence
	if accepted {
		method = domain.MethodCulturalPattern
	}
	return p.finish(ctx, in, text, domain.Result{
		Accepted:   accepted,
		Confidence: confidence,
		Method:     method,
		Province:   province,
	}, indicators)
}

// culturalScore maps the weighted lexicon hits onto the bounded confidence scale.
func (p *Pipeline) culturalScore(text string) (int, []string) {
	score, indicators := scoreSets(p.cultural, text, "")
	return domain.Clamp(min(p.lex.Cultural.MaxConfidence, int(float64(score)*p.lex.Cultural.Scale))), indicators
}

// Liveness scores how likely the channel broadcasts live.
func (p *Pipeline) Liveness(in domain.Input) (int, []string) {
	return p.liveness(p.evidence(in), p.recentTitles(in))
}

// finish adds the refinements that never change the decision.
func (p *Pipeline) finish(ctx context.Context, in domain.Input, text string, r domain.Result, indicators []string) (domain.Result, error) {
	if err := exhausted(ctx); err != nil {
		return domain.Result{}, err
	}

	r.Region = p.region(text, r.Province)
	r.Category = p.category(text)
	live, liveIndicators := p.liveness(text, p.recentTitles(in))
	r.LiveScore = live
	r.Live = live >= p.opts.MinLiveness
	indicators = append(indicators, liveIndicators...)

	result := domain.NewResult(r, indicators)
	p.logger.Debug("channel classified",
		"channel_id", in.ChannelID,
		"accepted", result.Accepted,
		"method", result.Method,
		"confidence", result.Confidence,
		"region", result.Region,
		"category", result.Category,
		"live_score", result.LiveScore)
	return result, nil
}

func (p *Pipeline) explicit(text, hint string) (domain.Method, int, string) {
	ex := p.lex.Explicit
	if t, ok := firstMatch(p.names, text); ok {
		return domain.MethodExplicitMention, ex.NameConfidence, "explicit:" + t.label
	}
	if hint != "" && strings.EqualFold(hint, p.lex.Country) {
		return domain.MethodExplicitMention, ex.CountryHintConfidence, "country-hint:" + hint
	}
	if m, ok := lo.Find(p.codes, func(m marker) bool { return m.re.MatchString(text) }); ok {
		return domain.MethodLocalCode, ex.CodeConfidence, "local-code:" + m.label
	}
	if m, ok := lo.Find(p.provinces, func(m marker) bool { return m.re.MatchString(text) }); ok {
		return domain.MethodProvinceMention, ex.ProvinceConfidence, "province:" + m.label
	}
	return "", 0, ""
}

// province reports the first local code or province named in text.
func (p *Pipeline) province(text string) string {
	if m, ok := lo.Find(p.codes, func(m marker) bool { return m.re.MatchString(text) }); ok {
		return m.province
	}
	if m, ok := lo.Find(p.provinces, func(m marker) bool { return m.re.MatchString(text) }); ok {
		return m.province
	}
	return ""
}

// region picks the highest scoring region; ties go to the one declared first.
func (p *Pipeline) region(text, province string) string {
	rl := p.lex.Regions
	folded := textnorm.Fold(province)
	best, bestScore := rl.Default, 0
	for _, r := range p.regions {
		hits, _ := countTerms(r.indicators, text)
		provinceHits, _ := countTerms(r.provinces, text)
		score := hits*rl.IndicatorWeight + provinceHits*rl.ProvinceWeight
		if folded != "" && lo.ContainsBy(r.provinces, func(t term) bool { return textnorm.Fold(t.label) == folded }) {
			score += rl.ProvinceWeight
		}
		if score > bestScore {
			best, bestScore = r.name, score
		}
	}
	return best
}

func (p *Pipeline) category(text string) string {
	best, bestScore := p.lex.Categories.Default, 0
	for _, c := range p.categories {
		if score, _ := countTerms(c.keywords, text); score > bestScore {
			best, bestScore = c.name, score
		}
	}
	return best
}

func (p *Pipeline) liveness(text, recent string) (int, []string) {
	var sets, recentSets []scoredSet
	for _, s := range p.liveSets {
		if s.recentOnly {
			recentSets = append(recentSets, s)
		} else {
			sets = append(sets, s)
		}
	}
	score, indicators := scoreSets(sets, text, "live:")
	recentScore, recentIndicators := scoreSets(recentSets, recent, "live:")
	return domain.Clamp(score + recentScore), append(indicators, recentIndicators...)
}

// evidence joins title, description and the sampled uploads into folded text.
func (p *Pipeline) evidence(in domain.Input) string {
	parts := []string{in.Title, in.Description}
	for _, item := range lo.Slice(in.Recent, 0, p.opts.SampleSize) {
		parts = append(parts, item.Title, item.Description)
	}
	return textnorm.Fold(strings.Join(parts, "\n"))
}

func (p *Pipeline) recentTitles(in domain.Input) string {
	return textnorm.Fold(strings.Join(lo.Map(lo.Slice(in.Recent, 0, p.opts.SampleSize), func(item domain.RecentItem, _ int) string {
		return item.Title
	}), "\n"))
}

// exhausted surfaces credential exhaustion signalled through ctx. Any other
// cancellation is left for the caller to notice.
func exhausted(ctx context.Context) error {
	if cause := context.Cause(ctx); cause != nil && stderrors.Is(cause, errors.ErrAllCredentialsExhausted) {
		return oops.With("stage", "classification").Wrap(cause)
	}
	return nil
}

func compileTerms(terms []string) []term {
	return lo.FilterMap(terms, func(t string, _ int) (term, bool) {
		re := textnorm.CompileTerm(t)
		return term{label: textnorm.Fold(t), re: re}, re != nil
	})
}

func compileSets(sets []domain.WeightedSet) ([]scoredSet, error) {
	out := make([]scoredSet, 0, len(sets))
	for _, s := range sets {
		terms := compileTerms(s.Terms)
		for _, raw := range s.Patterns {
			re, err := regexp.Compile(raw)
			if err != nil {
				return nil, oops.With("set", s.Name, "pattern", raw).Wrapf(errors.ErrInvalidConfig, "%v", err)
			}
			terms = append(terms, term{label: raw, re: re})
		}
		out = append(out, scoredSet{name: s.Name, weight: s.Weight, cap: s.Cap, recentOnly: s.RecentOnly, terms: terms})
	}
	return out, nil
}

// compileSelfID builds one expression matching a lead-in followed, within two
// words, by an excluded place.
func compileSelfID(leadIns, places []string) (*regexp.Regexp, error) {
	lead := lo.Compact(lo.Map(leadIns, func(s string, _ int) string { return textnorm.WordPattern(s) }))
	place := lo.Compact(lo.Map(places, func(s string, _ int) string { return textnorm.WordPattern(s) }))
	if len(lead) == 0 || len(place) == 0 {
		return nil, nil
	}
	expr := `(?:` + strings.Join(lead, "|") + `)\s+(?:\S+\s+){0,2}?(?:` + strings.Join(place, "|") + `)`
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, oops.With("context", "self identification").Wrapf(errors.ErrInvalidConfig, "%v", err)
	}
	return re, nil
}

func firstMatch(terms []term, text string) (term, bool) {
	return lo.Find(terms, func(t term) bool { return t.re.MatchString(text) })
}

// countTerms counts every occurrence of every term and lists the labels hit.
func countTerms(terms []term, text string) (int, []string) {
	total := 0
	var labels []string
	for _, t := range terms {
		if n := len(t.re.FindAllStringIndex(text, -1)); n > 0 {
			total += n
			labels = append(labels, t.label)
		}
	}
	return total, labels
}

// scoreSets sums count × weight per set, each capped on its own.
func scoreSets(sets []scoredSet, text, prefix string) (int, []string) {
	score := 0
	var indicators []string
	for _, s := range sets {
		hits, _ := countTerms(s.terms, text)
		if hits == 0 {
			continue
		}
		contribution := hits * s.weight
		if s.cap > 0 {
			contribution = min(contribution, s.cap)
		}
		score += contribution
		indicators = append(indicators, fmt.Sprintf("%s%s(%d)", prefix, s.name, hits))
	}
	return score, indicators
}
