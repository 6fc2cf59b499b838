package domain

import (
	_ "embed"
	"os"
	"slices"

	"github.com/reshetovitsme/streamer-census/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexicon []byte

// Lexicon is the whole data-driven configuration of the classifier.
type Lexicon struct {
	Country    string           `yaml:"country"`
	Explicit   ExplicitLexicon  `yaml:"explicit"`
	Exclusion  ExclusionLexicon `yaml:"exclusion"`
	Cultural   CulturalLexicon  `yaml:"cultural"`
	Regions    RegionLexicon    `yaml:"regions"`
	Categories CategoryLexicon  `yaml:"categories"`
	Liveness   []WeightedSet    `yaml:"liveness"`
}

type LocalCode struct {
	Code     string `yaml:"code"`
	Province string `yaml:"province"`
}

type ExplicitLexicon struct {
	Names                 []string    `yaml:"names"`
	NameConfidence        int         `yaml:"name_confidence"`
	CountryHintConfidence int         `yaml:"country_hint_confidence"`
	Codes                 []LocalCode `yaml:"codes"`
	CodeConfidence        int         `yaml:"code_confidence"`
	Provinces             []string    `yaml:"provinces"`
	ProvinceConfidence    int         `yaml:"province_confidence"`
}

type ExclusionLexicon struct {
	Terms []string `yaml:"terms"`
	// SelfID lead-ins ("desde", "vivo en") followed by an excluded term
	// count as a self-identification.
	SelfID []string `yaml:"self_id"`
	// Threshold hits reject outright; with an explicit marker present,
	// StrongThreshold hits (or self-identification plus Threshold) are needed.
	Threshold       int `yaml:"threshold"`
	StrongThreshold int `yaml:"strong_threshold"`
	MixedPenalty    int `yaml:"mixed_penalty"`
	// ForeignHintHits is how many hits a non-target country hint is worth.
	ForeignHintHits int `yaml:"foreign_hint_hits"`
}

// WeightedSet scores count × Weight, capped at Cap when Cap > 0. Terms are
// matched on word boundaries after folding; Patterns are raw expressions
// run against the folded text.
type WeightedSet struct {
	Name     string   `yaml:"name"`
	Weight   int      `yaml:"weight"`
	Cap      int      `yaml:"cap"`
	Terms    []string `yaml:"terms"`
	Patterns []string `yaml:"patterns"`
	// RecentOnly sets are matched against recent upload titles only.
	RecentOnly bool `yaml:"recent_only"`
}

type CulturalLexicon struct {
	Sets          []WeightedSet `yaml:"sets"`
	Scale         float64       `yaml:"scale"`
	MaxConfidence int           `yaml:"max_confidence"`
}

type Region struct {
	Name       string   `yaml:"name"`
	Indicators []string `yaml:"indicators"`
	Provinces  []string `yaml:"provinces"`
}

type RegionLexicon struct {
	Default         string   `yaml:"default"`
	IndicatorWeight int      `yaml:"indicator_weight"`
	ProvinceWeight  int      `yaml:"province_weight"`
	Items           []Region `yaml:"items"`
}

type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

type CategoryLexicon struct {
	Default string     `yaml:"default"`
	Items   []Category `yaml:"items"`
}

// DefaultLexicon returns the built-in lexicon.
func DefaultLexicon() (*Lexicon, error) {
	return ParseLexicon(defaultLexicon)
}

// LoadLexicon reads a lexicon file, or the built-in one when path is empty.
func LoadLexicon(path string) (*Lexicon, error) {
	if path == "" {
		return DefaultLexicon()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.With("lexicon_file", path).Wrap(err)
	}
	lex, err := ParseLexicon(data)
	if err != nil {
		return nil, oops.With("lexicon_file", path).Wrap(err)
	}
	return lex, nil
}

// ParseLexicon decodes and validates a YAML lexicon.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, oops.Wrapf(errors.ErrInvalidConfig, "lexicon: %v", err)
	}
	if err := lex.Validate(); err != nil {
		return nil, err
	}
	return &lex, nil
}

// Validate rejects lexicons the pipeline cannot score with.
func (l *Lexicon) Validate() error {
	sets := slices.Concat(l.Cultural.Sets, l.Liveness)
	if bad, found := lo.Find(sets, func(s WeightedSet) bool {
		return s.Name == "" || s.Weight < 0 || s.Cap < 0
	}); found {
		return oops.With("set", bad.Name).Wrapf(errors.ErrInvalidConfig, "lexicon set needs a name and non-negative weight and cap")
	}
	switch {
	case l.Exclusion.Threshold <= 0:
		return oops.With("threshold", l.Exclusion.Threshold).Wrapf(errors.ErrInvalidConfig, "exclusion threshold must be positive")
	case l.Exclusion.StrongThreshold < l.Exclusion.Threshold:
		return oops.With("strong_threshold", l.Exclusion.StrongThreshold).Wrapf(errors.ErrInvalidConfig, "strong threshold below threshold")
	case l.Cultural.Scale < 0:
		return oops.With("scale", l.Cultural.Scale).Wrapf(errors.ErrInvalidConfig, "cultural scale must not be negative")
	}
	if l.Categories.Default == "" {
		l.Categories.Default = "General"
	}
	return nil
}
