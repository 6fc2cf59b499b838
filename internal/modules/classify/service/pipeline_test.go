package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/reshetovitsme/streamer-census/internal/modules/classify/domain"
	"github.com/reshetovitsme/streamer-census/internal/shared/errors"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPipeline(t *testing.T) *Pipeline {
	t.Helper()
	lex, err := domain.DefaultLexicon()
	require.NoError(t, err)
	p, err := New(lex, Options{MinConfidence: 65, MinLiveness: 30, SampleSize: 10}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return p
}

func classify(t *testing.T, p *Pipeline, in domain.Input) domain.Result {
	t.Helper()
	r, err := p.Classify(context.Background(), in)
	require.NoError(t, err)
	return r
}

func TestClassify_Scenarios(t *testing.T) {
	p := newPipeline(t)

	a := classify(t, p, domain.Input{ChannelID: "A", Description: "transmito todos los días a las 20hs, che"})
	assert.True(t, a.Accepted)
	assert.Equal(t, domain.MethodCulturalPattern, a.Method)
	assert.GreaterOrEqual(t, a.Confidence, 65)
	assert.True(t, a.Live)

	b := classify(t, p, domain.Input{ChannelID: "B", Description: "Streamer desde Madrid, España"})
	assert.False(t, b.Accepted)
	assert.Equal(t, domain.MethodExclusion, b.Method)
	assert.Contains(t, b.Indicators(), "self-id:desde madrid")
}

func TestClassify_ExplicitMarkers(t *testing.T) {
	p := newPipeline(t)

	tests := []struct {
		name       string
		in         domain.Input
		method     domain.Method
		confidence int
		province   string
	}{
		{
			name:       "country name",
			in:         domain.Input{Description: "Gamer argentino, streams de noche"},
			method:     domain.MethodExplicitMention,
			confidence: 95,
		},
		{
			name:       "country hint",
			in:         domain.Input{Title: "canal", CountryHint: "ar"},
			method:     domain.MethodExplicitMention,
			confidence: 90,
		},
		{
			name:       "local code",
			in:         domain.Input{Title: "Bunker MZA en vivo"},
			method:     domain.MethodLocalCode,
			confidence: 92,
			province:   "Mendoza",
		},
		{
			name:       "province accented or not",
			in:         domain.Input{Description: "Charlas desde Cordoba capital"},
			method:     domain.MethodProvinceMention,
			confidence: 88,
			province:   "Córdoba",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := classify(t, p, tt.in)
			assert.True(t, r.Accepted)
			assert.Equal(t, tt.method, r.Method)
			assert.Equal(t, tt.confidence, r.Confidence)
			assert.Equal(t, tt.province, r.Province)
		})
	}
}

func TestClassify_ExclusionPrecedence(t *testing.T) {
	p := newPipeline(t)

	r := classify(t, p, domain.Input{Description: "Viajes por México, Colombia y Perú. Mate y asado, che"})
	assert.False(t, r.Accepted)
	assert.Equal(t, domain.MethodExclusion, r.Method)
	assert.Zero(t, r.Confidence)

	r = classify(t, p, domain.Input{Description: "videos de chile y peru"})
	assert.NotEqual(t, domain.MethodExclusion, r.Method)
}

func TestClassify_ForeignCountryHint(t *testing.T) {
	p := newPipeline(t)

	r := classify(t, p, domain.Input{Description: "streams de Lima", CountryHint: "PE"})
	assert.Equal(t, domain.MethodExclusion, r.Method)
	assert.Contains(t, r.Indicators(), "exclusion:country-hint:PE")
}

func TestClassify_MixedSignal(t *testing.T) {
	p := newPipeline(t)

	weak := classify(t, p, domain.Input{
		Description: "Streamer argentino, saludos a México, Chile y Colombia",
	})
	assert.True(t, weak.Accepted)
	assert.Equal(t, domain.MethodExplicitMention, weak.Method)
	assert.Equal(t, 80, weak.Confidence)
	assert.Contains(t, weak.Indicators(), "mixed-signal:exclusion=3")

	strong := classify(t, p, domain.Input{
		Description: "Argentina? no. España, Madrid, Barcelona, Valencia y Sevilla",
	})
	assert.False(t, strong.Accepted)
	assert.Equal(t, domain.MethodExclusion, strong.Method)

	selfID := classify(t, p, domain.Input{
		Description: "Hablo de argentina pero vivo en Madrid, España, Barcelona",
	})
	assert.Equal(t, domain.MethodExclusion, selfID.Method)
}

func TestClassify_WordBoundaries(t *testing.T) {
	p := newPipeline(t)

	// "cor" inside "corazon" and "che" inside "noche" must not count.
	r := classify(t, p, domain.Input{Description: "corazon de la noche, mzanilla"})
	assert.Equal(t, domain.MethodInsufficientEvidence, r.Method)
	assert.Zero(t, r.Confidence)
	assert.Empty(t, r.Province)
}

func TestClassify_CulturalMonotonic(t *testing.T) {
	p := newPipeline(t)

	base := "hola a todos"
	additions := []string{"che", "boludo", "mate", "20hs", "vos sos", "suscribite", "asado", "fernet", "che"}

	prev := classify(t, p, domain.Input{Description: base}).Confidence
	text := base
	for _, add := range additions {
		text += " " + add
		got := classify(t, p, domain.Input{Description: text}).Confidence
		assert.GreaterOrEqual(t, got, prev, "adding %q", add)
		prev = got
	}
	assert.LessOrEqual(t, prev, 90)

	// An explicit marker on top of saturated cultural text keeps the score.
	for _, add := range []string{"mendoza", "MZA", "argentina"} {
		text += " " + add
		r := classify(t, p, domain.Input{Description: text})
		assert.GreaterOrEqual(t, r.Confidence, prev, "adding %q", add)
		assert.NotEqual(t, domain.MethodCulturalPattern, r.Method, "adding %q", add)
		prev = r.Confidence
	}
	assert.Equal(t, 95, prev)
}

func TestClassify_ExplicitMarkerKeepsHigherCulturalConfidence(t *testing.T) {
	p := newPipeline(t)

	text := "che boludo vos sos suscribite seguime 20hs mate asado"
	cultural := classify(t, p, domain.Input{Description: text})
	require.Equal(t, domain.MethodCulturalPattern, cultural.Method)

	r := classify(t, p, domain.Input{Description: text + " mendoza"})
	assert.Equal(t, domain.MethodProvinceMention, r.Method)
	assert.Equal(t, "Mendoza", r.Province)
	assert.Equal(t, cultural.Confidence, r.Confidence)
	assert.Contains(t, r.Indicators(), "province:Mendoza")
}

func TestClassify_ConfidenceClamped(t *testing.T) {
	p := newPipeline(t)

	text := strings.Repeat("che boludo vos sos mate asado 20hs ", 20)
	r := classify(t, p, domain.Input{Description: text})
	assert.Equal(t, 90, r.Confidence)
	assert.Equal(t, domain.MethodCulturalPattern, r.Method)

	lex, err := domain.DefaultLexicon()
	require.NoError(t, err)
	lex.Cultural.MaxConfidence = 400
	wide, err := New(lex, Options{MinConfidence: 65}, nil)
	require.NoError(t, err)
	r = classify(t, wide, domain.Input{Description: text})
	assert.Equal(t, 100, r.Confidence)
}

func TestClassify_InsufficientEvidence(t *testing.T) {
	p := newPipeline(t)

	r := classify(t, p, domain.Input{Description: "gaming todos los dias, che"})
	assert.False(t, r.Accepted)
	assert.Equal(t, domain.MethodInsufficientEvidence, r.Method)
	assert.Equal(t, 30, r.Confidence)
}

func TestClassify_EmptyInput(t *testing.T) {
	p := newPipeline(t)

	r := classify(t, p, domain.Input{})
	assert.False(t, r.Accepted)
	assert.Equal(t, domain.MethodInsufficientEvidence, r.Method)
	assert.Equal(t, "General", r.Category)
	assert.Equal(t, "incierta", r.Region)
	assert.Zero(t, r.LiveScore)
}

func TestClassify_RegionAndCategory(t *testing.T) {
	p := newPipeline(t)

	r := classify(t, p, domain.Input{
		Description: "Gaming desde Bariloche, nieve y lago. Juegos todas las noches",
	})
	assert.Equal(t, "patagonia", r.Region)
	assert.Equal(t, "Gaming", r.Category)

	// A province name outweighs scattered indicators.
	r = classify(t, p, domain.Input{Description: "Podcast y charlas en Salta, che"})
	assert.Equal(t, "noa", r.Region)
	assert.Equal(t, "Charlas", r.Category)
}

func TestClassify_RegionTieGoesToFirstDeclared(t *testing.T) {
	p := newPipeline(t)

	// One indicator each for rioplatense (che) and cuyo (vino).
	r := classify(t, p, domain.Input{Description: "vino y che"})
	assert.Equal(t, "rioplatense", r.Region)
}

func TestClassify_RecentItemsJoinEvidence(t *testing.T) {
	p := newPipeline(t)

	in := domain.Input{
		Title: "Canal",
		Recent: []domain.RecentItem{
			{Title: "🔴 EN VIVO jugando con los pibes"},
			{Title: "Stream de los viernes", Description: "desde Tucumán"},
		},
	}
	r := classify(t, p, in)
	assert.Equal(t, domain.MethodProvinceMention, r.Method)
	assert.Equal(t, "Tucumán", r.Province)
	assert.True(t, r.Live)
}

func TestClassify_SampleSizeCapsRecentItems(t *testing.T) {
	lex, err := domain.DefaultLexicon()
	require.NoError(t, err)
	p, err := New(lex, Options{MinConfidence: 65, SampleSize: 1}, nil)
	require.NoError(t, err)

	r, err := p.Classify(context.Background(), domain.Input{
		Recent: []domain.RecentItem{{Title: "nada"}, {Title: "streams desde argentina"}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MethodInsufficientEvidence, r.Method)
}

func TestLiveness(t *testing.T) {
	p := newPipeline(t)

	tests := []struct {
		name string
		in   domain.Input
		live bool
	}{
		{"keywords and schedule", domain.Input{Description: "transmito todos los días a las 20hs"}, true},
		{"platforms capped", domain.Input{Description: "twitch kick obs streamlabs"}, false},
		{"recent titles", domain.Input{Description: "streams", Recent: []domain.RecentItem{{Title: "🔴 en vivo"}}}, true},
		{"nothing", domain.Input{Description: "recetas de cocina"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, _ := p.Liveness(tt.in)
			assert.Equal(t, tt.live, score >= 30, "score %d", score)
		})
	}
}

func TestClassify_ExhaustionCausePropagates(t *testing.T) {
	p := newPipeline(t)

	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(oops.Wrap(errors.ErrAllCredentialsExhausted))

	_, err := p.Classify(ctx, domain.Input{Description: "che"})
	assert.ErrorIs(t, err, errors.ErrAllCredentialsExhausted)

	plain, cancelPlain := context.WithCancel(context.Background())
	cancelPlain()
	_, err = p.Classify(plain, domain.Input{Description: "che"})
	assert.NoError(t, err)
}

func TestClassify_ResultIsImmutable(t *testing.T) {
	p := newPipeline(t)

	r := classify(t, p, domain.Input{Description: "argentina"})
	got := r.Indicators()
	got[0] = "tampered"
	assert.NotEqual(t, "tampered", r.Indicators()[0])
}

func TestNew_InvalidPattern(t *testing.T) {
	lex, err := domain.DefaultLexicon()
	require.NoError(t, err)
	lex.Cultural.Sets[0].Patterns = []string{"("}

	_, err = New(lex, Options{}, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}
