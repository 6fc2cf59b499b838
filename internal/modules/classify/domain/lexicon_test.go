package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/reshetovitsme/streamer-census/internal/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLexicon(t *testing.T) {
	lex, err := DefaultLexicon()
	require.NoError(t, err)

	assert.Equal(t, "AR", lex.Country)
	assert.Equal(t, 95, lex.Explicit.NameConfidence)
	assert.Equal(t, 92, lex.Explicit.CodeConfidence)
	assert.Equal(t, 88, lex.Explicit.ProvinceConfidence)
	assert.Len(t, lex.Explicit.Provinces, 23)
	assert.Equal(t, 3, lex.Exclusion.Threshold)
	assert.Equal(t, "General", lex.Categories.Default)
	assert.NotEmpty(t, lex.Cultural.Sets)
	assert.NotEmpty(t, lex.Liveness)
}

func TestLoadLexicon_EmptyPathUsesDefault(t *testing.T) {
	lex, err := LoadLexicon("")
	require.NoError(t, err)
	assert.Equal(t, "AR", lex.Country)
}

func TestLoadLexicon_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
country: UY
exclusion:
  terms: [argentina]
  threshold: 1
  strong_threshold: 2
cultural:
  scale: 1
  max_confidence: 80
  sets:
    - {name: slang, weight: 10, cap: 30, terms: [bo, ta]}
`), 0o644))

	lex, err := LoadLexicon(path)
	require.NoError(t, err)
	assert.Equal(t, "UY", lex.Country)
	assert.Equal(t, "General", lex.Categories.Default)
	assert.Equal(t, []string{"bo", "ta"}, lex.Cultural.Sets[0].Terms)
}

func TestParseLexicon_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "country: [unterminated"},
		{"missing threshold", "country: AR"},
		{"strong below threshold", "exclusion: {threshold: 3, strong_threshold: 2}"},
		{"negative weight", "exclusion: {threshold: 1, strong_threshold: 1}\nliveness: [{name: x, weight: -1}]"},
		{"unnamed set", "exclusion: {threshold: 1, strong_threshold: 1}\ncultural: {sets: [{weight: 1}]}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLexicon([]byte(tt.yaml))
			assert.ErrorIs(t, err, errors.ErrInvalidConfig)
		})
	}
}

func TestResult_Clamp(t *testing.T) {
	r := NewResult(Result{Confidence: 140, LiveScore: -5}, []string{"a"})
	assert.Equal(t, 100, r.Confidence)
	assert.Equal(t, 0, r.LiveScore)
	assert.Equal(t, []string{"a"}, r.Indicators())
}
