package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/reshetovitsme/streamer-census/internal/modules/quota/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorage_LoadMissingReturnsZeroState(t *testing.T) {
	repo, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	state, err := repo.Load()
	require.NoError(t, err)
	assert.Empty(t, state.Date)
	assert.Zero(t, state.UsedTotal)
}

func TestFileStorage_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewFileStorage(dir)
	require.NoError(t, err)

	state := domain.NewState("2026-10-19")
	state.Used["a1b2c3d4"] = 300
	state.UsedTotal = 300
	state.Exhausted = []string{"ffff0000"}
	require.NoError(t, repo.Save(state))

	reopened, err := NewFileStorage(dir)
	require.NoError(t, err)
	got, err := reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, state, got)

	_, err = os.Stat(filepath.Join(dir, "quota.json.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileStorage_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "quota.json"), []byte("{not json"), 0644))

	repo, err := NewFileStorage(dir)
	require.NoError(t, err)
	_, err = repo.Load()
	assert.Error(t, err)
}
