package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.IncAPICall("search", "ok")
	m.SetQuota(1, 2)
	m.IncRotation()
	m.IncCache("detail", true)
	m.IncOutcome("accepted", "")
	m.IncFeedRequest()
	assert.NoError(t, m.WriteTextfile("ignored"))
	assert.NotNil(t, m.Gatherer())
}

func TestCounters(t *testing.T) {
	m := New("testing")
	m.IncAPICall("search", "ok")
	m.IncAPICall("search", "ok")
	m.IncCache("detail", false)
	m.SetQuota(300, 700)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.apiCalls.WithLabelValues("search", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheRequests.WithLabelValues("detail", "miss")))
	assert.Equal(t, 700.0, testutil.ToFloat64(m.quotaLeft))
}

func TestWriteTextfile(t *testing.T) {
	m := New("testing")
	m.IncOutcome("rejected", "exclusion")

	path := filepath.Join(t.TempDir(), "census.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "census_channels_total")
}
