package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters_Increment(t *testing.T) {
	before := testutil.ToFloat64(SyncPassesTotal.WithLabelValues("complete"))
	SyncPassesTotal.WithLabelValues("complete").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(SyncPassesTotal.WithLabelValues("complete")))
}

func TestHandler_ExposesPixdexMetrics(t *testing.T) {
	IndexRebuildsTotal.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pixdex_index_rebuilds_total")
}
