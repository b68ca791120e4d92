package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	require.NotNil(t, Registry)
	assert.Equal(t, prometheus.DefaultRegisterer, Registry)

	// The admin collectors are already registered through Registry.
	for _, c := range []prometheus.Collector{AdminRequests, AdminRequestDuration} {
		err := Registry.Register(c)
		var already prometheus.AlreadyRegisteredError
		assert.ErrorAs(t, err, &already)
	}
}

func TestObserveRequest(t *testing.T) {
	before := testutil.ToFloat64(AdminRequests.WithLabelValues("stats", "200"))

	ObserveRequest("stats", 200, time.Now().Add(-10*time.Millisecond))

	assert.Equal(t, before+1, testutil.ToFloat64(AdminRequests.WithLabelValues("stats", "200")))
}

func TestHandler(t *testing.T) {
	ObserveRequest("health", 200, time.Now())

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "careadmin_admin_requests_total")
}
