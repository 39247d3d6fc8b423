package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder()
	r.ReconcileFinished("shop", "converged", 3*time.Second)
	r.ReconcileFinished("shop", "converged", time.Second)
	r.BuildFinished("shop", nil)
	r.BuildFinished("shop", errors.New("boom"))
	r.ContainerStarted("shop", nil)
	r.ContainerStopped("shop", nil)
	r.TagPruned("shop", errors.New("denied"))

	assert.Equal(t, testutil.ToFloat64(r.reconciles.WithLabelValues("shop", "converged")), 2.0)
	assert.Equal(t, testutil.ToFloat64(r.builds.WithLabelValues("shop", "ok")), 1.0)
	assert.Equal(t, testutil.ToFloat64(r.builds.WithLabelValues("shop", "error")), 1.0)
	assert.Equal(t, testutil.ToFloat64(r.starts.WithLabelValues("shop", "ok")), 1.0)
	assert.Equal(t, testutil.ToFloat64(r.stops.WithLabelValues("shop", "ok")), 1.0)
	assert.Equal(t, testutil.ToFloat64(r.prunes.WithLabelValues("shop", "error")), 1.0)
	assert.Equal(t, testutil.CollectAndCount(r.duration), 1)
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRecorder()
	r.BuildFinished("shop", nil)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	assert.NilError(t, err)
	assert.Check(t, is.Contains(string(body), `whalesbook_builds_total{book="shop",result="ok"} 1`))
}
