package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTaskDoneCountsByResult(t *testing.T) {
	m := New(Config{Namespace: "mlsvc", Service: "test"})

	m.TaskDone("vision", 20*time.Millisecond, nil)
	m.TaskDone("vision", 10*time.Millisecond, errors.New("boom"))
	m.TaskDone("vision", 10*time.Millisecond, nil)

	require.Equal(t, 2.0, testutil.ToFloat64(m.tasks.WithLabelValues("vision", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.tasks.WithLabelValues("vision", "error")))
}

func TestQueueDepthAndUnitsExposed(t *testing.T) {
	m := New(Config{Namespace: "mlsvc", Service: "test"})
	m.QueueDepth("summarizer", 3)
	m.UnitOutcome("articles", "null")

	rec := httptest.NewRecorder()
	m.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `mlsvc_worker_pool_queue_depth{pool="summarizer",service="test"} 3`)
	require.Contains(t, body, `mlsvc_dispatch_units_total{dispatcher="articles",outcome="null",service="test"} 1`)
}
