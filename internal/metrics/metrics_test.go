package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tjfontaine/nextware/internal/pipeline"
)

func TestRecord(t *testing.T) {
	m := New()

	m.Record("api", pipeline.Outcome{Status: pipeline.StatusTerminated}, 10*time.Millisecond)
	m.Record("api", pipeline.Outcome{Status: pipeline.StatusTerminated}, 20*time.Millisecond)
	m.Record("api", pipeline.Outcome{Status: pipeline.StatusFailed, Err: "boom"}, time.Millisecond)

	if got := testutil.ToFloat64(m.dispatchTotal.WithLabelValues("api", "terminated")); got != 2 {
		t.Errorf("terminated count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.dispatchTotal.WithLabelValues("api", "failed")); got != 1 {
		t.Errorf("failed count = %v, want 1", got)
	}
}

func TestObserverFromApp(t *testing.T) {
	m := New()
	app := pipeline.New(pipeline.WithObserver(m.Observer("demo")))

	app.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got := testutil.ToFloat64(m.dispatchTotal.WithLabelValues("demo", "exhausted")); got != 1 {
		t.Errorf("exhausted count = %v, want 1", got)
	}
}

func TestInFlight(t *testing.T) {
	m := New()
	var during float64
	h := m.InFlight("api")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		during = testutil.ToFloat64(m.inFlight.WithLabelValues("api"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if during != 1 {
		t.Errorf("in-flight during request = %v, want 1", during)
	}
	if after := testutil.ToFloat64(m.inFlight.WithLabelValues("api")); after != 0 {
		t.Errorf("in-flight after request = %v, want 0", after)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.Record("api", pipeline.Outcome{Status: pipeline.StatusExhausted}, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `nextware_dispatch_total{app="api",outcome="exhausted"} 1`) {
		t.Errorf("expected dispatch counter in output, got: %s", body)
	}
	if !strings.Contains(body, "nextware_dispatch_duration_seconds_bucket") {
		t.Error("expected duration histogram in output")
	}
}
