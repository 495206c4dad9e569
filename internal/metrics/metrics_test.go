package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSegmentsCounter(t *testing.T) {
	before := testutil.ToFloat64(SegmentsTotal.WithLabelValues("on_topic"))
	SegmentsTotal.WithLabelValues("on_topic").Inc()
	if got := testutil.ToFloat64(SegmentsTotal.WithLabelValues("on_topic")); got != before+1 {
		t.Errorf("got %v, want %v", got, before+1)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	Revisions.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "classwatch_segment_revisions_total") {
		t.Error("expected revisions counter in scrape output")
	}
}
