package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gotg/authflow"
)

type fakeSource struct {
	snapshot authflow.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() authflow.MetricsSnapshot { return f.snapshot }
func (f fakeSource) NotificationsDropped() uint64              { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: authflow.MetricsSnapshot{
			Counters:   map[authflow.MetricID]uint64{},
			Histograms: map[authflow.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: authflow.MetricsSnapshot{
			Counters: map[authflow.MetricID]uint64{
				authflow.MetricSignInSuccess: 7,
			},
			Histograms: map[authflow.MetricID][]uint64{
				authflow.MetricGatewayLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	if !strings.Contains(out, "authflow_sign_in_success_total 7") {
		t.Fatalf("expected sign-in counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, "# TYPE authflow_gateway_latency_seconds histogram") {
		t.Fatalf("expected histogram type line, got:\n%s", out)
	}
	if !strings.Contains(out, "authflow_gateway_latency_seconds_bucket{le=\"0.005\"} 1") {
		t.Fatalf("expected first histogram bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "authflow_gateway_latency_seconds_bucket{le=\"+Inf\"} 36") {
		t.Fatalf("expected +Inf cumulative bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "authflow_notifications_dropped_total 2") {
		t.Fatalf("expected dropped notifications counter in output, got:\n%s", out)
	}
}

func TestRenderFromController(t *testing.T) {
	exp := NewPrometheusExporter(nil)
	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for nil controller, got:\n%s", got)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: authflow.MetricsSnapshot{
			Counters:   map[authflow.MetricID]uint64{authflow.MetricSignOut: 1},
			Histograms: map[authflow.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "authflow_sign_out_total 1") {
		t.Fatalf("expected sign-out counter, got:\n%s", rec.Body.String())
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: authflow.MetricsSnapshot{
			Counters: map[authflow.MetricID]uint64{
				authflow.MetricSignInSuccess:    1000,
				authflow.MetricSignInFailure:    40,
				authflow.MetricSessionActivated: 800,
				authflow.MetricSessionCleared:   20,
			},
			Histograms: map[authflow.MetricID][]uint64{
				authflow.MetricGatewayLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
