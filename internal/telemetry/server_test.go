package telemetry

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/san-kum/stacksim/internal/lifecycle"
	"github.com/san-kum/stacksim/internal/metrics"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	rec := get(t, NewRouter(RouterConfig{}), "/healthz")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	c := metrics.NewCollector()
	c.SetLive(12)
	c.IncCulled("out_of_bounds")

	rec := get(t, NewRouter(RouterConfig{Gatherer: c.Registry()}), "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{"stacksim_live_entities 12", `stacksim_culled_total{reason="out_of_bounds"} 1`} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestStatsBeforeAndAfterPublish(t *testing.T) {
	board := NewBoard()
	router := NewRouter(RouterConfig{Board: board})

	if rec := get(t, router, "/stats"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before publish, got %d", rec.Code)
	}

	board.Publish(lifecycle.Stats{State: "running", Live: 7, Total: 9})
	rec := get(t, router, "/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}

	var got struct {
		Stats lifecycle.Stats `json:"stats"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Stats.Live != 7 || got.Stats.Total != 9 || got.Stats.State != "running" {
		t.Errorf("unexpected stats %+v", got.Stats)
	}
}

func TestRateLimit(t *testing.T) {
	router := NewRouter(RouterConfig{RequestsPerSecond: 1})
	codes := map[int]int{}
	for i := 0; i < 10; i++ {
		codes[get(t, router, "/healthz").Code]++
	}
	if codes[http.StatusTooManyRequests] == 0 {
		t.Errorf("expected some requests to be limited, got %v", codes)
	}
}
