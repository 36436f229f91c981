package health

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"signal_bot/internal/modules/health/service"
	"signal_bot/pkg/metrics"
)

func get(t *testing.T, srv *httptest.Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestReadinessFollowsCycles(t *testing.T) {
	state := service.NewState(time.Minute)
	reg := metrics.NewRegistry()
	rec := metrics.New(reg)
	rec.RecordCycle("ok", time.Second)

	srv := httptest.NewServer(NewMux(state, reg))
	defer srv.Close()

	if code, _ := get(t, srv, "/livez"); code != http.StatusOK {
		t.Fatalf("livez: %d", code)
	}
	if code, _ := get(t, srv, "/readyz"); code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before first cycle: %d", code)
	}

	state.TouchTick(time.Now())
	state.SetReady(true)
	if code, _ := get(t, srv, "/readyz"); code != http.StatusOK {
		t.Fatalf("readyz after cycle: %d", code)
	}

	code, body := get(t, srv, "/healthz")
	if code != http.StatusOK || !strings.Contains(body, `"cycles":1`) || !strings.Contains(body, `"ready":true`) {
		t.Fatalf("healthz: %d %s", code, body)
	}

	code, body = get(t, srv, "/metrics")
	if code != http.StatusOK || !strings.Contains(body, `signal_bot_cycles_total{outcome="ok"} 1`) {
		t.Fatalf("metrics: %d %s", code, body)
	}
}

func TestStaleEngineIsNotReady(t *testing.T) {
	state := service.NewState(time.Minute)
	state.SetReady(true)
	state.TouchTick(time.Now().Add(-5 * time.Minute))

	srv := httptest.NewServer(NewMux(state, metrics.NewRegistry()))
	defer srv.Close()

	if code, _ := get(t, srv, "/readyz"); code != http.StatusServiceUnavailable {
		t.Fatalf("stale engine reported ready: %d", code)
	}
}
