package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/HerbHall/lanscan/internal/snapshot"
	"github.com/HerbHall/lanscan/pkg/models"
)

func newTestServer(t *testing.T, base string) (*Server, *snapshot.Store) {
	t.Helper()
	store := snapshot.NewStore()
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lanscan_test_total",
		Help: "Test counter.",
	}))
	return New("127.0.0.1:0", base, store, reg, zap.NewNop()), store
}

func publishSample(store *snapshot.Store) *models.Snapshot {
	completed := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	snap := models.NewSnapshot(
		models.NewScanTime(completed, 12*time.Millisecond, 4200*time.Millisecond),
		[]models.HostRecord{
			{IPv4: "10.0.0.2", MAC: "11:22:33:44:55:66"},
			{IPv4: "10.0.0.5", MAC: "aa:bb:cc:dd:ee:ff"},
			{IPv4: "10.0.0.9", MAC: "77:88:99:aa:bb:cc"},
		},
		"10.0.0.2 | 11:22:33:44:55:66\n10.0.0.5 | aa:bb:cc:dd:ee:ff\n10.0.0.9 | 77:88:99:aa:bb:cc",
	)
	store.Publish(snap)
	return snap
}

func get(t *testing.T, s *Server, path string) *http.Response {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w.Result()
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func TestHandleJSONBeforeFirstPass(t *testing.T) {
	s, _ := newTestServer(t, "/lanscan")

	resp := get(t, s, "/lanscan/json")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q, want application/json", ct)
	}
	if body := strings.TrimSpace(readBody(t, resp)); body != "{}" {
		t.Errorf("body = %q, want {}", body)
	}
}

func TestHandleJSON(t *testing.T) {
	s, store := newTestServer(t, "/lanscan")
	publishSample(store)

	resp := get(t, s, "/lanscan/json")

	var got struct {
		Time struct {
			UTC      time.Time `json:"utc"`
			PrepSec  float64   `json:"prep_sec"`
			ScanSec  float64   `json:"scan_sec"`
			TotalSec float64   `json:"total_sec"`
		} `json:"time"`
		Scan  []models.HostRecord `json:"scan"`
		Count int                 `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.Count != 3 || len(got.Scan) != 3 {
		t.Fatalf("count = %d, len(scan) = %d, want 3", got.Count, len(got.Scan))
	}
	want := []string{"10.0.0.2", "10.0.0.5", "10.0.0.9"}
	for i, rec := range got.Scan {
		if rec.IPv4 != want[i] {
			t.Errorf("scan[%d].ipv4 = %q, want %q", i, rec.IPv4, want[i])
		}
	}
	if got.Time.PrepSec != 0.012 || got.Time.ScanSec != 4.2 || got.Time.TotalSec != 4.212 {
		t.Errorf("time = %+v, want prep 0.012, scan 4.2, total 4.212", got.Time)
	}
}

func TestHandleStatus(t *testing.T) {
	tests := []struct {
		name      string
		publish   bool
		wantUTC   string
		wantCount int
		wantSec   float64
	}{
		{name: "starting up", wantUTC: models.StartupUTC},
		{name: "after pass", publish: true, wantUTC: "2025-03-04T05:06:07Z", wantCount: 3, wantSec: 4.212},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, store := newTestServer(t, "/lanscan")
			if tt.publish {
				publishSample(store)
			}

			resp := get(t, s, "/lanscan/status")

			var got models.StatusReport
			if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if got.Status.LastUTC != tt.wantUTC {
				t.Errorf("last_utc = %q, want %q", got.Status.LastUTC, tt.wantUTC)
			}
			if got.Status.LastCount != tt.wantCount {
				t.Errorf("last_count = %d, want %d", got.Status.LastCount, tt.wantCount)
			}
			if got.Status.LastTimeSec != tt.wantSec {
				t.Errorf("last_time_sec = %v, want %v", got.Status.LastTimeSec, tt.wantSec)
			}
		})
	}
}

func TestHandleIndex(t *testing.T) {
	s, store := newTestServer(t, "/lanscan")

	body := readBody(t, get(t, s, "/"))
	if !strings.Contains(body, models.StartupUTC) {
		t.Errorf("startup page missing %q:\n%s", models.StartupUTC, body)
	}
	if strings.Contains(body, "<pre>") {
		t.Error("startup page should not render a table")
	}

	publishSample(store)
	resp := get(t, s, "/")
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content-type = %q, want text/html", ct)
	}
	body = readBody(t, resp)
	for _, want := range []string{"<pre>", "10.0.0.2 | 11:22:33:44:55:66", "3 hosts", `href="/lanscan/json"`} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q:\n%s", want, body)
		}
	}
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t, "/lanscan")

	resp := get(t, s, "/healthz")

	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got["status"] != "ok" || got["service"] != "lanscan" {
		t.Errorf("health = %v, want status ok and service lanscan", got)
	}
	build, ok := got["version"].(map[string]any)
	if !ok {
		t.Fatalf("version = %T, want object", got["version"])
	}
	for _, key := range []string{"service", "version", "pro_bing"} {
		if _, ok := build[key]; !ok {
			t.Errorf("version missing key %q", key)
		}
	}
	if resp.Header.Get("X-Lanscan-Version") == "" {
		t.Error("missing X-Lanscan-Version header")
	}
}

func TestHandleMetrics(t *testing.T) {
	s, _ := newTestServer(t, "/lanscan")

	resp := get(t, s, "/metrics")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if body := readBody(t, resp); !strings.Contains(body, "lanscan_test_total") {
		t.Errorf("metrics output missing lanscan_test_total:\n%s", body)
	}
}

func TestMetricsDisabledWithoutGatherer(t *testing.T) {
	s := New("127.0.0.1:0", "/lanscan", snapshot.NewStore(), nil, zap.NewNop())

	if resp := get(t, s, "/metrics"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestUnknownRouteIsProblem(t *testing.T) {
	s, _ := newTestServer(t, "/lanscan")

	for _, path := range []string{"/nope", "/lanscan", "/lanscan/json/extra", "/json"} {
		resp := get(t, s, path)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want %d", path, resp.StatusCode, http.StatusNotFound)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "application/problem+json" {
			t.Errorf("GET %s content-type = %q, want application/problem+json", path, ct)
		}
	}
}

func TestNoCacheHeaders(t *testing.T) {
	s, store := newTestServer(t, "/lanscan")
	publishSample(store)

	for _, path := range []string{"/", "/lanscan/json", "/lanscan/status", "/healthz", "/metrics", "/nope"} {
		resp := get(t, s, path)
		want := map[string]string{
			"Cache-Control": "no-cache, no-store, must-revalidate",
			"Pragma":        "no-cache",
			"Expires":       "0",
		}
		for k, v := range want {
			if got := resp.Header.Get(k); got != v {
				t.Errorf("GET %s %s = %q, want %q", path, k, got, v)
			}
		}
	}
}

func TestCustomBase(t *testing.T) {
	s, store := newTestServer(t, "/api/scan/")
	publishSample(store)

	if resp := get(t, s, "/api/scan/json"); resp.StatusCode != http.StatusOK {
		t.Errorf("GET /api/scan/json status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if resp := get(t, s, "/lanscan/json"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /lanscan/json status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestStartShutdown(t *testing.T) {
	s, _ := newTestServer(t, "/lanscan")

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after Shutdown")
	}
}
