package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/listingclean/internal/config"
	"github.com/JonMunkholm/listingclean/internal/core"
	"github.com/JonMunkholm/listingclean/internal/metrics"
	"github.com/JonMunkholm/listingclean/internal/storage"
)

const testAPIKey = "test-key-0123456789"

const rawListings = `id,host_name,number_of_reviews
1,johnSmith,10
2,mary,0
3,,4
`

const cleanListings = `id,host_name,number_of_reviews
1,John Smith,10
`

// newTestServer returns a server backed by a directory store rooted in a
// temp dir, plus that root.
func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, string) {
	t.Helper()
	root := t.TempDir()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ShutdownTimeout: time.Second,
			APIKeys:         []string{testAPIKey},
		},
		Storage: config.StorageConfig{CleanBucket: "clean"},
		Runs: config.RunConfig{
			MaxConcurrent: 1,
			MaxWaitTime:   50 * time.Millisecond,
			Timeout:       time.Minute,
		},
		Sweep: config.SweepConfig{Bucket: "raw"},
	}
	if mutate != nil {
		mutate(cfg)
	}

	collector := metrics.NewCollector()
	svc := core.NewService(core.ServiceConfig{
		Store:       storage.NewDirStore(root),
		CleanBucket: cfg.Storage.CleanBucket,
		Metrics:     collector,
		WorkDir:     t.TempDir(),
	})
	return NewServer(svc, collector, cfg), root
}

func seed(t *testing.T, root, bucket, name, contents string) {
	t.Helper()
	path := filepath.Join(root, bucket, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

func TestHandleEvent(t *testing.T) {
	s, root := newTestServer(t, nil)
	seed(t, root, "raw", "listings.csv", rawListings)

	rec := do(s, http.MethodPost, "/api/events", `{"bucket":"raw","name":"listings.csv"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var result core.ObjectResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Skipped {
		t.Error("Skipped = true, want false")
	}
	if result.Run == nil || result.Run.RowsIn != 3 || result.Run.RowsOut != 1 {
		t.Errorf("Run = %+v, want 3 rows in and 1 out", result.Run)
	}

	got, err := os.ReadFile(filepath.Join(root, "clean", "listings.csv"))
	if err != nil {
		t.Fatalf("cleaned object not uploaded: %v", err)
	}
	if string(got) != cleanListings {
		t.Errorf("cleaned object =\n%s\nwant\n%s", got, cleanListings)
	}
}

func TestHandleEvent_SkipsNonCSV(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(s, http.MethodPost, "/api/events", `{"bucket":"raw","name":"notes.txt"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"skipped":true`) {
		t.Errorf("body = %s, want skipped", rec.Body)
	}
}

func TestHandleEvent_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"malformed json", `{"bucket":`, http.StatusBadRequest, "RUN004"},
		{"missing name", `{"bucket":"raw"}`, http.StatusBadRequest, "RUN004"},
		{"object not found", `{"bucket":"raw","name":"missing.csv"}`, http.StatusNotFound, "STO001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, nil)
			rec := do(s, http.MethodPost, "/api/events", tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if resp := decodeError(t, rec); resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestHandleEvent_MissingColumn(t *testing.T) {
	s, root := newTestServer(t, nil)
	seed(t, root, "raw", "bad.csv", "id,name\n1,x\n")

	rec := do(s, http.MethodPost, "/api/events", `{"bucket":"raw","name":"bad.csv"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	if resp := decodeError(t, rec); resp.Code != "COL001" {
		t.Errorf("code = %q, want COL001", resp.Code)
	}
}

func TestHandleEvent_Busy(t *testing.T) {
	s, _ := newTestServer(t, nil)

	release, err := s.limiter.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer release()

	rec := do(s, http.MethodPost, "/api/events", `{"bucket":"raw","name":"listings.csv"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header not set")
	}
	if resp := decodeError(t, rec); resp.Code != "RUN001" {
		t.Errorf("code = %q, want RUN001", resp.Code)
	}
}

func TestAPIRequiresKey(t *testing.T) {
	s, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestHandleSweep(t *testing.T) {
	s, root := newTestServer(t, nil)
	seed(t, root, "raw", "a.csv", rawListings)
	seed(t, root, "raw", "b.csv", rawListings)
	seed(t, root, "raw", "readme.md", "# notes")
	seed(t, root, "clean", "b.csv", cleanListings)

	rec := do(s, http.MethodPost, "/api/sweep", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var result core.SweepResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Bucket != "raw" {
		t.Errorf("Bucket = %q, want default RAW_BUCKET", result.Bucket)
	}
	if len(result.Processed) != 1 || result.Processed[0].Name != "a.csv" {
		t.Errorf("Processed = %+v, want only a.csv", result.Processed)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != "b.csv" {
		t.Errorf("Skipped = %v, want [b.csv]", result.Skipped)
	}
}

func TestHandleSweep_NoBucket(t *testing.T) {
	s, _ := newTestServer(t, func(cfg *config.Config) { cfg.Sweep.Bucket = "" })

	rec := do(s, http.MethodPost, "/api/sweep", `{"prefix":"2024/"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if resp := decodeError(t, rec); resp.Code != "RUN005" {
		t.Errorf("code = %q, want RUN005", resp.Code)
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Runs.MaxConcurrent != 1 || resp.CleanBucket != "clean" {
		t.Errorf("health = %+v", resp)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers not set")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, root := newTestServer(t, nil)
	seed(t, root, "raw", "listings.csv", rawListings)
	do(s, http.MethodPost, "/api/events", `{"bucket":"raw","name":"listings.csv"}`)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "listingclean_runs_total") {
		t.Error("metrics output missing listingclean_runs_total")
	}
}

func TestStatusFor(t *testing.T) {
	tests := map[string]int{
		"SCH001":  http.StatusUnprocessableEntity,
		"COL002":  http.StatusUnprocessableEntity,
		"FILE001": http.StatusRequestEntityTooLarge,
		"STO004":  http.StatusBadGateway,
		"WH001":   http.StatusBadGateway,
		"RUN003":  http.StatusGatewayTimeout,
		"ERR000":  http.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := statusFor(code); got != want {
			t.Errorf("statusFor(%q) = %d, want %d", code, got, want)
		}
	}
}

func TestShutdown_WaitsForRuns(t *testing.T) {
	s, _ := newTestServer(t, nil)

	release, err := s.limiter.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Shutdown(ctx); err == nil {
		t.Error("Shutdown() returned nil with a run in flight")
	}

	release()
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() after drain error = %v", err)
	}
}
