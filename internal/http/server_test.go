package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"acvcharts/internal/cache"
	"acvcharts/internal/core"
	applog "acvcharts/internal/log"
	"acvcharts/internal/services"
)

type stubSource struct {
	recs []core.RawRecord
	err  error
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) LoadRecords(context.Context) ([]core.RawRecord, error) {
	return s.recs, s.err
}

func rec(quarter, custType string, count int64, acv string) core.RawRecord {
	return core.RawRecord{Quarter: quarter, CustType: custType, Count: count, ACV: decimal.RequireFromString(acv)}
}

func newTestServer(t *testing.T, src *stubSource, policy core.ZeroACVPolicy, opts Options) (*Server, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	logger := applog.New(applog.Config{Output: &logs})
	svc := services.NewChartsService(src, core.Aggregator{ZeroACV: policy}, cache.NewLRUCache[core.Report](4, time.Minute), logger)

	opts.Logger = logger
	s := NewServer(":0", svc, opts)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s, &logs
}

func do(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, req)
	return rr
}

func TestGetCharts(t *testing.T) {
	src := &stubSource{recs: []core.RawRecord{
		rec("2023-Q3", "Existing Customer", 2, "300.4"),
		rec("2023-Q3", "New Customer", 1, "100"),
		rec("2023-Q4", "New Customer", 1, "99.5"),
	}}
	s, _ := newTestServer(t, src, core.ZeroACVSentinel, Options{})

	rr := do(s, http.MethodGet, "/api/charts", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing security headers")
	}

	want := `{"customerData":[` +
		`{"quarter":"2023-Q3","rows":[` +
		`{"type":"Existing Customer","opps":2,"acv":300,"percentage":"75%"},` +
		`{"type":"New Customer","opps":1,"acv":100,"percentage":"25%"},` +
		`{"type":"Total","opps":3,"acv":400,"percentage":"100%"}]},` +
		`{"quarter":"2023-Q4","rows":[` +
		`{"type":"New Customer","opps":1,"acv":100,"percentage":"100%"},` +
		`{"type":"Total","opps":1,"acv":100,"percentage":"100%"}]}],` +
		`"totals":{` +
		`"Existing Customer":{"opps":2,"acv":300,"percentage":"60%"},` +
		`"New Customer":{"opps":2,"acv":200,"percentage":"40%"},` +
		`"Total":{"opps":4,"acv":500,"percentage":"100%"}}}`
	if got := rr.Body.String(); got != want {
		t.Errorf("body =\n%s\nwant\n%s", got, want)
	}
}

func TestGetCharts_SourceFailure(t *testing.T) {
	s, logs := newTestServer(t, &stubSource{err: errors.New("disk on fire")}, core.ZeroACVSentinel, Options{})

	rr := do(s, http.MethodGet, "/api/charts", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if got := rr.Body.String(); got != `{"error":"Failed to process chart data"}` {
		t.Errorf("body = %s", got)
	}
	if strings.Contains(rr.Body.String(), "disk on fire") {
		t.Error("internal error leaked to the client")
	}
	if !strings.Contains(logs.String(), "disk on fire") {
		t.Error("error was not logged")
	}
}

func TestGetCharts_DegenerateUnderErrorPolicy(t *testing.T) {
	src := &stubSource{recs: []core.RawRecord{rec("Q1", "New", 1, "0")}}
	s, _ := newTestServer(t, src, core.ZeroACVError, Options{})

	rr := do(s, http.MethodGet, "/api/charts", "")
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
}

func TestPostCharts(t *testing.T) {
	s, _ := newTestServer(t, &stubSource{}, core.ZeroACVError, Options{})

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{
			name:     "valid batch",
			body:     `[{"closed_fiscal_quarter":"Q1","Cust_Type":"New","count":1,"acv":0.5}]`,
			wantCode: http.StatusOK,
		},
		{
			name:     "empty batch",
			body:     `[]`,
			wantCode: http.StatusOK,
		},
		{
			name:     "malformed record",
			body:     `[{"closed_fiscal_quarter":"Q1","Cust_Type":"New","count":1,"acv":1},{"Cust_Type":"New","count":1,"acv":1}]`,
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  "record 1",
		},
		{
			name:     "degenerate bucket",
			body:     `[{"closed_fiscal_quarter":"Q1","Cust_Type":"New","count":1,"acv":0.4}]`,
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  "total ACV is zero",
		},
		{
			name:     "not json",
			body:     `hello`,
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(s, http.MethodPost, "/api/charts", tt.body)
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d, body %s", rr.Code, tt.wantCode, rr.Body.String())
			}
			if tt.wantErr == "" {
				return
			}
			var body struct{ Error string }
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(body.Error, tt.wantErr) {
				t.Errorf("error = %q, want containing %q", body.Error, tt.wantErr)
			}
		})
	}
}

func TestPostCharts_TooLarge(t *testing.T) {
	s, _ := newTestServer(t, &stubSource{}, core.ZeroACVSentinel, Options{MaxBodyBytes: 32})

	rr := do(s, http.MethodPost, "/api/charts", `[`+strings.Repeat(" ", 100)+`]`)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rr.Code)
	}
}

func TestCharts_MethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t, &stubSource{}, core.ZeroACVSentinel, Options{})

	for _, method := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch} {
		rr := do(s, method, "/api/charts", "")
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s status = %d, want 405", method, rr.Code)
		}
		if got := rr.Header().Get("Allow"); got != "GET, POST" {
			t.Errorf("%s Allow = %q", method, got)
		}
		if got := rr.Body.String(); got != `{"error":"Method not allowed"}` {
			t.Errorf("%s body = %s", method, got)
		}
	}
}

func TestRouter_UnmatchedRequestsKeepHeaders(t *testing.T) {
	s, _ := newTestServer(t, &stubSource{}, core.ZeroACVSentinel, Options{})

	tests := []struct {
		name   string
		method string
		target string
		status int
		body   string
	}{
		{"unknown path", http.MethodGet, "/api/other", http.StatusNotFound, `{"error":"Not found"}`},
		{"head on charts", http.MethodHead, "/api/charts", http.StatusMethodNotAllowed, `{"error":"Method not allowed"}`},
		{"options on charts", http.MethodOptions, "/api/charts", http.StatusMethodNotAllowed, `{"error":"Method not allowed"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(s, tt.method, tt.target, "")
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			if got := rr.Body.String(); got != tt.body {
				t.Errorf("body = %s", got)
			}
			if tt.status == http.StatusMethodNotAllowed && rr.Header().Get("Allow") != "GET, POST" {
				t.Errorf("Allow = %q", rr.Header().Get("Allow"))
			}
			if rr.Header().Get("X-Request-ID") == "" {
				t.Error("missing X-Request-ID")
			}
			if rr.Header().Get("Content-Security-Policy") == "" {
				t.Error("missing security headers")
			}
		})
	}
}

func TestCharts_RateLimited(t *testing.T) {
	s, _ := newTestServer(t, &stubSource{}, core.ZeroACVSentinel, Options{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		if rr := do(s, http.MethodGet, "/api/charts", ""); rr.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, rr.Code)
		}
	}
	rr := do(s, http.MethodGet, "/api/charts", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}

	// health endpoints are not limited
	if rr := do(s, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rr.Code)
	}
}

func TestHealthAndReady(t *testing.T) {
	src := &stubSource{}
	s, _ := newTestServer(t, src, core.ZeroACVSentinel, Options{})

	if rr := do(s, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rr.Code, rr.Body.String())
	}
	if rr := do(s, http.MethodGet, "/readyz", ""); rr.Code != http.StatusOK || rr.Body.String() != "ready" {
		t.Errorf("readyz = %d %q", rr.Code, rr.Body.String())
	}

	src.err = errors.New("unreachable")
	if rr := do(s, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz with failing source = %d, want 503", rr.Code)
	}
}

func TestMetrics(t *testing.T) {
	s, _ := newTestServer(t, &stubSource{recs: []core.RawRecord{rec("Q1", "New", 1, "10")}}, core.ZeroACVSentinel, Options{})

	do(s, http.MethodGet, "/api/charts", "")
	do(s, http.MethodGet, "/api/charts", "")

	rr := do(s, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"# TYPE acvcharts_http_requests_total counter",
		"acvcharts_aggregations_total 1\n",
		"acvcharts_report_cache_hits_total 1\n",
		"acvcharts_report_cache_misses_total 1\n",
		"acvcharts_uptime_seconds ",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestShutdownIdempotent(t *testing.T) {
	s, _ := newTestServer(t, &stubSource{}, core.ZeroACVSentinel, Options{})
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("first Shutdown: %v", err)
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}
