package http

import (
	"bytes"
	"fmt"
	"net/http"
	"time"
)

type metric struct {
	name  string
	kind  string
	help  string
	value float64
}

// handleMetrics writes counters in the Prometheus text exposition format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	stats := s.charts.Stats()
	traced := s.tracer.GetMetrics()
	limited := s.limiter.GetMetrics()
	detected := s.detector.GetMetrics()

	metrics := []metric{
		{"acvcharts_http_requests_total", "counter", "HTTP requests served.", float64(traced.TotalRequests)},
		{"acvcharts_http_server_errors_total", "counter", "HTTP responses with a 5xx status.", float64(traced.ServerErrors)},
		{"acvcharts_http_last_response_microseconds", "gauge", "Duration of the most recent request.", float64(traced.LastResponseTime)},
		{"acvcharts_report_cache_hits_total", "counter", "Report cache hits.", float64(stats.CacheHits)},
		{"acvcharts_report_cache_misses_total", "counter", "Report cache misses.", float64(stats.CacheMisses)},
		{"acvcharts_report_cache_entries", "gauge", "Reports currently cached.", float64(stats.CacheSize)},
		{"acvcharts_report_cache_invalidations_total", "counter", "Report cache invalidations.", float64(stats.Invalidations)},
		{"acvcharts_aggregations_total", "counter", "Successful aggregations.", float64(stats.Aggregations)},
		{"acvcharts_aggregation_failures_total", "counter", "Failed loads or aggregations.", float64(stats.Failures)},
		{"acvcharts_rate_limited_requests_total", "counter", "Requests rejected by the rate limiter.", float64(limited.TotalHits)},
		{"acvcharts_rate_limit_clients", "gauge", "Clients tracked by the rate limiter.", float64(limited.ClientCount)},
		{"acvcharts_suspicious_requests_total", "counter", "Requests flagged as suspicious.", float64(detected.SuspiciousRequests)},
		{"acvcharts_uptime_seconds", "gauge", "Seconds since the server started.", time.Since(s.startedAt).Seconds()},
	}

	var buf bytes.Buffer
	for _, m := range metrics {
		fmt.Fprintf(&buf, "# HELP %s %s\n# TYPE %s %s\n%s %g\n", m.name, m.help, m.name, m.kind, m.name, m.value)
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
