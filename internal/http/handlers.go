package http

import (
	"context"
	"errors"
	"net/http"

	"acvcharts/internal/core"
	applog "acvcharts/internal/log"
	"acvcharts/internal/middleware/trace"
)

const (
	msgChartFailure     = "Failed to process chart data"
	msgMethodNotAllowed = "Method not allowed"
	msgRateLimited      = "Rate limit exceeded. Please try again later."
)

// handleMethodNotAllowed answers methods the router has no route for.
// /api/charts is the only method-restricted path.
func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	MethodNotAllowedError("GET, POST").Write(w)
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusNotFound, "Not found").Write(w)
}

func (s *Server) handleGetCharts(w http.ResponseWriter, r *http.Request) {
	report, err := s.charts.Report(r.Context())
	if err != nil {
		// details stay in the log
		s.structured.LogError(r.Context(), "Error processing chart data", err, applog.OpAggregate, applog.NewFields().
			WithRequestID(trace.GetRequestID(r.Context())))
		InternalServerError(msgChartFailure).Write(w)
		return
	}
	NewJSONResponse().Payload(report).Write(w)
}

func (s *Server) handlePostCharts(w http.ResponseWriter, r *http.Request) {
	recs, err := ParseRecordsBody(w, r, s.maxBodyBytes)
	if err != nil {
		s.writeInputError(w, r, err)
		return
	}

	report, err := s.charts.Compute(r.Context(), recs)
	if err != nil {
		s.writeInputError(w, r, err)
		return
	}
	NewJSONResponse().Payload(report).Write(w)
}

// writeInputError maps decode and aggregation failures of client data to a
// status code. Anything unexpected is a 500.
func (s *Server) writeInputError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		ErrorResponse(http.StatusRequestEntityTooLarge, "request body too large").Write(w)
	case errors.Is(err, core.ErrMalformedRecord), errors.Is(err, core.ErrDegenerateBucket):
		s.logger.InfoContext(r.Context(), "Rejected chart input", applog.FieldError, err.Error())
		UnprocessableEntityError(err.Error()).Write(w)
	case errors.Is(err, ErrInvalidBody):
		BadRequestError(err.Error()).Write(w)
	default:
		s.structured.LogError(r.Context(), "Error processing chart input", err, applog.OpAggregate, nil)
		InternalServerError(msgChartFailure).Write(w)
	}
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldMethod, r.Method, applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, msgRateLimited).Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once the record source answers within the
// ready timeout.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.readyTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.charts.Ready(ctx); err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err.Error())
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
