package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)
	fail := func(name, reason string) {
		checks[name] = reason
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	if s.templates == nil {
		fail("templates", "failed: templates not loaded")
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.txs == nil || s.plans == nil:
		fail("store", "not_configured")
	case s.pinger == nil:
		checks["store"] = "ok"
	default:
		if err := s.pinger.Ping(ctx); err != nil {
			fail("store", fmt.Sprintf("failed: %v", err))
		} else {
			checks["store"] = "ok"
		}
	}

	if s.listCache != nil {
		st := s.listCache.Stats()
		checks["cache"] = map[string]any{"entries": st.Size, "status": "ok"}
	}
	// Events are optional: a broker outage only makes snapshots stale.
	if s.bus != nil {
		if s.bus.Healthy() {
			checks["events"] = "ok"
		} else {
			checks["events"] = "degraded"
		}
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}

	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_request_duration_avg_microseconds", "gauge", "Average request duration", traceMetrics.AverageResponseTime)
	metric("transactions_created_total", "counter", "Transactions created", s.appMetrics.transactionsCreated.Load())
	metric("transactions_deleted_total", "counter", "Transactions deleted", s.appMetrics.transactionsDeleted.Load())
	metric("plan_upgrades_total", "counter", "Successful plan upgrades", s.appMetrics.planUpgrades.Load())
	metric("plan_gate_denials_total", "counter", "Requests refused for insufficient tier", s.appMetrics.gateDenials.Load())

	if s.listCache != nil {
		st := s.listCache.Stats()
		metric("cache_hits_total", "counter", "Transaction list cache hits", st.Hits)
		metric("cache_misses_total", "counter", "Transaction list cache misses", st.Misses)
		metric("cache_entries", "gauge", "Transaction list cache entries", st.Size)
	}

	metric("security_suspicious_requests_total", "counter", "Requests flagged as suspicious", securityMetrics.SuspiciousRequests)
	metric("security_invalid_ip_total", "counter", "Forwarded headers carrying an invalid IP", securityMetrics.InvalidIPAttempts)
	metric("rate_limit_rejected_total", "counter", "Requests rejected by the rate limiter", rateLimitMetrics.TotalHits)
	metric("rate_limit_active_clients", "gauge", "Clients tracked by the rate limiter", rateLimitMetrics.ClientCount)
	metric("uptime_seconds", "gauge", "Application uptime", int64(time.Since(s.appMetrics.uptime).Seconds()))
}
