package observability

import (
	"net/http"
	"strconv"
	"time"
)

// MetricsTransport wraps an http.RoundTripper to record outgoing request metrics.
//
// It captures:
//   - mailassist_http_requests_total (counter): per request with host, method and status class
//     ("error" when the round trip itself failed)
//   - mailassist_http_request_duration_seconds (histogram): time until response headers
func MetricsTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &metricsTransport{next: next}
}

type metricsTransport struct {
	next http.RoundTripper
}

// RoundTrip delegates to the wrapped transport and records the outcome.
func (t *metricsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)

	host := req.URL.Host
	HTTPRequestDuration.WithLabelValues(host, req.Method).Observe(time.Since(start).Seconds())

	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode/100) + "xx"
	}
	HTTPRequestsTotal.WithLabelValues(host, req.Method, status).Inc()

	return resp, err
}
