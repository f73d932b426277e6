package metrics

import (
	"errors"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var uuidPattern = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

// RecordExternalCall records one outbound call to S3 or the forms API
func (m *Metrics) RecordExternalCall(target, method string, statusCode int, duration time.Duration, err error) {
	m.safeExecute("RecordExternalCall", func() {
		target = normalizeTarget(target)
		status := strconv.Itoa(statusCode)

		m.ExternalRequestsTotal.WithLabelValues(target, method, status).Inc()
		m.ExternalRequestDuration.WithLabelValues(target, status).Observe(duration.Seconds())

		if err != nil || statusCode >= 400 {
			m.ExternalErrors.WithLabelValues(target, errorType(statusCode, err)).Inc()
		}
	})
}

// normalizeTarget replaces ids so label cardinality stays bounded.
// /api/forms/123e4567-e89b-12d3-a456-426614174000 -> /api/forms/{id}
func normalizeTarget(target string) string {
	return uuidPattern.ReplaceAllString(target, "{id}")
}

func errorType(statusCode int, err error) string {
	switch {
	case statusCode == 400:
		return "bad_request"
	case statusCode == 401:
		return "unauthorized"
	case statusCode == 403:
		return "forbidden"
	case statusCode == 404:
		return "not_found"
	case statusCode == 409:
		return "conflict"
	case statusCode == 422:
		return "validation"
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	case statusCode >= 500:
		return "server_error"
	}

	if err == nil {
		return "unknown"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "connection_refused"
	case strings.Contains(msg, "no such host"):
		return "dns_error"
	case strings.Contains(msg, "deadline exceeded"), strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "EOF"), strings.Contains(msg, "connection reset"):
		return "connection_reset"
	}
	return "network_error"
}
