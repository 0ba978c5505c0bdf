package httpexec

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/siumai/siumai"
)

const maxErrorBodyExcerpt = 2048

// ClassifyHTTPError is the generic error classifier (§4.7), invoked when a
// provider's spec.ClassifyHTTPError declines (returns nil). A reverse-proxy
// server has no equivalent since it forwards upstream error bodies
// unclassified rather than mapping them into a typed error taxonomy.
func ClassifyHTTPError(status int, body string, headers http.Header) *siumai.LlmError {
	excerpt := truncate(body, maxErrorBodyExcerpt)

	switch {
	case status == http.StatusUnauthorized:
		return &siumai.LlmError{Kind: siumai.ErrorAuthentication, Message: excerpt, StatusCode: status}
	case status == http.StatusForbidden:
		if mentionsQuota(body) {
			return &siumai.LlmError{Kind: siumai.ErrorQuotaExceeded, Message: excerpt, StatusCode: status}
		}
		return &siumai.LlmError{Kind: siumai.ErrorAPI, Message: excerpt, StatusCode: status}
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return &siumai.LlmError{Kind: siumai.ErrorTimeout, Message: excerpt, StatusCode: status}
	case status == http.StatusTooManyRequests:
		err := &siumai.LlmError{Kind: siumai.ErrorRateLimit, Message: excerpt, StatusCode: status}
		if d, ok := parseRetryAfter(headers.Get("Retry-After")); ok {
			err.RetryAfter = &d
		}
		return err
	case status >= 500:
		return &siumai.LlmError{Kind: siumai.ErrorAPI, Message: "server error: " + excerpt, StatusCode: status}
	case status >= 400:
		return &siumai.LlmError{Kind: siumai.ErrorAPI, Message: excerpt, StatusCode: status}
	default:
		return nil
	}
}

func mentionsQuota(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "quota") || strings.Contains(lower, "billing")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}

// parseRetryAfter accepts both the seconds form and the HTTP-date form
// (§4.7's "seconds or HTTP-date").
func parseRetryAfter(v string) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// ParseErrorFromBody builds the LlmError for a response body that failed to
// parse as JSON (§4.7's "body-parsing failure produces ParseError").
func ParseErrorFromBody(body string, cause error) *siumai.LlmError {
	return (&siumai.LlmError{
		Kind:    siumai.ErrorParse,
		Message: "failed to parse response body: " + truncate(body, maxErrorBodyExcerpt),
	}).WithCause(cause)
}
