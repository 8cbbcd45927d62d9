package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// APIError carries structured detail about a provider API failure.
type APIError struct {
	Message    string
	Type       string
	Code       string
	StatusCode int
	RetryAfter *time.Duration
	// IsPermanent marks quota exhaustion, which no short retry will fix.
	IsPermanent bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

// IsRateLimitError reports whether err is a transient rate limit rejection.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 && !apiErr.IsPermanent
	}

	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests")
}

// IsQuotaError reports whether err means the account quota is exhausted.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsPermanent || apiErr.Code == "insufficient_quota"
	}

	msg := err.Error()
	return strings.Contains(msg, "insufficient_quota") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "billing")
}

// ExtractAPIError parses provider detail out of a 429 error. SDK errors
// embed the response JSON in the message; anything else returns nil.
func ExtractAPIError(err error) *APIError {
	if err == nil {
		return nil
	}

	msg := err.Error()
	if !strings.Contains(msg, "429") {
		return nil
	}

	apiErr := &APIError{
		StatusCode: 429,
		Message:    msg,
		Type:       "rate_limit_error",
	}

	if detail, ok := embeddedJSON(msg); ok {
		apiErr.Message = detail.Message
		apiErr.Type = detail.Type
		apiErr.Code = detail.Code
		apiErr.IsPermanent = detail.Code == "insufficient_quota"
	}

	retryAfter := 60 * time.Second
	if apiErr.IsPermanent {
		retryAfter = time.Hour
	}
	apiErr.RetryAfter = &retryAfter

	return apiErr
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

func embeddedJSON(msg string) (errorDetail, bool) {
	start := strings.Index(msg, "{")
	if start == -1 {
		return errorDetail{}, false
	}
	end := strings.LastIndex(msg[start:], "}")
	if end == -1 {
		return errorDetail{}, false
	}

	var detail errorDetail
	if err := json.Unmarshal([]byte(msg[start:start+end+1]), &detail); err != nil {
		return errorDetail{}, false
	}
	return detail, true
}

// GetRetryDelay picks the backoff before requeueing a failed job. Quota
// errors back off in hours, rate limits in minutes, everything else in
// seconds.
func GetRetryDelay(err error, attempt int) time.Duration {
	// Exponent clamped so the shift cannot overflow
	shift := attempt
	if shift < 0 {
		shift = 0
	}
	if shift > 10 {
		shift = 10
	}
	factor := time.Duration(1 << uint(shift))

	if IsQuotaError(err) {
		return minDuration(time.Hour*factor, 24*time.Hour)
	}

	if IsRateLimitError(err) {
		delay := minDuration(60*time.Second*factor, 15*time.Minute)
		if apiErr := ExtractAPIError(err); apiErr != nil && apiErr.RetryAfter != nil && *apiErr.RetryAfter > delay {
			delay = *apiErr.RetryAfter
		}
		return delay
	}

	return minDuration(5*time.Second*factor, 5*time.Minute)
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
