package ai

import (
	"errors"
	"testing"
	"time"
)

func TestIsRateLimitError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"structured 429", &APIError{StatusCode: 429}, true},
		{"structured quota", &APIError{StatusCode: 429, IsPermanent: true}, false},
		{"message with 429", errors.New("request failed: 429"), true},
		{"message with rate limit", errors.New("rate limit reached"), true},
		{"unrelated", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsRateLimitError(tt.err); got != tt.want {
				t.Errorf("IsRateLimitError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsQuotaError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"permanent api error", &APIError{IsPermanent: true}, true},
		{"insufficient_quota code", &APIError{Code: "insufficient_quota"}, true},
		{"transient api error", &APIError{StatusCode: 429}, false},
		{"quota in message", errors.New("insufficient_quota: add billing"), true},
		{"unrelated", errors.New("timeout"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsQuotaError(tt.err); got != tt.want {
				t.Errorf("IsQuotaError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestExtractAPIError(t *testing.T) {
	t.Parallel()

	t.Run("parses embedded json", func(t *testing.T) {
		t.Parallel()

		err := errors.New(`status 429: {"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}`)
		apiErr := ExtractAPIError(err)
		if apiErr == nil {
			t.Fatal("Expected an APIError")
		}
		if !apiErr.IsPermanent {
			t.Error("insufficient_quota should be permanent")
		}
		if apiErr.RetryAfter == nil || *apiErr.RetryAfter != time.Hour {
			t.Errorf("RetryAfter = %v, want 1h for quota errors", apiErr.RetryAfter)
		}
	})

	t.Run("plain 429", func(t *testing.T) {
		t.Parallel()

		apiErr := ExtractAPIError(errors.New("got 429 from upstream"))
		if apiErr == nil {
			t.Fatal("Expected an APIError")
		}
		if apiErr.IsPermanent {
			t.Error("Plain 429 should not be permanent")
		}
		if apiErr.RetryAfter == nil || *apiErr.RetryAfter != 60*time.Second {
			t.Errorf("RetryAfter = %v, want 60s", apiErr.RetryAfter)
		}
	})

	t.Run("non rate limit error", func(t *testing.T) {
		t.Parallel()

		if apiErr := ExtractAPIError(errors.New("connection refused")); apiErr != nil {
			t.Errorf("Expected nil, got %+v", apiErr)
		}
	})
}

func TestGetRetryDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		attempt int
		want    time.Duration
	}{
		{"generic first attempt", errors.New("timeout"), 0, 5 * time.Second},
		{"generic backoff", errors.New("timeout"), 2, 20 * time.Second},
		{"generic capped", errors.New("timeout"), 20, 5 * time.Minute},
		{"rate limit first attempt", &APIError{StatusCode: 429}, 0, 60 * time.Second},
		{"rate limit capped", &APIError{StatusCode: 429}, 10, 15 * time.Minute},
		{"quota first attempt", &APIError{IsPermanent: true}, 0, time.Hour},
		{"quota capped", &APIError{IsPermanent: true}, 10, 24 * time.Hour},
		{"negative attempt clamps", errors.New("timeout"), -3, 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := GetRetryDelay(tt.err, tt.attempt); got != tt.want {
				t.Errorf("GetRetryDelay(%v, %d) = %v, want %v", tt.err, tt.attempt, got, tt.want)
			}
		})
	}
}
