package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MATHILDEdemariable/jourj/internal/database"
)

// unreachableDB opens a pool against a closed port. sql.Open is lazy, so the
// failure only surfaces when the health check pings.
func unreachableDB(t *testing.T) *database.DB {
	t.Helper()

	raw, err := sql.Open("postgres", "host=127.0.0.1 port=1 sslmode=disable connect_timeout=1")
	if err != nil {
		t.Fatalf("Failed to open pool: %v", err)
	}
	t.Cleanup(func() { _ = raw.Close() })
	return &database.DB{DB: raw}
}

func TestHealthCheck_BasicMode(t *testing.T) {
	t.Parallel()

	// Basic mode only reports the process is up; no collaborator is touched,
	// so nil dependencies are fine.
	checker := NewHealthChecker(nil, nil, nil)

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	checker.HealthCheck(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", resp.Status)
	}
	if resp.Checks != nil {
		t.Errorf("Basic mode should not report checks, got %v", resp.Checks)
	}
	if resp.Timestamp == "" {
		t.Error("Expected a timestamp")
	}
}

func TestHealthCheck_ExtendedMode_DatabaseDown(t *testing.T) {
	t.Parallel()

	checker := NewHealthChecker(unreachableDB(t), nil, &mockQueue{})

	req := httptest.NewRequest("GET", "/healthz?mode=extended", nil)
	rec := httptest.NewRecorder()
	checker.HealthCheck(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Status = %d, want 503", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "unhealthy" {
		t.Errorf("Status = %q, want unhealthy", resp.Status)
	}
	if !strings.HasPrefix(resp.Checks["database"], "unhealthy") {
		t.Errorf("Database check = %q, want unhealthy", resp.Checks["database"])
	}
	if resp.Checks["queue"] != "healthy" {
		t.Errorf("Queue check = %q, want healthy", resp.Checks["queue"])
	}
	// Redis is optional; nil client reports nothing
	if _, ok := resp.Checks["redis"]; ok {
		t.Error("Nil redis client should not be checked")
	}
}

func TestHealthCheck_ExtendedMode_QueueDown(t *testing.T) {
	t.Parallel()

	checker := NewHealthChecker(unreachableDB(t), nil, &mockQueue{healthErr: errors.New("channel closed")})

	req := httptest.NewRequest("GET", "/healthz?mode=extended", nil)
	rec := httptest.NewRecorder()
	checker.HealthCheck(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Status = %d, want 503", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !strings.HasPrefix(resp.Checks["queue"], "unhealthy") {
		t.Errorf("Queue check = %q, want unhealthy", resp.Checks["queue"])
	}
}
