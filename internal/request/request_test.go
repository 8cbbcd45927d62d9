package request

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestClientIP(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		wantIP  string
	}{
		{"x-forwarded-for", map[string]string{"X-Forwarded-For": "203.0.113.7"}, "", "203.0.113.7"},
		{"x-forwarded-for keeps first hop", map[string]string{"X-Forwarded-For": " 203.0.113.7 , 198.51.100.2 "}, "", "203.0.113.7"},
		{"x-real-ip", map[string]string{"X-Real-IP": "198.51.100.9"}, "", "198.51.100.9"},
		{"remote addr fallback", nil, "10.0.0.1:41722", "10.0.0.1:41722"},
		{"forwarded-for wins over real-ip", map[string]string{"X-Forwarded-For": "203.0.113.7", "X-Real-IP": "198.51.100.9"}, "", "203.0.113.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if tt.remote != "" {
				r.RemoteAddr = tt.remote
			}
			got := ClientIP(r)
			if got != tt.wantIP {
				t.Errorf("ClientIP() = %q, want %q", got, tt.wantIP)
			}
		})
	}
}

func TestPlanningFromContext(t *testing.T) {
	t.Parallel()
	id := uuid.New()
	ctx := WithPlanning(context.Background(), id)
	r := httptest.NewRequest("GET", "/", nil).WithContext(ctx)
	got := PlanningFromContext(r)
	if got != id {
		t.Errorf("PlanningFromContext() = %s, want %s", got, id)
	}
}

func TestPlanningFromContext_NoPlanning(t *testing.T) {
	t.Parallel()
	r := httptest.NewRequest("GET", "/", nil)
	got := PlanningFromContext(r)
	if got != uuid.Nil {
		t.Errorf("PlanningFromContext() = %s, want uuid.Nil", got)
	}
}

func TestPlanningFromContext_WrongType(t *testing.T) {
	t.Parallel()
	ctx := context.WithValue(context.Background(), PlanningContextKey(), "not a uuid")
	r := httptest.NewRequest("GET", "/", nil).WithContext(ctx)
	got := PlanningFromContext(r)
	if got != uuid.Nil {
		t.Errorf("PlanningFromContext() = %s, want uuid.Nil when wrong type", got)
	}
}
