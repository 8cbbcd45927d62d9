package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		method      string
		contentType string
		wantStatus  int
	}{
		{"get without content type", "GET", "", http.StatusOK},
		{"delete without content type", "DELETE", "", http.StatusOK},
		{"post json", "POST", "application/json", http.StatusOK},
		{"post json with charset", "POST", "application/json; charset=utf-8", http.StatusOK},
		{"patch json", "PATCH", "application/json", http.StatusOK},
		{"post missing content type", "POST", "", http.StatusBadRequest},
		{"post form", "POST", "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"post text", "POST", "text/plain", http.StatusUnsupportedMediaType},
	}

	handler := ContentType(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, "/", nil)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
