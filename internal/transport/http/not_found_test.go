package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRouter_UnknownRoutesAndMethods(t *testing.T) {
	router := NewRouter(RouterConfig{}, Services{})

	tests := []struct {
		method string
		path   string
		status int
		code   string
	}{
		{method: http.MethodGet, path: "/missing", status: http.StatusNotFound, code: codeNotFound},
		{method: http.MethodDelete, path: "/products", status: http.StatusMethodNotAllowed, code: codeMethodNotAllowed},
		{method: http.MethodPost, path: "/admin/users", status: http.StatusNotFound, code: codeNotFound},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

		if rec.Code != tt.status {
			t.Fatalf("%s %s: expected status %d, got %d", tt.method, tt.path, tt.status, rec.Code)
		}
		var resp errorResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Code != tt.code {
			t.Fatalf("%s %s: expected code %s, got %s", tt.method, tt.path, tt.code, resp.Code)
		}
	}
}
