package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"studygroup/internal/auth"
	"studygroup/internal/config"
	repo "studygroup/internal/repository"
	"studygroup/internal/store"
)

func newTestHandler() http.Handler {
	meetings := repo.NewRepository(store.NewMemoryStore(), nil)
	authService := auth.NewService(nil, nil, []string{"edu"}, 0)
	return Handler(meetings, authService)
}

func TestHealthRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

func TestMeetingsRequireSession(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/meetings", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	config.Config.AllowedOrigins = []string{"http://localhost:3000"}

	req := httptest.NewRequest(http.MethodOptions, "/v1/meetings", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	newTestHandler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Expected origin to be allowed, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Expected credentials to be allowed, got %q", got)
	}
}
