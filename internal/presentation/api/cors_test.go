package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rssnews/orchestrator/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
)

func passthroughHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSMiddleware_DisabledPassesThrough(t *testing.T) {
	mw := CORSMiddleware(config.SecurityConfig{CORSEnabled: false})
	handler := mw(passthroughHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSMiddleware_EmptyAllowlistAllowsAnyOrigin(t *testing.T) {
	mw := CORSMiddleware(config.SecurityConfig{CORSEnabled: true})
	handler := mw(passthroughHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://anything.example")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "https://anything.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSMiddleware_RejectsDisallowedOrigin(t *testing.T) {
	mw := CORSMiddleware(config.SecurityConfig{CORSEnabled: true, CORSOrigins: []string{"https://trusted.com"}})
	handler := mw(passthroughHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSMiddleware_WildcardSubdomainAllowed(t *testing.T) {
	mw := CORSMiddleware(config.SecurityConfig{CORSEnabled: true, CORSOrigins: []string{"*.trusted.com"}})
	handler := mw(passthroughHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://api.trusted.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "https://api.trusted.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSMiddleware_OptionsRequestShortCircuitsWithNoContent(t *testing.T) {
	mw := CORSMiddleware(config.SecurityConfig{CORSEnabled: true})
	called := false
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, called)
}

func TestIsOriginAllowed(t *testing.T) {
	assert.True(t, isOriginAllowed("https://a.com", nil))
	assert.True(t, isOriginAllowed("https://a.com", []string{"*"}))
	assert.True(t, isOriginAllowed("https://a.com", []string{"https://a.com"}))
	assert.False(t, isOriginAllowed("https://b.com", []string{"https://a.com"}))
	assert.True(t, isOriginAllowed("https://sub.a.com", []string{"*.a.com"}))
}
