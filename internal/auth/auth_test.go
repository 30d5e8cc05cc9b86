package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestValidatePassword(t *testing.T) {
	a := New("secret")

	if !a.ValidatePassword("secret") {
		t.Error("correct password rejected")
	}
	if a.ValidatePassword("wrong") {
		t.Error("wrong password accepted")
	}
	if !a.IsEnabled() {
		t.Error("IsEnabled = false with password set")
	}
}

func TestTokenLifecycle(t *testing.T) {
	a := New("secret")

	token, err := a.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}
	if !a.ValidateToken(token) {
		t.Error("fresh token rejected")
	}

	a.InvalidateToken(token)
	if a.ValidateToken(token) {
		t.Error("invalidated token still accepted")
	}
}

func TestValidateToken_Expired(t *testing.T) {
	a := New("secret")

	a.mu.Lock()
	a.tokens["stale"] = time.Now().Add(-time.Minute)
	a.mu.Unlock()

	if a.ValidateToken("stale") {
		t.Error("expired token accepted")
	}
}

func TestMiddleware_DisabledAllowsAll(t *testing.T) {
	a := New("")
	handler := a.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/schedule", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with auth disabled", rec.Code)
	}
}

func TestMiddleware_RejectsMissingToken(t *testing.T) {
	a := New("secret")
	handler := a.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/schedule", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestMiddleware_AcceptsBearerHeader(t *testing.T) {
	a := New("secret")
	token, err := a.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	handler := a.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/schedule", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestMiddleware_AcceptsCookie(t *testing.T) {
	a := New("secret")
	token, err := a.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	handler := a.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/schedule", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestMiddleware_RejectsUnknownToken(t *testing.T) {
	a := New("secret")
	handler := a.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/schedule", nil)
	req.Header.Set("Authorization", "Bearer made-up")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := TokenFromRequest(req); got != "" {
		t.Errorf("token = %q, want empty", got)
	}

	req.Header.Set("Authorization", "Bearer header-token")
	if got := TokenFromRequest(req); got != "header-token" {
		t.Errorf("token = %q, want header-token", got)
	}

	// Cookie wins over the header.
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "cookie-token"})
	if got := TokenFromRequest(req); got != "cookie-token" {
		t.Errorf("token = %q, want cookie-token", got)
	}
}
