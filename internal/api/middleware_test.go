package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testJWTSecret = "portal-test-secret"

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func authProbe(t *testing.T) (http.Handler, *int64) {
	t.Helper()
	var seen int64
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserFromContext(r.Context())
		if !ok {
			t.Fatal("expected user ID in context")
		}
		seen = userID
		w.WriteHeader(http.StatusOK)
	})
	return AuthMiddleware(testJWTSecret)(next), &seen
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	handler, seen := authProbe(t)

	token := signedToken(t, testJWTSecret, jwt.MapClaims{
		"userId": float64(42),
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodGet, "/traslados/agreements/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if *seen != 42 {
		t.Fatalf("expected user 42 in context, got %d", *seen)
	}
}

func TestAuthMiddleware_NumericSubClaim(t *testing.T) {
	handler, seen := authProbe(t)

	token := signedToken(t, testJWTSecret, jwt.MapClaims{
		"sub": "77",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodGet, "/traslados/agreements/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if *seen != 77 {
		t.Fatalf("expected user 77 in context, got %d", *seen)
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	handler := AuthMiddleware(testJWTSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for rejected requests")
	}))

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"malformed header", "Token abc"},
		{"wrong secret", "Bearer " + signedToken(t, "other-secret", jwt.MapClaims{"userId": float64(1)})},
		{"expired token", "Bearer " + signedToken(t, testJWTSecret, jwt.MapClaims{
			"userId": float64(1),
			"exp":    time.Now().Add(-time.Hour).Unix(),
		})},
		{"no user claim", "Bearer " + signedToken(t, testJWTSecret, jwt.MapClaims{"sub": "not-a-number"})},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/traslados/agreements/1", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", tc.name, rec.Code)
		}
	}
}

func TestInternalAuthMiddleware(t *testing.T) {
	var called bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	handler := InternalAuthMiddleware("internal-key")(next)

	req := httptest.NewRequest(http.MethodPost, "/internal/traslados/reconcile", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized || called {
		t.Fatalf("expected 401 without key, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/internal/traslados/reconcile", nil)
	req.Header.Set("X-Internal-API-Key", "internal-key")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !called {
		t.Fatalf("expected 200 with key, got %d", rec.Code)
	}
}
