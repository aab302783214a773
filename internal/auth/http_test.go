// ABOUTME: Tests for the bearer token HTTP middleware
// ABOUTME: Covers missing, malformed, expired, and valid Authorization headers

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMiddleware_ValidToken(t *testing.T) {
	tokens := NewTokens([]byte("test-secret-key-for-jwt-signing"))
	token, err := tokens.Issue("alice@example.com", true)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	var gotClaims *Claims
	handler := Middleware(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/retrieve", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotClaims == nil {
		t.Fatal("claims not attached to request context")
	}
	if gotClaims.Username != "alice@example.com" {
		t.Errorf("Username = %q, want %q", gotClaims.Username, "alice@example.com")
	}
	if !gotClaims.IsAdmin {
		t.Error("IsAdmin = false, want true")
	}
}

func TestMiddleware_Rejections(t *testing.T) {
	tokens := NewTokens([]byte("test-secret-key-for-jwt-signing"))

	expired := func() string {
		issued := NewTokens([]byte("test-secret-key-for-jwt-signing"))
		issued.now = func() time.Time { return time.Now().Add(-TokenLifetime - time.Hour) }
		token, err := issued.Issue("alice@example.com", false)
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		return token
	}()

	wrongSecret := func() string {
		other := NewTokens([]byte("a-completely-different-secret"))
		token, err := other.Issue("alice@example.com", false)
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		return token
	}()

	tests := []struct {
		name   string
		header string
	}{
		{name: "no authorization header", header: ""},
		{name: "not a bearer scheme", header: "Basic YWxpY2U6aHVudGVyMg=="},
		{name: "empty bearer token", header: "Bearer "},
		{name: "garbage token", header: "Bearer not-a-jwt"},
		{name: "expired token", header: "Bearer " + expired},
		{name: "wrong signing secret", header: "Bearer " + wrongSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := Middleware(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodPost, "/retrieve", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if called {
				t.Error("inner handler ran on a rejected request")
			}
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if got := rec.Body.String(); got != `{"error":"invalid token"}` {
				t.Errorf("body = %s, want invalid token error", got)
			}
		})
	}
}

func TestFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if claims := FromContext(req.Context()); claims != nil {
		t.Errorf("FromContext() on bare context = %+v, want nil", claims)
	}
}
