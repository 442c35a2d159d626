package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAuthJWTRoundTrip(t *testing.T) {
	secret := "test-secret"
	token, err := SignToken(secret, "user-42", "donor", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	var gotUserID string
	handler := AuthJWT(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if gotUserID != "user-42" {
		t.Fatalf("user id = %q", gotUserID)
	}
}

func TestTokenCarriesRoleClaim(t *testing.T) {
	secret := "test-secret"
	token, err := SignToken(secret, "user-42", "campaign_manager", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := VerifyToken(secret, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Role != "campaign_manager" {
		t.Fatalf("role = %q", claims.Role)
	}
	if claims.Subject != "user-42" {
		t.Fatalf("subject = %q", claims.Subject)
	}
}

func TestAuthJWTRejects(t *testing.T) {
	handler := AuthJWT("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not.a.token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/v1/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rr.Code)
			}
		})
	}
}

func TestAuthJWTExpiredToken(t *testing.T) {
	secret := "test-secret"
	token, err := SignToken(secret, "user-42", "donor", -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	handler := AuthJWT(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	req := httptest.NewRequest("GET", "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}
