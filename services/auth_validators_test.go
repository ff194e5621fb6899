package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAuthServiceClientValidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/validate" || r.Header.Get("Authorization") != "Bearer svc" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["access_token"] != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(ValidateResponse{UserID: "u1", DeviceID: body["device_id"], Roles: []string{"admin"}})
	}))
	defer srv.Close()

	c := NewAuthServiceClient(srv.URL, "svc")
	id, err := c.ValidateToken(t.Context(), "good", "dev-1")
	if err != nil {
		t.Fatal(err)
	}
	if id.UserID != "u1" || id.DeviceID != "dev-1" || len(id.Roles) != 1 {
		t.Fatalf("unexpected identity %+v", id)
	}
	if _, err := c.ValidateToken(t.Context(), "bad", "dev-1"); err == nil {
		t.Fatal("expected rejection")
	}
}

func signHS256(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestJWTValidator(t *testing.T) {
	v := &JWTValidator{Secret: []byte("s3cret"), Issuer: "identity"}
	valid := accessClaims{
		DeviceID: "dev-1",
		Roles:    []string{"hunter"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			Issuer:    "identity",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	id, err := v.ValidateToken(t.Context(), signHS256(t, "s3cret", valid), "dev-1")
	if err != nil {
		t.Fatal(err)
	}
	if id.UserID != "u1" || id.Roles[0] != "hunter" {
		t.Fatalf("unexpected identity %+v", id)
	}

	cases := map[string]struct {
		token  string
		device string
	}{
		"wrong secret": {signHS256(t, "other", valid), "dev-1"},
		"wrong device": {signHS256(t, "s3cret", valid), "dev-2"},
		"expired": {signHS256(t, "s3cret", accessClaims{RegisteredClaims: jwt.RegisteredClaims{
			Subject: "u1", Issuer: "identity", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}}), "dev-1"},
		"no expiry": {signHS256(t, "s3cret", accessClaims{RegisteredClaims: jwt.RegisteredClaims{
			Subject: "u1", Issuer: "identity",
		}}), "dev-1"},
		"garbage": {"not-a-jwt", "dev-1"},
	}
	for name, tc := range cases {
		if _, err := v.ValidateToken(t.Context(), tc.token, tc.device); err == nil {
			t.Errorf("%s: expected rejection", name)
		}
	}
}
