package api

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nerrad567/beestat-bridge/internal/infrastructure/config"
)

func TestIssueAndParseToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: testSecret, Issuer: "beestat-bridge"}

	tok, err := IssueToken(cfg, "operator", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	claims, err := ParseToken(cfg, tok)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "operator" || claims.Issuer != "beestat-bridge" {
		t.Errorf("claims = %+v", claims)
	}
	if ttl := time.Until(claims.ExpiresAt.Time); ttl < 59*time.Minute || ttl > time.Hour {
		t.Errorf("expiry in %v, want ~1h", ttl)
	}
}

func TestIssueToken_DefaultTTL(t *testing.T) {
	cfg := config.JWTConfig{Secret: testSecret}
	tok, err := IssueToken(cfg, "operator", 0)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ParseToken(cfg, tok)
	if err != nil {
		t.Fatal(err)
	}
	if ttl := time.Until(claims.ExpiresAt.Time); ttl < DefaultTokenTTL-time.Minute {
		t.Errorf("expiry in %v, want ~%v", ttl, DefaultTokenTTL)
	}
}

func TestToken_NoSecret(t *testing.T) {
	if _, err := IssueToken(config.JWTConfig{}, "operator", time.Hour); !errors.Is(err, ErrNoSecret) {
		t.Errorf("IssueToken() error = %v, want ErrNoSecret", err)
	}
	if _, err := ParseToken(config.JWTConfig{}, "x.y.z"); !errors.Is(err, ErrNoSecret) {
		t.Errorf("ParseToken() error = %v, want ErrNoSecret", err)
	}
}

func signClaims(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestParseToken_Rejects(t *testing.T) {
	cfg := config.JWTConfig{Secret: testSecret, Issuer: "beestat-bridge"}
	now := time.Now()

	tests := []struct {
		name  string
		token string
	}{
		{
			name: "expired",
			token: signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
				Subject:   "operator",
				Issuer:    "beestat-bridge",
				ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
			}),
		},
		{
			name: "no expiry",
			token: signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
				Subject: "operator",
				Issuer:  "beestat-bridge",
			}),
		},
		{
			name: "wrong issuer",
			token: signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
				Subject:   "operator",
				Issuer:    "someone-else",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			}),
		},
		{
			name: "wrong secret",
			token: signClaims(t, jwt.SigningMethodHS256, []byte("a-completely-different-secret-value!!"), jwt.RegisteredClaims{
				Subject:   "operator",
				Issuer:    "beestat-bridge",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			}),
		},
		{
			name: "other algorithm",
			token: signClaims(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.RegisteredClaims{
				Subject:   "operator",
				Issuer:    "beestat-bridge",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			}),
		},
		{
			name: "unsigned",
			token: signClaims(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.RegisteredClaims{
				Subject:   "operator",
				Issuer:    "beestat-bridge",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			}),
		},
		{name: "garbage", token: "definitely.not.jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(cfg, tt.token); err == nil {
				t.Error("ParseToken() = nil error, want rejection")
			}
		})
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	expired := signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
		Subject:   "operator",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})

	w := env.do(t, "POST", "/api/v1/refresh", "", expired)
	if w.Code != 401 {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if env.coordinator.refreshes != 0 {
		t.Error("refresh requested with an expired token")
	}
}
