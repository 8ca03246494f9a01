package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"zephyr-lounge/internal/config"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

func newHS256(t *testing.T, issuer string) (*Issuer, *Verifier) {
	t.Helper()
	cfg := config.SessionConfig{JWTSecret: "secret", Issuer: issuer}
	iss, err := NewIssuer(cfg)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	v, err := NewVerifier(t.Context(), cfg, nil)
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	return iss, v
}

func TestIssueAndVerifySessionToken(t *testing.T) {
	iss, v := newHS256(t, "zephyr")

	now := time.Unix(1700000000, 0).UTC()
	tok, err := iss.Issue(now, "user_2abc", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := v.Verify(tok, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "user_2abc" || claims.SessionID == "" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerify_RejectsExpiredBeyondLeeway(t *testing.T) {
	iss, v := newHS256(t, "")
	now := time.Unix(1700000000, 0).UTC()
	tok, _ := iss.Issue(now, "user_2abc", time.Minute)

	if _, err := v.Verify(tok, now.Add(time.Minute+Leeway/2)); err != nil {
		t.Fatalf("expected token within leeway to verify, got %v", err)
	}
	if _, err := v.Verify(tok, now.Add(time.Minute+2*Leeway)); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestVerify_RejectsWrongIssuer(t *testing.T) {
	iss, _ := newHS256(t, "someone-else")
	_, v := newHS256(t, "zephyr")

	now := time.Now()
	tok, _ := iss.Issue(now, "user_2abc", time.Hour)
	if _, err := v.Verify(tok, now); err == nil {
		t.Fatalf("expected issuer mismatch")
	}
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	other, _ := NewIssuer(config.SessionConfig{JWTSecret: "other"})
	_, v := newHS256(t, "")

	now := time.Now()
	tok, _ := other.Issue(now, "user_2abc", time.Hour)
	if _, err := v.Verify(tok, now); err == nil {
		t.Fatalf("expected signature failure")
	}
}

func TestNewIssuer_RequiresSecret(t *testing.T) {
	if _, err := NewIssuer(config.SessionConfig{JWKSURL: "https://idp.example.com/jwks"}); err != ErrNoSigningSecret {
		t.Fatalf("expected ErrNoSigningSecret, got %v", err)
	}
}

func TestVerify_RS256FromKeySet(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	jwks, _ := json.Marshal(map[string]any{
		"keys": []map[string]any{{
			"kty": "RSA",
			"kid": "k1",
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
		}},
	})
	kf, err := keyfunc.NewJWKSetJSON(jwks)
	if err != nil {
		t.Fatalf("keyfunc: %v", err)
	}
	v := NewVerifierWithKeyfunc(kf.Keyfunc, []string{"RS256"}, "")

	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user_rsa",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	tok.Header["kid"] = "k1"
	signed, err := tok.SignedString(key)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := v.Verify(signed, now)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "user_rsa" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}

	// HS256 tokens must not be accepted by an RS256 verifier.
	iss, _ := NewIssuer(config.SessionConfig{JWTSecret: "secret"})
	hs, _ := iss.Issue(now, "user_rsa", time.Hour)
	if _, err := v.Verify(hs, now); err == nil {
		t.Fatalf("expected algorithm mismatch")
	}
}
