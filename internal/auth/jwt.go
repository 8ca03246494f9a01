package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"zephyr-lounge/internal/config"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Leeway is the clock skew tolerated on exp/nbf/iat.
const Leeway = 30 * time.Second

var ErrNoSigningSecret = errors.New("SESSION_JWT_SECRET is required to issue tokens")

// Verifier validates session tokens and returns the external identity id they carry.
type Verifier struct {
	keyfunc jwt.Keyfunc
	methods []string
	issuer  string
}

// NewVerifier builds a verifier from config. With a JWKS URL, RS256 tokens are checked
// against the provider's key set, refreshed in the background until ctx is done.
// Otherwise HS256 tokens are checked against the shared secret.
func NewVerifier(ctx context.Context, cfg config.SessionConfig, logger *slog.Logger) (*Verifier, error) {
	if cfg.JWKSURL == "" {
		if cfg.JWTSecret == "" {
			return nil, errors.New("one of SESSION_JWKS_URL or SESSION_JWT_SECRET is required")
		}
		secret := []byte(cfg.JWTSecret)
		return NewVerifierWithKeyfunc(func(*jwt.Token) (any, error) { return secret, nil },
			[]string{jwt.SigningMethodHS256.Alg()}, cfg.Issuer), nil
	}

	// NoErrorReturnFirstHTTPReq lets the API start while the provider is unreachable.
	storage, err := jwkset.NewStorageFromHTTP(cfg.JWKSURL, jwkset.HTTPClientStorageOptions{
		Ctx:                       ctx,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           time.Hour,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("jwks refresh failed", "url", cfg.JWKSURL, "err", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("jwks storage: %w", err)
	}
	k, err := keyfunc.New(keyfunc.Options{Ctx: ctx, Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("jwks keyfunc: %w", err)
	}
	return NewVerifierWithKeyfunc(k.Keyfunc, []string{jwt.SigningMethodRS256.Alg()}, cfg.Issuer), nil
}

// NewVerifierWithKeyfunc is used by tests to plug in a static key set.
func NewVerifierWithKeyfunc(kf jwt.Keyfunc, methods []string, issuer string) *Verifier {
	return &Verifier{keyfunc: kf, methods: methods, issuer: issuer}
}

/* ===================== VERIFY TOKEN ===================== */

func (v *Verifier) Verify(tokenString string, now time.Time) (SessionClaims, error) {
	var claims SessionClaims

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.methods),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(Leeway),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	if _, err := jwt.ParseWithClaims(tokenString, &claims, v.keyfunc, opts...); err != nil {
		return SessionClaims{}, err
	}
	if claims.Subject == "" {
		return SessionClaims{}, errors.New("sub missing")
	}
	return claims, nil
}

/* ===================== ISSUE TOKENS ===================== */

// Issuer mints HS256 session tokens. It backs the token command and tests; production
// sessions come from the identity provider.
type Issuer struct {
	secret []byte
	issuer string
}

func NewIssuer(cfg config.SessionConfig) (*Issuer, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrNoSigningSecret
	}
	return &Issuer{secret: []byte(cfg.JWTSecret), issuer: cfg.Issuer}, nil
}

func (i *Issuer) Issue(now time.Time, externalID string, ttl time.Duration) (string, error) {
	if externalID == "" {
		return "", errors.New("subject is required")
	}
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   externalID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		SessionID: "sess_" + uuid.NewString(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(i.secret)
}
