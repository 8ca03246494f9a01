// Package admission gates the test-only user verification endpoint: test mode only,
// per-client rate limit, shared test header, input validation, audit, then lookup.
package admission

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"zephyr-lounge/internal/config"
	"zephyr-lounge/internal/metrics"
	"zephyr-lounge/internal/users"
	"zephyr-lounge/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	TestAuthHeader  = "x-test-auth"
	TestAuthToken   = "cypress-testing"
	MinUserIDLength = 5

	retryAfterSeconds = "60"
	redactKeep        = 8
)

// Limiter admits or rejects one request for a client.
type Limiter interface {
	Allow(clientID string) bool
}

type UserLookup interface {
	GetUserByExternalID(ctx context.Context, externalID string, isSystemCall bool) (users.User, error)
}

type Auditor interface {
	LogVerifyAccess(ctx context.Context, ip, redactedID, env string) error
}

type Guard struct {
	Mode    config.Mode
	Env     string
	Limiter Limiter
	Users   UserLookup
	Audit   Auditor
}

// SecurityHeaders sets the headers every verification response carries, whatever the outcome.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		c.Next()
	}
}

func noCache(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
}

// Verify handles GET /api/users/verify/:userId. Checks short-circuit in order.
func (g *Guard) Verify(c *gin.Context) {
	defer func() {
		if p := recover(); p != nil {
			g.fail(c, fmt.Errorf("panic: %v", p))
		}
	}()

	if !g.Mode.IsTest() {
		g.reject(c, "disabled", http.StatusNotFound, "Endpoint not available in production")
		return
	}

	clientID := ClientID(c.Request)
	if !g.Limiter.Allow(clientID) {
		c.Header("Retry-After", retryAfterSeconds)
		g.reject(c, "rate_limited", http.StatusTooManyRequests, "Rate limit exceeded")
		return
	}

	if c.GetHeader(TestAuthHeader) != TestAuthToken {
		g.reject(c, "unauthorized", http.StatusUnauthorized, "Test authorization required")
		return
	}

	userID := c.Param("userId")
	if len(userID) < MinUserIDLength {
		noCache(c)
		g.reject(c, "invalid", http.StatusBadRequest, "Invalid user ID")
		return
	}

	if g.Audit != nil {
		if err := g.Audit.LogVerifyAccess(c.Request.Context(), clientID, RedactID(userID), g.Env); err != nil {
			logger.FromGin(c).Warn("audit append failed", "err", err)
		}
	}

	u, err := g.Users.GetUserByExternalID(c.Request.Context(), userID, true)
	noCache(c)
	if errors.Is(err, users.ErrNotFound) {
		metrics.AdmissionOutcomes.WithLabelValues("not_found").Inc()
		c.JSON(http.StatusOK, gin.H{"exists": false})
		return
	}
	if err != nil {
		g.fail(c, err)
		return
	}

	metrics.AdmissionOutcomes.WithLabelValues("found").Inc()
	c.JSON(http.StatusOK, gin.H{
		"exists": true,
		"user": gin.H{
			"id":                 u.ID,
			"externalIdentityId": u.ExternalID,
			"identifier":         u.Identifier,
			"role":               u.Role,
			"createdAt":          u.CreatedAt,
		},
	})
}

func (g *Guard) reject(c *gin.Context, outcome string, status int, msg string) {
	metrics.AdmissionOutcomes.WithLabelValues(outcome).Inc()
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func (g *Guard) fail(c *gin.Context, err error) {
	logger.FromGin(c).Error("verify user failed", "err", err.Error())
	// Drop cache headers set on the success path; 500s carry only the security set.
	h := c.Writer.Header()
	h.Del("Cache-Control")
	h.Del("Pragma")
	h.Del("Expires")
	g.reject(c, "error", http.StatusInternalServerError, "Failed to verify user")
}

// ClientID identifies the caller for rate limiting: the first X-Forwarded-For hop,
// then X-Real-IP, then "unknown".
func ClientID(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); v != "" {
		first, _, _ := strings.Cut(v, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if v := strings.TrimSpace(r.Header.Get("X-Real-IP")); v != "" {
		return v
	}
	return "unknown"
}

// RedactID keeps the first eight characters of an identity id for logs.
func RedactID(id string) string {
	if len(id) > redactKeep {
		id = id[:redactKeep]
	}
	return id + "***"
}
