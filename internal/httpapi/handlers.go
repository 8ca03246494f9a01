package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"zephyr-lounge/internal/auth"
	"zephyr-lounge/internal/catalog"
	"zephyr-lounge/internal/rbac"
	"zephyr-lounge/internal/users"
	"zephyr-lounge/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Users   *users.Service
	Catalog *catalog.Catalog
	// Ping checks the user store; nil skips the check.
	Ping func(ctx context.Context) error
}

// --- Ops ---

func (h Handlers) Health(c *gin.Context) {
	if h.Ping != nil {
		if err := h.Ping(c.Request.Context()); err != nil {
			logger.FromGin(c).Error("health check failed", "err", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Users ---

// Me returns the caller's own record.
func (h Handlers) Me(c *gin.Context) {
	externalID, ok := auth.ExternalID(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	u, err := h.Users.GetUserByExternalID(c.Request.Context(), externalID, false)
	if err != nil {
		h.userError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// GetUser looks a record up by its numeric id.
func (h Handlers) GetUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return
	}
	u, err := h.Users.GetUserByID(c.Request.Context(), id, false)
	if err != nil {
		h.userError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

// UpdateRole changes the role of the user addressed by external identity id.
// RBAC: admin (route group) and again inside the service.
func (h Handlers) UpdateRole(c *gin.Context) {
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	role, err := rbac.ParseRole(req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "role must be USER or ADMIN"})
		return
	}
	u, err := h.Users.UpdateUserRole(c.Request.Context(), c.Param("id"), role, false)
	if err != nil {
		h.userError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// DeleteUser removes the record addressed by external identity id.
func (h Handlers) DeleteUser(c *gin.Context) {
	if err := h.Users.DeleteUser(c.Request.Context(), c.Param("id"), false); err != nil {
		h.userError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Dashboard is the signed-in landing payload. The record may not exist yet when the
// creation webhook has not arrived.
func (h Handlers) Dashboard(c *gin.Context) {
	externalID, _ := auth.ExternalID(c.Request.Context())
	var user *users.User
	u, err := h.Users.GetUserByExternalID(c.Request.Context(), externalID, false)
	switch {
	case err == nil:
		user = &u
	case errors.Is(err, users.ErrNotFound):
	default:
		h.userError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to your dashboard!", "user": user})
}

func (h Handlers) userError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, rbac.ErrUnauthorized):
		c.AbortWithStatusJSON(rbac.HTTPStatus(err), gin.H{"error": err.Error()})
	case errors.Is(err, users.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, users.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid argument"})
	default:
		logger.FromGin(c).Error("user operation failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// --- Catalog ---

func (h Handlers) ListDrinks(c *gin.Context) {
	category := strings.TrimSpace(c.Query("category"))
	if category == "" || strings.EqualFold(category, "all") {
		c.JSON(http.StatusOK, h.Catalog.All())
		return
	}
	drinks, err := h.Catalog.ByCategory(category)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, drinks)
}

func (h Handlers) PopularDrinks(c *gin.Context) {
	c.JSON(http.StatusOK, h.Catalog.Popular())
}

func (h Handlers) GetDrink(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "id must be an integer"})
		return
	}
	d, err := h.Catalog.ByID(id)
	if errors.Is(err, catalog.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "drink not found"})
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h Handlers) Featured(c *gin.Context) {
	c.JSON(http.StatusOK, h.Catalog.Featured())
}

func (h Handlers) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, h.Catalog.Categories())
}
