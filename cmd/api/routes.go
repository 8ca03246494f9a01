package main

import (
	"log/slog"

	"zephyr-lounge/internal/admission"
	"zephyr-lounge/internal/auth"
	"zephyr-lounge/internal/httpapi"
	"zephyr-lounge/internal/metrics"
	"zephyr-lounge/internal/rbac"
	"zephyr-lounge/internal/users"
	"zephyr-lounge/internal/webhook"
	"zephyr-lounge/pkg/logger"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	Session    *auth.Verifier
	CookieName string
	SignInURL  string

	Users    *users.Service
	Handlers httpapi.Handlers
	Guard    *admission.Guard
	Webhook  *webhook.Handler
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, log *slog.Logger, d routeDeps) {
	r.Use(logger.Middleware(log))
	r.Use(metrics.Middleware())

	// ops
	r.GET("/healthz", d.Handlers.Health)
	r.GET("/metrics", metrics.Handler())

	// Identity provider webhooks. Signed by the provider; no session.
	r.POST("/api/webhooks/clerk", d.Webhook.Handle)

	// Test-only user verification. Not session-aware: it runs as a system caller.
	r.GET("/api/users/verify/:userId", admission.SecurityHeaders(), d.Guard.Verify)

	// Everything below sees the caller's session, if any.
	sess := r.Group("")
	sess.Use(auth.LoadSession(d.Session, d.CookieName, nil))

	sess.GET("/dashboard", auth.RequireSession(d.SignInURL), d.Handlers.Dashboard)

	api := sess.Group("/api")
	{
		api.GET("/drinks", d.Handlers.ListDrinks)
		api.GET("/drinks/popular", d.Handlers.PopularDrinks)
		api.GET("/drinks/:id", d.Handlers.GetDrink)
		api.GET("/categories", d.Handlers.Categories)
		api.GET("/featured", d.Handlers.Featured)
	}

	// USERS routes. :id is the numeric record id on GET and the external identity id
	// on the mutating routes.
	usersGroup := api.Group("/users")
	usersGroup.Use(auth.RequireSession(d.SignInURL))
	{
		usersGroup.GET("/me", d.Handlers.Me)
		usersGroup.GET("/:id", d.Handlers.GetUser)
		usersGroup.DELETE("/:id", d.Handlers.DeleteUser)

		admin := usersGroup.Group("")
		admin.Use(rbac.RequireLevel(d.Users.Deriver(), rbac.LevelAdmin))
		admin.PATCH("/:id/role", d.Handlers.UpdateRole)
	}
}
