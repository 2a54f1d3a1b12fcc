// Package server assembles the gin router from the handler packages.
package server

import (
	"time"

	"github.com/gin-gonic/gin"

	auditrepo "combo-auth/internal/audit/repository"
	authhandler "combo-auth/internal/auth/handler"
	authservice "combo-auth/internal/auth/service"
	"combo-auth/internal/authctx"
	healthhandler "combo-auth/internal/health/handler"
	"combo-auth/internal/session/manager"
)

// Deps holds the dependencies for the HTTP routes.
type Deps struct {
	// Auth is the auth service for register/login/logout. Required.
	Auth *authservice.Service
	// Sessions resolves tokens for the per-request middleware. Required.
	Sessions *manager.Manager
	// Google enables the Google OAuth2 routes. Nil disables them.
	Google authhandler.GoogleProvider
	// AuditRepo backs the activity endpoint. Nil disables it.
	AuditRepo auditrepo.Repository
	// HealthPinger is checked by /healthz (e.g. *sql.DB). Nil skips the check.
	HealthPinger healthhandler.Pinger
	// SessionTTL is the cookie and session lifetime.
	SessionTTL time.Duration
	// SecureCookies must be true except in plain-HTTP development.
	SecureCookies bool
}

// NewRouter builds the gin engine with all routes and middleware mounted.
//
// Route → handler mapping:
//   - /v1/auth/*  → internal/auth/handler
//   - /healthz    → internal/health/handler
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(authctx.Middleware(deps.Sessions))

	authhandler.New(deps.Auth, deps.Google, deps.AuditRepo, deps.SessionTTL, deps.SecureCookies).
		RegisterRoutes(r, authctx.RequireAuth())
	healthhandler.New(deps.HealthPinger).RegisterRoutes(r)

	return r
}
