// Package handler exposes the authentication flows over HTTP. Handlers own
// the transport concerns the core never touches: token minting, cookies, and
// redirect decisions.
package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	auditrepo "combo-auth/internal/audit/repository"
	"combo-auth/internal/auth/service"
	"combo-auth/internal/authctx"
	"combo-auth/internal/federation"
)

// GoogleProvider is the subset of the Google OIDC provider used by the
// handler. Nil disables the Google routes.
type GoogleProvider interface {
	AuthCodeURL(state, codeChallenge string) string
	Exchange(ctx context.Context, code, codeVerifier string) (*federation.Assertion, error)
}

type Handler struct {
	auth       *service.Service
	google     GoogleProvider
	audits     auditrepo.Repository
	sessionTTL time.Duration
	// secureCookies should be true everywhere except plain-HTTP development.
	secureCookies bool
}

// New returns a Handler. google and audits may be nil; the corresponding
// routes respond 404.
func New(auth *service.Service, google GoogleProvider, audits auditrepo.Repository, sessionTTL time.Duration, secureCookies bool) *Handler {
	return &Handler{
		auth:          auth,
		google:        google,
		audits:        audits,
		sessionTTL:    sessionTTL,
		secureCookies: secureCookies,
	}
}

// RegisterRoutes mounts the auth routes. requireAuth must be the
// authctx.RequireAuth middleware.
func (h *Handler) RegisterRoutes(r *gin.Engine, requireAuth gin.HandlerFunc) {
	v1 := r.Group("/v1/auth")
	v1.POST("/register", h.register)
	v1.POST("/login", h.login)
	v1.POST("/logout", h.logout)
	v1.GET("/me", h.me)
	v1.POST("/federated/assertion", h.federatedAssertion)
	v1.GET("/federated/google/url", h.googleURL)
	v1.GET("/federated/google/callback", h.googleCallback)
	v1.GET("/activity", requireAuth, h.activity)

	for _, route := range r.Routes() {
		log.Printf("[ROUTE] %s %s", route.Method, route.Path)
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ident, err := h.auth.Register(c.Request.Context(), service.RegistrationRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Confirm:  req.Confirm,
	})
	if err != nil {
		if ve := service.AsValidation(err); ve != nil {
			c.JSON(http.StatusBadRequest, gin.H{"field": ve.Field, "error": ve.Msg})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": service.AuthFailureMessage})
		return
	}

	// The session state decision and the redirect are separate: registration
	// does not log the user in, it tells the client where to go next.
	c.JSON(http.StatusCreated, gin.H{
		"id":          ident.ID,
		"redirect_to": "/login",
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	token, err := mintToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start session"})
		return
	}
	ident, err := h.auth.LoginLocal(c.Request.Context(), req.Email, req.Password, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": service.AuthFailureMessage})
		return
	}
	h.retirePresented(c)
	h.issueCookie(c, token)
	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"display_name":  ident.DisplayName,
		"redirect_to":   "/",
	})
}

func (h *Handler) logout(c *gin.Context) {
	token := authctx.Token(c.Request.Context())
	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "logout failed"})
		return
	}
	clearSessionCookie(c.Writer, cookieOptions{Secure: h.secureCookies})
	c.JSON(http.StatusOK, gin.H{"authenticated": false, "redirect_to": "/login"})
}

func (h *Handler) me(c *gin.Context) {
	ctx := c.Request.Context()
	ident := authctx.CurrentIdentity(ctx)
	if ident.IsAnonymous() {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated": authctx.IsAuthenticated(ctx),
		"id":            ident.ID,
		"display_name":  ident.DisplayName,
		"email":         ident.Email,
		"federated":     ident.FederatedSubject != "",
	})
}

type assertionRequest struct {
	Assertion string `json:"assertion"`
}

// federatedAssertion logs in with a raw signed assertion verified by the
// static verifier. Used by offline/dev federation and machine clients.
func (h *Handler) federatedAssertion(c *gin.Context) {
	var req assertionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Assertion == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	token, err := mintToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start session"})
		return
	}
	ident, err := h.auth.LoginFederated(c.Request.Context(), req.Assertion, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": service.AuthFailureMessage})
		return
	}
	h.retirePresented(c)
	h.issueCookie(c, token)
	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"display_name":  ident.DisplayName,
		"redirect_to":   "/",
	})
}

func (h *Handler) googleURL(c *gin.Context) {
	if h.google == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "google login is not configured"})
		return
	}
	state := generateState(c, h.secureCookies)
	_, codeChallenge := generatePKCE(c, h.secureCookies)
	c.Redirect(http.StatusFound, h.google.AuthCodeURL(state, codeChallenge))
}

func (h *Handler) googleCallback(c *gin.Context) {
	if h.google == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "google login is not configured"})
		return
	}
	if errParam := c.Query("error"); errParam != "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": service.AuthFailureMessage})
		return
	}
	if !validateState(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid state"})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	assertion, err := h.google.Exchange(c.Request.Context(), code, getPKCEVerifier(c))
	if err != nil {
		if errors.Is(err, federation.ErrVerification) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": service.AuthFailureMessage})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "token exchange failed"})
		return
	}

	token, err := mintToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start session"})
		return
	}
	if _, err := h.auth.LoginWithAssertion(c.Request.Context(), assertion, token); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": service.AuthFailureMessage})
		return
	}
	h.retirePresented(c)
	h.issueCookie(c, token)
	c.Redirect(http.StatusFound, "/")
}

// activity lists the caller's own audit trail, newest first.
func (h *Handler) activity(c *gin.Context) {
	if h.audits == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "activity log is not configured"})
		return
	}
	ident := authctx.CurrentIdentity(c.Request.Context())

	limit := queryInt(c, "limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	entries, err := h.audits.ListByIdentity(c.Request.Context(), ident.ID, int32(limit), int32(offset))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "activity log unavailable"})
		return
	}
	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		out = append(out, gin.H{
			"action":     e.Action,
			"ip":         e.IP,
			"created_at": e.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"entries": out})
}

// retirePresented logs out the session bound to the token the client
// presented with the request. Called only after a login succeeded on a
// freshly minted token, so rotating never strands the client: the prior
// session dies instead of living on until expiry. A failed login leaves
// the presented session untouched.
func (h *Handler) retirePresented(c *gin.Context) {
	prior := authctx.Token(c.Request.Context())
	if prior == "" {
		return
	}
	if err := h.auth.Logout(c.Request.Context(), prior); err != nil {
		log.Printf("auth: retiring presented session failed: %v", err)
	}
}

func (h *Handler) issueCookie(c *gin.Context, token string) {
	setSessionCookie(c.Writer, token, time.Now().UTC().Add(h.sessionTTL),
		cookieOptions{Secure: h.secureCookies})
}

func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
