// Package google implements federated login against Google via OIDC.
// It returns identity facts only; no identity or session decisions are
// made here.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"combo-auth/internal/federation"
)

const issuer = "https://accounts.google.com"

// Provider exchanges Google OAuth2 authorization codes and verifies the
// resulting ID tokens.
type Provider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
}

// New initializes the Google OIDC provider using discovery.
func New(ctx context.Context, clientID, clientSecret, redirectURL string) (*Provider, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("google oauth config missing required fields")
	}

	oidcProvider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("init google oidc provider: %w", err)
	}

	verifier := oidcProvider.Verifier(&oidc.Config{ClientID: clientID})

	oauthCfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     oidcProvider.Endpoint(),
		Scopes: []string{
			oidc.ScopeOpenID,
			"profile",
			"email",
		},
	}

	return &Provider{oauthConfig: oauthCfg, verifier: verifier}, nil
}

// AuthCodeURL builds the OAuth authorization URL with PKCE parameters.
// State and code challenge are provided by the caller's channel.
func (p *Provider) AuthCodeURL(state, codeChallenge string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// Exchange exchanges the authorization code for tokens, verifies the ID
// token, and returns the normalized assertion. Any exchange or validation
// failure is reported as federation.ErrVerification.
func (p *Provider) Exchange(ctx context.Context, code, codeVerifier string) (*federation.Assertion, error) {
	token, err := p.oauthConfig.Exchange(
		ctx,
		code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: google token exchange: %w", federation.ErrVerification, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%w: google did not return id_token", federation.ErrVerification)
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: google id_token verification: %w", federation.ErrVerification, err)
	}

	var claims struct {
		Subject string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: google id_token claims: %w", federation.ErrVerification, err)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: google id_token missing required claims", federation.ErrVerification)
	}

	var raw json.RawMessage
	if err := idToken.Claims(&raw); err != nil {
		return nil, fmt.Errorf("%w: google id_token payload: %w", federation.ErrVerification, err)
	}

	return &federation.Assertion{
		Subject:     claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
		RawClaims:   raw,
	}, nil
}
