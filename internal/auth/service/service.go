// Package service orchestrates registration, the two login flows, and logout.
package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"combo-auth/internal/audit"
	"combo-auth/internal/federation"
	identitydomain "combo-auth/internal/identity/domain"
	identityrepo "combo-auth/internal/identity/repository"
	"combo-auth/internal/identity/resolver"
	"combo-auth/internal/security"
	"combo-auth/internal/session/manager"
	"combo-auth/internal/telemetry"
	telemetrydomain "combo-auth/internal/telemetry/domain"
)

// RegistrationRequest is the typed form for local registration.
type RegistrationRequest struct {
	Username string
	Email    string
	Password string
	Confirm  string
}

// Service wires the credential paths to one session issuance rule. Both the
// local and the federated flow end in the same SessionManager.Login call.
type Service struct {
	identities identityrepo.Repository
	sessions   *manager.Manager
	resolver   *resolver.Resolver
	hasher     *security.Hasher
	verifier   federation.Verifier // static assertion verifier; may be nil
	auditor    audit.AuditLogger
	emitter    telemetry.EventEmitter

	// dummyHash is compared against when no identity matches the email, so
	// unknown emails cost the same bcrypt work as a wrong password.
	dummyHash string

	tracer     trace.Tracer
	loginCount metric.Int64Counter
}

// New returns a Service. verifier, auditor, and emitter may be nil; the
// corresponding paths become no-ops (federated assertion login fails with
// ErrAuthFailure when verifier is nil).
func New(
	identities identityrepo.Repository,
	sessions *manager.Manager,
	res *resolver.Resolver,
	hasher *security.Hasher,
	verifier federation.Verifier,
	auditor audit.AuditLogger,
	emitter telemetry.EventEmitter,
) *Service {
	meter := otel.Meter("combo-auth/auth")
	loginCount, err := meter.Int64Counter("auth.logins",
		metric.WithDescription("login attempts by source and result"))
	if err != nil {
		log.Printf("auth: metric init failed: %v", err)
	}
	dummyHash, err := hasher.DummyHash()
	if err != nil {
		log.Printf("auth: dummy hash init failed: %v", err)
	}
	return &Service{
		identities: identities,
		sessions:   sessions,
		resolver:   res,
		hasher:     hasher,
		verifier:   verifier,
		auditor:    auditor,
		emitter:    emitter,
		dummyHash:  dummyHash,
		tracer:     otel.Tracer("combo-auth/auth"),
		loginCount: loginCount,
	}
}

// Register creates a local identity. Validation is sequential and
// short-circuits on the first failure: username, then email availability,
// then password, then confirmation match.
func (s *Service) Register(ctx context.Context, req RegistrationRequest) (*identitydomain.Identity, error) {
	ctx, span := s.tracer.Start(ctx, "auth.Register")
	defer span.End()

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(strings.ToLower(req.Email))

	if username == "" {
		return nil, &ValidationError{Field: "username", Msg: "username is required"}
	}
	if email == "" {
		return nil, &ValidationError{Field: "email", Msg: "email is required"}
	}
	existing, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		return nil, s.storeFailure("register", err)
	}
	if existing != nil {
		return nil, &ValidationError{Field: "email", Msg: "email is already registered"}
	}
	if req.Password == "" {
		return nil, &ValidationError{Field: "password", Msg: "password is required"}
	}
	if req.Password != req.Confirm {
		return nil, &ValidationError{Field: "confirm", Msg: "passwords do not match"}
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, s.storeFailure("register", err)
	}
	now := time.Now().UTC()
	ident := &identitydomain.Identity{
		ID:             uuid.New().String(),
		DisplayName:    username,
		Email:          email,
		CredentialHash: hash,
		Enabled:        true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := ident.Validate(); err != nil {
		return nil, &ValidationError{Field: "username", Msg: err.Error()}
	}
	if err := s.identities.Create(ctx, ident); err != nil {
		if errors.Is(err, identityrepo.ErrConflict) {
			// Lost a race with a concurrent registration for the same email.
			return nil, &ValidationError{Field: "email", Msg: "email is already registered"}
		}
		return nil, s.storeFailure("register", err)
	}

	s.record(ctx, ident.ID, audit.ActionRegister, telemetrydomain.EventRegister,
		telemetrydomain.SourceLocal, "")
	return ident, nil
}

// LoginLocal authenticates email/password and binds token to the identity.
// Every failure (unknown email, disabled account, wrong password, store
// trouble) surfaces as the same ErrAuthFailure.
func (s *Service) LoginLocal(ctx context.Context, email, password, token string) (*identitydomain.Identity, error) {
	ctx, span := s.tracer.Start(ctx, "auth.LoginLocal")
	defer span.End()

	email = strings.TrimSpace(strings.ToLower(email))
	ident, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		return nil, s.loginFailure(ctx, telemetrydomain.SourceLocal, "store failure", err)
	}
	if ident == nil {
		// Unknown emails pay the same bcrypt cost as a wrong password.
		s.hasher.Verify(password, s.dummyHash)
		return nil, s.loginFailure(ctx, telemetrydomain.SourceLocal, "bad credentials", nil)
	}
	if !s.hasher.Verify(password, ident.CredentialHash) || !ident.Enabled {
		return nil, s.loginFailure(ctx, telemetrydomain.SourceLocal, "bad credentials", nil)
	}
	return s.issueSession(ctx, ident, token, telemetrydomain.SourceLocal)
}

// LoginFederated verifies a raw external assertion with the configured
// verifier, resolves it to an identity, and issues a session with the exact
// same rule as local login.
func (s *Service) LoginFederated(ctx context.Context, rawAssertion, token string) (*identitydomain.Identity, error) {
	ctx, span := s.tracer.Start(ctx, "auth.LoginFederated")
	defer span.End()

	if s.verifier == nil {
		return nil, s.loginFailure(ctx, telemetrydomain.SourceFederated, "no verifier configured", nil)
	}
	assertion, err := s.verifier.Verify(ctx, rawAssertion)
	if err != nil {
		return nil, s.loginFailure(ctx, telemetrydomain.SourceFederated, "assertion rejected", err)
	}
	return s.LoginWithAssertion(ctx, assertion, token)
}

// LoginWithAssertion resolves an already-verified assertion to an identity
// and issues a session. Used by the OAuth2 callback handler, which obtains
// the verified assertion from the provider exchange.
func (s *Service) LoginWithAssertion(ctx context.Context, assertion *federation.Assertion, token string) (*identitydomain.Identity, error) {
	ctx, span := s.tracer.Start(ctx, "auth.LoginWithAssertion")
	defer span.End()

	linked, err := s.preexistingLink(ctx, assertion)
	if err != nil {
		return nil, s.loginFailure(ctx, telemetrydomain.SourceFederated, "store failure", err)
	}
	ident, err := s.resolver.Resolve(ctx, assertion)
	if err != nil {
		return nil, s.loginFailure(ctx, telemetrydomain.SourceFederated, "resolution failed", err)
	}
	if !linked {
		s.record(ctx, ident.ID, audit.ActionFederatedLink, telemetrydomain.EventFederatedLogin,
			telemetrydomain.SourceFederated, "subject linked")
	}
	return s.issueSession(ctx, ident, token, telemetrydomain.SourceFederated)
}

// Logout invalidates every session for token. Idempotent; logging out an
// anonymous token succeeds silently.
func (s *Service) Logout(ctx context.Context, token string) error {
	ctx, span := s.tracer.Start(ctx, "auth.Logout")
	defer span.End()

	ident, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		return s.storeFailure("logout", err)
	}
	if err := s.sessions.Logout(ctx, token); err != nil {
		return s.storeFailure("logout", err)
	}
	if !ident.IsAnonymous() {
		s.record(ctx, ident.ID, audit.ActionLogout, telemetrydomain.EventLogout, "", "")
	}
	return nil
}

// issueSession is the single session issuance rule both credential paths
// converge on.
func (s *Service) issueSession(ctx context.Context, ident *identitydomain.Identity, token, source string) (*identitydomain.Identity, error) {
	if !ident.Enabled {
		return nil, s.loginFailure(ctx, source, "account disabled", nil)
	}
	if err := s.sessions.Login(ctx, token, ident); err != nil {
		return nil, s.loginFailure(ctx, source, "session issuance failed", err)
	}
	s.count(ctx, source, "success")
	action := audit.ActionLoginSuccess
	event := telemetrydomain.EventLoginSuccess
	if source == telemetrydomain.SourceFederated {
		action = audit.ActionFederatedLogin
		event = telemetrydomain.EventFederatedLogin
	}
	s.record(ctx, ident.ID, action, event, source, "")
	return ident, nil
}

// preexistingLink reports whether the assertion's subject is already bound
// to an identity, so a first-time link can be audited distinctly.
func (s *Service) preexistingLink(ctx context.Context, assertion *federation.Assertion) (bool, error) {
	if assertion == nil || assertion.Subject == "" {
		return false, nil
	}
	ident, err := s.identities.GetByFederatedSubject(ctx, assertion.Subject)
	if err != nil {
		return false, err
	}
	return ident != nil, nil
}

// loginFailure logs the internal reason, records the failure, and returns
// the one generic error the caller is allowed to see.
func (s *Service) loginFailure(ctx context.Context, source, reason string, err error) error {
	if err != nil {
		log.Printf("auth: %s login failed (%s): %v", source, reason, err)
	}
	s.count(ctx, source, "failure")
	s.record(ctx, "", audit.ActionLoginFailure, telemetrydomain.EventLoginFailure, source, reason)
	return ErrAuthFailure
}

// storeFailure logs a store-layer error and surfaces the generic failure so
// internals do not leak to the caller.
func (s *Service) storeFailure(op string, err error) error {
	log.Printf("auth: %s store failure: %v", op, err)
	return ErrAuthFailure
}

func (s *Service) count(ctx context.Context, source, result string) {
	if s.loginCount == nil {
		return
	}
	s.loginCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("result", result),
	))
}

func (s *Service) record(ctx context.Context, identityID, action, event, source, metadata string) {
	if s.auditor != nil {
		s.auditor.LogEvent(ctx, identityID, action, metadata)
	}
	telemetry.EmitAsync(s.emitter, ctx, &telemetrydomain.AuthEvent{
		IdentityID: identityID,
		EventType:  event,
		Source:     source,
		CreatedAt:  time.Now().UTC(),
	})
}
