package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"combo-auth/internal/federation"
	identitydomain "combo-auth/internal/identity/domain"
	identityrepo "combo-auth/internal/identity/repository"
	"combo-auth/internal/identity/resolver"
	"combo-auth/internal/security"
	sessionsdomain "combo-auth/internal/session/domain"
	"combo-auth/internal/session/manager"
)

type fakeIdentities struct {
	byID      map[string]*identitydomain.Identity
	createErr error
}

func newFakeIdentities() *fakeIdentities {
	return &fakeIdentities{byID: map[string]*identitydomain.Identity{}}
}

func (f *fakeIdentities) GetByID(_ context.Context, id string) (*identitydomain.Identity, error) {
	if i, ok := f.byID[id]; ok {
		cp := *i
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeIdentities) GetByEmail(_ context.Context, email string) (*identitydomain.Identity, error) {
	for _, i := range f.byID {
		if strings.EqualFold(i.Email, email) {
			cp := *i
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeIdentities) GetByFederatedSubject(_ context.Context, subject string) (*identitydomain.Identity, error) {
	for _, i := range f.byID {
		if subject != "" && i.FederatedSubject == subject {
			cp := *i
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeIdentities) Create(_ context.Context, i *identitydomain.Identity) error {
	if f.createErr != nil {
		return f.createErr
	}
	cp := *i
	f.byID[i.ID] = &cp
	return nil
}

func (f *fakeIdentities) Update(_ context.Context, i *identitydomain.Identity) error {
	cp := *i
	f.byID[i.ID] = &cp
	return nil
}

type memSessionStore struct {
	byToken map[string]sessionsdomain.Session
}

func (m *memSessionStore) FindByToken(_ context.Context, token string) (*sessionsdomain.Session, error) {
	if s, ok := m.byToken[token]; ok {
		cp := s
		return &cp, nil
	}
	return nil, nil
}

func (m *memSessionStore) Replace(_ context.Context, s sessionsdomain.Session) error {
	m.byToken[s.Token] = s
	return nil
}

func (m *memSessionStore) DeleteByToken(_ context.Context, token string) error {
	delete(m.byToken, token)
	return nil
}

type fakeVerifier struct {
	assertion *federation.Assertion
	err       error
}

func (f *fakeVerifier) Verify(context.Context, string) (*federation.Assertion, error) {
	return f.assertion, f.err
}

type recordingAuditor struct {
	actions []string
}

func (r *recordingAuditor) LogEvent(_ context.Context, _, action, _ string) {
	r.actions = append(r.actions, action)
}

func (r *recordingAuditor) has(action string) bool {
	for _, a := range r.actions {
		if a == action {
			return true
		}
	}
	return false
}

func newTestService(t *testing.T, verifier federation.Verifier) (*Service, *fakeIdentities, *manager.Manager, *recordingAuditor) {
	t.Helper()
	idents := newFakeIdentities()
	store := &memSessionStore{byToken: map[string]sessionsdomain.Session{}}
	mgr := manager.New(store, idents, time.Hour)
	auditor := &recordingAuditor{}
	svc := New(idents, mgr, resolver.New(idents), security.NewHasher(4), verifier, auditor, nil)
	return svc, idents, mgr, auditor
}

func register(t *testing.T, svc *Service) *identitydomain.Identity {
	t.Helper()
	ident, err := svc.Register(context.Background(), RegistrationRequest{
		Username: "alice", Email: "a@x.com", Password: "pw1", Confirm: "pw1",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return ident
}

func TestRegister(t *testing.T) {
	svc, idents, _, auditor := newTestService(t, nil)

	ident := register(t, svc)
	if ident.Email != "a@x.com" || ident.DisplayName != "alice" {
		t.Errorf("identity = %+v", ident)
	}
	if !ident.Enabled {
		t.Error("registered identity should be enabled")
	}
	if ident.CredentialHash == "" || ident.CredentialHash == "pw1" {
		t.Error("password must be stored hashed")
	}
	if _, ok := idents.byID[ident.ID]; !ok {
		t.Error("identity not persisted")
	}
	if !auditor.has("register") {
		t.Error("registration should be audited")
	}
}

func TestRegister_ValidationOrder(t *testing.T) {
	svc, _, _, _ := newTestService(t, nil)
	register(t, svc)
	ctx := context.Background()

	cases := []struct {
		name  string
		req   RegistrationRequest
		field string
	}{
		{"empty username", RegistrationRequest{Email: "b@x.com", Password: "p", Confirm: "p"}, "username"},
		{"taken email", RegistrationRequest{Username: "bob", Email: "a@x.com", Password: "p", Confirm: "p"}, "email"},
		{"empty password", RegistrationRequest{Username: "bob", Email: "b@x.com"}, "password"},
		{"mismatched confirm", RegistrationRequest{Username: "bob", Email: "b@x.com", Password: "p", Confirm: "q"}, "confirm"},
		// Username check runs before the email check even when both fail.
		{"username before email", RegistrationRequest{Email: "a@x.com", Password: "p", Confirm: "q"}, "username"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.req)
			ve := AsValidation(err)
			if ve == nil {
				t.Fatalf("want ValidationError, got %v", err)
			}
			if ve.Field != tc.field {
				t.Errorf("Field = %q, want %q", ve.Field, tc.field)
			}
		})
	}
}

func TestRegister_ConflictMapsToEmailError(t *testing.T) {
	svc, idents, _, _ := newTestService(t, nil)
	idents.createErr = identityrepo.ErrConflict

	_, err := svc.Register(context.Background(), RegistrationRequest{
		Username: "alice", Email: "a@x.com", Password: "pw1", Confirm: "pw1",
	})
	ve := AsValidation(err)
	if ve == nil || ve.Field != "email" {
		t.Fatalf("want email ValidationError, got %v", err)
	}
}

func TestLoginLocal(t *testing.T) {
	svc, _, mgr, auditor := newTestService(t, nil)
	ctx := context.Background()
	register(t, svc)

	ident, err := svc.LoginLocal(ctx, "a@x.com", "pw1", "tok")
	if err != nil {
		t.Fatalf("LoginLocal: %v", err)
	}
	got, err := mgr.Resolve(ctx, "tok")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Email != "a@x.com" || got.ID != ident.ID {
		t.Errorf("resolved %+v", got)
	}
	if !auditor.has("login_success") {
		t.Error("successful login should be audited")
	}
}

func TestLoginLocal_GenericFailures(t *testing.T) {
	svc, idents, mgr, _ := newTestService(t, nil)
	ctx := context.Background()
	ident := register(t, svc)

	cases := []struct {
		name            string
		email, password string
		prepare         func()
	}{
		{"unknown email", "nobody@x.com", "pw1", nil},
		{"wrong password", "a@x.com", "wrong", nil},
		{"disabled account", "a@x.com", "pw1", func() {
			idents.byID[ident.ID].Enabled = false
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.prepare != nil {
				tc.prepare()
			}
			_, err := svc.LoginLocal(ctx, tc.email, tc.password, "tok2")
			if !errors.Is(err, ErrAuthFailure) {
				t.Fatalf("want ErrAuthFailure, got %v", err)
			}
			got, err := mgr.Resolve(ctx, "tok2")
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if !got.IsAnonymous() {
				t.Error("failed login must leave the token anonymous")
			}
		})
	}
}

func TestLoginFederated_NewIdentity(t *testing.T) {
	assertion := &federation.Assertion{
		Subject: "g1", Email: "c@x.com", DisplayName: "Carol",
		RawClaims: []byte(`{"sub":"g1"}`),
	}
	svc, _, mgr, auditor := newTestService(t, &fakeVerifier{assertion: assertion})
	ctx := context.Background()

	ident, err := svc.LoginFederated(ctx, "raw-assertion", "tok")
	if err != nil {
		t.Fatalf("LoginFederated: %v", err)
	}
	if ident.FederatedSubject != "g1" || ident.CredentialHash != "" {
		t.Errorf("identity = %+v", ident)
	}
	got, err := mgr.Resolve(ctx, "tok")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != ident.ID {
		t.Error("federated login should issue a session like local login")
	}
	if !auditor.has("federated_login") {
		t.Error("federated login should be audited")
	}
	if !auditor.has("federated_link") {
		t.Error("first-time subject binding should be audited as a link")
	}
}

func TestLoginFederated_LinksExistingEmail(t *testing.T) {
	assertion := &federation.Assertion{Subject: "g1", Email: "a@x.com", DisplayName: "Alice"}
	svc, idents, _, _ := newTestService(t, &fakeVerifier{assertion: assertion})
	ctx := context.Background()
	local := register(t, svc)

	ident, err := svc.LoginFederated(ctx, "raw-assertion", "tok")
	if err != nil {
		t.Fatalf("LoginFederated: %v", err)
	}
	if ident.ID != local.ID {
		t.Errorf("resolved to %q, want the existing local identity %q", ident.ID, local.ID)
	}
	if len(idents.byID) != 1 {
		t.Errorf("%d identities after link, want 1", len(idents.byID))
	}
	if idents.byID[local.ID].FederatedSubject != "g1" {
		t.Error("subject not linked to the existing identity")
	}
}

func TestLoginFederated_VerifierRejects(t *testing.T) {
	svc, _, mgr, auditor := newTestService(t, &fakeVerifier{err: federation.ErrVerification})
	ctx := context.Background()

	_, err := svc.LoginFederated(ctx, "garbage", "tok")
	if !errors.Is(err, ErrAuthFailure) {
		t.Fatalf("want ErrAuthFailure, got %v", err)
	}
	got, _ := mgr.Resolve(ctx, "tok")
	if !got.IsAnonymous() {
		t.Error("rejected assertion must leave the token anonymous")
	}
	if !auditor.has("login_failure") {
		t.Error("rejected assertion should be audited as a failure")
	}
}

func TestLoginFederated_NoVerifier(t *testing.T) {
	svc, _, _, _ := newTestService(t, nil)

	if _, err := svc.LoginFederated(context.Background(), "raw", "tok"); !errors.Is(err, ErrAuthFailure) {
		t.Fatalf("want ErrAuthFailure, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	svc, _, mgr, auditor := newTestService(t, nil)
	ctx := context.Background()
	register(t, svc)

	if _, err := svc.LoginLocal(ctx, "a@x.com", "pw1", "tok"); err != nil {
		t.Fatalf("LoginLocal: %v", err)
	}
	if err := svc.Logout(ctx, "tok"); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	got, err := mgr.Resolve(ctx, "tok")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !got.IsAnonymous() {
		t.Error("token should be anonymous after logout")
	}
	if !auditor.has("logout") {
		t.Error("logout should be audited")
	}

	// Idempotent for already-anonymous tokens.
	if err := svc.Logout(ctx, "tok"); err != nil {
		t.Fatalf("Logout repeat: %v", err)
	}
	if err := svc.Logout(ctx, ""); err != nil {
		t.Fatalf("Logout empty: %v", err)
	}
}
