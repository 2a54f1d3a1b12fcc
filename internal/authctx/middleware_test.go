package authctx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	identitydomain "combo-auth/internal/identity/domain"
	sessionsdomain "combo-auth/internal/session/domain"
	"combo-auth/internal/session/manager"
)

type fakeIdentities struct {
	byID map[string]*identitydomain.Identity
}

func (f *fakeIdentities) GetByID(_ context.Context, id string) (*identitydomain.Identity, error) {
	if i, ok := f.byID[id]; ok {
		cp := *i
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeIdentities) GetByEmail(context.Context, string) (*identitydomain.Identity, error) {
	return nil, nil
}

func (f *fakeIdentities) GetByFederatedSubject(context.Context, string) (*identitydomain.Identity, error) {
	return nil, nil
}

func (f *fakeIdentities) Create(context.Context, *identitydomain.Identity) error { return nil }
func (f *fakeIdentities) Update(context.Context, *identitydomain.Identity) error { return nil }

type fakeSessions struct {
	byToken map[string]sessionsdomain.Session
	findErr error
}

func (f *fakeSessions) FindByToken(_ context.Context, token string) (*sessionsdomain.Session, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if s, ok := f.byToken[token]; ok {
		cp := s
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeSessions) Replace(_ context.Context, s sessionsdomain.Session) error {
	f.byToken[s.Token] = s
	return nil
}

func (f *fakeSessions) DeleteByToken(_ context.Context, token string) error {
	delete(f.byToken, token)
	return nil
}

func testSetup(t *testing.T) (*gin.Engine, *fakeSessions) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	idents := &fakeIdentities{byID: map[string]*identitydomain.Identity{
		"id-1": {ID: "id-1", DisplayName: "alice", Email: "a@x.com", Enabled: true},
	}}
	store := &fakeSessions{byToken: map[string]sessionsdomain.Session{}}
	now := time.Now().UTC()
	store.byToken["live"] = sessionsdomain.Session{
		Token: "live", IdentityID: "id-1",
		ExpiresAt: now.Add(time.Hour), CreatedAt: now,
	}
	mgr := manager.New(store, idents, time.Hour)

	r := gin.New()
	r.Use(Middleware(mgr))
	r.GET("/whoami", func(c *gin.Context) {
		ctx := c.Request.Context()
		c.JSON(http.StatusOK, gin.H{
			"name":          CurrentIdentity(ctx).DisplayName,
			"authenticated": IsAuthenticated(ctx),
			"token":         Token(ctx),
		})
	})
	r.GET("/protected", RequireAuth(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r, store
}

func get(r *gin.Engine, path string, cookie *http.Cookie, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddleware_CookieToken(t *testing.T) {
	r, _ := testSetup(t)

	w := get(r, "/whoami", &http.Cookie{Name: SessionCookieName, Value: "live"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{`"name":"alice"`, `"authenticated":true`, `"token":"live"`} {
		if !containsStr(body, want) {
			t.Errorf("body %s missing %s", body, want)
		}
	}
}

func TestMiddleware_BearerToken(t *testing.T) {
	r, _ := testSetup(t)

	w := get(r, "/whoami", nil, "live")
	if !containsStr(w.Body.String(), `"authenticated":true`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestMiddleware_NoToken(t *testing.T) {
	r, _ := testSetup(t)

	w := get(r, "/whoami", nil, "")
	body := w.Body.String()
	if !containsStr(body, `"authenticated":false`) {
		t.Errorf("body = %s", body)
	}
	if !containsStr(body, identitydomain.AnonymousName) {
		t.Errorf("anonymous requests should carry the sentinel, got %s", body)
	}
}

func TestMiddleware_StoreFailure(t *testing.T) {
	r, store := testSetup(t)
	store.findErr = errors.New("store down")

	w := get(r, "/whoami", &http.Cookie{Name: SessionCookieName, Value: "live"}, "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, store failures must not downgrade to anonymous", w.Code)
	}
}

func TestRequireAuth(t *testing.T) {
	r, _ := testSetup(t)

	if w := get(r, "/protected", nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d", w.Code)
	}
	if w := get(r, "/protected", &http.Cookie{Name: SessionCookieName, Value: "live"}, ""); w.Code != http.StatusNoContent {
		t.Errorf("authenticated status = %d", w.Code)
	}
}

func containsStr(s, sub string) bool {
	return strings.Contains(s, sub)
}
