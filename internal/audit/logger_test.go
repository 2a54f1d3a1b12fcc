package audit

import (
	"context"
	"errors"
	"testing"

	"combo-auth/internal/audit/domain"
)

type fakeAuditRepo struct {
	created   []*domain.AuditLog
	createErr error
}

func (f *fakeAuditRepo) GetByID(context.Context, string) (*domain.AuditLog, error) {
	return nil, nil
}

func (f *fakeAuditRepo) ListByIdentity(context.Context, string, int32, int32) ([]*domain.AuditLog, error) {
	return nil, nil
}

func (f *fakeAuditRepo) Create(_ context.Context, a *domain.AuditLog) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, a)
	return nil
}

func TestLogEvent(t *testing.T) {
	repo := &fakeAuditRepo{}
	l := NewLogger(repo, func(context.Context) string { return "203.0.113.7" })

	l.LogEvent(context.Background(), "id-1", ActionLoginSuccess, "local")

	if len(repo.created) != 1 {
		t.Fatalf("created %d entries, want 1", len(repo.created))
	}
	got := repo.created[0]
	if got.IdentityID != "id-1" || got.Action != ActionLoginSuccess {
		t.Errorf("entry = %+v", got)
	}
	if got.IP != "203.0.113.7" {
		t.Errorf("IP = %q", got.IP)
	}
	if got.ID == "" || got.CreatedAt.IsZero() {
		t.Error("entry must have ID and timestamp")
	}
}

func TestLogEvent_SentinelIdentity(t *testing.T) {
	repo := &fakeAuditRepo{}
	l := NewLogger(repo, nil)

	l.LogEvent(context.Background(), "", ActionLoginFailure, "unknown email")

	if len(repo.created) != 1 {
		t.Fatalf("created %d entries, want 1", len(repo.created))
	}
	if got := repo.created[0].IdentityID; got != SentinelIdentityID {
		t.Errorf("IdentityID = %q, want sentinel", got)
	}
	if got := repo.created[0].IP; got != "unknown" {
		t.Errorf("IP = %q, want unknown without extractor", got)
	}
}

func TestLogEvent_BestEffort(t *testing.T) {
	repo := &fakeAuditRepo{createErr: errors.New("db down")}
	l := NewLogger(repo, nil)

	// Must not panic or propagate the failure.
	l.LogEvent(context.Background(), "id-1", ActionLogout, "")
}

func TestLogEvent_NilRepo(t *testing.T) {
	l := NewLogger(nil, nil)
	l.LogEvent(context.Background(), "id-1", ActionRegister, "")
}
