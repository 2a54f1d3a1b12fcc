package domain

import "time"

// Event types emitted by the authentication flows.
const (
	EventRegister       = "register"
	EventLoginSuccess   = "login_success"
	EventLoginFailure   = "login_failure"
	EventFederatedLogin = "federated_login"
	EventLogout         = "logout"
)

// Sources identify which credential path produced an event.
const (
	SourceLocal     = "local"
	SourceFederated = "google"
)

// AuthEvent is a telemetry record of one authentication flow outcome. It
// never carries session tokens or credentials; Metadata is free-form JSON.
type AuthEvent struct {
	IdentityID string    `json:"identityId,omitempty"`
	EventType  string    `json:"eventType"`
	Source     string    `json:"source,omitempty"`
	IP         string    `json:"ip,omitempty"`
	Metadata   []byte    `json:"metadata,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
