package audit

// Audit actions recorded by the authentication flows.
const (
	ActionRegister       = "register"
	ActionLoginSuccess   = "login_success"
	ActionLoginFailure   = "login_failure"
	ActionFederatedLogin = "federated_login"
	ActionFederatedLink  = "federated_link"
	ActionLogout         = "logout"
)
