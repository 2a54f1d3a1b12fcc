package service

import (
	"errors"
	"fmt"
)

// AuthFailureMessage is the single user-facing message for every credential
// failure. One message for absent accounts, disabled accounts, and wrong
// passwords resists account enumeration.
const AuthFailureMessage = "invalid credentials"

// ErrAuthFailure covers bad credentials, disabled accounts, unverifiable
// federated assertions, and store failures during login. The handler maps it
// to a generic 401 with AuthFailureMessage.
var ErrAuthFailure = errors.New(AuthFailureMessage)

// ValidationError reports bad user input on a specific field. Recoverable;
// shown to the user next to the field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// AsValidation returns the ValidationError wrapped in err, or nil.
func AsValidation(err error) *ValidationError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}
