// Package pamauth authenticates secrets through Linux-PAM.
package pamauth

import (
	"errors"
	"fmt"

	"github.com/msteinert/pam"

	"github.com/tuxx/shroudlock/internal/logger"
)

// ErrUnexpectedStyle is returned to PAM for conversation styles we cannot answer
var ErrUnexpectedStyle = errors.New("unexpected conversation style")

// Authenticator implements auth.Backend on top of a PAM transaction
type Authenticator struct{}

// NewAuthenticator creates a PAM authenticator
func NewAuthenticator() *Authenticator {
	return &Authenticator{}
}

// Authenticate runs the authentication and account management stacks of
// service for user, answering password prompts with secret.
func (a *Authenticator) Authenticate(service, user, secret string) error {
	conv := func(style pam.Style, msg string) (string, error) {
		switch style {
		case pam.PromptEchoOff:
			return secret, nil
		case pam.PromptEchoOn:
			// The user name was already passed to the transaction
			return "", nil
		case pam.ErrorMsg:
			logger.Warn("PAM error: %s", msg)
			return "", nil
		case pam.TextInfo:
			logger.Info("PAM info: %s", msg)
			return "", nil
		default:
			return "", ErrUnexpectedStyle
		}
	}

	t, err := pam.StartFunc(service, user, conv)
	if err != nil {
		return fmt.Errorf("failed to start PAM transaction: %w", err)
	}

	if err := t.Authenticate(0); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	if err := t.AcctMgmt(0); err != nil {
		return fmt.Errorf("account validation failed: %w", err)
	}

	return nil
}
