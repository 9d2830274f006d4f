// Package notify delivers out-of-band messages to identities.
package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Notifier sends credential reset tokens to an identity's email address.
type Notifier interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogNotifier records reset tokens in the service log. It stands in for an
// email gateway.
type LogNotifier struct{}

func (LogNotifier) SendPasswordReset(_ context.Context, email, token string) error {
	logrus.WithField("email", email).Info("Password reset token issued")
	logrus.WithFields(logrus.Fields{"email": email, "token": token}).Debug("Password reset token")
	return nil
}
