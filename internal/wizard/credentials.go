package wizard

import (
	"context"
	"errors"
	"strings"

	"brokerage_crm/internal/domain"
	"brokerage_crm/internal/stepgate"
	"brokerage_crm/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrInvalidCredentials is returned by Login for an unknown email, a wrong
// password or an identity without a credential.
var ErrInvalidCredentials = &domain.AuthorizationError{Message: "invalid email or password"}

var errResetUsed = domain.Invalid("token", "reset token is invalid or already used")

// Login checks an email and password and returns a session token.
func (w *Wizard) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}
	var user domain.User
	err := w.db.WithContext(ctx).Preload("Roles").Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, w.fail(err, 0, "login")
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		logrus.WithField("user_id", user.ID).Warn("Failed login attempt")
		return "", nil, ErrInvalidCredentials
	}
	token, err := utils.GenerateJWT(user.ID, w.jwtSecret, w.sessionTTL)
	if err != nil {
		return "", nil, w.fail(err, user.ID, "login")
	}
	return token, &user, nil
}

// NextPage is where an identity continues after signing in. Lookup failures
// fall back to the basic info page, whose gate redirects further.
func (w *Wizard) NextPage(ctx context.Context, user *domain.User) string {
	if user.HasRole(domain.RoleAdmin) {
		return stepgate.PageDashboard
	}
	profile, err := stepgate.LoadProfile(ctx, w.db, user.ID)
	if err != nil || profile == nil {
		return stepgate.PageBasicInfo
	}
	return stepgate.PageFor(profile.RegistrationStep)
}

// IssueReset sends a fresh credential reset token to userID.
func (w *Wizard) IssueReset(ctx context.Context, userID uint) error {
	var user domain.User
	err := w.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.NotFoundError{Resource: "user"}
	}
	if err != nil {
		return w.fail(err, userID, "issue-reset")
	}
	w.sendReset(ctx, &user)
	return nil
}

// ResetPassword sets a new credential from a reset token. The token is bound
// to the security stamp it was issued under, and setting the credential
// rotates the stamp, so each token works once.
func (w *Wizard) ResetPassword(ctx context.Context, token, password string) error {
	claims, err := utils.ParseJWT(token, w.jwtSecret, utils.PurposePasswordReset)
	if err != nil {
		return errResetUsed
	}
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return w.fail(err, claims.UserID, "reset-password")
	}
	res := w.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND security_stamp = ?", claims.UserID, claims.Stamp).
		Updates(map[string]any{
			"password_hash":  hash,
			"security_stamp": utils.NewSecurityStamp(),
		})
	if res.Error != nil {
		return w.fail(res.Error, claims.UserID, "reset-password")
	}
	if res.RowsAffected == 0 {
		return errResetUsed
	}
	logrus.WithField("user_id", claims.UserID).Info("Credential reset")
	return nil
}

// sendReset delivers a reset token to user. Delivery failures are logged;
// an administrator can issue another token.
func (w *Wizard) sendReset(ctx context.Context, user *domain.User) {
	token, err := utils.GenerateResetToken(user.ID, user.SecurityStamp, w.jwtSecret, w.resetTTL)
	if err == nil {
		err = w.notifier.SendPasswordReset(ctx, user.Email, token)
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": user.ID,
			"error":   err.Error(),
		}).Warn("Failed to deliver credential reset")
	}
}
