// Package wizard implements the five-step client registration flow and the
// section-based profile edit that follows it.
package wizard

import (
	"context"
	"errors"
	"time"

	"brokerage_crm/internal/domain"
	"brokerage_crm/internal/metrics"
	"brokerage_crm/internal/notify"
	"brokerage_crm/internal/stepgate"
	"brokerage_crm/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Options configures a Wizard.
type Options struct {
	JWTSecret  string
	SessionTTL time.Duration
	ResetTTL   time.Duration
	Notifier   notify.Notifier
	Metrics    *metrics.Metrics
	Clock      func() time.Time
	// Clients is the back-office client list cache, dropped whenever a
	// registration is created or moves.
	Clients utils.Invalidator
	// Ledgers is the transaction query cache, whose pages carry client names.
	Ledgers utils.Invalidator
}

// Wizard drives registration steps against the relational store.
type Wizard struct {
	db         *gorm.DB
	jwtSecret  string
	sessionTTL time.Duration
	resetTTL   time.Duration
	notifier   notify.Notifier
	metrics    *metrics.Metrics
	now        func() time.Time
	clients    utils.Invalidator
	ledgers    utils.Invalidator
}

// New creates a Wizard.
func New(db *gorm.DB, opts Options) *Wizard {
	w := &Wizard{
		db:         db,
		jwtSecret:  opts.JWTSecret,
		sessionTTL: opts.SessionTTL,
		resetTTL:   opts.ResetTTL,
		notifier:   opts.Notifier,
		metrics:    opts.Metrics,
		now:        opts.Clock,
		clients:    opts.Clients,
		ledgers:    opts.Ledgers,
	}
	if w.now == nil {
		w.now = time.Now
	}
	if w.notifier == nil {
		w.notifier = notify.LogNotifier{}
	}
	if w.sessionTTL == 0 {
		w.sessionTTL = 24 * time.Hour // Default session lifetime
	}
	if w.resetTTL == 0 {
		w.resetTTL = 72 * time.Hour // Admin-issued reset links
	}
	return w
}

// Result is returned by every step and section save.
type Result struct {
	Profile  *domain.ClientProfile `json:"profile"`
	Redirect string                `json:"redirect,omitempty"`
	// Token is the session of a self-registered identity, returned by step 1
	// and used to authenticate the following steps.
	Token string `json:"token,omitempty"`
}

// ProfileView is a profile joined with the identity fields it denormalizes.
type ProfileView struct {
	domain.ClientProfile
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	PhoneCode   string     `json:"phone_code"`
	PhoneNumber string     `json:"phone_number"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	NextPage    string     `json:"next_page"`
}

// Profile returns the subject's profile once step 1 is complete.
func (w *Wizard) Profile(ctx context.Context, actor domain.Actor) (*ProfileView, error) {
	return w.view(ctx, actor, domain.StepBasicInfo)
}

// Review returns the profile for the review page shown before the declaration.
func (w *Wizard) Review(ctx context.Context, actor domain.Actor) (*ProfileView, error) {
	return w.view(ctx, actor, domain.StepAdditionalDetails)
}

func (w *Wizard) view(ctx context.Context, actor domain.Actor, expected int) (*ProfileView, error) {
	profile, err := stepgate.Guard(ctx, w.db, actor, expected)
	if err != nil {
		return nil, err
	}
	var user domain.User
	if err := w.db.WithContext(ctx).First(&user, profile.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Resource: "user"}
		}
		return nil, &domain.PersistenceError{Op: "load user", Err: err}
	}
	return &ProfileView{
		ClientProfile: *profile,
		Email:         user.Email,
		Name:          user.Name,
		PhoneCode:     user.PhoneCode,
		PhoneNumber:   user.PhoneNumber,
		DateOfBirth:   user.DateOfBirth,
		NextPage:      stepgate.PageFor(profile.RegistrationStep),
	}, nil
}

// advance applies fields and moves the registration step forward to step,
// but only if nobody changed the step since profile was read. A step never
// moves backwards.
func advance(tx *gorm.DB, profile *domain.ClientProfile, step int, fields map[string]any) error {
	fields["registration_step"] = max(profile.RegistrationStep, step)
	res := tx.Model(&domain.ClientProfile{}).
		Where("user_id = ? AND registration_step = ?", profile.UserID, profile.RegistrationStep).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &domain.ConflictError{Message: "registration was updated concurrently, reload and retry"}
	}
	return nil
}

// fail classifies an error raised inside an atomic unit. Errors outside the
// taxonomy are logged with context and degrade to a PersistenceError.
func (w *Wizard) fail(err error, userID uint, op string) error {
	if domain.IsClassified(err) {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"step":    op,
		"error":   err.Error(),
	}).Error("Registration update failed")
	return &domain.PersistenceError{Op: op, Err: err}
}

// invalidate drops cache, logging instead of failing the saved write.
func invalidate(ctx context.Context, cache utils.Invalidator, name string) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx); err != nil {
		logrus.WithFields(logrus.Fields{
			"cache": name,
			"error": err.Error(),
		}).Warn("Failed to invalidate cache")
	}
}

func (w *Wizard) reload(ctx context.Context, userID uint) (*domain.ClientProfile, error) {
	profile, err := stepgate.LoadProfile(ctx, w.db, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, &domain.NotFoundError{Resource: "profile"} // Deleted concurrently
	}
	return profile, nil
}
