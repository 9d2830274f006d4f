package wizard

import (
	"context"
	"errors"
	"strings"

	"brokerage_crm/internal/db"
	"brokerage_crm/internal/domain"
	"brokerage_crm/internal/stepgate"
	"brokerage_crm/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var errEmailTaken = domain.Invalid("email", "is already registered")

// BasicInfoInput is the step 1 form.
type BasicInfoInput struct {
	CountryOfResidence string `json:"country_of_residence"`
	AccountType        string `json:"account_type"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	Gender             string `json:"gender"`
	DobYear            int    `json:"dob_year"`
	DobMonth           int    `json:"dob_month"`
	DobDay             int    `json:"dob_day"`
	PhoneCode          string `json:"phone_code"`
	PhoneNumber        string `json:"phone_number"`
	Email              string `json:"email"`
	Password           string `json:"password"`
	MarketingConsent   bool   `json:"marketing_consent"`
}

// BasicInfo runs step 0→1: it creates the identity with the Client role and
// its profile in one atomic unit.
//
// Anonymous callers register themselves and must supply a password; the
// returned Result carries their session token. Administrators register a
// client on their behalf without a password; the new identity receives a
// credential reset token out of band instead.
func (w *Wizard) BasicInfo(ctx context.Context, actor domain.Actor, in BasicInfoInput) (*Result, error) {
	if actor.Authenticated() && !actor.Admin {
		profile, err := stepgate.LoadProfile(ctx, w.db, actor.UserID)
		if err != nil {
			return nil, err
		}
		if profile == nil {
			return nil, &domain.AuthorizationError{Message: "identity is already registered"}
		}
		return nil, &domain.RedirectError{Location: stepgate.PageFor(profile.RegistrationStep)}
	}
	adminInitiated := actor.Admin

	if err := requireFields(
		field{"country_of_residence", in.CountryOfResidence},
		field{"account_type", in.AccountType},
		field{"first_name", in.FirstName},
		field{"last_name", in.LastName},
		field{"phone_number", in.PhoneNumber},
		field{"email", in.Email},
	); err != nil {
		return nil, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	now := w.now()
	dob, err := birthDate(in.DobYear, in.DobMonth, in.DobDay, now)
	if err != nil {
		return nil, err
	}

	var hash string
	if !adminInitiated {
		if err := requireFields(field{"password", in.Password}); err != nil {
			return nil, err
		}
		if err := validatePassword(in.Password); err != nil {
			return nil, err
		}
		if hash, err = utils.HashPassword(in.Password); err != nil {
			return nil, w.fail(err, 0, "basic-info")
		}
	}

	user := domain.User{
		Email:         email,
		Name:          legalName(in.FirstName, in.LastName),
		PasswordHash:  hash,
		PhoneCode:     strings.TrimSpace(in.PhoneCode),
		PhoneNumber:   strings.TrimSpace(in.PhoneNumber),
		DateOfBirth:   &dob,
		SecurityStamp: utils.NewSecurityStamp(),
	}
	profile := domain.ClientProfile{
		CountryOfResidence: strings.TrimSpace(in.CountryOfResidence),
		AccountType:        strings.TrimSpace(in.AccountType),
		FirstName:          strings.TrimSpace(in.FirstName),
		LastName:           strings.TrimSpace(in.LastName),
		Gender:             strings.TrimSpace(in.Gender),
		MarketingConsent:   in.MarketingConsent,
		RegistrationStep:   domain.StepBasicInfo,
		CreatedOn:          now.UTC(),
	}

	err = w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&domain.User{}).Where("email = ?", email).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return errEmailTaken
		}
		role, err := db.EnsureRole(tx, domain.RoleClient) // Created lazily on first registration
		if err != nil {
			return err
		}
		user.Roles = []domain.Role{role}
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errEmailTaken
			}
			return err
		}
		profile.UserID = user.ID // Profile shares the identity's key
		return tx.Create(&profile).Error
	})
	if err != nil {
		return nil, w.fail(err, 0, "basic-info")
	}

	result := &Result{Profile: &profile, Redirect: stepgate.PageIncomeInfo}
	if adminInitiated {
		w.sendReset(ctx, &user)
	} else {
		token, err := utils.GenerateJWT(user.ID, w.jwtSecret, w.sessionTTL)
		if err != nil {
			// The identity exists; the client can still sign in.
			logrus.WithFields(logrus.Fields{"user_id": user.ID, "error": err.Error()}).Error("Failed to issue session token")
		}
		result.Token = token
	}

	invalidate(ctx, w.clients, "clients")
	w.metrics.StepCompleted(domain.StepBasicInfo)
	logrus.WithFields(logrus.Fields{
		"user_id":         user.ID,
		"admin_initiated": adminInitiated,
		"actor_id":        actor.UserID,
	}).Info("Client registered")
	return result, nil
}
