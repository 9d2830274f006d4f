package stepgate

import (
	"context"
	"errors"

	"brokerage_crm/internal/domain"

	"gorm.io/gorm"
)

// Guard resolves the subject of the request, loads its profile through db and
// applies Check. On success it returns the profile the action may mutate.
func Guard(ctx context.Context, db *gorm.DB, actor domain.Actor, expected int) (*domain.ClientProfile, error) {
	subject, err := Subject(actor)
	if err != nil {
		return nil, err
	}
	profile, err := LoadProfile(ctx, db, subject)
	if err != nil {
		return nil, err
	}
	if err := Check(actor, profile, expected); err != nil {
		return nil, err
	}
	return profile, nil
}

// LoadProfile returns the profile of userID, or nil when none exists.
func LoadProfile(ctx context.Context, db *gorm.DB, userID uint) (*domain.ClientProfile, error) {
	var profile domain.ClientProfile
	err := db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "load profile", Err: err}
	}
	return &profile, nil
}
