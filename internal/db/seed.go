package db

import (
	"errors"  // Error inspection
	"strings" // Email normalization

	"brokerage_crm/internal/domain" // Importing domain models
	"brokerage_crm/internal/utils"  // Password hashing

	"gorm.io/gorm" // GORM ORM library
)

// EnsureRole returns the named role, creating it when absent
func EnsureRole(tx *gorm.DB, name string) (domain.Role, error) {
	role := domain.Role{Name: name}
	err := tx.Where(domain.Role{Name: name}).FirstOrCreate(&role).Error
	return role, err
}

// SeedAdmin creates an administrator identity if no user owns the email yet.
// It returns true when a new identity was created.
func SeedAdmin(db *gorm.DB, email, password, name string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, errors.New("admin email and password are required")
	}
	created := false
	err := db.Transaction(func(tx *gorm.DB) error {
		var existing domain.User
		err := tx.Where("email = ?", email).First(&existing).Error
		if err == nil {
			return nil // Already seeded
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		role, err := EnsureRole(tx, domain.RoleAdmin)
		if err != nil {
			return err
		}
		hash, err := utils.HashPassword(password)
		if err != nil {
			return err
		}
		admin := domain.User{
			Email:         email,
			Name:          name,
			PasswordHash:  hash,
			SecurityStamp: utils.NewSecurityStamp(),
			Roles:         []domain.Role{role},
		}
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}
