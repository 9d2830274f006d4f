package domain

import "time" // Time for timestamps

// Role names known to the system
const (
	RoleAdmin  = "Admin"  // Operators and back-office staff
	RoleClient = "Client" // Self-registered or admin-created clients
)

// User Model (the authenticable identity)
type User struct {
	ID            uint       `gorm:"primaryKey" json:"id"`                  // Primary key
	Email         string     `gorm:"size:191;uniqueIndex;not null" json:"email"` // Unique email, also the username (stored lowercase)
	Name          string     `gorm:"size:200" json:"name"`                  // Display name
	PasswordHash  string     `json:"-"`                                      // Hashed credential, empty for admin-created identities until reset
	PhoneCode     string     `gorm:"size:8" json:"phone_code"`              // Dialing code
	PhoneNumber   string     `gorm:"size:32" json:"phone_number"`           // Phone number
	DateOfBirth   *time.Time `json:"date_of_birth,omitempty"`               // Date of birth
	SecurityStamp string     `gorm:"size:64" json:"-"`                      // Rotated whenever the credential changes
	Roles         []Role     `gorm:"many2many:user_roles;" json:"roles"`    // Role set
	CreatedAt     time.Time  `json:"created_at"`                            // Creation timestamp
}

// HasRole reports whether the user carries the named role
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// HasCredential reports whether a password has been set for the user
func (u *User) HasCredential() bool {
	return u.PasswordHash != ""
}

// Role Model
type Role struct {
	ID   uint   `gorm:"primaryKey" json:"id"`                 // Primary key
	Name string `gorm:"size:32;uniqueIndex;not null" json:"name"` // Role name: Admin or Client
}
