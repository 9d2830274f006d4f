package wizard

import (
	"net/mail"
	"strings"
	"time"

	"brokerage_crm/internal/domain"
)

const minimumAge = 18

// field pairs a request field name with its submitted value.
type field struct {
	name  string
	value string
}

// requireFields reports every field that is blank after trimming.
func requireFields(fields ...field) error {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &domain.ValidationError{
		Field:   missing[0],
		Message: "missing required fields: " + strings.Join(missing, ", "),
	}
}

// birthDate builds a date of birth from its parts and checks the minimum age
// against now. Out-of-range parts (day 31 of a 30-day month) are rejected.
func birthDate(year, month, day int, now time.Time) (time.Time, error) {
	if year <= 0 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, domain.Invalid("date_of_birth", "is not a valid date")
	}
	dob := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if dob.Year() != year || dob.Month() != time.Month(month) || dob.Day() != day {
		return time.Time{}, domain.Invalid("date_of_birth", "is not a valid date")
	}
	today := now.UTC()
	cutoff := time.Date(today.Year()-minimumAge, today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if dob.After(cutoff) {
		return time.Time{}, domain.Invalid("date_of_birth", "must be at least 18 years old")
	}
	return dob, nil
}

// normalizeEmail lowercases and validates an email address.
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.Invalid("email", "is not a valid email address")
	}
	return email, nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return domain.Invalid("password", "must be at least 8 characters")
	}
	return nil
}

func legalName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}
