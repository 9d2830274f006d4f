package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"brokerage_crm/internal/domain"
	"brokerage_crm/internal/stepgate"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Section tags accepted by UpdateSection.
const (
	SectionPersonalDetails   = "PersonalDetails"
	SectionEmploymentIncome  = "Employment&Income"
	SectionTradingPreference = "TradingPreference"
	SectionAdditionalDetails = "AdditionalDetails"
	SectionDeclaration       = "Declaration"
	SectionVerification      = "Verification"
)

// Section is one editable part of a registered profile. Each variant carries
// its own typed fields and required-field list.
type Section interface {
	Tag() string
	// RequiredStep is the registration step the subject must have completed.
	RequiredStep() int
	// Validate checks the submitted fields before anything is read or written.
	Validate(now time.Time) error
	changes(tx *gorm.DB, subject uint) (sectionChange, error)
}

type sectionChange struct {
	profile  map[string]any
	user     map[string]any
	step     int // zero leaves the registration step untouched
	redirect string
}

// DecodeSection builds the Section variant named by tag from its JSON fields.
func DecodeSection(tag string, raw json.RawMessage) (Section, error) {
	var sec Section
	switch tag {
	case SectionPersonalDetails:
		sec = &PersonalDetails{}
	case SectionEmploymentIncome:
		sec = &EmploymentIncome{}
	case SectionTradingPreference:
		sec = &TradingPreference{}
	case SectionAdditionalDetails:
		sec = &AdditionalDetailsSection{}
	case SectionDeclaration:
		sec = &DeclarationSection{}
	case SectionVerification:
		sec = &Verification{}
	default:
		return nil, domain.Invalid("section", "unknown section "+tag)
	}
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, sec); err != nil {
		return nil, domain.Invalid("fields", "malformed section fields")
	}
	return sec, nil
}

// UpdateSection saves one section of the subject's profile.
func (w *Wizard) UpdateSection(ctx context.Context, actor domain.Actor, sec Section) (*Result, error) {
	if err := sec.Validate(w.now()); err != nil {
		return nil, err
	}
	profile, err := stepgate.Guard(ctx, w.db, actor, sec.RequiredStep())
	if err != nil {
		return nil, err
	}

	var (
		redirect string
		renamed  bool // Identity name changed
	)
	err = w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ch, err := sec.changes(tx, profile.UserID)
		if err != nil {
			return err
		}
		redirect = ch.redirect
		_, renamed = ch.user["name"]
		if ch.step > 0 {
			if err := advance(tx, profile, ch.step, ch.profile); err != nil {
				return err
			}
		} else if len(ch.profile) > 0 { // Edits never move the step
			if err := tx.Model(&domain.ClientProfile{}).Where("user_id = ?", profile.UserID).Updates(ch.profile).Error; err != nil {
				return err
			}
		}
		if len(ch.user) > 0 {
			return tx.Model(&domain.User{}).Where("id = ?", profile.UserID).Updates(ch.user).Error
		}
		return nil
	})
	if err != nil {
		return nil, w.fail(err, profile.UserID, sec.Tag())
	}

	updated, err := w.reload(ctx, profile.UserID)
	if err != nil {
		return nil, err
	}
	invalidate(ctx, w.clients, "clients")
	if renamed {
		invalidate(ctx, w.ledgers, "transactions") // Ledger pages show the client name
	}
	w.metrics.SectionUpdated(sec.Tag())
	logrus.WithFields(logrus.Fields{
		"user_id":  profile.UserID,
		"section":  sec.Tag(),
		"actor_id": actor.UserID,
	}).Info("Profile section updated")
	return &Result{Profile: updated, Redirect: redirect}, nil
}

// PersonalDetails edits names, residence and the identity's contact data.
type PersonalDetails struct {
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	Gender             string `json:"gender"`
	CountryOfResidence string `json:"country_of_residence"`
	PhoneCode          string `json:"phone_code"`
	PhoneNumber        string `json:"phone_number"`
	DobYear            int    `json:"dob_year"`
	DobMonth           int    `json:"dob_month"`
	DobDay             int    `json:"dob_day"`

	dob time.Time
}

func (s *PersonalDetails) Tag() string       { return SectionPersonalDetails }
func (s *PersonalDetails) RequiredStep() int { return domain.StepBasicInfo }

func (s *PersonalDetails) Validate(now time.Time) error {
	if err := requireFields(
		field{"first_name", s.FirstName},
		field{"last_name", s.LastName},
		field{"country_of_residence", s.CountryOfResidence},
		field{"phone_number", s.PhoneNumber},
	); err != nil {
		return err
	}
	dob, err := birthDate(s.DobYear, s.DobMonth, s.DobDay, now)
	if err != nil {
		return err
	}
	s.dob = dob
	return nil
}

func (s *PersonalDetails) changes(*gorm.DB, uint) (sectionChange, error) {
	return sectionChange{
		profile: map[string]any{
			"first_name":           strings.TrimSpace(s.FirstName),
			"last_name":            strings.TrimSpace(s.LastName),
			"gender":               strings.TrimSpace(s.Gender),
			"country_of_residence": strings.TrimSpace(s.CountryOfResidence),
		},
		user: map[string]any{
			"name":          legalName(s.FirstName, s.LastName),
			"phone_code":    strings.TrimSpace(s.PhoneCode),
			"phone_number":  strings.TrimSpace(s.PhoneNumber),
			"date_of_birth": s.dob,
		},
	}, nil
}

// EmploymentIncome edits the step 2 answers.
type EmploymentIncome struct {
	IncomeInfoInput
}

func (s *EmploymentIncome) Tag() string       { return SectionEmploymentIncome }
func (s *EmploymentIncome) RequiredStep() int { return domain.StepBasicInfo }

func (s *EmploymentIncome) Validate(time.Time) error {
	return s.IncomeInfoInput.validate()
}

func (s *EmploymentIncome) changes(*gorm.DB, uint) (sectionChange, error) {
	return sectionChange{profile: map[string]any{
		"employment_status": strings.TrimSpace(s.EmploymentStatus),
		"annual_income":     strings.TrimSpace(s.AnnualIncome),
		"funding_source":    strings.TrimSpace(s.FundingSource),
		"trading_objective": strings.TrimSpace(s.TradingObjective),
		"risk_appetite":     strings.TrimSpace(s.RiskAppetite),
	}}, nil
}

// TradingPreference edits the step 3 answers.
type TradingPreference struct {
	TradingInfoInput
}

func (s *TradingPreference) Tag() string       { return SectionTradingPreference }
func (s *TradingPreference) RequiredStep() int { return domain.StepIncomeInfo }

func (s *TradingPreference) Validate(time.Time) error {
	return requireFields(field{"years_of_experience", s.YearsOfExperience})
}

func (s *TradingPreference) changes(*gorm.DB, uint) (sectionChange, error) {
	return sectionChange{profile: map[string]any{
		"years_of_experience": strings.TrimSpace(s.YearsOfExperience),
		"confirmed_knowledge": s.ConfirmedKnowledge,
	}}, nil
}

// AdditionalDetailsSection edits the step 4 address answers.
type AdditionalDetailsSection struct {
	AdditionalDetailsInput
}

func (s *AdditionalDetailsSection) Tag() string       { return SectionAdditionalDetails }
func (s *AdditionalDetailsSection) RequiredStep() int { return domain.StepTradingInfo }

func (s *AdditionalDetailsSection) Validate(time.Time) error {
	return requireFields(
		field{"street", s.Street},
		field{"city", s.City},
		field{"nationality", s.Nationality},
		field{"place_of_birth", s.PlaceOfBirth},
	)
}

func (s *AdditionalDetailsSection) changes(*gorm.DB, uint) (sectionChange, error) {
	return sectionChange{profile: map[string]any{
		"building_number": strings.TrimSpace(s.BuildingNumber),
		"street":          strings.TrimSpace(s.Street),
		"city":            strings.TrimSpace(s.City),
		"postal_code":     strings.TrimSpace(s.PostalCode),
		"nationality":     strings.TrimSpace(s.Nationality),
		"place_of_birth":  strings.TrimSpace(s.PlaceOfBirth),
	}}, nil
}

// DeclarationSection accepts the terms outside the linear wizard and
// completes the registration.
type DeclarationSection struct {
	DeclarationInput
}

func (s *DeclarationSection) Tag() string       { return SectionDeclaration }
func (s *DeclarationSection) RequiredStep() int { return domain.StepAdditionalDetails }

func (s *DeclarationSection) Validate(time.Time) error {
	if !s.AcceptedTerms {
		return domain.Invalid("accepted_terms", "terms and conditions must be accepted")
	}
	return nil
}

func (s *DeclarationSection) changes(*gorm.DB, uint) (sectionChange, error) {
	return sectionChange{
		profile:  map[string]any{"accepted_terms": true},
		step:     domain.StepDeclaration,
		redirect: stepgate.PageVerify,
	}, nil
}

// Verification links the uploaded identity and address documents to the
// profile and marks it complete.
type Verification struct {
	PassportDocumentKey       string `json:"passport_document_key"`
	ProofOfAddressDocumentKey string `json:"proof_of_address_document_key"`
}

func (s *Verification) Tag() string       { return SectionVerification }
func (s *Verification) RequiredStep() int { return domain.StepDeclaration }

func (s *Verification) Validate(time.Time) error {
	return requireFields(
		field{"passport_document_key", s.PassportDocumentKey},
		field{"proof_of_address_document_key", s.ProofOfAddressDocumentKey},
	)
}

func (s *Verification) changes(tx *gorm.DB, subject uint) (sectionChange, error) {
	if err := ownedDocument(tx, subject, s.PassportDocumentKey, domain.SectionGovernmentDocument, "passport_document_key"); err != nil {
		return sectionChange{}, err
	}
	if err := ownedDocument(tx, subject, s.ProofOfAddressDocumentKey, domain.SectionProofOfAddress, "proof_of_address_document_key"); err != nil {
		return sectionChange{}, err
	}
	return sectionChange{profile: map[string]any{
		"passport_document_key":         strings.TrimSpace(s.PassportDocumentKey),
		"proof_of_address_document_key": strings.TrimSpace(s.ProofOfAddressDocumentKey),
		"is_profile_complete":           true,
	}}, nil
}

// ownedDocument checks that key names a document of subject whose type is
// allowed in section.
func ownedDocument(tx *gorm.DB, subject uint, key, section, fieldName string) error {
	var doc domain.UserDocument
	err := tx.Where("user_id = ? AND storage_key = ?", subject, strings.TrimSpace(key)).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Invalid(fieldName, "does not name an uploaded document")
	}
	if err != nil {
		return err
	}
	if !doc.DocumentType.AllowedIn(section) {
		return domain.Invalid(fieldName, "document type does not match the section")
	}
	return nil
}
