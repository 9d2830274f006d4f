package domain

import "time"

// Registration steps, in the order the wizard records them as completed.
const (
	StepNotStarted        = 0
	StepBasicInfo         = 1
	StepIncomeInfo        = 2
	StepTradingInfo       = 3
	StepAdditionalDetails = 4
	StepDeclaration       = 5
)

// ClientProfile holds the compliance and profile data of one client. UserID is
// both the primary key and the foreign key to users.
type ClientProfile struct {
	UserID                    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	CountryOfResidence        string    `gorm:"size:100" json:"country_of_residence"`
	AccountType               string    `gorm:"size:50" json:"account_type"`
	FirstName                 string    `gorm:"size:100" json:"first_name"`
	LastName                  string    `gorm:"size:100" json:"last_name"`
	Gender                    string    `gorm:"size:20" json:"gender"`
	MarketingConsent          bool      `json:"marketing_consent"`
	EmploymentStatus          string    `gorm:"size:50" json:"employment_status"`
	AnnualIncome              string    `gorm:"size:50" json:"annual_income"`
	FundingSource             string    `gorm:"size:100" json:"funding_source"`
	TradingObjective          string    `gorm:"size:100" json:"trading_objective"`
	RiskAppetite              string    `gorm:"size:50" json:"risk_appetite"`
	YearsOfExperience         string    `gorm:"size:20" json:"years_of_experience"`
	ConfirmedKnowledge        bool      `json:"confirmed_knowledge"`
	BuildingNumber            string    `gorm:"size:50" json:"building_number"`
	Street                    string    `gorm:"size:200" json:"street"`
	City                      string    `gorm:"size:100" json:"city"`
	PostalCode                string    `gorm:"size:20" json:"postal_code"`
	Nationality               string    `gorm:"size:100" json:"nationality"`
	PlaceOfBirth              string    `gorm:"size:100" json:"place_of_birth"`
	PassportDocumentKey       string    `gorm:"size:64" json:"passport_document_key"`
	ProofOfAddressDocumentKey string    `gorm:"size:64" json:"proof_of_address_document_key"`
	AcceptedTerms             bool      `json:"accepted_terms"`
	IsProfileComplete         bool      `json:"is_profile_complete"`
	RegistrationStep          int       `gorm:"not null;default:0" json:"registration_step"`
	CreatedOn                 time.Time `json:"created_on"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

// LegalName joins the name parts the way they are shown to operators.
func (p *ClientProfile) LegalName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
