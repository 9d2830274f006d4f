package wizard

import (
	"context"
	"strings"

	"brokerage_crm/internal/domain"
	"brokerage_crm/internal/stepgate"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// IncomeInfoInput is the step 2 form.
type IncomeInfoInput struct {
	EmploymentStatus string `json:"employment_status"`
	AnnualIncome     string `json:"annual_income"`
	FundingSource    string `json:"funding_source"`
	TradingObjective string `json:"trading_objective"`
	RiskAppetite     string `json:"risk_appetite"`
}

// TradingInfoInput is the step 3 form.
type TradingInfoInput struct {
	YearsOfExperience  string `json:"years_of_experience"`
	ConfirmedKnowledge bool   `json:"confirmed_knowledge"`
}

// AdditionalDetailsInput is the step 4 form.
type AdditionalDetailsInput struct {
	BuildingNumber string `json:"building_number"`
	Street         string `json:"street"`
	City           string `json:"city"`
	PostalCode     string `json:"postal_code"`
	Nationality    string `json:"nationality"`
	PlaceOfBirth   string `json:"place_of_birth"`
}

// DeclarationInput is the step 5 form.
type DeclarationInput struct {
	AcceptedTerms bool `json:"accepted_terms"`
}

// validate is shared by step 2 and the Employment&Income section.
func (in IncomeInfoInput) validate() error {
	return requireFields(
		field{"employment_status", in.EmploymentStatus},
		field{"annual_income", in.AnnualIncome},
		field{"funding_source", in.FundingSource},
		field{"trading_objective", in.TradingObjective},
		field{"risk_appetite", in.RiskAppetite},
	)
}

// IncomeInfo runs step 1→2.
func (w *Wizard) IncomeInfo(ctx context.Context, actor domain.Actor, in IncomeInfoInput) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	return w.saveStep(ctx, actor, domain.StepIncomeInfo, "income-info", map[string]any{
		"employment_status": strings.TrimSpace(in.EmploymentStatus),
		"annual_income":     strings.TrimSpace(in.AnnualIncome),
		"funding_source":    strings.TrimSpace(in.FundingSource),
		"trading_objective": strings.TrimSpace(in.TradingObjective),
		"risk_appetite":     strings.TrimSpace(in.RiskAppetite),
	})
}

// TradingInfo runs step 2→3.
func (w *Wizard) TradingInfo(ctx context.Context, actor domain.Actor, in TradingInfoInput) (*Result, error) {
	if err := requireFields(field{"years_of_experience", in.YearsOfExperience}); err != nil {
		return nil, err
	}
	return w.saveStep(ctx, actor, domain.StepTradingInfo, "trading-info", map[string]any{
		"years_of_experience": strings.TrimSpace(in.YearsOfExperience),
		"confirmed_knowledge": in.ConfirmedKnowledge, // Optional checkbox
	})
}

// AdditionalDetails runs step 3→4.
func (w *Wizard) AdditionalDetails(ctx context.Context, actor domain.Actor, in AdditionalDetailsInput) (*Result, error) {
	if err := requireFields(
		field{"street", in.Street},
		field{"city", in.City},
		field{"nationality", in.Nationality},
		field{"place_of_birth", in.PlaceOfBirth},
	); err != nil {
		return nil, err
	}
	return w.saveStep(ctx, actor, domain.StepAdditionalDetails, "additional-details", map[string]any{
		"building_number": strings.TrimSpace(in.BuildingNumber),
		"street":          strings.TrimSpace(in.Street),
		"city":            strings.TrimSpace(in.City),
		"postal_code":     strings.TrimSpace(in.PostalCode),
		"nationality":     strings.TrimSpace(in.Nationality),
		"place_of_birth":  strings.TrimSpace(in.PlaceOfBirth),
	})
}

// Declaration runs step 4→5, the terminal step.
func (w *Wizard) Declaration(ctx context.Context, actor domain.Actor, in DeclarationInput) (*Result, error) {
	if !in.AcceptedTerms {
		return nil, domain.Invalid("accepted_terms", "terms and conditions must be accepted")
	}
	return w.saveStep(ctx, actor, domain.StepDeclaration, "declaration", map[string]any{
		"accepted_terms": true,
	})
}

// saveStep gates on the preceding step, applies fields and advances to step.
func (w *Wizard) saveStep(ctx context.Context, actor domain.Actor, step int, op string, fields map[string]any) (*Result, error) {
	profile, err := stepgate.Guard(ctx, w.db, actor, step-1) // The previous step must be done
	if err != nil {
		return nil, err
	}
	err = w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return advance(tx, profile, step, fields)
	})
	if err != nil {
		return nil, w.fail(err, profile.UserID, op)
	}

	updated, err := w.reload(ctx, profile.UserID)
	if err != nil {
		return nil, err
	}
	invalidate(ctx, w.clients, "clients") // The client list shows the step
	w.metrics.StepCompleted(step)
	logrus.WithFields(logrus.Fields{
		"user_id":  profile.UserID,
		"step":     step,
		"actor_id": actor.UserID,
	}).Info("Registration step completed")
	return &Result{Profile: updated, Redirect: nextPage(step)}, nil
}

// nextPage is where the client goes after completing step.
func nextPage(step int) string {
	if step >= domain.StepDeclaration {
		return stepgate.PageVerify // KYC uploads follow the wizard
	}
	return stepgate.PageFor(step)
}
