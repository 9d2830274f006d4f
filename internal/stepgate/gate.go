// Package stepgate decides whether an actor may run a registration step,
// given how far the subject's registration has progressed.
package stepgate

import (
	"brokerage_crm/internal/domain"
)

// Canonical pages of the registration flow.
const (
	PageBasicInfo         = "/register/basic-info"
	PageIncomeInfo        = "/register/income-info"
	PageTradingInfo       = "/register/trading-info"
	PageAdditionalDetails = "/register/additional-details"
	PageReviewProfile     = "/register/review-profile"
	PageVerify            = "/register/verify"
	PageDashboard         = "/dashboard"
)

// PageFor maps a completed registration step to the page where the client
// continues.
func PageFor(step int) string {
	switch {
	case step <= domain.StepNotStarted:
		return PageBasicInfo
	case step == domain.StepBasicInfo:
		return PageIncomeInfo
	case step == domain.StepIncomeInfo:
		return PageTradingInfo
	case step == domain.StepTradingInfo:
		return PageAdditionalDetails
	case step == domain.StepAdditionalDetails:
		return PageReviewProfile
	}
	return PageDashboard
}

var errForeignTarget = &domain.AuthorizationError{Message: "only administrators may act on behalf of another user"}

// Subject resolves whose registration the request acts on.
func Subject(actor domain.Actor) (uint, error) {
	if actor.TargetUserID != 0 {
		if !actor.Admin {
			return 0, errForeignTarget
		}
		return actor.TargetUserID, nil
	}
	if !actor.Authenticated() {
		return 0, &domain.RedirectError{Location: PageBasicInfo}
	}
	return actor.UserID, nil
}

// Check decides whether actor may run an action that requires expected
// steps to be completed on profile. profile is nil when the subject has none.
func Check(actor domain.Actor, profile *domain.ClientProfile, expected int) error {
	if actor.TargetUserID != 0 && !actor.Admin {
		return errForeignTarget
	}
	if profile == nil {
		return &domain.RedirectError{Location: PageBasicInfo}
	}
	if actor.Capability() == domain.AdminOverride {
		return nil
	}
	if profile.RegistrationStep < expected {
		return &domain.RedirectError{Location: PageFor(profile.RegistrationStep)}
	}
	return nil
}
