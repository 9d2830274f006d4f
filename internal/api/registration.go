package api

import (
	"context"       // Step functions take a request context
	"encoding/json" // Raw section fields
	"net/http"      // HTTP status codes

	"brokerage_crm/internal/domain"     // Acting context
	"brokerage_crm/internal/middleware" // Actor resolution
	"brokerage_crm/internal/wizard"     // Registration flow

	"github.com/gin-gonic/gin" // Gin web framework
)

// Request struct for a section-based profile edit
type UpdateSectionRequest struct {
	Section string          `json:"section" binding:"required"` // Section tag, e.g. PersonalDetails
	Fields  json.RawMessage `json:"fields" binding:"required"`  // Section form, decoded by tag
}

// BasicInfoHandler runs registration step 1 for anonymous callers and admins
func BasicInfoHandler(w *wizard.Wizard, cookie CookiePolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req wizard.BasicInfoInput // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c) // If binding fails, return bad request
			return
		}
		res, err := w.BasicInfo(c.Request.Context(), middleware.ActorFrom(c), req)
		if err != nil {
			respondError(c, err)
			return
		}
		cookie.set(c, res.Token)   // Session for a self-registered client
		c.JSON(http.StatusOK, res) // Return the new profile
	}
}

// stepHandler binds the step form of type T and runs step
func stepHandler[T any](step func(context.Context, domain.Actor, T) (*wizard.Result, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req T // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c) // If binding fails, return bad request
			return
		}
		res, err := step(c.Request.Context(), middleware.ActorFrom(c), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res) // Updated profile and next page
	}
}

// IncomeInfoHandler runs registration step 2
func IncomeInfoHandler(w *wizard.Wizard) gin.HandlerFunc {
	return stepHandler(w.IncomeInfo)
}

// TradingInfoHandler runs registration step 3
func TradingInfoHandler(w *wizard.Wizard) gin.HandlerFunc {
	return stepHandler(w.TradingInfo)
}

// AdditionalDetailsHandler runs registration step 4
func AdditionalDetailsHandler(w *wizard.Wizard) gin.HandlerFunc {
	return stepHandler(w.AdditionalDetails)
}

// DeclarationHandler runs registration step 5
func DeclarationHandler(w *wizard.Wizard) gin.HandlerFunc {
	return stepHandler(w.Declaration)
}

// viewHandler returns the profile view produced by load
func viewHandler(load func(context.Context, domain.Actor) (*wizard.ProfileView, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := load(c.Request.Context(), middleware.ActorFrom(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// ProfileHandler returns the subject's profile
func ProfileHandler(w *wizard.Wizard) gin.HandlerFunc {
	return viewHandler(w.Profile)
}

// ReviewProfileHandler returns the profile shown before the declaration
func ReviewProfileHandler(w *wizard.Wizard) gin.HandlerFunc {
	return viewHandler(w.Review)
}

// UpdateSectionHandler edits one section of a registered profile
func UpdateSectionHandler(w *wizard.Wizard) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateSectionRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c) // If binding fails, return bad request
			return
		}
		sec, err := wizard.DecodeSection(req.Section, req.Fields) // Typed section by tag
		if err != nil {
			respondError(c, err)
			return
		}
		res, err := w.UpdateSection(c.Request.Context(), middleware.ActorFrom(c), sec)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res) // Updated profile
	}
}
