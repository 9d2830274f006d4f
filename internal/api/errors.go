package api

import (
	"errors"   // Error classification
	"net/http" // HTTP status codes

	"brokerage_crm/internal/domain" // Error taxonomy

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// respondError maps a service error to its HTTP status and body
func respondError(c *gin.Context, err error) {
	var (
		validation *domain.ValidationError
		authz      *domain.AuthorizationError
		redirect   *domain.RedirectError
		notFound   *domain.NotFoundError
		conflict   *domain.ConflictError
		persist    *domain.PersistenceError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error(), "field": validation.Field}) // Field-level message
	case errors.As(err, &authz):
		c.JSON(http.StatusForbidden, gin.H{"error": authz.Message}) // Acting outside capability
	case errors.As(err, &redirect):
		c.Header("Location", redirect.Location)                           // Where the client continues
		c.JSON(http.StatusSeeOther, gin.H{"redirect": redirect.Location}) // Step gate redirect
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()}) // Missing or already resolved
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Message}) // Lost a concurrent update
	case errors.As(err, &persist):
		logrus.WithFields(logrus.Fields{"op": persist.Op, "path": c.FullPath(), "error": persist.Cause()}).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": domain.RetryMessage}) // Never expose the cause
	default:
		logrus.WithFields(logrus.Fields{"path": c.FullPath(), "error": err.Error()}).Error("Unclassified error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": domain.RetryMessage})
	}
}

// badRequest reports a body that could not be bound
func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
}
