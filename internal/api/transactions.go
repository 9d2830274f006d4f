package api

import (
	"errors"   // Empty body detection
	"io"       // Empty body detection
	"net/http" // HTTP status codes
	"strconv"  // Path parameter parsing

	"brokerage_crm/internal/domain"     // Transaction status
	"brokerage_crm/internal/ledger"     // Ledger workflow
	"brokerage_crm/internal/middleware" // Actor resolution

	"github.com/gin-gonic/gin" // Gin web framework
)

// Request struct for a status change
type UpdateStatusRequest struct {
	Status *int `json:"status" binding:"required"` // 1 approves, 2 rejects
}

// uintParam reads a positive numeric path parameter, answering 400 otherwise
func uintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		respondError(c, domain.Invalid(name, "must be a positive integer"))
		return 0, false
	}
	return uint(v), true
}

// CreateTransactionHandler records a deposit or withdrawal
func CreateTransactionHandler(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ledger.CreateInput // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// Malformed amounts fail decimal decoding here
			respondError(c, domain.Invalid("amount", "amount and fee must be decimal numbers"))
			return
		}
		view, err := svc.Create(c.Request.Context(), middleware.ActorFrom(c), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view) // Created record with client name
	}
}

// UpdateTransactionStatusHandler approves or rejects a pending transaction
func UpdateTransactionStatusHandler(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uintParam(c, "id") // Transaction ID
		if !ok {
			return
		}
		var req UpdateStatusRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, domain.Invalid("status", "must be 1 (Approved) or 2 (Rejected)"))
			return
		}
		view, err := svc.UpdateStatus(c.Request.Context(), middleware.ActorFrom(c), id, domain.TransactionStatus(*req.Status))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view) // Updated record
	}
}

// QueryTransactionsHandler filters, sorts and pages the ledger
func QueryTransactionsHandler(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ledger.Query // Bind JSON request to struct, an empty body means defaults
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c) // If binding fails, return bad request
			return
		}
		page, err := svc.List(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, page) // Rows with total and filtered counts
	}
}

// GetTransactionHandler returns one transaction with its client name
func GetTransactionHandler(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uintParam(c, "id") // Transaction ID
		if !ok {
			return
		}
		view, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}
