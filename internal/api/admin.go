package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"brokerage_crm/internal/accounts"   // Client and account services
	"brokerage_crm/internal/middleware" // Actor resolution
	"brokerage_crm/internal/utils"      // Cache helpers

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// ListClientsHandler returns registered clients with their registration step.
// Pages are cached until the wizard bumps the cache generation; a nil cache
// disables caching.
func ListClientsHandler(svc *accounts.Service, cache *utils.RedisCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context() // Request scoped context for Redis and the DB
		page := 1                  // Default page number
		pageSize := 20             // Default page size
		if p := c.Query("page"); p != "" {
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v // Set page if valid
			}
		}
		// Check and set page size within limits
		if ps := c.Query("page_size"); ps != "" {
			// If valid, set page size
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
				pageSize = v // Set page size
			}
		}
		// Create a cache key based on the effective pagination
		cacheKey, err := cache.Key(ctx, "page="+strconv.Itoa(page)+":size="+strconv.Itoa(pageSize))
		if err != nil {
			logrus.WithField("error", err.Error()).Warn("Client list cache unavailable")
			cacheKey = "" // Serve from the DB
		}
		var cached accounts.ClientPage // Cached page
		// If cached data found, return it
		if found, err := cache.Get(ctx, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"clients":     cached.Clients,    // List of clients
				"page":        cached.Page,       // Current page
				"page_size":   cached.PageSize,   // Page size
				"total":       cached.Total,      // Total number of clients
				"total_pages": cached.TotalPages, // Total pages
				"cached":      true,              // Indicate response is from cache
			})
			return
		}
		result, err := svc.ListClients(ctx, page, pageSize) // Fetch from the DB
		if err != nil {
			respondError(c, err)
			return
		}
		// Cache the page for future requests
		if err := cache.Set(ctx, cacheKey, result); err != nil {
			logrus.WithField("error", err.Error()).Warn("Client list cache write failed")
		}
		c.JSON(http.StatusOK, gin.H{
			"clients":     result.Clients,    // List of clients
			"page":        result.Page,       // Current page
			"page_size":   result.PageSize,   // Page size
			"total":       result.Total,      // Total number of clients
			"total_pages": result.TotalPages, // Total pages
			"cached":      false,             // Indicate response is not from cache
		})
	}
}

// SuggestClientsHandler returns clients whose name or email contains q
func SuggestClientsHandler(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		suggestions, err := svc.Suggest(c.Request.Context(), c.Query("q"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"clients": suggestions})
	}
}

// OpenAccountHandler opens a trading account for a registered client
func OpenAccountHandler(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req accounts.OpenInput // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c) // If binding fails, return bad request
			return
		}
		account, err := svc.Open(c.Request.Context(), middleware.ActorFrom(c), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, account) // Return the new account
	}
}

// MyAccountsHandler returns the trading accounts of the subject
func MyAccountsHandler(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svc.ForSubject(c.Request.Context(), middleware.ActorFrom(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"accounts": list})
	}
}
