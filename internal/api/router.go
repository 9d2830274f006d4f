package api

import (
	"net/http" // HTTP status codes

	"brokerage_crm/internal/accounts"   // Trading accounts
	"brokerage_crm/internal/documents"  // KYC intake
	"brokerage_crm/internal/ledger"     // Transaction ledger
	"brokerage_crm/internal/metrics"    // Prometheus counters
	"brokerage_crm/internal/middleware" // Auth, actor, rate limiting
	"brokerage_crm/internal/utils"      // Client list cache
	"brokerage_crm/internal/wizard"     // Registration flow

	"github.com/gin-gonic/gin"                                // Gin web framework
	"github.com/prometheus/client_golang/prometheus"          // Metrics registry
	"github.com/prometheus/client_golang/prometheus/promhttp" // Metrics exposition
	"gorm.io/gorm"                                            // GORM ORM library
)

// Deps carries everything the router wires into handlers
type Deps struct {
	DB          *gorm.DB                   // Relational store, used for actor resolution
	ClientCache *utils.RedisCache          // Client list cache, nil disables it
	Wizard      *wizard.Wizard             // Registration and credentials
	Intake      *documents.Intake          // KYC documents
	Ledger      *ledger.Service            // Transactions
	Accounts    *accounts.Service          // Trading accounts
	Metrics     *metrics.Metrics           // Request counters
	Gatherer    prometheus.Gatherer        // Source of /metrics, nil hides the endpoint
	JWTSecret   string                     // Session token secret
	Cookie      CookiePolicy               // Session cookie
	RateLimit   middleware.RateLimitConfig // Public endpoint throttling
	MaxUpload   int64                      // Largest multipart body kept in memory
}

// NewRouter builds the HTTP surface
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()                                             // Gin router instance
	r.Use(gin.Recovery(), middleware.RequestLogger(d.Metrics)) // Panic recovery and access log
	if d.MaxUpload > 0 {
		r.MaxMultipartMemory = d.MaxUpload // Spool larger uploads to disk
	}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }) // Liveness check
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))) // Prometheus scrape
	}

	limited := middleware.RateLimitMiddleware(d.RateLimit)              // One bucket set for all public endpoints
	session := middleware.JWTAuthMiddleware(d.JWTSecret, d.Cookie.Name) // Required session
	actor := middleware.ActorMiddleware(d.DB)                           // Acting context

	// Public routes
	r.POST("/auth/login", limited, LoginHandler(d.Wizard, d.Cookie))        // Login endpoint
	r.POST("/auth/logout", LogoutHandler(d.Cookie))                         // Logout endpoint
	r.POST("/auth/password/reset", limited, ResetPasswordHandler(d.Wizard)) // Credential reset endpoint
	r.POST("/register/basic-info", limited,
		middleware.OptionalJWTMiddleware(d.JWTSecret, d.Cookie.Name), actor,
		BasicInfoHandler(d.Wizard, d.Cookie)) // Step 1, anonymous or admin

	// Client routes (protected by JWT)
	client := r.Group("")
	client.Use(session, actor)
	client.POST("/register/income-info", IncomeInfoHandler(d.Wizard))               // Step 2
	client.POST("/register/trading-info", TradingInfoHandler(d.Wizard))             // Step 3
	client.POST("/register/additional-details", AdditionalDetailsHandler(d.Wizard)) // Step 4
	client.GET("/register/review-profile", ReviewProfileHandler(d.Wizard))          // Review before declaration
	client.POST("/register/declaration", DeclarationHandler(d.Wizard))              // Step 5
	client.GET("/profile", ProfileHandler(d.Wizard))                                // Profile view
	client.POST("/profile/update-section", UpdateSectionHandler(d.Wizard))          // Section edit
	client.POST("/documents/upload", UploadDocumentHandler(d.Intake))               // KYC upload
	client.GET("/documents", ListDocumentsHandler(d.Intake))                        // KYC documents
	client.GET("/documents/:id/file", DownloadDocumentHandler(d.Intake))            // KYC document content
	client.GET("/accounts", MyAccountsHandler(d.Accounts))                          // Trading accounts

	// Back-office routes (protected, admin only)
	admin := r.Group("")
	admin.Use(session, actor, middleware.AdminOnlyMiddleware())
	admin.POST("/transactions", CreateTransactionHandler(d.Ledger))                  // Record a transaction
	admin.POST("/transactions/query", QueryTransactionsHandler(d.Ledger))            // Filter, sort and page
	admin.GET("/transactions/:id", GetTransactionHandler(d.Ledger))                  // One transaction
	admin.POST("/transactions/:id/status", UpdateTransactionStatusHandler(d.Ledger)) // Approve or reject
	admin.GET("/admin/clients", ListClientsHandler(d.Accounts, d.ClientCache)) // Client list
	admin.GET("/admin/clients/suggest", SuggestClientsHandler(d.Accounts))           // Client lookup
	admin.POST("/admin/accounts", OpenAccountHandler(d.Accounts))                    // Open an account
	admin.POST("/admin/users/:id/password-reset", IssueResetHandler(d.Wizard))       // Resend reset token

	return r
}
