package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"brokerage_crm/internal/accounts"
	"brokerage_crm/internal/db"
	"brokerage_crm/internal/documents"
	"brokerage_crm/internal/domain"
	"brokerage_crm/internal/ledger"
	"brokerage_crm/internal/metrics"
	"brokerage_crm/internal/middleware"
	"brokerage_crm/internal/storage"
	"brokerage_crm/internal/testutil"
	"brokerage_crm/internal/wizard"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	secret        = "api-secret"
	adminEmail    = "ops@example.com"
	adminPassword = "operator-pass"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type server struct {
	db     *gorm.DB
	router *gin.Engine
}

func newServer(t *testing.T, limit middleware.RateLimitConfig) *server {
	t.Helper()
	gdb := testutil.NewDB(t)
	blobs, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	_, err = db.SeedAdmin(gdb, adminEmail, adminPassword, "Operator")
	require.NoError(t, err)

	router := NewRouter(Deps{
		DB:        gdb,
		Wizard:    wizard.New(gdb, wizard.Options{JWTSecret: secret, Metrics: m}),
		Intake:    documents.NewIntake(gdb, blobs, m, documents.DefaultMaxBytes),
		Ledger:    ledger.NewService(gdb, nil, m),
		Accounts:  accounts.NewService(gdb, nil),
		Metrics:   m,
		Gatherer:  reg,
		JWTSecret: secret,
		Cookie:    CookiePolicy{Name: "crm_session", TTL: time.Hour},
		RateLimit: limit,
	})
	return &server{db: gdb, router: router}
}

func (s *server) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var payload bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&payload).Encode(body)
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func basicInfo(email string) gin.H {
	return gin.H{
		"country_of_residence": "Cyprus",
		"account_type":         "Standard",
		"first_name":           "Andreas",
		"last_name":            "Georgiou",
		"dob_year":             1988,
		"dob_month":            3,
		"dob_day":              14,
		"phone_code":           "+357",
		"phone_number":         "99111222",
		"email":                email,
		"password":             "client-pass",
	}
}

// registerClient runs step 1 anonymously and returns the session token and user id.
func (s *server) registerClient(t *testing.T, email string) (string, uint) {
	t.Helper()
	w := s.do(http.MethodPost, "/register/basic-info", "", basicInfo(email))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	profile := body["profile"].(map[string]any)
	return body["token"].(string), uint(profile["user_id"].(float64))
}

func (s *server) login(t *testing.T, email, password string) string {
	t.Helper()
	w := s.do(http.MethodPost, "/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode(t, w)["token"].(string)
}

func TestRegistrationFlowOverHTTP(t *testing.T) {
	s := newServer(t, middleware.RateLimitConfig{})

	w := s.do(http.MethodPost, "/register/basic-info", "", basicInfo("andreas@example.com"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Set-Cookie"), "crm_session=")
	assert.Contains(t, w.Header().Get("Set-Cookie"), "HttpOnly")
	body := decode(t, w)
	assert.Equal(t, "/register/income-info", body["redirect"])
	token := body["token"].(string)

	// Skipping ahead sends the client back to the step it owes.
	w = s.do(http.MethodPost, "/register/trading-info", token, gin.H{"years_of_experience": "1-3"})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/register/income-info", w.Header().Get("Location"))
	assert.Equal(t, "/register/income-info", decode(t, w)["redirect"])

	w = s.do(http.MethodPost, "/register/income-info", token, gin.H{
		"employment_status": "Employed",
		"annual_income":     "50000-100000",
		"funding_source":    "Salary",
		"trading_objective": "Growth",
		"risk_appetite":     "Medium",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "/register/trading-info", decode(t, w)["redirect"])

	w = s.do(http.MethodGet, "/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode(t, w)
	assert.Equal(t, "andreas@example.com", profile["email"])
	assert.EqualValues(t, domain.StepIncomeInfo, profile["registration_step"])

	w = s.do(http.MethodPost, "/auth/login", "", gin.H{"email": "andreas@example.com", "password": "client-pass"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/register/trading-info", decode(t, w)["next_page"])
}

func TestRegistrationValidationOverHTTP(t *testing.T) {
	s := newServer(t, middleware.RateLimitConfig{})

	input := basicInfo("young@example.com")
	input["dob_year"] = time.Now().Year() - 10
	w := s.do(http.MethodPost, "/register/basic-info", "", input)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "date_of_birth", decode(t, w)["field"])

	w = s.do(http.MethodGet, "/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateSectionOverHTTP(t *testing.T) {
	s := newServer(t, middleware.RateLimitConfig{})
	token, _ := s.registerClient(t, "section@example.com")

	w := s.do(http.MethodPost, "/profile/update-section", token, gin.H{"section": "Unknown", "fields": gin.H{}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "section", decode(t, w)["field"])

	w = s.do(http.MethodPost, "/profile/update-section", token, gin.H{
		"section": wizard.SectionEmploymentIncome,
		"fields": gin.H{
			"employment_status": "Self-employed",
			"annual_income":     "100000+",
			"funding_source":    "Business",
			"trading_objective": "Income",
			"risk_appetite":     "High",
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	profile := decode(t, w)["profile"].(map[string]any)
	assert.Equal(t, "Self-employed", profile["employment_status"])

	// Trading preferences are locked until step 2 is completed.
	w = s.do(http.MethodPost, "/profile/update-section", token, gin.H{
		"section": wizard.SectionTradingPreference,
		"fields":  gin.H{"years_of_experience": "5+"},
	})
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestLoginAndReset(t *testing.T) {
	s := newServer(t, middleware.RateLimitConfig{})

	w := s.do(http.MethodPost, "/auth/login", "", gin.H{"email": adminEmail, "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(http.MethodPost, "/auth/login", "", gin.H{"email": adminEmail})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/auth/login", "", gin.H{"email": adminEmail, "password": adminPassword})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "/dashboard", body["next_page"])
	assert.Contains(t, body["roles"], domain.RoleAdmin)

	w = s.do(http.MethodPost, "/auth/password/reset", "", gin.H{"token": "garbage", "password": "new-password"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/auth/logout", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestBackOfficeRequiresAdmin(t *testing.T) {
	s := newServer(t, middleware.RateLimitConfig{})
	token, _ := s.registerClient(t, "client@example.com")

	w := s.do(http.MethodPost, "/transactions/query", token, gin.H{})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(http.MethodGet, "/admin/clients", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Clients cannot act on someone else's registration.
	w = s.do(http.MethodGet, "/profile?target_user_id=1", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLedgerOverHTTP(t *testing.T) {
	s := newServer(t, middleware.RateLimitConfig{})
	_, clientID := s.registerClient(t, "trader@example.com")
	admin := s.login(t, adminEmail, adminPassword)

	w := s.do(http.MethodPost, "/admin/accounts", admin, gin.H{"user_id": clientID, "login_id": 70001})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "USD", decode(t, w)["currency"])

	w = s.do(http.MethodPost, "/transactions", admin, gin.H{"login_id": 70001, "type": "Deposit", "amount": "abc"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "amount", decode(t, w)["field"])

	w = s.do(http.MethodPost, "/transactions", admin, gin.H{
		"login_id": 70001, "type": "deposit", "amount": "250.00", "fee": "5", "description": "wire",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "Andreas Georgiou", created["client_name"])
	assert.Equal(t, "Pending", created["status_name"])
	id := uint(created["id"].(float64))

	w = s.do(http.MethodPost, "/transactions/query", admin, gin.H{"filter_status": "0", "sort_column": "amount"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page := decode(t, w)
	assert.EqualValues(t, 1, page["filtered_count"])
	assert.EqualValues(t, 15, page["page_size"])

	w = s.do(http.MethodPost, "/transactions/query", admin, gin.H{"sort_column": "password"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	path := "/transactions/" + jsonNumber(id) + "/status"
	w = s.do(http.MethodPost, path, admin, gin.H{"status": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodPost, path, admin, gin.H{"status": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Approved", decode(t, w)["status_name"])
	w = s.do(http.MethodPost, path, admin, gin.H{"status": 2})
	assert.Equal(t, http.StatusNotFound, w.Code)

	var account domain.ClientAccount
	require.NoError(t, s.db.Where("login_id = ?", 70001).First(&account).Error)
	assert.True(t, decimal.NewFromInt(245).Equal(account.Balance), account.Balance.String())

	w = s.do(http.MethodGet, "/transactions/"+jsonNumber(id), admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodGet, "/transactions/abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/admin/clients/suggest?q=georg", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["clients"], 1)

	w = s.do(http.MethodGet, "/admin/clients", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	clients := decode(t, w)
	assert.EqualValues(t, 1, clients["total"])
	assert.Equal(t, false, clients["cached"])

	w = s.do(http.MethodGet, "/accounts?target_user_id="+jsonNumber(clientID), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["accounts"], 1)
}

func jsonNumber(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestDocumentUploadOverHTTP(t *testing.T) {
	s := newServer(t, middleware.RateLimitConfig{})
	token, userID := s.registerClient(t, "kyc@example.com")

	upload := func(withFile bool) *httptest.ResponseRecorder {
		var body bytes.Buffer
		form := multipart.NewWriter(&body)
		_ = form.WriteField("document_type", "passport")
		_ = form.WriteField("section", domain.SectionGovernmentDocument)
		if withFile {
			part, _ := form.CreateFormFile("file", "passport.png")
			_, _ = part.Write([]byte("png-bytes"))
		}
		_ = form.Close()
		req := httptest.NewRequest(http.MethodPost, "/documents/upload", &body)
		req.Header.Set("Content-Type", form.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		return w
	}

	// Uploads open after the declaration.
	assert.Equal(t, http.StatusSeeOther, upload(true).Code)

	require.NoError(t, s.db.Model(&domain.ClientProfile{}).
		Where("user_id = ?", userID).
		Update("registration_step", domain.StepDeclaration).Error)

	w := upload(false)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "file", decode(t, w)["field"])

	w = upload(true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	doc := decode(t, w)["document"].(map[string]any)
	assert.Equal(t, domain.SectionGovernmentDocument, doc["section"])

	w = s.do(http.MethodGet, "/documents", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["documents"], 1)

	file := "/documents/" + jsonNumber(uint(doc["id"].(float64))) + "/file"
	w = s.do(http.MethodGet, file, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "png-bytes", w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename=passport.png`)

	other, _ := s.registerClient(t, "other@example.com")
	assert.Equal(t, http.StatusSeeOther, s.do(http.MethodGet, file, other, nil).Code, "gated before the declaration")
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/documents/999/file", token, nil).Code)
}

func TestPublicEndpointsAreRateLimited(t *testing.T) {
	s := newServer(t, middleware.RateLimitConfig{Requests: 1, Window: time.Minute, Burst: 1})

	creds := gin.H{"email": adminEmail, "password": "wrong"}
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/auth/login", "", creds).Code)
	w := s.do(http.MethodPost, "/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newServer(t, middleware.RateLimitConfig{})
	s.do(http.MethodGet, "/healthz", "", nil)

	w := s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `crm_http_requests_total{code="200",method="GET",route="/healthz"} 1`), w.Body.String())
}

func TestRespondErrorHidesPersistenceCause(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	respondError(c, &domain.PersistenceError{Op: "save", Err: errors.New("deadlock on client_profiles")})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "deadlock")
	assert.Contains(t, w.Body.String(), domain.RetryMessage)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	respondError(c, &domain.ConflictError{Message: "stale"})
	assert.Equal(t, http.StatusConflict, w.Code)
}
