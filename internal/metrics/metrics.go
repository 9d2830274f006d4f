package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	WizardSteps          *prometheus.CounterVec
	ProfileSections      *prometheus.CounterVec
	DocumentsStored      *prometheus.CounterVec
	TransactionsCreated  *prometheus.CounterVec
	TransactionsResolved *prometheus.CounterVec
	HTTPRequests         *prometheus.CounterVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		WizardSteps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_registration_steps_completed_total",
			Help: "Registration wizard steps completed, by step number",
		}, []string{"step"}),
		ProfileSections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_profile_sections_updated_total",
			Help: "Profile edit operations, by section",
		}, []string{"section"}),
		DocumentsStored: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_documents_stored_total",
			Help: "KYC documents stored, by document type",
		}, []string{"type"}),
		TransactionsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_transactions_created_total",
			Help: "Ledger transactions recorded, by type and initial status",
		}, []string{"type", "status"}),
		TransactionsResolved: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_transactions_resolved_total",
			Help: "Ledger transactions approved or rejected",
		}, []string{"status"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_http_requests_total",
			Help: "HTTP requests served, by method, route and status code",
		}, []string{"method", "route", "code"}),
	}
}

func (m *Metrics) StepCompleted(step int) {
	if m == nil {
		return
	}
	m.WizardSteps.WithLabelValues(strconv.Itoa(step)).Inc()
}

func (m *Metrics) SectionUpdated(section string) {
	if m == nil {
		return
	}
	m.ProfileSections.WithLabelValues(section).Inc()
}

func (m *Metrics) DocumentStored(docType string) {
	if m == nil {
		return
	}
	m.DocumentsStored.WithLabelValues(docType).Inc()
}

func (m *Metrics) TransactionCreated(txType, status string) {
	if m == nil {
		return
	}
	m.TransactionsCreated.WithLabelValues(txType, status).Inc()
}

func (m *Metrics) TransactionResolved(status string) {
	if m == nil {
		return
	}
	m.TransactionsResolved.WithLabelValues(status).Inc()
}

func (m *Metrics) Request(method, route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}
