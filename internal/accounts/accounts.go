// Package accounts manages the trading accounts linked to registered
// clients and the back-office client lookups.
package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"brokerage_crm/internal/domain"
	"brokerage_crm/internal/stepgate"
	"brokerage_crm/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SuggestLimit caps the client suggestions returned for one query.
const SuggestLimit = 10

var errLoginTaken = domain.Invalid("login_id", "is already assigned to an account")

// Service opens accounts and answers client lookups.
type Service struct {
	db      *gorm.DB
	ledgers utils.Invalidator // Cached ledger pages carry client names
}

// NewService creates a Service. ledgers may be nil.
func NewService(db *gorm.DB, ledgers utils.Invalidator) *Service {
	return &Service{db: db, ledgers: ledgers}
}

// OpenInput is the account opening form.
type OpenInput struct {
	UserID      uint   `json:"user_id"`
	LoginID     int64  `json:"login_id"`
	AccountType string `json:"account_type"`
	Currency    string `json:"currency"`
}

// Open links a new trading account to a registered client.
func (s *Service) Open(ctx context.Context, actor domain.Actor, in OpenInput) (*domain.ClientAccount, error) {
	if in.UserID == 0 {
		return nil, domain.Invalid("user_id", "is required")
	}
	if in.LoginID <= 0 {
		return nil, domain.Invalid("login_id", "must be a positive number")
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "USD"
	}
	if len(currency) != 3 {
		return nil, domain.Invalid("currency", "must be a three-letter ISO code")
	}

	account := domain.ClientAccount{
		UserID:      in.UserID,
		LoginID:     in.LoginID,
		AccountType: strings.TrimSpace(in.AccountType),
		Currency:    currency,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profiles int64
		if err := tx.Model(&domain.ClientProfile{}).Where("user_id = ?", in.UserID).Count(&profiles).Error; err != nil {
			return err
		}
		if profiles == 0 {
			return &domain.NotFoundError{Resource: "client", Message: "no registered client with that id"}
		}
		var taken int64
		if err := tx.Model(&domain.ClientAccount{}).Where("login_id = ?", in.LoginID).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return errLoginTaken
		}
		if account.AccountType == "" {
			var profile domain.ClientProfile
			if err := tx.Select("account_type").Where("user_id = ?", in.UserID).First(&profile).Error; err != nil {
				return err
			}
			account.AccountType = profile.AccountType
		}
		if err := tx.Create(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errLoginTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		if domain.IsClassified(err) {
			return nil, err
		}
		logrus.WithFields(logrus.Fields{
			"user_id":  in.UserID,
			"login_id": in.LoginID,
			"error":    err.Error(),
		}).Error("Failed to open account")
		return nil, &domain.PersistenceError{Op: "open account", Err: err}
	}

	if s.ledgers != nil {
		if err := s.ledgers.Invalidate(ctx); err != nil {
			logrus.WithField("error", err.Error()).Warn("Failed to invalidate transaction cache")
		}
	}
	logrus.WithFields(logrus.Fields{
		"user_id":  account.UserID,
		"login_id": account.LoginID,
		"actor_id": actor.UserID,
	}).Info("Trading account opened")
	return &account, nil
}

// ForSubject lists the trading accounts of the request's subject: the caller,
// or the target client for an administrator.
func (s *Service) ForSubject(ctx context.Context, actor domain.Actor) ([]domain.ClientAccount, error) {
	subject, err := stepgate.Subject(actor)
	if err != nil {
		return nil, err
	}
	out := []domain.ClientAccount{}
	if err := s.db.WithContext(ctx).Where("user_id = ?", subject).Order("id").Find(&out).Error; err != nil {
		return nil, &domain.PersistenceError{Op: "list accounts", Err: err}
	}
	return out, nil
}

// Suggestion is one client matching a lookup.
type Suggestion struct {
	UserID  uint   `json:"user_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	LoginID *int64 `json:"login_id"`
}

// Suggest returns clients whose name or email contains q.
func (s *Service) Suggest(ctx context.Context, q string) ([]Suggestion, error) {
	out := []Suggestion{}
	q = strings.TrimSpace(q)
	if q == "" {
		return out, nil
	}
	like := "%" + q + "%"
	err := s.db.WithContext(ctx).
		Table("users").
		Select("users.id AS user_id, users.name, users.email, client_accounts.login_id").
		Joins("JOIN client_profiles ON client_profiles.user_id = users.id").
		Joins("LEFT JOIN client_accounts ON client_accounts.user_id = users.id").
		Where("users.name LIKE ? OR users.email LIKE ?", like, like).
		Order("users.name").
		Limit(SuggestLimit).
		Scan(&out).Error
	if err != nil {
		return nil, &domain.PersistenceError{Op: "suggest clients", Err: err}
	}
	return out, nil
}

// ClientSummary is one row of the back-office client list.
type ClientSummary struct {
	ID                uint      `json:"id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	RegistrationStep  int       `json:"registration_step"`
	IsProfileComplete bool      `json:"is_profile_complete"`
	CreatedOn         time.Time `json:"created_on"`
}

// ClientPage is one page of ClientSummary rows.
type ClientPage struct {
	Clients    []ClientSummary `json:"clients"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	Total      int64           `json:"total"`
	TotalPages int             `json:"total_pages"`
}

// ListClients pages through registered clients, newest first.
func (s *Service) ListClients(ctx context.Context, page, pageSize int) (*ClientPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	out := &ClientPage{Clients: []ClientSummary{}, Page: page, PageSize: pageSize}
	if err := s.db.WithContext(ctx).Model(&domain.ClientProfile{}).Count(&out.Total).Error; err != nil {
		return nil, &domain.PersistenceError{Op: "count clients", Err: err}
	}
	err := s.db.WithContext(ctx).
		Table("client_profiles").
		Select("users.id, users.email, users.name, client_profiles.registration_step, client_profiles.is_profile_complete, client_profiles.created_on").
		Joins("JOIN users ON users.id = client_profiles.user_id").
		Order("client_profiles.created_on DESC").
		Order("users.id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Scan(&out.Clients).Error
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list clients", Err: err}
	}
	out.TotalPages = (int(out.Total) + pageSize - 1) / pageSize
	return out, nil
}
