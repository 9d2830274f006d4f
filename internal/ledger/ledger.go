// Package ledger records deposits and withdrawals and moves them from
// pending to approved or rejected.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"brokerage_crm/internal/domain"
	"brokerage_crm/internal/metrics"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Cache stores query pages. utils.RedisCache implements it.
type Cache interface {
	Key(ctx context.Context, suffix string) (string, error)
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Invalidate(ctx context.Context) error
}

// TransactionView is a transaction joined with the name of the client owning
// its trading account.
type TransactionView struct {
	domain.Transaction
	ClientName string `json:"client_name"`
	StatusName string `gorm:"-" json:"status_name"`
}

// CreateInput is the operator's transaction form.
type CreateInput struct {
	LoginID     int64           `json:"login_id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Fee         decimal.Decimal `json:"fee"`
	Description string          `json:"description"`
	ApproveNow  bool            `json:"approve_now"`
}

// Service implements the ledger workflow.
type Service struct {
	db      *gorm.DB
	cache   Cache
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService creates a Service. cache may be nil.
func NewService(db *gorm.DB, cache Cache, m *metrics.Metrics) *Service {
	return &Service{db: db, cache: cache, metrics: m, now: time.Now}
}

func (in CreateInput) validate() (domain.TransactionType, error) {
	if in.LoginID <= 0 {
		return "", domain.Invalid("login_id", "must be a positive account login")
	}
	txType, ok := domain.ParseTransactionType(in.Type)
	if !ok {
		return "", domain.Invalid("type", "must be Deposit or Withdrawal")
	}
	if !in.Amount.IsPositive() {
		return "", domain.Invalid("amount", "must be greater than zero")
	}
	if in.Fee.IsNegative() {
		return "", domain.Invalid("fee", "must not be negative")
	}
	if len(in.Description) > 500 {
		return "", domain.Invalid("description", "must be at most 500 characters")
	}
	return txType, nil
}

// Create records a transaction as pending, or as approved when ApproveNow is
// set. The operator is the acting identity, or the system operator for
// unauthenticated callers.
func (s *Service) Create(ctx context.Context, actor domain.Actor, in CreateInput) (*TransactionView, error) {
	txType, err := in.validate()
	if err != nil {
		return nil, err
	}
	status := domain.StatusPending
	if in.ApproveNow {
		status = domain.StatusApproved // Balance moves in the same transaction
	}
	operator := domain.SystemOperatorID // Unauthenticated callers
	if actor.Authenticated() {
		operator = actor.UserID
	}

	record := domain.Transaction{
		LoginID:         in.LoginID,
		Type:            txType,
		Amount:          in.Amount,
		Fee:             in.Fee,
		Description:     strings.TrimSpace(in.Description),
		TransactionDate: s.now().UTC(),
		OperatorID:      operator,
		Status:          status,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		if status == domain.StatusApproved {
			return applyBalance(tx, &record)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(err, 0, "create transaction")
	}

	s.invalidate(ctx)
	s.metrics.TransactionCreated(string(txType), status.String())
	logrus.WithFields(logrus.Fields{
		"transaction_id": record.ID,
		"login_id":       record.LoginID,
		"type":           record.Type,
		"status":         status.String(),
		"operator_id":    operator,
	}).Info("Transaction recorded")
	return s.Get(ctx, record.ID)
}

// UpdateStatus approves or rejects a pending transaction. Only the status
// changes; approving also moves the account balance. A transaction that is
// missing or already resolved is reported as not found.
func (s *Service) UpdateStatus(ctx context.Context, actor domain.Actor, id uint, target domain.TransactionStatus) (*TransactionView, error) {
	if !target.IsResolution() {
		return nil, domain.Invalid("status", "must be 1 (Approved) or 2 (Rejected)")
	}
	notPending := &domain.NotFoundError{
		Resource: "transaction",
		Message:  fmt.Sprintf("transaction %d not found or no longer pending", id),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record domain.Transaction
		if err := tx.First(&record, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notPending
			}
			return err
		}
		if record.Status != domain.StatusPending {
			return notPending // Approved and rejected are final
		}
		res := tx.Model(&domain.Transaction{}).
			Where("id = ? AND status = ?", id, domain.StatusPending).
			Update("status", target)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notPending // resolved by a concurrent request
		}
		if target == domain.StatusApproved {
			return applyBalance(tx, &record)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(err, id, "update transaction status")
	}

	s.invalidate(ctx)
	s.metrics.TransactionResolved(target.String())
	logrus.WithFields(logrus.Fields{
		"transaction_id": id,
		"status":         target.String(),
		"operator_id":    actor.UserID,
	}).Info("Transaction resolved")
	return s.Get(ctx, id)
}

// Get returns one transaction joined with its client name.
func (s *Service) Get(ctx context.Context, id uint) (*TransactionView, error) {
	var view TransactionView
	res := s.joined(ctx).Select(viewColumns).Where("transactions.id = ?", id).Limit(1).Scan(&view)
	if res.Error != nil {
		return nil, s.fail(res.Error, id, "load transaction")
	}
	if res.RowsAffected == 0 {
		return nil, &domain.NotFoundError{Resource: "transaction"}
	}
	view.StatusName = view.Status.String() // Pending, Approved or Rejected
	return &view, nil
}

// applyBalance moves the balance of the account behind t, if one exists.
func applyBalance(tx *gorm.DB, t *domain.Transaction) error {
	return tx.Model(&domain.ClientAccount{}).
		Where("login_id = ?", t.LoginID).
		Update("balance", gorm.Expr("balance + ?", t.BalanceDelta())).Error
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		logrus.WithField("error", err.Error()).Warn("Failed to invalidate transaction cache")
	}
}

func (s *Service) fail(err error, id uint, op string) error {
	if domain.IsClassified(err) {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"transaction_id": id,
		"op":             op,
		"error":          err.Error(),
	}).Error("Ledger operation failed")
	return &domain.PersistenceError{Op: op, Err: err}
}
