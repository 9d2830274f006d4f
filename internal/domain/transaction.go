package domain

import (
	"strings" // String normalization
	"time"    // Timestamps

	"github.com/shopspring/decimal" // Exact money arithmetic
)

// TransactionStatus is the approval state of a ledger entry
type TransactionStatus int

const (
	StatusPending  TransactionStatus = 0 // Awaiting approval
	StatusApproved TransactionStatus = 1 // Approved by an operator
	StatusRejected TransactionStatus = 2 // Rejected by an operator
)

// String returns the display name of the status
func (s TransactionStatus) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusApproved:
		return "Approved"
	case StatusRejected:
		return "Rejected"
	}
	return "Unknown"
}

// IsResolution reports whether s is a valid target of a status update
func (s TransactionStatus) IsResolution() bool {
	return s == StatusApproved || s == StatusRejected
}

// ParseTransactionStatus accepts the numeric form or the display name
func ParseTransactionStatus(s string) (TransactionStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "pending":
		return StatusPending, true
	case "1", "approved":
		return StatusApproved, true
	case "2", "rejected":
		return StatusRejected, true
	}
	return 0, false
}

// TransactionType is the direction of a ledger entry
type TransactionType string

const (
	TypeDeposit    TransactionType = "Deposit"    // Funds credited to the trading account
	TypeWithdrawal TransactionType = "Withdrawal" // Funds debited from the trading account
)

// ParseTransactionType normalizes a case-insensitive type name
func ParseTransactionType(s string) (TransactionType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deposit":
		return TypeDeposit, true
	case "withdrawal":
		return TypeWithdrawal, true
	}
	return "", false
}

// Transaction Model
type Transaction struct {
	ID              uint              `gorm:"primaryKey" json:"id"`                           // Primary key
	LoginID         int64             `gorm:"index;not null" json:"login_id"`                 // Trading account login
	Type            TransactionType   `gorm:"size:20;not null" json:"type"`                   // Deposit or Withdrawal
	Amount          decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"amount"`      // Gross amount
	Fee             decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"fee"`         // Fee applied, if any
	Description     string            `gorm:"size:500" json:"description"`                    // Operator note
	TransactionDate time.Time         `gorm:"index;not null" json:"transaction_date"`         // UTC timestamp of creation
	OperatorID      uint              `gorm:"not null;default:0" json:"operator_id"`          // Who recorded the transaction
	Status          TransactionStatus `gorm:"not null;default:0;index" json:"status"`         // Pending, Approved or Rejected
}

// BalanceDelta returns the signed effect an approved transaction has on the
// trading account balance: deposits credit the amount net of fee, withdrawals
// debit the amount plus fee.
func (t *Transaction) BalanceDelta() decimal.Decimal {
	if t.Type == TypeWithdrawal {
		return t.Amount.Add(t.Fee).Neg()
	}
	return t.Amount.Sub(t.Fee)
}
