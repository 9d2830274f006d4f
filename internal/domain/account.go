package domain

import (
	"time" // Timestamps

	"github.com/shopspring/decimal" // Exact money arithmetic
)

// ClientAccount Model (a trading-platform account owned by a client)
type ClientAccount struct {
	ID            uint            `gorm:"primaryKey" json:"id"`                                // Primary key
	UserID        uint            `gorm:"index;not null" json:"user_id"`                       // Owning client
	LoginID       int64           `gorm:"uniqueIndex;not null" json:"login_id"`                // Trading platform login
	AccountType   string          `gorm:"size:50" json:"account_type"`                         // Account type (standard, pro, ...)
	Currency      string          `gorm:"size:3;not null;default:'USD'" json:"currency"`       // Account currency
	Balance       decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"balance"` // Current balance
	CreditBalance decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"credit_balance"` // Credit line
	CreatedAt     time.Time       `json:"created_at"`                                          // Creation timestamp
}
