package domain

import (
	"time" // Time handling

	"github.com/shopspring/decimal" // Decimal amounts
)

// DefaultCurrency is used whenever a caller omits the currency.
const DefaultCurrency = "ELOITY"

// Wallet Model
type Wallet struct {
	ID        uint            `gorm:"primaryKey" json:"id"`                                     // Primary key
	UserID    uint            `gorm:"uniqueIndex" json:"user_id"`                               // Foreign key to User
	Balance   decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"balance"`     // Wallet balance
	Currency  string          `gorm:"size:16;not null;default:'ELOITY'" json:"currency"`        // Wallet currency
	UpdatedAt time.Time       `json:"updated_at"`                                               // Last balance change
}

// Transaction types recorded on the wallet ledger.
const (
	TxTypeDeposit  = "deposit"
	TxTypeTransfer = "transfer"
)

// Transaction Model
type Transaction struct {
	ID           uint            `gorm:"primaryKey" json:"id"`                           // Primary key
	FromWalletID *uint           `gorm:"index" json:"from_wallet_id"`                    // Foreign key to Wallet of the sender
	ToWalletID   *uint           `gorm:"index" json:"to_wallet_id"`                      // Foreign key to Wallet of the receiver
	Amount       decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"amount"`      // Amount of the transaction
	Currency     string          `gorm:"size:16;not null" json:"currency"`               // Currency of the amount
	Type         string          `gorm:"size:16;index" json:"type"`                      // Transaction type: deposit, transfer
	Reference    *string         `gorm:"uniqueIndex;size:128" json:"reference,omitempty"` // Idempotency key supplied by the caller
	Memo         string          `gorm:"size:255" json:"memo"`                           // Free-form description
	CreatedAt    int64           `gorm:"autoCreateTime:milli" json:"created_at"`         // Timestamp of creation in milliseconds
}
