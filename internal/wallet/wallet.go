// Package wallet moves value between user wallets. It is the Wallet
// Transfer Gateway used by the contribution ledger.
package wallet

import (
	"context" // Context for blocking calls
	"errors"  // Sentinel errors
	"strings" // String helpers

	"github.com/shopspring/decimal" // Decimal amounts
)

// Errors reported by the ledger.
var (
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrWalletExists      = errors.New("wallet already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSelfTransfer      = errors.New("cannot transfer to yourself")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrCurrencyMismatch  = errors.New("currency does not match wallet")
)

// TransferRequest moves Amount from one user's wallet to another's.
// Reference, when set, makes the transfer idempotent: a second request with
// the same reference returns the first transaction instead of moving funds.
type TransferRequest struct {
	FromUserID uint
	ToUserID   uint
	Amount     decimal.Decimal
	Currency   string
	Memo       string
	Reference  string
}

// Validate checks the request shape before touching storage.
func (r TransferRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if r.FromUserID == r.ToUserID {
		return ErrSelfTransfer
	}
	return nil
}

// TransferResult identifies the wallet transaction that carried the transfer.
type TransferResult struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
	Replayed      bool   `json:"replayed"` // True when Reference matched an earlier transfer
}

// Gateway is implemented by anything that can settle a transfer.
type Gateway interface {
	Transfer(ctx context.Context, req TransferRequest) (TransferResult, error)
}

// currencyMatches treats an empty request currency as the wallet's own.
func currencyMatches(walletCurrency, requested string) bool {
	return requested == "" || strings.EqualFold(walletCurrency, requested)
}
