package wallet

import (
	"context" // Context for blocking calls
	"errors"  // Sentinel errors
	"strconv" // String conversion
	"time"    // Time handling

	"group_fund/internal/domain" // Importing domain models

	"github.com/shopspring/decimal" // Decimal amounts
	"github.com/sirupsen/logrus"    // Structured logging
	"gorm.io/gorm"                  // GORM ORM library
)

// LedgerGateway keeps balances in the wallets table and records every
// movement in the transactions table.
type LedgerGateway struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewLedgerGateway(db *gorm.DB, log logrus.FieldLogger) *LedgerGateway {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LedgerGateway{db: db, log: log}
}

// CreateWallet creates a zero-balance wallet (one wallet per user).
func (g *LedgerGateway) CreateWallet(ctx context.Context, userID uint, currency string) (*domain.Wallet, error) {
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	var existing domain.Wallet
	err := g.db.WithContext(ctx).Where("user_id = ?", userID).First(&existing).Error
	if err == nil {
		return nil, ErrWalletExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	w := domain.Wallet{UserID: userID, Balance: decimal.Zero, Currency: currency}
	if err := g.db.WithContext(ctx).Create(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrWalletExists
		}
		return nil, err
	}
	g.log.WithFields(logrus.Fields{
		"user_id":   userID,
		"wallet_id": w.ID,
		"type":      "create_wallet",
	}).Info("Wallet created")
	return &w, nil
}

// GetWallet returns the wallet of userID.
func (g *LedgerGateway) GetWallet(ctx context.Context, userID uint) (*domain.Wallet, error) {
	var w domain.Wallet
	if err := g.db.WithContext(ctx).Where("user_id = ?", userID).First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &w, nil
}

// Deposit credits amount to the wallet of userID.
func (g *LedgerGateway) Deposit(ctx context.Context, userID uint, amount decimal.Decimal) (*domain.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	var t domain.Transaction
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var w domain.Wallet
		if err := tx.Where("user_id = ?", userID).First(&w).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWalletNotFound
			}
			return err
		}
		// Increment wallet balance
		if err := tx.Model(&w).Updates(map[string]any{
			"balance":    gorm.Expr("balance + ?", amount),
			"updated_at": time.Now(),
		}).Error; err != nil {
			return err
		}
		t = domain.Transaction{
			ToWalletID: &w.ID,
			Amount:     amount,
			Currency:   w.Currency,
			Type:       domain.TxTypeDeposit,
		}
		return tx.Create(&t).Error
	})
	if err != nil {
		g.log.WithFields(logrus.Fields{
			"user_id": userID,
			"amount":  amount.String(),
			"error":   err.Error(),
		}).Error("Deposit failed")
		return nil, err
	}
	g.log.WithFields(logrus.Fields{
		"user_id": userID,
		"amount":  amount.String(),
		"type":    domain.TxTypeDeposit,
	}).Info("Deposit transaction")
	return &t, nil
}

// Transfer moves funds atomically. Balance is checked by the conditional
// debit itself, so two concurrent transfers cannot overdraw a wallet.
func (g *LedgerGateway) Transfer(ctx context.Context, req TransferRequest) (TransferResult, error) {
	if err := req.Validate(); err != nil {
		return TransferResult{}, err
	}
	if req.Reference != "" {
		if prior, ok, err := g.findByReference(ctx, req.Reference); err != nil {
			return TransferResult{}, err
		} else if ok {
			return TransferResult{Success: true, TransactionID: txID(prior), Replayed: true}, nil
		}
	}

	var t domain.Transaction
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var from, to domain.Wallet
		if err := tx.Where("user_id = ?", req.FromUserID).First(&from).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWalletNotFound
			}
			return err
		}
		if err := tx.Where("user_id = ?", req.ToUserID).First(&to).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWalletNotFound
			}
			return err
		}
		if !currencyMatches(from.Currency, req.Currency) || !currencyMatches(to.Currency, req.Currency) {
			return ErrCurrencyMismatch
		}
		now := time.Now()
		// Deduct from sender only if the balance covers it
		debit := tx.Model(&domain.Wallet{}).
			Where("id = ? AND balance >= ?", from.ID, req.Amount).
			Updates(map[string]any{"balance": gorm.Expr("balance - ?", req.Amount), "updated_at": now})
		if debit.Error != nil {
			return debit.Error
		}
		if debit.RowsAffected == 0 {
			return ErrInsufficientFunds
		}
		// Add to recipient
		if err := tx.Model(&to).Updates(map[string]any{
			"balance":    gorm.Expr("balance + ?", req.Amount),
			"updated_at": now,
		}).Error; err != nil {
			return err
		}
		t = domain.Transaction{
			FromWalletID: &from.ID,
			ToWalletID:   &to.ID,
			Amount:       req.Amount,
			Currency:     from.Currency,
			Type:         domain.TxTypeTransfer,
			Memo:         req.Memo,
		}
		if req.Reference != "" {
			ref := req.Reference
			t.Reference = &ref
		}
		return tx.Create(&t).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) && req.Reference != "" {
		// Lost a race with an identical request; its transaction stands.
		if prior, ok, findErr := g.findByReference(ctx, req.Reference); findErr == nil && ok {
			return TransferResult{Success: true, TransactionID: txID(prior), Replayed: true}, nil
		}
	}
	if err != nil {
		g.log.WithFields(logrus.Fields{
			"from_user_id": req.FromUserID,
			"to_user_id":   req.ToUserID,
			"amount":       req.Amount.String(),
			"reference":    req.Reference,
			"error":        err.Error(),
		}).Error("Transfer failed")
		return TransferResult{}, err
	}
	g.log.WithFields(logrus.Fields{
		"from_user_id":   req.FromUserID,
		"to_user_id":     req.ToUserID,
		"amount":         req.Amount.String(),
		"transaction_id": t.ID,
		"type":           domain.TxTypeTransfer,
	}).Info("Transfer transaction")
	return TransferResult{Success: true, TransactionID: txID(t)}, nil
}

// History returns a page of transactions touching the wallet of userID.
func (g *LedgerGateway) History(ctx context.Context, userID uint, page, pageSize int) ([]domain.Transaction, int64, error) {
	w, err := g.GetWallet(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	q := g.db.WithContext(ctx).Model(&domain.Transaction{}).
		Where("from_wallet_id = ? OR to_wallet_id = ?", w.ID, w.ID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var txs []domain.Transaction
	if err := q.Order("created_at desc").Offset((page - 1) * pageSize).Limit(pageSize).Find(&txs).Error; err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

func (g *LedgerGateway) findByReference(ctx context.Context, ref string) (domain.Transaction, bool, error) {
	var t domain.Transaction
	err := g.db.WithContext(ctx).Where("reference = ?", ref).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return t, false, nil
	}
	if err != nil {
		return t, false, err
	}
	return t, true, nil
}

func txID(t domain.Transaction) string {
	return strconv.FormatUint(uint64(t.ID), 10)
}
