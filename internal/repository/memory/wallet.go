package memory

import (
	"context" // Context for blocking calls
	"strconv" // String conversion
	"sync"    // Mutex
	"time"    // Time handling

	"group_fund/internal/domain" // Importing domain models
	"group_fund/internal/wallet" // Wallet transfer gateway

	"github.com/shopspring/decimal" // Decimal amounts
)

// Wallet is an in-memory ledger with the same rules as wallet.LedgerGateway,
// including reference deduplication.
type Wallet struct {
	mu      sync.Mutex
	wallets map[uint]*domain.Wallet
	txs     []domain.Transaction
	refs    map[string]uint

	// FailNext makes the next n transfers fail with FailErr.
	FailNext int
	FailErr  error
}

func NewWallet() *Wallet {
	return &Wallet{wallets: map[uint]*domain.Wallet{}, refs: map[string]uint{}}
}

func (w *Wallet) CreateWallet(_ context.Context, userID uint, currency string) (*domain.Wallet, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.wallets[userID]; ok {
		return nil, wallet.ErrWalletExists
	}
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	wl := &domain.Wallet{ID: uint(len(w.wallets) + 1), UserID: userID, Balance: decimal.Zero, Currency: currency, UpdatedAt: time.Now()}
	w.wallets[userID] = wl
	out := *wl
	return &out, nil
}

func (w *Wallet) GetWallet(_ context.Context, userID uint) (*domain.Wallet, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	wl, ok := w.wallets[userID]
	if !ok {
		return nil, wallet.ErrWalletNotFound
	}
	out := *wl
	return &out, nil
}

func (w *Wallet) Deposit(_ context.Context, userID uint, amount decimal.Decimal) (*domain.Transaction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !amount.IsPositive() {
		return nil, wallet.ErrInvalidAmount
	}
	wl, ok := w.wallets[userID]
	if !ok {
		return nil, wallet.ErrWalletNotFound
	}
	wl.Balance = wl.Balance.Add(amount)
	t := domain.Transaction{
		ID:         uint(len(w.txs) + 1),
		ToWalletID: &wl.ID,
		Amount:     amount,
		Currency:   wl.Currency,
		Type:       domain.TxTypeDeposit,
		CreatedAt:  time.Now().UnixMilli(),
	}
	w.txs = append(w.txs, t)
	return &t, nil
}

func (w *Wallet) Transfer(_ context.Context, req wallet.TransferRequest) (wallet.TransferResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := req.Validate(); err != nil {
		return wallet.TransferResult{}, err
	}
	if req.Reference != "" {
		if id, ok := w.refs[req.Reference]; ok {
			return wallet.TransferResult{Success: true, TransactionID: strconv.FormatUint(uint64(id), 10), Replayed: true}, nil
		}
	}
	if w.FailNext > 0 {
		w.FailNext--
		return wallet.TransferResult{}, w.FailErr
	}
	from, ok := w.wallets[req.FromUserID]
	if !ok {
		return wallet.TransferResult{}, wallet.ErrWalletNotFound
	}
	to, ok := w.wallets[req.ToUserID]
	if !ok {
		return wallet.TransferResult{}, wallet.ErrWalletNotFound
	}
	if from.Balance.LessThan(req.Amount) {
		return wallet.TransferResult{}, wallet.ErrInsufficientFunds
	}
	from.Balance = from.Balance.Sub(req.Amount)
	to.Balance = to.Balance.Add(req.Amount)
	t := domain.Transaction{
		ID:           uint(len(w.txs) + 1),
		FromWalletID: &from.ID,
		ToWalletID:   &to.ID,
		Amount:       req.Amount,
		Currency:     from.Currency,
		Type:         domain.TxTypeTransfer,
		Memo:         req.Memo,
		CreatedAt:    time.Now().UnixMilli(),
	}
	if req.Reference != "" {
		ref := req.Reference
		t.Reference = &ref
		w.refs[ref] = t.ID
	}
	w.txs = append(w.txs, t)
	return wallet.TransferResult{Success: true, TransactionID: strconv.FormatUint(uint64(t.ID), 10)}, nil
}

func (w *Wallet) History(_ context.Context, userID uint, page, pageSize int) ([]domain.Transaction, int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	wl, ok := w.wallets[userID]
	if !ok {
		return nil, 0, wallet.ErrWalletNotFound
	}
	var mine []domain.Transaction
	for i := len(w.txs) - 1; i >= 0; i-- {
		t := w.txs[i]
		if (t.FromWalletID != nil && *t.FromWalletID == wl.ID) || (t.ToWalletID != nil && *t.ToWalletID == wl.ID) {
			mine = append(mine, t)
		}
	}
	total := int64(len(mine))
	start := (page - 1) * pageSize
	if start >= len(mine) {
		return []domain.Transaction{}, total, nil
	}
	end := min(start+pageSize, len(mine))
	return mine[start:end], total, nil
}

// Transfers returns the number of transfer transactions recorded.
func (w *Wallet) Transfers() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, t := range w.txs {
		if t.Type == domain.TxTypeTransfer {
			n++
		}
	}
	return n
}
