package api

import (
	"net/http" // HTTP status codes
	"strings"  // Username normalization
	"time"     // Cache TTL

	"group_fund/internal/domain" // Importing domain models
	"group_fund/internal/utils"  // Cache helpers
	"group_fund/internal/wallet" // Transfer requests and cache keys

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Decimal amounts
)

const walletCacheTTL = 60 * time.Second // Wallet and history responses

// TransferRequest represents a transfer request
type TransferRequest struct {
	ToUsername string          `json:"to_username" binding:"required"` // Target username
	Amount     decimal.Decimal `json:"amount"`                         // Transfer amount
	Memo       string          `json:"memo"`                           // Optional note
}

// TransferHandler allows a user to transfer funds to another user's wallet
func TransferHandler(ledger WalletLedger, users UserStore, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		fromUserID, ok := currentUserID(c)
		if !ok {
			return
		}
		var req TransferRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil || !req.Amount.IsPositive() {
			badRequest(c, "Invalid request")
			return
		}
		ctx := c.Request.Context()
		toUser, err := users.GetUserByUsername(ctx, strings.ToLower(req.ToUsername))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Target user not found", "code": domain.KindNotFound})
			return
		}
		res, err := ledger.Transfer(ctx, wallet.TransferRequest{
			FromUserID: fromUserID,
			ToUserID:   toUser.ID,
			Amount:     req.Amount,
			Memo:       req.Memo,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		wallet.Invalidate(ctx, cache, fromUserID)
		wallet.Invalidate(ctx, cache, toUser.ID)
		c.JSON(http.StatusOK, gin.H{"message": "Transfer successful", "transaction_id": res.TransactionID})
	}
}

// DepositRequest represents a deposit request
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"` // Deposit amount
}

// DepositHandler allows a user to deposit funds into their wallet
func DepositHandler(ledger WalletLedger, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		var req DepositRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil || !req.Amount.IsPositive() {
			badRequest(c, "Invalid amount")
			return
		}
		t, err := ledger.Deposit(c.Request.Context(), userID, req.Amount)
		if err != nil {
			writeError(c, err)
			return
		}
		wallet.Invalidate(c.Request.Context(), cache, userID)
		c.JSON(http.StatusOK, gin.H{"message": "Deposit successful", "transaction": t})
	}
}

// CreateWalletRequest optionally names the wallet currency
type CreateWalletRequest struct {
	Currency string `json:"currency"` // Defaults to ELOITY
}

// CreateWalletHandler creates a wallet for a user (one wallet per user)
func CreateWalletHandler(ledger WalletLedger, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		var req CreateWalletRequest
		_ = c.ShouldBindJSON(&req) // Body is optional
		w, err := ledger.CreateWallet(c.Request.Context(), userID, strings.ToUpper(strings.TrimSpace(req.Currency)))
		if err != nil {
			writeError(c, err)
			return
		}
		_ = cache.Delete(c.Request.Context(), wallet.BalanceKey(userID)) // Invalidate wallet cache
		c.JSON(http.StatusCreated, gin.H{"message": "Wallet created", "wallet": w})
	}
}

// GetWalletHandler returns wallet info for the authenticated user
func GetWalletHandler(ledger WalletLedger, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		var cached domain.Wallet
		if found, err := cache.Get(ctx, wallet.BalanceKey(userID), &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"wallet": cached, "cached": true})
			return
		}
		w, err := ledger.GetWallet(ctx, userID)
		if err != nil {
			writeError(c, err)
			return
		}
		_ = cache.Set(ctx, wallet.BalanceKey(userID), w, walletCacheTTL)
		c.JSON(http.StatusOK, gin.H{"wallet": w, "cached": false})
	}
}

// GetTransactionHistoryHandler returns a page of the user's wallet transactions
func GetTransactionHistoryHandler(ledger WalletLedger, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		page, pageSize := pagination(c)
		ctx := c.Request.Context()
		key := wallet.HistoryKey(userID, page, pageSize)

		var cached gin.H
		if found, err := cache.Get(ctx, key, &cached); err == nil && found {
			cached["cached"] = true
			c.JSON(http.StatusOK, cached)
			return
		}
		txs, total, err := ledger.History(ctx, userID, page, pageSize)
		if err != nil {
			writeError(c, err)
			return
		}
		resp := gin.H{
			"transactions": txs,                         // List of transactions
			"page":         page,                        // Current page
			"page_size":    pageSize,                    // Page size
			"total":        total,                       // Total transactions
			"total_pages":  totalPages(total, pageSize), // Total pages
			"cached":       false,                       // Not from cache
		}
		_ = cache.Set(ctx, key, resp, walletCacheTTL)
		c.JSON(http.StatusOK, resp)
	}
}
