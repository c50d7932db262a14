package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"group_fund/internal/domain" // Error kinds
	"group_fund/internal/wallet" // Ledger errors

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// statusFor maps an error kind to its HTTP status
var statusFor = map[domain.Kind]int{
	domain.KindValidation:    http.StatusBadRequest,
	domain.KindNotFound:      http.StatusNotFound,
	domain.KindInvalidState:  http.StatusConflict,
	domain.KindAlreadyExists: http.StatusConflict,
	domain.KindDependency:    http.StatusBadGateway,
}

// walletStatus maps ledger errors raised by the wallet handlers
func walletStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, wallet.ErrWalletNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, wallet.ErrWalletExists),
		errors.Is(err, wallet.ErrInsufficientFunds),
		errors.Is(err, wallet.ErrSelfTransfer),
		errors.Is(err, wallet.ErrInvalidAmount),
		errors.Is(err, wallet.ErrCurrencyMismatch):
		return http.StatusBadRequest, true
	}
	return 0, false
}

// writeError answers with {"error", "code"} naming the violated precondition
func writeError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	if status, ok := statusFor[kind]; ok {
		c.JSON(status, gin.H{"error": domain.Message(err), "code": kind})
		return
	}
	if status, ok := walletStatus(err); ok {
		c.JSON(status, gin.H{"error": err.Error(), "code": "wallet"})
		return
	}
	logrus.WithFields(logrus.Fields{
		"path":  c.FullPath(),
		"error": err.Error(),
	}).Error("Unhandled error") // Log unexpected failure
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "code": "internal"})
}

// badRequest answers a malformed request body or parameter
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": domain.KindValidation})
}

// currentUserID returns the authenticated user set by JWTAuthMiddleware
func currentUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("userID") // Get userID from context
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	id, ok := v.(uint)
	if !ok || id == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	return id, true
}

// uintParam parses a numeric path parameter
func uintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(v), true
}

// pagination reads page and page_size with the same limits everywhere
func pagination(c *gin.Context) (page, pageSize int) {
	page = 1      // Default page number
	pageSize = 20 // Default page size
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v // Set page if valid
		}
	}
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v // Set page size within limits
		}
	}
	return page, pageSize
}

// totalPages is the number of pages needed for total items
func totalPages(total int64, pageSize int) int {
	return (int(total) + pageSize - 1) / pageSize
}
