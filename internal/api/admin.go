package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Cache TTL

	"group_fund/internal/domain"  // Importing domain models
	"group_fund/internal/service" // Payout workflows
	"group_fund/internal/utils"   // Cache helpers

	"github.com/gin-gonic/gin" // Gin web framework
)

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	ID       uint          `json:"id"`       // User ID
	Username string        `json:"username"` // Username
	Role     string        `json:"role"`     // User role
	Wallet   domain.Wallet `json:"wallet"`   // Associated wallet
}

// userPage is the cached shape of a users listing
type userPage struct {
	Users      []UserAdminResponse `json:"users"`       // List of users
	Page       int                 `json:"page"`        // Current page
	PageSize   int                 `json:"page_size"`   // Page size
	Total      int64               `json:"total"`       // Total number of users
	TotalPages int                 `json:"total_pages"` // Total pages
	Cached     bool                `json:"cached"`      // Served from cache
}

// ListUsersHandler returns users with their wallet info
func ListUsersHandler(users UserStore, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page, pageSize := pagination(c)
		cacheKey := "admin:users:page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)

		var cached userPage
		if found, err := cache.Get(ctx, cacheKey, &cached); err == nil && found {
			cached.Cached = true
			c.JSON(http.StatusOK, cached)
			return
		}
		list, total, err := users.ListUsers(ctx, page, pageSize)
		if err != nil {
			writeError(c, err)
			return
		}
		resp := userPage{
			Users:      make([]UserAdminResponse, len(list)),
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages(total, pageSize),
		}
		for i, u := range list {
			resp.Users[i] = UserAdminResponse{ID: u.ID, Username: u.Username, Role: u.Role, Wallet: u.Wallet}
		}
		_ = cache.Set(ctx, cacheKey, resp, 60*time.Second) // Cache the response for 60 seconds
		c.JSON(http.StatusOK, resp)
	}
}

// CloseContributionHandler ends a campaign ahead of its end date
func CloseContributionHandler(contributions *service.ContributionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		closed, err := contributions.CloseCampaign(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"contribution": closed})
	}
}

// TriggerPayoutHandler computes the one payout of an ended campaign
func TriggerPayoutHandler(payouts *service.PayoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := payouts.TriggerPayout(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"payout": p})
	}
}

// CompletePayoutHandler records a settled payout
func CompletePayoutHandler(payouts *service.PayoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := payouts.CompleteSettlement(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"payout": p})
	}
}

// FailPayoutRequest carries the failure reason
type FailPayoutRequest struct {
	Reason string `json:"reason"` // Shown to the group
}

// FailPayoutHandler records a payout that could not be settled
func FailPayoutHandler(payouts *service.PayoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req FailPayoutRequest
		_ = c.ShouldBindJSON(&req) // Reason is optional
		p, err := payouts.FailSettlement(c.Request.Context(), c.Param("id"), req.Reason)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"payout": p})
	}
}

// ListProcessingPayoutsHandler lists payouts awaiting settlement
func ListProcessingPayoutsHandler(payouts *service.PayoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, pageSize := pagination(c)
		list, err := payouts.ListProcessing(c.Request.Context(), pageSize)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"payouts": list})
	}
}

// ListUnsettledHandler lists wallet pledges still missing a transaction
func ListUnsettledHandler(reconcile *service.ReconcileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, pageSize := pagination(c)
		list, err := reconcile.Unsettled(c.Request.Context(), pageSize)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"contributors": list})
	}
}
