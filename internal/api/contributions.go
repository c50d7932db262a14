package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes

	"group_fund/internal/domain"   // Importing domain models
	"group_fund/internal/duration" // Duration requests
	"group_fund/internal/service"  // Campaign workflows

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Decimal amounts
)

// CreateContributionRequest opens a campaign in a group
type CreateContributionRequest struct {
	Title        string                  `json:"title" binding:"required"` // Campaign title
	Description  string                  `json:"description"`              // Free text
	Type         domain.ContributionType `json:"type" binding:"required"`  // fixed_goal or open_ended
	TargetAmount *decimal.Decimal        `json:"target_amount"`            // Required for fixed_goal
	Currency     string                  `json:"currency"`                 // Defaults to ELOITY
	PlatformFee  *decimal.Decimal        `json:"platform_fee"`             // Percent, defaults to 2.5
	Duration     *duration.Spec          `json:"duration"`                 // Omitted means no end date
}

// CreateContributionHandler lets a member open a campaign
func CreateContributionHandler(groups GroupStore, contributions *service.ContributionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		groupID, ok := uintParam(c, "id")
		if !ok {
			return
		}
		var req CreateContributionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		if !requireMember(c, groups, groupID, userID) {
			return
		}
		created, err := contributions.CreateCampaign(c.Request.Context(), userID, service.CreateContributionInput{
			GroupID:      groupID,
			Title:        req.Title,
			Description:  req.Description,
			Type:         req.Type,
			TargetAmount: req.TargetAmount,
			Currency:     req.Currency,
			PlatformFee:  req.PlatformFee,
			Duration:     req.Duration,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"contribution": created})
	}
}

// ListGroupContributionsHandler lists a group's campaigns, newest first
func ListGroupContributionsHandler(groups GroupStore, contributions *service.ContributionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		groupID, ok := uintParam(c, "id")
		if !ok {
			return
		}
		if !requireMember(c, groups, groupID, userID) {
			return
		}
		list, err := contributions.ListGroupCampaigns(c.Request.Context(), groupID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"contributions": list})
	}
}

// GetContributionHandler returns a campaign with its ledger and live total
func GetContributionHandler(groups GroupStore, contributions *service.ContributionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		details, err := contributions.GetCampaign(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		if !requireMember(c, groups, details.GroupID, userID) {
			return
		}
		c.JSON(http.StatusOK, gin.H{"contribution": details})
	}
}

// ContributeRequest is one pledge
type ContributeRequest struct {
	Amount        decimal.Decimal `json:"amount"`         // Must be positive
	Currency      string          `json:"currency"`       // Defaults to the campaign currency
	PaymentMethod string          `json:"payment_method"` // wallet (default) or external
}

// ContributeHandler records a pledge. A pledge whose wallet transfer did not
// settle is still recorded and answered with 202 and settled=false.
func ContributeHandler(groups GroupStore, contributions *service.ContributionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		var req ContributeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		ctx := c.Request.Context()
		details, err := contributions.GetCampaign(ctx, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		if !requireMember(c, groups, details.GroupID, userID) {
			return
		}
		entry, err := contributions.Contribute(ctx, service.ContributeInput{
			ContributionID: details.ID,
			UserID:         userID,
			Amount:         req.Amount,
			Currency:       req.Currency,
			PaymentMethod:  req.PaymentMethod,
		})
		switch {
		case err == nil:
			c.JSON(http.StatusCreated, gin.H{"contributor": entry, "settled": entry.WalletTxID != nil || entry.PaymentMethod == domain.PaymentExternal})
		case entry != nil && errors.Is(err, service.ErrUnsettled):
			c.JSON(http.StatusAccepted, gin.H{"contributor": entry, "settled": false, "error": domain.Message(err), "code": domain.KindDependency})
		default:
			writeError(c, err)
		}
	}
}

// MyContributionsHandler returns the caller's entries toward a campaign
func MyContributionsHandler(contributions *service.ContributionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		entries, err := contributions.UserContributions(c.Request.Context(), c.Param("id"), userID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"contributors": entries, "total": domain.SumContributors(entries)})
	}
}

// GetContributionPayoutHandler returns the payout of a campaign
func GetContributionPayoutHandler(groups GroupStore, contributions *service.ContributionService, payouts *service.PayoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		details, err := contributions.GetCampaign(ctx, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		if !requireMember(c, groups, details.GroupID, userID) {
			return
		}
		p, err := payouts.GetPayout(ctx, details.ID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"payout": p})
	}
}
