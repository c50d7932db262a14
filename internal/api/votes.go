package api

import (
	"net/http" // HTTP status codes

	"group_fund/internal/duration" // Duration requests
	"group_fund/internal/service"  // Vote workflows

	"github.com/gin-gonic/gin" // Gin web framework
)

// CreateVoteRequest opens a vote in a group
type CreateVoteRequest struct {
	Topic              string         `json:"topic" binding:"required"`   // Question being decided
	Description        string         `json:"description"`                // Free text
	Options            []string       `json:"options" binding:"required"` // At least two distinct options
	RequiredPercentage float64        `json:"required_percentage"`        // Defaults to 60
	Duration           *duration.Spec `json:"duration"`                   // hours, days or weeks
}

// CreateVoteHandler lets a member open a vote
func CreateVoteHandler(groups GroupStore, votes *service.VoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		groupID, ok := uintParam(c, "id")
		if !ok {
			return
		}
		var req CreateVoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		if !requireMember(c, groups, groupID, userID) {
			return
		}
		v, err := votes.CreateVote(c.Request.Context(), userID, service.CreateVoteInput{
			GroupID:            groupID,
			Topic:              req.Topic,
			Description:        req.Description,
			Options:            req.Options,
			RequiredPercentage: req.RequiredPercentage,
			Duration:           req.Duration,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"vote": v})
	}
}

// ListGroupVotesHandler lists a group's votes with response counts
func ListGroupVotesHandler(groups GroupStore, votes *service.VoteService) gin.HandlerFunc {
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
		list, err := votes.ListGroupVotes(c.Request.Context(), groupID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"votes": list})
	}
}

// GetVoteHandler resolves a vote for the caller, including their own choice
func GetVoteHandler(groups GroupStore, votes *service.VoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		d, err := votes.GetVote(c.Request.Context(), c.Param("id"), userID)
		if err != nil {
			writeError(c, err)
			return
		}
		if !requireMember(c, groups, d.GroupID, userID) {
			return
		}
		c.JSON(http.StatusOK, gin.H{"vote": d})
	}
}

// SubmitVoteRequest carries the caller's choice
type SubmitVoteRequest struct {
	Choice string `json:"choice" binding:"required"` // One of the vote options
}

// SubmitVoteHandler records or replaces the caller's choice
func SubmitVoteHandler(groups GroupStore, votes *service.VoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		var req SubmitVoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		ctx := c.Request.Context()
		d, err := votes.GetVote(ctx, c.Param("id"), 0)
		if err != nil {
			writeError(c, err)
			return
		}
		if !requireMember(c, groups, d.GroupID, userID) {
			return
		}
		r, err := votes.SubmitResponse(ctx, d.ID, userID, req.Choice)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"response": r})
	}
}
