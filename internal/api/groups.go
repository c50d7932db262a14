package api

import (
	"context"  // Request scoped calls
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"group_fund/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// requireMember answers 403 unless userID belongs to groupID
func requireMember(c *gin.Context, groups GroupStore, groupID, userID uint) bool {
	ctx := c.Request.Context()
	if _, err := groups.GetGroup(ctx, groupID); err != nil {
		writeError(c, err)
		return false
	}
	ok, err := groups.IsMember(ctx, groupID, userID)
	if err != nil {
		writeError(c, err)
		return false
	}
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "Group membership required", "code": "forbidden"})
		return false
	}
	return true
}

// CreateGroupRequest names a new group
type CreateGroupRequest struct {
	Name string `json:"name" binding:"required"` // Group name
}

// CreateGroupHandler creates a group with the caller as first member
func CreateGroupHandler(groups GroupStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		var req CreateGroupRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
			badRequest(c, "Invalid request")
			return
		}
		g := domain.Group{Name: strings.TrimSpace(req.Name), CreatedBy: userID}
		if err := groups.CreateGroup(c.Request.Context(), &g); err != nil {
			writeError(c, err)
			return
		}
		logrus.WithFields(logrus.Fields{
			"group_id":   g.ID,
			"created_by": userID,
		}).Info("Group created")
		c.JSON(http.StatusCreated, gin.H{"group": g})
	}
}

// AddMemberRequest names the user to add
type AddMemberRequest struct {
	Username string `json:"username" binding:"required"` // Existing username
}

// AddMemberHandler lets a member add another user to the group
func AddMemberHandler(groups GroupStore, users UserStore, cache MemberCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		groupID, ok := uintParam(c, "id")
		if !ok {
			return
		}
		var req AddMemberRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		if !requireMember(c, groups, groupID, userID) {
			return
		}
		ctx := c.Request.Context()
		u, err := users.GetUserByUsername(ctx, strings.ToLower(req.Username))
		if err != nil {
			writeError(c, err)
			return
		}
		if err := groups.AddMember(ctx, groupID, u.ID); err != nil {
			writeError(c, err)
			return
		}
		invalidateMembers(ctx, cache, groupID)
		c.JSON(http.StatusCreated, gin.H{"message": "Member added", "user_id": u.ID})
	}
}

func invalidateMembers(ctx context.Context, cache MemberCache, groupID uint) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx, groupID); err != nil {
		logrus.WithFields(logrus.Fields{"group_id": groupID, "error": err.Error()}).Warn("Member cache invalidation failed")
	}
}

// ListMembersHandler returns the member ids of a group
func ListMembersHandler(groups GroupStore) gin.HandlerFunc {
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
		ids, err := groups.ListMembers(c.Request.Context(), groupID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"group_id": groupID, "members": ids})
	}
}
