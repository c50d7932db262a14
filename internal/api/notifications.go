package api

import (
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework
)

// ListNotificationsHandler returns the caller's notifications, newest first
func ListNotificationsHandler(store NotificationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		unread := c.Query("unread") == "true"
		list, err := store.ListNotifications(c.Request.Context(), userID, unread)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"notifications": list})
	}
}

// MarkNotificationReadHandler acknowledges one notification
func MarkNotificationReadHandler(store NotificationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		id, ok := uintParam(c, "id")
		if !ok {
			return
		}
		if err := store.MarkNotificationRead(c.Request.Context(), userID, id); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
	}
}
