package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"bus_tracker/internal/models"
)

type NotificationStore interface {
	NotificationsForUser(ctx context.Context, userID uint) ([]models.Notification, error)
}

type NotificationController struct {
	store NotificationStore
}

func NewNotificationController(store NotificationStore) *NotificationController {
	return &NotificationController{store: store}
}

// List returns the caller's notifications, newest first.
func (n *NotificationController) List(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	list, err := n.store.NotificationsForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "list notifications", err)
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	c.JSON(http.StatusOK, list)
}
