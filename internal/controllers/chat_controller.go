package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"bus_tracker/internal/models"
)

type ChatStore interface {
	SaveChatExchange(ctx context.Context, userID uint, userMessage, botResponse string) error
	ChatHistory(ctx context.Context, userID uint) ([]models.ChatLog, error)
	ClearChatHistory(ctx context.Context, userID uint) (int64, error)
}

// ChatController persists the in-app assistant conversation per user.
type ChatController struct {
	store ChatStore
}

func NewChatController(store ChatStore) *ChatController {
	return &ChatController{store: store}
}

func (ch *ChatController) Save(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var body struct {
		UserMessage string `json:"user_message" binding:"required"`
		BotResponse string `json:"bot_response" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Missing required fields: user_message, bot_response",
		})
		return
	}

	if err := ch.store.SaveChatExchange(c.Request.Context(), userID, body.UserMessage, body.BotResponse); err != nil {
		respondError(c, "save chat", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Chat messages saved successfully"})
}

func (ch *ChatController) History(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	logs, err := ch.store.ChatHistory(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "chat history", err)
		return
	}
	if logs == nil {
		logs = []models.ChatLog{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": logs, "count": len(logs)})
}

func (ch *ChatController) Clear(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	n, err := ch.store.ClearChatHistory(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "clear chat", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Chat history cleared successfully", "deleted": n})
}
