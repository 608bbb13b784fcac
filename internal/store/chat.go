package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"bus_tracker/internal/apperr"
	"bus_tracker/internal/models"
)

// ChatHistoryLimit caps how many messages ChatHistory returns.
const ChatHistoryLimit = 100

// SaveChatExchange stores a user message and the bot's reply atomically.
func (s *Store) SaveChatExchange(ctx context.Context, userID uint, userMessage, botResponse string) error {
	now := time.Now().UTC()
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		logs := []models.ChatLog{
			{UserID: userID, Sender: models.ChatSenderUser, Message: userMessage, CreatedAt: now},
			{UserID: userID, Sender: models.ChatSenderBot, Message: botResponse, CreatedAt: now.Add(time.Millisecond)},
		}
		return tx.Create(&logs).Error
	})
	return apperr.Transient("save chat", err)
}

// ChatHistory returns the newest ChatHistoryLimit messages of a user,
// oldest first.
func (s *Store) ChatHistory(ctx context.Context, userID uint) ([]models.ChatLog, error) {
	var logs []models.ChatLog
	err := s.conn(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(ChatHistoryLimit).
		Find(&logs).Error
	if err != nil {
		return nil, apperr.Transient("chat history", err)
	}
	for i, j := 0, len(logs)-1; i < j; i, j = i+1, j-1 {
		logs[i], logs[j] = logs[j], logs[i]
	}
	return logs, nil
}

// ClearChatHistory deletes every message of a user and returns the count.
func (s *Store) ClearChatHistory(ctx context.Context, userID uint) (int64, error) {
	res := s.conn(ctx).Where("user_id = ?", userID).Delete(&models.ChatLog{})
	if res.Error != nil {
		return 0, apperr.Transient("clear chat history", res.Error)
	}
	return res.RowsAffected, nil
}
