package store

import (
	"context"

	"bus_tracker/internal/apperr"
	"bus_tracker/internal/models"
)

// NotificationsForUser returns one user's notifications, newest first.
func (s *Store) NotificationsForUser(ctx context.Context, userID uint) ([]models.Notification, error) {
	var list []models.Notification
	err := s.conn(ctx).
		Where("user_id = ?", userID).
		Order("sent_at DESC, id DESC").
		Find(&list).Error
	if err != nil {
		return nil, apperr.Transient("list notifications", err)
	}
	return list, nil
}

// NotificationsForUsers returns the notifications of the given users,
// newest first, in a single query.
func (s *Store) NotificationsForUsers(ctx context.Context, userIDs []uint) ([]models.Notification, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var list []models.Notification
	err := s.conn(ctx).
		Where("user_id IN ?", userIDs).
		Order("sent_at DESC, id DESC").
		Find(&list).Error
	if err != nil {
		return nil, apperr.Transient("list notifications", err)
	}
	return list, nil
}
