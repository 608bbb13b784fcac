package store

import (
	"context"

	"bus_tracker/internal/models"
)

// FindUserByMobile looks up a commuter by mobile number.
func (s *Store) FindUserByMobile(ctx context.Context, mobile string) (models.User, error) {
	var user models.User
	err := s.conn(ctx).Where("mobile_no = ?", mobile).First(&user).Error
	return user, first(err, "find user", "user", mobile)
}

// FindUser looks up a commuter by id.
func (s *Store) FindUser(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	err := s.conn(ctx).First(&user, id).Error
	return user, first(err, "find user", "user", id)
}
