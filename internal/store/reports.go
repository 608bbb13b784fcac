package store

import (
	"context"

	"bus_tracker/internal/apperr"
	"bus_tracker/internal/models"
)

// CreateReport stores an incident report and fills in its id.
func (s *Store) CreateReport(ctx context.Context, r *models.Report) error {
	if err := s.conn(ctx).Create(r).Error; err != nil {
		return apperr.Transient("create report", err)
	}
	return nil
}

// FindReport returns a report owned by userID. Reports of other users are
// reported as not found.
func (s *Store) FindReport(ctx context.Context, userID, id uint) (models.Report, error) {
	var r models.Report
	err := s.conn(ctx).Where("id = ? AND user_id = ?", id, userID).First(&r).Error
	return r, first(err, "find report", "report", id)
}
