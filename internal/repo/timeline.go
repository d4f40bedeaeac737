package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Radhikamangroliya/todo-timeline-api/internal/models"
)

// ListEntries returns the user's entries, newest event first.
func (r *GormRepo) ListEntries(ctx context.Context, userID uint, offset, limit int) ([]models.TimelineEntry, int64, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.TimelineEntry{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.TimelineEntry
	if err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("event_date DESC").
		Offset(offset).Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *GormRepo) GetEntry(ctx context.Context, id, userID uint) (*models.TimelineEntry, error) {
	var entry models.TimelineEntry
	err := r.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *GormRepo) CreateEntry(ctx context.Context, entry *models.TimelineEntry) error {
	return r.DB.WithContext(ctx).Create(entry).Error
}

func (r *GormRepo) SaveEntry(ctx context.Context, entry *models.TimelineEntry) error {
	return r.DB.WithContext(ctx).Save(entry).Error
}

func (r *GormRepo) DeleteEntry(ctx context.Context, id, userID uint) error {
	res := r.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.TimelineEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
