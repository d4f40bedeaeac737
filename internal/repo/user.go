package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Radhikamangroliya/todo-timeline-api/internal/models"
)

// FindOrCreateUser upserts the user row for an external identity. Lookup
// is by (provider, subject) only. The unique index on that pair plus the
// retry below keeps concurrent first logins from creating two rows: if our
// insert loses the race, the winner's row is read back instead.
func (r *GormRepo) FindOrCreateUser(ctx context.Context, provider, subject, email, name, picture string) (*models.User, bool, error) {
	now := time.Now().UTC()

	var user models.User
	err := r.DB.WithContext(ctx).
		Where("oauth_provider = ? AND oauth_id = ?", provider, subject).
		First(&user).Error
	if err == nil {
		if uerr := r.touchLogin(ctx, &user, email, name, picture, now); uerr != nil {
			return nil, false, uerr
		}
		return &user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	user = models.User{
		OAuthProvider:   provider,
		OAuthID:         subject,
		Email:           email,
		DisplayName:     name,
		ProfileImageURL: picture,
		CreatedAt:       now,
		LastLoginAt:     now,
	}
	cerr := r.DB.WithContext(ctx).Create(&user).Error
	if cerr == nil {
		return &user, true, nil
	}

	// A concurrent login for the same identity may have inserted first.
	ferr := r.DB.WithContext(ctx).
		Where("oauth_provider = ? AND oauth_id = ?", provider, subject).
		First(&user).Error
	if ferr != nil {
		return nil, false, cerr
	}
	if uerr := r.touchLogin(ctx, &user, email, name, picture, now); uerr != nil {
		return nil, false, uerr
	}
	return &user, false, nil
}

func (r *GormRepo) touchLogin(ctx context.Context, user *models.User, email, name, picture string, now time.Time) error {
	updates := map[string]any{
		"last_login_at":     now,
		"email":             email,
		"display_name":      name,
		"profile_image_url": picture,
	}
	if err := r.DB.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return err
	}
	user.LastLoginAt = now
	user.Email = email
	user.DisplayName = name
	user.ProfileImageURL = picture
	return nil
}

func (r *GormRepo) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}
