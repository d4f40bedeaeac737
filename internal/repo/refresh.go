package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Radhikamangroliya/todo-timeline-api/internal/models"
	"github.com/Radhikamangroliya/todo-timeline-api/pkg/tokens"
)

// AddRefreshToken stores the hash of a freshly minted refresh token.
func (r *GormRepo) AddRefreshToken(ctx context.Context, rawToken string, userID uint, expiresAt time.Time) error {
	row := models.RefreshToken{
		TokenHash: tokens.Sha256Hex(rawToken),
		UserID:    userID,
		ExpiresAt: expiresAt.Unix(),
		CreatedAt: time.Now().UTC(),
	}
	return r.DB.WithContext(ctx).Create(&row).Error
}

// RotateRefreshToken atomically revokes the presented token and records
// its replacement. Returns the owning user id. The old token must exist,
// be unexpired and unrevoked; anything else is ErrRefreshInvalid.
func (r *GormRepo) RotateRefreshToken(ctx context.Context, oldRaw, newRaw string, newExpiresAt time.Time) (uint, error) {
	var userID uint
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.RefreshToken
		if err := tx.Where("token_hash = ?", tokens.Sha256Hex(oldRaw)).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRefreshInvalid
			}
			return err
		}
		if row.Revoked || row.ExpiresAt < time.Now().Unix() {
			return ErrRefreshInvalid
		}

		if err := tx.Model(&models.RefreshToken{}).
			Where("id = ?", row.ID).
			Update("revoked", true).Error; err != nil {
			return err
		}

		replacement := models.RefreshToken{
			TokenHash: tokens.Sha256Hex(newRaw),
			UserID:    row.UserID,
			ExpiresAt: newExpiresAt.Unix(),
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.Create(&replacement).Error; err != nil {
			return err
		}

		userID = row.UserID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// RevokeRefreshToken marks the presented token revoked. Revoking an
// unknown token is not an error; logout must be idempotent.
func (r *GormRepo) RevokeRefreshToken(ctx context.Context, rawToken string) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", tokens.Sha256Hex(rawToken)).
		Update("revoked", true).Error
}
