package models

import "time"

// User is one authenticated person. Identity is keyed by the
// (oauth_provider, oauth_id) pair, never by email: emails change between
// logins and are not unique across providers.
type User struct {
	ID              uint      `gorm:"primaryKey;autoIncrement"                                      json:"id"`
	OAuthProvider   string    `gorm:"column:oauth_provider;not null;uniqueIndex:idx_users_identity" json:"provider"`
	OAuthID         string    `gorm:"column:oauth_id;not null;uniqueIndex:idx_users_identity"       json:"-"`
	Email           string    `json:"email"`
	DisplayName     string    `json:"name"`
	ProfileImageURL string    `json:"picture"`
	CreatedAt       time.Time `json:"created_at"`
	LastLoginAt     time.Time `json:"last_login_at"`
}

// RefreshToken stores only the SHA-256 of the opaque token handed to the
// client. Rows are revoked on logout and on rotation.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"           json:"id"`
	TokenHash string    `gorm:"uniqueIndex;not null" json:"-"`
	UserID    uint      `gorm:"index;not null"       json:"user_id"`
	ExpiresAt int64     `gorm:"not null"             json:"expires_at"`
	Revoked   bool      `gorm:"default:false"        json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

type TimelineEntry struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint      `gorm:"index;not null"           json:"user_id"`
	Title       string    `gorm:"not null"                 json:"title"`
	Description string    `json:"description"`
	EventDate   time.Time `gorm:"index"                    json:"event_date"`
	EntryType   string    `json:"entry_type"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"image_url"`
	ExternalURL string    `json:"external_url"`
	SourceAPI   string    `gorm:"column:source_api"        json:"source_api"`
	ExternalID  string    `json:"external_id"`
	Metadata    string    `json:"metadata"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
