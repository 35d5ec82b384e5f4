package entities

import "time"

type OAuthProvider string

const OAuthProviderGoogle OAuthProvider = "google"

// OAuthToken is the sealed credential of one provider; there is at most one
// row per provider. AccessToken and RefreshToken hold ciphertext and never
// leave the token store in this form.
type OAuthToken struct {
	Provider     OAuthProvider `gorm:"primaryKey;size:50"`
	AccountID    string        `gorm:"size:255"`
	AccessToken  string        `gorm:"type:text;not null"`
	RefreshToken string        `gorm:"type:text"`

	// ExpiresAt is nil when the provider reported no lifetime.
	ExpiresAt       *time.Time
	LastRefreshedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (OAuthToken) TableName() string { return "oauth_tokens" }
