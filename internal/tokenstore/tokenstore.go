// Package tokenstore keeps the remote store credential in SQLite with its
// secrets sealed by crypto.Sealer. A TokenStore implements credential.Store
// for one provider.
package tokenstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/lumina/internal/credential"
	"github.com/mrlokans/lumina/internal/crypto"
	"github.com/mrlokans/lumina/internal/entities"
)

const (
	EnvEncryptionKey   = "TOKEN_ENCRYPTION_KEY"
	DefaultKeyFileName = ".lumina-token-key"
)

type Config struct {
	Provider entities.OAuthProvider // google when empty

	// EncryptionKey is a base64 32-byte key. When empty the environment is
	// consulted, then KeyFilePath, which is created on first use.
	EncryptionKey string
	KeyFilePath   string
}

type TokenStore struct {
	db       *gorm.DB
	sealer   *crypto.Sealer
	provider entities.OAuthProvider
	now      func() time.Time
}

// New creates a TokenStore on db. The oauth_tokens table must exist.
func New(db *gorm.DB, cfg Config, logger zerolog.Logger) (*TokenStore, error) {
	key, err := encryptionKey(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve encryption key: %w", err)
	}
	sealer, err := crypto.NewSealerFromBase64(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create sealer: %w", err)
	}

	if cfg.Provider == "" {
		cfg.Provider = entities.OAuthProviderGoogle
	}
	return &TokenStore{db: db, sealer: sealer, provider: cfg.Provider, now: time.Now}, nil
}

func encryptionKey(cfg Config, logger zerolog.Logger) (string, error) {
	for _, key := range []string{cfg.EncryptionKey, os.Getenv(EnvEncryptionKey)} {
		if key != "" {
			return key, nil
		}
	}
	return keyFromFile(GetKeyFilePath(cfg.KeyFilePath), logger)
}

// keyFromFile reads the key at path, generating it with owner-only
// permissions when the file does not exist.
func keyFromFile(path string, logger zerolog.Logger) (string, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		return string(data), nil
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("failed to read key file %s: %w", path, err)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(key), 0o600); err != nil {
		return "", fmt.Errorf("failed to write key file %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("generated token encryption key")
	return key, nil
}

// GetKeyFilePath returns customPath, or the key file in the home directory.
func GetKeyFilePath(customPath string) string {
	if customPath != "" {
		return customPath
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, DefaultKeyFileName)
	}
	return DefaultKeyFileName
}

// secret pairs a plaintext field with its column. The label binds the
// ciphertext to provider and field.
type secret struct {
	label  string
	plain  *string
	sealed *string
}

func (s *TokenStore) secrets(cred *credential.Credential, row *entities.OAuthToken) []secret {
	return []secret{
		{string(s.provider) + "/access", &cred.AccessToken, &row.AccessToken},
		{string(s.provider) + "/refresh", &cred.RefreshToken, &row.RefreshToken},
	}
}

// Load returns the stored credential, or nil when none is stored.
func (s *TokenStore) Load() (*credential.Credential, error) {
	var row entities.OAuthToken
	err := s.db.Take(&row, "provider = ?", s.provider).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	cred := &credential.Credential{ExpiresAt: row.ExpiresAt, AccountID: row.AccountID}
	for _, f := range s.secrets(cred, &row) {
		if *f.plain, err = s.sealer.Open(*f.sealed, f.label); err != nil {
			return nil, fmt.Errorf("failed to decrypt %s: %w", f.label, err)
		}
	}
	return cred, nil
}

// Save replaces the stored credential.
func (s *TokenStore) Save(cred credential.Credential) error {
	now := s.now()
	row := entities.OAuthToken{
		Provider:        s.provider,
		AccountID:       cred.AccountID,
		ExpiresAt:       cred.ExpiresAt,
		LastRefreshedAt: &now,
	}
	var err error
	for _, f := range s.secrets(&cred, &row) {
		if *f.sealed, err = s.sealer.Seal(*f.plain, f.label); err != nil {
			return fmt.Errorf("failed to encrypt %s: %w", f.label, err)
		}
	}

	err = s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"account_id", "access_token", "refresh_token", "expires_at", "last_refreshed_at", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Clear removes the stored credential. Clearing an empty store is not an error.
func (s *TokenStore) Clear() error {
	if err := s.db.Delete(&entities.OAuthToken{}, "provider = ?", s.provider).Error; err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
