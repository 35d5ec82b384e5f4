// Package oauth2 runs the installed-application authorization flow against a
// cloud identity provider and converts its token replies into credentials.
package oauth2

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/mrlokans/lumina/internal/credential"
	"github.com/mrlokans/lumina/internal/entities"
)

// TokenResponse is a token endpoint reply. AccountID is set only by providers
// that return the account with the grant.
type TokenResponse struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int
	Scope        string
	AccountID    string
}

// ExpiresAt returns now plus ExpiresIn, or nil when the reply carries no
// lifetime.
func (t *TokenResponse) ExpiresAt(now time.Time) *time.Time {
	if t.ExpiresIn <= 0 {
		return nil
	}
	exp := now.Add(time.Duration(t.ExpiresIn) * time.Second)
	return &exp
}

// Credential converts the reply into a stored credential for accountID.
func (t *TokenResponse) Credential(now time.Time, accountID string) credential.Credential {
	return credential.Credential{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    t.ExpiresAt(now),
		AccountID:    accountID,
	}
}

// Provider is an identity provider supporting authorization code grants with
// PKCE.
type Provider interface {
	Name() entities.OAuthProvider

	// BuildAuthURL returns the consent URL together with the PKCE verifier
	// and the state value the callback must echo.
	BuildAuthURL(redirectURL string) (authURL, codeVerifier, state string, err error)

	ExchangeCode(ctx context.Context, code, codeVerifier, redirectURL string) (*TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error)

	// GetAccountInfo names the account the access token belongs to.
	GetAccountInfo(ctx context.Context, accessToken string) (accountID string, err error)
}

// NewVerifier returns a random PKCE code verifier.
func NewVerifier() (string, error) {
	return randomToken(32)
}

// Challenge derives the S256 code challenge for verifier.
func Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// NewState returns a random value binding a callback to its request.
func NewState() (string, error) {
	return randomToken(16)
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
