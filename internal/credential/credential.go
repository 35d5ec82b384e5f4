// Package credential guards the access token used for the remote store.
//
// The Guard loads the stored credential, refreshes it when it is within the
// safety margin of its expiry and persists the result. It never retries a
// failed refresh; deciding what to do next is the caller's job.
package credential

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrlokans/lumina/internal/failure"
	"github.com/mrlokans/lumina/internal/metrics"
)

// DefaultRefreshMargin is how long before expiry a credential is refreshed.
const DefaultRefreshMargin = 60 * time.Second

// Credential is an access token plus what is needed to renew it.
type Credential struct {
	AccessToken  string
	RefreshToken string
	// ExpiresAt is nil when the token has no known expiry.
	ExpiresAt *time.Time
	AccountID string
}

// Store persists the single credential of this device.
type Store interface {
	// Load returns nil, nil when no credential is stored.
	Load() (*Credential, error)
	Save(cred Credential) error
	Clear() error
}

// Refresher exchanges a refresh token for a new credential. The returned
// RefreshToken may be empty when the provider does not rotate it.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*Credential, error)
}

// Status describes the stored credential without exposing secrets.
type Status struct {
	Connected  bool       `json:"connected"`
	AccountID  string     `json:"account_id,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CanRefresh bool       `json:"can_refresh"`
}

// Guard hands out valid access tokens.
type Guard struct {
	mu        sync.Mutex
	store     Store
	refresher Refresher
	margin    time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithRefreshMargin sets how long before expiry a refresh is triggered.
func WithRefreshMargin(d time.Duration) Option {
	return func(g *Guard) {
		if d >= 0 {
			g.margin = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		g.now = now
	}
}

// WithLogger sets the logger used for refresh events.
func WithLogger(logger zerolog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

// NewGuard creates a Guard. refresher may be nil, in which case an expiring
// credential is reported as CredentialExpired.
func NewGuard(store Store, refresher Refresher, opts ...Option) *Guard {
	g := &Guard{
		store:     store,
		refresher: refresher,
		margin:    DefaultRefreshMargin,
		now:       time.Now,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CurrentOrRefresh returns a token that is valid for at least the refresh
// margin, refreshing it at most once.
func (g *Guard) CurrentOrRefresh(ctx context.Context) (string, error) {
	const op = "credential.current"

	g.mu.Lock()
	defer g.mu.Unlock()

	cred, err := g.load(op)
	if err != nil {
		return "", err
	}

	if !g.expiringSoon(cred) {
		return cred.AccessToken, nil
	}
	if cred.RefreshToken == "" || g.refresher == nil {
		return "", failure.Newf(failure.KindCredentialExpired, op, "access token expired and cannot be refreshed")
	}

	refreshed, err := g.refreshLocked(ctx, op, cred)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// Token implements storage.TokenSource.
func (g *Guard) Token(ctx context.Context) (string, error) {
	return g.CurrentOrRefresh(ctx)
}

// ForceRefresh refreshes the credential regardless of its expiry.
func (g *Guard) ForceRefresh(ctx context.Context) error {
	const op = "credential.force_refresh"

	g.mu.Lock()
	defer g.mu.Unlock()

	cred, err := g.load(op)
	if err != nil {
		return err
	}
	if cred.RefreshToken == "" || g.refresher == nil {
		return failure.Newf(failure.KindCredentialExpired, op, "no refresh token available")
	}

	_, err = g.refreshLocked(ctx, op, cred)
	return err
}

// Clear removes the stored credential.
func (g *Guard) Clear() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	g.logger.Info().Msg("stored credential cleared")
	return nil
}

// Status reports whether a credential is stored and when it expires.
func (g *Guard) Status() (Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cred, err := g.store.Load()
	if err != nil {
		return Status{}, fmt.Errorf("failed to load credential: %w", err)
	}
	if cred == nil {
		return Status{}, nil
	}
	return Status{
		Connected:  true,
		AccountID:  cred.AccountID,
		ExpiresAt:  cred.ExpiresAt,
		CanRefresh: cred.RefreshToken != "" && g.refresher != nil,
	}, nil
}

func (g *Guard) load(op string) (*Credential, error) {
	cred, err := g.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	if cred == nil || cred.AccessToken == "" {
		return nil, failure.Newf(failure.KindNoCredential, op, "no stored credential")
	}
	return cred, nil
}

func (g *Guard) expiringSoon(cred *Credential) bool {
	if cred.ExpiresAt == nil {
		return false
	}
	return !g.now().Add(g.margin).Before(*cred.ExpiresAt)
}

// refreshLocked performs one refresh and persists the result (caller must hold the lock).
func (g *Guard) refreshLocked(ctx context.Context, op string, cred *Credential) (*Credential, error) {
	resp, err := g.refresher.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		metrics.CredentialRefreshes.WithLabelValues("failed").Inc()
		g.logger.Warn().Err(err).Msg("credential refresh failed")
		// transport failures stay retryable; anything else means the
		// refresh token is no longer accepted
		if failure.IsKind(err, failure.KindNetwork) {
			return nil, err
		}
		return nil, failure.Wrap(failure.KindAuthRejected, op, err)
	}

	next := Credential{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    resp.ExpiresAt,
		AccountID:    resp.AccountID,
	}
	if next.RefreshToken == "" {
		next.RefreshToken = cred.RefreshToken
	}
	if next.AccountID == "" {
		next.AccountID = cred.AccountID
	}

	if err := g.store.Save(next); err != nil {
		metrics.CredentialRefreshes.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to save refreshed credential: %w", err)
	}

	metrics.CredentialRefreshes.WithLabelValues("ok").Inc()
	g.logger.Info().Str("account", next.AccountID).Msg("credential refreshed")
	return &next, nil
}
