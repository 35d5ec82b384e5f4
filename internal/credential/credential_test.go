package credential

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/lumina/internal/failure"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeRefresher struct {
	calls  int
	gotRT  string
	result *Credential
	err    error
}

func (f *fakeRefresher) Refresh(_ context.Context, refreshToken string) (*Credential, error) {
	f.calls++
	f.gotRT = refreshToken
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func newGuard(store Store, refresher Refresher) *Guard {
	return NewGuard(store, refresher, WithClock(func() time.Time { return now }))
}

func TestGuard_NoCredential(t *testing.T) {
	g := newGuard(NewMemoryStore(nil), &fakeRefresher{})

	_, err := g.CurrentOrRefresh(context.Background())
	assert.Equal(t, failure.KindNoCredential, failure.KindOf(err))

	err = g.ForceRefresh(context.Background())
	assert.Equal(t, failure.KindNoCredential, failure.KindOf(err))
}

func TestGuard_NoExpiryReturnsTokenAsIs(t *testing.T) {
	refresher := &fakeRefresher{}
	g := newGuard(NewMemoryStore(&Credential{AccessToken: "tok"}), refresher)

	token, err := g.CurrentOrRefresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Zero(t, refresher.calls)
}

func TestGuard_OutsideMarginDoesNotRefresh(t *testing.T) {
	refresher := &fakeRefresher{}
	g := newGuard(NewMemoryStore(&Credential{AccessToken: "tok", RefreshToken: "rt", ExpiresAt: at(61 * time.Second)}), refresher)

	token, err := g.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Zero(t, refresher.calls)
}

func TestGuard_WithinMarginRefreshesOnceAndCarriesRefreshToken(t *testing.T) {
	store := NewMemoryStore(&Credential{AccessToken: "old", RefreshToken: "rt", ExpiresAt: at(30 * time.Second), AccountID: "me@example.com"})
	refresher := &fakeRefresher{result: &Credential{AccessToken: "new", ExpiresAt: at(time.Hour)}}
	g := newGuard(store, refresher)

	token, err := g.CurrentOrRefresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new", token)
	assert.Equal(t, 1, refresher.calls)
	assert.Equal(t, "rt", refresher.gotRT)

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "new", saved.AccessToken)
	assert.Equal(t, "rt", saved.RefreshToken)
	assert.Equal(t, "me@example.com", saved.AccountID)

	token, err = g.CurrentOrRefresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new", token)
	assert.Equal(t, 1, refresher.calls)
}

func TestGuard_RotatedRefreshTokenIsStored(t *testing.T) {
	store := NewMemoryStore(&Credential{AccessToken: "old", RefreshToken: "rt1", ExpiresAt: at(-time.Minute)})
	g := newGuard(store, &fakeRefresher{result: &Credential{AccessToken: "new", RefreshToken: "rt2"}})

	_, err := g.CurrentOrRefresh(context.Background())
	require.NoError(t, err)

	saved, _ := store.Load()
	assert.Equal(t, "rt2", saved.RefreshToken)
}

func TestGuard_ExpiredWithoutRefreshToken(t *testing.T) {
	g := newGuard(NewMemoryStore(&Credential{AccessToken: "old", ExpiresAt: at(10 * time.Second)}), &fakeRefresher{})

	_, err := g.CurrentOrRefresh(context.Background())
	assert.Equal(t, failure.KindCredentialExpired, failure.KindOf(err))

	err = g.ForceRefresh(context.Background())
	assert.Equal(t, failure.KindCredentialExpired, failure.KindOf(err))
}

func TestGuard_RefreshFailurePropagatesWithoutRetry(t *testing.T) {
	t.Run("kind from the refresher is kept", func(t *testing.T) {
		refresher := &fakeRefresher{err: failure.New(failure.KindNetwork, "google.refresh", errors.New("offline"))}
		store := NewMemoryStore(&Credential{AccessToken: "old", RefreshToken: "rt", ExpiresAt: at(0)})
		g := newGuard(store, refresher)

		_, err := g.CurrentOrRefresh(context.Background())
		assert.Equal(t, failure.KindNetwork, failure.KindOf(err))
		assert.Equal(t, 1, refresher.calls)

		saved, _ := store.Load()
		assert.Equal(t, "old", saved.AccessToken)
	})

	t.Run("remote errors become auth rejected", func(t *testing.T) {
		refresher := &fakeRefresher{err: failure.Remote("google.refresh", 400, "invalid_grant")}
		g := newGuard(NewMemoryStore(&Credential{AccessToken: "old", RefreshToken: "rt", ExpiresAt: at(0)}), refresher)

		_, err := g.CurrentOrRefresh(context.Background())
		assert.Equal(t, failure.KindAuthRejected, failure.KindOf(err))
	})

	t.Run("unclassified errors become auth rejected", func(t *testing.T) {
		refresher := &fakeRefresher{err: errors.New("invalid_grant")}
		g := newGuard(NewMemoryStore(&Credential{AccessToken: "old", RefreshToken: "rt"}), refresher)

		err := g.ForceRefresh(context.Background())
		assert.Equal(t, failure.KindAuthRejected, failure.KindOf(err))
		assert.Equal(t, 1, refresher.calls)
	})
}

func TestGuard_ForceRefreshIgnoresExpiry(t *testing.T) {
	store := NewMemoryStore(&Credential{AccessToken: "old", RefreshToken: "rt"})
	refresher := &fakeRefresher{result: &Credential{AccessToken: "forced"}}
	g := newGuard(store, refresher)

	require.NoError(t, g.ForceRefresh(context.Background()))

	token, err := g.CurrentOrRefresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "forced", token)
}

func TestGuard_ClearAndStatus(t *testing.T) {
	store := NewMemoryStore(&Credential{AccessToken: "tok", RefreshToken: "rt", AccountID: "me", ExpiresAt: at(time.Hour)})
	g := newGuard(store, &fakeRefresher{})

	status, err := g.Status()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.True(t, status.CanRefresh)
	assert.Equal(t, "me", status.AccountID)

	require.NoError(t, g.Clear())

	status, err = g.Status()
	require.NoError(t, err)
	assert.False(t, status.Connected)

	_, err = g.CurrentOrRefresh(context.Background())
	assert.Equal(t, failure.KindNoCredential, failure.KindOf(err))
}

func TestGuard_CustomMargin(t *testing.T) {
	refresher := &fakeRefresher{result: &Credential{AccessToken: "new"}}
	g := NewGuard(
		NewMemoryStore(&Credential{AccessToken: "old", RefreshToken: "rt", ExpiresAt: at(4 * time.Minute)}),
		refresher,
		WithClock(func() time.Time { return now }),
		WithRefreshMargin(5*time.Minute),
	)

	token, err := g.CurrentOrRefresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new", token)
}
