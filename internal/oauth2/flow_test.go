package oauth2

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/lumina/internal/credential"
	"github.com/mrlokans/lumina/internal/entities"
)

type stubProvider struct {
	token       *TokenResponse
	exchangeErr error
	account     string
	accountErr  error
	gotCode     string
	gotVerifier string
}

func (s *stubProvider) Name() entities.OAuthProvider { return entities.OAuthProviderGoogle }

func (s *stubProvider) BuildAuthURL(redirectURL string) (string, string, string, error) {
	return "https://auth.example/?redirect_uri=" + redirectURL, "verifier", "state", nil
}

func (s *stubProvider) ExchangeCode(_ context.Context, code, codeVerifier, _ string) (*TokenResponse, error) {
	s.gotCode, s.gotVerifier = code, codeVerifier
	if s.exchangeErr != nil {
		return nil, s.exchangeErr
	}
	return s.token, nil
}

func (s *stubProvider) RefreshToken(context.Context, string) (*TokenResponse, error) {
	return nil, errors.New("not used")
}

func (s *stubProvider) GetAccountInfo(context.Context, string) (string, error) {
	return s.account, s.accountErr
}

func TestExchangeAndSave_StoresCredential(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	provider := &stubProvider{
		token:   &TokenResponse{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 3600, Scope: "drive"},
		account: "reader@example.com",
	}
	store := credential.NewMemoryStore(nil)
	handler := NewFlowHandler(provider, store)
	handler.now = func() time.Time { return now }

	result, err := handler.exchangeAndSave(context.Background(), "code", "verifier", "http://localhost/cb")
	require.NoError(t, err)

	assert.Equal(t, "code", provider.gotCode)
	assert.Equal(t, "verifier", provider.gotVerifier)
	assert.Equal(t, "reader@example.com", result.AccountID)
	assert.True(t, result.CanRefresh)

	saved, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "at", saved.AccessToken)
	assert.Equal(t, "rt", saved.RefreshToken)
	assert.Equal(t, "reader@example.com", saved.AccountID)
	require.NotNil(t, saved.ExpiresAt)
	assert.True(t, saved.ExpiresAt.Equal(now.Add(time.Hour)))
}

func TestExchangeAndSave_Failures(t *testing.T) {
	t.Run("exchange error", func(t *testing.T) {
		store := credential.NewMemoryStore(nil)
		handler := NewFlowHandler(&stubProvider{exchangeErr: errors.New("invalid_grant")}, store)

		_, err := handler.exchangeAndSave(context.Background(), "code", "v", "")
		assert.ErrorContains(t, err, "invalid_grant")

		saved, _ := store.Load()
		assert.Nil(t, saved)
	})

	t.Run("account lookup error", func(t *testing.T) {
		handler := NewFlowHandler(&stubProvider{
			token:      &TokenResponse{AccessToken: "at"},
			accountErr: errors.New("forbidden"),
		}, nil)

		_, err := handler.exchangeAndSave(context.Background(), "code", "v", "")
		assert.ErrorContains(t, err, "failed to get account info")
	})
}

func TestCallbackHandler(t *testing.T) {
	call := func(query string) (*httptest.ResponseRecorder, callbackResult) {
		results := make(chan callbackResult, 1)
		rec := httptest.NewRecorder()
		callbackHandler("expected", results)(rec, httptest.NewRequest(http.MethodGet, CallbackPath+"?"+query, nil))
		return rec, <-results
	}

	t.Run("delivers code", func(t *testing.T) {
		rec, res := call("state=expected&code=abc")
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, res.err)
		assert.Equal(t, "abc", res.code)
	})

	t.Run("rejects state mismatch", func(t *testing.T) {
		rec, res := call("state=other&code=abc")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.ErrorIs(t, res.err, ErrStateMismatch)
		assert.Empty(t, res.code)
	})

	t.Run("missing code", func(t *testing.T) {
		_, res := call("state=expected")
		assert.ErrorIs(t, res.err, ErrNoAuthorizationCode)
	})

	t.Run("provider error", func(t *testing.T) {
		rec, res := call("error=access_denied")
		assert.ErrorContains(t, res.err, "access_denied")
		assert.Contains(t, rec.Body.String(), "Authorization Failed")
	})
}

func TestDeliverKeepsFirstResult(t *testing.T) {
	results := make(chan callbackResult, 1)
	deliver(results, callbackResult{code: "first"})
	deliver(results, callbackResult{code: "second"})
	assert.Equal(t, "first", (<-results).code)
}

func TestChallenge(t *testing.T) {
	// RFC 7636 appendix B
	assert.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		Challenge("dBjftJeZ4CVP-mB0unHK4xzSLDWDXiozpJ6t2QAs-Rs"))

	v1, err := NewVerifier()
	require.NoError(t, err)
	v2, err := NewVerifier()
	require.NoError(t, err)
	assert.NotEqual(t, v1, v2)
	assert.Len(t, v1, 43)
}

func TestTokenResponse_ExpiresAt(t *testing.T) {
	now := time.Unix(1000, 0)
	assert.Nil(t, (&TokenResponse{}).ExpiresAt(now))
	assert.Equal(t, now.Add(time.Minute), *(&TokenResponse{ExpiresIn: 60}).ExpiresAt(now))
}
