package providers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/lumina/internal/failure"
	"github.com/mrlokans/lumina/internal/oauth2"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *GoogleProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewGoogleProvider("client-id", "secret",
		WithEndpoints(server.URL+"/auth", server.URL+"/token", server.URL+"/about"),
		WithClock(func() time.Time { return time.Unix(1_700_000_000, 0) }),
	)
}

func TestGoogleProvider_BuildAuthURL(t *testing.T) {
	p := NewGoogleProvider("client-id", "")

	authURL, verifier, state, err := p.BuildAuthURL("http://localhost:4200/oauth2callback")
	require.NoError(t, err)
	assert.NotEmpty(t, verifier)
	assert.NotEmpty(t, state)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, oauth2.Challenge(verifier), q.Get("code_challenge"))
	assert.Equal(t, state, q.Get("state"))
	assert.Equal(t, "http://localhost:4200/oauth2callback", q.Get("redirect_uri"))
	assert.Contains(t, q.Get("scope"), "drive.appdata")
}

func TestGoogleProvider_ExchangeCode(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "the-verifier", r.PostForm.Get("code_verifier"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "secret", r.PostForm.Get("client_secret"))
		io.WriteString(w, `{"access_token":"at","refresh_token":"rt","expires_in":3599,"token_type":"Bearer"}`)
	})

	resp, err := p.ExchangeCode(context.Background(), "the-code", "the-verifier", "")
	require.NoError(t, err)
	assert.Equal(t, "at", resp.AccessToken)
	assert.Equal(t, "rt", resp.RefreshToken)
	assert.Equal(t, 3599, resp.ExpiresIn)
}

func TestGoogleProvider_Refresh(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt", r.PostForm.Get("refresh_token"))
		io.WriteString(w, `{"access_token":"fresh","expires_in":3600}`)
	})

	cred, err := p.Refresh(context.Background(), "rt")
	require.NoError(t, err)
	assert.Equal(t, "fresh", cred.AccessToken)
	assert.Empty(t, cred.RefreshToken)
	require.NotNil(t, cred.ExpiresAt)
	assert.Equal(t, int64(1_700_003_600), cred.ExpiresAt.Unix())
}

func TestGoogleProvider_RefreshErrorClassification(t *testing.T) {
	t.Run("invalid grant is auth rejected", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`)
		})

		_, err := p.Refresh(context.Background(), "rt")
		var fe *failure.Error
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, failure.KindAuthRejected, fe.Kind)
		assert.Equal(t, "invalid_grant Token has been expired or revoked.", fe.Message)
	})

	t.Run("server error is remote store error", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		_, err := p.Refresh(context.Background(), "rt")
		assert.Equal(t, failure.KindRemoteStore, failure.KindOf(err))
	})

	t.Run("transport error is network failure", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		server.Close()
		p := NewGoogleProvider("id", "", WithEndpoints(server.URL, server.URL, server.URL))

		_, err := p.Refresh(context.Background(), "rt")
		assert.Equal(t, failure.KindNetwork, failure.KindOf(err))
	})
}

func TestGoogleProvider_GetAccountInfo(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/about", r.URL.Path)
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		io.WriteString(w, `{"user":{"emailAddress":"reader@example.com","permissionId":"123"}}`)
	})

	account, err := p.GetAccountInfo(context.Background(), "at")
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", account)
}

func TestNewGoogleFromConfig(t *testing.T) {
	assert.Nil(t, NewGoogleFromConfig("", "secret"))
	p := NewGoogleFromConfig("client-id", "")
	require.NotNil(t, p)
	assert.Equal(t, "google", string(p.Name()))
}
