package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mrlokans/lumina/internal/credential"
	"github.com/mrlokans/lumina/internal/entities"
	"github.com/mrlokans/lumina/internal/failure"
	"github.com/mrlokans/lumina/internal/oauth2"
)

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"
	googleAboutURL = "https://www.googleapis.com/drive/v3/about"
)

// GoogleScopes grants read access to the library and read/write access to
// the application data folder holding the sync document.
var GoogleScopes = []string{
	"https://www.googleapis.com/auth/drive.readonly",
	"https://www.googleapis.com/auth/drive.appdata",
}

// GoogleProvider implements OAuth2 for Google Drive using PKCE
type GoogleProvider struct {
	clientID     string
	clientSecret string
	httpClient   *http.Client
	authURL      string
	tokenURL     string
	aboutURL     string
	now          func() time.Time
}

// GoogleOption configures a GoogleProvider.
type GoogleOption func(*GoogleProvider)

// WithEndpoints overrides the Google endpoints.
func WithEndpoints(authURL, tokenURL, aboutURL string) GoogleOption {
	return func(p *GoogleProvider) {
		p.authURL, p.tokenURL, p.aboutURL = authURL, tokenURL, aboutURL
	}
}

// WithHTTPClient sets the client used for token and account requests.
func WithHTTPClient(c *http.Client) GoogleOption {
	return func(p *GoogleProvider) { p.httpClient = c }
}

// WithClock overrides the time source used for expiry calculation.
func WithClock(now func() time.Time) GoogleOption {
	return func(p *GoogleProvider) { p.now = now }
}

// NewGoogleProvider creates a new Google OAuth2 provider. Installed
// applications receive a client secret that is not confidential; it may be
// empty when the client is configured for PKCE only.
func NewGoogleProvider(clientID, clientSecret string, opts ...GoogleOption) *GoogleProvider {
	p := &GoogleProvider{
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		authURL:      googleAuthURL,
		tokenURL:     googleTokenURL,
		aboutURL:     googleAboutURL,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *GoogleProvider) Name() entities.OAuthProvider {
	return entities.OAuthProviderGoogle
}

func (p *GoogleProvider) BuildAuthURL(redirectURL string) (authURL, codeVerifier, state string, err error) {
	codeVerifier, err = oauth2.NewVerifier()
	if err != nil {
		return "", "", "", fmt.Errorf("failed to generate code verifier: %w", err)
	}

	state, err = oauth2.NewState()
	if err != nil {
		return "", "", "", fmt.Errorf("failed to generate state: %w", err)
	}

	params := url.Values{}
	params.Set("client_id", p.clientID)
	params.Set("response_type", "code")
	params.Set("scope", strings.Join(GoogleScopes, " "))
	params.Set("code_challenge", oauth2.Challenge(codeVerifier))
	params.Set("code_challenge_method", "S256")
	params.Set("state", state)
	// offline access plus consent yields a refresh token on every grant
	params.Set("access_type", "offline")
	params.Set("prompt", "consent")
	if redirectURL != "" {
		params.Set("redirect_uri", redirectURL)
	}

	return p.authURL + "?" + params.Encode(), codeVerifier, state, nil
}

func (p *GoogleProvider) ExchangeCode(ctx context.Context, code, codeVerifier, redirectURL string) (*oauth2.TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("code_verifier", codeVerifier)
	if redirectURL != "" {
		data.Set("redirect_uri", redirectURL)
	}
	return p.tokenRequest(ctx, "google.exchange_code", data)
}

func (p *GoogleProvider) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	return p.tokenRequest(ctx, "google.refresh_token", data)
}

// Refresh implements credential.Refresher. Google does not rotate refresh
// tokens, so the returned credential usually carries none.
func (p *GoogleProvider) Refresh(ctx context.Context, refreshToken string) (*credential.Credential, error) {
	resp, err := p.RefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	cred := resp.Credential(p.now(), "")
	return &cred, nil
}

func (p *GoogleProvider) GetAccountInfo(ctx context.Context, accessToken string) (string, error) {
	const op = "google.account_info"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.aboutURL+"?fields=user(emailAddress,permissionId)", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	body, err := p.do(op, req)
	if err != nil {
		return "", err
	}

	var about struct {
		User struct {
			EmailAddress string `json:"emailAddress"`
			PermissionID string `json:"permissionId"`
		} `json:"user"`
	}
	if err := json.Unmarshal(body, &about); err != nil {
		return "", fmt.Errorf("failed to parse account response: %w", err)
	}

	if about.User.EmailAddress != "" {
		return about.User.EmailAddress, nil
	}
	return about.User.PermissionID, nil
}

func (p *GoogleProvider) tokenRequest(ctx context.Context, op string, data url.Values) (*oauth2.TokenResponse, error) {
	data.Set("client_id", p.clientID)
	if p.clientSecret != "" {
		data.Set("client_secret", p.clientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := p.do(op, req)
	if err != nil {
		return nil, err
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int    `json:"expires_in"`
		RefreshToken string `json:"refresh_token"`
		Scope        string `json:"scope"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, failure.Newf(failure.KindRemoteStore, op, "failed to parse token response: %v", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, failure.Newf(failure.KindRemoteStore, op, "token response has no access token")
	}

	return &oauth2.TokenResponse{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		TokenType:    tokenResp.TokenType,
		ExpiresIn:    tokenResp.ExpiresIn,
		Scope:        tokenResp.Scope,
	}, nil
}

// do sends req and classifies failures: transport errors are network
// failures, 400 and 401 mean the grant was rejected.
func (p *GoogleProvider) do(op string, req *http.Request) ([]byte, error) {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, failure.New(failure.KindNetwork, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failure.New(failure.KindNetwork, op, err)
	}

	if resp.StatusCode == http.StatusOK {
		return body, nil
	}

	message := string(body)
	var errResp struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		message = strings.TrimSpace(errResp.Error + " " + errResp.ErrorDescription)
	}

	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized:
		return nil, &failure.Error{Kind: failure.KindAuthRejected, Op: op, Status: resp.StatusCode, Message: message}
	default:
		return nil, failure.Remote(op, resp.StatusCode, message)
	}
}

// NewGoogleFromConfig returns a provider for clientID, or nil when no client
// is configured.
func NewGoogleFromConfig(clientID, clientSecret string) *GoogleProvider {
	if clientID == "" {
		return nil
	}
	return NewGoogleProvider(clientID, clientSecret)
}
