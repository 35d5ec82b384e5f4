package oauth2

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/mrlokans/lumina/internal/credential"
)

const (
	DefaultCallbackPort = 4200
	CallbackPath        = "/oauth2callback"

	defaultFlowTimeout = 5 * time.Minute
)

// FlowResult describes the credential obtained by a completed flow.
type FlowResult struct {
	AccountID  string
	ExpiresAt  *time.Time
	Scope      string
	CanRefresh bool
}

// FlowHandler obtains a credential from a provider and stores it.
type FlowHandler struct {
	provider Provider
	store    credential.Store
	now      func() time.Time
}

// NewFlowHandler creates a handler. A nil store exchanges tokens without
// persisting them.
func NewFlowHandler(provider Provider, store credential.Store) *FlowHandler {
	return &FlowHandler{provider: provider, store: store, now: time.Now}
}

// CLIFlowConfig configures RunCLIFlow. Zero values take defaults.
type CLIFlowConfig struct {
	Port    int
	Timeout time.Duration
	Out     io.Writer // receives the consent URL; stdout when nil
}

// callbackResult is what the loopback server learned from the browser.
type callbackResult struct {
	code string
	err  error
}

// RunCLIFlow prints the consent URL, waits for the browser to come back on a
// loopback listener and exchanges the code.
func (h *FlowHandler) RunCLIFlow(ctx context.Context, cfg CLIFlowConfig) (*FlowResult, error) {
	if cfg.Port == 0 {
		cfg.Port = DefaultCallbackPort
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultFlowTimeout
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	redirectURL := fmt.Sprintf("http://localhost:%d%s", cfg.Port, CallbackPath)

	authURL, verifier, state, err := h.provider.BuildAuthURL(redirectURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build auth URL: %w", err)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("port %d is not available: %w", cfg.Port, err)
	}

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, callbackHandler(state, results))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			deliver(results, callbackResult{err: fmt.Errorf("callback server: %w", err)})
		}
	}()
	defer server.Shutdown(context.Background())

	fmt.Fprintf(cfg.Out, "\nOpen this URL in your browser to authorize Google Drive access:\n\n%s\n", authURL)

	waitCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	select {
	case res := <-results:
		if res.err != nil {
			return nil, res.err
		}
		return h.exchangeAndSave(ctx, res.code, verifier, redirectURL)
	case <-waitCtx.Done():
		return nil, ErrAuthorizationTimeout
	}
}

// deliver keeps the first result; later callbacks are dropped.
func deliver(results chan<- callbackResult, res callbackResult) {
	select {
	case results <- res:
	default:
	}
}

const callbackPage = `<html><body><h1>%s</h1><p>%s</p></body></html>`

func callbackHandler(state string, results chan<- callbackResult) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		w.Header().Set("Content-Type", "text/html")

		if denied := q.Get("error"); denied != "" {
			deliver(results, callbackResult{err: fmt.Errorf("authorization denied: %s %s", denied, q.Get("error_description"))})
			fmt.Fprintf(w, callbackPage, "Authorization Failed", html.EscapeString(denied)+". You can close this window.")
			return
		}
		if q.Get("state") != state {
			deliver(results, callbackResult{err: ErrStateMismatch})
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, callbackPage, "Security Error", "State mismatch detected.")
			return
		}
		code := q.Get("code")
		if code == "" {
			deliver(results, callbackResult{err: ErrNoAuthorizationCode})
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, callbackPage, "Error", "No authorization code received.")
			return
		}

		deliver(results, callbackResult{code: code})
		fmt.Fprintf(w, callbackPage, "Auth complete.", "You can close this window and return to the terminal.")
	}
}

func (h *FlowHandler) exchangeAndSave(ctx context.Context, code, verifier, redirectURL string) (*FlowResult, error) {
	tokens, err := h.provider.ExchangeCode(ctx, code, verifier, redirectURL)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	account := tokens.AccountID
	if account == "" {
		if account, err = h.provider.GetAccountInfo(ctx, tokens.AccessToken); err != nil {
			return nil, fmt.Errorf("failed to get account info: %w", err)
		}
	}

	cred := tokens.Credential(h.now(), account)
	if h.store != nil {
		if err := h.store.Save(cred); err != nil {
			return nil, fmt.Errorf("failed to save token: %w", err)
		}
	}

	return &FlowResult{
		AccountID:  account,
		ExpiresAt:  cred.ExpiresAt,
		Scope:      tokens.Scope,
		CanRefresh: cred.RefreshToken != "",
	}, nil
}
