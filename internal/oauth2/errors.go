package oauth2

import "errors"

// Callback outcomes of the loopback flow.
var (
	ErrStateMismatch        = errors.New("oauth2: callback state does not match the request")
	ErrNoAuthorizationCode  = errors.New("oauth2: callback carried no authorization code")
	ErrAuthorizationTimeout = errors.New("oauth2: gave up waiting for the browser callback")
)
