// Package dto defines the request/response bodies of the HTTP API.
package dto

// StartRequest begins a provider handshake.
type StartRequest struct {
	Provider  string `json:"provider"`
	ReturnURI string `json:"return_uri"`
}

// StartResponse carries the provider redirect.
type StartResponse struct {
	AuthorizeURL string `json:"authorize_url"`
}

// ExchangeRequest redeems an exchange code.
type ExchangeRequest struct {
	Code string `json:"code"`
}

// RefreshRequest rotates a refresh token. Kind selects the aggregate
// and defaults to "user".
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	Kind         string `json:"kind,omitempty"`
}

// LogoutRequest revokes a refresh token.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
	Kind         string `json:"kind,omitempty"`
}

// TokenPairResponse is the session material returned to the app.
type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	AccountID    string `json:"account_id,omitempty"`
	Provider     string `json:"provider,omitempty"`
}
