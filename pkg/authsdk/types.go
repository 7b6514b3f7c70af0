package authsdk

// ErrorResponse is the RFC 6749 error body.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// ============================================================================
// Token Types
// ============================================================================

// TokenResponse represents the OAuth2 token endpoint response per RFC 6749.
// It is returned by POST /oauth/token for every grant type and echoed back by
// DELETE /oauth/token for the revoked token.
type TokenResponse struct {
	// AccessToken is the opaque bearer token
	AccessToken string `json:"access_token"`

	// TokenType is always "Bearer"
	TokenType string `json:"token_type"`

	// ExpiresIn is the remaining lifetime in seconds of the access token
	ExpiresIn int64 `json:"expires_in"`

	// Scope is the space-delimited list of scopes granted to this token
	Scope string `json:"scope,omitempty"`

	// RefreshToken is present for grants that issue one
	RefreshToken string `json:"refresh_token,omitempty"`

	// AdditionalInfo carries any values attached by a server-side token enhancer
	AdditionalInfo map[string]string `json:"additional_info,omitempty"`
}

// IntrospectionResponse represents the POST /oauth/token_info response.
// When a token is inactive only Active is set.
type IntrospectionResponse struct {
	Active bool `json:"active"`

	Scope     string `json:"scope,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Username  string `json:"username,omitempty"`
	GrantType string `json:"grant_type,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	Exp       int64  `json:"exp,omitempty"`
	Iat       int64  `json:"iat,omitempty"`
}

// ============================================================================
// Authorization Types
// ============================================================================

// ConsentPrompt is returned by /oauth/authorize when the user has to approve
// one or more scopes before the request can complete.
type ConsentPrompt struct {
	ClientID     string   `json:"client_id"`
	ClientName   string   `json:"client_name,omitempty"`
	RedirectURI  string   `json:"redirect_uri"`
	State        string   `json:"state,omitempty"`
	Scopes       []string `json:"scopes"`
	AutoApproved []string `json:"auto_approved,omitempty"`
}

// LoginResponse is returned by POST /oauth/login.
type LoginResponse struct {
	SessionToken string `json:"session_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	Uptime  string `json:"uptime,omitempty"`
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results (only for /readyz)
	Checks map[string]string `json:"checks,omitempty"`
}
