package authsdk

import (
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the oauthd authorization server.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// ClientCredentials identifies the calling OAuth2 client. Secret is empty for
// public clients, in which case only client_id is sent.
type ClientCredentials struct {
	ID     string
	Secret string
}

// NewSDKClient creates a new client for the server at baseURL.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			// Authorization responses are redirects the caller wants to inspect.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}
