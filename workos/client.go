package workos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"sneakstudy/config"
)

const (
	DefaultBaseURL = "https://api.workos.com"
)

// User is the identity returned by a successful authentication. It is never
// persisted locally; its lifetime is one request.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// SessionResult is the outcome of validating a sealed session token.
type SessionResult struct {
	Authenticated bool   `json:"authenticated"`
	SessionID     string `json:"session_id"`
	User          *User  `json:"user"`
}

type Client struct {
	BaseURL        string
	HTTPClient     *http.Client
	APIKey         string
	ClientID       string
	CookiePassword string
}

// NewClient builds a client from WORKOS_* environment variables.
func NewClient() *Client {
	return &Client{
		BaseURL:        DefaultBaseURL,
		HTTPClient:     config.ProviderClient(),
		APIKey:         os.Getenv("WORKOS_API_KEY"),
		ClientID:       os.Getenv("WORKOS_CLIENT_ID"),
		CookiePassword: os.Getenv("WORKOS_COOKIE_PASSWORD"),
	}
}

// AuthorizationURL is the hosted login page the user-agent is redirected to.
func (c *Client) AuthorizationURL(redirectURI string) string {
	params := url.Values{}
	params.Set("client_id", c.ClientID)
	params.Set("provider", "authkit")
	params.Set("redirect_uri", redirectURI)
	params.Set("response_type", "code")
	return c.BaseURL + "/user_management/authorize?" + params.Encode()
}

type authenticateWithCodeRequest struct {
	ClientID  string `json:"client_id"`
	GrantType string `json:"grant_type"`
	Code      string `json:"code"`
	Session   struct {
		SealSession    bool   `json:"seal_session"`
		CookiePassword string `json:"cookie_password"`
	} `json:"session"`
}

type authenticateWithCodeResponse struct {
	User          *User  `json:"user"`
	SealedSession string `json:"sealed_session"`
}

// AuthenticateWithCode exchanges an authorization code for a sealed session
// token suitable for the session cookie.
func (c *Client) AuthenticateWithCode(ctx context.Context, code string) (string, *User, error) {
	body := authenticateWithCodeRequest{
		ClientID:  c.ClientID,
		GrantType: "authorization_code",
		Code:      code,
	}
	body.Session.SealSession = true
	body.Session.CookiePassword = c.CookiePassword

	var resp authenticateWithCodeResponse
	if err := c.post(ctx, "/user_management/authenticate", body, &resp); err != nil {
		return "", nil, err
	}
	if resp.SealedSession == "" {
		return "", nil, fmt.Errorf("provider returned no sealed session")
	}
	return resp.SealedSession, resp.User, nil
}

type authenticateWithSessionRequest struct {
	ClientID       string `json:"client_id"`
	SessionData    string `json:"session_data"`
	CookiePassword string `json:"cookie_password"`
}

// AuthenticateWithSessionCookie validates a sealed session token. The token
// is opaque to us; the provider alone decides whether it is still valid. An
// explicit "not authenticated" answer is not an error.
func (c *Client) AuthenticateWithSessionCookie(ctx context.Context, sessionData string) (*SessionResult, error) {
	body := authenticateWithSessionRequest{
		ClientID:       c.ClientID,
		SessionData:    sessionData,
		CookiePassword: c.CookiePassword,
	}

	var result SessionResult
	if err := c.post(ctx, "/user_management/sessions/authenticate", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// LogoutURL is the provider page that ends the hosted session. It fails when
// no session id is known.
func (c *Client) LogoutURL(sessionID string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("no session id for logout")
	}
	params := url.Values{}
	params.Set("session_id", sessionID)
	return c.BaseURL + "/user_management/sessions/logout?" + params.Encode(), nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("User-Agent", "SneakStudy/1.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("WorkOS API error: %d - %s", resp.StatusCode, string(respBody))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
