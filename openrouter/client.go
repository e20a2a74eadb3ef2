package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"sneakstudy/config"
)

const (
	DefaultAPIURL  = "https://openrouter.ai/api/v1"
	DefaultAuthURL = "https://openrouter.ai/auth"
)

type Client struct {
	APIURL     string
	AuthURL    string
	HTTPClient *http.Client
}

func NewClient() *Client {
	return &Client{
		APIURL:     DefaultAPIURL,
		AuthURL:    DefaultAuthURL,
		HTTPClient: config.OpenRouterClient(),
	}
}

// AuthorizeURL is where the user-agent is sent to approve the PKCE request.
func (c *Client) AuthorizeURL(callbackURL, codeChallenge string) string {
	params := url.Values{}
	params.Set("callback_url", callbackURL)
	params.Set("code_challenge", codeChallenge)
	params.Set("code_challenge_method", "S256")
	return c.AuthURL + "?" + params.Encode()
}

type exchangeRequest struct {
	Code                string `json:"code"`
	CodeVerifier        string `json:"code_verifier"`
	CodeChallengeMethod string `json:"code_challenge_method"`
}

type exchangeResponse struct {
	Key string `json:"key"`
}

// ExchangeCode trades an authorization code plus its PKCE verifier for an
// API key. This is a server-to-server call; the key never reaches the
// browser.
func (c *Client) ExchangeCode(ctx context.Context, code, codeVerifier string) (string, error) {
	payload, err := json.Marshal(exchangeRequest{
		Code:                code,
		CodeVerifier:        codeVerifier,
		CodeChallengeMethod: "S256",
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode exchange request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL+"/auth/keys", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("OpenRouter token exchange failed: %d - %s", resp.StatusCode, string(body))
	}

	var data exchangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode exchange response: %w", err)
	}
	if data.Key == "" {
		return "", fmt.Errorf("OpenRouter returned an empty key")
	}
	return data.Key, nil
}

type keyResponse struct {
	Data struct {
		Label          string   `json:"label"`
		Usage          float64  `json:"usage"`
		Limit          *float64 `json:"limit"`
		LimitRemaining *float64 `json:"limit_remaining"`
	} `json:"data"`
}

// KeyBalance reports the remaining credit for a key, floored to a whole
// number. Keys without a limit report -1 (unknown).
func (c *Client) KeyBalance(ctx context.Context, key string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIURL+"/key", nil)
	if err != nil {
		return -1, err
	}
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return -1, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return -1, fmt.Errorf("OpenRouter key lookup failed: %d - %s", resp.StatusCode, string(body))
	}

	var data keyResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return -1, fmt.Errorf("failed to decode key response: %w", err)
	}

	if data.Data.LimitRemaining == nil {
		return -1, nil
	}
	return int(*data.Data.LimitRemaining), nil
}
