package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func testClient(baseURL string) *Client {
	return &Client{
		APIURL:     baseURL,
		AuthURL:    DefaultAuthURL,
		HTTPClient: http.DefaultClient,
	}
}

func TestAuthorizeURL(t *testing.T) {
	c := testClient(DefaultAPIURL)

	raw := c.AuthorizeURL("https://app.example.com/linking/callback", "challenge123")
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("Authorize URL is not valid: %v", err)
	}

	query := parsed.Query()
	if query.Get("callback_url") != "https://app.example.com/linking/callback" {
		t.Errorf("Unexpected callback_url: %s", query.Get("callback_url"))
	}
	if query.Get("code_challenge") != "challenge123" {
		t.Errorf("Unexpected code_challenge: %s", query.Get("code_challenge"))
	}
	if query.Get("code_challenge_method") != "S256" {
		t.Errorf("Expected code_challenge_method S256, got %s", query.Get("code_challenge_method"))
	}
}

func TestExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/keys" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}

		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["code"] != "xyz" {
			t.Errorf("Expected code xyz, got %s", body["code"])
		}
		if body["code_verifier"] != "verifier123" {
			t.Errorf("Expected code_verifier verifier123, got %s", body["code_verifier"])
		}
		if body["code_challenge_method"] != "S256" {
			t.Errorf("Expected code_challenge_method S256, got %s", body["code_challenge_method"])
		}

		json.NewEncoder(w).Encode(map[string]string{"key": "sk-or-v1-abc"})
	}))
	defer srv.Close()

	c := testClient(srv.URL)

	key, err := c.ExchangeCode(context.Background(), "xyz", "verifier123")
	if err != nil {
		t.Fatalf("ExchangeCode failed: %v", err)
	}
	if key != "sk-or-v1-abc" {
		t.Errorf("Expected sk-or-v1-abc, got %s", key)
	}
}

func TestExchangeCodeNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "verifier mismatch", http.StatusForbidden)
	}))
	defer srv.Close()

	c := testClient(srv.URL)

	if _, err := c.ExchangeCode(context.Background(), "xyz", "wrong"); err == nil {
		t.Fatal("Expected error for non-success exchange status")
	}
}

func TestExchangeCodeEmptyKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	c := testClient(srv.URL)

	if _, err := c.ExchangeCode(context.Background(), "xyz", "verifier123"); err == nil {
		t.Fatal("Expected error for empty key in response")
	}
}

func TestKeyBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/key" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-or-v1-abc" {
			t.Errorf("Unexpected Authorization header: %s", auth)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"label":           "sneakstudy",
				"usage":           2.5,
				"limit":           10,
				"limit_remaining": 7.5,
			},
		})
	}))
	defer srv.Close()

	c := testClient(srv.URL)

	balance, err := c.KeyBalance(context.Background(), "sk-or-v1-abc")
	if err != nil {
		t.Fatalf("KeyBalance failed: %v", err)
	}
	if balance != 7 {
		t.Errorf("Expected floored balance 7, got %d", balance)
	}
}

func TestKeyBalanceUnlimitedKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"label":           "sneakstudy",
				"usage":           2.5,
				"limit":           nil,
				"limit_remaining": nil,
			},
		})
	}))
	defer srv.Close()

	c := testClient(srv.URL)

	balance, err := c.KeyBalance(context.Background(), "sk-or-v1-abc")
	if err != nil {
		t.Fatalf("KeyBalance failed: %v", err)
	}
	if balance != -1 {
		t.Errorf("Expected -1 for unreported limit, got %d", balance)
	}
}

func TestKeyBalanceUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testClient(srv.URL)

	if _, err := c.KeyBalance(context.Background(), "revoked"); err == nil {
		t.Fatal("Expected error for upstream failure")
	}
}
