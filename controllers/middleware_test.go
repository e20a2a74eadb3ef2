package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"

	"sneakstudy/store"
	"sneakstudy/utils"
	"sneakstudy/workos"
)

func fakeProvider(t *testing.T, calls *int64, response map[string]interface{}, status int) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(calls, 1)
		if status != http.StatusOK {
			http.Error(w, "provider unavailable", status)
			return
		}
		json.NewEncoder(w).Encode(response)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func providerClient(baseURL string) *workos.Client {
	return &workos.Client{
		BaseURL:        baseURL,
		HTTPClient:     http.DefaultClient,
		APIKey:         "sk_test_123",
		ClientID:       "client_123",
		CookiePassword: "cookie-password-cookie-password-",
	}
}

func stubAuth(user *workos.User, sessionID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user != nil {
			c.Set(userContextKey, user)
			c.Set(sessionIDContextKey, sessionID)
		}
		c.Next()
	}
}

func clearedCookie(t *testing.T, w *httptest.ResponseRecorder, name string) bool {
	t.Helper()

	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == name {
			return cookie.Value == "" && cookie.MaxAge < 0
		}
	}
	return false
}

func TestSessionMiddlewareNoCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var calls int64
	srv := fakeProvider(t, &calls, nil, http.StatusInternalServerError)

	r := gin.New()
	r.Use(SessionMiddleware(providerClient(srv.URL)))
	r.GET("/", func(c *gin.Context) {
		if CurrentUser(c) != nil {
			t.Error("Expected anonymous request without cookie")
		}
		c.String(200, "anonymous")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if atomic.LoadInt64(&calls) != 0 {
		t.Fatalf("No provider call expected without a session cookie, got %d", calls)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Fatal("Anonymous request should not set any cookies")
	}
}

func TestSessionMiddlewareValidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var calls int64
	srv := fakeProvider(t, &calls, map[string]interface{}{
		"authenticated": true,
		"session_id":    "session_01",
		"user":          map[string]string{"id": "user_01", "email": "ada@example.com", "first_name": "Ada"},
	}, http.StatusOK)

	r := gin.New()
	r.Use(SessionMiddleware(providerClient(srv.URL)))
	r.GET("/", func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || user.ID != "user_01" {
			t.Errorf("Expected user_01, got %+v", user)
		}
		if CurrentSessionID(c) != "session_01" {
			t.Errorf("Expected session_01, got %s", CurrentSessionID(c))
		}
		c.String(200, "ok")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: utils.SessionCookie, Value: "sealed-blob"})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if atomic.LoadInt64(&calls) != 1 {
		t.Fatalf("Expected exactly one provider call, got %d", calls)
	}
}

func TestSessionMiddlewareInvalidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var calls int64
	srv := fakeProvider(t, &calls, map[string]interface{}{"authenticated": false}, http.StatusOK)

	r := gin.New()
	r.Use(SessionMiddleware(providerClient(srv.URL)))
	r.GET("/", func(c *gin.Context) {
		if CurrentUser(c) != nil {
			t.Error("Invalid token should resolve to anonymous")
		}
		c.String(200, "anonymous")
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/", nil)
		req.AddCookie(&http.Cookie{Name: utils.SessionCookie, Value: "expired-blob"})
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		if !clearedCookie(t, w, utils.SessionCookie) {
			t.Fatal("Session cookie should be cleared for an invalid token")
		}
	}
}

func TestSessionMiddlewareProviderError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var calls int64
	srv := fakeProvider(t, &calls, nil, http.StatusInternalServerError)

	r := gin.New()
	r.Use(SessionMiddleware(providerClient(srv.URL)))
	r.GET("/", func(c *gin.Context) {
		if CurrentUser(c) != nil {
			t.Error("Provider errors must fail closed")
		}
		c.String(200, "anonymous")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: utils.SessionCookie, Value: "sealed-blob"})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !clearedCookie(t, w, utils.SessionCookie) {
		t.Fatal("Session cookie should be cleared when the provider is unreachable")
	}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func gateRouter(t *testing.T, st *store.Store, user *workos.User) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(stubAuth(user, "session_01"))
	r.Use(RequireCredential(st))
	r.GET("/", func(c *gin.Context) { c.String(200, "home") })
	r.GET("/onboarding", func(c *gin.Context) { c.String(200, "onboarding") })
	r.GET("/linking/connect", func(c *gin.Context) { c.String(200, "connect") })
	r.GET("/linking/callback", func(c *gin.Context) { c.String(200, "callback") })
	return r
}

func TestGateRedirectsUnlinkedUser(t *testing.T) {
	st := newTestStore(t)
	r := gateRouter(t, st, &workos.User{ID: "user_01", Email: "ada@example.com"})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	r.ServeHTTP(w, req)

	if w.Code != 302 {
		t.Fatalf("Expected redirect, got %d", w.Code)
	}
	if location := w.Header().Get("Location"); location != "/onboarding" {
		t.Fatalf("Expected redirect to /onboarding, got %s", location)
	}
}

func TestGateLoopFreedomOnLinkingPaths(t *testing.T) {
	st := newTestStore(t)
	r := gateRouter(t, st, &workos.User{ID: "user_01", Email: "ada@example.com"})

	for _, path := range []string{"/linking/connect", "/linking/callback", "/onboarding"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", path, nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Gate must not redirect %s, got %d", path, w.Code)
		}
	}
}

func TestGatePassesAnonymousRequests(t *testing.T) {
	st := newTestStore(t)
	r := gateRouter(t, st, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Anonymous requests pass through the gate, got %d", w.Code)
	}
}

func TestGateAllowsLinkedUser(t *testing.T) {
	st := newTestStore(t)

	partition, err := st.Partition("user_01")
	if err != nil {
		t.Fatalf("Failed to open partition: %v", err)
	}
	if err := partition.Set("sk-or-v1-abc", -1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	r := gateRouter(t, st, &workos.User{ID: "user_01", Email: "ada@example.com"})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Linked user must not be redirected, got %d", w.Code)
	}
	if w.Body.String() != "home" {
		t.Fatalf("Expected home page, got %s", w.Body.String())
	}
}
