package controllers

import (
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"sneakstudy/store"
	"sneakstudy/utils"
	"sneakstudy/workos"
)

const (
	userContextKey      = "user"
	sessionIDContextKey = "sessionID"
)

// SessionMiddleware resolves the session cookie into an identity for this
// request. No cookie means anonymous with no provider call. An invalid,
// expired, or unverifiable token fails closed: the cookie is cleared and the
// request continues as anonymous.
func SessionMiddleware(client *workos.Client) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		sessionToken, err := ctx.Cookie(utils.SessionCookie)
		if err != nil || sessionToken == "" {
			ctx.Next()
			return
		}

		result, err := client.AuthenticateWithSessionCookie(ctx.Request.Context(), sessionToken)
		if err != nil {
			log.Printf("Session validation error: %v", err)
			utils.ClearSessionCookie(ctx)
			ctx.Next()
			return
		}

		if !result.Authenticated || result.User == nil {
			utils.ClearSessionCookie(ctx)
			ctx.Next()
			return
		}

		ctx.Set(userContextKey, result.User)
		ctx.Set(sessionIDContextKey, result.SessionID)
		ctx.Next()
	}
}

// CurrentUser returns the authenticated identity for this request, or nil.
func CurrentUser(ctx *gin.Context) *workos.User {
	value, ok := ctx.Get(userContextKey)
	if !ok {
		return nil
	}
	user, ok := value.(*workos.User)
	if !ok {
		return nil
	}
	return user
}

// CurrentSessionID returns the provider session id for this request, or "".
func CurrentSessionID(ctx *gin.Context) string {
	value, ok := ctx.Get(sessionIDContextKey)
	if !ok {
		return ""
	}
	id, _ := value.(string)
	return id
}

// gateExemptPrefixes are the paths a signed-in but unlinked user must still
// reach, otherwise the gate would redirect away the very flow that completes
// linking.
var gateExemptPrefixes = []string{"/onboarding", "/linking", "/auth", "/api/linking"}

// RequireCredential redirects signed-in users without a linked OpenRouter
// credential to onboarding. Anonymous requests pass through untouched;
// downstream routes decide whether they demand authentication.
func RequireCredential(st *store.Store) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user := CurrentUser(ctx)
		if user == nil {
			ctx.Next()
			return
		}

		for _, prefix := range gateExemptPrefixes {
			if strings.HasPrefix(ctx.Request.URL.Path, prefix) {
				ctx.Next()
				return
			}
		}

		partition, err := st.Partition(user.ID)
		if err != nil {
			log.Printf("Credential gate: partition error for user %s: %v", user.ID, err)
			ctx.Next()
			return
		}

		linked, err := partition.Exists()
		if err != nil {
			log.Printf("Credential gate: exists check failed for user %s: %v", user.ID, err)
			ctx.Next()
			return
		}

		if !linked {
			ctx.Redirect(302, "/onboarding")
			ctx.Abort()
			return
		}

		ctx.Next()
	}
}

// requestOrigin reconstructs scheme://host for the incoming request, trusting
// X-Forwarded-Proto when running behind a proxy.
func requestOrigin(ctx *gin.Context) string {
	scheme := "http"
	if ctx.Request.TLS != nil || ctx.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + ctx.Request.Host
}

// authRedirectURI is the identity provider callback. WORKOS_REDIRECT_URI
// wins when set; otherwise it is derived from the request origin.
func authRedirectURI(ctx *gin.Context) string {
	if uri := os.Getenv("WORKOS_REDIRECT_URI"); uri != "" {
		return uri
	}
	return requestOrigin(ctx) + "/auth/callback"
}
