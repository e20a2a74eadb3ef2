package utils

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	SessionCookie      = "wos_session"
	PKCEVerifierCookie = "openrouter_pkce_verifier"

	SessionCookieMaxAge  = 60 * 60 * 24 * 7 // 7 days
	VerifierCookieMaxAge = 60 * 10          // 10 minutes
)

// SecureCookieHost reports whether cookies for the given request host should
// carry the Secure attribute. Loopback hosts are exempt for development.
func SecureCookieHost(host string) bool {
	hostname := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		hostname = h
	}
	hostname = strings.Trim(hostname, "[]")
	return hostname != "localhost" && hostname != "127.0.0.1" && hostname != "::1"
}

func setCookie(ctx *gin.Context, name, value string, maxAge int) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(name, value, maxAge, "/", "", SecureCookieHost(ctx.Request.Host), true)
}

func SetSessionCookie(ctx *gin.Context, sealedSession string) {
	setCookie(ctx, SessionCookie, sealedSession, SessionCookieMaxAge)
}

func ClearSessionCookie(ctx *gin.Context) {
	setCookie(ctx, SessionCookie, "", -1)
}

func SetVerifierCookie(ctx *gin.Context, verifier string) {
	setCookie(ctx, PKCEVerifierCookie, verifier, VerifierCookieMaxAge)
}

func ClearVerifierCookie(ctx *gin.Context) {
	setCookie(ctx, PKCEVerifierCookie, "", -1)
}
