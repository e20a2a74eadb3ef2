package controllers

import (
	"log"

	"github.com/gin-gonic/gin"

	"sneakstudy/models"
	"sneakstudy/utils"
	"sneakstudy/workos"
)

type AuthController struct {
	client *workos.Client
}

func NewAuthController(client *workos.Client) *AuthController {
	return &AuthController{client: client}
}

// Login redirects the user-agent to the provider-hosted login page. No local
// state is created.
func (c *AuthController) Login(ctx *gin.Context) {
	ctx.Redirect(302, c.client.AuthorizationURL(authRedirectURI(ctx)))
}

// Callback exchanges the authorization code for a sealed session and sets
// the session cookie.
func (c *AuthController) Callback(ctx *gin.Context) {
	code := ctx.Query("code")
	if code == "" {
		ctx.String(400, "Missing authorization code")
		return
	}

	sealedSession, user, err := c.client.AuthenticateWithCode(ctx.Request.Context(), code)
	if err != nil {
		log.Printf("Auth callback error: %v", err)
		utils.LogAuthEvent(models.AuditActionLogin, "", ctx.ClientIP(), ctx.Request.UserAgent(), false, "code exchange failed")
		ctx.String(500, "Authentication failed")
		return
	}

	utils.SetSessionCookie(ctx, sealedSession)

	userID := ""
	if user != nil {
		userID = user.ID
	}
	utils.LogAuthEvent(models.AuditActionLogin, userID, ctx.ClientIP(), ctx.Request.UserAgent(), true, "")

	ctx.Redirect(302, "/")
}

// Logout deletes the session cookie before anything that can fail, so the
// client never keeps a valid-looking session when the provider is down.
func (c *AuthController) Logout(ctx *gin.Context) {
	sessionID := CurrentSessionID(ctx)
	user := CurrentUser(ctx)

	utils.ClearSessionCookie(ctx)

	userID := ""
	if user != nil {
		userID = user.ID
	}
	utils.LogAuthEvent(models.AuditActionLogout, userID, ctx.ClientIP(), ctx.Request.UserAgent(), true, "")

	if sessionID != "" {
		logoutURL, err := c.client.LogoutURL(sessionID)
		if err == nil {
			ctx.Redirect(302, logoutURL)
			return
		}
		log.Printf("Logout error: %v", err)
	}

	ctx.Redirect(302, "/")
}
