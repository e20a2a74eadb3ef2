package controllers

import (
	"log"

	"github.com/gin-gonic/gin"

	"sneakstudy/models"
	"sneakstudy/openrouter"
	"sneakstudy/store"
	"sneakstudy/utils"
)

type LinkingController struct {
	client *openrouter.Client
	store  *store.Store
}

func NewLinkingController(client *openrouter.Client, st *store.Store) *LinkingController {
	return &LinkingController{client: client, store: st}
}

// Connect starts the PKCE flow: a fresh verifier goes into a short-lived
// cookie and the user-agent is sent to OpenRouter with the derived challenge.
func (c *LinkingController) Connect(ctx *gin.Context) {
	user := CurrentUser(ctx)
	if user == nil {
		ctx.Redirect(302, "/auth/login")
		return
	}

	codeVerifier, err := utils.GenerateCodeVerifier()
	if err != nil {
		log.Printf("Failed to generate PKCE verifier: %v", err)
		ctx.String(500, "Failed to start linking")
		return
	}
	codeChallenge := utils.GenerateCodeChallenge(codeVerifier)

	utils.SetVerifierCookie(ctx, codeVerifier)

	callbackURL := requestOrigin(ctx) + "/linking/callback"
	ctx.Redirect(302, c.client.AuthorizeURL(callbackURL, codeChallenge))
}

// Callback finishes the PKCE flow. The verifier cookie is deleted the moment
// it is read, before the exchange, so one verifier can never be spent twice
// even under concurrent duplicate callbacks.
func (c *LinkingController) Callback(ctx *gin.Context) {
	user := CurrentUser(ctx)
	if user == nil {
		ctx.Redirect(302, "/auth/login")
		return
	}

	code := ctx.Query("code")
	if code == "" {
		ctx.String(400, "Missing authorization code")
		return
	}

	codeVerifier, err := ctx.Cookie(utils.PKCEVerifierCookie)
	if err != nil || codeVerifier == "" {
		ctx.String(400, "Missing PKCE verifier - please restart the connection flow")
		return
	}

	utils.ClearVerifierCookie(ctx)

	key, err := c.client.ExchangeCode(ctx.Request.Context(), code, codeVerifier)
	if err != nil {
		log.Printf("OpenRouter token exchange failed: %v", err)
		utils.LogLinkingEvent(models.AuditActionConnect, user.ID, ctx.ClientIP(), ctx.Request.UserAgent(), false, "token exchange failed")
		ctx.String(500, "Failed to exchange code for token")
		return
	}

	sealed, err := utils.Encrypt(key)
	if err != nil {
		log.Printf("Failed to encrypt access token: %v", err)
		ctx.String(500, "Failed to store credential")
		return
	}

	partition, err := c.store.Partition(user.ID)
	if err != nil {
		log.Printf("Failed to open credential partition for user %s: %v", user.ID, err)
		ctx.String(500, "Failed to store credential")
		return
	}

	if err := partition.Set(sealed, -1); err != nil {
		log.Printf("Failed to store credential for user %s: %v", user.ID, err)
		ctx.String(500, "Failed to store credential")
		return
	}

	utils.LogLinkingEvent(models.AuditActionConnect, user.ID, ctx.ClientIP(), ctx.Request.UserAgent(), true, "")
	ctx.Redirect(302, "/")
}

// Disconnect removes the stored credential. Removing a credential that does
// not exist succeeds.
func (c *LinkingController) Disconnect(ctx *gin.Context) {
	user := CurrentUser(ctx)
	if user == nil {
		ctx.Redirect(302, "/auth/login")
		return
	}

	partition, err := c.store.Partition(user.ID)
	if err != nil {
		log.Printf("Failed to open credential partition for user %s: %v", user.ID, err)
		ctx.String(500, "Failed to disconnect")
		return
	}

	if err := partition.Clear(); err != nil {
		log.Printf("Failed to clear credential for user %s: %v", user.ID, err)
		ctx.String(500, "Failed to disconnect")
		return
	}

	utils.LogLinkingEvent(models.AuditActionDisconnect, user.ID, ctx.ClientIP(), ctx.Request.UserAgent(), true, "")
	ctx.Redirect(302, "/onboarding")
}

// Status reports whether a credential is linked and its cached balance. The
// key itself is never returned.
func (c *LinkingController) Status(ctx *gin.Context) {
	user := CurrentUser(ctx)
	if user == nil {
		utils.Unauthorized(ctx, "Not signed in")
		return
	}

	partition, err := c.store.Partition(user.ID)
	if err != nil {
		log.Printf("Failed to open credential partition for user %s: %v", user.ID, err)
		utils.InternalError(ctx, "Failed to read credential status")
		return
	}

	cred, err := partition.Get()
	if err != nil {
		log.Printf("Failed to read credential for user %s: %v", user.ID, err)
		utils.InternalError(ctx, "Failed to read credential status")
		return
	}

	if cred == nil {
		ctx.JSON(200, gin.H{"connected": false, "balance": -1})
		return
	}
	ctx.JSON(200, gin.H{"connected": true, "balance": cred.Balance})
}

// RefreshBalance asks OpenRouter for the remaining credit of the stored key
// and caches it on the credential.
func (c *LinkingController) RefreshBalance(ctx *gin.Context) {
	user := CurrentUser(ctx)
	if user == nil {
		utils.Unauthorized(ctx, "Not signed in")
		return
	}

	partition, err := c.store.Partition(user.ID)
	if err != nil {
		log.Printf("Failed to open credential partition for user %s: %v", user.ID, err)
		utils.InternalError(ctx, "Failed to refresh balance")
		return
	}

	cred, err := partition.Get()
	if err != nil {
		log.Printf("Failed to read credential for user %s: %v", user.ID, err)
		utils.InternalError(ctx, "Failed to refresh balance")
		return
	}
	if cred == nil {
		utils.NotFound(ctx, "No OpenRouter account linked")
		return
	}

	key, err := utils.Decrypt(cred.AccessToken)
	if err != nil {
		log.Printf("Failed to decrypt access token for user %s: %v", user.ID, err)
		utils.InternalError(ctx, "Failed to refresh balance")
		return
	}

	balance, err := c.client.KeyBalance(ctx.Request.Context(), key)
	if err != nil {
		log.Printf("OpenRouter balance lookup failed for user %s: %v", user.ID, err)
		utils.LogLinkingEvent(models.AuditActionBalanceRefresh, user.ID, ctx.ClientIP(), ctx.Request.UserAgent(), false, "balance lookup failed")
		utils.InternalError(ctx, "Failed to refresh balance")
		return
	}

	if err := partition.UpdateBalance(balance); err != nil {
		log.Printf("Failed to update balance for user %s: %v", user.ID, err)
		utils.InternalError(ctx, "Failed to refresh balance")
		return
	}

	utils.LogLinkingEvent(models.AuditActionBalanceRefresh, user.ID, ctx.ClientIP(), ctx.Request.UserAgent(), true, "")
	ctx.JSON(200, gin.H{"connected": true, "balance": balance})
}
