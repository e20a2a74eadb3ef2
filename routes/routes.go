package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"sneakstudy/controllers"
	"sneakstudy/database"
	"sneakstudy/openrouter"
	"sneakstudy/store"
	"sneakstudy/workos"
)

func CSPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		c.Next()
	}
}

func SetupRoutes(r *gin.Engine, wos *workos.Client, or *openrouter.Client, st *store.Store) {
	db := database.GetDB()

	authController := controllers.NewAuthController(wos)
	linkingController := controllers.NewLinkingController(or, st)

	r.Use(CSPMiddleware())
	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil {
			c.JSON(503, gin.H{
				"status":    "unhealthy",
				"error":     "database connection error",
				"timestamp": time.Now().Unix(),
			})
			return
		}

		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := sqlDB.PingContext(pingCtx); err != nil {
			c.JSON(503, gin.H{
				"status":    "unhealthy",
				"error":     "database ping failed",
				"timestamp": time.Now().Unix(),
			})
			return
		}

		c.JSON(200, gin.H{
			"status":    "healthy",
			"database":  "connected",
			"timestamp": time.Now().Unix(),
		})
	})

	auth := r.Group("/auth")
	{
		auth.GET("/login", authController.Login)
		auth.GET("/callback", authController.Callback)
		auth.GET("/logout", authController.Logout)
	}

	linking := r.Group("/linking")
	{
		linking.GET("/connect", linkingController.Connect)
		linking.GET("/callback", linkingController.Callback)
		linking.GET("/disconnect", linkingController.Disconnect)
	}

	api := r.Group("/api/linking")
	{
		api.GET("/status", linkingController.Status)
		api.POST("/refresh-balance", linkingController.RefreshBalance)
	}
}
