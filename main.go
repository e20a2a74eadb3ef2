package main

import (
	"context"
	"html/template"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"sneakstudy/config"
	"sneakstudy/controllers"
	"sneakstudy/database"
	"sneakstudy/openrouter"
	"sneakstudy/routes"
	"sneakstudy/store"
	"sneakstudy/utils"
	"sneakstudy/workos"
)

var db *gorm.DB

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: No .env file found. Using default configuration.")
	}

	db, err = database.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	validationResult := workos.ValidateConfig()
	if !validationResult.IsValid {
		log.Println("Warning: Auth configuration has errors. Login functionality may not work correctly.")
	}

	credentialStore, err := store.Open(os.Getenv("DATA_DIR"))
	if err != nil {
		log.Fatal("Failed to open credential store:", err)
	}

	utils.InitAuditLog(db)

	workosClient := workos.NewClient()
	openrouterClient := openrouter.NewClient()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	tmpl := template.Must(template.ParseFiles(
		"templates/header.html",
		"templates/index.html",
		"templates/onboarding.html",
	))
	r.SetHTMLTemplate(tmpl)

	r.Use(controllers.SessionMiddleware(workosClient))
	r.Use(controllers.RequireCredential(credentialStore))

	r.GET("/", func(c *gin.Context) {
		user := controllers.CurrentUser(c)
		c.HTML(200, "index-page", gin.H{"User": user})
	})

	r.GET("/onboarding", func(c *gin.Context) {
		user := controllers.CurrentUser(c)
		if user == nil {
			c.Redirect(302, "/auth/login")
			return
		}
		c.HTML(200, "onboarding-page", gin.H{"User": user})
	})

	routes.SetupRoutes(r, workosClient, openrouterClient, credentialStore)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.Printf("Server starting on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if err := credentialStore.Close(); err != nil {
		log.Printf("Error closing credential store: %v", err)
	}

	if err := database.ShutdownDB(); err != nil {
		log.Printf("Error shutting down database: %v", err)
	}

	log.Println("Server exited")
}
