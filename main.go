package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"localvoice-be/config"
	"localvoice-be/controllers"
	"localvoice-be/routes"
	"localvoice-be/services"
	"localvoice-be/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	db := config.ConnectDB()
	if db == nil {
		log.Fatal("Failed to connect to MongoDB")
	}
	slog.Info("MongoDB connection established")

	reportCollection := config.GetCollection("reports")
	if err := store.EnsureReportIndexes(reportCollection); err != nil {
		log.Fatalf("Failed to create report indexes: %v", err)
	}

	if os.Getenv("REDIS_ADDRESS") != "" {
		config.ConnectRedis()
	} else {
		slog.Warn("REDIS_ADDRESS not set, report rate limiting disabled")
	}

	reportStore := store.NewMongoReportStore(reportCollection)
	translator := services.NewTranslatorFromEnv()
	enricher := services.NewEnricher(reportStore, translator)
	lifecycle := services.NewLifecycle(reportStore, translator)
	imageStorage := services.NewCloudinaryStorage()

	controllers.Init(reportStore, enricher, lifecycle, imageStorage)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(),
		AllowMethods:     []string{"POST", "GET", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "Content-Length"},
		ExposeHeaders:    []string{"Authorization", "Content-Type", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.AuthRoutes(r)
	routes.ReportRoutes(r, dailyReportLimit())
	routes.AdminReportRoutes(r)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func allowedOrigins() []string {
	if origin := os.Getenv("CORS_ORIGIN"); origin != "" {
		return []string{origin}
	}
	return []string{"http://localhost:5173"}
}

func dailyReportLimit() int {
	if raw := os.Getenv("DAILY_REPORT_LIMIT"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			return limit
		}
	}
	return 10
}
