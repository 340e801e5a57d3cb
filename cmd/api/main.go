package main

import (
	"log"
	"os"
	"time"

	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/database"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/filestore"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/handler"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/middleware"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/notify"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/repository"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/service"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	zerolog.TimeFieldFormat = time.RFC3339

	dbHost := envOr("DB_HOST", "localhost")
	dbPort := envOr("DB_PORT", "5432")
	dbUser := envOr("DB_USER", "postgres")
	dbPassword := envOr("DB_PASSWORD", "postgres")
	dbName := envOr("DB_NAME", "postgres")
	dbSslMode := envOr("DB_SSLMODE", "disable")

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub (realtime invalidate-and-refetch channel)
	wsHub := websocket.NewHub()
	go wsHub.Run()

	files, err := filestore.NewLocalStore(
		envOr("FILE_ROOT", "data/files"),
		envOr("BASE_URL", "http://localhost:8080"),
		middleware.GetJWTSecret(),
	)
	if err != nil {
		log.Fatalf("File store init failed: %v", err)
	}

	notifier := notify.NewNotifier(notify.SMTPConfigFromEnv(), wsHub)

	// Set up dependencies (Repository -> Service -> Handler)
	userRepo := repository.NewUserRepository(db)
	reimbRepo := repository.NewReimbursementRepository(db)
	receiptRepo := repository.NewReceiptRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	userService := service.NewUserService(userRepo, middleware.GetJWTSecret())
	receiptService := service.NewReceiptService(receiptRepo, auditRepo, wsHub)
	journalService := service.NewJournalService(auditRepo, reimbRepo, notifier)
	statusService := service.NewStatusService(reimbRepo, auditRepo, receiptService, notifier)
	queryService := service.NewQueryService(reimbRepo, receiptService)
	reimbService := service.NewReimbursementService(reimbRepo, receiptService, files)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	reimbHandler := handler.NewReimbursementHandler(reimbService, statusService, queryService, journalService)
	receiptHandler := handler.NewReceiptHandler(receiptService)
	fileHandler := handler.NewFileHandler(files)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	reimbHandler.RegisterRoutes(router.Group(""))
	receiptHandler.RegisterRoutes(router.Group(""))
	fileHandler.RegisterRoutes(router.Group(""))

	port := envOr("PORT", "8080")

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
