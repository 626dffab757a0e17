package main

import (
	_ "backoffice/api/swagger" // swagger docs
	"backoffice/internal/database"
	"backoffice/internal/handler"
	"backoffice/internal/mailer"
	"backoffice/internal/middleware"
	"backoffice/internal/queue"
	"backoffice/internal/repository"
	"backoffice/internal/service"
	"backoffice/internal/websocket"
	"backoffice/internal/worker"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// @title           Back Office API
// @version         1.0
// @description     Multi-tenant back office with approval workflows for reference data.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	zapLogger, _ := zap.NewProduction()
	defer zapLogger.Sync()
	logger := zapLogger.Sugar()

	if err := godotenv.Load("configs/.env"); err != nil {
		logger.Info("no configs/.env file found, using environment")
	}

	dsn := "postgres://" + getenv("DB_USER", "postgres") +
		":" + getenv("DB_PASSWORD", "postgres") +
		"@" + getenv("DB_HOST", "localhost") +
		":" + getenv("DB_PORT", "5432") +
		"/" + getenv("DB_NAME", "backoffice") +
		"?sslmode=" + getenv("DB_SSLMODE", "disable")

	db, err := database.NewConnection(dsn, logger)
	if err != nil {
		logger.Fatalw("database connection failed", "error", err)
	}
	logger.Info("connected to PostgreSQL")

	// WebSocket hub for pushing record events to connected clients.
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()

	// RabbitMQ is optional; without it record events only reach websockets.
	var events service.EventPublisher
	var broker queue.Broker
	if url := os.Getenv("RABBITMQ_URL"); url != "" {
		rabbit, err := queue.NewRabbitMQBroker(queue.Config{URL: url, PrefetchCount: 10}, logger)
		if err != nil {
			logger.Fatalw("rabbitmq connection failed", "error", err)
		}
		defer rabbit.Close()
		events = rabbit
		broker = rabbit
	} else {
		logger.Info("RABBITMQ_URL not set, event publishing disabled")
	}

	// Repositories -> services -> handlers.
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	settingRepo := repository.NewSettingRepository(db)

	userService := service.NewUserService(userRepo)
	recordService := service.NewRecordService(recordRepo, auditRepo, txManager, wsHub, events, nil, logger)
	auditService := service.NewAuditService(auditRepo)
	settingService := service.NewSettingService(settingRepo, auditRepo)

	userHandler := handler.NewUserHandler(userService)
	recordHandler := handler.NewRecordHandler(recordService)
	auditHandler := handler.NewAuditHandler(auditService)
	settingHandler := handler.NewSettingHandler(settingService)

	// Mail notifications for pending approvals, fed from the event queue.
	if broker != nil {
		recipients := strings.Split(getenv("APPROVAL_NOTIFY_EMAILS", ""), ",")
		sender := mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     getenv("SMTP_HOST", "localhost"),
			Port:     getenv("SMTP_PORT", "25"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getenv("SMTP_FROM", "backoffice@localhost"),
		})
		notifier := worker.NewNotifierWorker(broker, sender, recipients, logger)
		if err := notifier.Start(); err != nil {
			logger.Fatalw("notifier worker failed to start", "error", err)
		}
		defer notifier.Stop()
	}

	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(getenv("CORS_ORIGINS", "http://localhost:5173"), ",")
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	userHandler.RegisterRoutes(router.Group(""))
	recordHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))
	settingHandler.RegisterRoutes(router.Group(""))

	port := getenv("PORT", "8080")
	logger.Infow("server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		logger.Fatalw("server failed", "error", err)
	}
}
