package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"anonchat-service/internal/auth"
	"anonchat-service/internal/config"
	"anonchat-service/internal/db"
	"anonchat-service/internal/handlers"
	"anonchat-service/internal/middleware"
	"anonchat-service/internal/observability"
	"anonchat-service/internal/rabbitmq"
	"anonchat-service/internal/repositories"
	"anonchat-service/internal/telemetry"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("audit publisher mode=%s", rabbitmq.PublisherMode(publisher))

	emitter := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, "anonchat-service", cfg.Environment)

	chatRepo := repositories.NewChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	readRepo := repositories.NewReadStateRepo(database)
	userRepo := repositories.NewUserRepo(database)

	chatHandler := handlers.NewAnonymousChatHandler(chatRepo, messageRepo, readRepo, userRepo, emitter)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(auth.NewTokenVerifier(cfg.JWTSecret))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/anonymous/my", authMiddleware, chatHandler.ListMyChats)
	router.POST("/anonymous/start", authMiddleware, chatHandler.StartChat)
	router.GET("/anonymous/:chat_id", authMiddleware, chatHandler.GetChat)
	router.GET("/anonymous/:chat_id/messages", authMiddleware, chatHandler.GetMessages)
	router.POST("/anonymous/:chat_id/messages", authMiddleware, chatHandler.PostMessage)
	router.POST("/anonymous/:chat_id/reveal", authMiddleware, chatHandler.RequestReveal)
	router.POST("/anonymous/:chat_id/reveal/respond", authMiddleware, chatHandler.RespondReveal)
	router.POST("/anonymous/:chat_id/read", authMiddleware, chatHandler.MarkRead)
	router.DELETE("/anonymous/:chat_id", authMiddleware, chatHandler.DeleteChat)

	handlers.RegisterDebugRoutes(router, emitter, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
