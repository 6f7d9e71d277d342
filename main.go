package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"worklink_backend/config"
	"worklink_backend/handlers"
	"worklink_backend/internal/ws"
	"worklink_backend/middleware"
	"worklink_backend/services"
	"worklink_backend/utils"

	"github.com/gofiber/fiber/v2"
)

func main() {
	cfg := config.LoadConfig()

	db := config.ConnectDatabase(cfg)
	if err := config.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}
	config.SeedCategories(db)

	// Attachment and avatar storage directories.
	for _, dir := range []string{"chat/image", "chat/voice", "chat/file", "avatars"} {
		if err := os.MkdirAll(filepath.Join(cfg.UploadRoot, dir), 0o755); err != nil {
			log.Fatal("Failed to create upload directory:", err)
		}
	}

	// Push provider is optional; without credentials notifications are
	// stored only.
	pusher, err := services.NewFCMPusher(context.Background(), cfg.FirebaseCredentialsFile)
	if err != nil {
		log.Fatal("Failed to initialize FCM:", err)
	}
	var pushSink services.Pusher
	if pusher != nil {
		pushSink = pusher
	}

	chatService := services.NewChatService(db)
	presenceService := services.NewPresenceService(db, cfg.PresenceOnlineWindow)
	attachmentService := services.NewAttachmentService(cfg.UploadRoot)
	notificationService := services.NewNotificationService(db, pushSink)

	registry := ws.NewRegistry()
	hub := ws.NewHub(registry, db)
	wsDeps := &ws.Deps{
		Chat:          chatService,
		Presence:      presenceService,
		Attachments:   attachmentService,
		Notifications: notificationService,
	}

	authHandler := handlers.NewAuthHandler(db, cfg)
	userHandler := handlers.NewUserHandler(db, notificationService)
	chatHandler := handlers.NewChatHandler(hub, db, chatService, presenceService, wsDeps)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	jobHandler := handlers.NewJobHandler(db, notificationService)
	uploadHandler := handlers.NewUploadHandler(db, cfg.UploadRoot)

	app := fiber.New(fiber.Config{
		AppName:      "WorkLink Backend",
		ServerHeader: "WorkLink Backend Server/1.0",
		BodyLimit:    20 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			msg := "Internal Server Error"
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				msg = e.Message
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": msg,
			})
		},
	})

	middleware.SetupMiddleware(app)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "success",
			"message": "API is healthy",
		})
	})

	app.Static("/uploads", cfg.UploadRoot)

	// Websocket endpoint. Authentication happens inside the handler so the
	// close frame can say why a connection was rejected.
	app.Use("/ws", chatHandler.WebSocketUpgradeMiddleware)
	app.Get("/ws", chatHandler.Handler())

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	users := api.Group("/users", utils.AuthMiddleware)
	users.Get("/search", userHandler.SearchUsers)
	users.Get("/:userID", userHandler.GetProfile)
	users.Post("/:userID/follow", userHandler.FollowUser)
	users.Delete("/:userID/follow", userHandler.UnfollowUser)

	chats := api.Group("/chats", utils.AuthMiddleware)
	chats.Post("/init", chatHandler.InitDirectChat)
	chats.Get("/", chatHandler.GetMyChats)
	chats.Get("/unread", chatHandler.UnreadCounts)
	chats.Get("/:roomID/messages", chatHandler.GetChatMessages)
	chats.Post("/:roomID/read", chatHandler.MarkRoomRead)
	chats.Get("/:roomID/status", chatHandler.GetRoomStatus)
	chats.Delete("/:roomID", chatHandler.DeleteChat)

	messages := api.Group("/messages", utils.AuthMiddleware)
	messages.Put("/:messageID", chatHandler.UpdateMessage)
	messages.Delete("/:messageID", chatHandler.DeleteMessage)
	messages.Post("/:messageID/like", chatHandler.ToggleLike)

	notifications := api.Group("/notifications", utils.AuthMiddleware)
	notifications.Get("/", notificationHandler.List)
	notifications.Get("/unread", notificationHandler.UnreadCount)
	notifications.Post("/:notificationID/read", notificationHandler.MarkRead)
	notifications.Post("/devices", notificationHandler.RegisterDevice)

	jobs := api.Group("/jobs", utils.AuthMiddleware)
	jobs.Get("/categories", jobHandler.ListCategories)
	jobs.Get("/", jobHandler.ListJobPosts)
	jobs.Post("/", jobHandler.CreateJobPost)
	jobs.Post("/:jobID/proposals", jobHandler.SubmitProposal)
	jobs.Get("/:jobID/proposals", jobHandler.ListJobProposals)

	proposals := api.Group("/proposals", utils.AuthMiddleware)
	proposals.Get("/:proposalID", jobHandler.ViewProposal)

	uploads := api.Group("/upload", utils.AuthMiddleware)
	uploads.Post("/avatar", uploadHandler.UploadAvatar)

	middleware.SetupErrorHandler(app)

	log.Printf("🚀 Server starting on host %s in port %s mode", cfg.HOST, cfg.AppPort)

	if err := app.Listen(cfg.HOST + ":" + cfg.AppPort); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
