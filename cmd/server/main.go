package main

import (
	"log"
	"os"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/team-chat-api/internal/config"
	"github.com/yukikurage/team-chat-api/internal/constants"
	"github.com/yukikurage/team-chat-api/internal/database"
	"github.com/yukikurage/team-chat-api/internal/handlers"
	"github.com/yukikurage/team-chat-api/internal/middleware"
	"github.com/yukikurage/team-chat-api/internal/models"
	"github.com/yukikurage/team-chat-api/internal/notify"
	"github.com/yukikurage/team-chat-api/internal/permissions"
	"github.com/yukikurage/team-chat-api/internal/repository"
	"github.com/yukikurage/team-chat-api/internal/services"
	"github.com/yukikurage/team-chat-api/internal/storage"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db := database.GetDB()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Seed the default organization and first superadmin so a fresh
	// deployment is usable
	if err := seedDefaults(db, userRepo); err != nil {
		log.Fatalf("Failed to seed defaults: %v", err)
	}

	// Permission engine with the default grant table
	engine := permissions.DefaultEngine()

	// Blob storage for message attachments
	blobs := storage.NewLocalBlobStore(cfg.BlobBaseURL)

	// Initialize services
	authService := services.NewAuthService(userRepo)
	userService := services.NewUserService(userRepo, engine)
	channelService := services.NewChannelService(channelRepo, messageRepo, userRepo, engine, blobs)
	membershipService := services.NewMembershipService(channelRepo, messageRepo, userRepo)
	notificationService := services.NewNotificationService(notificationRepo, channelRepo, messageRepo, userRepo)

	// Notification fan-out runs off the request path
	queue := notify.NewQueue(constants.NotificationQueueSize, notificationService.DispatchMessage)
	queue.Start()
	defer queue.Stop()

	messageService := services.NewMessageService(channelRepo, messageRepo, engine, blobs, queue)

	// Initialize Gin router
	r := gin.Default()

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,        // Redis pool size
		"tcp",     // network type
		redisAddr, // Redis address from config
		"",        // username (empty for default user)
		"",        // password (empty = no password)
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	// Configure session options based on environment
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: 2, // SameSite=Lax (1=Strict, 2=Lax, 3=None)
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	channelHandler := handlers.NewChannelHandler(channelService)
	membershipHandler := handlers.NewMembershipHandler(membershipService)
	messageHandler := handlers.NewMessageHandler(messageService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	uploadHandler := handlers.NewUploadHandler(blobs)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Team Chat API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
		}

		// User management routes (protected, role-gated in the service)
		users := api.Group("/users")
		users.Use(middleware.RequireAuth())
		{
			users.GET("", middleware.RequirePermission(engine, "users:read"), userHandler.ListUsers)
			users.PATCH("/:id", middleware.RequirePermission(engine, "users:update"), userHandler.UpdateUser)
		}

		// Channel routes (protected)
		channels := api.Group("/channels")
		channels.Use(middleware.RequireAuth())
		{
			channels.GET("", channelHandler.ListChannels)
			channels.POST("", channelHandler.CreateChannel)
			channels.POST("/direct/:user_id", channelHandler.GetOrCreateDirectMessage)
			channels.GET("/:id", middleware.RequireChannelAccess(), channelHandler.GetChannel)
			channels.PATCH("/:id", channelHandler.UpdateChannel)
			channels.DELETE("/:id", channelHandler.DeleteChannel)

			channels.GET("/:id/members", middleware.RequireChannelAccess(), membershipHandler.ListMembers)
			channels.POST("/:id/members", membershipHandler.AddMember)
			channels.DELETE("/:id/members/:user_id", membershipHandler.RemoveMember)
			channels.PATCH("/:id/members/:user_id", membershipHandler.UpdateMemberRole)
			channels.POST("/:id/join", membershipHandler.JoinChannel)
			channels.POST("/:id/leave", membershipHandler.LeaveChannel)
			channels.POST("/:id/read", membershipHandler.MarkChannelAsRead)
			channels.GET("/:id/unread", membershipHandler.GetUnreadCount)

			channels.GET("/:id/messages", middleware.RequireChannelAccess(), messageHandler.GetMessages)
			channels.POST("/:id/messages", middleware.RequireChannelAccess(), messageHandler.SendMessage)
		}

		// Message routes (protected)
		messages := api.Group("/messages")
		messages.Use(middleware.RequireAuth())
		{
			messages.PATCH("/:id", messageHandler.EditMessage)
			messages.DELETE("/:id", messageHandler.DeleteMessage)
			messages.POST("/:id/reactions", messageHandler.AddReaction)
			messages.DELETE("/:id/reactions/:emoji", messageHandler.RemoveReaction)
		}

		// Notification routes (protected)
		notifications := api.Group("/notifications")
		notifications.Use(middleware.RequireAuth())
		{
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.POST("/:id/read", notificationHandler.MarkRead)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
		}

		// Upload routes (protected)
		api.POST("/uploads", middleware.RequireAuth(), uploadHandler.CreateUploadHandle)
	}

	// Start server
	log.Println("Server starting on :8080")
	if err := r.Run(":8080"); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// seedDefaults creates the default organization and the initial
// superadmin account when no superadmin exists yet. Credentials come
// from ADMIN_USERNAME and ADMIN_PASSWORD.
func seedDefaults(db *gorm.DB, userRepo repository.UserRepository) error {
	orgName := os.Getenv("DEFAULT_ORG_NAME")
	if orgName == "" {
		orgName = "Default Organization"
	}
	var org models.Organization
	if err := db.Where("name = ?", orgName).
		FirstOrCreate(&org, models.Organization{Name: orgName}).Error; err != nil {
		return err
	}

	count, err := userRepo.CountByRole(permissions.RoleSuperAdmin)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "changeme-admin"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &models.User{
		Username:       username,
		PasswordHash:   string(hash),
		Role:           permissions.RoleSuperAdmin,
		Status:         models.UserStatusActive,
		OrganizationID: &org.ID,
	}
	if err := userRepo.Create(admin); err != nil {
		return err
	}

	log.Printf("Seeded superadmin account %q", username)
	return nil
}
