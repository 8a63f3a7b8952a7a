package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"studentconnect/config"
	"studentconnect/internal/domain"
	"studentconnect/internal/handler"
	"studentconnect/internal/middleware"
	"studentconnect/internal/repository"
	"studentconnect/internal/service"
	"studentconnect/internal/ws"
	"studentconnect/pkg/cloudinary"
)

// App bundles the wired engine with the pieces main has to run or shut down.
type App struct {
	Engine *gin.Engine
	Stats  *service.StatsService
}

func Setup(cfg *config.Config, db *gorm.DB, cloud cloudinary.Client) (*App, error) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(100, 60*time.Second)))

	// Repositories
	userRepo := repository.NewUserRepository()
	sessionRepo := repository.NewSessionRepository()
	referralRepo := repository.NewReferralRepository()
	reportRepo := repository.NewReportRepository()
	roomRegistry := repository.NewRoomRegistry()

	// Services
	firebaseSvc := service.NewFirebaseService(cfg.Firebase.ServiceAccountPath, cfg.Firebase.DatabaseURL)
	archiveSvc := service.NewArchiveService(db)
	if err := archiveSvc.Load(userRepo, sessionRepo, referralRepo, reportRepo); err != nil {
		return nil, err
	}

	hub := ws.NewHub()
	roomHub := ws.NewRoomHub()

	statsSvc := service.NewStatsService(userRepo, roomRegistry, referralRepo, reportRepo, cfg.Stats.Interval, nil)
	gateway := handler.NewGateway(cfg, hub, roomHub, userRepo, roomRegistry, statsSvc, firebaseSvc, archiveSvc)
	statsSvc.SetPublish(gateway.PublishStats)

	// Handlers
	authHandler := handler.NewAuthHandler(cfg, userRepo, sessionRepo, referralRepo, firebaseSvc, archiveSvc, hub, cloud)
	googleOAuthHandler := handler.NewGoogleOAuthHandler(cfg, userRepo, sessionRepo, firebaseSvc, archiveSvc)
	adminHandler := handler.NewAdminHandler(userRepo, referralRepo, reportRepo, statsSvc, firebaseSvc, archiveSvc, gateway)
	reportHandler := handler.NewReportHandler(userRepo, reportRepo, firebaseSvc, archiveSvc, gateway)
	roomHandler := handler.NewRoomHandler(roomRegistry)

	authMw := middleware.AuthRequired(&cfg.JWT)
	adminMw := middleware.RequireAccountType(domain.AccountAdmin, domain.AccountFounder)
	authLimiter := middleware.RateLimit(middleware.NewInMemoryRateLimiter(10, 60*time.Second))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/validate-referral", authLimiter, authHandler.ValidateReferral)
			authGroup.POST("/register-referral", authLimiter, authHandler.RegisterReferral)
			authGroup.POST("/switch-device", authLimiter, authHandler.SwitchDevice)
			authGroup.POST("/register-email", authLimiter, authHandler.RegisterEmail)
			authGroup.POST("/login-email", authLimiter, authHandler.LoginEmail)
			authGroup.POST("/admin-login", authLimiter, authHandler.AdminLogin)
			authGroup.POST("/upload-visa", authMw, authHandler.UploadVisa)
			authGroup.POST("/upload-avatar", authMw, authHandler.UploadAvatar)
			authGroup.POST("/logout", authMw, authHandler.Logout)
			authGroup.GET("/google", googleOAuthHandler.Redirect)
			authGroup.GET("/google/callback", googleOAuthHandler.Callback)
			authGroup.POST("/google/token", googleOAuthHandler.Token)
		}

		api.GET("/rooms", roomHandler.List)
		api.GET("/rooms/:country/messages", roomHandler.Messages)

		api.POST("/reports", authMw, middleware.RateLimitByUser(middleware.NewInMemoryRateLimiter(5, 60*time.Second)), reportHandler.Create)

		admin := api.Group("/admin")
		admin.Use(authMw, adminMw)
		{
			admin.POST("/generate-referrals", adminHandler.GenerateReferrals)
			admin.GET("/consultancies", adminHandler.ListConsultancies)
			admin.GET("/consultancies/:id", adminHandler.GetConsultancy)
			admin.GET("/stats", adminHandler.PlatformStats)
			admin.GET("/reports", adminHandler.ListReports)
			admin.GET("/users", adminHandler.ListUsers)
			admin.POST("/users/:id/verify-visa", adminHandler.VerifyVisa)
			admin.POST("/users/:id/ban", adminHandler.BanUser)
		}
	}

	r.GET("/ws/chat", handler.UpgradeChatWS(hub, gateway))

	return &App{Engine: r, Stats: statsSvc}, nil
}
