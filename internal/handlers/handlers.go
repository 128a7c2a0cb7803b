package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"pixelmint/api/internal/cache"
	"pixelmint/api/internal/config"
	"pixelmint/api/internal/inference"
	"pixelmint/api/internal/middleware"
	"pixelmint/api/internal/models"
	"pixelmint/api/internal/repository"
	"pixelmint/api/internal/service"
	"pixelmint/api/internal/storage"
)

type HandlerSet struct {
	log        zerolog.Logger
	cfg        *config.AppConfig
	auth       *service.AuthService
	generation *service.GenerationService
	credits    *service.CreditService
	gallery    *service.GalleryService
	limiter    *cache.RateLimiter
	db         *pgxpool.Pool
	cache      *redis.Client
	store      *storage.ObjectStore
	users      *repository.UserRepository
	sessions   *repository.SessionRepository
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cacheClient *redis.Client, store *storage.ObjectStore, limiter *cache.RateLimiter, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	imageRepo := repository.NewImageRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	states := cache.NewOAuthStateStore(cacheClient)
	generator := inference.NewClient(cfg.Inference)

	return HandlerSet{
		log:        log,
		cfg:        cfg,
		auth:       service.NewAuthService(userRepo, sessionRepo, states, cfg, log),
		generation: service.NewGenerationService(userRepo, imageRepo, store, generator, log),
		credits:    service.NewCreditService(userRepo, ledgerRepo),
		gallery:    service.NewGalleryService(imageRepo, store, log),
		limiter:    limiter,
		db:         db,
		cache:      cacheClient,
		store:      store,
		users:      userRepo,
		sessions:   sessionRepo,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", h.RegisterUser)
	auth.POST("/login", h.Login)
	auth.POST("/refresh", h.Refresh)
	auth.POST("/logout", h.Logout)
	auth.GET("/social/:provider/start", h.SocialStart)
	auth.GET("/social/:provider/callback", h.SocialCallback)

	authed := v1.Group("/auth")
	authed.Use(middleware.Auth(h.cfg, h.users, h.sessions))
	authed.GET("/me", h.Me)
	authed.GET("/sessions", h.ListSessions)
	authed.DELETE("/sessions/:deviceId", h.RevokeSession)

	v1.GET("/pricing/packs", h.ListCreditPacks)

	images := v1.Group("/images")
	images.Use(middleware.Auth(h.cfg, h.users, h.sessions))
	images.POST("/generate", h.GenerateImage)
	images.GET("", h.ListImages)
	images.DELETE("/:id", h.DeleteImage)

	credits := v1.Group("/credits")
	credits.Use(middleware.Auth(h.cfg, h.users, h.sessions))
	credits.GET("/check", h.CheckCredits)
	credits.POST("/consume", h.ConsumeCredits)
	credits.GET("/history", h.CreditHistory)

	admin := v1.Group("/admin")
	admin.Use(
		middleware.Auth(h.cfg, h.users, h.sessions),
		middleware.RequireRoles(models.UserRoleAdmin),
	)
	admin.GET("/users", h.AdminListUsers)
	admin.POST("/credits/grant", h.AdminGrantCredits)
	admin.GET("/credits/ledger", h.AdminCreditLedger)
}

func currentUser(c *gin.Context) (models.User, bool) {
	userVal, exists := c.Get("current_user")
	if !exists {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return models.User{}, false
	}
	user, ok := userVal.(models.User)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_user"})
		return models.User{}, false
	}
	return user, true
}

// respondServiceError converts service and repository failures into the HTTP
// contract. Internal details never reach the caller.
func (h HandlerSet) respondServiceError(c *gin.Context, err error) {
	var validation *service.ValidationError
	if errors.As(err, &validation) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "invalid input",
			"issues": validation.Issues,
		})
		return
	}

	var insufficient *service.InsufficientCreditsError
	if errors.As(err, &insufficient) {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":   "insufficient_credits",
			"credits": insufficient.Credits,
		})
		return
	}

	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user_not_found"})
	case errors.Is(err, repository.ErrImageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "image_not_found"})
	case errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "email_taken"})
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrPasswordLoginUnset):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
	case errors.Is(err, service.ErrUnknownProvider):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_provider"})
	case errors.Is(err, service.ErrInvalidOAuthState):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_oauth_state"})
	case errors.Is(err, service.ErrNoProviderEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": "provider_email_unavailable"})
	case errors.Is(err, inference.ErrProviderStatus):
		c.JSON(http.StatusBadGateway, gin.H{"error": "provider_error"})
	case errors.Is(err, inference.ErrUnrecognizedResponse):
		c.JSON(http.StatusBadGateway, gin.H{"error": "provider_response_not_recognized"})
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
	}
}
