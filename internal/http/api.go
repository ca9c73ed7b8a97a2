package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"voice-808/internal/service"
	"voice-808/internal/tts"
)

// Pinger is anything whose reachability is reported by /health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// Options wires the handler to its services and HTTP policy.
type Options struct {
	Users          service.UserService
	Voice          service.VoiceService
	Usage          service.UsageService
	Database       Pinger
	Backend        Pinger
	Logger         *logrus.Logger
	Cookie         CookieConfig
	AllowedOrigins []string
	AuthRateLimit  string
	Development    bool
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users    service.UserService
	voice    service.VoiceService
	usage    service.UsageService
	database Pinger
	backend  Pinger
	log      *logrus.Logger
	cookies  *cookieHelper
	origins  []string
	limiter  gin.HandlerFunc
	dev      bool
}

func NewHandler(opts Options) (*Handler, error) {
	if opts.Users == nil || opts.Voice == nil || opts.Usage == nil {
		return nil, errors.New("handler requires user, voice and usage services")
	}
	if err := registerValidators(); err != nil {
		return nil, err
	}
	limiter, err := rateLimiter(opts.AuthRateLimit)
	if err != nil {
		return nil, fmt.Errorf("auth rate limit: %w", err)
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		users:    opts.Users,
		voice:    opts.Voice,
		usage:    opts.Usage,
		database: opts.Database,
		backend:  opts.Backend,
		log:      log,
		cookies:  newCookieHelper(opts.Cookie),
		origins:  opts.AllowedOrigins,
		limiter:  limiter,
		dev:      opts.Development,
	}, nil
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(h.requestLogger(), secureHeaders(h.dev), corsMiddleware(h.origins))

	router.GET("/health", h.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		auth.POST("/signup", h.limiter, h.signup)
		auth.POST("/login", h.limiter, h.login)
		auth.POST("/logout", h.logout)
		auth.GET("/user", h.requireUser, h.currentUser)
		auth.POST("/api-key", h.requireUser, h.rotateAPIKey)
		auth.DELETE("/account", h.requireUser, h.deleteAccount)

		voice := api.Group("/voice", h.requireUser)
		voice.POST("/generate", h.generate)
		voice.GET("/history", h.history)
		voice.GET("/archive", h.archive)

		api.GET("/user/stats", h.requireUser, h.stats)
		api.GET("/voices", h.listVoices)
	}
}

func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := gin.H{"status": "ok", "database": "ok"}
	status := http.StatusOK

	if h.database != nil {
		if err := h.database.PingContext(ctx); err != nil {
			h.log.WithError(err).Error("health: database ping")
			resp["status"] = "unavailable"
			resp["database"] = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}
	if h.backend != nil {
		resp["tts"] = "ok"
		if err := h.backend.PingContext(ctx); err != nil {
			h.log.WithError(err).Warn("health: tts ping")
			resp["tts"] = "unreachable"
		}
	}

	c.JSON(status, resp)
}

func (h *Handler) listVoices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"voices": tts.Voices()})
}
