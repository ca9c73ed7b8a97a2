package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"github.com/unrolled/secure"

	"voice-808/internal/domain"
	"voice-808/internal/metrics"
)

const (
	userKey      = "user"
	apiKeyHeader = "X-API-Key"
)

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		metrics.ObserveRequest(c.Request.Method, route, status, elapsed)

		entry := h.log.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    status,
			"latency":   elapsed.String(),
			"client_ip": c.ClientIP(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request")
		case status >= http.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

func secureHeaders(development bool) gin.HandlerFunc {
	s := secure.New(secure.Options{
		IsDevelopment:         development,
		ContentTypeNosniff:    true,
		FrameDeny:             true,
		BrowserXssFilter:      true,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	})
	return func(c *gin.Context) {
		if err := s.Process(c.Writer, c.Request); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "request rejected"})
			return
		}
		c.Next()
	}
}

// corsMiddleware echoes allowed origins back with credentials so the
// session cookie works cross-origin. A "*" entry allows any origin.
func corsMiddleware(allowed []string) gin.HandlerFunc {
	set := make(map[string]struct{}, len(allowed))
	allowAll := false
	for _, origin := range allowed {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "*" {
			allowAll = true
			continue
		}
		if origin != "" {
			set[origin] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			_, ok := set[origin]
			if ok || allowAll {
				header := c.Writer.Header()
				header.Set("Access-Control-Allow-Origin", origin)
				header.Set("Access-Control-Allow-Credentials", "true")
				header.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				header.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, "+apiKeyHeader)
				header.Add("Vary", "Origin")
			}
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// rateLimiter limits by client IP. An empty rate disables limiting.
func rateLimiter(formatted string) (gin.HandlerFunc, error) {
	if strings.TrimSpace(formatted) == "" {
		return func(c *gin.Context) { c.Next() }, nil
	}
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	instance := limiter.New(memory.NewStore(), rate)
	return mgin.NewMiddleware(instance,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please try again later"})
		}),
	), nil
}

// requireUser authenticates with the session cookie, falling back to the
// X-API-Key header.
func (h *Handler) requireUser(c *gin.Context) {
	ctx := c.Request.Context()

	if token := h.cookies.token(c); token != "" {
		user, err := h.users.GetUserByToken(ctx, token)
		if err == nil {
			c.Set(userKey, user)
			c.Next()
			return
		}
		if !errors.Is(err, domain.ErrInvalidToken) {
			h.log.WithError(err).Error("authenticate session")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "An error occurred while authenticating"})
			return
		}
		metrics.RecordAuthAttempt("session", false)
		h.cookies.clear(c)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	if key := strings.TrimSpace(c.GetHeader(apiKeyHeader)); key != "" {
		user, err := h.users.GetUserByAPIKey(ctx, key)
		if err == nil {
			c.Set(userKey, user)
			c.Next()
			return
		}
		if !errors.Is(err, domain.ErrInvalidToken) {
			h.log.WithError(err).Error("authenticate api key")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "An error occurred while authenticating"})
			return
		}
		metrics.RecordAuthAttempt("api_key", false)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
		return
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
}

func currentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*domain.User)
	return user
}
