package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// AuthCookie carries the session token.
const AuthCookie = "auth-token"

// CookieConfig controls the attributes of the session cookie.
type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

type cookieHelper struct {
	secure bool
	maxAge int
}

func newCookieHelper(cfg CookieConfig) *cookieHelper {
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 30 * 24 * time.Hour
	}
	return &cookieHelper{secure: cfg.Secure, maxAge: int(maxAge.Seconds())}
}

func (h *cookieHelper) set(c *gin.Context, token string) {
	h.write(c, token, h.maxAge)
}

func (h *cookieHelper) clear(c *gin.Context) {
	h.write(c, "", -1)
}

func (h *cookieHelper) token(c *gin.Context) string {
	token, err := c.Cookie(AuthCookie)
	if err != nil {
		return ""
	}
	return token
}

func (h *cookieHelper) write(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AuthCookie, value, maxAge, "/", "", h.secure, true)
}
