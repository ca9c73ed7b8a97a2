package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"voice-808/internal/domain"
	"voice-808/internal/metrics"
)

type signupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=6,bcryptlen"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UserResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func userToResponse(user *domain.User) UserResponse {
	return UserResponse{ID: user.ID, Email: user.Email, Name: user.Name}
}

func (h *Handler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": signupMessage(err)})
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.CreateUser(ctx, req.Email, req.Name, req.Password)
	if err != nil {
		metrics.RecordAuthAttempt("signup", false)
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
			return
		}
		if errors.Is(err, domain.ErrPasswordTooLong) {
			c.JSON(http.StatusBadRequest, gin.H{"error": passwordTooLong})
			return
		}
		h.log.WithError(err).Error("signup")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An error occurred during signup"})
		return
	}

	token, err := h.users.CreateAuthToken(ctx, user.ID)
	if err != nil {
		h.log.WithError(err).WithField("user_id", user.ID).Error("signup: create auth token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An error occurred during signup"})
		return
	}
	metrics.RecordAuthAttempt("signup", true)

	h.cookies.set(c, token)
	c.JSON(http.StatusOK, gin.H{
		"user":    userToResponse(user),
		"message": "Account created successfully",
	})
}

const passwordTooLong = "Password must be at most 72 bytes long"

func signupMessage(err error) string {
	for _, fe := range fieldErrors(err) {
		switch {
		case fe.Tag() == "required":
			return "Email, name, and password are required"
		case fe.Field() == "Email":
			return "Invalid email format"
		case fe.Field() == "Password" && fe.Tag() == "bcryptlen":
			return passwordTooLong
		case fe.Field() == "Password":
			return "Password must be at least 6 characters long"
		}
	}
	return "Invalid request body"
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.VerifyPassword(ctx, req.Email, req.Password)
	if err != nil {
		metrics.RecordAuthAttempt("login", false)
		if errors.Is(err, domain.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		h.log.WithError(err).Error("login")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An error occurred during login"})
		return
	}

	token, err := h.users.CreateAuthToken(ctx, user.ID)
	if err != nil {
		h.log.WithError(err).WithField("user_id", user.ID).Error("login: create auth token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An error occurred during login"})
		return
	}
	metrics.RecordAuthAttempt("login", true)

	h.cookies.set(c, token)
	c.JSON(http.StatusOK, gin.H{
		"user":    userToResponse(user),
		"message": "Login successful",
	})
}

func (h *Handler) logout(c *gin.Context) {
	if token := h.cookies.token(c); token != "" {
		if err := h.users.DeleteAuthToken(c.Request.Context(), token); err != nil {
			h.log.WithError(err).Error("logout")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An error occurred during logout"})
			return
		}
	}

	h.cookies.clear(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *Handler) currentUser(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": userToResponse(currentUser(c))})
}

func (h *Handler) rotateAPIKey(c *gin.Context) {
	user := currentUser(c)
	key, err := h.users.RotateAPIKey(c.Request.Context(), user.ID)
	if err != nil {
		h.log.WithError(err).WithField("user_id", user.ID).Error("rotate api key")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An error occurred while issuing the API key"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"apiKey": key})
}

func (h *Handler) deleteAccount(c *gin.Context) {
	user := currentUser(c)
	ctx := c.Request.Context()

	if err := h.users.DeleteUser(ctx, user.ID); err != nil {
		h.log.WithError(err).WithField("user_id", user.ID).Error("delete account")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An error occurred while deleting the account"})
		return
	}

	resp := gin.H{"message": "Account deleted"}
	if err := h.voice.PurgeArchive(ctx, user.ID); err != nil {
		h.log.WithError(err).WithField("user_id", user.ID).Warn("delete account: purge archived audio")
		resp["warnings"] = []string{"archived audio could not be removed"}
	}

	h.cookies.clear(c)
	c.JSON(http.StatusOK, resp)
}
