package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/coursedesk/courseapi/internal/auth"
	"github.com/coursedesk/courseapi/internal/db"
	"github.com/coursedesk/courseapi/internal/models"
)

type createUserRequest struct {
	FirstName    string `json:"firstName" binding:"required"`
	LastName     string `json:"lastName" binding:"required"`
	EmailAddress string `json:"emailAddress" binding:"required,email"`
	Password     string `json:"password" binding:"required"`
}

// handleGetCurrentUser returns the authenticated user's full record.
// The record is re-fetched by email address rather than reused from
// the middleware, so a user deleted mid-request surfaces as 404.
func (h *Handler) handleGetCurrentUser(c *gin.Context) {
	current, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Access Denied: Missing credentials"})
		return
	}

	user, err := h.store.GetUserByEmail(c.Request.Context(), current.EmailAddress)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
			return
		}
		h.logger.Error("fetch current user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *Handler) handleCreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, bindingErrorMessages(err))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something broke on our end. Try again later."})
		return
	}

	user := models.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		EmailAddress: req.EmailAddress,
		Password:     hash,
	}

	if err := h.store.CreateUser(c.Request.Context(), &user); err != nil {
		var verr *db.ValidationError
		if errors.As(err, &verr) {
			writeValidationError(c, verr.Messages)
			return
		}
		h.logger.Error("create user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something broke on our end. Try again later."})
		return
	}

	c.Header("Location", "/")
	c.Status(http.StatusCreated)
}
