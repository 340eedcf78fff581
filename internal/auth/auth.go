// Package auth implements password hashing and the Basic Auth
// middleware guarding write routes.
package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/coursedesk/courseapi/internal/db"
	"github.com/coursedesk/courseapi/internal/models"
)

const userContextKey = "currentUser"

// UserFinder resolves a user by exact email address. Implemented by
// the postgres store.
type UserFinder interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// HashPassword irreversibly transforms a raw password into a salted
// bcrypt hash. Hashing is an explicit step invoked by the create
// operation, never a side effect of assignment.
func HashPassword(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a raw password against a stored hash.
func CheckPassword(hash, raw string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw))
}

// Authenticate returns middleware that resolves Basic Auth
// credentials (emailAddress:password) against the store and attaches
// the matched user to the request context. It holds no state and is
// re-evaluated on every guarded request.
func Authenticate(store UserFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, password, ok := c.Request.BasicAuth()
		if !ok || email == "" || password == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Access Denied: Missing credentials"})
			return
		}

		user, err := store.GetUserByEmail(c.Request.Context(), email)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Access Denied: User not found"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Internal Server Error"})
			return
		}

		if err := CheckPassword(user.Password, password); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Access Denied: Invalid credentials"})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// CurrentUser returns the user attached by Authenticate.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(userContextKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}
