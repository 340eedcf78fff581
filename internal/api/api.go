// Package api implements the HTTP surface: route registration, the
// user and course handlers, and the JSON error contracts.
package api

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/coursedesk/courseapi/internal/auth"
	"github.com/coursedesk/courseapi/internal/models"
)

// Store is the persistence surface the handlers depend on.
// Implemented by *db.Postgres; faked in tests.
type Store interface {
	auth.UserFinder
	CreateUser(ctx context.Context, user *models.User) error
	ListCourses(ctx context.Context) ([]models.Course, error)
	GetCourse(ctx context.Context, id int) (*models.Course, error)
	CreateCourse(ctx context.Context, course *models.Course) error
	UpdateCourse(ctx context.Context, course *models.Course) error
	DeleteCourse(ctx context.Context, id int) error
}

type Handler struct {
	store  Store
	logger *zap.Logger
}

var bindingSetup sync.Once

func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Report validation failures by JSON field name rather than Go
	// struct field name.
	bindingSetup.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(func(fld reflect.StructField) string {
				name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
				if name == "-" {
					return ""
				}
				return name
			})
		}
	})

	return &Handler{store: store, logger: logger}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.handleRoot)
	router.GET("/health", h.handleHealth)

	apiGroup := router.Group("/api")

	apiGroup.GET("/users", auth.Authenticate(h.store), h.handleGetCurrentUser)
	apiGroup.POST("/users", h.handleCreateUser)

	apiGroup.GET("/courses", h.handleListCourses)
	apiGroup.GET("/courses/:id", h.handleGetCourse)
	apiGroup.POST("/courses", auth.Authenticate(h.store), h.handleCreateCourse)
	apiGroup.PUT("/courses/:id", auth.Authenticate(h.store), h.handleUpdateCourse)
	apiGroup.DELETE("/courses/:id", auth.Authenticate(h.store), h.handleDeleteCourse)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Route Not Found"})
	})
}

func (h *Handler) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the REST API project!"})
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// writeValidationError emits the 400 contract: a fixed message plus
// one entry per failing field.
func writeValidationError(c *gin.Context, messages []string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"message": "Validation error",
		"errors":  messages,
	})
}

// bindingErrorMessages flattens a ShouldBindJSON error into per-field
// messages. Non-validator errors (malformed JSON, wrong types) get a
// single generic entry.
func bindingErrorMessages(err error) []string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		messages := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			messages = append(messages, fieldMessage(fe))
		}
		return messages
	}

	return []string{"request body is not valid JSON"}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	default:
		return fe.Field() + " is invalid"
	}
}
