package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/coursedesk/courseapi/internal/db"
	"github.com/coursedesk/courseapi/internal/models"
)

type createCourseRequest struct {
	Title           string  `json:"title" binding:"required"`
	Description     string  `json:"description" binding:"required"`
	EstimatedTime   *string `json:"estimatedTime"`
	MaterialsNeeded *string `json:"materialsNeeded"`
	UserID          int     `json:"userId" binding:"required"`
}

type updateCourseRequest struct {
	Title           string  `json:"title" binding:"required"`
	Description     string  `json:"description" binding:"required"`
	EstimatedTime   *string `json:"estimatedTime"`
	MaterialsNeeded *string `json:"materialsNeeded"`
}

func (h *Handler) handleListCourses(c *gin.Context) {
	courses, err := h.store.ListCourses(c.Request.Context())
	if err != nil {
		h.logger.Error("list courses", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	c.JSON(http.StatusOK, courses)
}

func (h *Handler) handleGetCourse(c *gin.Context) {
	id, ok := courseID(c)
	if !ok {
		return
	}

	course, err := h.store.GetCourse(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Course was not found"})
			return
		}
		h.logger.Error("fetch course", zap.Error(err), zap.Int("id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	c.JSON(http.StatusOK, course)
}

func (h *Handler) handleCreateCourse(c *gin.Context) {
	var req createCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, bindingErrorMessages(err))
		return
	}

	course := models.Course{
		Title:           req.Title,
		Description:     req.Description,
		EstimatedTime:   req.EstimatedTime,
		MaterialsNeeded: req.MaterialsNeeded,
		UserID:          req.UserID,
	}

	if err := h.store.CreateCourse(c.Request.Context(), &course); err != nil {
		var verr *db.ValidationError
		if errors.As(err, &verr) {
			writeValidationError(c, verr.Messages)
			return
		}
		h.logger.Error("create course", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something broke on our end. Try again later."})
		return
	}

	c.Header("Location", fmt.Sprintf("/api/courses/%d", course.ID))
	c.Status(http.StatusCreated)
}

// handleUpdateCourse fully replaces the four mutable fields; the
// owner and id are never touched. Any authenticated user may update
// any course.
func (h *Handler) handleUpdateCourse(c *gin.Context) {
	id, ok := courseID(c)
	if !ok {
		return
	}

	course, err := h.store.GetCourse(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Course was not found"})
			return
		}
		h.logger.Error("fetch course", zap.Error(err), zap.Int("id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something broke on our end. Try again later."})
		return
	}

	var req updateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, bindingErrorMessages(err))
		return
	}

	course.Title = req.Title
	course.Description = req.Description
	course.EstimatedTime = req.EstimatedTime
	course.MaterialsNeeded = req.MaterialsNeeded

	if err := h.store.UpdateCourse(c.Request.Context(), course); err != nil {
		var verr *db.ValidationError
		if errors.As(err, &verr) {
			writeValidationError(c, verr.Messages)
			return
		}
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Course was not found"})
			return
		}
		h.logger.Error("update course", zap.Error(err), zap.Int("id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something broke on our end. Try again later."})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) handleDeleteCourse(c *gin.Context) {
	id, ok := courseID(c)
	if !ok {
		return
	}

	if _, err := h.store.GetCourse(c.Request.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Course was not found"})
			return
		}
		h.logger.Error("fetch course", zap.Error(err), zap.Int("id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	if err := h.store.DeleteCourse(c.Request.Context(), id); err != nil && !errors.Is(err, db.ErrNotFound) {
		h.logger.Error("delete course", zap.Error(err), zap.Int("id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// courseID parses the :id path parameter. A non-numeric id is
// indistinguishable from a missing course and yields 404.
func courseID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Course was not found"})
		return 0, false
	}
	return id, true
}
