package lesson

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/soundcraft/server/internal/shared/response"
)

// Handler handles lesson HTTP requests.
type Handler struct {
	repo Repository
}

// NewHandler creates a new lesson handler.
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// RegisterRoutes registers public lesson routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	lessons := r.Group("/lessons")
	{
		lessons.GET("", h.List)
		lessons.GET("/:id", h.Get)
	}
}

// RegisterAuthRoutes registers routes requiring authentication.
func (h *Handler) RegisterAuthRoutes(r *gin.RouterGroup) {
	r.POST("/lessons/:id/enroll", h.Enroll)
	r.GET("/me/enrollments", h.MyEnrollments)
}

// RegisterAdminRoutes registers admin lesson routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	lessons := r.Group("/lessons")
	{
		lessons.POST("", h.Create)
		lessons.PUT("/:id", h.Update)
		lessons.DELETE("/:id", h.Delete)
	}
}

type lessonRequest struct {
	Title       string `json:"title" binding:"required"`
	Instrument  string `json:"instrument" binding:"required"`
	Instructor  string `json:"instructor" binding:"required"`
	Description string `json:"description"`
	PricePaisa  int64  `json:"price_paisa" binding:"gte=0"`
	Schedule    string `json:"schedule"`
	Capacity    int    `json:"capacity" binding:"required,gte=1"`
}

// List lists lessons, optionally filtered by instrument.
func (h *Handler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	lessons, total, err := h.repo.List(c.Request.Context(), c.Query("instrument"), offset, limit)
	if err != nil {
		response.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"lessons": lessons, "total": total})
}

// Get returns a lesson with its current enrollment count.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid lesson ID")
		return
	}

	lesson, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		handleLessonError(c, err)
		return
	}

	enrolled, err := h.repo.CountEnrollments(c.Request.Context(), id)
	if err != nil {
		response.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"lesson":   lesson,
		"enrolled": enrolled,
		"free":     int64(lesson.Capacity) - enrolled,
	})
}

// Enroll reserves the caller a place in a lesson.
func (h *Handler) Enroll(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid lesson ID")
		return
	}

	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	enrollment, err := h.repo.Enroll(c.Request.Context(), id, userID)
	if err != nil {
		handleLessonError(c, err)
		return
	}
	c.JSON(http.StatusCreated, enrollment)
}

// MyEnrollments lists the caller's enrollments.
func (h *Handler) MyEnrollments(c *gin.Context) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	enrollments, err := h.repo.ListEnrollments(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"enrollments": enrollments})
}

// Create creates a lesson.
func (h *Handler) Create(c *gin.Context) {
	var req lessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	lesson := &Lesson{
		Title:       req.Title,
		Instrument:  req.Instrument,
		Instructor:  req.Instructor,
		Description: req.Description,
		PricePaisa:  req.PricePaisa,
		Schedule:    req.Schedule,
		Capacity:    req.Capacity,
	}
	if err := h.repo.Create(c.Request.Context(), lesson); err != nil {
		response.InternalError(c, "")
		return
	}
	c.JSON(http.StatusCreated, lesson)
}

// Update updates a lesson.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid lesson ID")
		return
	}

	var req lessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	lesson, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		handleLessonError(c, err)
		return
	}

	lesson.Title = req.Title
	lesson.Instrument = req.Instrument
	lesson.Instructor = req.Instructor
	lesson.Description = req.Description
	lesson.PricePaisa = req.PricePaisa
	lesson.Schedule = req.Schedule
	lesson.Capacity = req.Capacity

	if err := h.repo.Update(c.Request.Context(), lesson); err != nil {
		response.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, lesson)
}

// Delete deletes a lesson.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid lesson ID")
		return
	}

	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		handleLessonError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func getUserID(c *gin.Context) uuid.UUID {
	if val, exists := c.Get("user_id"); exists {
		if userID, ok := val.(uuid.UUID); ok {
			return userID
		}
	}
	return uuid.Nil
}

func handleLessonError(c *gin.Context, err error) {
	response.HandleErrorWithDefault(c, err, []response.ErrorMapping{
		{Err: ErrLessonNotFound, Status: http.StatusNotFound},
		{Err: ErrLessonFull, Status: http.StatusConflict},
		{Err: ErrAlreadyEnrolled, Status: http.StatusConflict},
	})
}
