package contact

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/soundcraft/server/internal/shared/response"
	"gorm.io/gorm"
)

// ErrSubmissionNotFound is returned when a submission doesn't exist.
var ErrSubmissionNotFound = errors.New("submission not found")

// Submission is a message sent through the public contact form.
type Submission struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name       string     `json:"name" gorm:"not null"`
	Email      string     `json:"email" gorm:"not null"`
	Message    string     `json:"message" gorm:"not null"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TableName returns the database table name.
func (Submission) TableName() string {
	return "contact_submissions"
}

// Repository defines contact submission data access.
type Repository interface {
	Create(ctx context.Context, s *Submission) error
	List(ctx context.Context, unresolvedOnly bool, offset, limit int) ([]*Submission, int64, error)
	Resolve(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new contact repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, s *Submission) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

func (r *repository) List(ctx context.Context, unresolvedOnly bool, offset, limit int) ([]*Submission, int64, error) {
	query := r.db.WithContext(ctx).Model(&Submission{})
	if unresolvedOnly {
		query = query.Where("resolved_at IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}

	var submissions []*Submission
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&submissions).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, total, nil
}

func (r *repository) Resolve(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&Submission{}).
		Where("id = ? AND resolved_at IS NULL", id).
		Update("resolved_at", time.Now())
	if result.Error != nil {
		return fmt.Errorf("resolve submission: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSubmissionNotFound
	}
	return nil
}

// Handler handles contact form HTTP requests.
type Handler struct {
	repo Repository
}

// NewHandler creates a new contact handler.
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// RegisterRoutes registers the public submit route.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/contact", h.Submit)
}

// RegisterAdminRoutes registers admin submission routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/contact", h.List)
	r.PUT("/contact/:id/resolve", h.Resolve)
}

type submitRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Message string `json:"message" binding:"required,max=5000"`
}

// Submit accepts a contact form submission.
func (h *Handler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	submission := &Submission{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	}
	if err := h.repo.Create(c.Request.Context(), submission); err != nil {
		response.InternalError(c, "")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "received", "id": submission.ID})
}

// List lists submissions (admin).
func (h *Handler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	submissions, total, err := h.repo.List(
		c.Request.Context(),
		c.Query("unresolved") == "true",
		offset, limit,
	)
	if err != nil {
		response.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": submissions, "total": total})
}

// Resolve marks a submission handled (admin).
func (h *Handler) Resolve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid submission ID")
		return
	}

	if err := h.repo.Resolve(c.Request.Context(), id); err != nil {
		response.HandleErrorWithDefault(c, err, []response.ErrorMapping{
			{Err: ErrSubmissionNotFound, Status: http.StatusNotFound},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resolved"})
}
