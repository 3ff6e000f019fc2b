package review

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/soundcraft/server/internal/module/catalog"
	"github.com/soundcraft/server/internal/shared/response"
)

// Handler handles review HTTP requests.
type Handler struct {
	service *Service
}

// NewHandler creates a new review handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers public review routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/products/:id/reviews", h.ListForProduct)
}

// RegisterAuthRoutes registers routes requiring authentication.
func (h *Handler) RegisterAuthRoutes(r *gin.RouterGroup) {
	r.POST("/products/:id/reviews", h.Submit)
	r.DELETE("/reviews/:id", h.Delete)
}

type submitRequest struct {
	Rating  int    `json:"rating" binding:"required,gte=1,lte=5"`
	Comment string `json:"comment"`
}

// Submit creates or updates the caller's review of a product.
func (h *Handler) Submit(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid product ID")
		return
	}

	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	review, err := h.service.Submit(c.Request.Context(), userID, productID, req.Rating, req.Comment)
	if err != nil {
		handleReviewError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

// ListForProduct lists reviews for a product.
func (h *Handler) ListForProduct(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid product ID")
		return
	}

	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	resp, err := h.service.ListForProduct(c.Request.Context(), productID, offset, limit)
	if err != nil {
		handleReviewError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete removes a review (owner or admin).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid review ID")
		return
	}

	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, userID, c.GetBool("is_admin")); err != nil {
		handleReviewError(c, err)
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

func handleReviewError(c *gin.Context, err error) {
	response.HandleErrorWithDefault(c, err, []response.ErrorMapping{
		{Err: ErrReviewNotFound, Status: http.StatusNotFound},
		{Err: ErrNotOwner, Status: http.StatusForbidden},
		{Err: catalog.ErrProductNotFound, Status: http.StatusNotFound},
	})
}
