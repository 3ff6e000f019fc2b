package order

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/soundcraft/server/internal/module/catalog"
	"github.com/soundcraft/server/internal/shared/response"
)

// Handler handles order HTTP requests.
type Handler struct {
	service *Service
}

// NewHandler creates a new order handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers authenticated order routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	orders := r.Group("/orders")
	{
		orders.GET("", h.ListMine)
		orders.GET("/:id", h.Get)
	}
}

// RegisterAdminRoutes registers admin order routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/orders", h.ListAll)
}

// ListMine returns the caller's billing history.
func (h *Handler) ListMine(c *gin.Context) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	resp, err := h.service.ListForUser(c.Request.Context(), userID, offset, limit)
	if err != nil {
		response.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get returns a single order.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid order ID")
		return
	}

	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	resp, err := h.service.Get(c.Request.Context(), id, userID, c.GetBool("is_admin"))
	if err != nil {
		handleOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListAll returns all orders with an optional status filter (admin).
func (h *Handler) ListAll(c *gin.Context) {
	status := OrderStatus(c.Query("status"))
	if status != "" && status != OrderStatusPending && status != OrderStatusCompleted && status != OrderStatusFailed {
		response.BadRequest(c, "invalid status filter")
		return
	}

	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	resp, err := h.service.ListAll(c.Request.Context(), status, offset, limit)
	if err != nil {
		response.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func getUserID(c *gin.Context) uuid.UUID {
	if val, exists := c.Get("user_id"); exists {
		if userID, ok := val.(uuid.UUID); ok {
			return userID
		}
	}
	return uuid.Nil
}

func handleOrderError(c *gin.Context, err error) {
	response.HandleErrorWithDefault(c, err, []response.ErrorMapping{
		{Err: ErrOrderNotFound, Status: http.StatusNotFound},
		{Err: ErrEmptyOrder, Status: http.StatusBadRequest},
		{Err: catalog.ErrProductNotFound, Status: http.StatusNotFound},
		{Err: catalog.ErrInsufficientStock, Status: http.StatusConflict},
	})
}
