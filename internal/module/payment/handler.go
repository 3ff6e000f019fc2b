package payment

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/soundcraft/server/internal/module/catalog"
	"github.com/soundcraft/server/internal/module/order"
	apperrors "github.com/soundcraft/server/internal/shared/errors"
	"github.com/soundcraft/server/internal/shared/response"
)

// Handler handles payment HTTP requests.
type Handler struct {
	service *Service
}

// NewHandler creates a new payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers authenticated initiation routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	payments := r.Group("/payments")
	{
		payments.POST("/esewa", h.InitiateEsewa)
		payments.POST("/khalti", h.InitiateKhalti)
	}
}

// RegisterCallbackRoutes registers the gateway redirect endpoints.
// These carry no session: the browser arrives from the gateway.
func (h *Handler) RegisterCallbackRoutes(r *gin.RouterGroup) {
	payments := r.Group("/payments")
	{
		payments.GET("/esewa/verify", h.VerifyEsewa)
		payments.GET("/khalti/verify", h.VerifyKhalti)
	}
}

// InitiateEsewa starts an eSewa payment for the caller's items.
func (h *Handler) InitiateEsewa(c *gin.Context) {
	h.initiate(c, order.PaymentMethodEsewa)
}

// InitiateKhalti starts a Khalti payment for the caller's items.
func (h *Handler) InitiateKhalti(c *gin.Context) {
	h.initiate(c, order.PaymentMethodKhalti)
}

func (h *Handler) initiate(c *gin.Context, method order.PaymentMethod) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	var req InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Initiate(c.Request.Context(), userID, method, req.Items)
	if err != nil {
		handlePaymentError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// VerifyEsewa handles the eSewa redirect (?data=<base64 JSON>) and sends
// the browser to the frontend outcome page. Cancelled payments arrive
// without a data parameter; the service turns those into failure
// redirects so the browser never sees a JSON error.
func (h *Handler) VerifyEsewa(c *gin.Context) {
	outcome, err := h.service.VerifyEsewa(c.Request.Context(), c.Query("data"))
	if err != nil {
		handlePaymentError(c, err)
		return
	}
	c.Redirect(http.StatusFound, outcome.RedirectURL)
}

// VerifyKhalti handles the Khalti return callback and sends the browser
// to the frontend outcome page.
func (h *Handler) VerifyKhalti(c *gin.Context) {
	outcome, err := h.service.VerifyKhalti(
		c.Request.Context(),
		c.Query("pidx"),
		c.Query("purchase_order_id"),
	)
	if err != nil {
		handlePaymentError(c, err)
		return
	}
	c.Redirect(http.StatusFound, outcome.RedirectURL)
}

func getUserID(c *gin.Context) uuid.UUID {
	if val, exists := c.Get("user_id"); exists {
		if userID, ok := val.(uuid.UUID); ok {
			return userID
		}
	}
	return uuid.Nil
}

func handlePaymentError(c *gin.Context, err error) {
	if handled := response.HandleError(c, err, []response.ErrorMapping{
		{Err: ErrUnsupportedMethod, Status: http.StatusBadRequest},
		{Err: order.ErrEmptyOrder, Status: http.StatusBadRequest},
		{Err: order.ErrOrderNotFound, Status: http.StatusNotFound},
		{Err: catalog.ErrProductNotFound, Status: http.StatusNotFound},
		{Err: catalog.ErrInsufficientStock, Status: http.StatusConflict},
	}); handled {
		return
	}
	// Upstream gateway failures keep their status so callers can retry.
	response.Error(c, apperrors.GetStatusCode(err), err.Error())
}
