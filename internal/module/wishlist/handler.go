package wishlist

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/soundcraft/server/internal/module/catalog"
	"github.com/soundcraft/server/internal/shared/response"
)

// Service provides wishlist operations.
type Service struct {
	repo     Repository
	products catalog.Repository
}

// NewService creates a new wishlist service.
func NewService(repo Repository, products catalog.Repository) *Service {
	return &Service{repo: repo, products: products}
}

// Add puts a product on the user's wishlist.
func (s *Service) Add(ctx context.Context, userID, productID uuid.UUID) error {
	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		return err
	}
	return s.repo.Add(ctx, &Item{UserID: userID, ProductID: productID})
}

// Remove takes a product off the user's wishlist.
func (s *Service) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	return s.repo.Remove(ctx, userID, productID)
}

// List returns the user's wishlist with product details.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*Item, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Handler handles wishlist HTTP requests.
type Handler struct {
	service *Service
}

// NewHandler creates a new wishlist handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers wishlist routes (authenticated).
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	wishlist := r.Group("/wishlist")
	{
		wishlist.GET("", h.List)
		wishlist.POST("/:productId", h.Add)
		wishlist.DELETE("/:productId", h.Remove)
	}
}

// List returns the caller's wishlist.
func (h *Handler) List(c *gin.Context) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	items, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Add puts a product on the caller's wishlist.
func (h *Handler) Add(c *gin.Context) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		response.BadRequest(c, "invalid product ID")
		return
	}

	if err := h.service.Add(c.Request.Context(), userID, productID); err != nil {
		handleWishlistError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "added"})
}

// Remove takes a product off the caller's wishlist.
func (h *Handler) Remove(c *gin.Context) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		response.BadRequest(c, "invalid product ID")
		return
	}

	if err := h.service.Remove(c.Request.Context(), userID, productID); err != nil {
		handleWishlistError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

func getUserID(c *gin.Context) uuid.UUID {
	if val, exists := c.Get("user_id"); exists {
		if userID, ok := val.(uuid.UUID); ok {
			return userID
		}
	}
	return uuid.Nil
}

func handleWishlistError(c *gin.Context, err error) {
	response.HandleErrorWithDefault(c, err, []response.ErrorMapping{
		{Err: ErrItemNotFound, Status: http.StatusNotFound},
		{Err: catalog.ErrProductNotFound, Status: http.StatusNotFound},
	})
}
