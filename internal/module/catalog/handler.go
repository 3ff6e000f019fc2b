package catalog

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/soundcraft/server/internal/shared/response"
)

// maxImageSize caps product image uploads at 5 MiB.
const maxImageSize = 5 << 20

// Handler handles catalog HTTP requests.
type Handler struct {
	service *Service
}

// NewHandler creates a new catalog handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers public catalog routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	products := r.Group("/products")
	{
		products.GET("", h.ListProducts)
		products.GET("/:id", h.GetProduct)
	}
	r.GET("/categories", h.ListCategories)
}

// RegisterAdminRoutes registers admin catalog routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	products := r.Group("/products")
	{
		products.POST("", h.CreateProduct)
		products.PUT("/:id", h.UpdateProduct)
		products.DELETE("/:id", h.DeleteProduct)
		products.POST("/:id/image", h.UploadProductImage)
	}
	categories := r.Group("/categories")
	{
		categories.POST("", h.CreateCategory)
		categories.PUT("/:id", h.UpdateCategory)
		categories.DELETE("/:id", h.DeleteCategory)
	}
}

// ListProducts lists products with optional filters.
func (h *Handler) ListProducts(c *gin.Context) {
	filter := &ProductFilter{
		Search:  c.Query("search"),
		InStock: c.Query("in_stock") == "true",
	}
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))

	if raw := c.Query("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid category_id")
			return
		}
		filter.CategoryID = &id
	}
	if raw := c.Query("min_price"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.BadRequest(c, "invalid min_price")
			return
		}
		filter.MinPrice = &v
	}
	if raw := c.Query("max_price"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.BadRequest(c, "invalid max_price")
			return
		}
		filter.MaxPrice = &v
	}

	resp, err := h.service.ListProducts(c.Request.Context(), filter)
	if err != nil {
		response.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetProduct returns a product by ID.
func (h *Handler) GetProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid product ID")
		return
	}

	resp, err := h.service.GetProduct(c.Request.Context(), id)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CreateProduct creates a product.
func (h *Handler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// UpdateProduct updates a product.
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid product ID")
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteProduct deletes a product.
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid product ID")
		return
	}

	if err := h.service.DeleteProduct(c.Request.Context(), id); err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// UploadProductImage accepts a multipart image upload for a product.
func (h *Handler) UploadProductImage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid product ID")
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		response.BadRequest(c, "image file required")
		return
	}
	if fileHeader.Size > maxImageSize {
		response.BadRequest(c, "image exceeds 5MB limit")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c, "")
		return
	}
	defer file.Close()

	resp, err := h.service.UploadProductImage(
		c.Request.Context(),
		id,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
		fileHeader.Size,
	)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListCategories lists all categories.
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.service.ListCategories(c.Request.Context())
	if err != nil {
		response.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// CreateCategory creates a category.
func (h *Handler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	category, err := h.service.CreateCategory(c.Request.Context(), &req)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

// UpdateCategory updates a category.
func (h *Handler) UpdateCategory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid category ID")
		return
	}

	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	category, err := h.service.UpdateCategory(c.Request.Context(), id, &req)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// DeleteCategory deletes a category.
func (h *Handler) DeleteCategory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid category ID")
		return
	}

	if err := h.service.DeleteCategory(c.Request.Context(), id); err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func handleCatalogError(c *gin.Context, err error) {
	response.HandleErrorWithDefault(c, err, []response.ErrorMapping{
		{Err: ErrProductNotFound, Status: http.StatusNotFound},
		{Err: ErrCategoryNotFound, Status: http.StatusNotFound},
		{Err: ErrSKUAlreadyExists, Status: http.StatusConflict},
		{Err: ErrCategoryInUse, Status: http.StatusConflict},
		{Err: ErrStorageUnavailable, Status: http.StatusServiceUnavailable},
	})
}
