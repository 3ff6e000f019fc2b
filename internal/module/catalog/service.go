package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/soundcraft/server/internal/shared/metrics"
	"github.com/soundcraft/server/internal/shared/storage"
	"go.uber.org/zap"
)

const (
	productListCacheTTL    = 60 * time.Second
	productListCachePrefix = "catalog:products:"
	categoryListCacheKey   = "catalog:categories"
)

// Service provides catalog operations with a Redis read cache in front of
// product listings. Writes invalidate the cache.
type Service struct {
	repo    Repository
	redis   redis.UniversalClient
	storage *storage.Client
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewService creates a new catalog service.
func NewService(repo Repository, redisClient redis.UniversalClient, store *storage.Client, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		redis:   redisClient,
		storage: store,
		metrics: m,
		logger:  logger,
	}
}

// --- Products ---

// ListProducts lists products, serving repeated queries from Redis.
func (s *Service) ListProducts(ctx context.Context, filter *ProductFilter) (*ProductListResponse, error) {
	filter.Limit = clampLimit(filter.Limit)

	cacheKey := productListCachePrefix + filter.cacheKey()
	if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
		var resp ProductListResponse
		if err := json.Unmarshal([]byte(cached), &resp); err == nil {
			s.metrics.CacheHitsTotal.WithLabelValues("product_list").Inc()
			return &resp, nil
		}
	}
	s.metrics.CacheMissesTotal.WithLabelValues("product_list").Inc()

	products, total, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return nil, err
	}

	resp := &ProductListResponse{
		Products: make([]*ProductResponse, len(products)),
		Total:    total,
	}
	for i, p := range products {
		resp.Products[i] = ToProductResponse(p)
	}

	if data, err := json.Marshal(resp); err == nil {
		if err := s.redis.Set(ctx, cacheKey, data, productListCacheTTL).Err(); err != nil {
			s.logger.Debug("failed to cache product list", zap.Error(err))
		}
	}
	return resp, nil
}

// GetProduct returns a single product.
func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToProductResponse(p), nil
}

// CreateProduct creates a product (admin).
func (s *Service) CreateProduct(ctx context.Context, req *CreateProductRequest) (*ProductResponse, error) {
	if _, err := s.repo.GetCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	p := &Product{
		Name:        req.Name,
		Model:       req.Model,
		SKU:         req.SKU,
		Description: req.Description,
		PricePaisa:  req.PricePaisa,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
	}
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}

	s.invalidateProductCache(ctx)
	return ToProductResponse(p), nil
}

// UpdateProduct updates a product (admin). Only non-nil fields change.
func (s *Service) UpdateProduct(ctx context.Context, id uuid.UUID, req *UpdateProductRequest) (*ProductResponse, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Model != nil {
		p.Model = *req.Model
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.PricePaisa != nil {
		p.PricePaisa = *req.PricePaisa
	}
	if req.Stock != nil {
		p.Stock = *req.Stock
	}
	if req.CategoryID != nil {
		if _, err := s.repo.GetCategory(ctx, *req.CategoryID); err != nil {
			return nil, err
		}
		p.CategoryID = *req.CategoryID
		p.Category = nil
	}

	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}

	s.invalidateProductCache(ctx)
	return ToProductResponse(p), nil
}

// DeleteProduct deletes a product (admin).
func (s *Service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.invalidateProductCache(ctx)
	return nil
}

// UploadProductImage stores the image in object storage and saves its
// public URL on the product.
func (s *Service) UploadProductImage(ctx context.Context, id uuid.UUID, filename, contentType string, body io.Reader, size int64) (*ProductResponse, error) {
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}

	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(filename)
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}
	key := fmt.Sprintf("products/%s/%s%s", p.ID, uuid.New().String(), ext)

	url, err := s.storage.Upload(ctx, key, contentType, body, size)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	p.ImageURL = url
	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}

	s.invalidateProductCache(ctx)
	return ToProductResponse(p), nil
}

// --- Categories ---

// ListCategories lists categories, cached in Redis.
func (s *Service) ListCategories(ctx context.Context) ([]*Category, error) {
	if cached, err := s.redis.Get(ctx, categoryListCacheKey).Result(); err == nil {
		var categories []*Category
		if err := json.Unmarshal([]byte(cached), &categories); err == nil {
			s.metrics.CacheHitsTotal.WithLabelValues("category_list").Inc()
			return categories, nil
		}
	}
	s.metrics.CacheMissesTotal.WithLabelValues("category_list").Inc()

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(categories); err == nil {
		if err := s.redis.Set(ctx, categoryListCacheKey, data, productListCacheTTL).Err(); err != nil {
			s.logger.Debug("failed to cache categories", zap.Error(err))
		}
	}
	return categories, nil
}

// CreateCategory creates a category (admin).
func (s *Service) CreateCategory(ctx context.Context, req *CreateCategoryRequest) (*Category, error) {
	c := &Category{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
	}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	s.invalidateCategoryCache(ctx)
	return c, nil
}

// UpdateCategory updates a category (admin).
func (s *Service) UpdateCategory(ctx context.Context, id uuid.UUID, req *CreateCategoryRequest) (*Category, error) {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	c.Name = req.Name
	c.Slug = req.Slug
	c.Description = req.Description
	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}
	s.invalidateCategoryCache(ctx)
	return c, nil
}

// DeleteCategory deletes an empty category (admin).
func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.invalidateCategoryCache(ctx)
	return nil
}

// --- Cache invalidation ---

func (s *Service) invalidateProductCache(ctx context.Context) {
	iter := s.redis.Scan(ctx, 0, productListCachePrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn("product cache scan failed", zap.Error(err))
		return
	}
	if len(keys) > 0 {
		if err := s.redis.Del(ctx, keys...).Err(); err != nil {
			s.logger.Warn("product cache invalidation failed", zap.Error(err))
		}
	}
}

func (s *Service) invalidateCategoryCache(ctx context.Context) {
	if err := s.redis.Del(ctx, categoryListCacheKey).Err(); err != nil {
		s.logger.Warn("category cache invalidation failed", zap.Error(err))
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
