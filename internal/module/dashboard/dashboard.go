// Package dashboard serves admin overview aggregates: counts, revenue
// by gateway, order volume over time, and low-stock alerts.
package dashboard

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/soundcraft/server/internal/module/catalog"
	"github.com/soundcraft/server/internal/module/order"
	"github.com/soundcraft/server/internal/shared/response"
	"gorm.io/gorm"
)

const (
	defaultLowStockThreshold = 5
	recentOrderLimit         = 10
	volumeWindowDays         = 30
)

// GatewayRevenue is settled revenue attributed to one payment gateway.
type GatewayRevenue struct {
	Gateway     string `json:"gateway"`
	OrderCount  int64  `json:"order_count"`
	AmountPaisa int64  `json:"amount_paisa"`
	Amount      string `json:"amount"`
}

// DailyVolume is order count and settled revenue for one calendar day.
type DailyVolume struct {
	Day         time.Time `json:"day"`
	OrderCount  int64     `json:"order_count"`
	AmountPaisa int64     `json:"amount_paisa"`
}

// Overview is the full dashboard payload.
type Overview struct {
	Users           int64                      `json:"users"`
	Products        int64                      `json:"products"`
	OrdersByStatus  map[string]int64           `json:"orders_by_status"`
	Revenue         []GatewayRevenue           `json:"revenue"`
	RecentOrders    []*order.Response          `json:"recent_orders"`
	LowStock        []*catalog.ProductResponse `json:"low_stock"`
	DailyVolume     []DailyVolume              `json:"daily_volume"`
	PendingOverHour int64                      `json:"pending_over_hour"` // pending orders older than an hour, reconciliation candidates
}

// Repository runs the aggregation queries.
type Repository interface {
	CountUsers(ctx context.Context) (int64, error)
	CountProducts(ctx context.Context) (int64, error)
	OrdersByStatus(ctx context.Context) (map[string]int64, error)
	RevenueByGateway(ctx context.Context) ([]GatewayRevenue, error)
	RecentOrders(ctx context.Context, limit int) ([]*order.Order, error)
	DailyVolume(ctx context.Context, since time.Time) ([]DailyVolume, error)
	CountStalePending(ctx context.Context, olderThan time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a new dashboard repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Table("users").Count(&count).Error
	return count, err
}

func (r *gormRepository) CountProducts(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&catalog.Product{}).Count(&count).Error
	return count, err
}

func (r *gormRepository) OrdersByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&order.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byStatus := make(map[string]int64, len(rows))
	for _, row := range rows {
		byStatus[row.Status] = row.Count
	}
	return byStatus, nil
}

func (r *gormRepository) RevenueByGateway(ctx context.Context) ([]GatewayRevenue, error) {
	var rows []GatewayRevenue
	err := r.db.WithContext(ctx).
		Model(&order.Order{}).
		Select("payment_method AS gateway, COUNT(*) AS order_count, COALESCE(SUM(amount_paisa), 0) AS amount_paisa").
		Where("status = ?", order.OrderStatusCompleted).
		Group("payment_method").
		Order("amount_paisa DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Amount = catalog.FormatRupees(rows[i].AmountPaisa)
	}
	return rows, nil
}

func (r *gormRepository) RecentOrders(ctx context.Context, limit int) ([]*order.Order, error) {
	var orders []*order.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Order("created_at DESC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

func (r *gormRepository) DailyVolume(ctx context.Context, since time.Time) ([]DailyVolume, error) {
	var rows []DailyVolume
	err := r.db.WithContext(ctx).
		Model(&order.Order{}).
		Select("date_trunc('day', created_at) AS day, COUNT(*) AS order_count, COALESCE(SUM(amount_paisa) FILTER (WHERE status = 'completed'), 0) AS amount_paisa").
		Where("created_at >= ?", since).
		Group("day").
		Order("day ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *gormRepository) CountStalePending(ctx context.Context, olderThan time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&order.Order{}).
		Where("status = ? AND created_at < ?", order.OrderStatusPending, olderThan).
		Count(&count).Error
	return count, err
}

// Handler serves the admin dashboard endpoints.
type Handler struct {
	repo     Repository
	products catalog.Repository
}

// NewHandler creates a new dashboard handler.
func NewHandler(repo Repository, products catalog.Repository) *Handler {
	return &Handler{repo: repo, products: products}
}

// RegisterAdminRoutes registers dashboard routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/dashboard", h.Overview)
}

// Overview returns the aggregate dashboard payload.
func (h *Handler) Overview(c *gin.Context) {
	ctx := c.Request.Context()
	now := time.Now()

	threshold := defaultLowStockThreshold
	if raw := c.Query("low_stock_threshold"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			threshold = v
		}
	}

	users, err := h.repo.CountUsers(ctx)
	if err != nil {
		response.InternalError(c, "failed to load dashboard")
		return
	}
	products, err := h.repo.CountProducts(ctx)
	if err != nil {
		response.InternalError(c, "failed to load dashboard")
		return
	}
	byStatus, err := h.repo.OrdersByStatus(ctx)
	if err != nil {
		response.InternalError(c, "failed to load dashboard")
		return
	}
	revenue, err := h.repo.RevenueByGateway(ctx)
	if err != nil {
		response.InternalError(c, "failed to load dashboard")
		return
	}
	recent, err := h.repo.RecentOrders(ctx, recentOrderLimit)
	if err != nil {
		response.InternalError(c, "failed to load dashboard")
		return
	}
	lowStock, err := h.products.LowStock(ctx, threshold, recentOrderLimit)
	if err != nil {
		response.InternalError(c, "failed to load dashboard")
		return
	}
	volume, err := h.repo.DailyVolume(ctx, now.AddDate(0, 0, -volumeWindowDays))
	if err != nil {
		response.InternalError(c, "failed to load dashboard")
		return
	}
	stale, err := h.repo.CountStalePending(ctx, now.Add(-time.Hour))
	if err != nil {
		response.InternalError(c, "failed to load dashboard")
		return
	}

	overview := &Overview{
		Users:           users,
		Products:        products,
		OrdersByStatus:  byStatus,
		Revenue:         revenue,
		RecentOrders:    make([]*order.Response, len(recent)),
		LowStock:        make([]*catalog.ProductResponse, len(lowStock)),
		DailyVolume:     volume,
		PendingOverHour: stale,
	}
	for i, o := range recent {
		overview.RecentOrders[i] = order.ToResponse(o)
	}
	for i, p := range lowStock {
		overview.LowStock[i] = catalog.ToProductResponse(p)
	}

	c.JSON(http.StatusOK, overview)
}
