package review

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/soundcraft/server/internal/module/catalog"
	"github.com/soundcraft/server/internal/module/user"
)

// ErrNotOwner is returned when a user tries to delete someone else's review.
var ErrNotOwner = errors.New("not the review owner")

// Service provides review operations.
type Service struct {
	repo     Repository
	products catalog.Repository
	users    user.Repository
}

// NewService creates a new review service.
func NewService(repo Repository, products catalog.Repository, users user.Repository) *Service {
	return &Service{repo: repo, products: products, users: users}
}

// Submit creates or replaces the user's review of a product.
func (s *Service) Submit(ctx context.Context, userID, productID uuid.UUID, rating int, comment string) (*Review, error) {
	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	review := &Review{
		ProductID: productID,
		UserID:    userID,
		UserName:  u.Name,
		Rating:    rating,
		Comment:   comment,
	}
	if err := s.repo.Upsert(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

// ListForProduct returns a page of reviews plus the rating summary.
func (s *Service) ListForProduct(ctx context.Context, productID uuid.UUID, offset, limit int) (*ListResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	reviews, total, err := s.repo.ListByProduct(ctx, productID, offset, limit)
	if err != nil {
		return nil, err
	}

	avg, count, err := s.repo.AverageRating(ctx, productID)
	if err != nil {
		return nil, err
	}

	return &ListResponse{
		Reviews:       reviews,
		Total:         total,
		AverageRating: avg,
		RatingCount:   count,
	}, nil
}

// Delete removes a review. Only the owner or an admin may delete.
func (s *Service) Delete(ctx context.Context, id, requesterID uuid.UUID, isAdmin bool) error {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if review.UserID != requesterID && !isAdmin {
		return ErrNotOwner
	}
	return s.repo.Delete(ctx, id)
}

// ListResponse is a page of reviews with the aggregate rating.
type ListResponse struct {
	Reviews       []*Review `json:"reviews"`
	Total         int64     `json:"total"`
	AverageRating float64   `json:"average_rating"`
	RatingCount   int64     `json:"rating_count"`
}
