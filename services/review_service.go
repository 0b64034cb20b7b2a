package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/playnow/reservas-api/models"
	"github.com/playnow/reservas-api/repositories"
)

type ReviewService interface {
	Create(ctx context.Context, input CreateReviewInput, userID *int) (*models.Review, error)
	List(ctx context.Context) ([]models.Review, error)
	Get(ctx context.Context, id int) (*models.Review, error)
	Delete(ctx context.Context, id int, userID int, role string) error
}

type CreateReviewInput struct {
	Name    string `json:"nombre"`
	Rating  int    `json:"rating"`
	Comment string `json:"comentario"`
}

type reviewService struct {
	reviewRepo repositories.ReviewRepository
}

func NewReviewService(reviewRepo repositories.ReviewRepository) ReviewService {
	return &reviewService{reviewRepo: reviewRepo}
}

func (s *reviewService) Create(ctx context.Context, input CreateReviewInput, userID *int) (*models.Review, error) {
	if input.Rating == 0 || strings.TrimSpace(input.Comment) == "" {
		return nil, ErrCommentRequired
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, ErrRatingOutOfRange
	}

	name := strings.TrimSpace(input.Name)
	if userID == nil && name == "" {
		return nil, ErrReviewAuthorRequired
	}

	review := &models.Review{
		UserID:  userID,
		Name:    name,
		Rating:  input.Rating,
		Comment: strings.TrimSpace(input.Comment),
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	return review, nil
}

func (s *reviewService) List(ctx context.Context) ([]models.Review, error) {
	return s.reviewRepo.ListAllWithUsers(ctx)
}

func (s *reviewService) Get(ctx context.Context, id int) (*models.Review, error) {
	review, err := s.reviewRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrReviewNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return review, nil
}

// Delete removes a review. Admins can delete any review, regular users
// only their own.
func (s *reviewService) Delete(ctx context.Context, id int, userID int, role string) error {
	review, err := s.reviewRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrReviewNotFound) {
			return ErrReviewNotFound
		}
		return err
	}

	if role != models.RoleAdmin {
		if review.UserID == nil || *review.UserID != userID {
			return ErrForbiddenOperation
		}
	}

	if err := s.reviewRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrReviewNotFound) {
			return ErrReviewNotFound
		}
		return err
	}
	return nil
}
