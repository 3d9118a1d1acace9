package reviews

import (
	"context"
	"errors"
	"fmt"

	"github.com/embercart/embercart-backend/internal/products"
	"github.com/embercart/embercart-backend/pkg/db/models"
	"github.com/embercart/embercart-backend/pkg/enums"
	pkgerrors "github.com/embercart/embercart-backend/pkg/errors"
	"github.com/embercart/embercart-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Actor identifies who is performing a review mutation.
type Actor struct {
	UserID uuid.UUID
	Roles  []string
}

// Service defines review operations.
type Service interface {
	Upsert(ctx context.Context, input UpsertInput) (*models.Review, error)
	Delete(ctx context.Context, actor Actor, reviewID uuid.UUID) error
	ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ReviewList, error)
}

type service struct {
	repo     Repository
	products products.Repository
	tx       txRunner
}

// NewService builds a reviews service with the required dependencies.
func NewService(repo Repository, productsRepo products.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reviews repository required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, products: productsRepo, tx: tx}, nil
}

// Upsert creates the caller's review of a product, or replaces it if one
// already exists. The product's running average and count move in the same
// transaction as the review row.
func (s *service) Upsert(ctx context.Context, input UpsertInput) (*models.Review, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	var result *models.Review
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		productsRepo := s.products.WithTx(tx)

		product, err := productsRepo.FindByID(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading product")
		}
		if product.SellerID == input.UserID {
			return pkgerrors.New(pkgerrors.CodeInvalidOperation, "you cannot review your own product")
		}

		existing, err := repo.FindByProductAndUser(ctx, input.ProductID, input.UserID)
		switch {
		case err == nil:
			if err := repo.Update(ctx, existing.ID, input.Rating, input.Comment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "updating review")
			}
			if err := repo.ApplyRatingChange(ctx, input.ProductID, input.Rating); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "updating rating aggregate")
			}
			existing.Rating = input.Rating
			existing.Comment = input.Comment
			result = existing
			return nil

		case errors.Is(err, gorm.ErrRecordNotFound):
			review := &models.Review{
				ProductID: input.ProductID,
				UserID:    input.UserID,
				Rating:    input.Rating,
				Comment:   input.Comment,
			}
			if err := repo.Create(ctx, review); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "creating review")
			}
			if err := repo.ApplyRatingAdd(ctx, input.ProductID, input.Rating); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "updating rating aggregate")
			}
			result = review
			return nil

		default:
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading review")
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes a review and backs its rating out of the product aggregate.
// The author or an admin may delete.
func (s *service) Delete(ctx context.Context, actor Actor, reviewID uuid.UUID) error {
	if reviewID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "review id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		productsRepo := s.products.WithTx(tx)

		review, err := repo.FindByID(ctx, reviewID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading review")
		}

		if review.UserID != actor.UserID && !enums.ContainsRole(actor.Roles, enums.RoleAdmin) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "you do not own this review")
		}

		// The seller of the product stays out of its reviews entirely,
		// mirroring the ban on the write side.
		product, err := productsRepo.FindByID(ctx, review.ProductID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading product")
		}
		if product != nil && product.SellerID == actor.UserID {
			return pkgerrors.New(pkgerrors.CodeInvalidOperation, "you cannot manage reviews of your own product")
		}

		if err := repo.Delete(ctx, review.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "deleting review")
		}
		if err := repo.ApplyRatingRemove(ctx, review.ProductID, review.Rating); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "updating rating aggregate")
		}
		return nil
	})
}

func (s *service) ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ReviewList, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	rows, total, err := s.repo.ListByProduct(ctx, productID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "listing reviews")
	}
	return &ReviewList{
		Reviews: rows,
		Meta:    pagination.BuildMeta(params, total),
	}, nil
}
