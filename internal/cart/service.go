package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/embercart/embercart-backend/internal/products"
	"github.com/embercart/embercart-backend/pkg/db/models"
	pkgerrors "github.com/embercart/embercart-backend/pkg/errors"
	"github.com/embercart/embercart-backend/pkg/money"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines cart operations.
type Service interface {
	AdjustLine(ctx context.Context, input AdjustInput) (*View, error)
	RemoveLine(ctx context.Context, userID, productID uuid.UUID) (*View, error)
	Get(ctx context.Context, userID uuid.UUID) (*View, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo     Repository
	products products.Repository
	tx       txRunner
}

// NewService builds a cart service with the required dependencies.
func NewService(repo Repository, productsRepo products.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, products: productsRepo, tx: tx}, nil
}

// AdjustLine applies a signed quantity delta to one cart line and keeps the
// stored cart total in sync inside the same transaction. The delta can never
// drive a line below zero; landing exactly on zero removes the line.
func (s *service) AdjustLine(ctx context.Context, input AdjustInput) (*View, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity delta cannot be zero")
	}

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

		currentQty := 0
		var line *models.CartItem
		line, err = repo.FindLine(ctx, input.UserID, input.ProductID)
		switch {
		case err == nil:
			currentQty = line.Quantity
		case errors.Is(err, gorm.ErrRecordNotFound):
			line = nil
		default:
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading cart line")
		}

		newQty := currentQty + input.Delta
		if newQty < 0 {
			return pkgerrors.New(pkgerrors.CodeInvalidOperation, "cannot remove more units than the cart holds")
		}
		if newQty > product.Stock {
			return pkgerrors.New(pkgerrors.CodeInvalidOperation, "requested quantity exceeds available stock")
		}

		switch {
		case newQty == 0:
			if line != nil {
				if err := repo.DeleteLine(ctx, line.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "removing cart line")
				}
			}
		case line == nil:
			newLine := &models.CartItem{
				UserID:    input.UserID,
				ProductID: input.ProductID,
				Quantity:  newQty,
			}
			if err := repo.CreateLine(ctx, newLine); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "creating cart line")
			}
		default:
			if err := repo.UpdateLineQuantity(ctx, line.ID, newQty); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "updating cart line")
			}
		}

		totalDelta := money.MulRound2(product.Price, input.Delta)
		if err := repo.AdjustCartTotal(ctx, input.UserID, totalDelta); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "updating cart total")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, input.UserID)
}

// RemoveLine drops an entire line regardless of its quantity.
func (s *service) RemoveLine(ctx context.Context, userID, productID uuid.UUID) (*View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		productsRepo := s.products.WithTx(tx)

		line, err := repo.FindLine(ctx, userID, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading cart line")
		}

		product, err := productsRepo.FindByID(ctx, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading product")
		}

		if err := repo.DeleteLine(ctx, line.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "removing cart line")
		}

		totalDelta := money.MulRound2(product.Price, -line.Quantity)
		if err := repo.AdjustCartTotal(ctx, userID, totalDelta); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "updating cart total")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, userID)
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	lines, err := s.repo.ListLines(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "listing cart lines")
	}

	view := &View{Items: make([]Line, 0, len(lines))}
	for _, line := range lines {
		product, err := s.products.FindByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Listing was deleted out from under the cart; skip the line.
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading product")
		}
		view.Items = append(view.Items, Line{
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    line.Quantity,
			LineTotal:   money.MulRound2(product.Price, line.Quantity),
			ImageURL:    product.ImageURL,
			Stock:       product.Stock,
		})
	}

	total, err := s.repo.GetCartTotal(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading cart total")
	}
	view.Total = total
	return view, nil
}

// Clear removes every line and zeroes the stored total in one transaction.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteAllLines(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "clearing cart lines")
		}
		if err := repo.ResetCartTotal(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "resetting cart total")
		}
		return nil
	})
}
