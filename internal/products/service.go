package products

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/embercart/embercart-backend/pkg/config"
	"github.com/embercart/embercart-backend/pkg/db/models"
	"github.com/embercart/embercart-backend/pkg/enums"
	pkgerrors "github.com/embercart/embercart-backend/pkg/errors"
	"github.com/embercart/embercart-backend/pkg/money"
	"github.com/embercart/embercart-backend/pkg/pagination"
	"github.com/embercart/embercart-backend/pkg/storage/cloudinary"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Actor identifies who is performing a catalog mutation.
type Actor struct {
	UserID uuid.UUID
	Roles  []string
}

// Service defines catalog operations.
type Service interface {
	Create(ctx context.Context, input CreateProductInput) (*models.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*ProductList, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, input UpdateProductInput) (*models.Product, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	UploadImage(ctx context.Context, actor Actor, id uuid.UUID, file io.Reader) (*models.Product, error)
}

type service struct {
	repo   Repository
	images cloudinary.ImageHost
	cfg    *config.Config
}

// NewService builds a products service with the required dependencies.
func NewService(repo Repository, images cloudinary.ImageHost, cfg *config.Config) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if images == nil {
		return nil, fmt.Errorf("image host required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	return &service{repo: repo, images: images, cfg: cfg}, nil
}

func (s *service) Create(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity missing")
	}
	if input.Name == "" || input.Category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and category are required")
	}
	if input.Price <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}

	product := &models.Product{
		SellerID:    input.SellerID,
		Name:        input.Name,
		Description: input.Description,
		Category:    input.Category,
		Price:       money.Round2(input.Price),
		Stock:       input.Stock,
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "creating product")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.find(ctx, id)
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*ProductList, error) {
	rows, total, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "listing products")
	}
	return &ProductList{
		Products: rows,
		Meta:     pagination.BuildMeta(params, total),
	}, nil
}

func (s *service) Update(ctx context.Context, actor Actor, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	product, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, product); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Category != nil {
		if *input.Category == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category cannot be empty")
		}
		updates["category"] = *input.Category
	}
	if input.Price != nil {
		if *input.Price <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		updates["price"] = money.Round2(*input.Price)
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
		}
		updates["stock"] = *input.Stock
	}

	if len(updates) > 0 {
		if err := s.repo.Updates(ctx, id, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "updating product")
		}
	}
	return s.find(ctx, id)
}

func (s *service) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	product, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(actor, product); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "deleting product")
	}
	if product.ImagePublicID != nil {
		_ = s.images.Delete(ctx, *product.ImagePublicID)
	}
	return nil
}

func (s *service) UploadImage(ctx context.Context, actor Actor, id uuid.UUID, file io.Reader) (*models.Product, error) {
	product, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, product); err != nil {
		return nil, err
	}

	result, err := s.images.Upload(ctx, s.cfg.Cloudinary.ProductFolder, file)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpload, err, "uploading product image")
	}

	updates := map[string]any{
		"image_url":       result.URL,
		"image_public_id": result.PublicID,
	}
	if err := s.repo.Updates(ctx, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "saving product image")
	}

	if product.ImagePublicID != nil && *product.ImagePublicID != result.PublicID {
		_ = s.images.Delete(ctx, *product.ImagePublicID)
	}

	return s.find(ctx, id)
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading product")
	}
	return product, nil
}

// authorize allows the owning seller or an admin to mutate a listing.
func (s *service) authorize(actor Actor, product *models.Product) error {
	if enums.ContainsRole(actor.Roles, enums.RoleAdmin) {
		return nil
	}
	if product.SellerID == actor.UserID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "you do not own this product")
}
