package products

import (
	"github.com/embercart/embercart-backend/pkg/db/models"
	"github.com/embercart/embercart-backend/pkg/pagination"
	"github.com/google/uuid"
)

// CreateProductInput carries the fields a seller provides for a new listing.
type CreateProductInput struct {
	SellerID    uuid.UUID
	Name        string
	Description string
	Category    string
	Price       float64
	Stock       int
}

// UpdateProductInput carries editable listing fields. Nil means unchanged.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Category    *string
	Price       *float64
	Stock       *int
}

// ListFilters narrows the catalog listing.
type ListFilters struct {
	Category string
	SellerID *uuid.UUID
	Search   string
	MinPrice *float64
	MaxPrice *float64
}

// ProductList is one page of listings plus pagination metadata.
type ProductList struct {
	Products []models.Product `json:"products"`
	Meta     pagination.Meta  `json:"meta"`
}
