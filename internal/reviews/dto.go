package reviews

import (
	"github.com/embercart/embercart-backend/pkg/db/models"
	"github.com/embercart/embercart-backend/pkg/pagination"
	"github.com/google/uuid"
)

// UpsertInput creates or replaces the caller's review of a product.
type UpsertInput struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
	Rating    int
	Comment   string
}

// ReviewList is one page of reviews plus pagination metadata.
type ReviewList struct {
	Reviews []models.Review `json:"reviews"`
	Meta    pagination.Meta `json:"meta"`
}
