package cart

import (
	"github.com/google/uuid"
)

// Line is one cart entry joined with its current catalog data.
type Line struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	UnitPrice   float64   `json:"unit_price"`
	Quantity    int       `json:"quantity"`
	LineTotal   float64   `json:"line_total"`
	ImageURL    *string   `json:"image_url,omitempty"`
	Stock       int       `json:"stock"`
}

// View is the full cart as returned to clients. Total is the running
// aggregate stored on the user record, not a recomputation.
type View struct {
	Items []Line  `json:"items"`
	Total float64 `json:"total"`
}

// AdjustInput changes a line's quantity by a signed delta. A positive delta
// adds units, a negative delta removes them.
type AdjustInput struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
	Delta     int
}
