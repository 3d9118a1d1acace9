package orders

import (
	"time"

	"github.com/embercart/embercart-backend/pkg/db/models"
	"github.com/embercart/embercart-backend/pkg/enums"
	"github.com/embercart/embercart-backend/pkg/pagination"
	"github.com/google/uuid"
)

// PlaceOrderLine is one requested purchase: a product, how many, and which
// of the buyer's saved addresses it ships to.
type PlaceOrderLine struct {
	ProductID uuid.UUID
	Quantity  int
	AddressID uuid.UUID
}

// PlaceOrderInput creates an order from explicit line requests. PaymentRef
// optionally links the order to an externally created payment.
type PlaceOrderInput struct {
	UserID     uuid.UUID
	Lines      []PlaceOrderLine
	PaymentRef *string
}

// LineView is the public shape of one purchased line.
type LineView struct {
	ID          uuid.UUID             `json:"id"`
	ProductID   uuid.UUID             `json:"product_id"`
	ProductName string                `json:"product_name"`
	UnitPrice   float64               `json:"unit_price"`
	Quantity    int                   `json:"quantity"`
	LineTotal   float64               `json:"line_total"`
	Status      enums.OrderItemStatus `json:"status"`
}

// OrderView is the public shape of an order.
type OrderView struct {
	ID        uuid.UUID  `json:"id"`
	Total     float64    `json:"total"`
	Items     []LineView `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
}

// ToOrderView maps a persisted order into its public shape.
func ToOrderView(o *models.Order) OrderView {
	view := OrderView{
		ID:        o.ID,
		Total:     o.Total,
		Items:     make([]LineView, 0, len(o.Items)),
		CreatedAt: o.CreatedAt,
	}
	for _, item := range o.Items {
		view.Items = append(view.Items, LineView{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			LineTotal:   item.LineTotal,
			Status:      item.Status,
		})
	}
	return view
}

// OrderList is one page of orders plus pagination metadata.
type OrderList struct {
	Orders []OrderView     `json:"orders"`
	Meta   pagination.Meta `json:"meta"`
}

// UpdateLineStatusInput moves a purchased line through its lifecycle.
type UpdateLineStatusInput struct {
	LineID uuid.UUID
	Status enums.OrderItemStatus
	Actor  Actor
}

// Actor identifies who is performing an order mutation.
type Actor struct {
	UserID uuid.UUID
	Roles  []string
}
