package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/embercart/embercart-backend/pkg/enums"
)

// OrderLineItem is one purchased product line. Name, unit price and the
// delivery address are copied onto the line when the order is placed so later
// catalog or address edits never rewrite purchase history. Each line carries
// its own fulfilment status.
type OrderLineItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	SellerID  uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index"`

	ProductName string  `gorm:"column:product_name;not null"`
	UnitPrice   float64 `gorm:"column:unit_price;not null"`
	Quantity    int     `gorm:"column:quantity;not null"`
	LineTotal   float64 `gorm:"column:line_total;not null"`

	Status enums.OrderItemStatus `gorm:"column:status;not null;default:pending"`

	ShipStreet     string  `gorm:"column:ship_street;not null"`
	ShipCity       string  `gorm:"column:ship_city;not null"`
	ShipState      string  `gorm:"column:ship_state;not null"`
	ShipCountry    string  `gorm:"column:ship_country;not null"`
	ShipPostalCode string  `gorm:"column:ship_postal_code;not null"`
	ShipPhone      *string `gorm:"column:ship_phone"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *OrderLineItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
