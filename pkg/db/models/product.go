package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product represents a seller listing. Rating and ReviewCount form the running
// review aggregate and are only mutated through atomic update expressions.
type Product struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SellerID    uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index"`
	Name        string    `gorm:"column:name;not null"`
	Description string    `gorm:"column:description;not null"`
	Category    string    `gorm:"column:category;not null;index"`
	Price       float64   `gorm:"column:price;not null"`
	Stock       int       `gorm:"column:stock;not null;default:0"`

	ImageURL      *string `gorm:"column:image_url"`
	ImagePublicID *string `gorm:"column:image_public_id"`

	Rating      float64 `gorm:"column:rating;not null;default:0"`
	ReviewCount int     `gorm:"column:review_count;not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
