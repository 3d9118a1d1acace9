package orders

import (
	"context"

	"github.com/embercart/embercart-backend/pkg/db/models"
	"github.com/embercart/embercart-backend/pkg/enums"
	"github.com/embercart/embercart-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, int64, error)
	FindLine(ctx context.Context, lineID uuid.UUID) (*models.OrderLineItem, error)
	ListLinesBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.OrderLineItem, int64, error)
	UpdateLineStatus(ctx context.Context, lineID uuid.UUID, status enums.OrderItemStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	n := params.Normalize()
	var orders []models.Order
	err = r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(n.Limit).
		Offset(params.Offset()).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *repository) FindLine(ctx context.Context, lineID uuid.UUID) (*models.OrderLineItem, error) {
	var line models.OrderLineItem
	if err := r.db.WithContext(ctx).First(&line, "id = ?", lineID).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *repository) ListLinesBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.OrderLineItem, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderLineItem{}).
		Where("seller_id = ?", sellerID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	n := params.Normalize()
	var lines []models.OrderLineItem
	err = r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Limit(n.Limit).
		Offset(params.Offset()).
		Find(&lines).Error
	if err != nil {
		return nil, 0, err
	}
	return lines, total, nil
}

func (r *repository) UpdateLineStatus(ctx context.Context, lineID uuid.UUID, status enums.OrderItemStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderLineItem{}).
		Where("id = ?", lineID).
		UpdateColumn("status", status).Error
}
