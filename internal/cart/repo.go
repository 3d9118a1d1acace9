package cart

import (
	"context"

	"github.com/embercart/embercart-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for cart lines and the running
// cart total stored on the user record.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindLine(ctx context.Context, userID, productID uuid.UUID) (*models.CartItem, error)
	CreateLine(ctx context.Context, line *models.CartItem) error
	UpdateLineQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error
	DeleteLine(ctx context.Context, lineID uuid.UUID) error
	ListLines(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	DeleteAllLines(ctx context.Context, userID uuid.UUID) error
	AdjustCartTotal(ctx context.Context, userID uuid.UUID, delta float64) error
	ResetCartTotal(ctx context.Context, userID uuid.UUID) error
	GetCartTotal(ctx context.Context, userID uuid.UUID) (float64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindLine(ctx context.Context, userID, productID uuid.UUID) (*models.CartItem, error) {
	var line models.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *repository) CreateLine(ctx context.Context, line *models.CartItem) error {
	return r.db.WithContext(ctx).Create(line).Error
}

func (r *repository) UpdateLineQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", lineID).
		UpdateColumn("quantity", quantity).Error
}

func (r *repository) DeleteLine(ctx context.Context, lineID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.CartItem{}, "id = ?", lineID).Error
}

func (r *repository) ListLines(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var lines []models.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repository) DeleteAllLines(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error
}

// AdjustCartTotal applies a signed delta to the stored total server-side so
// concurrent adjustments never lose updates. ROUND keeps the column at two
// decimal places on both postgres and sqlite.
func (r *repository) AdjustCartTotal(ctx context.Context, userID uuid.UUID, delta float64) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("cart_total", gorm.Expr("ROUND(cart_total + ?, 2)", delta)).Error
}

func (r *repository) ResetCartTotal(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("cart_total", 0).Error
}

func (r *repository) GetCartTotal(ctx context.Context, userID uuid.UUID) (float64, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Select("cart_total").
		First(&user, "id = ?", userID).Error
	if err != nil {
		return 0, err
	}
	return user.CartTotal, nil
}
