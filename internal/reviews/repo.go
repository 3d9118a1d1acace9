package reviews

import (
	"context"

	"github.com/embercart/embercart-backend/pkg/db/models"
	"github.com/embercart/embercart-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for reviews and the running
// rating aggregate stored on products.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, review *models.Review) error
	FindByProductAndUser(ctx context.Context, productID, userID uuid.UUID) (*models.Review, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.Review, int64, error)
	Update(ctx context.Context, id uuid.UUID, rating int, comment string) error
	Delete(ctx context.Context, id uuid.UUID) error
	ApplyRatingAdd(ctx context.Context, productID uuid.UUID, rating int) error
	ApplyRatingChange(ctx context.Context, productID uuid.UUID, newRating int) error
	ApplyRatingRemove(ctx context.Context, productID uuid.UUID, rating int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a reviews repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *repository) FindByProductAndUser(ctx context.Context, productID, userID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND user_id = ?", productID, userID).
		First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *repository) ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.Review, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("product_id = ?", productID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	n := params.Normalize()
	var rows []models.Review
	err = r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Limit(n.Limit).
		Offset(params.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, rating int, comment string) error {
	return r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("id = ?", id).
		Updates(map[string]any{"rating": rating, "comment": comment}).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Review{}, "id = ?", id).Error
}

// The three aggregate updates below run entirely server-side so concurrent
// reviewers can never clobber each other's contribution to the average. Each
// statement reads the pre-update column values, which is exactly what the
// incremental-average recurrences need.

// ApplyRatingAdd folds one new rating into the average:
// avg' = avg + (r - avg) / (n + 1), n' = n + 1.
func (r *repository) ApplyRatingAdd(ctx context.Context, productID uuid.UUID, rating int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumns(map[string]any{
			"rating":       gorm.Expr("rating + (? - rating) / (review_count + 1)", float64(rating)),
			"review_count": gorm.Expr("review_count + 1"),
		}).Error
}

// ApplyRatingChange folds a replacement rating into the average without
// changing the count: avg' = avg + (r_new - avg) / n.
func (r *repository) ApplyRatingChange(ctx context.Context, productID uuid.UUID, newRating int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND review_count > 0", productID).
		UpdateColumn("rating", gorm.Expr("rating + (? - rating) / review_count", float64(newRating))).Error
}

// ApplyRatingRemove backs one rating out of the average:
// n' = n - 1; avg' = 0 when n' = 0, else avg - (r - avg) / n'.
func (r *repository) ApplyRatingRemove(ctx context.Context, productID uuid.UUID, rating int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND review_count > 0", productID).
		UpdateColumns(map[string]any{
			"rating": gorm.Expr(
				"CASE WHEN review_count <= 1 THEN 0 ELSE rating - (? - rating) / (review_count - 1) END",
				float64(rating)),
			"review_count": gorm.Expr("review_count - 1"),
		}).Error
}
