package cart

import (
	"context"
	"testing"

	"github.com/embercart/embercart-backend/internal/products"
	"github.com/embercart/embercart-backend/pkg/db/models"
	pkgerrors "github.com/embercart/embercart-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r *testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	usersDDL := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  name TEXT NOT NULL,
  phone TEXT,
  verified INTEGER NOT NULL DEFAULT 0,
  roles TEXT NOT NULL DEFAULT '["user"]',
  profile_image_url TEXT,
  profile_image_id TEXT,
  cart_total REAL NOT NULL DEFAULT 0,
  verify_token_hash TEXT,
  verify_token_expires_at DATETIME,
  reset_token_hash TEXT,
  reset_token_expires_at DATETIME,
  role_change_token_hash TEXT,
  role_change_roles TEXT,
  role_change_expires_at DATETIME,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	productsDDL := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT NOT NULL,
  category TEXT NOT NULL,
  price REAL NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  image_url TEXT,
  image_public_id TEXT,
  rating REAL NOT NULL DEFAULT 0,
  review_count INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	cartItemsDDL := `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE(user_id, product_id)
);`
	require.NoError(t, db.Exec(usersDDL).Error)
	require.NoError(t, db.Exec(productsDDL).Error)
	require.NoError(t, db.Exec(cartItemsDDL).Error)
	return db
}

func newCartUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		Name:         "Shopper",
		Roles:        []string{"user"},
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func newCartProduct(t *testing.T, db *gorm.DB, price float64, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:          uuid.New(),
		SellerID:    uuid.New(),
		Name:        "Widget",
		Description: "A widget",
		Category:    "widgets",
		Price:       price,
		Stock:       stock,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func newCartService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), products.NewRepository(db), &testTxRunner{db: db})
	require.NoError(t, err)
	return svc
}

func TestAdjustLineAddAndIncrement(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	user := newCartUser(t, db)
	product := newCartProduct(t, db, 19.99, 10)

	view, err := svc.AdjustLine(context.Background(), AdjustInput{
		UserID: user.ID, ProductID: product.ID, Delta: 2,
	})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.InDelta(t, 39.98, view.Total, 1e-9)

	view, err = svc.AdjustLine(context.Background(), AdjustInput{
		UserID: user.ID, ProductID: product.ID, Delta: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, view.Items[0].Quantity)
	assert.InDelta(t, 59.97, view.Total, 1e-9)
}

func TestAdjustLineRoundingStaysClean(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	user := newCartUser(t, db)
	product := newCartProduct(t, db, 0.1, 100)

	var view *View
	var err error
	for i := 0; i < 3; i++ {
		view, err = svc.AdjustLine(context.Background(), AdjustInput{
			UserID: user.ID, ProductID: product.ID, Delta: 1,
		})
		require.NoError(t, err)
	}
	// 0.1 added three times must land on exactly 0.30, not 0.30000000000000004.
	assert.Equal(t, 0.3, view.Total)
}

func TestAdjustLineToZeroRemovesLine(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	user := newCartUser(t, db)
	product := newCartProduct(t, db, 5.00, 10)

	_, err := svc.AdjustLine(context.Background(), AdjustInput{
		UserID: user.ID, ProductID: product.ID, Delta: 2,
	})
	require.NoError(t, err)

	view, err := svc.AdjustLine(context.Background(), AdjustInput{
		UserID: user.ID, ProductID: product.ID, Delta: -2,
	})
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Equal(t, 0.0, view.Total)
}

func TestAdjustLineBelowZeroFails(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	user := newCartUser(t, db)
	product := newCartProduct(t, db, 5.00, 10)

	_, err := svc.AdjustLine(context.Background(), AdjustInput{
		UserID: user.ID, ProductID: product.ID, Delta: 1,
	})
	require.NoError(t, err)

	_, err = svc.AdjustLine(context.Background(), AdjustInput{
		UserID: user.ID, ProductID: product.ID, Delta: -2,
	})
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeInvalidOperation, appErr.Code())

	// The failed adjustment must not have touched the stored total.
	view, err := svc.Get(context.Background(), user.ID)
	require.NoError(t, err)
	assert.InDelta(t, 5.00, view.Total, 1e-9)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 1, view.Items[0].Quantity)
}

func TestAdjustLineRejectsExceedingStock(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	user := newCartUser(t, db)
	product := newCartProduct(t, db, 5.00, 2)

	_, err := svc.AdjustLine(context.Background(), AdjustInput{
		UserID: user.ID, ProductID: product.ID, Delta: 3,
	})
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeInvalidOperation, appErr.Code())
}

func TestAdjustLineZeroDeltaFails(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	user := newCartUser(t, db)
	product := newCartProduct(t, db, 5.00, 10)

	_, err := svc.AdjustLine(context.Background(), AdjustInput{
		UserID: user.ID, ProductID: product.ID, Delta: 0,
	})
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestRemoveLine(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	user := newCartUser(t, db)
	first := newCartProduct(t, db, 10.00, 10)
	second := newCartProduct(t, db, 2.50, 10)

	_, err := svc.AdjustLine(context.Background(), AdjustInput{UserID: user.ID, ProductID: first.ID, Delta: 3})
	require.NoError(t, err)
	_, err = svc.AdjustLine(context.Background(), AdjustInput{UserID: user.ID, ProductID: second.ID, Delta: 2})
	require.NoError(t, err)

	view, err := svc.RemoveLine(context.Background(), user.ID, first.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, second.ID, view.Items[0].ProductID)
	assert.InDelta(t, 5.00, view.Total, 1e-9)
}

func TestClearCart(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	user := newCartUser(t, db)
	product := newCartProduct(t, db, 7.25, 10)

	_, err := svc.AdjustLine(context.Background(), AdjustInput{UserID: user.ID, ProductID: product.ID, Delta: 4})
	require.NoError(t, err)

	require.NoError(t, svc.Clear(context.Background(), user.ID))

	view, err := svc.Get(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Equal(t, 0.0, view.Total)
}
