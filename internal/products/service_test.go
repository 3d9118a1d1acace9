package products

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/embercart/embercart-backend/pkg/config"
	"github.com/embercart/embercart-backend/pkg/db/models"
	pkgerrors "github.com/embercart/embercart-backend/pkg/errors"
	"github.com/embercart/embercart-backend/pkg/pagination"
	"github.com/embercart/embercart-backend/pkg/storage/cloudinary"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type stubImageHost struct {
	uploads int
	deleted []string
}

func (s *stubImageHost) Upload(_ context.Context, folder string, _ io.Reader) (*cloudinary.UploadResult, error) {
	s.uploads++
	id := fmt.Sprintf("%s/img-%d", folder, s.uploads)
	return &cloudinary.UploadResult{
		PublicID: id,
		URL:      "https://images.test/" + id,
	}, nil
}

func (s *stubImageHost) Delete(_ context.Context, publicID string) error {
	s.deleted = append(s.deleted, publicID)
	return nil
}

func setupProductsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

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
	require.NoError(t, db.Exec(productsDDL).Error)
	return db
}

func newProductsFixture(t *testing.T) (Service, *stubImageHost, *gorm.DB) {
	t.Helper()
	db := setupProductsTestDB(t)
	images := &stubImageHost{}
	cfg := &config.Config{
		Cloudinary: config.CloudinaryConfig{
			ProductFolder: "test/products",
		},
	}
	svc, err := NewService(NewRepository(db), images, cfg)
	require.NoError(t, err)
	return svc, images, db
}

func seedProduct(t *testing.T, db *gorm.DB, sellerID uuid.UUID, name, category string, price float64) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:          uuid.New(),
		SellerID:    sellerID,
		Name:        name,
		Description: "seeded",
		Category:    category,
		Price:       price,
		Stock:       5,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestCreateProductRoundsPrice(t *testing.T) {
	svc, _, _ := newProductsFixture(t)
	ctx := context.Background()

	product, err := svc.Create(ctx, CreateProductInput{
		SellerID: uuid.New(),
		Name:     "Kettle",
		Category: "kitchen",
		Price:    19.995,
		Stock:    3,
	})
	require.NoError(t, err)
	assert.Equal(t, 20.0, product.Price)
	assert.Equal(t, 3, product.Stock)
}

func TestCreateProductValidation(t *testing.T) {
	svc, _, _ := newProductsFixture(t)
	ctx := context.Background()
	sellerID := uuid.New()

	cases := []struct {
		name  string
		input CreateProductInput
		code  pkgerrors.Code
	}{
		{"missing seller", CreateProductInput{Name: "X", Category: "c", Price: 1}, pkgerrors.CodeUnauthorized},
		{"missing name", CreateProductInput{SellerID: sellerID, Category: "c", Price: 1}, pkgerrors.CodeValidation},
		{"zero price", CreateProductInput{SellerID: sellerID, Name: "X", Category: "c"}, pkgerrors.CodeValidation},
		{"negative stock", CreateProductInput{SellerID: sellerID, Name: "X", Category: "c", Price: 1, Stock: -1}, pkgerrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.input)
			var appErr *pkgerrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tc.code, appErr.Code())
		})
	}
}

func TestUpdateProductAuthorization(t *testing.T) {
	svc, _, db := newProductsFixture(t)
	ctx := context.Background()

	sellerID := uuid.New()
	product := seedProduct(t, db, sellerID, "Lamp", "home", 30)
	newName := "Desk Lamp"

	_, err := svc.Update(ctx, Actor{UserID: uuid.New(), Roles: []string{"seller"}}, product.ID, UpdateProductInput{Name: &newName})
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeForbidden, appErr.Code())

	updated, err := svc.Update(ctx, Actor{UserID: sellerID, Roles: []string{"seller"}}, product.ID, UpdateProductInput{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "Desk Lamp", updated.Name)

	adminName := "Admin Lamp"
	updated, err = svc.Update(ctx, Actor{UserID: uuid.New(), Roles: []string{"admin"}}, product.ID, UpdateProductInput{Name: &adminName})
	require.NoError(t, err)
	assert.Equal(t, "Admin Lamp", updated.Name)
}

func TestUpdateProductRejectsEmptyName(t *testing.T) {
	svc, _, db := newProductsFixture(t)
	ctx := context.Background()

	sellerID := uuid.New()
	product := seedProduct(t, db, sellerID, "Lamp", "home", 30)
	empty := ""

	_, err := svc.Update(ctx, Actor{UserID: sellerID, Roles: []string{"seller"}}, product.ID, UpdateProductInput{Name: &empty})
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestListProductsFilters(t *testing.T) {
	svc, _, db := newProductsFixture(t)
	ctx := context.Background()

	sellerA := uuid.New()
	sellerB := uuid.New()
	seedProduct(t, db, sellerA, "Blue Mug", "kitchen", 8)
	seedProduct(t, db, sellerA, "Red Mug", "kitchen", 12)
	seedProduct(t, db, sellerB, "Chair", "furniture", 90)

	params := pagination.Params{Page: 1, Limit: 10}

	list, err := svc.List(ctx, params, ListFilters{Category: "kitchen"})
	require.NoError(t, err)
	assert.Len(t, list.Products, 2)
	assert.Equal(t, int64(2), list.Meta.Total)

	minPrice := 10.0
	list, err = svc.List(ctx, params, ListFilters{Category: "kitchen", MinPrice: &minPrice})
	require.NoError(t, err)
	require.Len(t, list.Products, 1)
	assert.Equal(t, "Red Mug", list.Products[0].Name)

	list, err = svc.List(ctx, params, ListFilters{Search: "Mug"})
	require.NoError(t, err)
	assert.Len(t, list.Products, 2)

	list, err = svc.List(ctx, params, ListFilters{SellerID: &sellerB})
	require.NoError(t, err)
	require.Len(t, list.Products, 1)
	assert.Equal(t, "Chair", list.Products[0].Name)
}

func TestUploadImageReplacesOld(t *testing.T) {
	svc, images, db := newProductsFixture(t)
	ctx := context.Background()

	sellerID := uuid.New()
	product := seedProduct(t, db, sellerID, "Lamp", "home", 30)
	actor := Actor{UserID: sellerID, Roles: []string{"seller"}}

	updated, err := svc.UploadImage(ctx, actor, product.ID, strings.NewReader("first"))
	require.NoError(t, err)
	require.NotNil(t, updated.ImagePublicID)
	assert.Equal(t, "test/products/img-1", *updated.ImagePublicID)
	assert.Empty(t, images.deleted)

	updated, err = svc.UploadImage(ctx, actor, product.ID, strings.NewReader("second"))
	require.NoError(t, err)
	assert.Equal(t, "test/products/img-2", *updated.ImagePublicID)
	assert.Equal(t, []string{"test/products/img-1"}, images.deleted)
}

func TestDeleteProductRemovesImage(t *testing.T) {
	svc, images, db := newProductsFixture(t)
	ctx := context.Background()

	sellerID := uuid.New()
	product := seedProduct(t, db, sellerID, "Lamp", "home", 30)
	actor := Actor{UserID: sellerID, Roles: []string{"seller"}}

	_, err := svc.UploadImage(ctx, actor, product.ID, strings.NewReader("img"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, actor, product.ID))
	assert.Contains(t, images.deleted, "test/products/img-1")

	_, err = svc.Get(ctx, product.ID)
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}
