package orders

import (
	"context"
	"testing"

	"github.com/embercart/embercart-backend/internal/address"
	"github.com/embercart/embercart-backend/internal/cart"
	"github.com/embercart/embercart-backend/internal/products"
	"github.com/embercart/embercart-backend/pkg/db/models"
	"github.com/embercart/embercart-backend/pkg/enums"
	pkgerrors "github.com/embercart/embercart-backend/pkg/errors"
	"github.com/embercart/embercart-backend/pkg/pagination"
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

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{`
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
);`, `
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
);`, `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE(user_id, product_id)
);`, `
CREATE TABLE IF NOT EXISTS addresses (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  label TEXT,
  street TEXT NOT NULL,
  city TEXT NOT NULL,
  state TEXT NOT NULL,
  country TEXT NOT NULL,
  postal_code TEXT NOT NULL,
  phone TEXT,
  is_default INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  total REAL NOT NULL,
  payment_provider TEXT,
  payment_ref TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  unit_price REAL NOT NULL,
  quantity INTEGER NOT NULL,
  line_total REAL NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  ship_street TEXT NOT NULL,
  ship_city TEXT NOT NULL,
  ship_state TEXT NOT NULL,
  ship_country TEXT NOT NULL,
  ship_postal_code TEXT NOT NULL,
  ship_phone TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type ordersFixture struct {
	svc     Service
	cartSvc cart.Service
	db      *gorm.DB
	user    *models.User
	addr    *models.Address
}

func newOrdersFixture(t *testing.T) *ordersFixture {
	t.Helper()
	db := setupOrdersTestDB(t)

	tx := &testTxRunner{db: db}
	svc, err := NewService(NewRepository(db), cart.NewRepository(db), products.NewRepository(db), address.NewRepository(db), tx)
	require.NoError(t, err)
	cartSvc, err := cart.NewService(cart.NewRepository(db), products.NewRepository(db), tx)
	require.NoError(t, err)

	user := &models.User{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		Name:         "Buyer",
		Roles:        []string{"user"},
	}
	require.NoError(t, db.Create(user).Error)

	addr := &models.Address{
		ID:         uuid.New(),
		UserID:     user.ID,
		Street:     "1 Main St",
		City:       "Springfield",
		State:      "IL",
		Country:    "US",
		PostalCode: "62701",
	}
	require.NoError(t, db.Create(addr).Error)

	return &ordersFixture{svc: svc, cartSvc: cartSvc, db: db, user: user, addr: addr}
}

func (f *ordersFixture) newProduct(t *testing.T, name string, price float64, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:          uuid.New(),
		SellerID:    uuid.New(),
		Name:        name,
		Description: "desc",
		Category:    "general",
		Price:       price,
		Stock:       stock,
	}
	require.NoError(t, f.db.Create(product).Error)
	return product
}

func (f *ordersFixture) addToCart(t *testing.T, productID uuid.UUID, qty int) {
	t.Helper()
	_, err := f.cartSvc.AdjustLine(context.Background(), cart.AdjustInput{
		UserID: f.user.ID, ProductID: productID, Delta: qty,
	})
	require.NoError(t, err)
}

// line builds a purchase request shipping to the fixture user's address.
func (f *ordersFixture) line(productID uuid.UUID, qty int) PlaceOrderLine {
	return PlaceOrderLine{ProductID: productID, Quantity: qty, AddressID: f.addr.ID}
}

func TestPlaceOrderSnapshotsAndClearsCart(t *testing.T) {
	f := newOrdersFixture(t)
	widget := f.newProduct(t, "Widget", 19.99, 10)
	gadget := f.newProduct(t, "Gadget", 5.50, 4)
	f.addToCart(t, widget.ID, 2)
	f.addToCart(t, gadget.ID, 1)

	ref := "pi_test_123"
	view, err := f.svc.Place(context.Background(), PlaceOrderInput{
		UserID:     f.user.ID,
		Lines:      []PlaceOrderLine{f.line(widget.ID, 2), f.line(gadget.ID, 1)},
		PaymentRef: &ref,
	})
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.InDelta(t, 45.48, view.Total, 1e-9)

	var stored models.Order
	require.NoError(t, f.db.First(&stored, "id = ?", view.ID).Error)
	require.NotNil(t, stored.PaymentRef)
	assert.Equal(t, "pi_test_123", *stored.PaymentRef)

	// Later catalog edits must not rewrite the purchase.
	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", widget.ID).
		Updates(map[string]any{"name": "Renamed", "price": 99.99}).Error)

	got, err := f.svc.Get(context.Background(), Actor{UserID: f.user.ID}, view.ID)
	require.NoError(t, err)
	for _, item := range got.Items {
		if item.ProductID == widget.ID {
			assert.Equal(t, "Widget", item.ProductName)
			assert.InDelta(t, 19.99, item.UnitPrice, 1e-9)
		}
	}

	// Cart is empty and the stored total reset.
	cartView, err := f.cartSvc.Get(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, cartView.Items)
	assert.Equal(t, 0.0, cartView.Total)

	// Stock was reserved.
	var reloaded models.Product
	require.NoError(t, f.db.First(&reloaded, "id = ?", widget.ID).Error)
	assert.Equal(t, 8, reloaded.Stock)
}

func TestPlaceOrderRequiresLines(t *testing.T) {
	f := newOrdersFixture(t)

	_, err := f.svc.Place(context.Background(), PlaceOrderInput{UserID: f.user.ID})
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())

	widget := f.newProduct(t, "Widget", 10.00, 5)
	_, err = f.svc.Place(context.Background(), PlaceOrderInput{
		UserID: f.user.ID,
		Lines:  []PlaceOrderLine{f.line(widget.ID, 0)},
	})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestPlaceOrderInsufficientStockRollsBack(t *testing.T) {
	f := newOrdersFixture(t)
	widget := f.newProduct(t, "Widget", 10.00, 5)
	scarce := f.newProduct(t, "Scarce", 3.00, 5)
	f.addToCart(t, widget.ID, 2)
	f.addToCart(t, scarce.ID, 4)

	// Another buyer takes the scarce stock after it entered the cart.
	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", scarce.ID).
		UpdateColumn("stock", 1).Error)

	_, err := f.svc.Place(context.Background(), PlaceOrderInput{
		UserID: f.user.ID,
		Lines:  []PlaceOrderLine{f.line(widget.ID, 2), f.line(scarce.ID, 4)},
	})
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeInvalidOperation, appErr.Code())

	// Nothing committed: no orders, cart intact, widget stock untouched.
	var orderCount int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)

	cartView, err := f.cartSvc.Get(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Len(t, cartView.Items, 2)

	var reloaded models.Product
	require.NoError(t, f.db.First(&reloaded, "id = ?", widget.ID).Error)
	assert.Equal(t, 5, reloaded.Stock)
}

func TestPlaceOrderUnknownProductAllOrNothing(t *testing.T) {
	f := newOrdersFixture(t)
	widget := f.newProduct(t, "Widget", 10.00, 5)
	gadget := f.newProduct(t, "Gadget", 4.00, 5)
	f.addToCart(t, widget.ID, 1)

	_, err := f.svc.Place(context.Background(), PlaceOrderInput{
		UserID: f.user.ID,
		Lines: []PlaceOrderLine{
			f.line(widget.ID, 1),
			f.line(uuid.New(), 1),
			f.line(gadget.ID, 2),
		},
	})
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())

	var orderCount int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)

	cartView, err := f.cartSvc.Get(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Len(t, cartView.Items, 1)
}

func TestPlaceOrderPerLineAddresses(t *testing.T) {
	f := newOrdersFixture(t)
	widget := f.newProduct(t, "Widget", 10.00, 5)
	gadget := f.newProduct(t, "Gadget", 4.00, 5)

	work := &models.Address{
		ID: uuid.New(), UserID: f.user.ID,
		Street: "9 Office Park", City: "Capital City", State: "IL", Country: "US", PostalCode: "62702",
	}
	require.NoError(t, f.db.Create(work).Error)

	view, err := f.svc.Place(context.Background(), PlaceOrderInput{
		UserID: f.user.ID,
		Lines: []PlaceOrderLine{
			f.line(widget.ID, 1),
			{ProductID: gadget.ID, Quantity: 1, AddressID: work.ID},
		},
	})
	require.NoError(t, err)

	var items []models.OrderLineItem
	require.NoError(t, f.db.Where("order_id = ?", view.ID).Order("product_name").Find(&items).Error)
	require.Len(t, items, 2)
	assert.Equal(t, "Capital City", items[0].ShipCity) // Gadget
	assert.Equal(t, "Springfield", items[1].ShipCity)  // Widget
}

func TestPlaceOrderRejectsForeignAddress(t *testing.T) {
	f := newOrdersFixture(t)
	widget := f.newProduct(t, "Widget", 10.00, 5)

	other := &models.User{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		Name:         "Other",
		Roles:        []string{"user"},
	}
	require.NoError(t, f.db.Create(other).Error)
	foreign := &models.Address{
		ID: uuid.New(), UserID: other.ID,
		Street: "2 Elm St", City: "Shelbyville", State: "IL", Country: "US", PostalCode: "62565",
	}
	require.NoError(t, f.db.Create(foreign).Error)

	// Another user's address does not resolve from the caller's saved list.
	_, err := f.svc.Place(context.Background(), PlaceOrderInput{
		UserID: f.user.ID,
		Lines:  []PlaceOrderLine{{ProductID: widget.ID, Quantity: 1, AddressID: foreign.ID}},
	})
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestCancelLineRestoresStock(t *testing.T) {
	f := newOrdersFixture(t)
	widget := f.newProduct(t, "Widget", 10.00, 5)

	view, err := f.svc.Place(context.Background(), PlaceOrderInput{
		UserID: f.user.ID,
		Lines:  []PlaceOrderLine{f.line(widget.ID, 3)},
	})
	require.NoError(t, err)

	line, err := f.svc.CancelLine(context.Background(), Actor{UserID: f.user.ID}, view.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderItemCancelled, line.Status)

	var reloaded models.Product
	require.NoError(t, f.db.First(&reloaded, "id = ?", widget.ID).Error)
	assert.Equal(t, 5, reloaded.Stock)
}

func TestCancelLineOnlyOwner(t *testing.T) {
	f := newOrdersFixture(t)
	widget := f.newProduct(t, "Widget", 10.00, 5)

	view, err := f.svc.Place(context.Background(), PlaceOrderInput{
		UserID: f.user.ID,
		Lines:  []PlaceOrderLine{f.line(widget.ID, 1)},
	})
	require.NoError(t, err)

	_, err = f.svc.CancelLine(context.Background(), Actor{UserID: uuid.New()}, view.Items[0].ID)
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())
}

func TestUpdateLineStatusTransitions(t *testing.T) {
	f := newOrdersFixture(t)
	widget := f.newProduct(t, "Widget", 10.00, 5)

	view, err := f.svc.Place(context.Background(), PlaceOrderInput{
		UserID: f.user.ID,
		Lines:  []PlaceOrderLine{f.line(widget.ID, 1)},
	})
	require.NoError(t, err)
	lineID := view.Items[0].ID
	seller := Actor{UserID: widget.SellerID, Roles: []string{"seller"}}

	// pending -> shipped skips processing and must fail.
	_, err = f.svc.UpdateLineStatus(context.Background(), UpdateLineStatusInput{
		LineID: lineID, Status: enums.OrderItemShipped, Actor: seller,
	})
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeInvalidOperation, appErr.Code())

	for _, status := range []enums.OrderItemStatus{
		enums.OrderItemProcessing, enums.OrderItemShipped, enums.OrderItemDelivered,
	} {
		line, err := f.svc.UpdateLineStatus(context.Background(), UpdateLineStatusInput{
			LineID: lineID, Status: status, Actor: seller,
		})
		require.NoError(t, err)
		assert.Equal(t, status, line.Status)
	}

	// Delivered is terminal.
	_, err = f.svc.UpdateLineStatus(context.Background(), UpdateLineStatusInput{
		LineID: lineID, Status: enums.OrderItemCancelled, Actor: seller,
	})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeInvalidOperation, appErr.Code())
}

func TestUpdateLineStatusRejectsStranger(t *testing.T) {
	f := newOrdersFixture(t)
	widget := f.newProduct(t, "Widget", 10.00, 5)

	view, err := f.svc.Place(context.Background(), PlaceOrderInput{
		UserID: f.user.ID,
		Lines:  []PlaceOrderLine{f.line(widget.ID, 1)},
	})
	require.NoError(t, err)

	_, err = f.svc.UpdateLineStatus(context.Background(), UpdateLineStatusInput{
		LineID: view.Items[0].ID,
		Status: enums.OrderItemProcessing,
		Actor:  Actor{UserID: uuid.New(), Roles: []string{"seller"}},
	})
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeForbidden, appErr.Code())
}

func TestListMinePaginates(t *testing.T) {
	f := newOrdersFixture(t)
	widget := f.newProduct(t, "Widget", 10.00, 100)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Place(context.Background(), PlaceOrderInput{
			UserID: f.user.ID,
			Lines:  []PlaceOrderLine{f.line(widget.ID, 1)},
		})
		require.NoError(t, err)
	}

	list, err := f.svc.ListMine(context.Background(), f.user.ID, pagination.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, list.Orders, 2)
	assert.Equal(t, int64(3), list.Meta.Total)
	assert.Equal(t, int64(2), list.Meta.TotalPages)
}
