package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/embercart/embercart-backend/internal/address"
	"github.com/embercart/embercart-backend/internal/cart"
	"github.com/embercart/embercart-backend/internal/products"
	"github.com/embercart/embercart-backend/pkg/db/models"
	"github.com/embercart/embercart-backend/pkg/enums"
	pkgerrors "github.com/embercart/embercart-backend/pkg/errors"
	"github.com/embercart/embercart-backend/pkg/money"
	"github.com/embercart/embercart-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines order operations.
type Service interface {
	Place(ctx context.Context, input PlaceOrderInput) (*OrderView, error)
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderView, error)
	ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListSellerLines(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.OrderLineItem, int64, error)
	CancelLine(ctx context.Context, actor Actor, lineID uuid.UUID) (*LineView, error)
	UpdateLineStatus(ctx context.Context, input UpdateLineStatusInput) (*LineView, error)
}

type service struct {
	repo      Repository
	cart      cart.Repository
	products  products.Repository
	addresses address.Repository
	tx        txRunner
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository, cartRepo cart.Repository, productsRepo products.Repository, addressRepo address.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if addressRepo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:      repo,
		cart:      cartRepo,
		products:  productsRepo,
		addresses: addressRepo,
		tx:        tx,
	}, nil
}

// Place builds an order from the requested lines in one all-or-nothing
// transaction. Product names, unit prices and each line's delivery address
// are snapshotted; stock is reserved with a guarded decrement; the cart is
// cleared as the closing mutation. Any failure rolls the whole checkout back
// with no partial order left behind.
func (s *service) Place(ctx context.Context, input PlaceOrderInput) (*OrderView, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one order line is required")
	}
	for _, line := range input.Lines {
		if line.ProductID == uuid.Nil || line.AddressID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "every line needs a product id and an address id")
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
	}

	var placed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cartRepo := s.cart.WithTx(tx)
		productsRepo := s.products.WithTx(tx)
		addressRepo := s.addresses.WithTx(tx)

		// Lines may repeat an address; resolve each one once.
		addrs := map[uuid.UUID]*models.Address{}
		resolveAddress := func(id uuid.UUID) (*models.Address, error) {
			if addr, ok := addrs[id]; ok {
				return addr, nil
			}
			addr, err := addressRepo.FindByID(ctx, id)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery address not found")
				}
				return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading address")
			}
			if addr.UserID != input.UserID {
				// Only the buyer's own saved addresses resolve.
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery address not found")
			}
			addrs[id] = addr
			return addr, nil
		}

		items := make([]models.OrderLineItem, 0, len(input.Lines))
		total := 0.0
		for _, line := range input.Lines {
			product, err := productsRepo.FindByID(ctx, line.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading product")
			}

			addr, err := resolveAddress(line.AddressID)
			if err != nil {
				return err
			}

			ok, err := productsRepo.DecrementStock(ctx, product.ID, line.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "reserving stock")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeInvalidOperation,
					fmt.Sprintf("not enough stock for %q", product.Name))
			}

			lineTotal := money.MulRound2(product.Price, line.Quantity)
			total = money.Round2(total + lineTotal)
			items = append(items, models.OrderLineItem{
				ProductID:      product.ID,
				SellerID:       product.SellerID,
				ProductName:    product.Name,
				UnitPrice:      product.Price,
				Quantity:       line.Quantity,
				LineTotal:      lineTotal,
				Status:         enums.OrderItemPending,
				ShipStreet:     addr.Street,
				ShipCity:       addr.City,
				ShipState:      addr.State,
				ShipCountry:    addr.Country,
				ShipPostalCode: addr.PostalCode,
				ShipPhone:      addr.Phone,
			})
		}

		order := &models.Order{
			UserID:     input.UserID,
			Total:      total,
			PaymentRef: input.PaymentRef,
			Items:      items,
		}
		if _, err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "creating order")
		}

		if err := cartRepo.DeleteAllLines(ctx, input.UserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "clearing cart lines")
		}
		if err := cartRepo.ResetCartTotal(ctx, input.UserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "resetting cart total")
		}

		placed = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := ToOrderView(placed)
	return &view, nil
}

func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderView, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading order")
	}
	if order.UserID != actor.UserID && !enums.ContainsRole(actor.Roles, enums.RoleAdmin) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you do not own this order")
	}
	view := ToOrderView(order)
	return &view, nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, total, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "listing orders")
	}
	list := &OrderList{
		Orders: make([]OrderView, 0, len(rows)),
		Meta:   pagination.BuildMeta(params, total),
	}
	for i := range rows {
		list.Orders = append(list.Orders, ToOrderView(&rows[i]))
	}
	return list, nil
}

func (s *service) ListSellerLines(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.OrderLineItem, int64, error) {
	if sellerID == uuid.Nil {
		return nil, 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity missing")
	}
	lines, total, err := s.repo.ListLinesBySeller(ctx, sellerID, params)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "listing seller lines")
	}
	return lines, total, nil
}

// CancelLine lets the buyer cancel one of their own lines while it has not
// shipped. The reserved stock goes back to the listing in the same
// transaction.
func (s *service) CancelLine(ctx context.Context, actor Actor, lineID uuid.UUID) (*LineView, error) {
	if lineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line id required")
	}

	var updated *models.OrderLineItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		productsRepo := s.products.WithTx(tx)

		line, err := repo.FindLine(ctx, lineID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order line not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading order line")
		}

		order, err := repo.FindByID(ctx, line.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading order")
		}
		if order.UserID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "you do not own this order")
		}

		switch line.Status {
		case enums.OrderItemPending, enums.OrderItemProcessing:
		default:
			return pkgerrors.New(pkgerrors.CodeInvalidOperation,
				fmt.Sprintf("cannot cancel a line in status %q", line.Status))
		}

		if err := repo.UpdateLineStatus(ctx, line.ID, enums.OrderItemCancelled); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "cancelling line")
		}
		if err := productsRepo.IncrementStock(ctx, line.ProductID, line.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "restoring stock")
		}

		line.Status = enums.OrderItemCancelled
		updated = line
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := toLineView(updated)
	return &view, nil
}

// UpdateLineStatus moves a line forward through its lifecycle. Only the
// selling account or an admin may do this, and only along valid transitions.
func (s *service) UpdateLineStatus(ctx context.Context, input UpdateLineStatusInput) (*LineView, error) {
	if input.LineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line id required")
	}
	if !input.Status.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order line status")
	}

	line, err := s.repo.FindLine(ctx, input.LineID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order line not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading order line")
	}

	isAdmin := enums.ContainsRole(input.Actor.Roles, enums.RoleAdmin)
	if line.SellerID != input.Actor.UserID && !isAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you do not sell this line")
	}

	if !validTransition(line.Status, input.Status) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidOperation,
			fmt.Sprintf("cannot move line from %q to %q", line.Status, input.Status))
	}

	if err := s.repo.UpdateLineStatus(ctx, line.ID, input.Status); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "updating line status")
	}

	line.Status = input.Status
	view := toLineView(line)
	return &view, nil
}

func validTransition(from, to enums.OrderItemStatus) bool {
	if from.Terminal() {
		return false
	}
	switch from {
	case enums.OrderItemPending:
		return to == enums.OrderItemProcessing || to == enums.OrderItemCancelled
	case enums.OrderItemProcessing:
		return to == enums.OrderItemShipped || to == enums.OrderItemCancelled
	case enums.OrderItemShipped:
		return to == enums.OrderItemDelivered
	default:
		return false
	}
}

func toLineView(line *models.OrderLineItem) LineView {
	return LineView{
		ID:          line.ID,
		ProductID:   line.ProductID,
		ProductName: line.ProductName,
		UnitPrice:   line.UnitPrice,
		Quantity:    line.Quantity,
		LineTotal:   line.LineTotal,
		Status:      line.Status,
	}
}
