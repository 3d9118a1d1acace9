package payments

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/embercart/embercart-backend/internal/orders"
	"github.com/embercart/embercart-backend/pkg/db/models"
	"github.com/embercart/embercart-backend/pkg/enums"
	pkgerrors "github.com/embercart/embercart-backend/pkg/errors"
	"github.com/embercart/embercart-backend/pkg/payments/razorpay"
	"github.com/embercart/embercart-backend/pkg/payments/stripe"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StripeGateway is the slice of the Stripe client the service needs.
type StripeGateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*stripe.Intent, error)
}

// RazorpayGateway is the slice of the Razorpay client the service needs.
type RazorpayGateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*razorpay.Order, error)
	KeyID() string
}

// CreateIntentInput starts a payment for a placed order.
type CreateIntentInput struct {
	UserID   uuid.UUID
	OrderID  uuid.UUID
	Provider enums.PaymentProvider
	Currency string
}

// IntentResult is what the client needs to complete the payment.
type IntentResult struct {
	Provider     enums.PaymentProvider `json:"provider"`
	Reference    string                `json:"reference"`
	ClientSecret string                `json:"client_secret,omitempty"`
	KeyID        string                `json:"key_id,omitempty"`
	AmountMinor  int64                 `json:"amount_minor"`
	Currency     string                `json:"currency"`
}

// Service starts provider-side payments for placed orders.
type Service interface {
	CreateIntent(ctx context.Context, input CreateIntentInput) (*IntentResult, error)
}

type service struct {
	ordersRepo orders.Repository
	stripe     StripeGateway
	razorpay   RazorpayGateway
	db         *gorm.DB
}

// NewService builds a payments service. Either gateway may be nil when the
// provider is not configured; requesting it then fails with a dependency error.
func NewService(ordersRepo orders.Repository, stripeGW StripeGateway, razorpayGW RazorpayGateway, db *gorm.DB) (Service, error) {
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &service{
		ordersRepo: ordersRepo,
		stripe:     stripeGW,
		razorpay:   razorpayGW,
		db:         db,
	}, nil
}

func (s *service) CreateIntent(ctx context.Context, input CreateIntentInput) (*IntentResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Provider.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment provider")
	}
	currency := input.Currency
	if currency == "" {
		currency = "usd"
	}

	order, err := s.ordersRepo.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading order")
	}
	if order.UserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you do not own this order")
	}
	if order.PaymentRef != nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidOperation, "payment already started for this order")
	}

	amountMinor := toMinorUnits(order.Total)
	if amountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidOperation, "order total is not payable")
	}

	var result *IntentResult
	switch input.Provider {
	case enums.ProviderStripe:
		if s.stripe == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "stripe is not configured")
		}
		intent, err := s.stripe.CreateIntent(ctx, amountMinor, currency, map[string]string{
			"order_id": order.ID.String(),
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodePayment, err, "creating stripe intent")
		}
		result = &IntentResult{
			Provider:     enums.ProviderStripe,
			Reference:    intent.ID,
			ClientSecret: intent.ClientSecret,
			AmountMinor:  intent.Amount,
			Currency:     intent.Currency,
		}

	case enums.ProviderRazorpay:
		if s.razorpay == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay is not configured")
		}
		rzpOrder, err := s.razorpay.CreateOrder(ctx, amountMinor, currency, order.ID.String())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodePayment, err, "creating razorpay order")
		}
		result = &IntentResult{
			Provider:    enums.ProviderRazorpay,
			Reference:   rzpOrder.ID,
			KeyID:       s.razorpay.KeyID(),
			AmountMinor: rzpOrder.Amount,
			Currency:    rzpOrder.Currency,
		}
	}

	if err := s.recordPayment(ctx, order, input.Provider, result.Reference); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) recordPayment(ctx context.Context, order *models.Order, provider enums.PaymentProvider, ref string) error {
	err := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{
			"payment_provider": provider.String(),
			"payment_ref":      ref,
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "recording payment reference")
	}
	return nil
}

// toMinorUnits converts a two-decimal total into integer minor units without
// floating point drift.
func toMinorUnits(total float64) int64 {
	return int64(math.Round(total * 100))
}
