package razorpay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	razorpay "github.com/razorpay/razorpay-go"

	"github.com/embercart/embercart-backend/pkg/config"
	"github.com/embercart/embercart-backend/pkg/logger"
)

var errCredentialsRequired = errors.New("razorpay key id and secret are required")

// Client wraps the Razorpay SDK for order creation.
type Client struct {
	api   *razorpay.Client
	keyID string
}

// Order is the subset of a Razorpay order the checkout flow needs.
type Order struct {
	ID       string
	Amount   int64
	Currency string
}

// NewClient initializes the Razorpay SDK with the configured credentials.
func NewClient(ctx context.Context, cfg config.RazorpayConfig, logg *logger.Logger) (*Client, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keyID == "" || keySecret == "" {
		return nil, errCredentialsRequired
	}

	api := razorpay.NewClient(keyID, keySecret)

	if logg != nil {
		logg.Info(ctx, "razorpay client initialized")
	}

	return &Client{api: api, keyID: keyID}, nil
}

// CreateOrder creates a Razorpay order for the given amount in the smallest
// currency unit (paise for INR). The SDK is not context-aware; ctx is checked
// before the call is made.
func (c *Client) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*Order, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("razorpay client not initialized")
	}
	if amountMinor <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %d", amountMinor)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"amount":   amountMinor,
		"currency": strings.ToUpper(currency),
		"receipt":  receipt,
	}

	body, err := c.api.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("create razorpay order: %w", err)
	}

	order := &Order{Currency: strings.ToUpper(currency)}
	if id, ok := body["id"].(string); ok {
		order.ID = id
	}
	switch amount := body["amount"].(type) {
	case float64:
		order.Amount = int64(amount)
	case int64:
		order.Amount = amount
	}
	if order.ID == "" {
		return nil, errors.New("razorpay order response missing id")
	}
	return order, nil
}

// KeyID returns the public key id clients use to open the checkout widget.
func (c *Client) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}
