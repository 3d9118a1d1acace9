package enums

import "fmt"

// PaymentProvider identifies a supported payment gateway.
type PaymentProvider string

const (
	ProviderStripe   PaymentProvider = "stripe"
	ProviderRazorpay PaymentProvider = "razorpay"
)

func (p PaymentProvider) String() string {
	return string(p)
}

func (p PaymentProvider) Valid() bool {
	return p == ProviderStripe || p == ProviderRazorpay
}

// ParsePaymentProvider validates a raw provider string.
func ParsePaymentProvider(raw string) (PaymentProvider, error) {
	p := PaymentProvider(raw)
	if !p.Valid() {
		return "", fmt.Errorf("unknown payment provider %q", raw)
	}
	return p, nil
}
