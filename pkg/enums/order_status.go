package enums

import "fmt"

// OrderItemStatus tracks the lifecycle of a single purchased line.
type OrderItemStatus string

const (
	OrderItemPending    OrderItemStatus = "pending"
	OrderItemProcessing OrderItemStatus = "processing"
	OrderItemShipped    OrderItemStatus = "shipped"
	OrderItemDelivered  OrderItemStatus = "delivered"
	OrderItemCancelled  OrderItemStatus = "cancelled"
)

var allOrderItemStatuses = map[OrderItemStatus]struct{}{
	OrderItemPending:    {},
	OrderItemProcessing: {},
	OrderItemShipped:    {},
	OrderItemDelivered:  {},
	OrderItemCancelled:  {},
}

func (s OrderItemStatus) String() string {
	return string(s)
}

func (s OrderItemStatus) Valid() bool {
	_, ok := allOrderItemStatuses[s]
	return ok
}

// Terminal reports whether the status permits no further transitions.
func (s OrderItemStatus) Terminal() bool {
	return s == OrderItemDelivered || s == OrderItemCancelled
}

// ParseOrderItemStatus validates a raw status string.
func ParseOrderItemStatus(raw string) (OrderItemStatus, error) {
	s := OrderItemStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown order item status %q", raw)
	}
	return s, nil
}
