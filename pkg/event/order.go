package event

import "time"

const (
	OrdersTopic         = "dawat.orders"
	EventOrderCreated   = "order.created"
	EventOrderReady     = "order.ready"
	EventOrderCompleted = "order.completed"
	EventOrderCancelled = "order.cancelled"
	EventOrderRated     = "order.rated"
)

// OrderEvent is published on every order lifecycle transition.
// The passcode is never part of the payload.
type OrderEvent struct {
	EventType      string    `json:"event_type"`
	OccurredAt     time.Time `json:"occurred_at"`
	OrderID        string    `json:"order_id"`
	PostID         string    `json:"post_id"`
	CustomerID     string    `json:"customer_id"`
	SupplierID     string    `json:"supplier_id"`
	Quantity       int       `json:"quantity"`
	TotalPrice     string    `json:"total_price"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	ETAMinutes     *int      `json:"eta_minutes,omitempty"`

	// Set on order.rated only
	RaterRole string `json:"rater_role,omitempty"`
	Rating    int    `json:"rating,omitempty"`
}
