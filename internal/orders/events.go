package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderPaid      = "OrderPaid"
	EventOrderCancelled = "OrderCancelled"
	EventStockRestored  = "StockRestored"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "storefront-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // biasanya order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type OrderCreatedPayload struct {
	OrderID    string        `json:"order_id"`
	UserID     string        `json:"user_id,omitempty"`
	Method     PaymentMethod `json:"method"`
	Items      []ItemQty     `json:"items"`
	TotalCents int           `json:"total_cents"`
}

type OrderPaidPayload struct {
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id"`
	TotalCents    int    `json:"total_cents"`
}

type OrderCancelledPayload struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"` // e.g., PROVIDER_FAILED, PAYMENT_FAILED
}

type StockRestoredPayload struct {
	OrderID string    `json:"order_id"`
	Items   []ItemQty `json:"items"`
}
