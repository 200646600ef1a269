package redisx

import "time"

const (
	// Fast-path idempotency checkout: idem:checkout:{idempotency_key} ->
	// respons tersimpan. DB tetap jadi kebenaran; key ini cuma shortcut.
	KeyIdemCheckout = "idem:checkout:%s"

	// Cache status order: order_status:{order_id} -> {"status": "..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup notifikasi webhook by x-request-id: dedup:webhook:{request_id}
	KeyWebhookDedup = "dedup:webhook:%s"
)

var (
	TTLIdempotency  = 24 * time.Hour
	TTLStatusCache  = 5 * time.Minute
	TTLWebhookDedup = 48 * time.Hour
)
