package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/metrics"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/redisx"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/webhook"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

type Processor interface {
	Process(ctx context.Context, paymentID string) (webhook.Result, error)
}

// WebhookHandler menerima notifikasi pembayaran dari provider. Kontrak
// respons: 200 utk semua kasus kecuali signature gagal (401) dan input
// malformed (400), karena non-200 lain bikin provider retry selamanya.
type WebhookHandler struct {
	Reconciler Processor
	Secret     string
	Redis      *redis.Client
	Metrics    *metrics.Metrics
}

type webhookBody struct {
	Action string `json:"action"`
	Type   string `json:"type"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (h *WebhookHandler) Register(r *chi.Mux) {
	r.Post("/webhooks/mercadopago", h.handle)
}

func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("type") != "payment" {
		// Tipe lain di-ack dan di-drop, bukan urusan reconciler.
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	if h.Secret == "" {
		log.Printf("webhook: MP_WEBHOOK_SECRET not configured")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
		return
	}

	dataID := q.Get("data.id")
	xSignature := r.Header.Get("x-signature")
	xRequestID := r.Header.Get("x-request-id")
	if dataID == "" || xSignature == "" || xRequestID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing required fields"})
		return
	}

	if !webhook.VerifySignature(dataID, xRequestID, xSignature, h.Secret) {
		log.Printf("webhook: invalid signature for data.id=%s", dataID)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var body webhookBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Data.ID == "" || body.Data.ID != dataID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 25*time.Second)
	defer cancel()

	// Fast-path dedup by request id; DB idempotency tetap pertahanan utama.
	dkey := fmt.Sprintf(redisx.KeyWebhookDedup, xRequestID)
	if h.Redis != nil {
		if seen, _ := redisx.Exists(ctx, h.Redis, dkey); seen {
			writeJSON(w, http.StatusOK, map[string]bool{"received": true})
			return
		}
	}

	res, err := h.Reconciler.Process(ctx, dataID)
	if err != nil {
		// Error internal -> tetap 200: retry provider tidak memperbaiki apa
		// pun di sini; idempotency key + log yang menyelesaikan.
		log.Printf("webhook: process payment %s: %v", dataID, err)
		writeJSON(w, http.StatusOK, map[string]any{"received": false, "error": "internal error"})
		return
	}

	h.Metrics.IncWebhook(string(res.Outcome))
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, dkey, "1", redisx.TTLWebhookDedup).Err()
		if res.Applied {
			skey := fmt.Sprintf(redisx.KeyOrderStatus, res.OrderID)
			_ = h.Redis.Set(ctx, skey, fmt.Sprintf(`{"status":%q}`, res.Outcome.OrderStatus()), redisx.TTLStatusCache).Err()
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"received":   true,
		"payment_id": res.PaymentID,
		"order_id":   res.OrderID,
		"status":     res.Outcome,
	})
}
