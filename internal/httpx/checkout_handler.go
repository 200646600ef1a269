package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/cart"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/checkout"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/metrics"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/orders"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/redisx"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/stock"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

type Checkouter interface {
	Checkout(ctx context.Context, owner cart.Owner, method orders.PaymentMethod) (checkout.Result, error)
}

type CheckoutHandler struct {
	Service Checkouter
	Session SessionReader
	Redis   *redis.Client
	Metrics *metrics.Metrics
}

type checkoutReq struct {
	Method string `json:"method"`
}

type checkoutResp struct {
	OrderID     string `json:"order_id"`
	CheckoutURL string `json:"checkout_url"`
	WhatsAppURL string `json:"whatsapp_url,omitempty"`
}

func (h *CheckoutHandler) Register(r *chi.Mux) {
	r.Post("/checkout", h.checkout)
}

func (h *CheckoutHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	method := orders.PaymentMethod(req.Method)
	if method != orders.MethodMercadoPago && method != orders.MethodWhatsApp {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown method"})
		return
	}

	owner := h.Session.Owner(r)
	if owner.Empty() {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no active session"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 25*time.Second)
	defer cancel()

	// Fast-path idempotency: retry klien dengan Idempotency-Key yang sama
	// dapat respons tersimpan, bukan order kedua.
	idemKey := r.Header.Get("Idempotency-Key")
	if cached, ok := h.cachedResponse(ctx, idemKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	res, err := h.Service.Checkout(ctx, owner, method)
	if err != nil {
		h.Metrics.IncCheckout(string(method), "error")
		h.writeCheckoutError(w, err)
		return
	}

	h.Metrics.IncCheckout(string(method), "ok")
	h.cacheStatus(ctx, res.OrderID, orders.StatusPending)
	resp := checkoutResp{
		OrderID:     res.OrderID,
		CheckoutURL: res.CheckoutURL,
		WhatsAppURL: res.WhatsAppURL,
	}
	h.storeResponse(ctx, idemKey, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (h *CheckoutHandler) cachedResponse(ctx context.Context, idemKey string) (checkoutResp, bool) {
	var resp checkoutResp
	if idemKey == "" || h.Redis == nil {
		return resp, false
	}
	key := fmt.Sprintf(redisx.KeyIdemCheckout, idemKey)
	s, err := h.Redis.Get(ctx, key).Result()
	if err != nil {
		return resp, false
	}
	if err := json.Unmarshal([]byte(s), &resp); err != nil {
		return resp, false
	}
	return resp, true
}

func (h *CheckoutHandler) storeResponse(ctx context.Context, idemKey string, resp checkoutResp) {
	if idemKey == "" || h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyIdemCheckout, idemKey)
	b, _ := json.Marshal(resp)
	_ = h.Redis.Set(ctx, key, b, redisx.TTLIdempotency).Err()
}

// Error taxonomy -> pesan user-facing. Detail internal cukup di log.
func (h *CheckoutHandler) writeCheckoutError(w http.ResponseWriter, err error) {
	var insufficient *stock.InsufficientError
	var invalid *checkout.InvalidLineItemError
	var provider *checkout.ProviderError
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "el carrito está vacío"})
	case errors.Is(err, checkout.ErrNoSession):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no active session"})
	case errors.Is(err, checkout.ErrBelowMinimum):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "el total no alcanza el mínimo de compra"})
	case errors.As(err, &insufficient):
		h.Metrics.IncStockRejection()
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":      "algunos productos ya no están disponibles en la cantidad pedida",
			"variant_id": insufficient.VariantID,
		})
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "productos sin información completa, recarga el carrito"})
	case errors.As(err, &provider):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "no pudimos iniciar el pago, intenta de nuevo"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "checkout failed"})
	}
}

func (h *CheckoutHandler) cacheStatus(ctx context.Context, orderID string, s orders.Status) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	_ = h.Redis.Set(ctx, key, fmt.Sprintf(`{"status":%q}`, s), redisx.TTLStatusCache).Err()
}
