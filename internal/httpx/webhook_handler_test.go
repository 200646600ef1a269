package httpx

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/webhook"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret"

type fakeProcessor struct {
	res    webhook.Result
	err    error
	calls  int
	lastID string
}

func (f *fakeProcessor) Process(ctx context.Context, paymentID string) (webhook.Result, error) {
	f.calls++
	f.lastID = paymentID
	return f.res, f.err
}

func signFor(dataID, requestID string) string {
	ts := "1700000000000"
	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(manifest))
	return fmt.Sprintf("ts=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func newWebhookServer(p *fakeProcessor) *httptest.Server {
	r := chi.NewRouter()
	h := &WebhookHandler{Reconciler: p, Secret: testSecret}
	h.Register(r)
	return httptest.NewServer(r)
}

func postNotification(t *testing.T, srv *httptest.Server, dataID, requestID, signature, bodyID string) *http.Response {
	t.Helper()
	body := fmt.Sprintf(`{"action":"payment.updated","type":"payment","data":{"id":%q}}`, bodyID)
	req, err := http.NewRequest(http.MethodPost,
		srv.URL+"/webhooks/mercadopago?type=payment&data.id="+dataID,
		strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("x-signature", signature)
	}
	if requestID != "" {
		req.Header.Set("x-request-id", requestID)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestWebhookSuccess(t *testing.T) {
	p := &fakeProcessor{res: webhook.Result{
		OrderID: "ord-1", PaymentID: "pay-1", Outcome: webhook.OutcomePaid, Applied: true,
	}}
	srv := newWebhookServer(p)
	defer srv.Close()

	resp := postNotification(t, srv, "pay-1", "req-1", signFor("pay-1", "req-1"), "pay-1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["received"])
	assert.Equal(t, "pay-1", body["payment_id"])
	assert.Equal(t, "ord-1", body["order_id"])
	assert.Equal(t, "paid", body["status"])
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, "pay-1", p.lastID)
}

func TestWebhookIgnoresNonPaymentTypes(t *testing.T) {
	p := &fakeProcessor{}
	srv := newWebhookServer(p)
	defer srv.Close()

	resp, err := srv.Client().Post(srv.URL+"/webhooks/mercadopago?type=test", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 0, p.calls)
}

func TestWebhookMissingFields(t *testing.T) {
	p := &fakeProcessor{}
	srv := newWebhookServer(p)
	defer srv.Close()

	// tanpa x-signature
	resp := postNotification(t, srv, "pay-1", "req-1", "", "pay-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// tanpa x-request-id
	resp = postNotification(t, srv, "pay-1", "", signFor("pay-1", "req-1"), "pay-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	assert.Equal(t, 0, p.calls)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	p := &fakeProcessor{}
	srv := newWebhookServer(p)
	defer srv.Close()

	// signature utk data.id lain
	resp := postNotification(t, srv, "pay-1", "req-1", signFor("pay-OTHER", "req-1"), "pay-1")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// garbage total
	resp = postNotification(t, srv, "pay-1", "req-1", "ts=1,v1=zzzz", "pay-1")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	assert.Equal(t, 0, p.calls)
}

func TestWebhookRejectsBodyMismatch(t *testing.T) {
	p := &fakeProcessor{}
	srv := newWebhookServer(p)
	defer srv.Close()

	// body data.id != query data.id walau signature query valid
	resp := postNotification(t, srv, "pay-1", "req-1", signFor("pay-1", "req-1"), "pay-2")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 0, p.calls)
}

func TestWebhookProcessorErrorStillAcks(t *testing.T) {
	p := &fakeProcessor{err: errors.New("db down")}
	srv := newWebhookServer(p)
	defer srv.Close()

	resp := postNotification(t, srv, "pay-1", "req-1", signFor("pay-1", "req-1"), "pay-1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["received"])
	assert.Equal(t, 1, p.calls)
}

func TestWebhookWithoutSecretIsServerError(t *testing.T) {
	r := chi.NewRouter()
	h := &WebhookHandler{Reconciler: &fakeProcessor{}, Secret: ""}
	h.Register(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp := postNotification(t, srv, "pay-1", "req-1", signFor("pay-1", "req-1"), "pay-1")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	resp.Body.Close()
}
