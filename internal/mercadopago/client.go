// Package mercadopago: klien HTTP ke API Mercado Pago. Hanya dua call yang
// dikonsumsi core: create preference (checkout) dan get payment (webhook).
package mercadopago

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/checkout"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/webhook"
	"github.com/go-resty/resty/v2"
)

const (
	defaultBaseURL = "https://api.mercadopago.com"
	maxTitleLen    = 100 // MP limita títulos a 100 chars
)

type Config struct {
	AccessToken    string
	BaseURL        string // override utk test
	AppBaseURL     string // back_urls + notification_url
	MinAmountCents int
	Timeout        time.Duration
}

type Client struct {
	http           *resty.Client
	appBaseURL     string
	minAmountCents int
}

func New(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http: resty.New().
			SetBaseURL(base).
			SetTimeout(timeout).
			SetAuthToken(cfg.AccessToken).
			SetHeader("Content-Type", "application/json"),
		appBaseURL:     strings.TrimRight(cfg.AppBaseURL, "/"),
		minAmountCents: cfg.MinAmountCents,
	}
}

type preferenceItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
	CategoryID string  `json:"category_id"`
}

type preferencePayer struct {
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Surname string `json:"surname,omitempty"`
}

type preferenceBody struct {
	Items             []preferenceItem  `json:"items"`
	Payer             *preferencePayer  `json:"payer,omitempty"`
	ExternalReference string            `json:"external_reference"`
	NotificationURL   string            `json:"notification_url"`
	BackURLs          map[string]string `json:"back_urls"`
	AutoReturn        string            `json:"auto_return"`
	Expires           bool              `json:"expires"`
	ExpirationDateTo  string            `json:"expiration_date_to"`
}

type preferenceResponse struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// CreatePreference implementasi checkout.PreferenceCreator.
func (c *Client) CreatePreference(ctx context.Context, req checkout.PreferenceRequest) (checkout.PreferenceResult, error) {
	if len(req.Items) == 0 {
		return checkout.PreferenceResult{}, fmt.Errorf("preference without items")
	}
	if req.AmountCents < c.minAmountCents {
		return checkout.PreferenceResult{}, fmt.Errorf("amount %d below provider minimum %d", req.AmountCents, c.minAmountCents)
	}

	body := preferenceBody{
		ExternalReference: req.OrderID,
		NotificationURL:   c.appBaseURL + "/webhooks/mercadopago",
		BackURLs: map[string]string{
			"success": c.appBaseURL + "/checkout/success?order_id=" + req.OrderID,
			"failure": c.appBaseURL + "/checkout/failure?order_id=" + req.OrderID,
			"pending": c.appBaseURL + "/checkout/pending?order_id=" + req.OrderID,
		},
		AutoReturn:       "approved",
		Expires:          true,
		ExpirationDateTo: time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339),
	}
	for i, it := range req.Items {
		if it.UnitPriceCents <= 0 {
			return checkout.PreferenceResult{}, fmt.Errorf("non-positive price for item %q", it.Name)
		}
		if it.Qty <= 0 {
			return checkout.PreferenceResult{}, fmt.Errorf("non-positive quantity for item %q", it.Name)
		}
		body.Items = append(body.Items, preferenceItem{
			ID:         fmt.Sprintf("item-%d", i),
			Title:      truncate(collapseSpaces(it.Name), maxTitleLen),
			Quantity:   it.Qty,
			UnitPrice:  float64(it.UnitPriceCents) / 100,
			CurrencyID: "COP",
			CategoryID: "others",
		})
	}
	if req.Payer.Email != "" || req.Payer.FirstName != "" {
		body.Payer = &preferencePayer{
			Email:   req.Payer.Email,
			Name:    req.Payer.FirstName,
			Surname: req.Payer.LastName,
		}
	}

	var out preferenceResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/checkout/preferences")
	if err != nil {
		return checkout.PreferenceResult{}, fmt.Errorf("create preference: %w", err)
	}
	if resp.IsError() {
		return checkout.PreferenceResult{}, fmt.Errorf("create preference: status %d: %s", resp.StatusCode(), resp.String())
	}
	if out.ID == "" || out.InitPoint == "" {
		return checkout.PreferenceResult{}, fmt.Errorf("create preference: malformed response")
	}
	return checkout.PreferenceResult{RedirectURL: out.InitPoint, PreferenceID: out.ID}, nil
}

type paymentResponse struct {
	ID                any     `json:"id"` // MP kadang kirim number, kadang string
	Status            string  `json:"status"`
	ExternalReference string  `json:"external_reference"`
	TransactionAmount float64 `json:"transaction_amount"`
	Payer             struct {
		Email string `json:"email"`
	} `json:"payer"`
}

// GetPayment implementasi webhook.PaymentFetcher.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (webhook.PaymentDetails, error) {
	var out paymentResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/v1/payments/" + paymentID)
	if err != nil {
		return webhook.PaymentDetails{}, fmt.Errorf("get payment %s: %w", paymentID, err)
	}
	if resp.IsError() {
		return webhook.PaymentDetails{}, fmt.Errorf("get payment %s: status %d", paymentID, resp.StatusCode())
	}
	if out.Status == "" {
		return webhook.PaymentDetails{}, fmt.Errorf("get payment %s: malformed response", paymentID)
	}
	return webhook.PaymentDetails{
		ID:                fmt.Sprint(out.ID),
		Status:            out.Status,
		ExternalReference: out.ExternalReference,
		AmountCents:       int(out.TransactionAmount * 100),
		PayerEmail:        out.Payer.Email,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
