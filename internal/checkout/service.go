// Package checkout: orchestrator cart -> order -> payment session.
// Bentuknya dua fase gaya SAGA: commit lokal dulu (order pending), baru
// external call yang irrevocable, lalu compensate kalau call-nya gagal.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/cart"
	kafkax "github.com/ariefcatur/go-storefront-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/orders"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/stock"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

var (
	ErrEmptyCart    = errors.New("cart is empty")
	ErrNoSession    = errors.New("no active session")
	ErrBelowMinimum = errors.New("cart total below provider minimum")
)

// InvalidLineItemError: line tanpa harga positif atau qty di luar 1..10.
type InvalidLineItemError struct {
	VariantID string
	Reason    string
}

func (e *InvalidLineItemError) Error() string {
	return fmt.Sprintf("invalid line item %s: %s", e.VariantID, e.Reason)
}

// ProviderError membungkus kegagalan call ke payment provider; order sudah
// di-cancel lewat compensating write saat error ini sampai ke caller.
type ProviderError struct{ Err error }

func (e *ProviderError) Error() string { return "provider call failed: " + e.Err.Error() }
func (e *ProviderError) Unwrap() error { return e.Err }

type PreferenceItem struct {
	Name           string
	UnitPriceCents int
	Qty            int
}

type Payer struct {
	Email     string
	FirstName string
	LastName  string
}

type PreferenceRequest struct {
	OrderID     string // dipakai provider sebagai external_reference
	AmountCents int
	Items       []PreferenceItem
	Payer       Payer
}

type PreferenceResult struct {
	RedirectURL  string
	PreferenceID string
}

// PreferenceCreator: create payment session di provider. Implementasi wajib
// bawa timeout sendiri; kita tidak pegang lock DB selama call ini.
type PreferenceCreator interface {
	CreatePreference(ctx context.Context, req PreferenceRequest) (PreferenceResult, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Result struct {
	OrderID     string
	CheckoutURL string
	WhatsAppURL string // terisi hanya utk channel whatsapp
}

type Service struct {
	Carts    cart.Store
	Store    orders.Store
	Provider PreferenceCreator
	Events   Publisher
	Service  string

	MinAmountCents int
	WhatsAppNumber string
	AppBaseURL     string
}

// Checkout menjalankan seluruh saga utk satu owner. Stok hanya divalidasi di
// sini (row lock); pengurangan beneran terjadi saat webhook konfirmasi paid.
func (s *Service) Checkout(ctx context.Context, owner cart.Owner, method orders.PaymentMethod) (Result, error) {
	if owner.Empty() {
		return Result{}, ErrNoSession
	}

	// Guest baru login: merge cart guest ke cart user dulu.
	if owner.UserID != "" && owner.GuestToken != "" {
		if err := s.Carts.MergeGuestIntoUser(ctx, owner.GuestToken, owner.UserID); err != nil {
			return Result{}, fmt.Errorf("merge carts: %w", err)
		}
	}

	cartID, lines, err := s.Carts.ActiveLines(ctx, owner)
	if err != nil {
		return Result{}, err
	}
	if cartID == "" || len(lines) == 0 {
		return Result{}, ErrEmptyCart
	}

	total := 0
	for _, l := range lines {
		if l.Qty <= 0 || l.Qty > cart.MaxQtyPerItem {
			return Result{}, &InvalidLineItemError{VariantID: l.VariantID, Reason: fmt.Sprintf("qty %d out of range", l.Qty)}
		}
		if l.EffectivePriceCents() <= 0 {
			return Result{}, &InvalidLineItemError{VariantID: l.VariantID, Reason: "non-positive price"}
		}
		total += l.EffectivePriceCents() * l.Qty
	}
	if total < s.MinAmountCents {
		return Result{}, ErrBelowMinimum
	}

	ord := orders.Order{
		ID:         uuid.NewString(),
		UserID:     owner.UserID,
		Status:     orders.StatusPending,
		TotalCents: total,
		CreatedAt:  time.Now().UTC(),
	}

	// Satu transaksi: lock+validasi stok, insert order+items+payment.
	// Gagal di line mana pun -> tidak ada row yang tersisa (all-or-nothing).
	err = s.Store.Transact(ctx, func(tx orders.StoreTx) error {
		if err := stock.Validate(ctx, tx, toQty(lines)); err != nil {
			return err
		}
		if err := tx.InsertOrder(ctx, ord); err != nil {
			return err
		}
		items := make([]orders.OrderItem, 0, len(lines))
		for _, l := range lines {
			items = append(items, orders.OrderItem{
				ID:         uuid.NewString(),
				OrderID:    ord.ID,
				VariantID:  l.VariantID,
				Qty:        l.Qty,
				PriceCents: l.EffectivePriceCents(), // frozen di sini
			})
		}
		if err := tx.InsertOrderItems(ctx, items); err != nil {
			return err
		}
		if err := tx.InsertPayment(ctx, placeholderPayment(ord.ID, method)); err != nil {
			return err
		}
		if method == orders.MethodWhatsApp {
			// Tidak ada external call yang bisa gagal setelah ini, jadi
			// cart boleh dikosongkan di transaksi yang sama.
			return tx.ClearCart(ctx, cartID)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	var res Result
	switch method {
	case orders.MethodWhatsApp:
		res, err = s.finishWhatsApp(ord, lines, owner)
	default:
		res, err = s.finishMercadoPago(ctx, ord, lines, owner, cartID)
	}
	if err != nil {
		return Result{}, err
	}

	s.publishCreated(ord, method, lines)
	return res, nil
}

func placeholderPayment(orderID string, method orders.PaymentMethod) orders.Payment {
	txnID := "pref-" + orderID
	if method == orders.MethodWhatsApp {
		txnID = "WA-" + orderID
	}
	return orders.Payment{
		ID:            uuid.NewString(),
		OrderID:       orderID,
		Method:        method,
		Status:        orders.PaymentInitiated,
		TransactionID: txnID,
	}
}

// finishMercadoPago: fase kedua saga. Call provider DI LUAR transaksi; kalau
// gagal, order yang sudah commit di-cancel lewat compensating write. Stok
// tidak disentuh: belum ada decrement sebelum paid.
func (s *Service) finishMercadoPago(ctx context.Context, ord orders.Order, lines []cart.Line, owner cart.Owner, cartID string) (Result, error) {
	req := PreferenceRequest{
		OrderID:     ord.ID,
		AmountCents: ord.TotalCents,
		Payer:       payerFrom(owner),
	}
	for _, l := range lines {
		req.Items = append(req.Items, PreferenceItem{
			Name:           l.Name,
			UnitPriceCents: l.EffectivePriceCents(),
			Qty:            l.Qty,
		})
	}

	pref, err := s.Provider.CreatePreference(ctx, req)
	if err != nil {
		if cerr := s.Store.SetOrderStatus(ctx, ord.ID, orders.StatusCancelled); cerr != nil {
			log.Printf("checkout: compensating cancel for order %s failed: %v", ord.ID, cerr)
		}
		return Result{}, &ProviderError{Err: err}
	}

	// Preference id asli menggantikan placeholder utk trazabilitas sebelum
	// webhook pertama. Gagal di sini tidak fatal: webhook tetap match via
	// external_reference.
	if err := s.Store.SetPaymentTransactionID(ctx, ord.ID, pref.PreferenceID); err != nil {
		log.Printf("checkout: store preference id for order %s: %v", ord.ID, err)
	}
	if err := s.Carts.Clear(ctx, cartID); err != nil {
		log.Printf("checkout: clear cart %s: %v", cartID, err)
	}

	return Result{OrderID: ord.ID, CheckoutURL: pref.RedirectURL}, nil
}

func payerFrom(owner cart.Owner) Payer {
	p := Payer{Email: owner.UserEmail}
	parts := strings.Fields(owner.UserName)
	if len(parts) > 0 {
		p.FirstName = parts[0]
		p.LastName = strings.Join(parts[1:], " ")
	}
	return p
}

func toQty(lines []cart.Line) []orders.ItemQty {
	out := make([]orders.ItemQty, 0, len(lines))
	for _, l := range lines {
		out = append(out, orders.ItemQty{VariantID: l.VariantID, Qty: l.Qty})
	}
	return out
}

func (s *Service) publishCreated(ord orders.Order, method orders.PaymentMethod, lines []cart.Line) {
	if s.Events == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Service,
		CorrelationID: ord.ID,
		Payload: kafkax.MustMarshal(orders.OrderCreatedPayload{
			OrderID:    ord.ID,
			UserID:     ord.UserID,
			Method:     method,
			Items:      toQty(lines),
			TotalCents: ord.TotalCents,
		}),
	}
	s.Events.Publish(orders.PartitionKey(ord.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderCreated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
