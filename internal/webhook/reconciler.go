// Package webhook: reconciler notifikasi pembayaran asinkron. Caller tidak
// dipercaya, network bisa redeliver berkali-kali, dan dua notifikasi utk
// order yang sama bisa balapan; semua itu diselesaikan di sini.
package webhook

import (
	"context"
	"fmt"
	"log"
	"time"

	kafkax "github.com/ariefcatur/go-storefront-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/orders"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/stock"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// PaymentDetails: hasil fetch detail pembayaran dari provider. Notifikasi
// sendiri cuma bawa payment id; order ref ada di external_reference.
type PaymentDetails struct {
	ID                string
	Status            string
	ExternalReference string
	AmountCents       int
	PayerEmail        string
}

type PaymentFetcher interface {
	GetPayment(ctx context.Context, paymentID string) (PaymentDetails, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Result struct {
	OrderID          string
	PaymentID        string
	Outcome          Outcome
	Applied          bool // false: duplicate / tanpa order ref, di-ack saja
	StockDecremented bool
	StockRestored    bool
	RestoredItems    []orders.ItemQty
}

type Reconciler struct {
	Store    orders.Store
	Provider PaymentFetcher
	Events   Publisher
	Service  string
}

// Process memetakan status provider ke outcome internal lalu menerapkan
// transisi idempoten ke Order + Payment + ledger stok.
func (r *Reconciler) Process(ctx context.Context, paymentID string) (Result, error) {
	details, err := r.Provider.GetPayment(ctx, paymentID)
	if err != nil {
		return Result{PaymentID: paymentID}, fmt.Errorf("fetch payment %s: %w", paymentID, err)
	}

	orderID := details.ExternalReference
	if orderID == "" {
		// Tanpa order ref tidak ada yang bisa direkonsiliasi; ack dan catat.
		log.Printf("webhook: payment %s has no order reference, dropping", paymentID)
		return Result{PaymentID: paymentID}, nil
	}

	outcome := MapStatus(details.Status)
	res := Result{OrderID: orderID, PaymentID: paymentID, Outcome: outcome}

	// Idempotency pertahanan pertama: payment row by transaction id. Duplikat
	// delivery dengan outcome sama -> no-op. Outcome BEDA (mis. charged_back
	// setelah completed) tetap diproses.
	existing, err := r.Store.PaymentByTransactionID(ctx, paymentID)
	if err == nil && existing.Status.Terminal() && existing.Status == outcome.PaymentStatus() {
		return res, nil
	}

	err = r.Store.Transact(ctx, func(tx orders.StoreTx) error {
		ord, err := tx.OrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		prev := ord.Status

		pay := orders.Payment{
			OrderID:       orderID,
			Method:        orders.MethodMercadoPago,
			Status:        outcome.PaymentStatus(),
			TransactionID: paymentID,
		}
		if outcome == OutcomePaid {
			now := time.Now().UTC()
			pay.PaidAt = &now
		}
		if err := tx.UpsertPayment(ctx, pay); err != nil {
			return err
		}

		// Status order SELALU ditulis, termasuk utk retry, supaya notifikasi
		// final yang telat tidak hilang. Guard idempoten ada di level payment
		// row dan di gating stok, bukan di sini.
		next := outcome.OrderStatus()
		if next != prev && !orders.CanTransition(prev, next) {
			log.Printf("webhook: order %s unusual transition %s -> %s (payment %s)", orderID, prev, next, paymentID)
		}
		if err := tx.SetOrderStatus(ctx, orderID, next); err != nil {
			return err
		}

		// Stok hanya bergerak pada perubahan status yang sebenarnya:
		// decrement cuma saat order pertama kali jadi paid, restore cuma
		// saat order yang sudah paid dibalikkan (refund/chargeback).
		switch {
		case outcome == OutcomePaid && prev != orders.StatusPaid:
			items, err := tx.ItemsByOrder(ctx, orderID)
			if err != nil {
				return err
			}
			if err := stock.Reserve(ctx, tx, toQty(items)); err != nil {
				return err
			}
			res.StockDecremented = true
		case outcome == OutcomeFailed && prev == orders.StatusPaid:
			items, err := tx.ItemsByOrder(ctx, orderID)
			if err != nil {
				return err
			}
			if err := stock.Release(ctx, tx, toQty(items)); err != nil {
				return err
			}
			res.StockRestored = true
			res.RestoredItems = toQty(items)
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("reconcile order %s: %w", orderID, err)
	}

	res.Applied = true
	r.publish(orderID, paymentID, details.AmountCents, res)
	return res, nil
}

func toQty(items []orders.OrderItem) []orders.ItemQty {
	out := make([]orders.ItemQty, 0, len(items))
	for _, it := range items {
		out = append(out, orders.ItemQty{VariantID: it.VariantID, Qty: it.Qty})
	}
	return out
}

func (r *Reconciler) publish(orderID, paymentID string, amount int, res Result) {
	if r.Events == nil {
		return
	}
	switch {
	case res.StockDecremented:
		r.emit(orderID, orders.EventOrderPaid, orders.OrderPaidPayload{
			OrderID: orderID, TransactionID: paymentID, TotalCents: amount,
		})
	case res.Outcome == OutcomeFailed:
		r.emit(orderID, orders.EventOrderCancelled, orders.OrderCancelledPayload{
			OrderID: orderID, Reason: "PAYMENT_FAILED",
		})
	}
	if res.StockRestored {
		r.emit(orderID, orders.EventStockRestored, orders.StockRestoredPayload{
			OrderID: orderID, Items: res.RestoredItems,
		})
	}
}

func (r *Reconciler) emit(orderID, eventType string, payload any) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      r.Service,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	r.Events.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
