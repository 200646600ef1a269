package webhook

import (
	"context"
	"errors"
	"testing"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/memstore"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/orders"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/stock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type fakeFetcher struct {
	payments map[string]PaymentDetails
	err      error
}

func (f *fakeFetcher) GetPayment(ctx context.Context, id string) (PaymentDetails, error) {
	if f.err != nil {
		return PaymentDetails{}, f.err
	}
	p, ok := f.payments[id]
	if !ok {
		return PaymentDetails{}, errors.New("payment not found")
	}
	return p, nil
}

func seedOrder(t *testing.T, st *memstore.Store, items []orders.ItemQty, totalCents int) string {
	t.Helper()
	orderID := uuid.NewString()
	err := st.Transact(context.Background(), func(tx orders.StoreTx) error {
		if err := tx.InsertOrder(context.Background(), orders.Order{
			ID: orderID, Status: orders.StatusPending, TotalCents: totalCents,
		}); err != nil {
			return err
		}
		var oi []orders.OrderItem
		for _, it := range items {
			oi = append(oi, orders.OrderItem{
				ID: uuid.NewString(), OrderID: orderID,
				VariantID: it.VariantID, Qty: it.Qty, PriceCents: totalCents / len(items) / it.Qty,
			})
		}
		if err := tx.InsertOrderItems(context.Background(), oi); err != nil {
			return err
		}
		return tx.InsertPayment(context.Background(), orders.Payment{
			ID: uuid.NewString(), OrderID: orderID,
			Method: orders.MethodMercadoPago, Status: orders.PaymentInitiated,
			TransactionID: "pref-" + orderID,
		})
	})
	require.NoError(t, err)
	return orderID
}

func newReconciler(st *memstore.Store, f *fakeFetcher) *Reconciler {
	return &Reconciler{Store: st, Provider: f, Service: "test"}
}

func TestProcessApprovedDecrementsStockOnce(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	st.SeedVariant(orders.VariantStock{ID: "v1", Name: "Camiseta", PriceCents: 500000, InStock: 5})

	orderID := seedOrder(t, st, []orders.ItemQty{{VariantID: "v1", Qty: 2}}, 1000000)
	f := &fakeFetcher{payments: map[string]PaymentDetails{
		"pay-1": {ID: "pay-1", Status: "approved", ExternalReference: orderID, AmountCents: 1000000},
	}}
	r := newReconciler(st, f)

	res, err := r.Process(ctx, "pay-1")
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.True(t, res.StockDecremented)
	assert.Equal(t, 3, st.InStock("v1"))

	ord, err := st.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPaid, ord.Status)

	pay, err := st.PaymentByTransactionID(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentCompleted, pay.Status)
	require.NotNil(t, pay.PaidAt)
}

func TestProcessIsIdempotentAcrossRedeliveries(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	st.SeedVariant(orders.VariantStock{ID: "v1", Name: "Camiseta", PriceCents: 500000, InStock: 5})

	orderID := seedOrder(t, st, []orders.ItemQty{{VariantID: "v1", Qty: 2}}, 1000000)
	f := &fakeFetcher{payments: map[string]PaymentDetails{
		"pay-1": {ID: "pay-1", Status: "approved", ExternalReference: orderID, AmountCents: 1000000},
	}}
	r := newReconciler(st, f)

	// notifikasi identik 1..N kali = efek bersih sekali
	for i := 0; i < 100; i++ {
		_, err := r.Process(ctx, "pay-1")
		require.NoError(t, err)
	}

	assert.Equal(t, 3, st.InStock("v1"))
	ord, _ := st.GetOrder(ctx, orderID)
	assert.Equal(t, orders.StatusPaid, ord.Status)
}

func TestProcessPendingMovesNoStock(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	st.SeedVariant(orders.VariantStock{ID: "v1", Name: "Camiseta", PriceCents: 500000, InStock: 5})

	orderID := seedOrder(t, st, []orders.ItemQty{{VariantID: "v1", Qty: 1}}, 500000)
	f := &fakeFetcher{payments: map[string]PaymentDetails{
		"pay-1": {ID: "pay-1", Status: "in_process", ExternalReference: orderID},
	}}
	r := newReconciler(st, f)

	res, err := r.Process(ctx, "pay-1")
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.False(t, res.StockDecremented)
	assert.Equal(t, 5, st.InStock("v1"))

	// payment jadi marker intermediate, bukan terminal: notifikasi final
	// berikutnya masih actionable
	pay, err := st.PaymentByTransactionID(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentInitiated, pay.Status)

	f.payments["pay-1"] = PaymentDetails{ID: "pay-1", Status: "approved", ExternalReference: orderID}
	res, err = r.Process(ctx, "pay-1")
	require.NoError(t, err)
	assert.True(t, res.StockDecremented)
	assert.Equal(t, 4, st.InStock("v1"))
}

func TestProcessChargebackRestoresStock(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	st.SeedVariant(orders.VariantStock{ID: "v1", Name: "Camiseta", PriceCents: 500000, InStock: 5})
	st.SeedVariant(orders.VariantStock{ID: "v2", Name: "Jeans", PriceCents: 900000, InStock: 2})

	orderID := seedOrder(t, st, []orders.ItemQty{{VariantID: "v1", Qty: 2}, {VariantID: "v2", Qty: 1}}, 1900000)
	f := &fakeFetcher{payments: map[string]PaymentDetails{
		"pay-1": {ID: "pay-1", Status: "approved", ExternalReference: orderID},
	}}
	r := newReconciler(st, f)

	_, err := r.Process(ctx, "pay-1")
	require.NoError(t, err)
	require.Equal(t, 3, st.InStock("v1"))
	require.Equal(t, 1, st.InStock("v2"))

	// pembayaran dibalikkan setelah paid -> restore persis qty semula
	f.payments["pay-1"] = PaymentDetails{ID: "pay-1", Status: "charged_back", ExternalReference: orderID}
	res, err := r.Process(ctx, "pay-1")
	require.NoError(t, err)
	assert.True(t, res.StockRestored)
	assert.Equal(t, 5, st.InStock("v1"))
	assert.Equal(t, 2, st.InStock("v2"))

	ord, _ := st.GetOrder(ctx, orderID)
	assert.Equal(t, orders.StatusCancelled, ord.Status)
	pay, _ := st.PaymentByTransactionID(ctx, "pay-1")
	assert.Equal(t, orders.PaymentFailed, pay.Status)

	// chargeback yang diulang tidak merestore dua kali
	_, err = r.Process(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, 5, st.InStock("v1"))
}

func TestProcessFailedBeforePaidLeavesStockAlone(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	st.SeedVariant(orders.VariantStock{ID: "v1", Name: "Camiseta", PriceCents: 500000, InStock: 5})

	orderID := seedOrder(t, st, []orders.ItemQty{{VariantID: "v1", Qty: 2}}, 1000000)
	f := &fakeFetcher{payments: map[string]PaymentDetails{
		"pay-1": {ID: "pay-1", Status: "rejected", ExternalReference: orderID},
	}}
	r := newReconciler(st, f)

	res, err := r.Process(ctx, "pay-1")
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.False(t, res.StockRestored)
	assert.Equal(t, 5, st.InStock("v1"))

	ord, _ := st.GetOrder(ctx, orderID)
	assert.Equal(t, orders.StatusCancelled, ord.Status)
}

func TestProcessStrayPendingAfterPaidKeepsStock(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	st.SeedVariant(orders.VariantStock{ID: "v1", Name: "Camiseta", PriceCents: 500000, InStock: 5})

	orderID := seedOrder(t, st, []orders.ItemQty{{VariantID: "v1", Qty: 2}}, 1000000)
	f := &fakeFetcher{payments: map[string]PaymentDetails{
		"pay-1": {ID: "pay-1", Status: "approved", ExternalReference: orderID},
	}}
	r := newReconciler(st, f)

	_, err := r.Process(ctx, "pay-1")
	require.NoError(t, err)
	require.Equal(t, 3, st.InStock("v1"))

	// pending nyasar setelah paid: status ditulis ulang tapi stok tidak
	// pernah bergerak mundur
	f.payments["pay-1"] = PaymentDetails{ID: "pay-1", Status: "in_process", ExternalReference: orderID}
	res, err := r.Process(ctx, "pay-1")
	require.NoError(t, err)
	assert.False(t, res.StockDecremented)
	assert.False(t, res.StockRestored)
	assert.Equal(t, 3, st.InStock("v1"))
}

func TestProcessUnknownOrderFailsWithoutMutation(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	st.SeedVariant(orders.VariantStock{ID: "v1", Name: "Camiseta", PriceCents: 500000, InStock: 5})

	f := &fakeFetcher{payments: map[string]PaymentDetails{
		"pay-1": {ID: "pay-1", Status: "approved", ExternalReference: uuid.NewString()},
	}}
	r := newReconciler(st, f)

	_, err := r.Process(ctx, "pay-1")
	require.ErrorIs(t, err, orders.ErrOrderNotFound)
	assert.Equal(t, 5, st.InStock("v1"))
}

func TestProcessWithoutOrderReferenceIsAcked(t *testing.T) {
	st := memstore.New()
	f := &fakeFetcher{payments: map[string]PaymentDetails{
		"pay-1": {ID: "pay-1", Status: "approved"},
	}}
	r := newReconciler(st, f)

	res, err := r.Process(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.False(t, res.Applied)
}

// Dua order balapan utk stok yang sama: cuma satu yang memenangkan unit
// terakhir, stok tidak pernah negatif.
func TestConcurrentPaidNotificationsNeverOversell(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	st.SeedVariant(orders.VariantStock{ID: "v1", Name: "Camiseta", PriceCents: 500000, InStock: 1})

	o1 := seedOrder(t, st, []orders.ItemQty{{VariantID: "v1", Qty: 1}}, 500000)
	o2 := seedOrder(t, st, []orders.ItemQty{{VariantID: "v1", Qty: 1}}, 500000)

	f := &fakeFetcher{payments: map[string]PaymentDetails{
		"pay-1": {ID: "pay-1", Status: "approved", ExternalReference: o1},
		"pay-2": {ID: "pay-2", Status: "approved", ExternalReference: o2},
	}}
	r := newReconciler(st, f)

	var g errgroup.Group
	results := make([]Result, 2)
	errs := make([]error, 2)
	for i, payID := range []string{"pay-1", "pay-2"} {
		i, payID := i, payID
		g.Go(func() error {
			results[i], errs[i] = r.Process(ctx, payID)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	decremented := 0
	var insufficient int
	for i := range results {
		if results[i].StockDecremented {
			decremented++
		}
		if errs[i] != nil {
			var ie *stock.InsufficientError
			if errors.As(errs[i], &ie) {
				insufficient++
			}
		}
	}
	assert.Equal(t, 1, decremented)
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, 0, st.InStock("v1"))

	// pemenangnya paid, yang kalah tetap pending (transaksinya di-rollback)
	paid := 0
	for _, id := range []string{o1, o2} {
		ord, err := st.GetOrder(ctx, id)
		require.NoError(t, err)
		if ord.Status == orders.StatusPaid {
			paid++
		}
	}
	assert.Equal(t, 1, paid)
}
