// Package memstore: implementasi in-memory dari port orders.Store dan
// cart.Store. Dipakai tests dan mode dev tanpa Postgres. Transact diserialkan
// dengan satu mutex, jadi semantik lock-then-read-then-write tetap berlaku.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/cart"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/orders"
	"github.com/google/uuid"
)

type Store struct {
	mu sync.Mutex

	Orders   map[string]*orders.Order
	Items    map[string][]orders.OrderItem // by order id
	Payments map[string]*orders.Payment    // by order id
	Stock    map[string]*orders.VariantStock

	Carts     map[string]string             // cart id -> user id atau guest token
	CartItems map[string][]orders.ItemQty   // by cart id
	Guests    map[string]string             // session token -> cart id
	Users     map[string]string             // user id -> cart id
}

func New() *Store {
	return &Store{
		Orders:    map[string]*orders.Order{},
		Items:     map[string][]orders.OrderItem{},
		Payments:  map[string]*orders.Payment{},
		Stock:     map[string]*orders.VariantStock{},
		Carts:     map[string]string{},
		CartItems: map[string][]orders.ItemQty{},
		Guests:    map[string]string{},
		Users:     map[string]string{},
	}
}

// ---- helper seeding utk tests & mode dev ----

func (s *Store) SeedVariant(v orders.VariantStock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := v
	s.Stock[v.ID] = &cp
}

func (s *Store) SeedUserCart(userID string, items ...orders.ItemQty) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.Carts[id] = userID
	s.Users[userID] = id
	s.CartItems[id] = append([]orders.ItemQty(nil), items...)
	return id
}

func (s *Store) SeedGuestCart(token string, items ...orders.ItemQty) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.Carts[id] = token
	s.Guests[token] = id
	s.CartItems[id] = append([]orders.ItemQty(nil), items...)
	return id
}

func (s *Store) InStock(variantID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.Stock[variantID]; ok {
		return v.InStock
	}
	return 0
}

// ---- orders.Store ----

type tx struct{ s *Store }

func (s *Store) Transact(ctx context.Context, fn func(orders.StoreTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// snapshot utk rollback
	snap := s.snapshot()
	if err := fn(&tx{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	orders    map[string]*orders.Order
	items     map[string][]orders.OrderItem
	payments  map[string]*orders.Payment
	stock     map[string]*orders.VariantStock
	cartItems map[string][]orders.ItemQty
}

func (s *Store) snapshot() snapshot {
	sn := snapshot{
		orders:    map[string]*orders.Order{},
		items:     map[string][]orders.OrderItem{},
		payments:  map[string]*orders.Payment{},
		stock:     map[string]*orders.VariantStock{},
		cartItems: map[string][]orders.ItemQty{},
	}
	for k, v := range s.Orders {
		cp := *v
		sn.orders[k] = &cp
	}
	for k, v := range s.Items {
		sn.items[k] = append([]orders.OrderItem(nil), v...)
	}
	for k, v := range s.Payments {
		cp := *v
		sn.payments[k] = &cp
	}
	for k, v := range s.Stock {
		cp := *v
		sn.stock[k] = &cp
	}
	for k, v := range s.CartItems {
		sn.cartItems[k] = append([]orders.ItemQty(nil), v...)
	}
	return sn
}

func (s *Store) restore(sn snapshot) {
	s.Orders = sn.orders
	s.Items = sn.items
	s.Payments = sn.payments
	s.Stock = sn.stock
	s.CartItems = sn.cartItems
}

func (s *Store) GetOrder(ctx context.Context, id string) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.Orders[id]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return *o, nil
}

func (s *Store) PaymentByTransactionID(ctx context.Context, txnID string) (orders.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.Payments {
		if p.TransactionID == txnID {
			return *p, nil
		}
	}
	return orders.Payment{}, orders.ErrPaymentNotFound
}

func (s *Store) SetOrderStatus(ctx context.Context, id string, st orders.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.Orders[id]
	if !ok {
		return orders.ErrOrderNotFound
	}
	o.Status = st
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) SetPaymentTransactionID(ctx context.Context, orderID, txnID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Payments[orderID]
	if !ok {
		return orders.ErrPaymentNotFound
	}
	p.TransactionID = txnID
	return nil
}

func (s *Store) ListVariants(ctx context.Context) ([]orders.VariantStock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]orders.VariantStock, 0, len(s.Stock))
	for _, v := range s.Stock {
		out = append(out, *v)
	}
	return out, nil
}

// ---- orders.StoreTx ----

func (t *tx) InsertOrder(ctx context.Context, o orders.Order) error {
	if _, exists := t.s.Orders[o.ID]; exists {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	cp := o
	t.s.Orders[o.ID] = &cp
	return nil
}

func (t *tx) InsertOrderItems(ctx context.Context, items []orders.OrderItem) error {
	for _, it := range items {
		t.s.Items[it.OrderID] = append(t.s.Items[it.OrderID], it)
	}
	return nil
}

func (t *tx) InsertPayment(ctx context.Context, p orders.Payment) error {
	if _, exists := t.s.Payments[p.OrderID]; exists {
		return fmt.Errorf("payment for order %s already exists", p.OrderID)
	}
	cp := p
	t.s.Payments[p.OrderID] = &cp
	return nil
}

func (t *tx) OrderForUpdate(ctx context.Context, id string) (orders.Order, error) {
	o, ok := t.s.Orders[id]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return *o, nil
}

func (t *tx) SetOrderStatus(ctx context.Context, id string, st orders.Status) error {
	o, ok := t.s.Orders[id]
	if !ok {
		return orders.ErrOrderNotFound
	}
	o.Status = st
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (t *tx) UpsertPayment(ctx context.Context, p orders.Payment) error {
	existing, ok := t.s.Payments[p.OrderID]
	if !ok {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		cp := p
		t.s.Payments[p.OrderID] = &cp
		return nil
	}
	existing.Status = p.Status
	existing.TransactionID = p.TransactionID
	if p.PaidAt != nil {
		existing.PaidAt = p.PaidAt
	}
	return nil
}

func (t *tx) ItemsByOrder(ctx context.Context, orderID string) ([]orders.OrderItem, error) {
	return append([]orders.OrderItem(nil), t.s.Items[orderID]...), nil
}

func (t *tx) StockForUpdate(ctx context.Context, variantIDs []string) (map[string]int, error) {
	avail := make(map[string]int, len(variantIDs))
	for _, id := range variantIDs {
		if v, ok := t.s.Stock[id]; ok {
			avail[id] = v.InStock
		}
	}
	return avail, nil
}

func (t *tx) AdjustStock(ctx context.Context, variantID string, delta int) error {
	v, ok := t.s.Stock[variantID]
	if !ok {
		return orders.ErrVariantNotFound
	}
	v.InStock += delta
	return nil
}

func (t *tx) ClearCart(ctx context.Context, cartID string) error {
	t.s.CartItems[cartID] = nil
	return nil
}

// ---- cart.Store ----

func (s *Store) ActiveLines(ctx context.Context, owner cart.Owner) (string, []cart.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cartID string
	if owner.UserID != "" {
		cartID = s.Users[owner.UserID]
	} else if owner.GuestToken != "" {
		cartID = s.Guests[owner.GuestToken]
	}
	if cartID == "" {
		return "", nil, nil
	}

	var lines []cart.Line
	for _, it := range s.CartItems[cartID] {
		v, ok := s.Stock[it.VariantID]
		if !ok {
			continue
		}
		lines = append(lines, cart.Line{
			VariantID:      it.VariantID,
			Name:           v.Name,
			Qty:            it.Qty,
			PriceCents:     v.PriceCents,
			SalePriceCents: v.SalePriceCents,
		})
	}
	return cartID, lines, nil
}

func (s *Store) Clear(ctx context.Context, cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CartItems[cartID] = nil
	return nil
}

func (s *Store) MergeGuestIntoUser(ctx context.Context, guestToken, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	guestCartID, ok := s.Guests[guestToken]
	if !ok {
		return nil
	}
	userCartID := s.Users[userID]
	if userCartID == "" {
		userCartID = uuid.NewString()
		s.Carts[userCartID] = userID
		s.Users[userID] = userCartID
	}

	s.CartItems[userCartID] = cart.Merge(s.CartItems[guestCartID], s.CartItems[userCartID])
	delete(s.CartItems, guestCartID)
	delete(s.Carts, guestCartID)
	delete(s.Guests, guestToken)
	return nil
}
