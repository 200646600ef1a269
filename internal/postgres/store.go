package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/orders"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implementasi orders.Store di atas pgxpool. Semua FOR UPDATE hidup
// di dalam Transact; tidak ada mutasi stok di luar lock.
type Store struct{ DB *pgxpool.Pool }

func NewStore(db *pgxpool.Pool) *Store { return &Store{DB: db} }

func (s *Store) Transact(ctx context.Context, fn func(tx orders.StoreTx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&storeTx{tx: tx}); err != nil {
		return err // rollback via defer
	}
	return tx.Commit(ctx)
}

func (s *Store) GetOrder(ctx context.Context, id string) (orders.Order, error) {
	var o orders.Order
	err := s.DB.QueryRow(ctx, `
		SELECT id, COALESCE(user_id, ''), status, total_cents, created_at, updated_at
		FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return o, err
}

func (s *Store) PaymentByTransactionID(ctx context.Context, txnID string) (orders.Payment, error) {
	var p orders.Payment
	err := s.DB.QueryRow(ctx, `
		SELECT id, order_id, method, status, transaction_id, paid_at
		FROM payments WHERE transaction_id=$1`, txnID).
		Scan(&p.ID, &p.OrderID, &p.Method, &p.Status, &p.TransactionID, &p.PaidAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Payment{}, orders.ErrPaymentNotFound
	}
	return p, err
}

func (s *Store) SetOrderStatus(ctx context.Context, id string, st orders.Status) error {
	ct, err := s.DB.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, id, st)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrOrderNotFound
	}
	return nil
}

func (s *Store) SetPaymentTransactionID(ctx context.Context, orderID, txnID string) error {
	ct, err := s.DB.Exec(ctx, `UPDATE payments SET transaction_id=$2 WHERE order_id=$1`, orderID, txnID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrPaymentNotFound
	}
	return nil
}

func (s *Store) ListVariants(ctx context.Context) ([]orders.VariantStock, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, sku, name, price_cents, sale_price_cents, in_stock, created_at, updated_at
		FROM variants ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.VariantStock
	for rows.Next() {
		var v orders.VariantStock
		if err := rows.Scan(&v.ID, &v.SKU, &v.Name, &v.PriceCents, &v.SalePriceCents, &v.InStock, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ---- dalam transaksi ----

type storeTx struct{ tx pgx.Tx }

func (t *storeTx) InsertOrder(ctx context.Context, o orders.Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, status, total_cents, created_at, updated_at)
		VALUES ($1, NULLIF($2,''), $3, $4, $5, $5)`,
		o.ID, o.UserID, o.Status, o.TotalCents, o.CreatedAt)
	return err
}

func (t *storeTx) InsertOrderItems(ctx context.Context, items []orders.OrderItem) error {
	for _, it := range items {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, variant_id, qty, price_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			it.ID, it.OrderID, it.VariantID, it.Qty, it.PriceCents); err != nil {
			return err
		}
	}
	return nil
}

func (t *storeTx) InsertPayment(ctx context.Context, p orders.Payment) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO payments(id, order_id, method, status, transaction_id, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.OrderID, p.Method, p.Status, p.TransactionID, p.PaidAt)
	return err
}

func (t *storeTx) OrderForUpdate(ctx context.Context, id string) (orders.Order, error) {
	var o orders.Order
	err := t.tx.QueryRow(ctx, `
		SELECT id, COALESCE(user_id, ''), status, total_cents, created_at, updated_at
		FROM orders WHERE id=$1 FOR UPDATE`, id).
		Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return o, err
}

func (t *storeTx) SetOrderStatus(ctx context.Context, id string, st orders.Status) error {
	_, err := t.tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, id, st)
	return err
}

// UpsertPayment: webhook pertama bisa datang dengan transaction id asli yang
// beda dari placeholder checkout, jadi upsert by order_id. paid_at yang sudah
// terisi tidak di-null-kan oleh notifikasi berikutnya.
func (t *storeTx) UpsertPayment(ctx context.Context, p orders.Payment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO payments(id, order_id, method, status, transaction_id, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (order_id) DO UPDATE SET
			status = EXCLUDED.status,
			transaction_id = EXCLUDED.transaction_id,
			paid_at = COALESCE(EXCLUDED.paid_at, payments.paid_at)`,
		p.ID, p.OrderID, p.Method, p.Status, p.TransactionID, p.PaidAt)
	return err
}

func (t *storeTx) ItemsByOrder(ctx context.Context, orderID string) ([]orders.OrderItem, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, order_id, variant_id, qty, price_cents
		FROM order_items WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.OrderItem
	for rows.Next() {
		var it orders.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.VariantID, &it.Qty, &it.PriceCents); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// StockForUpdate: lock per baris sesuai urutan ids yang diberikan caller
// (sudah sorted). Satu query per id supaya urutan lock deterministik.
func (t *storeTx) StockForUpdate(ctx context.Context, variantIDs []string) (map[string]int, error) {
	avail := make(map[string]int, len(variantIDs))
	for _, id := range variantIDs {
		var n int
		err := t.tx.QueryRow(ctx, `SELECT in_stock FROM variants WHERE id=$1 FOR UPDATE`, id).Scan(&n)
		if errors.Is(err, pgx.ErrNoRows) {
			continue // variant hilang -> dianggap stok 0 oleh caller
		}
		if err != nil {
			return nil, err
		}
		avail[id] = n
	}
	return avail, nil
}

func (t *storeTx) AdjustStock(ctx context.Context, variantID string, delta int) error {
	ct, err := t.tx.Exec(ctx, `UPDATE variants SET in_stock = in_stock + $2, updated_at=now() WHERE id=$1`, variantID, delta)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("adjust stock %s: %w", variantID, orders.ErrVariantNotFound)
	}
	return nil
}

func (t *storeTx) ClearCart(ctx context.Context, cartID string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, cartID)
	return err
}
