package postgres

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/cart"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/orders"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Carts implementasi cart.Store. Cart milik user (user_id) atau guest
// session (guest_id -> guests.session_token), tidak dua-duanya.
type Carts struct{ DB *pgxpool.Pool }

func NewCarts(db *pgxpool.Pool) *Carts { return &Carts{DB: db} }

func (c *Carts) ActiveLines(ctx context.Context, owner cart.Owner) (string, []cart.Line, error) {
	cartID, err := c.resolveCartID(ctx, owner)
	if err != nil || cartID == "" {
		return "", nil, err
	}

	rows, err := c.DB.Query(ctx, `
		SELECT ci.variant_id, v.name, ci.qty, v.price_cents, v.sale_price_cents
		FROM cart_items ci
		JOIN variants v ON v.id = ci.variant_id
		WHERE ci.cart_id = $1`, cartID)
	if err != nil {
		return "", nil, err
	}
	defer rows.Close()

	var lines []cart.Line
	for rows.Next() {
		var l cart.Line
		if err := rows.Scan(&l.VariantID, &l.Name, &l.Qty, &l.PriceCents, &l.SalePriceCents); err != nil {
			return "", nil, err
		}
		lines = append(lines, l)
	}
	return cartID, lines, rows.Err()
}

func (c *Carts) resolveCartID(ctx context.Context, owner cart.Owner) (string, error) {
	var id string
	var err error
	if owner.UserID != "" {
		err = c.DB.QueryRow(ctx, `SELECT id FROM carts WHERE user_id=$1`, owner.UserID).Scan(&id)
	} else {
		err = c.DB.QueryRow(ctx, `
			SELECT c.id FROM carts c
			JOIN guests g ON g.id = c.guest_id
			WHERE g.session_token=$1`, owner.GuestToken).Scan(&id)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil // cart dibuat lazy di layer cart-CRUD, bukan di core
	}
	return id, err
}

func (c *Carts) Clear(ctx context.Context, cartID string) error {
	_, err := c.DB.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, cartID)
	return err
}

// MergeGuestIntoUser: load dua cart, merge murni di memory (cart.Merge),
// tulis hasilnya ke cart user dalam satu transaksi, lalu hapus cart guest
// beserta session record-nya.
func (c *Carts) MergeGuestIntoUser(ctx context.Context, guestToken, userID string) error {
	tx, err := c.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var guestID, guestCartID string
	err = tx.QueryRow(ctx, `
		SELECT g.id, COALESCE(c.id, '')
		FROM guests g
		LEFT JOIN carts c ON c.guest_id = g.id
		WHERE g.session_token=$1`, guestToken).Scan(&guestID, &guestCartID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil // session sudah tidak ada, tidak ada yang di-merge
	}
	if err != nil {
		return err
	}

	userCartID, err := getOrCreateUserCart(ctx, tx, userID)
	if err != nil {
		return err
	}

	if guestCartID != "" {
		guestItems, err := itemsOf(ctx, tx, guestCartID)
		if err != nil {
			return err
		}
		userItems, err := itemsOf(ctx, tx, userCartID)
		if err != nil {
			return err
		}

		merged := cart.Merge(guestItems, userItems)
		if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, userCartID); err != nil {
			return err
		}
		for _, it := range merged {
			if _, err := tx.Exec(ctx, `
				INSERT INTO cart_items(id, cart_id, variant_id, qty)
				VALUES ($1, $2, $3, $4)`,
				uuid.NewString(), userCartID, it.VariantID, it.Qty); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, guestCartID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE id=$1`, guestCartID); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM guests WHERE id=$1`, guestID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func getOrCreateUserCart(ctx context.Context, tx pgx.Tx, userID string) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `SELECT id FROM carts WHERE user_id=$1`, userID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}
	id = uuid.NewString()
	_, err = tx.Exec(ctx, `INSERT INTO carts(id, user_id) VALUES ($1, $2)`, id, userID)
	return id, err
}

func itemsOf(ctx context.Context, tx pgx.Tx, cartID string) ([]orders.ItemQty, error) {
	rows, err := tx.Query(ctx, `SELECT variant_id, qty FROM cart_items WHERE cart_id=$1`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.ItemQty
	for rows.Next() {
		var it orders.ItemQty
		if err := rows.Scan(&it.VariantID, &it.Qty); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
