// Package stock berisi primitif ledger stok: validasi dan mutasi selalu lewat
// pola lock -> baca -> tulis di dalam transaksi milik caller.
package stock

import (
	"context"
	"fmt"
	"sort"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/orders"
)

// InsufficientError: stok kurang utk satu variant. Reservasi all-or-nothing,
// jadi satu error ini membatalkan seluruh transaksi.
type InsufficientError struct {
	VariantID string
	Required  int
	Available int
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %s: required %d, available %d",
		e.VariantID, e.Required, e.Available)
}

// sortedIDs: urutan lock stabil (sorted by id) supaya dua checkout yang
// menyentuh himpunan variant overlapping tidak saling deadlock.
func sortedIDs(items []orders.ItemQty) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.VariantID)
	}
	sort.Strings(ids)
	return ids
}

func lockAndCheck(ctx context.Context, tx orders.StoreTx, items []orders.ItemQty) error {
	avail, err := tx.StockForUpdate(ctx, sortedIDs(items))
	if err != nil {
		return err
	}
	for _, it := range items {
		n, ok := avail[it.VariantID]
		if !ok || n < it.Qty {
			return &InsufficientError{VariantID: it.VariantID, Required: it.Qty, Available: n}
		}
	}
	return nil
}

// Validate: lock + cek saja, tanpa mutasi. Dipakai checkout; stok baru
// benar-benar dikurangi saat order transisi ke paid.
func Validate(ctx context.Context, tx orders.StoreTx, items []orders.ItemQty) error {
	return lockAndCheck(ctx, tx, items)
}

// Reserve: lock -> cek -> kurangi, semua atau tidak sama sekali.
func Reserve(ctx context.Context, tx orders.StoreTx, items []orders.ItemQty) error {
	if err := lockAndCheck(ctx, tx, items); err != nil {
		return err
	}
	for _, it := range items {
		if err := tx.AdjustStock(ctx, it.VariantID, -it.Qty); err != nil {
			return err
		}
	}
	return nil
}

// Release: kembalikan stok sejumlah yang dulu dikurangi (compensating release,
// misal chargeback setelah paid). Lock dulu dengan urutan yang sama.
func Release(ctx context.Context, tx orders.StoreTx, items []orders.ItemQty) error {
	if _, err := tx.StockForUpdate(ctx, sortedIDs(items)); err != nil {
		return err
	}
	for _, it := range items {
		if err := tx.AdjustStock(ctx, it.VariantID, it.Qty); err != nil {
			return err
		}
	}
	return nil
}
