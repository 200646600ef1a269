package orders

import (
	"context"
	"errors"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrVariantNotFound = errors.New("variant not found")
)

// Store: satu sumber kebenaran utk Order/OrderItem/Payment/stok, dipakai oleh
// checkout orchestrator dan webhook reconciler. Tidak ada business rule di
// sini; batas transaksi dibuat eksplisit lewat Transact.
type Store interface {
	// Transact menjalankan fn dalam satu transaksi DB. Error dari fn ->
	// rollback total, nil -> commit.
	Transact(ctx context.Context, fn func(tx StoreTx) error) error

	GetOrder(ctx context.Context, id string) (Order, error)
	PaymentByTransactionID(ctx context.Context, txnID string) (Payment, error)

	// SetOrderStatus di luar transaksi: dipakai utk compensating write
	// (Order -> cancelled) saat provider call gagal setelah commit.
	SetOrderStatus(ctx context.Context, id string, s Status) error

	// SetPaymentTransactionID menimpa placeholder txn id dengan preference id
	// dari provider, utk trazabilitas sebelum webhook pertama datang.
	SetPaymentTransactionID(ctx context.Context, orderID, txnID string) error

	ListVariants(ctx context.Context) ([]VariantStock, error)
}

// StoreTx: operasi di dalam transaksi yang sedang berjalan. Semua lock
// (FOR UPDATE) hidup sampai Transact selesai.
type StoreTx interface {
	InsertOrder(ctx context.Context, o Order) error
	InsertOrderItems(ctx context.Context, items []OrderItem) error
	InsertPayment(ctx context.Context, p Payment) error

	// OrderForUpdate mengambil order dengan row lock; dua webhook yang
	// balapan utk order yang sama serialize di sini.
	OrderForUpdate(ctx context.Context, id string) (Order, error)
	SetOrderStatus(ctx context.Context, id string, s Status) error
	UpsertPayment(ctx context.Context, p Payment) error
	ItemsByOrder(ctx context.Context, orderID string) ([]OrderItem, error)

	// StockForUpdate lock baris variant FOR UPDATE sesuai urutan ids yang
	// diberikan (caller wajib sort dulu, hindari deadlock lock-ordering).
	StockForUpdate(ctx context.Context, variantIDs []string) (map[string]int, error)
	AdjustStock(ctx context.Context, variantID string, delta int) error

	// ClearCart dipakai channel whatsapp: kosongkan cart di transaksi yang
	// sama karena tidak ada external call yang bisa gagal setelahnya.
	ClearCart(ctx context.Context, cartID string) error
}
