package orders

import "time"

// VariantStock: satu baris stok per variant (kombinasi produk+warna+ukuran).
type VariantStock struct {
	ID             string
	SKU            string
	Name           string
	PriceCents     int
	SalePriceCents *int
	InStock        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EffectivePriceCents: sale price kalau ada, selain itu harga normal.
func (v VariantStock) EffectivePriceCents() int {
	if v.SalePriceCents != nil {
		return *v.SalePriceCents
	}
	return v.PriceCents
}

type Order struct {
	ID         string
	UserID     string // kosong = guest checkout
	Status     Status // lihat status.go
	TotalCents int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// OrderItem: snapshot immutable. Harga dibekukan saat checkout,
// tidak dihitung ulang dari katalog.
type OrderItem struct {
	ID         string
	OrderID    string
	VariantID  string
	Qty        int
	PriceCents int
}

type PaymentMethod string

const (
	MethodMercadoPago PaymentMethod = "mercadopago"
	MethodWhatsApp    PaymentMethod = "whatsapp"
)

type PaymentStatus string

const (
	PaymentInitiated PaymentStatus = "initiated"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) Terminal() bool {
	return s == PaymentCompleted || s == PaymentFailed
}

// Payment: 1:1 dengan Order. TransactionID = payment id di sisi provider,
// dipakai sebagai idempotency key (plus unique constraint di DB).
type Payment struct {
	ID            string
	OrderID       string
	Method        PaymentMethod
	Status        PaymentStatus
	TransactionID string
	PaidAt        *time.Time
}

type ItemQty struct {
	VariantID string `json:"variant_id"`
	Qty       int    `json:"qty"`
}
