// Package cart: tipe line item keranjang + algoritma merge guest->user.
// CRUD keranjang & session ada di layer lain; core ini cuma konsumen.
package cart

import "context"

// MaxQtyPerItem: batas qty per line (1..10).
const MaxQtyPerItem = 10

// Owner: identitas pemilik cart. Salah satu dari keduanya (atau dua-duanya
// saat guest baru saja login dan cart belum di-merge).
type Owner struct {
	UserID     string
	UserEmail  string
	UserName   string
	GuestToken string
}

func (o Owner) Empty() bool { return o.UserID == "" && o.GuestToken == "" }

// Line: isi cart dengan harga katalog saat ini, hasil join ke variants.
type Line struct {
	VariantID      string
	Name           string
	Qty            int
	PriceCents     int
	SalePriceCents *int
}

// EffectivePriceCents: sale price kalau ada.
func (l Line) EffectivePriceCents() int {
	if l.SalePriceCents != nil {
		return *l.SalePriceCents
	}
	return l.PriceCents
}

// Store: kontrak layer cart yang dikonsumsi checkout.
type Store interface {
	// ActiveLines resolve cart aktif utk owner (user dulu, lalu guest) dan
	// kembalikan line items dengan harga katalog. Cart kosong -> lines nil.
	ActiveLines(ctx context.Context, owner Owner) (cartID string, lines []Line, err error)

	Clear(ctx context.Context, cartID string) error

	// MergeGuestIntoUser: union by variant id, qty dijumlah, lalu guest cart
	// dan session record-nya dihapus. Dipanggil saat login / checkout dengan
	// dua identitas aktif.
	MergeGuestIntoUser(ctx context.Context, guestToken, userID string) error
}
