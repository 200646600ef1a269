package cart

import (
	"sort"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/orders"
)

// Merge: fungsi murni merge guest->user. Union by variant id, qty dijumlah
// dan di-clamp ke MaxQtyPerItem. Item user menang urutan; item guest yang
// baru menyusul di belakang, stabil by variant id.
func Merge(guestItems, userItems []orders.ItemQty) []orders.ItemQty {
	merged := make(map[string]int, len(guestItems)+len(userItems))
	order := make([]string, 0, len(guestItems)+len(userItems))

	for _, it := range userItems {
		if _, seen := merged[it.VariantID]; !seen {
			order = append(order, it.VariantID)
		}
		merged[it.VariantID] += it.Qty
	}

	extra := make([]string, 0, len(guestItems))
	for _, it := range guestItems {
		if _, seen := merged[it.VariantID]; !seen {
			extra = append(extra, it.VariantID)
		}
		merged[it.VariantID] += it.Qty
	}
	sort.Strings(extra)
	order = append(order, extra...)

	out := make([]orders.ItemQty, 0, len(order))
	for _, id := range order {
		qty := merged[id]
		if qty <= 0 {
			continue
		}
		if qty > MaxQtyPerItem {
			qty = MaxQtyPerItem
		}
		out = append(out, orders.ItemQty{VariantID: id, Qty: qty})
	}
	return out
}
