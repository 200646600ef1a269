package cart

import (
	"testing"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/orders"
	"github.com/stretchr/testify/assert"
)

func TestMerge(t *testing.T) {
	guest := []orders.ItemQty{
		{VariantID: "v2", Qty: 3},
		{VariantID: "v3", Qty: 1},
	}
	user := []orders.ItemQty{
		{VariantID: "v1", Qty: 1},
		{VariantID: "v2", Qty: 2},
	}

	got := Merge(guest, user)
	assert.Equal(t, []orders.ItemQty{
		{VariantID: "v1", Qty: 1},
		{VariantID: "v2", Qty: 5}, // qty dijumlah
		{VariantID: "v3", Qty: 1},
	}, got)
}

func TestMergeClampsQuantity(t *testing.T) {
	guest := []orders.ItemQty{{VariantID: "v1", Qty: 7}}
	user := []orders.ItemQty{{VariantID: "v1", Qty: 8}}

	got := Merge(guest, user)
	assert.Equal(t, []orders.ItemQty{{VariantID: "v1", Qty: MaxQtyPerItem}}, got)
}

func TestMergeEmptySides(t *testing.T) {
	user := []orders.ItemQty{{VariantID: "v1", Qty: 2}}

	assert.Equal(t, user, Merge(nil, user))
	assert.Equal(t, user, Merge(user, nil))
	assert.Empty(t, Merge(nil, nil))
}

func TestMergeDropsNonPositive(t *testing.T) {
	got := Merge([]orders.ItemQty{{VariantID: "v1", Qty: 0}}, nil)
	assert.Empty(t, got)
}

func TestEffectivePrice(t *testing.T) {
	sale := 1500
	assert.Equal(t, 1500, Line{PriceCents: 2000, SalePriceCents: &sale}.EffectivePriceCents())
	assert.Equal(t, 2000, Line{PriceCents: 2000}.EffectivePriceCents())
}
