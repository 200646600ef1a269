package webhook

import (
	"testing"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/orders"
	"github.com/stretchr/testify/assert"
)

func TestMapStatus(t *testing.T) {
	cases := []struct {
		provider string
		want     Outcome
	}{
		{"approved", OutcomePaid},
		{"authorized", OutcomePaid},
		{"pending", OutcomePending},
		{"in_process", OutcomePending},
		{"in_mediation", OutcomePending},
		{"rejected", OutcomeFailed},
		{"cancelled", OutcomeFailed},
		{"refunded", OutcomeFailed},
		{"charged_back", OutcomeFailed},
		// status tak dikenal tidak boleh lolos jadi paid
		{"definitely_new_status", OutcomeFailed},
		{"", OutcomeFailed},
		{"APPROVED", OutcomePaid},
		{" approved ", OutcomePaid},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, MapStatus(c.provider), "provider status %q", c.provider)
	}
}

func TestOutcomeStatusMapping(t *testing.T) {
	assert.Equal(t, orders.StatusPaid, OutcomePaid.OrderStatus())
	assert.Equal(t, orders.StatusPending, OutcomePending.OrderStatus())
	assert.Equal(t, orders.StatusCancelled, OutcomeFailed.OrderStatus())

	assert.Equal(t, orders.PaymentCompleted, OutcomePaid.PaymentStatus())
	assert.Equal(t, orders.PaymentInitiated, OutcomePending.PaymentStatus())
	assert.Equal(t, orders.PaymentFailed, OutcomeFailed.PaymentStatus())
}
