package webhook

import (
	"strings"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/orders"
)

// Outcome: vocabulary status provider yang bebas dipetakan ke tiga hasil
// internal. Status tak dikenal dianggap failed, bukan diabaikan.
type Outcome string

const (
	OutcomePaid    Outcome = "paid"
	OutcomePending Outcome = "pending"
	OutcomeFailed  Outcome = "failed"
)

var statusMap = map[string]Outcome{
	"approved":     OutcomePaid,
	"authorized":   OutcomePaid,
	"pending":      OutcomePending,
	"in_process":   OutcomePending,
	"in_mediation": OutcomePending,
	"rejected":     OutcomeFailed,
	"cancelled":    OutcomeFailed,
	"refunded":     OutcomeFailed,
	"charged_back": OutcomeFailed,
}

func MapStatus(providerStatus string) Outcome {
	if o, ok := statusMap[strings.ToLower(strings.TrimSpace(providerStatus))]; ok {
		return o
	}
	return OutcomeFailed
}

func (o Outcome) OrderStatus() orders.Status {
	switch o {
	case OutcomePaid:
		return orders.StatusPaid
	case OutcomePending:
		return orders.StatusPending
	default:
		return orders.StatusCancelled
	}
}

func (o Outcome) PaymentStatus() orders.PaymentStatus {
	switch o {
	case OutcomePaid:
		return orders.PaymentCompleted
	case OutcomePending:
		return orders.PaymentInitiated
	default:
		return orders.PaymentFailed
	}
}
