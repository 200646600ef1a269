package checkout

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/cart"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/orders"
)

// Channel konfirmasi manual: alih-alih call provider, fase kedua cuma
// menyusun ringkasan order + deep-link kontak. Payment tetap initiated dan
// baru jadi completed lewat konfirmasi out-of-band.
func (s *Service) finishWhatsApp(ord orders.Order, lines []cart.Line, owner cart.Owner) (Result, error) {
	phone := digitsOnly(s.WhatsAppNumber)
	if phone == "" {
		return Result{}, errors.New("whatsapp number not configured")
	}

	msg := whatsAppMessage(ord, lines)
	waURL := fmt.Sprintf("https://wa.me/%s?text=%s", phone, url.QueryEscape(msg))

	successURL := fmt.Sprintf("%s/checkout/success?order_id=%s&method=whatsapp&wa_url=%s",
		strings.TrimRight(s.AppBaseURL, "/"), ord.ID, url.QueryEscape(waURL))

	return Result{OrderID: ord.ID, CheckoutURL: successURL, WhatsAppURL: waURL}, nil
}

func whatsAppMessage(ord orders.Order, lines []cart.Line) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Pedido #%s*\n", shortRef(ord.ID))
	for _, l := range lines {
		fmt.Fprintf(&b, "• %dx %s - %s\n", l.Qty, l.Name, formatPrice(l.EffectivePriceCents()*l.Qty))
	}
	fmt.Fprintf(&b, "\n*Total:* %s\n", formatPrice(ord.TotalCents))
	if ord.UserID != "" {
		fmt.Fprintf(&b, "Cliente: %s\n", shortRef(ord.UserID))
	} else {
		b.WriteString("Cliente: Invitado\n")
	}
	b.WriteString("\nTu pedido será enviado cuando confirmemos el pago.")
	return b.String()
}

// shortRef: 8 karakter terakhir id, uppercase, cukup utk manusia.
func shortRef(id string) string {
	if len(id) > 8 {
		id = id[len(id)-8:]
	}
	return strings.ToUpper(id)
}

func formatPrice(cents int) string {
	return fmt.Sprintf("$ %d.%02d", cents/100, cents%100)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
