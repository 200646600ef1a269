package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/cart"
)

// SessionReader: batas ke layer auth/session. Core cuma butuh identitas
// pemilik order plus metadata payer, bukan mekanisme auth-nya.
type SessionReader interface {
	Owner(r *http.Request) cart.Owner
}

// HeaderSession: implementasi default di belakang auth proxy yang menaruh
// identitas di header, plus cookie guest_session utk cart anonim.
type HeaderSession struct{}

func (HeaderSession) Owner(r *http.Request) cart.Owner {
	o := cart.Owner{
		UserID:    r.Header.Get("X-User-Id"),
		UserEmail: r.Header.Get("X-User-Email"),
		UserName:  r.Header.Get("X-User-Name"),
	}
	if c, err := r.Cookie("guest_session"); err == nil {
		o.GuestToken = c.Value
	}
	return o
}
