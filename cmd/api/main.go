package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/cart"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/checkout"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/config"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-storefront-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/mercadopago"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/metrics"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/orders"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/postgres"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/redisx"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/webhook"
	"github.com/joho/godotenv"
	kafkago "github.com/segmentio/kafka-go"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers per topic
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	pCreated.Start(ctx)
	pPaid := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPaid, 1024)
	pPaid.Start(ctx)
	pCancelled := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCancelled, 1024)
	pCancelled.Start(ctx)
	pRestored := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStockRestored, 1024)
	pRestored.Start(ctx)

	mets := metrics.New("api")

	store := postgres.NewStore(db)
	carts := postgres.NewCarts(db)

	mp := mercadopago.New(mercadopago.Config{
		AccessToken:    cfg.MPAccessToken,
		BaseURL:        cfg.MPBaseURL,
		AppBaseURL:     cfg.AppBaseURL,
		MinAmountCents: cfg.MinAmountCents,
		Timeout:        cfg.MPTimeout,
	})

	svc := &checkout.Service{
		Carts:          carts,
		Store:          store,
		Provider:       mp,
		Events:         pCreated,
		Service:        cfg.ServiceName,
		MinAmountCents: cfg.MinAmountCents,
		WhatsAppNumber: cfg.WhatsAppNumber,
		AppBaseURL:     cfg.AppBaseURL,
	}

	rec := &webhook.Reconciler{
		Store:    store,
		Provider: mp,
		Events:   &lifecycleEvents{paid: pPaid, cancelled: pCancelled, restored: pRestored},
		Service:  cfg.ServiceName,
	}

	router := httpx.NewRouter()
	(&httpx.CheckoutHandler{Service: svc, Session: httpx.HeaderSession{}, Redis: rdb, Metrics: mets}).Register(router)
	(&httpx.OrdersHandler{Store: store, Catalog: store, Redis: rdb}).Register(router)
	(&httpx.WebhookHandler{Reconciler: rec, Secret: cfg.MPWebhookSecret, Redis: rdb, Metrics: mets}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	// tutup inbox -> flush & close writer per producer
	for _, p := range []*kafkax.Producer{pCreated, pPaid, pCancelled, pRestored} {
		p.Close()
		p.WaitClosed()
	}
}

// lifecycleEvents route event reconciler ke producer topic yang tepat
// berdasarkan header x-event-type.
type lifecycleEvents struct {
	paid      *kafkax.Producer
	cancelled *kafkax.Producer
	restored  *kafkax.Producer
}

func (l *lifecycleEvents) Publish(key, value []byte, headers ...kafkago.Header) {
	for _, h := range headers {
		if h.Key != "x-event-type" {
			continue
		}
		switch string(h.Value) {
		case orders.EventOrderPaid:
			l.paid.Publish(key, value, headers...)
			return
		case orders.EventOrderCancelled:
			l.cancelled.Publish(key, value, headers...)
			return
		case orders.EventStockRestored:
			l.restored.Publish(key, value, headers...)
			return
		}
	}
}

var _ cart.Store = (*postgres.Carts)(nil)
