package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/config"
	kafkax "github.com/ariefcatur/go-storefront-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/orders"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/redisx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

// projector: consume event order lifecycle dan proyeksikan statusnya ke
// cache Redis, supaya GET /orders/{id} jarang jatuh ke DB.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	group := getenv("PROJECTOR_GROUP", "status-projector")
	workers := mustAtoi(os.Getenv("PROJECTOR_WORKERS"), 4)

	topics := map[string]orders.Status{
		orders.TopicOrderCreated:   orders.StatusPending,
		orders.TopicOrderPaid:      orders.StatusPaid,
		orders.TopicOrderCancelled: orders.StatusCancelled,
	}

	var wg sync.WaitGroup
	for topic, status := range topics {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, topic, workers)
		wg.Add(1)
		go func(topic string, status orders.Status) {
			defer wg.Done()
			log.Printf("projector consuming: topic=%s group=%s workers=%d", topic, group, workers)
			if err := cons.Start(ctx, project(rdb, status)); err != nil {
				log.Printf("consumer %s exit: %v", topic, err)
				cancel()
			}
		}(topic, status)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Println("shutting down projector...")
		cancel()
	case <-ctx.Done():
	}
	wg.Wait()
}

func project(rdb *redis.Client, status orders.Status) kafkax.Handler {
	return func(ctx context.Context, m kafkago.Message) error {
		var env orders.Envelope
		if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
			log.Printf("projector: bad envelope, skipping: %v", err)
			return nil // jangan retry pesan rusak
		}
		orderID := env.CorrelationID
		if orderID == "" {
			// envelope lama tanpa correlation id: ambil dari payload
			p, err := kafkax.UnwrapPayload[struct {
				OrderID string `json:"order_id"`
			}](env.Payload)
			if err != nil || p.OrderID == "" {
				return nil
			}
			orderID = p.OrderID
		}
		key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
		return rdb.Set(ctx, key, fmt.Sprintf(`{"status":%q}`, status), redisx.TTLStatusCache).Err()
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
