package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/profitlens/profitlens-backend/internal/logger"
)

// PLUpdate is the per-order profit delta broadcast to dashboard consumers.
type PLUpdate struct {
	ShopDomain         string    `json:"shop_domain"`
	OrderID            string    `json:"order_id"`
	Timestamp          time.Time `json:"timestamp"`
	Revenue            float64   `json:"revenue"`
	COGS               float64   `json:"cogs"`
	GrossProfit        float64   `json:"gross_profit"`
	PaymentFee         float64   `json:"payment_fee"`
	ShippingCost       float64   `json:"shipping_cost"`
	AttributedAdSpend  float64   `json:"attributed_ad_spend"`
	ContributionProfit float64   `json:"contribution_profit"`
	CostMissing        bool      `json:"cost_missing"`
}

type PLBus interface {
	Publish(ctx context.Context, update PLUpdate) error
	StartForwarder(ctx context.Context, onMsg func(u PLUpdate)) error
	Close() error
}

type plBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewPLBus(log *logger.Logger) (PLBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(os.Getenv("REDIS_PL_CHANNEL"))
	if ch == "" {
		ch = "pl_update"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &plBus{
		log:     log.With("service", "RedisPLBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *plBus) Publish(ctx context.Context, update PLUpdate) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis PL bus not initialized")
	}
	raw, err := json.Marshal(update)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *plBus) StartForwarder(ctx context.Context, onMsg func(u PLUpdate)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis PL bus not initialized")
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var update PLUpdate
				if err := json.Unmarshal([]byte(m.Payload), &update); err != nil {
					b.log.Warn("bad redis PL payload", "error", err)
					continue
				}
				onMsg(update)
			}
		}
	}()

	return nil
}

func (b *plBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
