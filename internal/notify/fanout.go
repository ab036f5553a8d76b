// Package notify carries best-effort, at-most-once delivery of lifecycle
// events to branch-scoped subscribers: kitchen displays, printer clients and
// customer channels. Missed events are not persisted; clients re-poll on
// reconnect.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/supermilas/ordercore/internal/config"
)

// Event is one fanout message as seen by branch subscribers.
type Event struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Fanout publishes events to a branch channel and lets clients subscribe to
// it. Publish must never block or fail the triggering business operation;
// callers treat errors as log-only.
type Fanout interface {
	Publish(ctx context.Context, branchCode, event string, payload any) error
	Subscribe(ctx context.Context, branchCode string) (<-chan Event, func(), error)
}

// Module provides the fanout to the Fx graph.
var Module = fx.Options(
	fx.Provide(NewFanout),
	fx.Provide(NewWhatsAppSender),
)

// NewFanout builds the configured fanout implementation (redis or noop).
func NewFanout(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Fanout, error) {
	switch cfg.Notify.Driver {
	case "noop":
		if logger != nil {
			logger.Info("fanout disabled; using noop transport")
		}
		return noopFanout{}, nil
	case "redis":
		return newRedisFanout(lc, cfg.Notify, logger)
	default:
		return nil, fmt.Errorf("unsupported notify driver: %s", cfg.Notify.Driver)
	}
}

type noopFanout struct{}

func (noopFanout) Publish(context.Context, string, string, any) error { return nil }

func (noopFanout) Subscribe(ctx context.Context, _ string) (<-chan Event, func(), error) {
	ch := make(chan Event)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		close(ch)
	}()
	var once sync.Once
	return ch, func() { once.Do(func() { close(done) }) }, nil
}

// redisFanout maps branch channels onto redis pub/sub, which already gives
// the at-most-once, no-backpressure contract the core needs.
type redisFanout struct {
	client *goredis.Client
	prefix string
	logger *zap.Logger
}

func newRedisFanout(lc fx.Lifecycle, cfg config.Notify, logger *zap.Logger) (Fanout, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	f := &redisFanout{client: client, prefix: cfg.ChannelPrefix, logger: logger}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("ping notify redis: %w", err)
			}
			if logger != nil {
				logger.Info("fanout transport connected", zap.String("addr", cfg.Redis.Addr))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return f, nil
}

func (f *redisFanout) channel(branchCode string) string {
	return f.prefix + branchCode
}

func (f *redisFanout) Publish(ctx context.Context, branchCode, event string, payload any) error {
	if branchCode == "" || event == "" {
		return errors.New("branch code and event name are required")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(Event{Name: event, Payload: raw})
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, f.channel(branchCode), msg).Err()
}

func (f *redisFanout) Subscribe(ctx context.Context, branchCode string) (<-chan Event, func(), error) {
	if branchCode == "" {
		return nil, nil, errors.New("branch code is required")
	}

	sub := f.client.Subscribe(ctx, f.channel(branchCode))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		for msg := range sub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				if f.logger != nil {
					f.logger.Warn("malformed fanout message dropped", zap.Error(err))
				}
				continue
			}
			select {
			case events <- ev:
			default:
				// Slow subscriber; at-most-once allows dropping.
			}
		}
	}()

	cancel := func() { _ = sub.Close() }
	return events, cancel, nil
}
