package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/swiftride/dispatch/pkg/config"
	"github.com/swiftride/dispatch/pkg/logger"
	"go.uber.org/zap"
)

// Broker failure classes. Transient failures below these are absorbed by the
// client's reconnect loop; these surface only once the retry budget is spent.
var (
	ErrConnection = errors.New("broker connection failed")
	ErrPublish    = errors.New("broker publish not acknowledged")
)

// HandlerFunc processes a delivered message. Return nil to ack, error to
// reject (the message is redelivered, so handlers must tolerate duplicates).
type HandlerFunc func(ctx context.Context, msg *Message) error

const maxReconnectWait = 30 * time.Second

// reconnectDelay doubles the wait per attempt, capped at maxReconnectWait
func reconnectDelay(base time.Duration, attempts int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	delay := base
	for i := 1; i < attempts && delay < maxReconnectWait; i++ {
		delay *= 2
	}
	if delay > maxReconnectWait {
		delay = maxReconnectWait
	}
	return delay
}

// Bus wraps a NATS JetStream connection for durable publish/subscribe.
// Construct one per process and inject it; there is no ambient instance.
type Bus struct {
	conn *nats.Conn
	js   jetstream.JetStream
	cfg  config.BrokerConfig
	subs []jetstream.ConsumeContext
}

// Connect dials NATS and ensures the dispatch stream exists. The initial dial
// retries with the client's capped reconnect wait; after the configured
// attempt budget the error wraps ErrConnection.
func Connect(cfg config.BrokerConfig, clientName string) (*Bus, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name(clientName),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.CustomReconnectDelay(func(attempts int) time.Duration {
			return reconnectDelay(cfg.ReconnectWait(), attempts)
		}),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("broker disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("broker reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("%w: jetstream init: %v", ErrConnection, err)
	}

	streamName := cfg.StreamName
	if streamName == "" {
		streamName = "DISPATCH"
	}

	// The connection above may still be establishing (RetryOnFailedConnect),
	// so allow a generous window for the stream handshake.
	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.ConnectAttempts)*cfg.ReconnectWait()+10*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{"dispatch.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.InterestPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("%w: create stream: %v", ErrConnection, err)
	}

	logger.Info("broker connected",
		zap.String("url", cfg.URL),
		zap.String("stream", streamName),
	)

	return &Bus{conn: nc, js: js, cfg: cfg}, nil
}

// Publish sends a message with JetStream acknowledgment. The envelope ID is
// used as the broker-side idempotency key, so retried publishes of the same
// message do not enqueue twice. Returns an error wrapping ErrPublish if the
// broker does not acknowledge.
func (b *Bus) Publish(ctx context.Context, subject string, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	_, err = b.js.Publish(ctx, subject, data, jetstream.WithMsgID(msg.ID))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPublish, subject, err)
	}

	logger.Debug("message published",
		zap.String("subject", subject),
		zap.String("message_id", msg.ID),
		zap.String("type", msg.Type),
	)
	return nil
}

// Subscribe creates a durable explicit-ack consumer and feeds deliveries to
// the handler. consumerName must be unique per subscribing service. Durable
// consumers survive reconnects, so unacked messages are redelivered
// (at-least-once).
func (b *Bus) Subscribe(ctx context.Context, subject, consumerName string, handler HandlerFunc) error {
	streamName := b.cfg.StreamName
	if streamName == "" {
		streamName = "DISPATCH"
	}

	consumer, err := b.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    5,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", consumerName, err)
	}

	cc, err := consumer.Consume(func(natsMsg jetstream.Msg) {
		var msg Message
		if err := json.Unmarshal(natsMsg.Data(), &msg); err != nil {
			logger.Warn("failed to unmarshal message", zap.Error(err))
			natsMsg.Term() // malformed, never redeliver
			return
		}

		if err := handler(ctx, &msg); err != nil {
			logger.Warn("message handler error, will retry",
				zap.String("message_id", msg.ID),
				zap.String("type", msg.Type),
				zap.Error(err),
			)
			natsMsg.Nak()
			return
		}

		natsMsg.Ack()
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", consumerName, err)
	}

	b.subs = append(b.subs, cc)
	logger.Info("subscribed",
		zap.String("subject", subject),
		zap.String("consumer", consumerName),
	)
	return nil
}

// Connected reports whether the NATS connection is active.
func (b *Bus) Connected() bool {
	return b.conn != nil && b.conn.IsConnected()
}

// Close stops consumers and drains the connection.
func (b *Bus) Close() {
	for _, sub := range b.subs {
		sub.Stop()
	}
	if b.conn != nil {
		b.conn.Drain()
	}
	logger.Info("broker connection closed")
}
