package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrPoisonMessage marks a message that can never be handled; it is committed and skipped.
var ErrPoisonMessage = errors.New("poison message")

type Handler func(ctx context.Context, key, value []byte) error

type Consumer struct {
	reader *kafka.Reader
	log    *zap.Logger
	cfg    *ConsumerConfig
}

type ConsumerConfig struct {
	Brokers       []string
	GroupID       string
	Topic         string
	FromBeginning bool
	// Kind, when set, rejects messages tagged with a different HeaderKind.
	Kind   string
	Logger *zap.Logger
}

func NewConsumer(cfg *ConsumerConfig) *Consumer {
	if cfg.Logger == nil {
		cfg.Logger = zap.L()
	}

	start := kafka.LastOffset
	if cfg.FromBeginning {
		start = kafka.FirstOffset
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:               cfg.Brokers,
		GroupID:               cfg.GroupID,
		Topic:                 cfg.Topic,
		StartOffset:           start,
		WatchPartitionChanges: true,

		MinBytes:          1,
		MaxBytes:          10e6,
		SessionTimeout:    10 * time.Second,
		RebalanceTimeout:  15 * time.Second,
		HeartbeatInterval: 3 * time.Second,
	})

	return &Consumer{reader: r, log: consumerLogger(cfg.Logger, cfg), cfg: cfg}
}

func (c *Consumer) WithLogger(l *zap.Logger) *Consumer {
	if l == nil {
		return c
	}
	cp := *c
	cp.log = consumerLogger(l, c.cfg)
	return &cp
}

func consumerLogger(l *zap.Logger, cfg *ConsumerConfig) *zap.Logger {
	return l.With(
		zap.String("component", "kafka.consumer"),
		zap.String("topic", cfg.Topic),
		zap.String("group", cfg.GroupID),
	)
}

// Consume hands every message to h until ctx is done. A message is committed when h
// succeeds or reports ErrPoisonMessage; other errors leave it for redelivery.
func (c *Consumer) Consume(ctx context.Context, h Handler) error {
	c.log.Info("consumer started", zap.String("kind", c.cfg.Kind))
	for {
		msg, err := c.fetch(ctx)
		if err != nil {
			c.log.Info("consumer stopped", zap.Error(err))
			return err
		}

		err = c.handle(ctx, h, msg)
		log := c.log.With(zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset))
		switch {
		case err == nil:
			mConsumed.WithLabelValues(msg.Topic, "ok").Inc()
		case errors.Is(err, ErrPoisonMessage):
			mConsumed.WithLabelValues(msg.Topic, "poison").Inc()
			log.Warn("skipping poison message", zap.Error(err))
		default:
			mConsumed.WithLabelValues(msg.Topic, "error").Inc()
			log.Error("handler error", zap.Error(err))
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("commit failed; will retry later", zap.Error(err))
		}
	}
}

// fetch blocks for the next message, backing off on broker errors. It only fails
// when ctx is done.
func (c *Consumer) fetch(ctx context.Context) (kafka.Message, error) {
	backoff := 200 * time.Millisecond
	const maxBackoff = 5 * time.Second
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err == nil {
			return msg, nil
		}
		if ctx.Err() != nil {
			return kafka.Message{}, ctx.Err()
		}
		if errors.Is(err, io.EOF) {
			c.log.Debug("fetch EOF; retry", zap.Duration("backoff", backoff))
		} else {
			c.log.Warn("fetch failed; retry", zap.Error(err), zap.Duration("backoff", backoff))
		}
		select {
		case <-ctx.Done():
			return kafka.Message{}, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (c *Consumer) handle(ctx context.Context, h Handler, msg kafka.Message) error {
	hs := headers{hs: &msg.Headers}
	msgCtx := otel.GetTextMapPropagator().Extract(ctx, hs)
	msgCtx, span := otel.Tracer("kafka.consumer").Start(msgCtx, "kafka.consume "+msg.Topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.Int("messaging.kafka.partition", msg.Partition),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		),
	)
	defer span.End()

	if kind := hs.Get(HeaderKind); c.cfg.Kind != "" && kind != "" && kind != c.cfg.Kind {
		return fmt.Errorf("%w: kind %q, want %q", ErrPoisonMessage, kind, c.cfg.Kind)
	}
	if err := h(msgCtx, msg.Key, msg.Value); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (c *Consumer) Close() error { return c.reader.Close() }
