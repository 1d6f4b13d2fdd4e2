package kafka

import (
	"context"

	"github.com/NordCoder/Nightwatch/internal/obs"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
)

// HeaderKind names the payload type so consumers can reject messages they do not
// understand without decoding them.
const HeaderKind = "nightwatch-kind"

type Producer struct {
	w     *kafka.Writer
	topic string
	log   *zap.Logger
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		topic: topic,
		log:   zap.L().With(zap.String("component", "kafka.producer"), zap.String("topic", topic)),
	}
}

func (p *Producer) WithLogger(l *zap.Logger) *Producer {
	if l == nil {
		return p
	}
	cp := *p
	cp.log = obs.Component(l, "kafka.producer").With(zap.String("topic", p.topic))
	return &cp
}

// Publish writes m under key, tagged with kind and the current trace context.
func (p *Producer) Publish(ctx context.Context, kind string, key []byte, m proto.Message) error {
	value, err := proto.Marshal(m)
	if err != nil {
		p.log.Error("proto marshal failed", zap.String("kind", kind), zap.Error(err))
		return err
	}

	ctx, span := otel.Tracer("kafka.producer").Start(ctx, "kafka.produce "+p.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingDestinationName(p.topic),
			semconv.MessagingOperationPublish,
			attribute.String("nightwatch.kind", kind),
		),
	)
	defer span.End()

	msg := kafka.Message{Key: key, Value: value}
	hs := headers{hs: &msg.Headers}
	hs.Set(HeaderKind, kind)
	otel.GetTextMapPropagator().Inject(ctx, hs)

	if err := p.w.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		mProduced.WithLabelValues(p.topic, "error").Inc()
		obs.WithTrace(ctx, p.log).Error("kafka write failed", zap.String("kind", kind), zap.Error(err))
		return err
	}
	mProduced.WithLabelValues(p.topic, "ok").Inc()
	p.log.Debug("message published",
		zap.String("kind", kind),
		zap.ByteString("key", key),
		zap.Int("value_len", len(value)),
	)
	return nil
}

func (p *Producer) Close() error { return p.w.Close() }
