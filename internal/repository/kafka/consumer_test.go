package kafka

import (
	"context"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestConsumerHandle_KindFilter(t *testing.T) {
	c := &Consumer{log: zap.NewNop(), cfg: &ConsumerConfig{Kind: KindReport}}
	calls := 0
	h := func(context.Context, []byte, []byte) error { calls++; return nil }

	msg := func(kind string) kafkago.Message {
		m := kafkago.Message{Topic: "nightwatch.reports", Value: []byte("x")}
		if kind != "" {
			m.Headers = []kafkago.Header{{Key: HeaderKind, Value: []byte(kind)}}
		}
		return m
	}

	assert.NoError(t, c.handle(context.Background(), h, msg(KindReport)))
	// untagged messages predate the header
	assert.NoError(t, c.handle(context.Background(), h, msg("")))
	assert.ErrorIs(t, c.handle(context.Background(), h, msg("check.v1")), ErrPoisonMessage)
	assert.Equal(t, 2, calls)
}

func TestConsumerHandle_PassesHandlerError(t *testing.T) {
	c := &Consumer{log: zap.NewNop(), cfg: &ConsumerConfig{}}
	boom := errors.New("db down")
	err := c.handle(context.Background(), func(context.Context, []byte, []byte) error { return boom }, kafkago.Message{})
	assert.ErrorIs(t, err, boom)
}
