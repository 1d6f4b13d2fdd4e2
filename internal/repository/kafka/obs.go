package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

var (
	mProduced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_messages_produced_total", Help: "Messages written, by topic and result.",
	}, []string{"topic", "result"})
	mConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_messages_consumed_total", Help: "Messages handled, by topic and result.",
	}, []string{"topic", "result"})
)

// headers adapts kafka message headers to an otel TextMapCarrier.
type headers struct{ hs *[]kafka.Header }

func (h headers) Get(k string) string {
	for _, x := range *h.hs {
		if x.Key == k {
			return string(x.Value)
		}
	}
	return ""
}

func (h headers) Set(k, v string) {
	for i := range *h.hs {
		if (*h.hs)[i].Key == k {
			(*h.hs)[i].Value = []byte(v)
			return
		}
	}
	*h.hs = append(*h.hs, kafka.Header{Key: k, Value: []byte(v)})
}

func (h headers) Keys() []string {
	ks := make([]string, 0, len(*h.hs))
	for _, x := range *h.hs {
		ks = append(ks, x.Key)
	}
	return ks
}
