package chat_notifier_config

import (
	"github.com/NordCoder/Nightwatch/internal/notify"
	"github.com/NordCoder/Nightwatch/internal/obs"
	kafkax "github.com/NordCoder/Nightwatch/internal/repository/kafka"
	pginfra "github.com/NordCoder/Nightwatch/internal/repository/postgres"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type OTEL struct {
	Enable      bool    `mapstructure:"enable"`
	Endpoint    string  `mapstructure:"otlp_endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

type KafkaIn struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	GroupID       string   `mapstructure:"group_id"`
	FromBeginning bool     `mapstructure:"from_beginning"`
}

type Server struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type Config struct {
	App     App                  `mapstructure:"app"`
	Log     Log                  `mapstructure:"log"`
	OTEL    OTEL                 `mapstructure:"otel"`
	DB      pginfra.Config       `mapstructure:"db"`
	In      KafkaIn              `mapstructure:"kafka_in"`
	Server  Server               `mapstructure:"server"`
	Matrix  notify.MatrixConfig  `mapstructure:"matrix"`
	Webhook notify.WebhookConfig `mapstructure:"webhook"`
	SMTP    notify.SMTPConfig    `mapstructure:"smtp"`
}

func (c *Config) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{Level: c.Log.Level, Pretty: c.Log.Pretty, App: c.App.Name, Env: c.App.Env, Ver: c.App.Version}
}

func (c *Config) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      c.OTEL.Enable,
		Endpoint:    c.OTEL.Endpoint,
		ServiceName: c.OTEL.ServiceName,
		SampleRatio: c.OTEL.SampleRatio,
	}
}

func (k KafkaIn) AsConsumerConfig() *kafkax.ConsumerConfig {
	return &kafkax.ConsumerConfig{
		Brokers:       k.Brokers,
		GroupID:       k.GroupID,
		Topic:         k.Topic,
		FromBeginning: k.FromBeginning,
		Kind:          kafkax.KindReport,
	}
}
