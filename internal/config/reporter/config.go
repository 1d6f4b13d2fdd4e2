package reporter_config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NordCoder/Nightwatch/internal/domain/lane"
	"github.com/NordCoder/Nightwatch/internal/notify"
	"github.com/NordCoder/Nightwatch/internal/obs"
	pginfra "github.com/NordCoder/Nightwatch/internal/repository/postgres"
	"github.com/NordCoder/Nightwatch/internal/source"
	ghsource "github.com/NordCoder/Nightwatch/internal/source/github"
)

var ErrConfig = errors.New("invalid config")

const (
	CursorPostgres = "postgres"
	CursorSQLite   = "sqlite"
	CursorMemory   = "memory"

	DeliveryOutbox = "outbox"
	DeliveryDirect = "direct"
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

type Cursor struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type Sched struct {
	Cron        string        `mapstructure:"cron"`
	Tick        time.Duration `mapstructure:"tick"`
	RunOnStart  bool          `mapstructure:"run_on_start"`
	Concurrency int           `mapstructure:"concurrency"`
	TickTimeout time.Duration `mapstructure:"tick_timeout"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
	GRPCAddr    string        `mapstructure:"grpc_addr"`
}

type Nightlies struct {
	URL       string   `mapstructure:"url"`
	ResultURL string   `mapstructure:"result_url"`
	Branches  []string `mapstructure:"branches"`
}

type Workflow struct {
	Name        string `mapstructure:"name"`
	DisplayName string `mapstructure:"display_name"`
	ResultURL   string `mapstructure:"result_url"`
}

type Report struct {
	Greetings   []string `mapstructure:"greetings"`
	Salutations []string `mapstructure:"salutations"`
}

type Delivery struct {
	Mode string `mapstructure:"mode"`
}

type Kafka struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type Outbox struct {
	Workers       int           `mapstructure:"workers"`
	BatchSize     int           `mapstructure:"batch_size"`
	Wait          time.Duration `mapstructure:"wait"`
	InProgressTTL time.Duration `mapstructure:"in_progress_ttl"`
}

type Config struct {
	App       App                  `mapstructure:"app"`
	Log       Log                  `mapstructure:"log"`
	OTEL      OTEL                 `mapstructure:"otel"`
	DB        pginfra.Config       `mapstructure:"db"`
	Cursor    Cursor               `mapstructure:"cursor"`
	Sched     Sched                `mapstructure:"sched"`
	HTTP      source.HTTPConfig    `mapstructure:"http"`
	GitHub    ghsource.Config      `mapstructure:"github"`
	Nightlies Nightlies            `mapstructure:"nightlies"`
	CommitURL string               `mapstructure:"commit_url"`
	Workflows []Workflow           `mapstructure:"workflows"`
	Report    Report               `mapstructure:"report"`
	Delivery  Delivery             `mapstructure:"delivery"`
	Kafka     Kafka                `mapstructure:"kafka"`
	Outbox    Outbox               `mapstructure:"outbox"`
	Matrix    notify.MatrixConfig  `mapstructure:"matrix"`
	Webhook   notify.WebhookConfig `mapstructure:"webhook"`
	SMTP      notify.SMTPConfig    `mapstructure:"smtp"`
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

// NeedsPostgres reports whether any configured component uses the database.
func (c *Config) NeedsPostgres() bool {
	return c.Cursor.Driver == CursorPostgres || c.Delivery.Mode == DeliveryOutbox
}

// Lanes turns the nightly branches and workflows into lanes, nightlies first.
func (c *Config) Lanes() ([]lane.Lane, error) {
	var (
		out  []lane.Lane
		seen = map[string]bool{}
	)
	add := func(l lane.Lane) error {
		if seen[l.ID] {
			return fmt.Errorf("%w: duplicate lane %q", ErrConfig, l.ID)
		}
		seen[l.ID] = true
		out = append(out, l)
		return nil
	}

	for _, b := range c.Nightlies.Branches {
		b = strings.TrimSpace(b)
		if b == "" {
			return nil, fmt.Errorf("%w: empty nightly branch", ErrConfig)
		}
		if c.Nightlies.URL == "" {
			return nil, fmt.Errorf("%w: nightlies.url is required with nightly branches", ErrConfig)
		}
		if err := add(lane.Lane{
			ID:          "nightly:" + b,
			DisplayName: b,
			Kind:        lane.KindNightly,
			Ref:         b,
			CommitURL:   c.CommitURL,
			ResultURL:   c.Nightlies.ResultURL,
		}); err != nil {
			return nil, err
		}
	}

	for _, w := range c.Workflows {
		name := strings.TrimSpace(w.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: workflow without name", ErrConfig)
		}
		if c.GitHub.Org == "" || c.GitHub.Repo == "" {
			return nil, fmt.Errorf("%w: github.org and github.repo are required with workflows", ErrConfig)
		}
		display := w.DisplayName
		if display == "" {
			display = name
		}
		if err := add(lane.Lane{
			ID:          "workflow:" + name,
			DisplayName: display,
			Kind:        lane.KindWorkflow,
			Ref:         name,
			CommitURL:   c.CommitURL,
			ResultURL:   w.ResultURL,
		}); err != nil {
			return nil, err
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no lanes configured", ErrConfig)
	}
	return out, nil
}

func (c *Config) Validate() error {
	switch c.Cursor.Driver {
	case CursorPostgres, CursorMemory:
	case CursorSQLite:
		if c.Cursor.SQLitePath == "" {
			return fmt.Errorf("%w: cursor.sqlite_path is required for sqlite", ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unknown cursor.driver %q", ErrConfig, c.Cursor.Driver)
	}

	switch c.Delivery.Mode {
	case DeliveryDirect:
	case DeliveryOutbox:
		if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
			return fmt.Errorf("%w: kafka.brokers and kafka.topic are required for outbox delivery", ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unknown delivery.mode %q", ErrConfig, c.Delivery.Mode)
	}

	if c.Sched.Cron == "" && c.Sched.Tick <= 0 {
		return fmt.Errorf("%w: one of sched.cron or sched.tick is required", ErrConfig)
	}
	if c.Sched.Concurrency <= 0 {
		return fmt.Errorf("%w: sched.concurrency must be positive", ErrConfig)
	}

	_, err := c.Lanes()
	return err
}
