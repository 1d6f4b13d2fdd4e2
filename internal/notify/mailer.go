package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/NordCoder/Nightwatch/internal/domain/report"
	"go.uber.org/zap"
)

type SMTPConfig struct {
	Addr               string        `mapstructure:"addr"`
	From               string        `mapstructure:"from"`
	To                 []string      `mapstructure:"to"`
	User               string        `mapstructure:"user"`
	Password           string        `mapstructure:"password"`
	UseTLS             bool          `mapstructure:"use_tls"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	Timeout            time.Duration `mapstructure:"timeout"`
	SubjPrefix         string        `mapstructure:"subj_prefix"`
}

type Mailer struct {
	cfg  SMTPConfig
	auth smtp.Auth
	log  *zap.Logger
}

func NewMailer(cfg SMTPConfig) *Mailer {
	var auth smtp.Auth
	if cfg.User != "" || cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, host(cfg.Addr))
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Mailer{
		cfg:  cfg,
		auth: auth,
		log:  zap.L().With(zap.String("component", "notify.mailer")),
	}
}

func (m *Mailer) WithLogger(l *zap.Logger) *Mailer {
	if l == nil {
		return m
	}
	cp := *m
	cp.log = l.With(zap.String("component", "notify.mailer"))
	return &cp
}

func (m *Mailer) Name() string     { return "email" }
func (m *Mailer) Configured() bool { return m.cfg.Addr != "" && m.cfg.From != "" && len(m.cfg.To) > 0 }

func (m *Mailer) Targets(context.Context) ([]string, error) { return m.cfg.To, nil }

func (m *Mailer) Send(ctx context.Context, to string, rep *report.Report) error {
	subj := strings.TrimSpace(m.cfg.SubjPrefix + " " + Subject(rep))
	msg := buildMessage(m.cfg.From, to, subj, rep.Text)

	start := time.Now()
	log := m.log.With(
		zap.String("smtp_addr", m.cfg.Addr),
		zap.Bool("tls", m.cfg.UseTLS),
		zap.String("to", to),
		zap.String("report_id", rep.ID),
	)

	dialer := net.Dialer{Timeout: m.cfg.Timeout}
	var (
		conn net.Conn
		err  error
	)
	if m.cfg.UseTLS {
		td := tls.Dialer{NetDialer: &dialer, Config: &tls.Config{
			ServerName:         host(m.cfg.Addr),
			InsecureSkipVerify: m.cfg.InsecureSkipVerify,
		}}
		conn, err = td.DialContext(ctx, "tcp", m.cfg.Addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", m.cfg.Addr)
	}
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	} else {
		_ = conn.SetDeadline(time.Now().Add(m.cfg.Timeout))
	}

	c, err := smtp.NewClient(conn, host(m.cfg.Addr))
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer func() { _ = c.Close() }()

	if !m.cfg.UseTLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: host(m.cfg.Addr), InsecureSkipVerify: m.cfg.InsecureSkipVerify}); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}
	if m.auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(m.auth); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}
	if err := c.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("smtp RCPT TO: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	_ = c.Quit()

	log.Debug("email sent", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Subject summarises a report in one line.
func Subject(rep *report.Report) string {
	switch {
	case rep.Failures > 0 && rep.Recoveries > 0:
		return fmt.Sprintf("%d failing, %d recovered", rep.Failures, rep.Recoveries)
	case rep.Failures > 0:
		return fmt.Sprintf("%d failing", rep.Failures)
	default:
		return fmt.Sprintf("%d recovered", rep.Recoveries)
	}
}

func buildMessage(from, to, subject, body string) []byte {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\n", "\r\n")
	return []byte(
		"From: " + from + "\r\n" +
			"To: " + to + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=utf-8\r\n" +
			"\r\n" + body + "\r\n")
}

func host(addr string) string {
	h, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return h
}
