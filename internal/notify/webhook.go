package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/NordCoder/Nightwatch/internal/domain/report"
	"github.com/NordCoder/Nightwatch/internal/obs"
)

const SignatureHeader = "X-Nightwatch-Signature"

type WebhookConfig struct {
	URL     string        `mapstructure:"url"`
	Secret  string        `mapstructure:"secret"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Webhook posts a Slack-compatible {"text": ...} payload, optionally HMAC signed.
type Webhook struct {
	cfg    WebhookConfig
	client *http.Client
}

func NewWebhook(cfg WebhookConfig) *Webhook {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Webhook{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout, Transport: obs.HTTPTransport(nil)}}
}

func (w *Webhook) Name() string     { return "webhook" }
func (w *Webhook) Configured() bool { return w.cfg.URL != "" }

func (w *Webhook) Targets(context.Context) ([]string, error) { return []string{w.cfg.URL}, nil }

type webhookPayload struct {
	Text       string   `json:"text"`
	ReportID   string   `json:"report_id"`
	Lanes      []string `json:"lanes"`
	Failures   int      `json:"failures"`
	Recoveries int      `json:"recoveries"`
	CreatedAt  string   `json:"created_at"`
}

func (w *Webhook) Send(ctx context.Context, target string, rep *report.Report) error {
	b, err := json.Marshal(webhookPayload{
		Text:       rep.Text,
		ReportID:   rep.ID,
		Lanes:      rep.Lanes,
		Failures:   rep.Failures,
		Recoveries: rep.Recoveries,
		CreatedAt:  rep.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if w.cfg.Secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(w.cfg.Secret, b))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
