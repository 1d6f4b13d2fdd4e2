package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/NordCoder/Nightwatch/internal/domain/report"
	"github.com/NordCoder/Nightwatch/internal/obs"
	"github.com/google/uuid"
)

type MatrixConfig struct {
	Homeserver string        `mapstructure:"homeserver"`
	Token      string        `mapstructure:"token"`
	Rooms      []string      `mapstructure:"rooms"`
	MsgType    string        `mapstructure:"msgtype"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Matrix posts reports into Matrix rooms through the client-server API.
// With no rooms configured it posts into every room the account has joined.
type Matrix struct {
	cfg    MatrixConfig
	client *http.Client
	txnID  func() string
}

func NewMatrix(cfg MatrixConfig) *Matrix {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MsgType == "" {
		cfg.MsgType = "m.text"
	}
	cfg.Homeserver = strings.TrimRight(cfg.Homeserver, "/")
	return &Matrix{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout, Transport: obs.HTTPTransport(nil)},
		txnID:  func() string { return uuid.NewString() },
	}
}

func (m *Matrix) Name() string     { return "matrix" }
func (m *Matrix) Configured() bool { return m.cfg.Homeserver != "" && m.cfg.Token != "" }

func (m *Matrix) Targets(ctx context.Context) ([]string, error) {
	if len(m.cfg.Rooms) > 0 {
		return m.cfg.Rooms, nil
	}
	var out struct {
		JoinedRooms []string `json:"joined_rooms"`
	}
	if err := m.do(ctx, http.MethodGet, "/_matrix/client/v3/joined_rooms", nil, &out); err != nil {
		return nil, fmt.Errorf("joined rooms: %w", err)
	}
	return out.JoinedRooms, nil
}

type matrixMessage struct {
	MsgType       string `json:"msgtype"`
	Body          string `json:"body"`
	Format        string `json:"format,omitempty"`
	FormattedBody string `json:"formatted_body,omitempty"`
}

func (m *Matrix) Send(ctx context.Context, room string, rep *report.Report) error {
	msg := matrixMessage{MsgType: m.cfg.MsgType, Body: rep.Text}
	if html, err := ToHTML(rep.Text); err == nil {
		msg.Format = "org.matrix.custom.html"
		msg.FormattedBody = html
	}

	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/send/m.room.message/%s",
		url.PathEscape(room), url.PathEscape(m.txnID()))
	return m.do(ctx, http.MethodPut, path, msg, nil)
}

func (m *Matrix) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, m.cfg.Homeserver+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.cfg.Token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var mErr struct {
			ErrCode string `json:"errcode"`
			Error   string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&mErr)
		if mErr.ErrCode != "" {
			return fmt.Errorf("matrix %s: %d %s: %s", path, resp.StatusCode, mErr.ErrCode, mErr.Error)
		}
		return fmt.Errorf("matrix %s: status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
