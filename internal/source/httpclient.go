package source

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/NordCoder/Nightwatch/internal/obs"
)

type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	VerifyTLS bool          `mapstructure:"verify_tls"`
	Attempts  int           `mapstructure:"attempts"`
}

// NewHTTPClient returns the client shared by result sources. Requests are traced.
func NewHTTPClient(cfg HTTPConfig) *http.Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !cfg.VerifyTLS,
			MinVersion:         tls.VersionTLS12,
		},
	}

	var rt http.RoundTripper = transport
	if cfg.UserAgent != "" {
		rt = userAgent{next: rt, ua: cfg.UserAgent}
	}
	return &http.Client{Timeout: cfg.Timeout, Transport: obs.HTTPTransport(rt)}
}

type userAgent struct {
	next http.RoundTripper
	ua   string
}

func (u userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Header.Get("User-Agent") == "" {
		r = r.Clone(r.Context())
		r.Header.Set("User-Agent", u.ua)
	}
	return u.next.RoundTrip(r)
}
