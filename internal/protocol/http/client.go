package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/net/http/httpguts"
	"golang.org/x/net/proxy"

	"github.com/sadopc/reqdesk/internal/errdef"
	"github.com/sadopc/reqdesk/internal/logging"
	"github.com/sadopc/reqdesk/internal/protocol"
	"github.com/sadopc/reqdesk/internal/telemetry"
)

// DefaultTimeout bounds a whole exchange when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// ProxyConfig holds proxy settings.
type ProxyConfig struct {
	URL     string // http://, https://, or socks5:// proxy URL
	NoProxy string // comma-separated list of hosts to bypass proxy
}

// Client dispatches requests over HTTP. Configure it with the setters before
// sharing it; Dispatch itself is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	proxyConf  *ProxyConfig
	transport  http.RoundTripper
	logger     *slog.Logger
	telemetry  telemetry.Instrumenter

	initOnce sync.Once
	initErr  error
}

var _ protocol.Dispatcher = (*Client)(nil)

// New creates a new HTTP client.
func New() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		logger:    logging.NewNop(),
		telemetry: telemetry.Noop(),
	}
}

// SetTimeout sets the client timeout. Zero restores the default.
func (c *Client) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultTimeout
	}
	c.httpClient.Timeout = d
}

// SetProxy configures proxy settings for the client.
func (c *Client) SetProxy(proxyURL, noProxy string) {
	if proxyURL == "" {
		c.proxyConf = nil
		return
	}
	c.proxyConf = &ProxyConfig{URL: proxyURL, NoProxy: noProxy}
}

// SetTransport overrides the round tripper, bypassing proxy configuration.
func (c *Client) SetTransport(rt http.RoundTripper) {
	c.transport = rt
}

func (c *Client) SetLogger(l *slog.Logger) {
	if l == nil {
		l = logging.NewNop()
	}
	c.logger = l
}

func (c *Client) SetTelemetry(inst telemetry.Instrumenter) {
	if inst == nil {
		inst = telemetry.Noop()
	}
	c.telemetry = inst
}

// Init finalizes the transport from the configured settings. Setters called
// after the first Init or Dispatch have no effect on the transport.
func (c *Client) Init() error {
	c.initOnce.Do(func() {
		rt := c.transport
		if rt == nil {
			built, err := c.buildTransport()
			if err != nil {
				c.initErr = errdef.Wrap(errdef.CodeNetwork, err, "configuring transport")
				return
			}
			rt = built
		}
		c.httpClient.Transport = rt
	})
	return c.initErr
}

// Dispatch executes req and returns the timed response. Non-2xx statuses are
// ordinary results; only invalid headers and transport failures are errors.
func (c *Client) Dispatch(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	if !req.Method.Valid() {
		return nil, errdef.New(errdef.CodeSerialization, "unsupported HTTP method %d", uint8(req.Method))
	}
	if err := c.Init(); err != nil {
		return nil, err
	}

	target := BuildURL(req.URL, req.QueryParams)

	header, host, err := buildHeader(req.Headers)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if req.Method.HasBody() {
		body = strings.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method.String(), target, body)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeNetwork, err, "building request")
	}
	httpReq.Header = header
	if host != "" {
		httpReq.Host = host
	}

	spanCtx, span := c.telemetry.Start(httpReq.Context(), httpReq)
	httpReq = httpReq.WithContext(spanCtx)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		elapsed := time.Since(start)
		span.End(0, elapsed, err)
		c.logger.Debug("dispatch failed", "method", req.Method.String(), "url", target, "error", err)
		return nil, errdef.Wrap(errdef.CodeNetwork, err, "sending request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	if err != nil {
		span.End(resp.StatusCode, elapsed, err)
		return nil, errdef.Wrap(errdef.CodeNetwork, err, "reading response")
	}
	span.End(resp.StatusCode, elapsed, nil)

	ms := float64(elapsed) / float64(time.Millisecond)
	c.logger.Debug("dispatched request",
		"method", req.Method.String(),
		"url", target,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"response_time_ms", ms,
	)

	return &protocol.Response{
		Status:         uint16(resp.StatusCode),
		Body:           decodeBody(raw, resp.Header.Get("Content-Type")),
		ResponseTimeMs: ms,
	}, nil
}

// BuildURL appends the non-empty-key params to rawURL, percent-encoding keys
// and values. Any fragment stays at the end.
func BuildURL(rawURL string, params []protocol.KeyValue) string {
	var pairs []string
	for _, kv := range params {
		if kv.Key == "" {
			continue
		}
		pairs = append(pairs, url.QueryEscape(kv.Key)+"="+url.QueryEscape(kv.Value))
	}
	if len(pairs) == 0 {
		return rawURL
	}

	base, fragment, hasFragment := strings.Cut(rawURL, "#")
	switch {
	case !strings.Contains(base, "?"):
		base += "?"
	case !strings.HasSuffix(base, "?") && !strings.HasSuffix(base, "&"):
		base += "&"
	}
	base += strings.Join(pairs, "&")
	if hasFragment {
		base += "#" + fragment
	}
	return base
}

// buildHeader validates every entry before anything is sent. Empty keys are
// skipped; a Host entry is returned separately since net/http ignores it in
// the header map.
func buildHeader(entries []protocol.KeyValue) (http.Header, string, error) {
	header := make(http.Header, len(entries))
	var host string
	for _, kv := range entries {
		if kv.Key == "" {
			continue
		}
		if !httpguts.ValidHeaderFieldName(kv.Key) {
			return nil, "", errdef.New(errdef.CodeInvalidHeader, "invalid header name %q", kv.Key)
		}
		if !httpguts.ValidHeaderFieldValue(kv.Value) {
			return nil, "", errdef.New(errdef.CodeInvalidHeader, "invalid value for header %q", kv.Key)
		}
		if strings.EqualFold(kv.Key, "Host") {
			host = kv.Value
			continue
		}
		header.Add(kv.Key, kv.Value)
	}
	return header, host, nil
}

// decodeBody converts the body to UTF-8 text using the declared charset.
// Undeclared or unknown charsets are read as UTF-8 with invalid sequences
// replaced.
func decodeBody(raw []byte, contentType string) string {
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		if label := params["charset"]; label != "" {
			if enc, name := charset.Lookup(label); enc != nil && name != "utf-8" {
				if decoded, err := enc.NewDecoder().Bytes(raw); err == nil {
					return string(decoded)
				}
			}
		}
	}
	return strings.ToValidUTF8(string(raw), "\uFFFD")
}

// buildTransport creates an http.Transport configured with proxy settings.
func (c *Client) buildTransport() (http.RoundTripper, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if c.proxyConf == nil {
		return transport, nil
	}

	parsed, err := url.Parse(c.proxyConf.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing proxy URL: %w", err)
	}

	switch parsed.Scheme {
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if parsed.User != nil {
			password, _ := parsed.User.Password()
			auth = &proxy.Auth{
				User:     parsed.User.Username(),
				Password: password,
			}
		}
		dialer, err := proxy.SOCKS5("tcp", parsed.Host, auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("creating SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	case "http", "https":
		if c.proxyConf.NoProxy != "" {
			noProxyHosts := parseNoProxy(c.proxyConf.NoProxy)
			transport.Proxy = func(r *http.Request) (*url.URL, error) {
				if shouldBypassProxy(r.URL.Hostname(), noProxyHosts) {
					return nil, nil
				}
				return parsed, nil
			}
		} else {
			transport.Proxy = http.ProxyURL(parsed)
		}
	default:
		return nil, fmt.Errorf("unsupported proxy scheme: %s", parsed.Scheme)
	}

	return transport, nil
}

// parseNoProxy splits a comma-separated no-proxy string into trimmed host entries.
func parseNoProxy(noProxy string) []string {
	parts := strings.Split(noProxy, ",")
	hosts := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			hosts = append(hosts, strings.ToLower(p))
		}
	}
	return hosts
}

// shouldBypassProxy checks whether a host should bypass the proxy.
func shouldBypassProxy(host string, noProxyHosts []string) bool {
	host = strings.ToLower(host)
	for _, h := range noProxyHosts {
		if h == host {
			return true
		}
		// .example.com matches any subdomain
		if strings.HasPrefix(h, ".") && strings.HasSuffix(host, h) {
			return true
		}
	}
	return false
}
