// Package upstream builds the per-provider HTTP clients that carry
// requests to Gemini CLI / Antigravity / Codex backends, and normalizes
// their responses (transparent decompression) before handing them to the
// postprocessor.
package upstream

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"
)

// Config controls how a provider's Client is built.
type Config struct {
	Proxy           string
	Timeout         time.Duration
	EnableMultiplex bool // allow HTTP/2; default forces HTTP/1.1
	SpoofTLS        bool // use utls Chrome fingerprint instead of crypto/tls
}

// Client wraps an *http.Client scoped to one provider's upstream host.
type Client struct {
	http *http.Client
}

// New builds a Client from cfg. A malformed proxy URL degrades to a direct
// connection rather than failing startup, matching the posture of the
// existing proxy configuration helper this is adapted from.
func New(cfg Config) *Client {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 120 * time.Second
	}

	if cfg.SpoofTLS {
		httpClient.Transport = newUTLSRoundTripper(cfg.Proxy)
		return &Client{http: httpClient}
	}

	transport := applyProxy(cfg.Proxy, &http.Transport{})
	if !cfg.EnableMultiplex {
		transport.ForceAttemptHTTP2 = false
		transport.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	}
	httpClient.Transport = transport
	return &Client{http: httpClient}
}

// applyProxy configures transport's dialer/proxy from a raw proxy URL
// supporting socks5, http and https schemes.
func applyProxy(rawProxy string, transport *http.Transport) *http.Transport {
	if rawProxy == "" {
		return transport
	}
	proxyURL, err := url.Parse(rawProxy)
	if err != nil {
		log.WithError(err).Warn("upstream: ignoring malformed proxy url")
		return transport
	}
	switch proxyURL.Scheme {
	case "socks5":
		var auth *proxy.Auth
		if proxyURL.User != nil {
			username := proxyURL.User.Username()
			password, _ := proxyURL.User.Password()
			auth = &proxy.Auth{User: username, Password: password}
		}
		dialer, err := proxy.SOCKS5("tcp", proxyURL.Host, auth, proxy.Direct)
		if err != nil {
			log.WithError(err).Warn("upstream: failed to build socks5 dialer")
			return transport
		}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	case "http", "https":
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return transport
}

// Response is the normalized result of an upstream call: either a fully
// buffered body (unary) or a live stream (SSE passthrough), never both.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte        // set for unary responses
	Stream     io.ReadCloser // set for streaming responses; caller must Close
}

// Post issues a JSON POST to endpoint carrying bearer as a Bearer token. If
// stream is true the response body is handed back unconsumed (and
// undecompressed — SSE passthrough copies bytes verbatim) for the caller to
// read incrementally; otherwise the body is buffered and transparently
// decompressed according to Content-Encoding.
func (c *Client) Post(ctx context.Context, endpoint, bearer string, payload []byte, stream bool) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("upstream: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br, zstd")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream: request failed: %w", err)
	}

	if stream {
		return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Stream: resp.Body}, nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("upstream: read body: %w", err)
	}
	decoded, err := decompress(resp.Header.Get("Content-Encoding"), raw)
	if err != nil {
		return nil, fmt.Errorf("upstream: decompress body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: decoded}, nil
}
