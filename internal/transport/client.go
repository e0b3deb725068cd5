// Package transport owns the pooled HTTP client shared by one discovery run.
package transport

import (
	"net"
	"net/http"
	"time"
)

type Options struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	DialTimeout         time.Duration
	TLSHandshakeTimeout time.Duration
	UserAgent           string
}

func (o *Options) defaults() {
	if o.MaxIdleConns == 0 {
		o.MaxIdleConns = 100
	}
	if o.MaxIdleConnsPerHost == 0 {
		o.MaxIdleConnsPerHost = 4
	}
	if o.MaxConnsPerHost == 0 {
		o.MaxConnsPerHost = 8
	}
	if o.DialTimeout == 0 {
		o.DialTimeout = 5 * time.Second
	}
	if o.TLSHandshakeTimeout == 0 {
		o.TLSHandshakeTimeout = 5 * time.Second
	}
	if o.UserAgent == "" {
		o.UserAgent = "leadscout/1.0 (+website-presence check)"
	}
}

// Client is safe for concurrent use by every adapter and probe of a run.
// Callers bound each request with a context deadline.
type Client struct {
	*http.Client
	transport *http.Transport
}

func New(opts Options) *Client {
	opts.defaults()
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          opts.MaxIdleConns,
		MaxIdleConnsPerHost:   opts.MaxIdleConnsPerHost,
		MaxConnsPerHost:       opts.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   opts.TLSHandshakeTimeout,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &Client{
		Client:    &http.Client{Transport: &uaTransport{base: tr, ua: opts.UserAgent}},
		transport: tr,
	}
}

// Close releases pooled connections at the end of a run.
func (c *Client) Close() {
	c.transport.CloseIdleConnections()
}

type uaTransport struct {
	base http.RoundTripper
	ua   string
}

func (t *uaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.ua)
	return t.base.RoundTrip(r)
}
