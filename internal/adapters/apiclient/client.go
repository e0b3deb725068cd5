// Package apiclient is the JSON-over-HTTP plumbing shared by directory,
// registry and search adapters.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxBody = 4 << 20

type Config struct {
	Provider string
	// RequestsPerSecond bounds calls to the provider; zero disables limiting.
	RequestsPerSecond float64
	Timeout           time.Duration
}

type Client struct {
	provider string
	http     *http.Client
	limiter  *rate.Limiter
	timeout  time.Duration
	logger   *zap.Logger
}

func New(cfg Config, hc *http.Client, logger *zap.Logger) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return &Client{
		provider: cfg.Provider,
		http:     hc,
		limiter:  limiter,
		timeout:  cfg.Timeout,
		logger:   logger.With(zap.String("provider", cfg.Provider)),
	}
}

func (c *Client) Provider() string { return c.provider }

// GetJSON issues a GET and decodes a 2xx JSON body into out.
func (c *Client) GetJSON(ctx context.Context, url string, header http.Header, out any) (http.Header, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, c.fail(ErrCodeBadRequest, 0, "build request", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return c.Do(ctx, req, out)
}

// Do waits for the rate limiter, sends req under the client timeout and
// decodes the response. Non-2xx responses become *ProviderError.
func (c *Client) Do(ctx context.Context, req *http.Request, out any) (http.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.fail(ErrCodeTransport, 0, "rate limiter", err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req = req.WithContext(ctx)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.fail(ErrCodeTransport, 0, "request failed", err)
	}
	defer resp.Body.Close()
	c.logger.Debug("provider call",
		zap.String("url", req.URL.Redacted()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	body := io.LimitReader(resp.Body, maxBody)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(body, 512))
		return resp.Header, c.fail(codeForStatus(resp.StatusCode), resp.StatusCode, string(snippet), nil)
	}
	if out == nil {
		return resp.Header, nil
	}
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return resp.Header, c.fail(ErrCodeBadResponse, resp.StatusCode, "decode body", err)
	}
	return resp.Header, nil
}

func (c *Client) fail(code string, status int, msg string, cause error) *ProviderError {
	return &ProviderError{Code: code, Provider: c.provider, Status: status, Message: msg, Cause: cause}
}

func codeForStatus(status int) string {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrCodeAuthFailed
	case status == http.StatusNotFound:
		return ErrCodeNotFound
	case status == http.StatusTooManyRequests:
		return ErrCodeRateLimited
	default:
		return ErrCodeBadStatus
	}
}

const (
	ErrCodeAuthFailed  = "auth_failed"
	ErrCodeRateLimited = "rate_limited"
	ErrCodeNotFound    = "not_found"
	ErrCodeBadStatus   = "bad_status"
	ErrCodeBadResponse = "bad_response"
	ErrCodeBadRequest  = "bad_request"
	ErrCodeTransport   = "transport"
)

// ProviderError is a failed call to an external provider.
type ProviderError struct {
	Code     string
	Provider string
	Status   int
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Code)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// HasCode reports whether err is a *ProviderError with the given code.
func HasCode(err error, code string) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Code == code
}
