// Package customsearch queries Google Programmable Search for official websites.
package customsearch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	cse "google.golang.org/api/customsearch/v1"
	gtransport "google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"
)

const maxNum = 10

type Config struct {
	APIKey   string
	EngineID string
	// Endpoint overrides the API base URL.
	Endpoint string
	Timeout  time.Duration
}

type Search struct {
	cfg    Config
	svc    *cse.Service
	logger *zap.Logger
}

// New builds the client; without credentials it returns an unconfigured Search
// that yields no results.
func New(cfg Config, hc *http.Client, logger *zap.Logger) (*Search, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	s := &Search{cfg: cfg, logger: logger.Named("customsearch")}
	if !s.Configured() {
		return s, nil
	}
	base := http.DefaultTransport
	if hc != nil && hc.Transport != nil {
		base = hc.Transport
	}
	// A custom HTTP client disables option.WithAPIKey, so the key rides on the transport.
	opts := []option.ClientOption{
		option.WithHTTPClient(&http.Client{Transport: &gtransport.APIKey{Key: cfg.APIKey, Transport: base}}),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := cse.NewService(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("customsearch: %w", err)
	}
	s.svc = svc
	return s, nil
}

func (s *Search) Configured() bool { return s.cfg.APIKey != "" && s.cfg.EngineID != "" }

// Search returns up to limit result links in rank order.
func (s *Search) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if !s.Configured() || limit <= 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	res, err := s.svc.Cse.List().Q(query).Cx(s.cfg.EngineID).Num(int64(min(limit, maxNum))).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("customsearch %q: %w", query, err)
	}
	links := make([]string, 0, len(res.Items))
	for _, it := range res.Items {
		if it == nil || it.Link == "" {
			continue
		}
		links = append(links, it.Link)
	}
	s.logger.Debug("search done", zap.String("query", query), zap.Int("links", len(links)))
	return links, nil
}
