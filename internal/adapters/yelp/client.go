// Package yelp searches the Yelp Fusion business directory.
package yelp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"leadscout/internal/adapters/apiclient"
	"leadscout/internal/domain"
)

const (
	maxRadiusMeters = 40000
	pageLimit       = 50
	// Yelp rejects searches where offset+limit exceeds this.
	maxWindow = 240
)

type Config struct {
	APIKey            string
	BaseURL           string
	MaxResults        int
	RequestsPerSecond float64
	Timeout           time.Duration
}

type Directory struct {
	cfg    Config
	api    *apiclient.Client
	logger *zap.Logger
	now    func() time.Time
}

func New(cfg Config, hc *http.Client, logger *zap.Logger) *Directory {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.yelp.com"
	}
	if cfg.MaxResults <= 0 || cfg.MaxResults > maxWindow {
		cfg.MaxResults = maxWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("yelp")
	return &Directory{
		cfg: cfg,
		api: apiclient.New(apiclient.Config{
			Provider:          string(domain.SourceYelp),
			RequestsPerSecond: cfg.RequestsPerSecond,
			Timeout:           cfg.Timeout,
		}, hc, logger),
		logger: logger,
		now:    time.Now,
	}
}

func (d *Directory) Name() domain.Source { return domain.SourceYelp }

func (d *Directory) Configured() bool { return d.cfg.APIKey != "" }

type searchResponse struct {
	Businesses []json.RawMessage `json:"businesses"`
	Total      int               `json:"total"`
}

type business struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	IsClosed bool   `json:"is_closed"`
	Location struct {
		Address1       string   `json:"address1"`
		City           string   `json:"city"`
		DisplayAddress []string `json:"display_address"`
	} `json:"location"`
	Categories []struct {
		Title string `json:"title"`
	} `json:"categories"`
}

func (d *Directory) Search(ctx context.Context, q domain.SearchQuery) ([]domain.BusinessRecord, error) {
	if !d.Configured() {
		return nil, nil
	}
	header := http.Header{"Authorization": {"Bearer " + d.cfg.APIKey}}
	radius := strconv.Itoa(apiclient.RadiusMeters(q.RadiusKm, maxRadiusMeters))

	var out []domain.BusinessRecord
	for offset := 0; offset < d.cfg.MaxResults; {
		limit := min(pageLimit, d.cfg.MaxResults-offset)
		v := url.Values{}
		v.Set("term", q.Term())
		v.Set("location", q.Location)
		v.Set("radius", radius)
		v.Set("limit", strconv.Itoa(limit))
		v.Set("offset", strconv.Itoa(offset))

		var resp searchResponse
		if _, err := d.api.GetJSON(ctx, d.cfg.BaseURL+"/v3/businesses/search?"+v.Encode(), header, &resp); err != nil {
			return out, err
		}
		for i, raw := range resp.Businesses {
			rec, ok := d.toRecord(raw, q)
			if !ok {
				d.logger.Warn("skipping malformed business", zap.Int("offset", offset+i))
				continue
			}
			out = append(out, rec)
		}
		offset += len(resp.Businesses)
		if len(resp.Businesses) < limit || offset >= resp.Total {
			break
		}
	}
	return out, nil
}

func (d *Directory) toRecord(raw json.RawMessage, q domain.SearchQuery) (domain.BusinessRecord, bool) {
	var b business
	if err := json.Unmarshal(raw, &b); err != nil {
		return domain.BusinessRecord{}, false
	}
	name := domain.CleanText(b.Name)
	addr := domain.JoinAddress(b.Location.Address1, b.Location.City)
	if b.Location.Address1 == "" {
		addr = domain.CleanText(strings.Join(b.Location.DisplayAddress, ", "))
	}
	if name == "" || addr == "" {
		return domain.BusinessRecord{}, false
	}
	btype := q.BusinessType
	if len(b.Categories) > 0 && b.Categories[0].Title != "" {
		btype = b.Categories[0].Title
	}
	// Yelp's url field is the Yelp listing, not the business site.
	return domain.BusinessRecord{
		Name:         name,
		Address:      addr,
		Phone:        domain.NormalizePhone(b.Phone),
		Sources:      domain.Sources{domain.SourceYelp},
		BusinessType: btype,
		DiscoveredAt: d.now().UTC(),
	}, true
}

