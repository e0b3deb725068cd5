// Package foursquare searches the Foursquare Places API.
package foursquare

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
	maxRadiusMeters = 100000
	pageLimit       = 50
	fields          = "name,location,tel,website,categories"
)

type Config struct {
	APIKey            string
	BaseURL           string
	MaxPages          int
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
		cfg.BaseURL = "https://api.foursquare.com"
	}
	if cfg.MaxPages == 0 {
		cfg.MaxPages = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("foursquare")
	return &Directory{
		cfg: cfg,
		api: apiclient.New(apiclient.Config{
			Provider:          string(domain.SourceFoursquare),
			RequestsPerSecond: cfg.RequestsPerSecond,
			Timeout:           cfg.Timeout,
		}, hc, logger),
		logger: logger,
		now:    time.Now,
	}
}

func (d *Directory) Name() domain.Source { return domain.SourceFoursquare }

func (d *Directory) Configured() bool { return d.cfg.APIKey != "" }

type searchResponse struct {
	Results []json.RawMessage `json:"results"`
}

type placeResult struct {
	Name     string `json:"name"`
	Tel      string `json:"tel"`
	Website  string `json:"website"`
	Location struct {
		Address          string `json:"address"`
		Locality         string `json:"locality"`
		FormattedAddress string `json:"formatted_address"`
	} `json:"location"`
	Categories []struct {
		Name string `json:"name"`
	} `json:"categories"`
}

func (d *Directory) Search(ctx context.Context, q domain.SearchQuery) ([]domain.BusinessRecord, error) {
	if !d.Configured() {
		return nil, nil
	}
	v := url.Values{}
	v.Set("query", q.Term())
	v.Set("near", q.Location)
	v.Set("radius", strconv.Itoa(apiclient.RadiusMeters(q.RadiusKm, maxRadiusMeters)))
	v.Set("limit", strconv.Itoa(pageLimit))
	v.Set("fields", fields)
	next := d.cfg.BaseURL + "/v3/places/search?" + v.Encode()
	header := http.Header{"Authorization": {d.cfg.APIKey}}

	var out []domain.BusinessRecord
	for page := 0; page < d.cfg.MaxPages && next != ""; page++ {
		var resp searchResponse
		hdr, err := d.api.GetJSON(ctx, next, header, &resp)
		if err != nil {
			return out, err
		}
		for i, raw := range resp.Results {
			rec, ok := d.toRecord(raw, q)
			if !ok {
				d.logger.Warn("skipping malformed place", zap.Int("page", page), zap.Int("index", i))
				continue
			}
			out = append(out, rec)
		}
		next = d.resolve(apiclient.NextLink(hdr))
	}
	return out, nil
}

// resolve keeps relative cursors on the configured host.
func (d *Directory) resolve(link string) string {
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	base, err := url.Parse(d.cfg.BaseURL)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

func (d *Directory) toRecord(raw json.RawMessage, q domain.SearchQuery) (domain.BusinessRecord, bool) {
	var p placeResult
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.BusinessRecord{}, false
	}
	name := domain.CleanText(p.Name)
	addr := domain.CleanText(p.Location.FormattedAddress)
	if addr == "" {
		addr = domain.JoinAddress(p.Location.Address, p.Location.Locality)
	}
	if name == "" || addr == "" {
		return domain.BusinessRecord{}, false
	}
	btype := q.BusinessType
	if len(p.Categories) > 0 && p.Categories[0].Name != "" {
		btype = p.Categories[0].Name
	}
	return domain.BusinessRecord{
		Name:         name,
		Address:      addr,
		Phone:        domain.NormalizePhone(p.Tel),
		Sources:      domain.Sources{domain.SourceFoursquare},
		BusinessType: btype,
		KnownWebsite: strings.TrimSpace(p.Website),
		DiscoveredAt: d.now().UTC(),
	}, true
}
