// Package googleplaces searches Google Places (Text Search, new API) for businesses.
package googleplaces

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"leadscout/internal/adapters/apiclient"
	"leadscout/internal/domain"
)

const (
	maxRadiusMeters = 50000
	pageSize        = 20
	fieldMask       = "places.displayName,places.formattedAddress,places.nationalPhoneNumber," +
		"places.internationalPhoneNumber,places.websiteUri,places.primaryTypeDisplayName,nextPageToken"
)

type Config struct {
	APIKey            string
	PlacesURL         string
	GeocodeURL        string
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
	if cfg.PlacesURL == "" {
		cfg.PlacesURL = "https://places.googleapis.com"
	}
	if cfg.GeocodeURL == "" {
		cfg.GeocodeURL = "https://maps.googleapis.com"
	}
	if cfg.MaxPages == 0 {
		cfg.MaxPages = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("googleplaces")
	return &Directory{
		cfg: cfg,
		api: apiclient.New(apiclient.Config{
			Provider:          string(domain.SourceGooglePlaces),
			RequestsPerSecond: cfg.RequestsPerSecond,
			Timeout:           cfg.Timeout,
		}, hc, logger),
		logger: logger,
		now:    time.Now,
	}
}

func (d *Directory) Name() domain.Source { return domain.SourceGooglePlaces }

func (d *Directory) Configured() bool { return d.cfg.APIKey != "" }

func (d *Directory) Search(ctx context.Context, q domain.SearchQuery) ([]domain.BusinessRecord, error) {
	if !d.Configured() {
		return nil, nil
	}
	center, err := d.geocode(ctx, q.Location)
	if err != nil {
		return nil, err
	}

	var out []domain.BusinessRecord
	token := ""
	for page := 0; page < d.cfg.MaxPages; page++ {
		resp, err := d.searchText(ctx, q, center, token)
		if err != nil {
			return out, err
		}
		for i, raw := range resp.Places {
			rec, ok := d.toRecord(raw, q)
			if !ok {
				d.logger.Warn("skipping malformed place", zap.Int("page", page), zap.Int("index", i))
				continue
			}
			out = append(out, rec)
		}
		if resp.NextPageToken == "" {
			break
		}
		token = resp.NextPageToken
	}
	return out, nil
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (d *Directory) geocode(ctx context.Context, location string) (latLng, error) {
	v := url.Values{}
	v.Set("address", location)
	v.Set("key", d.cfg.APIKey)
	var resp geocodeResponse
	if _, err := d.api.GetJSON(ctx, d.cfg.GeocodeURL+"/maps/api/geocode/json?"+v.Encode(), nil, &resp); err != nil {
		return latLng{}, err
	}
	switch resp.Status {
	case "OK":
	case "REQUEST_DENIED":
		return latLng{}, &apiclient.ProviderError{Code: apiclient.ErrCodeAuthFailed, Provider: d.api.Provider(), Message: resp.ErrorMessage}
	case "OVER_QUERY_LIMIT":
		return latLng{}, &apiclient.ProviderError{Code: apiclient.ErrCodeRateLimited, Provider: d.api.Provider(), Message: resp.ErrorMessage}
	default:
		return latLng{}, &apiclient.ProviderError{Code: apiclient.ErrCodeBadResponse, Provider: d.api.Provider(),
			Message: fmt.Sprintf("geocode %q: %s", location, resp.Status)}
	}
	if len(resp.Results) == 0 {
		return latLng{}, &apiclient.ProviderError{Code: apiclient.ErrCodeBadResponse, Provider: d.api.Provider(),
			Message: fmt.Sprintf("geocode %q: no results", location)}
	}
	loc := resp.Results[0].Geometry.Location
	return latLng{Latitude: loc.Lat, Longitude: loc.Lng}, nil
}

type searchTextRequest struct {
	TextQuery    string `json:"textQuery"`
	PageSize     int    `json:"pageSize"`
	PageToken    string `json:"pageToken,omitempty"`
	LocationBias struct {
		Circle struct {
			Center latLng  `json:"center"`
			Radius float64 `json:"radius"`
		} `json:"circle"`
	} `json:"locationBias"`
}

type searchTextResponse struct {
	Places        []json.RawMessage `json:"places"`
	NextPageToken string            `json:"nextPageToken"`
}

type localizedText struct {
	Text string `json:"text"`
}

type place struct {
	DisplayName              localizedText `json:"displayName"`
	FormattedAddress         string        `json:"formattedAddress"`
	NationalPhoneNumber      string        `json:"nationalPhoneNumber"`
	InternationalPhoneNumber string        `json:"internationalPhoneNumber"`
	WebsiteURI               string        `json:"websiteUri"`
	PrimaryTypeDisplayName   localizedText `json:"primaryTypeDisplayName"`
}

func (d *Directory) searchText(ctx context.Context, q domain.SearchQuery, center latLng, token string) (searchTextResponse, error) {
	body := searchTextRequest{TextQuery: q.Term(), PageSize: pageSize, PageToken: token}
	body.LocationBias.Circle.Center = center
	body.LocationBias.Circle.Radius = float64(apiclient.RadiusMeters(q.RadiusKm, maxRadiusMeters))
	buf, err := json.Marshal(body)
	if err != nil {
		return searchTextResponse{}, err
	}
	req, err := http.NewRequest(http.MethodPost, d.cfg.PlacesURL+"/v1/places:searchText", bytes.NewReader(buf))
	if err != nil {
		return searchTextResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", d.cfg.APIKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	var resp searchTextResponse
	_, err = d.api.Do(ctx, req, &resp)
	return resp, err
}

func (d *Directory) toRecord(raw json.RawMessage, q domain.SearchQuery) (domain.BusinessRecord, bool) {
	var p place
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.BusinessRecord{}, false
	}
	name := domain.CleanText(p.DisplayName.Text)
	addr := domain.CleanText(p.FormattedAddress)
	if name == "" || addr == "" {
		return domain.BusinessRecord{}, false
	}
	phone := p.NationalPhoneNumber
	if phone == "" {
		phone = p.InternationalPhoneNumber
	}
	btype := strings.TrimSpace(p.PrimaryTypeDisplayName.Text)
	if btype == "" {
		btype = q.BusinessType
	}
	return domain.BusinessRecord{
		Name:         name,
		Address:      addr,
		Phone:        domain.NormalizePhone(phone),
		Sources:      domain.Sources{domain.SourceGooglePlaces},
		BusinessType: btype,
		KnownWebsite: strings.TrimSpace(p.WebsiteURI),
		DiscoveredAt: d.now().UTC(),
	}, true
}
