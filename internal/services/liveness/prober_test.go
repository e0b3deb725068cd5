package liveness

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"leadscout/internal/domain"
)

type fakeRegistry struct {
	registered map[string]bool
	err        error
	calls      []string
}

func (f *fakeRegistry) Lookup(_ context.Context, name string) (domain.Registration, error) {
	f.calls = append(f.calls, name)
	if f.err != nil {
		return domain.Registration{}, f.err
	}
	if f.registered[name] {
		return domain.Registration{Domain: name, Registered: true, Registrar: "Example Registrar", CreatedOn: "2009-03-01"}, nil
	}
	return domain.Registration{Domain: name}, nil
}

// routes serves canned handlers per scheme://host and fails every other dial.
type routes struct {
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	hits     []string
}

func (r *routes) RoundTrip(req *http.Request) (*http.Response, error) {
	key := req.URL.Scheme + "://" + req.URL.Host
	r.mu.Lock()
	r.hits = append(r.hits, key)
	h, ok := r.handlers[key]
	r.mu.Unlock()
	if !ok {
		return nil, errors.New("dial " + key + ": connection refused")
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec.Result(), nil
}

func page(html string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(html))
	}
}

func newProber(t *testing.T, reg *fakeRegistry, rt *routes) *Prober {
	t.Helper()
	p := New(Config{}, reg, &http.Client{Transport: rt}, nil, nil, zaptest.NewLogger(t))
	p.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return p
}

func TestVerify_Active(t *testing.T) {
	reg := &fakeRegistry{registered: map[string]bool{"joespizza.com": true}}
	rt := &routes{handlers: map[string]http.HandlerFunc{
		"https://joespizza.com": page(`<html><body><h1>Joe's Pizza</h1><p>Order online.</p></body></html>`),
	}}
	res := newProber(t, reg, rt).Verify(t.Context(), "joespizza.com")

	assert.True(t, res.HasWebsite)
	assert.Equal(t, "joespizza.com", res.Domain)
	assert.Equal(t, domain.StatusActive, res.Status)
	assert.Equal(t, domain.EvidenceHTTPProbe, res.Evidence)
	assert.Equal(t, "Example Registrar", res.Registrar)
	assert.Equal(t, "2009-03-01", res.RegisteredOn)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), res.CheckedAt)
	assert.Equal(t, []string{"https://joespizza.com"}, rt.hits)
}

func TestVerify_NotRegisteredNeverProbes(t *testing.T) {
	reg := &fakeRegistry{}
	rt := &routes{handlers: map[string]http.HandlerFunc{}}
	res := newProber(t, reg, rt).Verify(t.Context(), "joes-pizza.biz")

	assert.False(t, res.HasWebsite)
	assert.Equal(t, domain.StatusNotRegistered, res.Status)
	assert.Equal(t, domain.EvidenceRegistrationLookup, res.Evidence)
	assert.Empty(t, rt.hits)
}

func TestVerify_SubdomainActiveUnderRegisteredParent(t *testing.T) {
	reg := &fakeRegistry{registered: map[string]bool{"joespizza.com": true}}
	rt := &routes{handlers: map[string]http.HandlerFunc{"https://order.joespizza.com": page("menu")}}
	res := newProber(t, reg, rt).Verify(t.Context(), "Order.JoesPizza.com")

	assert.Equal(t, []string{"joespizza.com"}, reg.calls)
	assert.Equal(t, "order.joespizza.com", res.Domain)
	assert.True(t, res.HasWebsite)
	assert.Equal(t, domain.StatusActive, res.Status)
}

func TestVerify_DeadSubdomainDoesNotInheritParent(t *testing.T) {
	reg := &fakeRegistry{registered: map[string]bool{"pizza.com": true}}
	rt := &routes{}
	res := newProber(t, reg, rt).Verify(t.Context(), "joes.pizza.com")

	assert.Equal(t, []string{"pizza.com"}, reg.calls)
	assert.Equal(t, []string{"https://joes.pizza.com", "http://joes.pizza.com"}, rt.hits)
	assert.False(t, res.HasWebsite)
	assert.Equal(t, domain.StatusNotRegistered, res.Status)
	assert.Equal(t, domain.EvidenceRegistrationLookup, res.Evidence)
	assert.Empty(t, res.Registrar)
	assert.Empty(t, res.RegisteredOn)
}

func TestVerify_FallsBackToHTTP(t *testing.T) {
	reg := &fakeRegistry{registered: map[string]bool{"joespizza.com": true}}
	rt := &routes{handlers: map[string]http.HandlerFunc{
		"https://joespizza.com": func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) },
		"http://joespizza.com":  page("<p>Welcome</p>"),
	}}
	res := newProber(t, reg, rt).Verify(t.Context(), "joespizza.com")

	assert.Equal(t, domain.StatusActive, res.Status)
	assert.Equal(t, []string{"https://joespizza.com", "http://joespizza.com"}, rt.hits)
}

func TestVerify_RegisteredButDead(t *testing.T) {
	reg := &fakeRegistry{registered: map[string]bool{"joespizza.com": true}}
	res := newProber(t, reg, &routes{}).Verify(t.Context(), "joespizza.com")

	assert.True(t, res.HasWebsite)
	assert.Equal(t, domain.StatusInactive, res.Status)
	assert.Equal(t, domain.EvidenceRegistrationLookup, res.Evidence)
}

func TestVerify_Parked(t *testing.T) {
	tests := map[string]string{
		"parked notice":  `<html><body><div>This domain is parked free of charge</div></body></html>`,
		"for sale":       `<html><head><title>joespizza.com</title></head><body><a href="#">Buy this domain</a></body></html>`,
		"mixed case":     `<body><p>DOMAIN PARKING by Example</p></body>`,
		"not configured": `<body>Domain not configured</body>`,
	}
	for name, html := range tests {
		t.Run(name, func(t *testing.T) {
			reg := &fakeRegistry{registered: map[string]bool{"joespizza.com": true}}
			rt := &routes{handlers: map[string]http.HandlerFunc{"https://joespizza.com": page(html)}}
			res := newProber(t, reg, rt).Verify(t.Context(), "joespizza.com")

			assert.False(t, res.HasWebsite)
			assert.Equal(t, domain.StatusParked, res.Status)
			assert.Equal(t, domain.EvidenceHTTPProbe, res.Evidence)
		})
	}
}

func TestVerify_IndicatorsInScriptsIgnored(t *testing.T) {
	reg := &fakeRegistry{registered: map[string]bool{"joespizza.com": true}}
	html := `<html><head><script>var msg = "buy this domain";</script><style>.x{content:"domain is parked"}</style></head>
<body><noscript>this domain is for sale</noscript><p>Fresh slices daily.</p></body></html>`
	rt := &routes{handlers: map[string]http.HandlerFunc{"https://joespizza.com": page(html)}}
	res := newProber(t, reg, rt).Verify(t.Context(), "joespizza.com")

	assert.Equal(t, domain.StatusActive, res.Status)
}

func TestVerify_LookupErrorFallsThrough(t *testing.T) {
	reg := &fakeRegistry{err: errors.New("rdap: timeout")}

	rt := &routes{handlers: map[string]http.HandlerFunc{"https://joespizza.com": page("<p>Hello</p>")}}
	res := newProber(t, reg, rt).Verify(t.Context(), "joespizza.com")
	assert.True(t, res.HasWebsite)
	assert.Equal(t, domain.StatusActive, res.Status)

	res = newProber(t, reg, &routes{}).Verify(t.Context(), "joespizza.com")
	assert.False(t, res.HasWebsite)
	assert.Equal(t, domain.StatusVerificationError, res.Status)
	assert.Equal(t, domain.EvidenceNone, res.Evidence)
}

type memCache struct {
	data map[string]domain.VerificationResult
	puts int
}

func (m *memCache) Get(_ context.Context, d string) (domain.VerificationResult, bool, error) {
	r, ok := m.data[d]
	return r, ok, nil
}

func (m *memCache) Put(_ context.Context, d string, r domain.VerificationResult) error {
	m.puts++
	m.data[d] = r
	return nil
}

func TestVerify_UsesCache(t *testing.T) {
	reg := &fakeRegistry{registered: map[string]bool{"joespizza.com": true}}
	rt := &routes{handlers: map[string]http.HandlerFunc{"https://joespizza.com": page("<p>Hello</p>")}}
	cache := &memCache{data: map[string]domain.VerificationResult{}}
	p := New(Config{}, reg, &http.Client{Transport: rt}, cache, nil, zaptest.NewLogger(t))

	first := p.Verify(t.Context(), "joespizza.com")
	second := p.Verify(t.Context(), "joespizza.com")

	require.Equal(t, domain.StatusActive, first.Status)
	assert.Equal(t, first, second)
	assert.Len(t, reg.calls, 1)
	assert.Len(t, rt.hits, 1)
	assert.Equal(t, 1, cache.puts)
}

func TestVerify_VerificationErrorNotCached(t *testing.T) {
	reg := &fakeRegistry{err: errors.New("whois: refused")}
	cache := &memCache{data: map[string]domain.VerificationResult{}}
	p := New(Config{}, reg, &http.Client{Transport: &routes{}}, cache, nil, zaptest.NewLogger(t))

	res := p.Verify(t.Context(), "joespizza.com")
	assert.Equal(t, domain.StatusVerificationError, res.Status)
	assert.Zero(t, cache.puts)
}

func TestVisibleText(t *testing.T) {
	got := VisibleText([]byte(`<html><head><title>Joe's</title><script>x()</script></head><body>  <p>Hot
	pizza</p></body></html>`))
	assert.Equal(t, "Joe's Hot pizza", got)
}
